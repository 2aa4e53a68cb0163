package reader

import (
	"context"
	"sort"
	"sync"
	"time"
)

// DefaultFrameInterval is one frame at 60 fps.
const DefaultFrameInterval = time.Second / 60

// Scheduler defers work to the next rendered frame or to a later time.
type Scheduler interface {
	// RequestFrame queues fn for the next frame. Frames cannot be cancelled.
	RequestFrame(fn func())
	// AfterFunc runs fn after d. The returned stop func reports whether it
	// prevented the call.
	AfterFunc(d time.Duration, fn func()) (stop func() bool)
}

// TickerScheduler runs queued frame callbacks on a ticker goroutine.
type TickerScheduler struct {
	mu      sync.Mutex
	pending []func()
}

// NewTickerScheduler starts a frame loop that stops when ctx is done.
func NewTickerScheduler(ctx context.Context, interval time.Duration) *TickerScheduler {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	s := &TickerScheduler{}
	go s.loop(ctx, interval)
	return s
}

func (s *TickerScheduler) loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runFrame()
		}
	}
}

func (s *TickerScheduler) runFrame() {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, fn := range batch {
		fn()
	}
}

func (s *TickerScheduler) RequestFrame(fn func()) {
	s.mu.Lock()
	s.pending = append(s.pending, fn)
	s.mu.Unlock()
}

func (s *TickerScheduler) AfterFunc(d time.Duration, fn func()) func() bool {
	return time.AfterFunc(d, fn).Stop
}

type manualTimer struct {
	at      time.Duration
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

// ManualScheduler advances frames and time only when told to.
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	frames []func()
	timers []*manualTimer
}

// NewManualScheduler returns a scheduler at virtual time zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (s *ManualScheduler) RequestFrame(fn func()) {
	s.mu.Lock()
	s.frames = append(s.frames, fn)
	s.mu.Unlock()
}

// Flush runs one frame: every callback queued before the call.
func (s *ManualScheduler) Flush() int {
	s.mu.Lock()
	batch := s.frames
	s.frames = nil
	s.mu.Unlock()
	for _, fn := range batch {
		fn()
	}
	return len(batch)
}

// PendingFrames returns the number of queued frame callbacks.
func (s *ManualScheduler) PendingFrames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func (s *ManualScheduler) AfterFunc(d time.Duration, fn func()) func() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &manualTimer{at: s.now + d, seq: s.seq, fn: fn}
	s.timers = append(s.timers, t)
	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		if t.fired || t.stopped {
			return false
		}
		t.stopped = true
		return true
	}
}

// PendingTimers returns the number of timers that have neither fired nor
// been stopped.
func (s *ManualScheduler) PendingTimers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

// Advance moves virtual time forward by d and runs the timers that came
// due, in deadline order. It returns how many ran.
func (s *ManualScheduler) Advance(d time.Duration) int {
	s.mu.Lock()
	s.now += d
	var due []*manualTimer
	keep := s.timers[:0]
	for _, t := range s.timers {
		switch {
		case t.stopped:
		case t.at <= s.now:
			t.fired = true
			due = append(due, t)
		default:
			keep = append(keep, t)
		}
	}
	s.timers = keep
	s.mu.Unlock()
	sort.Slice(due, func(i, j int) bool {
		if due[i].at != due[j].at {
			return due[i].at < due[j].at
		}
		return due[i].seq < due[j].seq
	})
	for _, t := range due {
		t.fn()
	}
	return len(due)
}

// Coalescer runs fn at most once per frame no matter how often it is
// triggered. The pending flag clears only after fn has run.
type Coalescer struct {
	mu      sync.Mutex
	pending bool
	sched   Scheduler
	fn      func()
}

// NewCoalescer binds fn to the frames of s.
func NewCoalescer(s Scheduler, fn func()) *Coalescer {
	return &Coalescer{sched: s, fn: fn}
}

// Trigger schedules fn on the next frame unless a run is already pending.
// It reports whether a frame was requested.
func (c *Coalescer) Trigger() bool {
	c.mu.Lock()
	if c.pending {
		c.mu.Unlock()
		return false
	}
	c.pending = true
	c.mu.Unlock()
	c.sched.RequestFrame(func() {
		c.fn()
		c.mu.Lock()
		c.pending = false
		c.mu.Unlock()
	})
	return true
}
