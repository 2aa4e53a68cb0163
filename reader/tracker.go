package reader

import (
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/net/html"
)

// SettleDelay is how long the tracker waits for layout to settle before
// recomputing after setup and after a rotation.
const SettleDelay = 100 * time.Millisecond

// TrackerOptions wires a Tracker.
type TrackerOptions struct {
	Document     *Document
	Viewport     Viewport
	Scheduler    Scheduler
	Logger       *log.Logger
	TotalWords   int
	ReadingSpeed int
}

type listenerHandle struct {
	target *EventTarget
	id     ListenerID
}

// Tracker keeps the progress display in step with the viewport.
type Tracker struct {
	doc        *Document
	view       Viewport
	sched      Scheduler
	logger     *log.Logger
	totalWords int
	wpm        int

	mu      sync.Mutex
	active  bool
	handles []listenerHandle
	timers  []func() bool
	last    Snapshot
	updates int
}

// NewTracker returns a tracker that is not yet listening.
func NewTracker(opts TrackerOptions) *Tracker {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Scheduler == nil {
		opts.Scheduler = NewManualScheduler()
	}
	return &Tracker{
		doc:        opts.Document,
		view:       opts.Viewport,
		sched:      opts.Scheduler,
		logger:     opts.Logger,
		totalWords: opts.TotalWords,
		wpm:        speedOrDefault(opts.ReadingSpeed),
	}
}

// Start installs the viewport listeners and draws the initial progress.
// Without a content container and a progress bar nothing is installed.
func (t *Tracker) Start() error {
	missing := ""
	t.doc.Mutate(func(root *html.Node) {
		switch {
		case FindByID(root, IDContent) == nil:
			missing = IDContent
		case FindByID(root, IDProgressFill) == nil:
			missing = IDProgressFill
		}
	})
	if missing != "" {
		t.logger.Printf("PROGRESS missing #%s, scroll tracking disabled", missing)
		return fmt.Errorf("%w: #%s", ErrMissingElement, missing)
	}

	t.mu.Lock()
	if t.active {
		t.mu.Unlock()
		return nil
	}
	t.active = true
	t.mu.Unlock()

	coalesced := NewCoalescer(t.sched, t.refresh)
	onScroll := func() { coalesced.Trigger() }
	settle := func() { t.after(SettleDelay, t.refresh) }

	events := t.view.Events()
	t.listen(events, EventScroll, onScroll)
	t.listen(events, EventResize, t.refresh)
	if t.view.SupportsOrientation() {
		t.listen(events, EventOrientationChange, settle)
	}
	if vv := t.view.VisualViewport(); vv != nil {
		t.listen(vv, EventResize, t.refresh)
		t.listen(vv, EventScroll, onScroll)
	}

	settle()
	t.Update()
	t.logger.Printf("PROGRESS tracking words=%d wpm=%d", t.totalWords, t.wpm)
	return nil
}

func (t *Tracker) listen(target *EventTarget, typ EventType, fn func()) {
	id := target.AddEventListener(typ, fn)
	t.mu.Lock()
	t.handles = append(t.handles, listenerHandle{target: target, id: id})
	t.mu.Unlock()
}

func (t *Tracker) after(d time.Duration, fn func()) {
	stop := t.sched.AfterFunc(d, fn)
	t.mu.Lock()
	t.timers = append(t.timers, stop)
	t.mu.Unlock()
}

// refresh is the listener-side update; it is a no-op once stopped since
// frames already queued cannot be withdrawn.
func (t *Tracker) refresh() {
	t.mu.Lock()
	active := t.active
	t.mu.Unlock()
	if active {
		t.Update()
	}
}

// Update recomputes progress from the current metrics and writes it to
// whichever display elements exist.
func (t *Tracker) Update() Snapshot {
	snap := ComputeSnapshot(t.totalWords, t.wpm, t.view.Metrics())
	t.doc.Mutate(func(root *html.Node) {
		if fill := FindByID(root, IDProgressFill); fill != nil {
			SetStyleProperty(fill, "width", snap.FillWidth)
		}
		if el := FindByID(root, IDProgressPercent); el != nil {
			SetTextContent(el, snap.PercentLabel)
		}
		if el := FindByID(root, IDTimeRemaining); el != nil {
			SetTextContent(el, snap.RemainingLabel)
		}
	})
	t.mu.Lock()
	t.last = snap
	t.updates++
	t.mu.Unlock()
	return snap
}

// Stop detaches every listener and cancels pending timers.
func (t *Tracker) Stop() {
	t.mu.Lock()
	handles := t.handles
	timers := t.timers
	t.handles, t.timers = nil, nil
	t.active = false
	t.mu.Unlock()
	for _, h := range handles {
		h.target.RemoveEventListener(h.id)
	}
	for _, stop := range timers {
		stop()
	}
}

// Active reports whether listeners are installed.
func (t *Tracker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// Last returns the most recent snapshot.
func (t *Tracker) Last() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// Updates returns how many times progress has been recomputed.
func (t *Tracker) Updates() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.updates
}

// TotalWords returns the word count captured at setup.
func (t *Tracker) TotalWords() int { return t.totalWords }
