package reader

import (
	"errors"
	"testing"
)

const trackerPage = `<html><body>
<div id="progress-fill"></div><span id="progress-percent"></span><span id="time-remaining"></span>
<div id="reader-content">one two three four</div>
</body></html>`

func newTestTracker(t *testing.T, src string, win *Window) (*Tracker, *Document, *ManualScheduler) {
	t.Helper()
	doc, err := ParseString(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	sched := NewManualScheduler()
	tr := NewTracker(TrackerOptions{
		Document:   doc,
		Viewport:   win,
		Scheduler:  sched,
		Logger:     quietLogger,
		TotalWords: 400,
	})
	return tr, doc, sched
}

func TestTrackerRequiresProgressBar(t *testing.T) {
	t.Parallel()
	win := NewWindow(500, 1500)
	tr, _, _ := newTestTracker(t, `<div id="reader-content">words here</div>`, win)
	if err := tr.Start(); !errors.Is(err, ErrMissingElement) {
		t.Fatalf("Start err = %v", err)
	}
	if tr.Active() || win.Events().ListenerCount() != 0 {
		t.Fatalf("listeners installed without a progress bar")
	}
}

func TestTrackerLifecycle(t *testing.T) {
	t.Parallel()
	win := NewWindow(500, 1500, WithVisualViewport(), WithOrientation())
	tr, doc, sched := newTestTracker(t, trackerPage, win)
	if err := tr.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := doc.Style(IDProgressFill, "width"); got != "0%" {
		t.Fatalf("initial width = %q", got)
	}
	if got := win.Events().ListenerCount(); got != 3 {
		t.Fatalf("window listeners = %d, want 3", got)
	}
	if got := win.VisualViewport().ListenerCount(); got != 2 {
		t.Fatalf("visual viewport listeners = %d, want 2", got)
	}
	if err := tr.Start(); err != nil || win.Events().ListenerCount() != 3 {
		t.Fatalf("second Start should be a no-op")
	}

	win.ScrollTo(1000)
	sched.Flush()
	if got, _ := doc.Text(IDProgressPercent); got != "100% complete" {
		t.Fatalf("percent = %q", got)
	}
	if got, _ := doc.Text(IDTimeRemaining); got != LabelComplete {
		t.Fatalf("remaining = %q", got)
	}
	if tr.TotalWords() != 400 {
		t.Fatalf("TotalWords = %d", tr.TotalWords())
	}

	tr.Stop()
	if tr.Active() || win.Events().ListenerCount() != 0 || win.VisualViewport().ListenerCount() != 0 {
		t.Fatalf("Stop left listeners behind")
	}
	if sched.PendingTimers() != 0 {
		t.Fatalf("Stop left %d timers", sched.PendingTimers())
	}
	before := tr.Updates()
	win.ScrollTo(0)
	sched.Flush()
	sched.Advance(SettleDelay)
	if tr.Updates() != before {
		t.Fatalf("stopped tracker kept updating")
	}
}
