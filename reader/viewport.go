package reader

import (
	"math"
	"sync"
)

// EventType names a viewport event.
type EventType string

const (
	EventScroll            EventType = "scroll"
	EventResize            EventType = "resize"
	EventOrientationChange EventType = "orientationchange"
)

// ListenerID identifies a registered listener so it can be removed later.
type ListenerID uint64

type listener struct {
	id ListenerID
	fn func()
}

// EventTarget is a registry of listeners keyed by event type.
// It is safe for concurrent use; listeners run outside the lock and may
// add or remove listeners themselves.
type EventTarget struct {
	mu        sync.Mutex
	next      ListenerID
	listeners map[EventType][]listener
}

// NewEventTarget returns an empty target.
func NewEventTarget() *EventTarget {
	return &EventTarget{listeners: make(map[EventType][]listener)}
}

// AddEventListener registers fn for typ and returns its handle.
func (t *EventTarget) AddEventListener(typ EventType, fn func()) ListenerID {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	t.listeners[typ] = append(t.listeners[typ], listener{id: t.next, fn: fn})
	return t.next
}

// RemoveEventListener unregisters a listener. It reports whether id was known.
func (t *EventTarget) RemoveEventListener(id ListenerID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for typ, ls := range t.listeners {
		for i, l := range ls {
			if l.id != id {
				continue
			}
			t.listeners[typ] = append(ls[:i:i], ls[i+1:]...)
			if len(t.listeners[typ]) == 0 {
				delete(t.listeners, typ)
			}
			return true
		}
	}
	return false
}

// Dispatch calls every listener registered for typ and returns how many ran.
func (t *EventTarget) Dispatch(typ EventType) int {
	t.mu.Lock()
	ls := append([]listener(nil), t.listeners[typ]...)
	t.mu.Unlock()
	for _, l := range ls {
		l.fn()
	}
	return len(ls)
}

// ListenerCount returns the number of registered listeners of any type.
func (t *EventTarget) ListenerCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, ls := range t.listeners {
		n += len(ls)
	}
	return n
}

// Viewport is the window the tracker observes.
type Viewport interface {
	Metrics() Metrics
	Events() *EventTarget
	// VisualViewport returns nil when the client has no visual viewport.
	VisualViewport() *EventTarget
	SupportsOrientation() bool
}

// Window is an in-memory Viewport driven by explicit scroll and resize calls.
type Window struct {
	mu          sync.RWMutex
	metrics     Metrics
	events      *EventTarget
	visual      *EventTarget
	orientation bool
}

// WindowOption configures a Window.
type WindowOption func(*Window)

// WithVisualViewport gives the window a visual viewport that tracks its height.
func WithVisualViewport() WindowOption {
	return func(w *Window) {
		w.visual = NewEventTarget()
		w.metrics.HasVisualViewport = true
		w.metrics.VisualViewportHeight = w.metrics.InnerHeight
	}
}

// WithOrientation marks the window as able to rotate.
func WithOrientation() WindowOption {
	return func(w *Window) { w.orientation = true }
}

// NewWindow returns a window scrolled to the top.
func NewWindow(viewportHeight, documentHeight float64, opts ...WindowOption) *Window {
	w := &Window{
		events: NewEventTarget(),
		metrics: Metrics{
			InnerHeight:          viewportHeight,
			DocumentScrollHeight: documentHeight,
			DocumentOffsetHeight: documentHeight,
		},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// NewWindowFromMetrics returns a window with fixed starting metrics.
func NewWindowFromMetrics(m Metrics, opts ...WindowOption) *Window {
	w := &Window{events: NewEventTarget(), metrics: m}
	for _, opt := range opts {
		opt(w)
	}
	if w.visual == nil && m.HasVisualViewport {
		w.visual = NewEventTarget()
	}
	return w
}

func (w *Window) Metrics() Metrics {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.metrics
}

func (w *Window) Events() *EventTarget { return w.events }

func (w *Window) VisualViewport() *EventTarget { return w.visual }

func (w *Window) SupportsOrientation() bool { return w.orientation }

// ScrollTo moves the scroll offset, clamped to the scrollable range, and
// fires a scroll event.
func (w *Window) ScrollTo(y float64) {
	w.mu.Lock()
	y = math.Min(math.Max(0, y), w.metrics.MaxScroll())
	w.metrics.PageYOffset = y
	w.metrics.DocumentScrollTop = y
	w.mu.Unlock()
	w.events.Dispatch(EventScroll)
}

// ScrollBy moves the scroll offset relative to the current one.
func (w *Window) ScrollBy(dy float64) {
	w.ScrollTo(w.Metrics().ScrollTop() + dy)
}

// PanVisualViewport fires a scroll event on the visual viewport only, as
// happens when a zoomed page is panned.
func (w *Window) PanVisualViewport() {
	if w.visual != nil {
		w.visual.Dispatch(EventScroll)
	}
}

func (w *Window) setHeightLocked(h float64) {
	w.metrics.InnerHeight = h
	if w.metrics.HasVisualViewport {
		w.metrics.VisualViewportHeight = h
	}
}

// Resize changes the viewport height and fires resize events.
func (w *Window) Resize(viewportHeight float64) {
	w.mu.Lock()
	w.setHeightLocked(viewportHeight)
	w.mu.Unlock()
	w.events.Dispatch(EventResize)
	if w.visual != nil {
		w.visual.Dispatch(EventResize)
	}
}

// Rotate changes the viewport height and, where supported, fires an
// orientation change before the resize.
func (w *Window) Rotate(viewportHeight float64) {
	w.mu.Lock()
	w.setHeightLocked(viewportHeight)
	w.mu.Unlock()
	if w.orientation {
		w.events.Dispatch(EventOrientationChange)
	}
	w.events.Dispatch(EventResize)
	if w.visual != nil {
		w.visual.Dispatch(EventResize)
	}
}

// SetDocumentHeight changes the content height without firing events,
// the way a late image load reflows a page.
func (w *Window) SetDocumentHeight(h float64) {
	w.mu.Lock()
	w.metrics.DocumentScrollHeight = h
	w.metrics.DocumentOffsetHeight = h
	w.mu.Unlock()
}
