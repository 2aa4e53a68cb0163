package reader

import (
	"fmt"
	"log"
	"strconv"
	"sync"

	"golang.org/x/net/html"
)

// Font size limits in CSS pixels.
const (
	DefaultFontSize = 18
	MinFontSize     = 12
	MaxFontSize     = 28
	FontSizeStep    = 2
)

// Labels of the bionic toggle button.
const (
	LabelEnableBionic  = "Enable Bionic Reading"
	LabelDisableBionic = "Disable Bionic Reading"
)

var (
	bionicOffClasses = []string{"bg-blue-600", "hover:bg-blue-700"}
	bionicOnClasses  = []string{"bg-green-600", "hover:bg-green-700"}
)

// Summary describes the content found by InitializeReadingProgress.
type Summary struct {
	Words        int `json:"words"`
	Minutes      int `json:"minutes"`
	ReadingSpeed int `json:"readingSpeed"`
}

// Controller owns the reading state of one page: font size, whether
// bionic styling is on, and the active progress tracker.
type Controller struct {
	doc    *Document
	view   Viewport
	sched  Scheduler
	logger *log.Logger
	wpm    int

	mu       sync.Mutex
	fontSize int
	bionic   bool
	tracker  *Tracker
	autoDone bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the diagnostic logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithScheduler sets the frame and timer source for the tracker.
func WithScheduler(s Scheduler) Option {
	return func(c *Controller) {
		if s != nil {
			c.sched = s
		}
	}
}

// WithFontSize sets the starting font size, clamped to the allowed range.
func WithFontSize(px int) Option {
	return func(c *Controller) { c.fontSize = clampFontSize(px) }
}

// WithReadingSpeed overrides the words-per-minute estimate.
func WithReadingSpeed(wpm int) Option {
	return func(c *Controller) { c.wpm = speedOrDefault(wpm) }
}

// NewController binds a controller to a page and the viewport showing it.
func NewController(doc *Document, view Viewport, opts ...Option) *Controller {
	c := &Controller{
		doc:      doc,
		view:     view,
		logger:   log.Default(),
		wpm:      ReadingSpeed,
		fontSize: DefaultFontSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.sched == nil {
		c.sched = NewManualScheduler()
	}
	if c.view == nil {
		c.view = NewWindow(0, 0)
	}
	return c
}

// StepFontSize returns size moved by delta steps and clamped to the allowed range.
func StepFontSize(size, delta int) int {
	return clampFontSize(size + delta*FontSizeStep)
}

func clampFontSize(px int) int {
	if px < MinFontSize {
		return MinFontSize
	}
	if px > MaxFontSize {
		return MaxFontSize
	}
	return px
}

func fontSizeValue(px int) string {
	return strconv.Itoa(px) + "px"
}

// FontSize returns the current font size in pixels.
func (c *Controller) FontSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fontSize
}

// BionicEnabled reports whether bionic styling is applied.
func (c *Controller) BionicEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bionic
}

// Tracker returns the active tracker, or nil before initialization.
func (c *Controller) Tracker() *Tracker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracker
}

// ToggleBionic flips bionic styling and returns the new state. If the
// content container or the toggle button is missing nothing changes.
func (c *Controller) ToggleBionic() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setBionicLocked(!c.bionic)
}

// SetBionic moves to the requested state; it does nothing when already there.
func (c *Controller) SetBionic(on bool) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bionic == on {
		return on, nil
	}
	return c.setBionicLocked(on)
}

func (c *Controller) setBionicLocked(on bool) (bool, error) {
	found := false
	words := 0
	c.doc.Mutate(func(root *html.Node) {
		content := FindByID(root, IDContent)
		button := FindByID(root, IDBionicToggle)
		if content == nil || button == nil {
			return
		}
		found = true
		if on {
			words = ApplyBionic(content)
			SetTextContent(button, LabelDisableBionic)
			RemoveClass(button, bionicOffClasses...)
			AddClass(button, bionicOnClasses...)
		} else {
			words = RemoveBionic(content)
			SetTextContent(button, LabelEnableBionic)
			RemoveClass(button, bionicOnClasses...)
			AddClass(button, bionicOffClasses...)
		}
	})
	if !found {
		c.logger.Printf("BIONIC toggle elements not found")
		return c.bionic, fmt.Errorf("%w: #%s or #%s", ErrMissingElement, IDContent, IDBionicToggle)
	}
	c.bionic = on
	if on {
		c.logger.Printf("BIONIC enabled words=%d", words)
	} else {
		c.logger.Printf("BIONIC disabled words=%d", words)
	}
	return on, nil
}

// AdjustFontSize changes the font size by delta steps and returns the
// clamped result. The size is kept even when there is no container to
// apply it to.
func (c *Controller) AdjustFontSize(delta int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fontSize = StepFontSize(c.fontSize, delta)
	size := c.fontSize
	c.doc.Mutate(func(root *html.Node) {
		if content := FindByID(root, IDContent); content != nil {
			SetStyleProperty(content, "font-size", fontSizeValue(size))
			c.logger.Printf("FONT size %dpx", size)
		}
	})
	return size
}

// InitializeReadingProgress counts the words in the content container,
// fills in the reading estimates and (re)starts scroll tracking. A
// previous tracker is detached first.
func (c *Controller) InitializeReadingProgress() (Summary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initializeLocked()
}

func (c *Controller) initializeLocked() (Summary, error) {
	found := false
	words := 0
	c.doc.Mutate(func(root *html.Node) {
		if content := FindByID(root, IDContent); content != nil {
			found = true
			words = CountWords(TextContent(content))
		}
	})
	if !found {
		c.logger.Printf("PROGRESS reader content not found")
		return Summary{}, fmt.Errorf("%w: #%s", ErrMissingElement, IDContent)
	}
	if words == 0 {
		c.logger.Printf("PROGRESS no words found in content")
		return Summary{}, ErrNoContent
	}

	sum := Summary{Words: words, Minutes: ReadingMinutes(words, c.wpm), ReadingSpeed: c.wpm}
	size := c.fontSize
	c.doc.Mutate(func(root *html.Node) {
		if el := FindByID(root, IDWordCount); el != nil {
			SetTextContent(el, WordCountLabel(sum.Words))
		}
		if el := FindByID(root, IDReadingTime); el != nil {
			SetTextContent(el, ReadingTimeLabel(sum.Minutes))
		}
		if el := FindByID(root, IDTimeRemaining); el != nil {
			SetTextContent(el, RemainingLabel(sum.Minutes))
		}
		if content := FindByID(root, IDContent); content != nil {
			SetStyleProperty(content, "font-size", fontSizeValue(size))
		}
	})
	c.logger.Printf("PROGRESS initialized words=%d minutes=%d", sum.Words, sum.Minutes)

	if c.tracker != nil {
		c.tracker.Stop()
		c.tracker = nil
	}
	tr := NewTracker(TrackerOptions{
		Document:     c.doc,
		Viewport:     c.view,
		Scheduler:    c.sched,
		Logger:       c.logger,
		TotalWords:   sum.Words,
		ReadingSpeed: c.wpm,
	})
	if err := tr.Start(); err != nil {
		return sum, err
	}
	c.tracker = tr
	return sum, nil
}

// AutoInitialize is the page-ready hook. It initializes at most once and
// only when the content container is present; later calls report false.
func (c *Controller) AutoInitialize() (Summary, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.autoDone {
		return Summary{}, false, nil
	}
	present := false
	c.doc.Mutate(func(root *html.Node) {
		present = FindByID(root, IDContent) != nil
	})
	if !present {
		return Summary{}, false, nil
	}
	c.autoDone = true
	sum, err := c.initializeLocked()
	return sum, true, err
}

// Close detaches the active tracker.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tracker != nil {
		c.tracker.Stop()
		c.tracker = nil
	}
}
