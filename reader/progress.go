package reader

import (
	"math"
	"strconv"
)

// Metrics is a snapshot of the scroll and layout values a browser exposes.
// Several fields describe the same quantity; browsers disagree on which
// one is populated, so the accessors take the largest.
type Metrics struct {
	PageYOffset       float64 `json:"pageYOffset"`
	DocumentScrollTop float64 `json:"documentScrollTop"`
	BodyScrollTop     float64 `json:"bodyScrollTop"`

	InnerHeight          float64 `json:"innerHeight"`
	VisualViewportHeight float64 `json:"visualViewportHeight,omitempty"`
	HasVisualViewport    bool    `json:"hasVisualViewport"`

	DocumentScrollHeight float64 `json:"documentScrollHeight"`
	BodyScrollHeight     float64 `json:"bodyScrollHeight"`
	DocumentOffsetHeight float64 `json:"documentOffsetHeight"`
	BodyOffsetHeight     float64 `json:"bodyOffsetHeight"`
}

// ScrollTop is the vertical scroll offset.
func (m Metrics) ScrollTop() float64 {
	return math.Max(0, math.Max(m.PageYOffset, math.Max(m.DocumentScrollTop, m.BodyScrollTop)))
}

// ViewportHeight prefers the visual viewport where one exists.
func (m Metrics) ViewportHeight() float64 {
	if m.HasVisualViewport {
		return m.VisualViewportHeight
	}
	return m.InnerHeight
}

// DocumentHeight is the full scrollable height of the page.
func (m Metrics) DocumentHeight() float64 {
	h := math.Max(m.DocumentScrollHeight, m.BodyScrollHeight)
	h = math.Max(h, m.DocumentOffsetHeight)
	return math.Max(0, math.Max(h, m.BodyOffsetHeight))
}

// MaxScroll is how far the page can scroll.
func (m Metrics) MaxScroll() float64 {
	return math.Max(0, m.DocumentHeight()-m.ViewportHeight())
}

// ComputeProgress returns the read percentage in [0, 100].
// A page that fits in the viewport counts as fully read.
func ComputeProgress(m Metrics) float64 {
	maxScroll := m.MaxScroll()
	if maxScroll <= 0 {
		return 100
	}
	p := m.ScrollTop() / maxScroll * 100
	return math.Min(100, math.Max(0, p))
}

// Snapshot is everything the progress display shows for one position.
type Snapshot struct {
	Progress         float64 `json:"progress"`
	FillWidth        string  `json:"fillWidth"`
	PercentLabel     string  `json:"percentLabel"`
	RemainingWords   int     `json:"remainingWords"`
	RemainingMinutes int     `json:"remainingMinutes"`
	RemainingLabel   string  `json:"remainingLabel"`
}

// roundHalfUp matches the rounding browsers use for display percentages.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

// ComputeSnapshot derives the display values for totalWords at metrics m.
func ComputeSnapshot(totalWords, wpm int, m Metrics) Snapshot {
	return SnapshotAt(totalWords, wpm, ComputeProgress(m))
}

// SnapshotAt derives the display values for a known progress percentage.
func SnapshotAt(totalWords, wpm int, progress float64) Snapshot {
	remainingWords := RemainingWords(totalWords, progress)
	remainingMinutes := RemainingMinutes(remainingWords, wpm)
	return Snapshot{
		Progress:         progress,
		FillWidth:        strconv.FormatFloat(progress, 'f', -1, 64) + "%",
		PercentLabel:     strconv.Itoa(roundHalfUp(progress)) + "% complete",
		RemainingWords:   remainingWords,
		RemainingMinutes: remainingMinutes,
		RemainingLabel:   RemainingLabel(remainingMinutes),
	}
}
