package reader

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestComputeProgressBoundaries(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		m    Metrics
		want float64
	}{
		{"top", Metrics{InnerHeight: 800, DocumentScrollHeight: 2800}, 0},
		{"bottom", Metrics{PageYOffset: 2000, InnerHeight: 800, DocumentScrollHeight: 2800}, 100},
		{"middle", Metrics{PageYOffset: 500, InnerHeight: 800, DocumentScrollHeight: 2800}, 25},
		{"fits", Metrics{PageYOffset: 300, InnerHeight: 800, DocumentScrollHeight: 600}, 100},
		{"exact fit", Metrics{InnerHeight: 800, DocumentScrollHeight: 800}, 100},
		{"empty", Metrics{}, 100},
		{"overscroll", Metrics{PageYOffset: 2600, InnerHeight: 800, DocumentScrollHeight: 2800}, 100},
		{"negative bounce", Metrics{PageYOffset: -40, InnerHeight: 800, DocumentScrollHeight: 2800}, 0},
		{"body fallback", Metrics{BodyScrollTop: 1000, InnerHeight: 800, BodyScrollHeight: 2800}, 50},
		{"visual viewport", Metrics{PageYOffset: 1000, InnerHeight: 800, HasVisualViewport: true, VisualViewportHeight: 600, DocumentOffsetHeight: 2600}, 50},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := ComputeProgress(tc.m); got != tc.want {
				t.Fatalf("ComputeProgress = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMetricsFallbacks(t *testing.T) {
	t.Parallel()
	m := Metrics{
		PageYOffset:          0,
		DocumentScrollTop:    120,
		BodyScrollTop:        80,
		InnerHeight:          700,
		DocumentScrollHeight: 1500,
		BodyScrollHeight:     1600,
		DocumentOffsetHeight: 1400,
		BodyOffsetHeight:     1550,
	}
	if got := m.ScrollTop(); got != 120 {
		t.Fatalf("ScrollTop = %v", got)
	}
	if got := m.DocumentHeight(); got != 1600 {
		t.Fatalf("DocumentHeight = %v", got)
	}
	if got := m.ViewportHeight(); got != 700 {
		t.Fatalf("ViewportHeight = %v", got)
	}
	if got := m.MaxScroll(); got != 900 {
		t.Fatalf("MaxScroll = %v", got)
	}
}

func TestSnapshotAt(t *testing.T) {
	t.Parallel()
	got := SnapshotAt(1000, ReadingSpeed, 0)
	want := Snapshot{
		Progress:         0,
		FillWidth:        "0%",
		PercentLabel:     "0% complete",
		RemainingWords:   1000,
		RemainingMinutes: 5,
		RemainingLabel:   "~5 min remaining",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}

	done := SnapshotAt(1000, ReadingSpeed, 100)
	if done.RemainingLabel != LabelComplete || done.PercentLabel != "100% complete" || done.FillWidth != "100%" {
		t.Fatalf("unexpected final snapshot: %+v", done)
	}

	third := SnapshotAt(300, ReadingSpeed, 100.0/3)
	if third.FillWidth != "33.333333333333336%" {
		t.Fatalf("fill width = %q", third.FillWidth)
	}
	if third.PercentLabel != "33% complete" {
		t.Fatalf("percent label = %q", third.PercentLabel)
	}
	if half := SnapshotAt(300, ReadingSpeed, 50); half.RemainingWords != 150 || half.RemainingMinutes != 1 {
		t.Fatalf("remaining = %d words / %d min", half.RemainingWords, half.RemainingMinutes)
	}

	if half := SnapshotAt(10, ReadingSpeed, 12.5); half.PercentLabel != "13% complete" {
		t.Fatalf("rounding should go half up, got %q", half.PercentLabel)
	}
}
