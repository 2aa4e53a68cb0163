package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCheckpointOffsets(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		maxScroll float64
		steps     int
		want      []float64
	}{
		{"fits viewport", 0, 4, []float64{0}},
		{"four steps", 400, 4, []float64{0, 100, 200, 300, 400}},
		{"zero steps", 100, 0, []float64{0, 100}},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if diff := cmp.Diff(tc.want, checkpointOffsets(tc.maxScroll, tc.steps)); diff != "" {
				t.Fatalf("checkpointOffsets mismatch (-want +got):\n%s", diff)
			}
		})
	}
	if n := len(checkpointOffsets(1000, 500)); n != maxProbeSteps+1 {
		t.Fatalf("steps not capped, got %d offsets", n)
	}
}

func TestMeasureWithoutBrowser(t *testing.T) {
	t.Parallel()
	var p *layoutProbe
	if _, err := p.Measure(context.Background(), "http://x", 100, 100, 2, 200); !errors.Is(err, errProbeDisabled) {
		t.Fatalf("nil probe err = %v", err)
	}
	p.Close()

	s := newTestServer(t)
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/measure?url=/doc/x", nil))
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("measure status %d", rec.Code)
	}
}

func TestMeasureTarget(t *testing.T) {
	t.Parallel()
	r := httptest.NewRequest(http.MethodGet, "http://lectern.local/api/measure", nil)
	if got := measureTarget(r, "/doc/abc"); got != "http://lectern.local/doc/abc" {
		t.Fatalf("local target = %q", got)
	}
	if got := measureTarget(r, "example.com/a"); got != "http://lectern.local/read?url=http%3A%2F%2Fexample.com%2Fa" {
		t.Fatalf("remote target = %q", got)
	}
	r.Header.Set("X-Forwarded-Proto", "https")
	if got := measureTarget(r, "//evil/x"); got != "https://lectern.local/read?url=https%3A%2F%2Fevil%2Fx" {
		t.Fatalf("protocol-relative target = %q", got)
	}
}
