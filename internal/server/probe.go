package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"

	"lectern/reader"
)

const (
	defaultProbeTimeout = 25 * time.Second
	defaultProbeSteps   = 4
	maxProbeSteps       = 20
)

var errProbeDisabled = errors.New("layout probe disabled")

// metricsScript mirrors the fields of reader.Metrics.
const metricsScript = `(() => {
  const d = document.documentElement, b = document.body, vv = window.visualViewport;
  return {
    pageYOffset: window.pageYOffset || 0,
    documentScrollTop: d ? d.scrollTop : 0,
    bodyScrollTop: b ? b.scrollTop : 0,
    innerHeight: window.innerHeight || 0,
    visualViewportHeight: vv ? vv.height : 0,
    hasVisualViewport: !!vv,
    documentScrollHeight: d ? d.scrollHeight : 0,
    bodyScrollHeight: b ? b.scrollHeight : 0,
    documentOffsetHeight: d ? d.offsetHeight : 0,
    bodyOffsetHeight: b ? b.offsetHeight : 0
  };
})()`

const contentTextScript = `(() => {
  const el = document.getElementById("reader-content");
  return el ? el.innerText : "";
})()`

// measurePoint is the progress seen with the page scrolled to ScrollTop.
type measurePoint struct {
	ScrollTop float64         `json:"scrollTop"`
	Metrics   reader.Metrics  `json:"metrics"`
	Snapshot  reader.Snapshot `json:"snapshot"`
}

type measureResult struct {
	URL         string         `json:"url"`
	Width       int            `json:"width"`
	Height      int            `json:"height"`
	Words       int            `json:"words"`
	Checkpoints []measurePoint `json:"checkpoints"`
}

// layoutProbe loads reader pages in headless Chrome and reads the real
// scroll metrics the progress tracker would see.
type layoutProbe struct {
	allocator context.Context
	cancel    context.CancelFunc
	logger    *log.Logger
	timeout   time.Duration
}

func newLayoutProbe(logger *log.Logger) *layoutProbe {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-extensions", true),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &layoutProbe{
		allocator: allocCtx,
		cancel:    cancel,
		logger:    logger,
		timeout:   defaultProbeTimeout,
	}
}

func (p *layoutProbe) Close() {
	if p != nil && p.cancel != nil {
		p.cancel()
	}
}

// checkpointOffsets spreads steps+1 scroll offsets evenly over [0, maxScroll].
func checkpointOffsets(maxScroll float64, steps int) []float64 {
	if maxScroll <= 0 {
		return []float64{0}
	}
	steps = clampInt(steps, 1, maxProbeSteps)
	out := make([]float64, 0, steps+1)
	for i := 0; i <= steps; i++ {
		out = append(out, maxScroll*float64(i)/float64(steps))
	}
	return out
}

// Measure loads target at the given device size and samples progress at
// evenly spaced scroll offsets.
func (p *layoutProbe) Measure(ctx context.Context, target string, width, height, steps, wpm int) (*measureResult, error) {
	if p == nil {
		return nil, errProbeDisabled
	}
	if strings.TrimSpace(target) == "" {
		return nil, fmt.Errorf("measure: empty target url")
	}
	taskCtx, cancelBrowser := chromedp.NewContext(p.allocator)
	defer cancelBrowser()

	if ctx != nil {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithCancel(taskCtx)
		go func() {
			select {
			case <-ctx.Done():
				cancel()
			case <-taskCtx.Done():
			}
		}()
		defer cancel()
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(taskCtx, p.timeout)
		defer cancel()
	}

	var text string
	var first reader.Metrics
	err := chromedp.Run(taskCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return emulation.SetDeviceMetricsOverride(int64(width), int64(height), 1, false).Do(ctx)
		}),
		chromedp.Navigate(target),
		chromedp.WaitReady("#"+reader.IDContent, chromedp.ByQuery),
		chromedp.Evaluate(contentTextScript, &text),
		chromedp.Evaluate(metricsScript, &first),
	)
	if err != nil {
		return nil, fmt.Errorf("measure %s: %w", target, err)
	}
	words := reader.CountWords(text)
	res := &measureResult{URL: target, Width: width, Height: height, Words: words}
	for _, y := range checkpointOffsets(first.MaxScroll(), steps) {
		var m reader.Metrics
		script := fmt.Sprintf("window.scrollTo(0, %d)", int(y))
		if err := chromedp.Run(taskCtx,
			chromedp.Evaluate(script, nil),
			chromedp.Evaluate(metricsScript, &m),
		); err != nil {
			return nil, fmt.Errorf("measure %s at %d: %w", target, int(y), err)
		}
		res.Checkpoints = append(res.Checkpoints, measurePoint{
			ScrollTop: y,
			Metrics:   m,
			Snapshot:  reader.ComputeSnapshot(words, wpm, m),
		})
	}
	p.logger.Printf("MEASURE %s %dx%d words=%d points=%d", target, width, height, words, len(res.Checkpoints))
	return res, nil
}
