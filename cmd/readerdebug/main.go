package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/yuin/goldmark"
	"golang.org/x/net/html"

	"lectern/reader"
)

const shell = `<!DOCTYPE html><html><body>
<div id="progress-fill"></div><span id="progress-percent"></span>
<span id="word-count"></span><span id="reading-time"></span><span id="time-remaining"></span>
<button id="bionic-toggle"></button>
<div id="reader-content"></div>
</body></html>`

func main() {
	bionic := flag.Bool("bionic", false, "apply bionic styling and print the resulting content HTML")
	viewport := flag.Float64("viewport", 800, "simulated viewport height in px")
	document := flag.Float64("document", 0, "simulated document height in px (0: three viewports)")
	steps := flag.Int("steps", 4, "number of scroll checkpoints")
	selector := flag.String("selector", "article, main, [role=main], body", "content selector, tried in order")
	wpm := flag.Int("wpm", reader.ReadingSpeed, "reading speed in words per minute")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: readerdebug [flags] <file|url>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	src := flag.Arg(0)
	data, err := load(src)
	if err != nil {
		log.Fatal(err)
	}
	if strings.HasSuffix(strings.ToLower(src), ".md") {
		var buf bytes.Buffer
		if err := goldmark.Convert(data, &buf); err != nil {
			log.Fatal(err)
		}
		data = []byte("<html><body>" + buf.String() + "</body></html>")
	}

	page, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		log.Fatal(err)
	}
	container, err := reader.QueryPreferred(page, *selector)
	if err != nil {
		log.Fatalf("selector %q: %v", *selector, err)
	}
	if container == nil {
		log.Fatalf("no element matches %q", *selector)
	}

	doc, err := reader.ParseString(shell)
	if err != nil {
		log.Fatal(err)
	}
	doc.Mutate(func(root *html.Node) {
		content := reader.FindByID(root, reader.IDContent)
		for c := container.FirstChild; c != nil; {
			next := c.NextSibling
			container.RemoveChild(c)
			content.AppendChild(c)
			c = next
		}
	})

	docHeight := *document
	if docHeight <= 0 {
		docHeight = *viewport * 3
	}
	win := reader.NewWindow(*viewport, docHeight)
	sched := reader.NewManualScheduler()
	ctrl := reader.NewController(doc, win,
		reader.WithScheduler(sched),
		reader.WithReadingSpeed(*wpm),
		reader.WithLogger(log.New(io.Discard, "", 0)),
	)
	defer ctrl.Close()

	if *bionic {
		if _, err := ctrl.SetBionic(true); err != nil {
			log.Fatal(err)
		}
	}
	sum, err := ctrl.InitializeReadingProgress()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%s, %s at %d wpm\n", reader.WordCountLabel(sum.Words), reader.ReadingTimeLabel(sum.Minutes), sum.ReadingSpeed)

	sched.Advance(reader.SettleDelay)
	maxScroll := win.Metrics().MaxScroll()
	n := *steps
	if n < 1 {
		n = 1
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCROLL\tPROGRESS\tFILL\tREMAINING")
	for i := 0; i <= n; i++ {
		win.ScrollTo(maxScroll * float64(i) / float64(n))
		sched.Flush()
		snap := ctrl.Tracker().Last()
		fmt.Fprintf(tw, "%.0f\t%s\t%s\t%s\n", win.Metrics().ScrollTop(), snap.PercentLabel, snap.FillWidth, snap.RemainingLabel)
	}
	tw.Flush()

	if *bionic {
		doc.Mutate(func(root *html.Node) {
			content := reader.FindByID(root, reader.IDContent)
			for c := content.FirstChild; c != nil; c = c.NextSibling {
				_ = html.Render(os.Stdout, c)
			}
		})
		fmt.Println()
	}
}

func load(src string) ([]byte, error) {
	lower := strings.ToLower(src)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return os.ReadFile(src)
	}
	log.Printf("fetch %s", src)
	req, err := http.NewRequest(http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "readerdebug/1.0")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("fetch %s: status %d", src, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
