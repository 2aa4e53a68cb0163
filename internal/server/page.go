package server

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"math"
	"strings"

	"golang.org/x/net/html"

	"lectern/reader"
)

const idProgressBadge = "progress-badge"

var readerShell = template.Must(template.New("reader").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}} | Lectern</title>
<style>
body{margin:0;font-family:Georgia,serif;background:#f9fafb;color:#111827}
.bar{position:sticky;top:0;background:#fff;border-bottom:1px solid #e5e7eb;padding:8px 16px}
.track{height:6px;background:#e5e7eb;border-radius:3px;overflow:hidden}
#progress-fill{height:6px;background:#2563eb}
.stats{font:13px sans-serif;color:#374151;display:flex;gap:12px;flex-wrap:wrap;margin-top:6px}
.controls{display:flex;gap:8px;align-items:center;margin-top:6px}
.controls form{display:inline}
main{max-width:720px;margin:0 auto;padding:16px}
#reader-content{line-height:1.6}
.bionic-word .bionic{font-weight:700}
.bg-blue-600{background:#2563eb;color:#fff}.bg-green-600{background:#16a34a;color:#fff}
</style>
</head>
<body>
<div class="bar">
  <div class="track"><div id="progress-fill" style="width: 0%;"></div></div>
  <div class="stats">
    <span id="word-count">0 words</span>
    <span id="reading-time">~0 min read</span>
    <span id="time-remaining">~0 min remaining</span>
    <span id="progress-percent">0%</span>
  </div>
  <div class="controls">
    <form method="post" action="/prefs">
      <input type="hidden" name="action" value="bionic">
      <input type="hidden" name="back" value="{{.Back}}">
      <button id="bionic-toggle" type="submit" class="bg-blue-600 hover:bg-blue-700">Enable Bionic Reading</button>
    </form>
    <form method="post" action="/prefs">
      <input type="hidden" name="font" value="-1">
      <input type="hidden" name="back" value="{{.Back}}">
      <button type="submit">A-</button>
    </form>
    <form method="post" action="/prefs">
      <input type="hidden" name="font" value="1">
      <input type="hidden" name="back" value="{{.Back}}">
      <button type="submit">A+</button>
    </form>
    <img id="progress-badge" alt="" width="{{.BadgeWidth}}" height="16">
  </div>
</div>
<main>
  <h1>{{.Title}}</h1>
  {{if .Source}}<p><a href="{{.Source}}" rel="noopener">{{.Source}}</a></p>{{end}}
  <div id="reader-content"></div>
</main>
</body>
</html>
`))

type shellView struct {
	Title      string
	Source     string
	Back       string
	BadgeWidth int
}

// Layout constants for the server-side height estimate.
const (
	chromeHeight   = 220.0
	lineHeight     = 1.6
	avgGlyphFactor = 0.5
	contentPadding = 32.0
)

// estimateDocumentHeight approximates the rendered page height from the
// amount of text, the font size and the column width.
func estimateDocumentHeight(chars, fontSize, width int) float64 {
	if fontSize <= 0 {
		fontSize = reader.DefaultFontSize
	}
	column := math.Min(float64(width), 720) - contentPadding
	if column < 100 {
		column = 100
	}
	perLine := math.Max(1, math.Floor(column/(float64(fontSize)*avgGlyphFactor)))
	lines := math.Ceil(float64(chars) / perLine)
	return chromeHeight + lines*float64(fontSize)*lineHeight
}

type renderedPage struct {
	Doc      *reader.Document
	Summary  reader.Summary
	Snapshot reader.Snapshot
}

// renderReaderPage wraps an article in the reader shell and runs the
// controller over it with the client's preferences, as the browser
// would on load, scrolled to scrollY.
func (s *Server) renderReaderPage(a article, pref readerPref, scrollY float64, back string) (*renderedPage, error) {
	var buf bytes.Buffer
	view := shellView{
		Title:      firstNonEmpty(strings.TrimSpace(a.Title), "Untitled"),
		Source:     a.Source,
		Back:       back,
		BadgeWidth: defaultBadgeWidth,
	}
	if err := readerShell.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("render shell: %w", err)
	}
	doc, err := reader.ParseString(buf.String())
	if err != nil {
		return nil, fmt.Errorf("parse shell: %w", err)
	}

	var fragErr error
	chars := 0
	doc.Mutate(func(root *html.Node) {
		content := reader.FindByID(root, reader.IDContent)
		if content == nil {
			fragErr = reader.ErrMissingElement
			return
		}
		nodes, err := html.ParseFragment(strings.NewReader(a.Body), content)
		if err != nil {
			fragErr = err
			return
		}
		for _, n := range nodes {
			content.AppendChild(n)
		}
		chars = len([]rune(reader.TextContent(content)))
	})
	if fragErr != nil {
		return nil, fmt.Errorf("insert article: %w", fragErr)
	}

	fontSize := reader.StepFontSize(pref.FontSize, 0)
	win := reader.NewWindow(float64(s.cfg.ViewportHeight), estimateDocumentHeight(chars, fontSize, s.cfg.ViewportWidth))
	win.ScrollTo(scrollY)
	ctrl := reader.NewController(doc, win,
		reader.WithLogger(s.logger),
		reader.WithFontSize(fontSize),
		reader.WithReadingSpeed(s.cfg.ReadingSpeed),
	)
	defer ctrl.Close()

	if pref.Bionic {
		if _, err := ctrl.SetBionic(true); err != nil {
			s.logger.Printf("PAGE bionic: %v", err)
		}
	}
	out := &renderedPage{Doc: doc}
	sum, err := ctrl.InitializeReadingProgress()
	switch {
	case errors.Is(err, reader.ErrNoContent):
		s.logger.Printf("PAGE %q has no words", view.Title)
	case err != nil:
		return nil, err
	}
	out.Summary = sum
	if tr := ctrl.Tracker(); tr != nil {
		out.Snapshot = tr.Last()
	}
	doc.Mutate(func(root *html.Node) {
		if img := reader.FindByID(root, idProgressBadge); img != nil {
			reader.SetAttr(img, "src", fmt.Sprintf("/progress.png?p=%s&w=%d", strings.TrimSuffix(out.Snapshot.FillWidth, "%"), defaultBadgeWidth))
		}
	})
	return out, nil
}
