package server

import (
	"errors"
	"html/template"
	"io"
	"math"
	"net/http"
	neturl "net/url"
	"strconv"
	"strings"

	"lectern/reader"
)

const maxRenderBody = 2 << 20

var indexPage = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>Lectern</title></head>
<body>
<h1>Lectern</h1>
<form method="get" action="/read">
  <input type="url" name="url" placeholder="https://example.com/article" size="48" required>
  <button type="submit">Read</button>
</form>
<h2>Paste text</h2>
<form method="post" action="/render">
  <input type="text" name="title" placeholder="Title">
  <select name="format"><option value="markdown">Markdown</option><option value="html">HTML</option></select><br>
  <textarea name="body" rows="16" cols="72"></textarea><br>
  <button type="submit">Open in reader</button>
</form>
{{if .}}<h2>Bookmarks</h2>
<ul>{{range .}}<li><a href="/read?url={{.URL}}">{{.Title}}</a></li>{{end}}</ul>{{end}}
</body>
</html>
`))

func (s *Server) bookmarks() []Bookmark {
	out := make([]Bookmark, 0, len(s.cfg.Bookmarks))
	for _, bm := range s.cfg.Bookmarks {
		out = append(out, Bookmark{Title: bm.Title, URL: normalizeTargetURL(bm.URL)})
	}
	return out
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexPage.Execute(w, s.bookmarks()); err != nil {
		s.logger.Printf("INDEX render: %v", err)
	}
}

// handleRender turns posted Markdown or HTML into a cached article and
// redirects to its reader page.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRenderBody)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	src := r.PostFormValue("body")
	if strings.TrimSpace(src) == "" {
		http.Error(w, "missing body", http.StatusBadRequest)
		return
	}
	var content string
	var err error
	switch strings.ToLower(strings.TrimSpace(r.PostFormValue("format"))) {
	case "html":
		content, err = sanitizeFragment(src, s.logger)
	case "", "markdown", "md":
		content, err = markdownToHTML(src)
		if err == nil {
			content, err = sanitizeFragment(content, s.logger)
		}
	default:
		http.Error(w, "unknown format", http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	id := s.cache.Store(article{Title: strings.TrimSpace(r.PostFormValue("title")), Body: content})
	http.Redirect(w, r, "/doc/"+id, http.StatusSeeOther)
}

func (s *Server) handleDoc(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/doc/"), "/")
	if id == "" {
		http.NotFound(w, r)
		return
	}
	a, ok := s.cache.Get(id)
	if !ok {
		http.Error(w, "document expired or unknown", http.StatusNotFound)
		return
	}
	s.writeReaderPage(w, r, a, "/doc/"+id)
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if strings.TrimSpace(raw) == "" {
		http.Error(w, "missing url", http.StatusBadRequest)
		return
	}
	target := normalizeTargetURL(raw)
	u, err := neturl.Parse(target)
	if err != nil || u.Host == "" {
		http.Error(w, "invalid url", http.StatusBadRequest)
		return
	}
	a, ok := s.cache.Lookup(target)
	if !ok {
		a, err = s.fetchArticle(r.Context(), target)
		if err != nil {
			status := http.StatusBadGateway
			if errors.Is(err, errNoArticle) {
				status = http.StatusUnprocessableEntity
			}
			http.Error(w, err.Error(), status)
			return
		}
		a.ID = s.cache.Store(a)
	}
	s.writeReaderPage(w, r, a, "/read?url="+neturl.QueryEscape(target))
}

func (s *Server) writeReaderPage(w http.ResponseWriter, r *http.Request, a article, back string) {
	y := 0.0
	if v := strings.TrimSpace(r.URL.Query().Get("y")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 && !math.IsInf(f, 0) {
			y = f
		}
	}
	back = withScroll(back, y)
	pref := s.prefs.Get(deriveClientKey(r))
	page, err := s.renderReaderPage(a, pref, y, back)
	if err != nil {
		s.logger.Printf("PAGE %s: %v", back, err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Lectern-Words", strconv.Itoa(page.Summary.Words))
	if err := page.Doc.Render(w); err != nil {
		s.logger.Printf("PAGE write %s: %v", back, err)
	}
}

// withScroll adds the scroll offset to a local page path so preference
// changes return to the same place.
func withScroll(path string, y float64) string {
	if y <= 0 {
		return path
	}
	u, err := neturl.Parse(path)
	if err != nil {
		return path
	}
	q := u.Query()
	q.Set("y", strconv.FormatFloat(y, 'f', -1, 64))
	u.RawQuery = q.Encode()
	return u.String()
}

// safeBack accepts only local absolute paths as redirect targets.
func safeBack(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "/") || strings.HasPrefix(v, "//") || strings.HasPrefix(v, "/\\") {
		return "/"
	}
	return v
}

// handlePrefs updates the client's reader preferences and returns to the
// page it came from.
func (s *Server) handlePrefs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	action := strings.ToLower(strings.TrimSpace(r.FormValue("action")))
	font := strings.TrimSpace(r.FormValue("font"))
	delta := 0
	if font != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(font, "+"))
		if err != nil {
			http.Error(w, "invalid font step", http.StatusBadRequest)
			return
		}
		delta = clampInt(n, -1, 1)
	}
	if action != "" && action != "bionic" {
		http.Error(w, "unknown action", http.StatusBadRequest)
		return
	}
	pref := s.prefs.Update(deriveClientKey(r), func(p *readerPref) {
		if action == "bionic" {
			p.Bionic = !p.Bionic
		}
		if delta != 0 {
			p.FontSize = reader.StepFontSize(p.FontSize, delta)
		}
	})
	s.logger.Printf("PREFS bionic=%v font=%dpx", pref.Bionic, pref.FontSize)
	http.Redirect(w, r, safeBack(r.FormValue("back")), http.StatusSeeOther)
}

func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Connection", "close")
	io.WriteString(w, "pong\n")
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"cached":  s.cache.Len(),
		"browser": s.probe != nil,
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
