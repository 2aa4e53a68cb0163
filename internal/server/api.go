package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	neturl "net/url"
	"strconv"
	"strings"

	"lectern/reader"
)

type statsResponse struct {
	reader.Summary
	WordCountLabel   string `json:"wordCountLabel"`
	ReadingTimeLabel string `json:"readingTimeLabel"`
}

// writeJSON encodes v before writing the status, so encode failures
// still turn into a 500.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		s.logger.Printf("JSON encode %T: %v", v, err)
		http.Error(w, "encode failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.Printf("JSON write: %v", err)
	}
}

func (s *Server) readingSpeed(r *http.Request) int {
	if v := strings.TrimSpace(r.URL.Query().Get("wpm")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	if s.cfg.ReadingSpeed > 0 {
		return s.cfg.ReadingSpeed
	}
	return reader.ReadingSpeed
}

// handleStats counts words in ?text= or in the request body.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	if r.Method == http.MethodPost {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxRenderBody))
		r.Body.Close()
		if err != nil {
			http.Error(w, "read body", http.StatusBadRequest)
			return
		}
		text = string(body)
		if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
			if vals, err := neturl.ParseQuery(text); err == nil {
				text = vals.Get("text")
			}
		}
	}
	wpm := s.readingSpeed(r)
	words := reader.CountWords(text)
	minutes := 0
	if words > 0 {
		minutes = reader.ReadingMinutes(words, wpm)
	}
	s.writeJSON(w, http.StatusOK, statsResponse{
		Summary:          reader.Summary{Words: words, Minutes: minutes, ReadingSpeed: wpm},
		WordCountLabel:   reader.WordCountLabel(words),
		ReadingTimeLabel: reader.ReadingTimeLabel(minutes),
	})
}

func queryFloat(q neturl.Values, key string) (float64, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return f, nil
}

// handleProgress computes a snapshot from client-reported scroll metrics.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var m reader.Metrics
	var err error
	if m.PageYOffset, err = queryFloat(q, "top"); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if m.InnerHeight, err = queryFloat(q, "viewport"); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if m.DocumentScrollHeight, err = queryFloat(q, "document"); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	words := 0
	if v := strings.TrimSpace(q.Get("words")); v != "" {
		if words, err = strconv.Atoi(v); err != nil || words < 0 {
			http.Error(w, "invalid words", http.StatusBadRequest)
			return
		}
	}
	s.writeJSON(w, http.StatusOK, reader.ComputeSnapshot(words, s.readingSpeed(r), m))
}

// handleProgressImage serves the progress bar as a PNG.
func (s *Server) handleProgressImage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p, err := queryFloat(q, "p")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	opt := badgeOptions{Width: defaultBadgeWidth, Height: defaultBadgeHeight, Fill: progressBlue}
	if v := strings.TrimSpace(q.Get("w")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opt.Width = n
		}
	}
	if v := strings.TrimSpace(q.Get("h")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opt.Height = n
		}
	}
	if v := q.Get("color"); v != "" {
		c, ok := parseCSSColor(v)
		if !ok {
			http.Error(w, "invalid color", http.StatusBadRequest)
			return
		}
		opt.Fill = c
	}
	snap := reader.SnapshotAt(0, 0, math.Max(0, math.Min(100, p)))
	opt.Progress = snap.Progress
	opt.Label = snap.PercentLabel
	data, err := encodeBadge(drawProgressBadge(opt))
	if err != nil {
		http.Error(w, "encode failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

func serverBase(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// measureTarget maps the url parameter to a reader page on this server.
// Local paths are used as is; anything else is read through /read.
func measureTarget(r *http.Request, raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") {
		return serverBase(r) + raw
	}
	return serverBase(r) + "/read?url=" + neturl.QueryEscape(normalizeTargetURL(raw))
}

// handleMeasure samples real layout progress in headless Chrome.
func (s *Server) handleMeasure(w http.ResponseWriter, r *http.Request) {
	if s.probe == nil {
		http.Error(w, errProbeDisabled.Error(), http.StatusNotImplemented)
		return
	}
	q := r.URL.Query()
	raw := q.Get("url")
	if strings.TrimSpace(raw) == "" {
		http.Error(w, "missing url", http.StatusBadRequest)
		return
	}
	width, height, steps := s.cfg.ViewportWidth, s.cfg.ViewportHeight, defaultProbeSteps
	if v, err := strconv.Atoi(q.Get("w")); err == nil && v > 0 {
		width = v
	}
	if v, err := strconv.Atoi(q.Get("h")); err == nil && v > 0 {
		height = v
	}
	if v, err := strconv.Atoi(q.Get("steps")); err == nil && v > 0 {
		steps = v
	}
	res, err := s.probe.Measure(r.Context(), measureTarget(r, raw), width, height, steps, s.readingSpeed(r))
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, errProbeDisabled) {
			status = http.StatusNotImplemented
		}
		http.Error(w, err.Error(), status)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}
