package server

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	neturl "net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"lectern/reader"
)

const (
	defaultArticleSelector = "article, main, [role=main], body"
	defaultStripSelector   = "script, style, noscript, iframe, frame, object, embed, nav, header, footer, aside, form, button, input, select, textarea, link, meta"
	defaultUserAgent       = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120 Safari/537.36 Lectern"
	maxUpstreamBytes       = 8 << 20
)

var errNoArticle = errors.New("no readable content found")

// normalizeTargetURL turns user input into an absolute http(s) URL.
func normalizeTargetURL(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "http%3a") || strings.HasPrefix(lower, "https%3a") {
		if dec, err := neturl.QueryUnescape(s); err == nil {
			s = dec
			lower = strings.ToLower(s)
		}
	}
	if strings.HasPrefix(s, "//") {
		return "https:" + s
	}
	if !(strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")) {
		s = "http://" + s
	}
	return s
}

// resolveLink makes ref absolute against base. Fragments and
// already-absolute links are returned unchanged.
func resolveLink(base *neturl.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") || base == nil {
		return ref
	}
	u, err := neturl.Parse(ref)
	if err != nil {
		return ref
	}
	if u.IsAbs() {
		return u.String()
	}
	return base.ResolveReference(u).String()
}

func (s *Server) fetchArticle(ctx context.Context, target string) (article, error) {
	site := s.sites.Find(target)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return article{}, err
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en,*;q=0.5")
	req.Header.Set("Accept-Encoding", "gzip")
	if site != nil {
		for k, v := range site.Headers {
			req.Header.Set(k, v)
		}
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return article{}, fmt.Errorf("fetch %s: %w", target, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return article{}, fmt.Errorf("fetch %s: upstream status %d", target, resp.StatusCode)
	}
	// net/http only decodes transparently when it set Accept-Encoding itself.
	var body io.Reader = resp.Body
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gr, gerr := gzip.NewReader(resp.Body)
		if gerr != nil {
			return article{}, fmt.Errorf("fetch %s: %w", target, gerr)
		}
		defer gr.Close()
		body = gr
	case "deflate":
		if zr, zerr := zlib.NewReader(resp.Body); zerr == nil {
			defer zr.Close()
			body = zr
		} else {
			fr := flate.NewReader(resp.Body)
			defer fr.Close()
			body = fr
		}
	}
	data, err := io.ReadAll(io.LimitReader(body, maxUpstreamBytes))
	if err != nil {
		return article{}, fmt.Errorf("fetch %s: %w", target, err)
	}
	base := resp.Request.URL
	if base == nil {
		base, _ = neturl.Parse(target)
	}
	title, content, err := extractArticle(bytes.NewReader(data), base, site, s.logger)
	if err != nil {
		return article{}, fmt.Errorf("extract %s: %w", target, err)
	}
	s.logger.Printf("FETCH %s status=%d bytes=%d title=%q", target, resp.StatusCode, len(data), title)
	return article{Title: title, Source: target, Body: content}, nil
}

// extractArticle parses a full page and returns its title and the
// cleaned markup of the article container.
func extractArticle(r io.Reader, base *neturl.URL, site *SiteConfig, logger *log.Logger) (string, string, error) {
	root, err := html.Parse(r)
	if err != nil {
		return "", "", err
	}
	title := ""
	if n, _ := reader.Query(root, "title"); n != nil {
		title = strings.TrimSpace(reader.TextContent(n))
	}
	if title == "" {
		if n, _ := reader.Query(root, "h1"); n != nil {
			title = strings.TrimSpace(reader.TextContent(n))
		}
	}
	selector := site.articleSelector()
	container, err := reader.QueryPreferred(root, selector)
	if err != nil {
		return "", "", fmt.Errorf("selector %q: %w", selector, err)
	}
	if container == nil {
		return title, "", errNoArticle
	}
	sanitize(container, base, logger, site.removeSelectors()...)
	content := innerHTML(container)
	if strings.TrimSpace(reader.TextContent(container)) == "" {
		return title, "", errNoArticle
	}
	return title, content, nil
}

// sanitizeFragment cleans user-supplied HTML for the reader container.
func sanitizeFragment(src string, logger *log.Logger) (string, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(src), ctx)
	if err != nil {
		return "", err
	}
	for _, n := range nodes {
		ctx.AppendChild(n)
	}
	sanitize(ctx, nil, logger)
	return innerHTML(ctx), nil
}

// sanitize removes non-content elements, event handler attributes and
// script URLs below n, and resolves links against base. Selectors that
// fail to parse are logged and skipped.
func sanitize(n *html.Node, base *neturl.URL, logger *log.Logger, extra ...string) {
	selectors := append([]string{defaultStripSelector}, extra...)
	for _, sel := range selectors {
		sel = strings.TrimSpace(sel)
		if sel == "" {
			continue
		}
		nodes, err := reader.QueryAll(n, sel)
		if err != nil {
			if logger != nil {
				logger.Printf("SANITIZE skip selector %q: %v", sel, err)
			}
			continue
		}
		for _, el := range nodes {
			if el.Parent != nil {
				el.Parent.RemoveChild(el)
			}
		}
	}
	var visit func(*html.Node)
	visit = func(cur *html.Node) {
		for c := cur.FirstChild; c != nil; {
			next := c.NextSibling
			if c.Type == html.CommentNode {
				cur.RemoveChild(c)
				c = next
				continue
			}
			if c.Type == html.ElementNode {
				cleanAttrs(c, base)
				visit(c)
			}
			c = next
		}
	}
	visit(n)
}

func cleanAttrs(n *html.Node, base *neturl.URL) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		key := strings.ToLower(a.Key)
		if strings.HasPrefix(key, "on") || key == "style" || key == "id" {
			continue
		}
		if key == "href" || key == "src" {
			v := strings.TrimSpace(a.Val)
			if strings.HasPrefix(strings.ToLower(v), "javascript:") {
				continue
			}
			a.Val = resolveLink(base, v)
		}
		out = append(out, a)
	}
	n.Attr = out
}

func innerHTML(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}
