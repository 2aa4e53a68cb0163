package reader

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"github.com/aymerick/douceur/parser"
	"golang.org/x/net/html"
)

// Element identifiers a reader page is expected to carry.
const (
	IDContent         = "reader-content"
	IDBionicToggle    = "bionic-toggle"
	IDWordCount       = "word-count"
	IDReadingTime     = "reading-time"
	IDTimeRemaining   = "time-remaining"
	IDProgressFill    = "progress-fill"
	IDProgressPercent = "progress-percent"
)

var (
	// ErrMissingElement is returned when a required element is absent from the page.
	ErrMissingElement = errors.New("reader: element not found")
	// ErrNoContent is returned when the content container holds no words.
	ErrNoContent = errors.New("reader: no words in content")
)

// Document is a parsed page shared by the styler and the tracker.
// All tree access goes through Mutate or Render so event callbacks
// running on other goroutines never observe a half-rewritten subtree.
type Document struct {
	mu   sync.Mutex
	root *html.Node
}

// NewDocument wraps an existing tree.
func NewDocument(root *html.Node) *Document {
	return &Document{root: root}
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return NewDocument(root), nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Mutate runs fn with exclusive access to the tree.
func (d *Document) Mutate(fn func(root *html.Node)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(d.root)
}

// Text returns the text content of the element with the given id, or
// false when it does not exist.
func (d *Document) Text(id string) (string, bool) {
	var out string
	var ok bool
	d.Mutate(func(root *html.Node) {
		if n := FindByID(root, id); n != nil {
			out, ok = TextContent(n), true
		}
	})
	return out, ok
}

// Style returns an inline style property of the element with the given id.
func (d *Document) Style(id, prop string) string {
	var out string
	d.Mutate(func(root *html.Node) {
		if n := FindByID(root, id); n != nil {
			out = StyleProperty(n, prop)
		}
	})
	return out
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return html.Render(w, d.root)
}

func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

var selectorCache sync.Map

// compileSelector parses a selector group ("a, b") and caches it.
func compileSelector(sel string) (cascadia.SelectorGroup, error) {
	if v, ok := selectorCache.Load(sel); ok {
		return v.(cascadia.SelectorGroup), nil
	}
	group, err := cascadia.ParseGroup(sel)
	if err != nil {
		return nil, err
	}
	selectorCache.Store(sel, group)
	return group, nil
}

// CheckSelector reports whether selector parses as a CSS selector group.
func CheckSelector(selector string) error {
	_, err := compileSelector(selector)
	return err
}

// FindByID returns the first element below root whose id matches.
func FindByID(root *html.Node, id string) *html.Node {
	if root == nil || id == "" {
		return nil
	}
	if group, err := compileSelector("#" + id); err == nil && len(group) == 1 {
		return cascadia.Query(root, group)
	}
	// ids that are not valid CSS identifiers (leading digit and so on)
	var found *html.Node
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		for c := n.FirstChild; c != nil && found == nil; c = c.NextSibling {
			if c.Type == html.ElementNode && GetAttr(c, "id") == id {
				found = c
				return
			}
			visit(c)
		}
	}
	visit(root)
	return found
}

// QueryAll returns every element below root matching a CSS selector
// group, in document order.
func QueryAll(root *html.Node, selector string) ([]*html.Node, error) {
	if root == nil {
		return nil, nil
	}
	group, err := compileSelector(selector)
	if err != nil {
		return nil, err
	}
	return cascadia.QueryAll(root, group), nil
}

// Query returns the first element below root matching a CSS selector group.
func Query(root *html.Node, selector string) (*html.Node, error) {
	if root == nil {
		return nil, nil
	}
	group, err := compileSelector(selector)
	if err != nil {
		return nil, err
	}
	return cascadia.Query(root, group), nil
}

// QueryPreferred tries each selector of a group in order and returns the
// first match of the earliest one that matches, so "article, body"
// prefers an article anywhere in the page over the body.
func QueryPreferred(root *html.Node, selector string) (*html.Node, error) {
	if root == nil {
		return nil, nil
	}
	group, err := compileSelector(selector)
	if err != nil {
		return nil, err
	}
	for _, sel := range group {
		if n := cascadia.Query(root, sel); n != nil {
			return n, nil
		}
	}
	return nil, nil
}

// GetAttr returns the value of an attribute, matched case-insensitively.
func GetAttr(n *html.Node, name string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val
		}
	}
	return ""
}

// SetAttr replaces or appends an attribute.
func SetAttr(n *html.Node, name, value string) {
	for i, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

// HasClass reports whether n carries the class.
func HasClass(n *html.Node, want string) bool {
	for _, c := range strings.Fields(GetAttr(n, "class")) {
		if c == want {
			return true
		}
	}
	return false
}

// AddClass appends each class that is not already present.
func AddClass(n *html.Node, classes ...string) {
	cur := strings.Fields(GetAttr(n, "class"))
	for _, c := range classes {
		dup := false
		for _, have := range cur {
			if have == c {
				dup = true
				break
			}
		}
		if !dup {
			cur = append(cur, c)
		}
	}
	SetAttr(n, "class", strings.Join(cur, " "))
}

// RemoveClass drops each named class.
func RemoveClass(n *html.Node, classes ...string) {
	cur := strings.Fields(GetAttr(n, "class"))
	out := cur[:0]
	for _, have := range cur {
		keep := true
		for _, c := range classes {
			if have == c {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, have)
		}
	}
	SetAttr(n, "class", strings.Join(out, " "))
}

// TextContent concatenates every descendant text node.
func TextContent(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(cur *html.Node) {
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				b.WriteString(c.Data)
			case html.ElementNode, html.DocumentNode:
				visit(c)
			}
		}
	}
	visit(n)
	return b.String()
}

// SetTextContent replaces all children of n with a single text node.
func SetTextContent(n *html.Node, text string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

type styleDecl struct {
	property  string
	value     string
	important bool
}

func parseInlineStyle(style string) []styleDecl {
	style = strings.TrimSpace(style)
	if style == "" {
		return nil
	}
	// douceur only keeps a value once it sees the closing ';'.
	if !strings.HasSuffix(style, ";") {
		style += ";"
	}
	if out, ok := parseDeclarations(style); ok {
		return out
	}
	var out []styleDecl
	for _, part := range strings.Split(style, ";") {
		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			continue
		}
		prop := strings.ToLower(strings.TrimSpace(kv[0]))
		value := strings.TrimSpace(kv[1])
		important := false
		if strings.HasSuffix(strings.ToLower(value), "!important") {
			important = true
			value = strings.TrimSpace(value[:len(value)-len("!important")])
		}
		if prop != "" {
			out = append(out, styleDecl{property: prop, value: value, important: important})
		}
	}
	return out
}

// parseDeclarations reads a declaration list with douceur. It reports
// false on a parse error or when any declaration lost its value.
func parseDeclarations(style string) ([]styleDecl, bool) {
	decls, err := parser.ParseDeclarations(style)
	if err != nil {
		return nil, false
	}
	var out []styleDecl
	for _, d := range decls {
		if d == nil {
			continue
		}
		prop := strings.ToLower(strings.TrimSpace(d.Property))
		if prop == "" {
			continue
		}
		value := strings.TrimSpace(d.Value)
		if value == "" {
			return nil, false
		}
		out = append(out, styleDecl{property: prop, value: value, important: d.Important})
	}
	return out, true
}

func formatInlineStyle(decls []styleDecl) string {
	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		v := d.property + ": " + d.value
		if d.important {
			v += " !important"
		}
		parts = append(parts, v)
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "; ") + ";"
}

// StyleProperty returns the value of an inline style declaration.
func StyleProperty(n *html.Node, prop string) string {
	prop = strings.ToLower(strings.TrimSpace(prop))
	val := ""
	for _, d := range parseInlineStyle(GetAttr(n, "style")) {
		if d.property == prop {
			val = d.value
		}
	}
	return val
}

// SetStyleProperty sets one inline style declaration, keeping the others.
func SetStyleProperty(n *html.Node, prop, value string) {
	prop = strings.ToLower(strings.TrimSpace(prop))
	decls := parseInlineStyle(GetAttr(n, "style"))
	replaced := false
	out := decls[:0]
	for _, d := range decls {
		if d.property == prop {
			if replaced {
				continue
			}
			d.value = value
			d.important = false
			replaced = true
		}
		out = append(out, d)
	}
	if !replaced {
		out = append(out, styleDecl{property: prop, value: value})
	}
	SetAttr(n, "style", formatInlineStyle(out))
}
