package reader

import (
	"math"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Class names of the spans produced by ApplyBionic.
const (
	ClassBionicWord = "bionic-word"
	ClassBionic     = "bionic"
	ClassNonBionic  = "non-bionic"
)

// bionicRatio is the share of the clean word length rendered bold.
const bionicRatio = 0.5

func isWordRune(r rune) bool {
	return r == '_' || (r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r)))
}

// isSpace matches the ECMAScript whitespace class: Unicode spaces plus
// U+FEFF, without NEL (U+0085).
func isSpace(r rune) bool {
	if r == '\u0085' {
		return false
	}
	return unicode.IsSpace(r) || r == '\ufeff'
}

// cleanLength counts the ASCII word characters of a token.
func cleanLength(token string) int {
	n := 0
	for _, r := range token {
		if isWordRune(r) {
			n++
		}
	}
	return n
}

// SplitWord splits a token into its bold prefix and normal suffix.
// Tokens with at most one word character are left whole (split == false),
// so punctuation never yields a lone bold symbol.
func SplitWord(token string) (bold, normal string, split bool) {
	clean := cleanLength(token)
	if clean <= 1 {
		return "", token, false
	}
	n := int(math.Ceil(float64(clean) * bionicRatio))
	if n < 1 {
		n = 1
	}
	i := 0
	for pos := range token {
		if i == n {
			return token[:pos], token[pos:], true
		}
		i++
	}
	return token, "", true
}

// splitTokens breaks s into alternating runs of whitespace and non-whitespace.
func splitTokens(s string) []string {
	var out []string
	start := 0
	inSpace := false
	for pos, r := range s {
		sp := isSpace(r)
		if pos == 0 {
			inSpace = sp
			continue
		}
		if sp != inSpace {
			out = append(out, s[start:pos])
			start = pos
			inSpace = sp
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

func isWhitespaceToken(tok string) bool {
	r, _ := utf8.DecodeRuneInString(tok)
	return isSpace(r)
}

func newSpan(class string) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     "span",
		DataAtom: atom.Span,
		Attr:     []html.Attribute{{Key: "class", Val: class}},
	}
}

func textSpan(class, text string) *html.Node {
	s := newSpan(class)
	s.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return s
}

func bionicWord(token string) *html.Node {
	wrapper := newSpan(ClassBionicWord)
	if bold, normal, ok := SplitWord(token); ok {
		wrapper.AppendChild(textSpan(ClassBionic, bold))
		wrapper.AppendChild(textSpan(ClassNonBionic, normal))
	} else {
		wrapper.AppendChild(textSpan(ClassNonBionic, token))
	}
	return wrapper
}

func inCodeBlock(n *html.Node) bool {
	p := n.Parent
	if p == nil || p.Type != html.ElementNode {
		return false
	}
	return p.DataAtom == atom.Code || p.DataAtom == atom.Pre
}

// collectTextNodes gathers the text nodes below container that may be styled.
func collectTextNodes(container *html.Node) []*html.Node {
	var out []*html.Node
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				if !inCodeBlock(c) {
					out = append(out, c)
				}
			case html.ElementNode:
				if c.DataAtom == atom.Script || c.DataAtom == atom.Style {
					continue
				}
				visit(c)
			}
		}
	}
	visit(container)
	return out
}

// ApplyBionic rewrites every eligible text node under container into
// bionic word spans and returns the number of words wrapped.
// Text whose immediate parent is code or pre is left alone, as is the
// body of script and style elements.
func ApplyBionic(container *html.Node) int {
	if container == nil {
		return 0
	}
	words := 0
	for _, tn := range collectTextNodes(container) {
		parent := tn.Parent
		for _, tok := range splitTokens(tn.Data) {
			if isWhitespaceToken(tok) {
				parent.InsertBefore(&html.Node{Type: html.TextNode, Data: tok}, tn)
				continue
			}
			parent.InsertBefore(bionicWord(tok), tn)
			words++
		}
		parent.RemoveChild(tn)
	}
	return words
}

// RemoveBionic replaces each bionic word span with its plain text and
// returns the number of spans restored.
func RemoveBionic(container *html.Node) int {
	if container == nil {
		return 0
	}
	spans, err := QueryAll(container, "span."+ClassBionicWord)
	if err != nil {
		return 0
	}
	restored := 0
	for _, s := range spans {
		parent := s.Parent
		if parent == nil {
			continue
		}
		parent.InsertBefore(&html.Node{Type: html.TextNode, Data: TextContent(s)}, s)
		parent.RemoveChild(s)
		restored++
	}
	return restored
}
