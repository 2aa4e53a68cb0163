package reader

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/net/html"
)

func TestSplitWord(t *testing.T) {
	t.Parallel()
	cases := []struct {
		token  string
		bold   string
		normal string
		split  bool
	}{
		{"apple", "app", "le", true},
		{"an", "a", "n", true},
		{"hello,", "hel", "lo,", true},
		{"it's", "it", "'s", true},
		{"(ok)", "(", "ok)", true},
		{"reading", "read", "ing", true},
		{"a", "", "a", false},
		{"I.", "", "I.", false},
		{"--", "", "--", false},
		{"—", "", "—", false},
		{"café", "ca", "fé", true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.token, func(t *testing.T) {
			t.Parallel()
			bold, normal, split := SplitWord(tc.token)
			if bold != tc.bold || normal != tc.normal || split != tc.split {
				t.Fatalf("SplitWord(%q) = (%q,%q,%v), want (%q,%q,%v)", tc.token, bold, normal, split, tc.bold, tc.normal, tc.split)
			}
			if bold+normal != tc.token {
				t.Fatalf("SplitWord(%q) lost characters: %q+%q", tc.token, bold, normal)
			}
		})
	}
}

func TestSplitTokensKeepsWhitespace(t *testing.T) {
	t.Parallel()
	got := splitTokens("  hello \t world\n")
	want := []string{"  ", "hello", " \t ", "world", "\n"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("splitTokens mismatch (-want +got):\n%s", diff)
	}
	nel := splitTokens("one\u0085two\ufeffthree")
	if diff := cmp.Diff([]string{"one\u0085two", "\ufeff", "three"}, nel); diff != "" {
		t.Fatalf("NEL and BOM handling mismatch (-want +got):\n%s", diff)
	}
	if toks := splitTokens(""); len(toks) != 0 {
		t.Fatalf("expected no tokens for empty input, got %q", toks)
	}
}

func parseContainer(t *testing.T, body string) *html.Node {
	t.Helper()
	doc, err := ParseString(`<html><body><div id="reader-content">` + body + `</div></body></html>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var content *html.Node
	doc.Mutate(func(root *html.Node) { content = FindByID(root, IDContent) })
	if content == nil {
		t.Fatalf("content container missing")
	}
	return content
}

func renderNode(t *testing.T, n *html.Node) string {
	t.Helper()
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			t.Fatalf("render: %v", err)
		}
	}
	return buf.String()
}

func TestApplyBionicMarkup(t *testing.T) {
	t.Parallel()
	content := parseContainer(t, "<p>apple a</p>")
	if n := ApplyBionic(content); n != 2 {
		t.Fatalf("expected 2 wrapped words, got %d", n)
	}
	got := renderNode(t, content)
	want := `<p><span class="bionic-word"><span class="bionic">app</span><span class="non-bionic">le</span></span>` +
		` <span class="bionic-word"><span class="non-bionic">a</span></span></p>`
	if got != want {
		t.Fatalf("unexpected markup:\n got %s\nwant %s", got, want)
	}
}

func TestApplyBionicEscapesText(t *testing.T) {
	t.Parallel()
	content := parseContainer(t, "<p>x &lt;b&gt;bold&lt;/b&gt;</p>")
	ApplyBionic(content)
	if bs, _ := QueryAll(content, "b"); len(bs) != 0 {
		t.Fatalf("token text was turned into markup")
	}
	if got := TextContent(content); got != "x <b>bold</b>" {
		t.Fatalf("text changed: %q", got)
	}
}

func TestBionicRoundTrip(t *testing.T) {
	t.Parallel()
	bodies := []string{
		"<p>The quick brown fox, jumps over the lazy dog.</p>",
		"<p>  leading and trailing  </p>\n<ul><li>one</li><li>two words</li></ul>",
		"<p>Use <code>fmt.Println(x)</code> to print.</p><pre>  keep   this\n  as is</pre>",
		"<h1>Title</h1><p>A <em>mixed</em> <strong>sentence</strong> — with dashes…</p>",
		"",
	}
	for _, body := range bodies {
		content := parseContainer(t, body)
		before := TextContent(content)
		ApplyBionic(content)
		if mid := TextContent(content); mid != before {
			t.Fatalf("apply changed text:\nbefore %q\nafter  %q", before, mid)
		}
		RemoveBionic(content)
		if after := TextContent(content); after != before {
			t.Fatalf("round trip changed text:\nbefore %q\nafter  %q", before, after)
		}
		if spans, _ := QueryAll(content, "span."+ClassBionicWord); len(spans) != 0 {
			t.Fatalf("expected no bionic spans after removal, got %d", len(spans))
		}
	}
}

func TestApplyBionicSkipsCode(t *testing.T) {
	t.Parallel()
	content := parseContainer(t, "<p>before <code>inline code</code></p><pre>block code</pre><script>var x = 1;</script>")
	ApplyBionic(content)
	for _, sel := range []string{"code", "pre"} {
		nodes, _ := QueryAll(content, sel)
		if len(nodes) != 1 {
			t.Fatalf("expected one %s element, got %d", sel, len(nodes))
		}
		n := nodes[0]
		if n.FirstChild == nil || n.FirstChild != n.LastChild || n.FirstChild.Type != html.TextNode {
			t.Fatalf("%s content was rewritten: %s", sel, renderNode(t, n))
		}
	}
	if spans, _ := QueryAll(content, "script span"); len(spans) != 0 {
		t.Fatalf("script body was rewritten")
	}
	spans, _ := QueryAll(content, "span."+ClassBionicWord)
	if len(spans) != 1 {
		t.Fatalf("expected only the paragraph word to be wrapped, got %d", len(spans))
	}
}

func TestApplyBionicEmptyContainer(t *testing.T) {
	t.Parallel()
	content := parseContainer(t, "")
	if n := ApplyBionic(content); n != 0 {
		t.Fatalf("expected no words, got %d", n)
	}
	if n := RemoveBionic(content); n != 0 {
		t.Fatalf("expected nothing to restore, got %d", n)
	}
	if ApplyBionic(nil) != 0 || RemoveBionic(nil) != 0 {
		t.Fatalf("nil container should be a no-op")
	}
}

func TestRemoveBionicRestoresPlainText(t *testing.T) {
	t.Parallel()
	content := parseContainer(t, "<p>bold words here</p>")
	ApplyBionic(content)
	if n := RemoveBionic(content); n != 3 {
		t.Fatalf("expected 3 spans restored, got %d", n)
	}
	if strings.Contains(renderNode(t, content), "span") {
		t.Fatalf("spans left behind: %s", renderNode(t, content))
	}
}
