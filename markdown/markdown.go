// Package markdown converts post bodies from Markdown to HTML and provides
// the syntax highlighting shared by Markdown code fences and templates.
package markdown

import (
	"bytes"
	"strings"

	fences "github.com/stefanfritsch/goldmark-fences"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
)

// Renderer is a configured Markdown converter. It is safe for concurrent use.
type Renderer struct {
	md    goldmark.Markdown
	style string
}

// New returns a Renderer whose code fences are highlighted with the chroma
// style named style. Highlighting emits CSS classes; pair it with WriteCSS.
func New(style string) *Renderer {
	md := goldmark.New(
		goldmark.WithParserOptions(
			parser.WithAttribute(),
			parser.WithAutoHeadingID(),
		),
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			highlighting.NewHighlighting(
				highlighting.WithStyle(style),
				highlighting.WithFormatOptions(formatOptions...),
			),
			&fences.Extender{},
		),
		goldmark.WithRendererOptions(
			// Post bodies are authored by the site owner and may embed
			// HTML produced by the highlight template function.
			goldmarkhtml.WithUnsafe(),
		),
	)
	return &Renderer{md: md, style: style}
}

// Style returns the chroma style name used for code fences.
func (r *Renderer) Style() string {
	return r.style
}

// Convert renders src as HTML.
func (r *Renderer) Convert(src string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Summary returns the first n words of the text content of an HTML fragment,
// followed by an ellipsis when the text was cut. Code blocks, scripts and
// styles are skipped.
func Summary(fragment string, n int) string {
	if n <= 0 {
		return ""
	}
	tokenizer := html.NewTokenizer(strings.NewReader(fragment))
	var words []string
	skip := 0
	for {
		tokenType := tokenizer.Next()
		switch tokenType {
		case html.ErrorToken:
			// io.EOF or malformed input, both end the summary.
			return strings.Join(words, " ")
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if isSkipped(name) {
				skip++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if isSkipped(name) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			for _, word := range strings.Fields(string(tokenizer.Text())) {
				if len(words) == n {
					return strings.Join(words, " ") + "…"
				}
				words = append(words, word)
			}
		}
	}
}

func isSkipped(tag []byte) bool {
	switch string(tag) {
	case "pre", "script", "style":
		return true
	}
	return false
}
