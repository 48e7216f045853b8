package markdown

import (
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

var formatOptions = []chromahtml.Option{
	chromahtml.WithClasses(true),
	chromahtml.TabWidth(4),
}

// Highlight renders code as a highlighted <pre> block. Unknown languages fall
// back to plain text; an empty lang asks chroma to guess.
func Highlight(lang, code string) (template.HTML, error) {
	var lexer chroma.Lexer
	if lang != "" {
		lexer = lexers.Get(lang)
	} else {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, strings.Trim(code, "\n"))
	if err != nil {
		return "", fmt.Errorf("markdown: tokenise %s: %w", lang, err)
	}
	var b strings.Builder
	formatter := chromahtml.New(formatOptions...)
	// Classes do not depend on the style, so any style produces the same
	// markup.
	if err := formatter.Format(&b, styles.Fallback, iterator); err != nil {
		return "", fmt.Errorf("markdown: highlight %s: %w", lang, err)
	}
	return template.HTML(b.String()), nil
}

// WriteCSS writes the stylesheet for the chroma style named style. Unknown
// names use chroma's fallback style.
func WriteCSS(w io.Writer, style string) error {
	return chromahtml.New(formatOptions...).WriteCSS(w, styles.Get(style))
}
