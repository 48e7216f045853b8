package views

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/a-h/templ"
)

// Templates holds the default theme. Sites override any of these files by
// placing a file with the same name in their templates directory.
//
//go:embed templates/*.html
var Templates embed.FS

// Pager renders previous/next links around a "Page N of M" label for a
// listing rooted at base. Nothing is rendered for single-page listings.
func Pager(c Cursor, base string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if c.Len() <= 1 {
			return nil
		}
		if _, err := io.WriteString(w, `<nav class="pagination" aria-label="Pagination">`); err != nil {
			return err
		}
		if c.HasPrev() {
			href := templ.EscapeString(PageURL(base, c.PageNumber()-1))
			if _, err := io.WriteString(w, `<a class="pagination-prev" rel="prev" href="`+href+`">&larr; Newer</a>`); err != nil {
				return err
			}
		}
		label := fmt.Sprintf("Page %d of %d", c.PageNumber(), c.Len())
		if _, err := io.WriteString(w, `<span class="pagination-current">`+templ.EscapeString(label)+`</span>`); err != nil {
			return err
		}
		if c.HasNext() {
			href := templ.EscapeString(PageURL(base, c.PageNumber()+1))
			if _, err := io.WriteString(w, `<a class="pagination-next" rel="next" href="`+href+`">Older &rarr;</a>`); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</nav>`)
		return err
	})
}

// Template returns a templ.Component that executes the named template of t
// with data.
func Template(t *template.Template, name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return t.ExecuteTemplate(w, name, data)
	})
}
