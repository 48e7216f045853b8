package stablogen

import (
	"bufio"
	"context"
	"fmt"
	"html/template"
	"os"
	"path"
	"path/filepath"
	"strings"
	texttemplate "text/template"

	"github.com/a-h/templ"
	"github.com/dustin/go-humanize"

	"github.com/eringen/stablogen/markdown"
	"github.com/eringen/stablogen/page"
	"github.com/eringen/stablogen/views"
)

// Names of the layout templates the generator executes.
const (
	layoutIndex     = "index.html"
	layoutPost      = "post.html"
	layoutListPosts = "list_posts.html"
	layoutTag       = "tag.html"
	layoutListTags  = "list_tags.html"
)

// pageData is the value every template is executed with.
type pageData struct {
	Site        SiteConfig
	Title       string
	Path        string // site-relative URL of the page being rendered
	LatestPosts []*Post
	LatestPost  *Post

	Post     *Post
	Tag      *Tag
	Tags     []*Tag
	Page     page.Paginator[*Post]
	PageBase string // URL of the first page of the listing
}

// writeComponent renders c into file, creating parent
// directories as needed.
func writeComponent(ctx context.Context, file string, c templ.Component) error {
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return err
	}
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := c.Render(ctx, w); err != nil {
		f.Close()
		return fmt.Errorf("render %s: %w", file, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// funcMap returns the functions available to layouts, pages and post bodies.
// content and summary read the post bodies rendered by b.
func (b *build) funcMap() template.FuncMap {
	return template.FuncMap{
		"highlight": markdown.Highlight,
		"markdown": func(src string) (template.HTML, error) {
			html, err := b.g.md.Convert(src)
			return template.HTML(html), err
		},
		"content": func(p *Post) template.HTML {
			return b.body(p)
		},
		"summary": func(v any, n int) string {
			switch v := v.(type) {
			case *Post:
				return markdown.Summary(string(b.body(v)), n)
			case template.HTML:
				return markdown.Summary(string(v), n)
			case string:
				return markdown.Summary(v, n)
			}
			return ""
		},
		"pager": func(c views.Cursor, base string) (template.HTML, error) {
			return templ.ToGoHTML(context.Background(), views.Pager(c, base))
		},
		"pageURL": views.PageURL,
		"date": func(ts Timestamp, layout string) string {
			if ts.IsZero() {
				return ""
			}
			return ts.Format(layout)
		},
		"humanize": func(ts Timestamp) string {
			if ts.IsZero() {
				return ""
			}
			return humanize.Time(ts.Time)
		},
		"join":     strings.Join,
		"tagURL":   func(name string) string { return "/" + tagsDirname + "/" + MakeURL(name) + "/" },
		"postURL":  func(url string) string { return "/" + postsDirname + "/" + url + "/" },
		"absURL":   b.absURL,
		"tagClass": views.TagClass,
	}
}

// absURL joins the configured hostname with a site-relative path.
func (b *build) absURL(p string) string {
	return strings.TrimRight(b.g.cfg.Hostname, "/") + "/" + strings.TrimLeft(p, "/")
}

// loadLayouts parses the embedded default theme, then every file of the
// site's templates directory, which replaces defaults of the same name.
func loadLayouts(inputDir string, funcs template.FuncMap) (*template.Template, error) {
	t, err := template.New("").Funcs(funcs).ParseFS(views.Templates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("stablogen: parse default templates: %w", err)
	}
	overrides, err := filepath.Glob(filepath.Join(inputDir, templatesDirname, "*.html"))
	if err != nil {
		return nil, err
	}
	if len(overrides) > 0 {
		if t, err = t.ParseFiles(overrides...); err != nil {
			return nil, fmt.Errorf("stablogen: parse templates: %w", err)
		}
	}
	return t, nil
}

// parsePage clones the layouts and adds the page source under name, so that
// pages can invoke the shared head and foot definitions.
func parsePage(layouts *template.Template, name, src string) (*template.Template, error) {
	t, err := layouts.Clone()
	if err != nil {
		return nil, err
	}
	if _, err := t.New(name).Parse(src); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return t, nil
}

// parseBody parses a post body as a text template.
func parseBody(p *Post, funcs template.FuncMap) (*texttemplate.Template, error) {
	t, err := texttemplate.New(p.FileName()).Funcs(texttemplate.FuncMap(funcs)).Parse(p.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPost, p.FileName(), err)
	}
	return t, nil
}

// outputPath maps a page file, relative to the input directory, to its output
// file and its site-relative URL. index.html stays in place; any other x.html
// becomes x/index.html.
func outputPath(rel string) (file, url string) {
	rel = filepath.ToSlash(rel)
	dir, name := path.Split(rel)
	if name != "index.html" {
		dir = path.Join(dir, strings.TrimSuffix(name, path.Ext(name))) + "/"
	}
	url = "/" + dir
	return filepath.FromSlash(path.Join(dir, "index.html")), url
}

// isHidden reports whether any element of the slash-separated path starts
// with a dot.
func isHidden(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	return false
}
