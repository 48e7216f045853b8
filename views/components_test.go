package views

import (
	"bytes"
	"context"
	"html/template"
	"strings"
	"testing"

	"github.com/a-h/templ"

	"github.com/eringen/stablogen/page"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	return buf.String()
}

func TestPagerSinglePage(t *testing.T) {
	p := page.FromSlice([]int{1, 2}, 5)
	if got := render(t, Pager(p, "/posts/")); got != "" {
		t.Errorf("single page pager = %q, want empty", got)
	}
}

func TestPagerNavigation(t *testing.T) {
	first := page.FromSlice([]int{1, 2, 3, 4, 5}, 2)

	got := render(t, Pager(first, "/posts/"))
	if !strings.Contains(got, `rel="next" href="/posts/page/2/"`) {
		t.Errorf("first page should link to page 2: %q", got)
	}
	if strings.Contains(got, `rel="prev"`) {
		t.Errorf("first page should not link backwards: %q", got)
	}
	if !strings.Contains(got, "Page 1 of 3") {
		t.Errorf("label missing: %q", got)
	}

	second, err := first.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	got = render(t, Pager(second, "/tags/go"))
	if !strings.Contains(got, `rel="prev" href="/tags/go/"`) || !strings.Contains(got, `rel="next" href="/tags/go/page/3/"`) {
		t.Errorf("middle page links wrong: %q", got)
	}

	last, _ := second.Next()
	got = render(t, Pager(last, "/posts/"))
	if strings.Contains(got, `rel="next"`) || !strings.Contains(got, `rel="prev" href="/posts/page/2/"`) {
		t.Errorf("last page links wrong: %q", got)
	}
}

func TestPagerEscapesBase(t *testing.T) {
	p := page.FromSlice([]int{1, 2, 3}, 1)
	got := render(t, Pager(p, `/tags/"x"/`))
	if strings.Contains(got, `"x"`) {
		t.Errorf("base should be escaped: %q", got)
	}
}

func TestPageURL(t *testing.T) {
	tests := []struct {
		base     string
		n        int
		expected string
	}{
		{"/posts/", 1, "/posts/"},
		{"/posts", 1, "/posts/"},
		{"/posts/", 2, "/posts/page/2/"},
		{"/tags/go/", 10, "/tags/go/page/10/"},
		{"/", 0, "/"},
	}
	for _, tt := range tests {
		if got := PageURL(tt.base, tt.n); got != tt.expected {
			t.Errorf("PageURL(%q, %d) = %q, want %q", tt.base, tt.n, got, tt.expected)
		}
	}
}

func TestTemplate(t *testing.T) {
	tmpl := template.Must(template.New("x").Parse(`<p>{{.}}</p>`))
	if got := render(t, Template(tmpl, "x", "<b>")); got != "<p>&lt;b&gt;</p>" {
		t.Errorf("Template = %q", got)
	}
}

func TestDefaultTemplatesParse(t *testing.T) {
	funcs := template.FuncMap{}
	for _, name := range []string{"highlight", "markdown", "content", "summary", "pager", "pageURL", "date", "humanize", "join", "tagURL", "postURL", "absURL", "tagClass"} {
		funcs[name] = func(...any) string { return "" }
	}
	tmpl, err := template.New("").Funcs(funcs).ParseFS(Templates, "templates/*.html")
	if err != nil {
		t.Fatalf("default templates do not parse: %v", err)
	}
	for _, name := range []string{"index.html", "post.html", "list_posts.html", "tag.html", "list_tags.html", "head", "foot", "post-item"} {
		if tmpl.Lookup(name) == nil {
			t.Errorf("missing template %s", name)
		}
	}
}

func TestTagClass(t *testing.T) {
	if TagClass(false) != "tag" || TagClass(true) != "tag tag-active" {
		t.Errorf("TagClass = %q, %q", TagClass(false), TagClass(true))
	}
}
