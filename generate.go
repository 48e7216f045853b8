package stablogen

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/a-h/templ"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/eringen/stablogen/markdown"
	"github.com/eringen/stablogen/page"
	"github.com/eringen/stablogen/views"
)

// latestCount is the number of posts exposed to templates as LatestPosts.
const latestCount = 5

// build holds the state of a single Generate run.
type build struct {
	g       *Generator
	funcs   template.FuncMap
	layouts *template.Template
	pages   []sitePage

	posts    []*Post // newest first, drafts last
	latest   []*Post
	tags     []*Tag
	tagPosts map[string][]*Post

	inputAbs  string
	outputAbs string

	mu     sync.Mutex
	bodies map[string]template.HTML
	keys   map[string]struct{}
}

// sitePage is an HTML file of the input tree rendered through the layouts.
type sitePage struct {
	name string
	file string
	url  string
	t    *template.Template
}

func (g *Generator) newBuild() (*build, error) {
	b := &build{
		g:        g,
		tagPosts: make(map[string][]*Post),
		bodies:   make(map[string]template.HTML),
		keys:     make(map[string]struct{}),
	}
	var err error
	if b.inputAbs, err = filepath.Abs(g.cfg.InputDir); err != nil {
		return nil, err
	}
	if b.outputAbs, err = filepath.Abs(g.cfg.OutputDir); err != nil {
		return nil, err
	}
	if b.outputAbs == b.inputAbs || strings.HasPrefix(b.inputAbs, b.outputAbs+string(filepath.Separator)) {
		return nil, fmt.Errorf("stablogen: output directory %s would overwrite the input", g.cfg.OutputDir)
	}

	published, err := g.repo.Finalized(true)
	if err != nil {
		return nil, err
	}
	b.posts = published
	if g.cfg.Drafts {
		drafts, err := g.repo.Finalized(false)
		if err != nil {
			return nil, err
		}
		b.posts = append(slices.Clone(published), drafts...)
	}
	b.latest = published[:min(latestCount, len(published))]

	tags, err := g.repo.Tags()
	if err != nil {
		return nil, err
	}
	for _, t := range tags {
		posts := lo.Filter(b.posts, func(p *Post, _ int) bool {
			return slices.Contains(t.Posts, p)
		})
		if len(posts) == 0 {
			continue
		}
		b.tags = append(b.tags, t)
		b.tagPosts[t.URL] = posts
	}

	b.funcs = b.funcMap()
	if b.layouts, err = loadLayouts(g.cfg.InputDir, b.funcs); err != nil {
		return nil, err
	}
	for _, name := range []string{layoutIndex, layoutPost, layoutListPosts, layoutTag, layoutListTags} {
		if b.layouts.Lookup(name) == nil {
			return nil, fmt.Errorf("stablogen: missing template %s", name)
		}
	}
	// Pages are cloned from the layouts before anything executes them.
	if err := b.collectPages(); err != nil {
		return nil, err
	}
	return b, nil
}

// skip reports whether the input entry at rel is excluded from the output.
func (b *build) skip(rel string, d fs.DirEntry) bool {
	if rel == "." {
		return false
	}
	if isHidden(rel) {
		return true
	}
	top, _, _ := strings.Cut(filepath.ToSlash(rel), "/")
	switch top {
	case postsDirname, templatesDirname, stateDirname:
		return true
	}
	if rel == configFilename {
		return true
	}
	return d.IsDir() && filepath.Join(b.inputAbs, rel) == b.outputAbs
}

// walkInput calls fn for every file of the input tree that is not skipped.
func (b *build) walkInput(fn func(rel, path string) error) error {
	return filepath.WalkDir(b.inputAbs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(b.inputAbs, path)
		if err != nil {
			return err
		}
		if b.skip(rel, d) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		return fn(rel, path)
	})
}

func (b *build) collectPages() error {
	return b.walkInput(func(rel, path string) error {
		if filepath.Ext(rel) != ".html" {
			return nil
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		name := "page:" + filepath.ToSlash(rel)
		t, err := parsePage(b.layouts, name, string(src))
		if err != nil {
			return err
		}
		file, url := outputPath(rel)
		b.pages = append(b.pages, sitePage{name: name, file: file, url: url, t: t})
		return nil
	})
}

// data returns the template data shared by every output, for the page at
// url.
func (b *build) data(url string) pageData {
	d := pageData{
		Site:        b.g.cfg,
		Path:        url,
		LatestPosts: b.latest,
	}
	if len(b.latest) > 0 {
		d.LatestPost = b.latest[0]
	}
	return d
}

// outFile is the file that serves the site-relative directory URL url.
func (b *build) outFile(url string) string {
	return filepath.Join(b.g.cfg.OutputDir, filepath.FromSlash(strings.Trim(url, "/")), "index.html")
}

func (b *build) copyTree(ctx context.Context) error {
	return b.walkInput(func(rel, path string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if filepath.Ext(rel) == ".html" {
			return nil
		}
		dst := filepath.Join(b.g.cfg.OutputDir, rel)
		if b.g.cfg.Images.Resize && isResizable(rel) {
			err := copyImage(dst, path, b.g.cfg.Images)
			if err == nil {
				return nil
			}
			if !errors.Is(err, errNotImage) {
				return err
			}
			b.g.log.WithField("file", rel).Warn("not a decodable image, copying as is")
		}
		return copyFile(dst, path)
	})
}

// renderBodies renders every post body. Bodies that read another post's body
// through content or summary are deferred and rendered one by one, in post
// order, once every other body is known. A deferred body sees the bodies of
// deferred posts before it and an empty body for those after it.
func (b *build) renderBodies(ctx context.Context) error {
	var (
		mu       sync.Mutex
		deferred = make(map[*Post]bool)
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for _, p := range b.posts {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			html, refs, err := b.renderBody(p, true)
			if err != nil {
				return err
			}
			if refs {
				mu.Lock()
				deferred[p] = true
				mu.Unlock()
				return nil
			}
			b.setBody(p, html)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	for _, p := range b.posts {
		if !deferred[p] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		html, _, err := b.renderBody(p, false)
		if err != nil {
			return err
		}
		b.setBody(p, html)
	}
	return nil
}

// renderBody executes the post body as a template and converts the result to
// HTML when the post is written in Markdown. With isolated set, a body that
// reads another post's body is not rendered and refs reports it.
func (b *build) renderBody(p *Post, isolated bool) (html template.HTML, refs bool, err error) {
	funcs := b.funcs
	if isolated {
		funcs = maps.Clone(b.funcs)
		funcs["content"] = func(*Post) template.HTML {
			refs = true
			return ""
		}
		summary := b.funcs["summary"].(func(any, int) string)
		funcs["summary"] = func(v any, n int) string {
			if _, ok := v.(*Post); ok {
				refs = true
				return ""
			}
			return summary(v, n)
		}
	}
	t, err := parseBody(p, funcs)
	if err != nil {
		return "", false, err
	}
	d := b.data(p.Link())
	d.Title = p.Title
	d.Post = p
	var src strings.Builder
	if err := t.Execute(&src, d); err != nil {
		return "", false, fmt.Errorf("%s: %w", p.FileName(), err)
	}
	if refs {
		return "", true, nil
	}
	if p.Extension != ".md" {
		return template.HTML(src.String()), false, nil
	}

	log := b.g.log.WithField("post", p.URL)
	key := CacheKey(b.g.md.Style(), src.String())
	b.mu.Lock()
	b.keys[key] = struct{}{}
	b.mu.Unlock()
	if b.g.cache != nil {
		cached, ok, err := b.g.cache.Get(key)
		if err != nil {
			log.WithError(err).Warn("render cache lookup failed")
		} else if ok {
			return template.HTML(cached), false, nil
		}
	}
	converted, err := b.g.md.Convert(src.String())
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", p.FileName(), err)
	}
	if b.g.cache != nil {
		if err := b.g.cache.Put(key, converted); err != nil {
			log.WithError(err).Warn("render cache store failed")
		}
	}
	return template.HTML(converted), false, nil
}

func (b *build) setBody(p *Post, html template.HTML) {
	b.mu.Lock()
	b.bodies[p.URL] = html
	b.mu.Unlock()
}

// body returns the rendered body of p.
func (b *build) body(p *Post) template.HTML {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bodies[p.URL]
}

func (b *build) renderPages(ctx context.Context) error {
	hasIndex := false
	for _, sp := range b.pages {
		if sp.url == "/" {
			hasIndex = true
		}
		d := b.data(sp.url)
		err := writeComponent(ctx, filepath.Join(b.g.cfg.OutputDir, sp.file), views.Template(sp.t, sp.name, d))
		if err != nil {
			return err
		}
	}
	if hasIndex {
		return nil
	}
	return writeComponent(ctx, b.outFile("/"), views.Template(b.layouts, layoutIndex, b.data("/")))
}

func (b *build) renderPosts(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for _, p := range b.posts {
		eg.Go(func() error {
			d := b.data(p.Link())
			d.Title = p.Title
			d.Post = p
			return writeComponent(ctx, b.outFile(p.Link()), views.Template(b.layouts, layoutPost, d))
		})
	}
	return eg.Wait()
}

func (b *build) renderPostLists(ctx context.Context) error {
	return b.renderListing(ctx, "/"+postsDirname+"/", b.posts, layoutListPosts, func(d *pageData) {
		d.Title = "Posts"
	})
}

func (b *build) renderTags(ctx context.Context) error {
	d := b.data("/" + tagsDirname + "/")
	d.Title = "Tags"
	d.Tags = b.tags
	if err := writeComponent(ctx, b.outFile(d.Path), views.Template(b.layouts, layoutListTags, d)); err != nil {
		return err
	}
	for _, t := range b.tags {
		err := b.renderListing(ctx, t.Link(), b.tagPosts[t.URL], layoutTag, func(d *pageData) {
			d.Title = t.Name
			d.Tag = t
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// renderListing writes one file per page of posts: the first page at base,
// page n at base/page/n/.
func (b *build) renderListing(ctx context.Context, base string, posts []*Post, layout string, set func(*pageData)) error {
	for pg := range page.FromSlice(posts, b.g.cfg.PageSize).All() {
		url := views.PageURL(base, pg.PageNumber())
		d := b.data(url)
		d.Page = pg
		d.PageBase = base
		set(&d)
		if err := writeComponent(ctx, b.outFile(url), views.Template(b.layouts, layout, d)); err != nil {
			return err
		}
	}
	return nil
}

func (b *build) writeCSS(ctx context.Context) error {
	path := filepath.Join(b.g.cfg.OutputDir, "css", "code.css")
	return writeComponent(ctx, path, templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return markdown.WriteCSS(w, b.g.cfg.CodeStyle)
	}))
}

// pruneCache drops cached renderings that this run did not use.
func (b *build) pruneCache() {
	if b.g.cache == nil {
		return
	}
	n, err := b.g.cache.Prune(b.keys)
	if err != nil {
		b.g.log.WithError(err).Warn("render cache prune failed")
		return
	}
	if n > 0 {
		b.g.log.WithFields(logrus.Fields{"removed": n}).Debug("render cache pruned")
	}
}
