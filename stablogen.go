// Package stablogen is a static blog generator built with Go templates,
// goldmark and templ.
//
// Posts live in <input>/posts as Markdown or HTML files with a YAML metadata
// block. Generate renders them, paginated post and tag listings, the pages of
// the input tree, an RSS feed and a sitemap into the output directory. The
// preview server and the publishers work on the generated tree.
package stablogen

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eringen/stablogen/markdown"
)

// Generator renders a site. A Generator is safe to reuse across runs; the
// Repository it reads from must be invalidated when posts change on disk.
type Generator struct {
	cfg   SiteConfig
	repo  *Repository
	cache *RenderCache
	log   logrus.FieldLogger
	md    *markdown.Renderer
	now   func() time.Time
}

// New creates a Generator for cfg.
func New(cfg SiteConfig, opts ...Option) *Generator {
	cfg.setDefaults()

	g := &Generator{
		cfg: cfg,
		log: logrus.StandardLogger(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.repo == nil {
		g.repo = NewRepository(cfg.InputDir)
	}
	g.md = markdown.New(cfg.CodeStyle)
	return g
}

// Config returns the configuration the Generator was created with, with
// defaults applied.
func (g *Generator) Config() SiteConfig {
	return g.cfg
}

// Repository returns the post inventory the Generator renders from.
func (g *Generator) Repository() *Repository {
	return g.repo
}

// Generate rebuilds the output directory from scratch.
func (g *Generator) Generate(ctx context.Context) error {
	start := g.now()
	if err := g.repo.Load(); err != nil {
		return err
	}
	b, err := g.newBuild()
	if err != nil {
		return err
	}
	if err := resetDir(g.cfg.OutputDir); err != nil {
		return err
	}

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"copy", b.copyTree},
		{"bodies", b.renderBodies},
		{"pages", b.renderPages},
		{"posts", b.renderPosts},
		{"post lists", b.renderPostLists},
		{"tags", b.renderTags},
		{"css", b.writeCSS},
		{"feed", b.writeFeed},
		{"sitemap", b.writeSitemap},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := step.fn(ctx); err != nil {
			return fmt.Errorf("stablogen: %s: %w", step.name, err)
		}
	}
	b.pruneCache()

	g.log.WithFields(logrus.Fields{
		"posts":   len(b.posts),
		"tags":    len(b.tags),
		"output":  g.cfg.OutputDir,
		"elapsed": g.now().Sub(start).Round(time.Millisecond),
	}).Info("site generated")
	return nil
}

// resetDir removes dir and everything in it, then recreates it empty.
func resetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("stablogen: clear output: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("stablogen: create output: %w", err)
	}
	return nil
}
