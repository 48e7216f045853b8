package stablogen

import (
	"context"
	"encoding/xml"
	"path/filepath"

	"github.com/eringen/stablogen/page"
	"github.com/eringen/stablogen/views"
	"github.com/samber/lo"
)

const sitemapDateLayout = "2006-01-02"

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// sitemap lists every generated page except drafts.
func (b *build) sitemap() sitemapURLSet {
	var urls []sitemapURL
	add := func(url, lastMod string) {
		urls = append(urls, sitemapURL{Loc: b.absURL(url), LastMod: lastMod})
	}

	hasIndex := false
	for _, sp := range b.pages {
		hasIndex = hasIndex || sp.url == "/"
	}
	if !hasIndex {
		add("/", "")
	}
	for _, sp := range b.pages {
		add(sp.url, "")
	}
	final := func(posts []*Post) []*Post {
		return lo.Filter(posts, func(p *Post, _ int) bool { return p.IsFinal() })
	}
	posts := final(b.posts)
	for _, p := range posts {
		add(p.Link(), postLastMod(p))
	}
	addListing := func(base string, posts []*Post) {
		for pg := range page.FromSlice(posts, b.g.cfg.PageSize).All() {
			add(views.PageURL(base, pg.PageNumber()), "")
		}
	}
	addListing("/"+postsDirname+"/", posts)
	add("/"+tagsDirname+"/", "")
	for _, t := range b.tags {
		if tagged := final(b.tagPosts[t.URL]); len(tagged) > 0 {
			addListing(t.Link(), tagged)
		}
	}
	return sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
}

// postLastMod is the date the post last changed.
func postLastMod(p *Post) string {
	if !p.LastEdited.IsZero() {
		return p.LastEdited.Format(sitemapDateLayout)
	}
	return p.When.Format(sitemapDateLayout)
}

func (b *build) writeSitemap(ctx context.Context) error {
	return writeComponent(ctx, filepath.Join(b.g.cfg.OutputDir, "sitemap.xml"), xmlComponent(b.sitemap()))
}
