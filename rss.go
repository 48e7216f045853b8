package stablogen

import (
	"context"
	"encoding/xml"
	"io"
	"path/filepath"
	"time"

	"github.com/a-h/templ"

	"github.com/eringen/stablogen/markdown"
)

// feedLength is the number of posts in the RSS feed.
const feedLength = 20

// feedSummaryWords is the length of each item description.
const feedSummaryWords = 60

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description"`
	Author      string   `xml:"author,omitempty"`
	Categories  []string `xml:"category"`
	PubDate     string   `xml:"pubDate"`
	GUID        string   `xml:"guid"`
}

// feed builds the RSS document for the newest finalized posts.
func (b *build) feed() rssXML {
	posts := b.posts
	items := make([]rssItem, 0, min(feedLength, len(posts)))
	var lastBuild time.Time
	for _, p := range posts {
		if len(items) == feedLength {
			break
		}
		if !p.IsFinal() {
			continue
		}
		if p.When.After(lastBuild) {
			lastBuild = p.When.Time
		}
		link := b.absURL(p.Link())
		items = append(items, rssItem{
			Title:       p.Title,
			Link:        link,
			Description: markdown.Summary(string(b.body(p)), feedSummaryWords),
			Author:      b.g.cfg.Author,
			Categories:  p.Tags,
			PubDate:     p.When.Format(time.RFC1123Z),
			GUID:        link,
		})
	}
	feed := rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       b.g.cfg.Title,
			Link:        b.absURL("/"),
			Description: b.g.cfg.Description,
			Items:       items,
		},
	}
	if !lastBuild.IsZero() {
		feed.Channel.LastBuildDate = lastBuild.Format(time.RFC1123Z)
	}
	return feed
}

func (b *build) writeFeed(ctx context.Context) error {
	return writeComponent(ctx, filepath.Join(b.g.cfg.OutputDir, "feed.xml"), xmlComponent(b.feed()))
}

// xmlComponent renders v as an XML document.
func xmlComponent(v any) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, xml.Header); err != nil {
			return err
		}
		enc := xml.NewEncoder(w)
		enc.Indent("", "  ")
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	})
}
