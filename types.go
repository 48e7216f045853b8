package stablogen

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// TimestampLayout is the text encoding of every timestamp in post metadata.
const TimestampLayout = time.RFC3339

// Timestamp is a UTC point in time that encodes to YAML as an RFC 3339 string,
// or null when unset.
type Timestamp struct {
	time.Time
}

// NewTimestamp truncates t to seconds and converts it to UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC().Truncate(time.Second)}
}

// MarshalYAML implements yaml.Marshaler.
func (ts Timestamp) MarshalYAML() (interface{}, error) {
	if ts.IsZero() {
		return nil, nil
	}
	return ts.UTC().Format(TimestampLayout), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (ts *Timestamp) UnmarshalYAML(value *yaml.Node) error {
	if value.Tag == "!!null" || value.Value == "" {
		ts.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(TimestampLayout, value.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid timestamp %q: %w", value.Line, value.Value, err)
	}
	*ts = NewTimestamp(t)
	return nil
}

// Post is a single blog entry stored as posts/<URL><Extension>.
type Post struct {
	Title      string    `yaml:"title"`
	Tags       []string  `yaml:"tags"`
	Created    Timestamp `yaml:"created"`
	When       Timestamp `yaml:"when"`
	LastEdited Timestamp `yaml:"last_edited"`

	URL       string `yaml:"-"`
	Extension string `yaml:"-"`
	Content   string `yaml:"-"`
}

// Create stamps the creation time.
func (p *Post) Create(now time.Time) {
	p.Created = NewTimestamp(now)
}

// Finalize stamps the publication time, making the post part of the site.
func (p *Post) Finalize(now time.Time) {
	p.When = NewTimestamp(now)
}

// Edit stamps the last edit time.
func (p *Post) Edit(now time.Time) {
	p.LastEdited = NewTimestamp(now)
}

// IsFinal reports whether the post has been published.
func (p *Post) IsFinal() bool {
	return !p.When.IsZero()
}

// Date formats the publication date, followed by " edited: <date>" when the
// post has been edited.
func (p *Post) Date(layout string) string {
	var s string
	if !p.When.IsZero() {
		s = p.When.Format(layout)
	}
	if !p.LastEdited.IsZero() {
		s += " edited: " + p.LastEdited.Format(layout)
	}
	return s
}

// Link is the site-relative URL of the rendered post.
func (p *Post) Link() string {
	return "/" + postsDirname + "/" + p.URL + "/"
}

// String returns "Title (url)", followed by the publication age for
// finalized posts.
func (p *Post) String() string {
	s := p.Title + " (" + p.URL + ")"
	if p.IsFinal() {
		s += " " + humanize.Time(p.When.Time)
	}
	return s
}

// Tag groups the posts that carry the same tag name.
type Tag struct {
	Name  string
	URL   string
	Posts []*Post
}

// Link is the site-relative URL of the tag's first page.
func (t *Tag) Link() string {
	return "/" + tagsDirname + "/" + t.URL + "/"
}

func (t *Tag) addPost(p *Post) {
	for _, existing := range t.Posts {
		if existing == p {
			return
		}
	}
	t.Posts = append(t.Posts, p)
}
