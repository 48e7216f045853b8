package stablogen

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
)

var (
	// ErrPostNotFound is returned when no post has the requested URL.
	ErrPostNotFound = errors.New("stablogen: post not found")

	// ErrTagNotFound is returned when no tag has the requested URL.
	ErrTagNotFound = errors.New("stablogen: tag not found")

	// ErrPostExists is returned when creating a post whose URL is taken.
	ErrPostExists = errors.New("stablogen: post already exists")
)

// postExts lists the file extensions recognized as posts.
var postExts = []string{".md", ".html"}

// Repository is the inventory of posts and tags under an input directory. It
// reads the posts directory once and serves every query from memory until
// Invalidate is called.
type Repository struct {
	dir string

	mu     sync.RWMutex
	loaded bool
	posts  map[string]*Post
	tags   map[string]*Tag
}

// NewRepository creates a Repository for the site rooted at inputDir.
func NewRepository(inputDir string) *Repository {
	return &Repository{dir: inputDir}
}

// PostsDir is the directory post files are read from and written to.
func (r *Repository) PostsDir() string {
	return filepath.Join(r.dir, postsDirname)
}

// Invalidate clears the inventory so the next read triggers a fresh load.
func (r *Repository) Invalidate() {
	r.mu.Lock()
	r.loaded = false
	r.posts = nil
	r.tags = nil
	r.mu.Unlock()
}

// Load reads every post file. It is a no-op when the inventory is loaded.
func (r *Repository) Load() error {
	_, _, err := r.ensureLoaded()
	return err
}

func (r *Repository) load() error {
	if r.loaded {
		return nil
	}
	posts := make(map[string]*Post)
	tags := make(map[string]*Tag)
	entries, err := os.ReadDir(r.PostsDir())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stablogen: read posts: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !slices.Contains(postExts, filepath.Ext(name)) {
			continue
		}
		p, err := readPost(filepath.Join(r.PostsDir(), name))
		if err != nil {
			return err
		}
		if other, ok := posts[p.URL]; ok {
			return fmt.Errorf("stablogen: %s and %s share the url %q", other.FileName(), p.FileName(), p.URL)
		}
		posts[p.URL] = p
	}
	// Tags are applied in a stable order so that each tag lists its posts
	// alphabetically.
	for _, p := range sortByTitle(lo.Values(posts)) {
		for _, name := range p.Tags {
			url := MakeURL(name)
			if url == "" {
				continue
			}
			t, ok := tags[url]
			if !ok {
				t = &Tag{Name: name, URL: url}
				tags[url] = t
			}
			t.addPost(p)
		}
	}
	r.posts = posts
	r.tags = tags
	r.loaded = true
	return nil
}

// ensureLoaded returns the inventory after ensuring it has been read.
// It tries a read lock first; only takes a write lock if a load is needed.
func (r *Repository) ensureLoaded() (map[string]*Post, map[string]*Tag, error) {
	r.mu.RLock()
	if r.loaded {
		posts, tags := r.posts, r.tags
		r.mu.RUnlock()
		return posts, tags, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.load(); err != nil {
		return nil, nil, err
	}
	return r.posts, r.tags, nil
}

// Posts returns every post, finalized or not, sorted by title.
func (r *Repository) Posts() ([]*Post, error) {
	posts, _, err := r.ensureLoaded()
	if err != nil {
		return nil, err
	}
	return sortByTitle(lo.Values(posts)), nil
}

// Post returns the post published under url.
func (r *Repository) Post(url string) (*Post, error) {
	posts, _, err := r.ensureLoaded()
	if err != nil {
		return nil, err
	}
	p, ok := posts[url]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPostNotFound, url)
	}
	return p, nil
}

// Finalized returns the finalized posts, newest first, when final is true,
// and the drafts sorted by title otherwise.
func (r *Repository) Finalized(final bool) ([]*Post, error) {
	posts, _, err := r.ensureLoaded()
	if err != nil {
		return nil, err
	}
	matching := lo.Filter(lo.Values(posts), func(p *Post, _ int) bool {
		return p.IsFinal() == final
	})
	if !final {
		return sortByTitle(matching), nil
	}
	slices.SortFunc(matching, func(a, b *Post) int {
		if c := b.When.Compare(a.When.Time); c != 0 {
			return c
		}
		return cmp.Compare(a.Title, b.Title)
	})
	return matching, nil
}

// Tags returns every tag, most used first, then alphabetically by name.
func (r *Repository) Tags() ([]*Tag, error) {
	_, tags, err := r.ensureLoaded()
	if err != nil {
		return nil, err
	}
	out := lo.Values(tags)
	slices.SortFunc(out, func(a, b *Tag) int {
		if c := cmp.Compare(len(b.Posts), len(a.Posts)); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out, nil
}

// Tag returns the tag published under url.
func (r *Repository) Tag(url string) (*Tag, error) {
	_, tags, err := r.ensureLoaded()
	if err != nil {
		return nil, err
	}
	t, ok := tags[url]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTagNotFound, url)
	}
	return t, nil
}

// NewPost creates an empty post titled title, stamped with its creation time.
func (r *Repository) NewPost(title, ext string, tags []string, now time.Time) (*Post, error) {
	url := MakeURL(title)
	if url == "" {
		return nil, fmt.Errorf("%w: title %q has no usable characters", ErrInvalidPost, title)
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if !slices.Contains(postExts, ext) {
		return nil, fmt.Errorf("%w: unsupported extension %q", ErrInvalidPost, ext)
	}
	if _, err := r.Post(url); err == nil {
		return nil, fmt.Errorf("%w: %q", ErrPostExists, url)
	} else if !errors.Is(err, ErrPostNotFound) {
		return nil, err
	}
	p := &Post{
		Title:     strings.TrimSpace(title),
		Tags:      FilterEmpty(tags),
		URL:       url,
		Extension: ext,
	}
	p.Create(now)
	if err := r.Save(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Finalize publishes the post at url.
func (r *Repository) Finalize(url string, now time.Time) (*Post, error) {
	return r.update(url, func(p *Post) { p.Finalize(now) })
}

// Edited records that the post at url was edited.
func (r *Repository) Edited(url string, now time.Time) (*Post, error) {
	return r.update(url, func(p *Post) { p.Edit(now) })
}

func (r *Repository) update(url string, fn func(*Post)) (*Post, error) {
	p, err := r.Post(url)
	if err != nil {
		return nil, err
	}
	updated := *p
	updated.Tags = slices.Clone(p.Tags)
	fn(&updated)
	if err := r.Save(&updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Save writes p to the posts directory and invalidates the inventory.
func (r *Repository) Save(p *Post) error {
	if err := os.MkdirAll(r.PostsDir(), 0o755); err != nil {
		return fmt.Errorf("stablogen: create posts dir: %w", err)
	}
	path := filepath.Join(r.PostsDir(), p.FileName())
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("stablogen: save %s: %w", p.FileName(), err)
	}
	if _, err := p.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("stablogen: save %s: %w", p.FileName(), err)
	}
	r.Invalidate()
	return nil
}

func readPost(path string) (*Post, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("stablogen: open post: %w", err)
	}
	defer f.Close()
	return ParsePost(filepath.Base(path), f)
}

func sortByTitle(posts []*Post) []*Post {
	slices.SortFunc(posts, func(a, b *Post) int {
		if c := cmp.Compare(a.Title, b.Title); c != 0 {
			return c
		}
		return cmp.Compare(a.URL, b.URL)
	})
	return posts
}
