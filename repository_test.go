package stablogen

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// writePost stores a post file in the posts directory of dir.
func writePost(t *testing.T, dir string, p *Post) {
	t.Helper()
	if p.Extension == "" {
		p.Extension = ".md"
	}
	if err := NewRepository(dir).Save(p); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
}

func setupTestRepository(t *testing.T) (*Repository, string) {
	t.Helper()
	dir := t.TempDir()
	posts := []*Post{
		{Title: "Beta", URL: "beta", Tags: []string{"go"}, Content: "beta body"},
		{Title: "Alpha", URL: "alpha", Tags: []string{"go", "web"}, Content: "alpha body"},
		{Title: "Gamma", URL: "gamma", Tags: []string{"web", "Go"}, Content: "gamma body"},
		{Title: "Draft", URL: "draft", Tags: []string{"misc"}, Content: "draft body"},
	}
	posts[0].Finalize(testNow.Add(-48 * time.Hour))
	posts[1].Finalize(testNow.Add(-24 * time.Hour))
	posts[2].Finalize(testNow.Add(-72 * time.Hour))
	for _, p := range posts {
		writePost(t, dir, p)
	}
	return NewRepository(dir), dir
}

func TestRepositoryPosts(t *testing.T) {
	repo, _ := setupTestRepository(t)

	posts, err := repo.Posts()
	if err != nil {
		t.Fatalf("Posts failed: %v", err)
	}
	want := []string{"alpha", "beta", "draft", "gamma"}
	if len(posts) != len(want) {
		t.Fatalf("len(Posts) = %d, want %d", len(posts), len(want))
	}
	for i, p := range posts {
		if p.URL != want[i] {
			t.Errorf("Posts[%d] = %q, want %q", i, p.URL, want[i])
		}
	}
}

func TestRepositoryFinalized(t *testing.T) {
	repo, _ := setupTestRepository(t)

	published, err := repo.Finalized(true)
	if err != nil {
		t.Fatalf("Finalized failed: %v", err)
	}
	want := []string{"alpha", "beta", "gamma"}
	if len(published) != len(want) {
		t.Fatalf("len(Finalized(true)) = %d, want %d", len(published), len(want))
	}
	for i, p := range published {
		if p.URL != want[i] {
			t.Errorf("Finalized(true)[%d] = %q, want %q", i, p.URL, want[i])
		}
	}

	drafts, err := repo.Finalized(false)
	if err != nil {
		t.Fatalf("Finalized failed: %v", err)
	}
	if len(drafts) != 1 || drafts[0].URL != "draft" {
		t.Errorf("Finalized(false) = %v, want [draft]", drafts)
	}
}

func TestRepositoryTags(t *testing.T) {
	repo, _ := setupTestRepository(t)

	tags, err := repo.Tags()
	if err != nil {
		t.Fatalf("Tags failed: %v", err)
	}
	if len(tags) != 3 {
		t.Fatalf("len(Tags) = %d, want 3", len(tags))
	}
	// "go" and "Go" share a URL.
	if tags[0].URL != "go" || len(tags[0].Posts) != 3 {
		t.Errorf("Tags[0] = %s with %d posts, want go with 3", tags[0].URL, len(tags[0].Posts))
	}
	if tags[1].URL != "web" || len(tags[1].Posts) != 2 {
		t.Errorf("Tags[1] = %s with %d posts, want web with 2", tags[1].URL, len(tags[1].Posts))
	}
	if tags[2].URL != "misc" {
		t.Errorf("Tags[2] = %s, want misc", tags[2].URL)
	}
	if first := tags[0].Posts[0]; first.URL != "alpha" {
		t.Errorf("tag posts should be in title order, first = %q", first.URL)
	}

	tag, err := repo.Tag("web")
	if err != nil {
		t.Fatalf("Tag failed: %v", err)
	}
	if tag.Name != "web" {
		t.Errorf("Tag.Name = %q, want web", tag.Name)
	}
	if _, err := repo.Tag("nope"); !errors.Is(err, ErrTagNotFound) {
		t.Errorf("Tag(nope) error = %v, want ErrTagNotFound", err)
	}
}

func TestRepositoryPostNotFound(t *testing.T) {
	repo, _ := setupTestRepository(t)

	if _, err := repo.Post("missing"); !errors.Is(err, ErrPostNotFound) {
		t.Errorf("Post error = %v, want ErrPostNotFound", err)
	}
	if _, err := repo.Finalize("missing", testNow); !errors.Is(err, ErrPostNotFound) {
		t.Errorf("Finalize error = %v, want ErrPostNotFound", err)
	}
}

func TestRepositoryNewPost(t *testing.T) {
	repo := NewRepository(t.TempDir())

	p, err := repo.NewPost("  My First Post ", ".md", []string{"go", ""}, testNow)
	if err != nil {
		t.Fatalf("NewPost failed: %v", err)
	}
	if p.URL != "my-first-post" {
		t.Errorf("URL = %q, want my-first-post", p.URL)
	}
	if !p.Created.Equal(testNow) {
		t.Errorf("Created = %v, want %v", p.Created, testNow)
	}
	if p.IsFinal() {
		t.Error("new post should be a draft")
	}
	if _, err := os.Stat(filepath.Join(repo.PostsDir(), "my-first-post.md")); err != nil {
		t.Errorf("post file not written: %v", err)
	}

	got, err := repo.Post("my-first-post")
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	if got.Title != "My First Post" || len(got.Tags) != 1 {
		t.Errorf("stored post = %+v", got)
	}

	if _, err := repo.NewPost("My First Post", ".md", nil, testNow); !errors.Is(err, ErrPostExists) {
		t.Errorf("duplicate NewPost error = %v, want ErrPostExists", err)
	}
	if _, err := repo.NewPost("Other", ".txt", nil, testNow); !errors.Is(err, ErrInvalidPost) {
		t.Errorf("NewPost with .txt error = %v, want ErrInvalidPost", err)
	}
	if _, err := repo.NewPost("!!!", ".md", nil, testNow); !errors.Is(err, ErrInvalidPost) {
		t.Errorf("NewPost with empty slug error = %v, want ErrInvalidPost", err)
	}
}

func TestRepositoryFinalizeAndEdited(t *testing.T) {
	repo, _ := setupTestRepository(t)

	p, err := repo.Finalize("draft", testNow)
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if !p.When.Equal(testNow) {
		t.Errorf("When = %v, want %v", p.When, testNow)
	}

	published, _ := repo.Finalized(true)
	if len(published) != 4 || published[0].URL != "draft" {
		t.Errorf("finalized post should be newest, got %v", published)
	}

	edited := testNow.Add(time.Hour)
	p, err = repo.Edited("draft", edited)
	if err != nil {
		t.Fatalf("Edited failed: %v", err)
	}
	if !p.LastEdited.Equal(edited) {
		t.Errorf("LastEdited = %v, want %v", p.LastEdited, edited)
	}
	reread, _ := repo.Post("draft")
	if !reread.LastEdited.Equal(edited) || !reread.When.Equal(testNow) {
		t.Errorf("stored post = %+v", reread)
	}
}

func TestRepositoryDuplicateURL(t *testing.T) {
	dir := t.TempDir()
	writePost(t, dir, &Post{Title: "A", URL: "same", Extension: ".md"})
	writePost(t, dir, &Post{Title: "B", URL: "same", Extension: ".html"})

	if err := NewRepository(dir).Load(); err == nil {
		t.Error("Load should fail when two files share a URL")
	}
}

func TestRepositoryInvalidate(t *testing.T) {
	repo, dir := setupTestRepository(t)

	if _, err := repo.Posts(); err != nil {
		t.Fatalf("Posts failed: %v", err)
	}
	writePost(t, dir, &Post{Title: "Late", URL: "late"})
	posts, _ := repo.Posts()
	if len(posts) != 4 {
		t.Errorf("loaded inventory should not change before Invalidate, got %d", len(posts))
	}
	repo.Invalidate()
	posts, _ = repo.Posts()
	if len(posts) != 5 {
		t.Errorf("len(Posts) after Invalidate = %d, want 5", len(posts))
	}
}

func TestRepositoryMissingDir(t *testing.T) {
	repo := NewRepository(filepath.Join(t.TempDir(), "nothing"))
	posts, err := repo.Posts()
	if err != nil {
		t.Fatalf("Posts failed: %v", err)
	}
	if len(posts) != 0 {
		t.Errorf("len(Posts) = %d, want 0", len(posts))
	}
}
