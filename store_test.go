package stablogen

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func setupTestCache(t *testing.T) *RenderCache {
	t.Helper()
	c, err := OpenRenderCache(filepath.Join(t.TempDir(), ".stablogen", "cache.db"))
	if err != nil {
		t.Fatalf("failed to open render cache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestOpenRenderCache(t *testing.T) {
	c := setupTestCache(t)

	if c.db == nil {
		t.Fatal("db should not be nil")
	}
	n, err := c.Len()
	if err != nil {
		t.Fatalf("Len failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Len = %d, want 0", n)
	}
}

func TestRenderCachePragmasOnEveryConnection(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	// Hold every pooled connection at once so each one is checked.
	for i := range 4 {
		conn, err := c.db.Conn(ctx)
		if err != nil {
			t.Fatalf("conn %d: %v", i, err)
		}
		defer conn.Close()

		var timeout int
		if err := conn.QueryRowContext(ctx, `PRAGMA busy_timeout`).Scan(&timeout); err != nil {
			t.Fatalf("conn %d busy_timeout: %v", i, err)
		}
		if timeout != 5000 {
			t.Errorf("conn %d busy_timeout = %d, want 5000", i, timeout)
		}
		var mode string
		if err := conn.QueryRowContext(ctx, `PRAGMA journal_mode`).Scan(&mode); err != nil {
			t.Fatalf("conn %d journal_mode: %v", i, err)
		}
		if !strings.EqualFold(mode, "wal") {
			t.Errorf("conn %d journal_mode = %q, want wal", i, mode)
		}
	}
}

func TestRenderCacheConcurrentPut(t *testing.T) {
	c := setupTestCache(t)

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- c.Put(CacheKey(fmt.Sprint(i)), fmt.Sprintf("<p>%d</p>", i))
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("Put failed: %v", err)
		}
	}
	n, err := c.Len()
	if err != nil {
		t.Fatalf("Len failed: %v", err)
	}
	if n != 32 {
		t.Errorf("Len = %d, want 32", n)
	}
}

func TestRenderCacheGetMissing(t *testing.T) {
	c := setupTestCache(t)

	html, ok, err := c.Get(CacheKey("nothing"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok || html != "" {
		t.Errorf("Get = (%q, %v), want miss", html, ok)
	}
}

func TestRenderCachePutAndGet(t *testing.T) {
	c := setupTestCache(t)

	key := CacheKey("monokai", "# Title")
	if err := c.Put(key, "<h1>Title</h1>"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	html, ok, err := c.Get(key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok || html != "<h1>Title</h1>" {
		t.Errorf("Get = (%q, %v), want (%q, true)", html, ok, "<h1>Title</h1>")
	}

	// Replace
	if err := c.Put(key, "<h1>Other</h1>"); err != nil {
		t.Fatalf("Put update failed: %v", err)
	}
	html, _, _ = c.Get(key)
	if html != "<h1>Other</h1>" {
		t.Errorf("Get after update = %q", html)
	}
	if n, _ := c.Len(); n != 1 {
		t.Errorf("Len = %d, want 1", n)
	}
}

func TestRenderCachePrune(t *testing.T) {
	c := setupTestCache(t)

	keep := CacheKey("keep")
	drop := CacheKey("drop")
	for _, key := range []string{keep, drop} {
		if err := c.Put(key, key); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	removed, err := c.Prune(map[string]struct{}{keep: {}})
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Prune removed %d, want 1", removed)
	}
	if _, ok, _ := c.Get(keep); !ok {
		t.Error("kept key should still be cached")
	}
	if _, ok, _ := c.Get(drop); ok {
		t.Error("dropped key should be gone")
	}
}

func TestCacheKey(t *testing.T) {
	if CacheKey("a", "b") == CacheKey("ab") {
		t.Error("CacheKey should separate parts")
	}
	if CacheKey("x") != CacheKey("x") {
		t.Error("CacheKey should be deterministic")
	}
	if len(CacheKey("x")) != 64 {
		t.Errorf("CacheKey length = %d, want 64", len(CacheKey("x")))
	}
}

func TestDefaultCachePath(t *testing.T) {
	got := DefaultCachePath("site")
	want := filepath.Join("site", ".stablogen", "cache.db")
	if got != want {
		t.Errorf("DefaultCachePath = %q, want %q", got, want)
	}
}
