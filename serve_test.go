package stablogen

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
)

func TestServerServesOutput(t *testing.T) {
	dir := t.TempDir()
	writeFileT(t, filepath.Join(dir, "index.html"), "<h1>home</h1>")
	writeFileT(t, filepath.Join(dir, "posts", "hello", "index.html"), "<h1>hello</h1>")
	s := newServer(dir, quietLogger())

	tests := []struct {
		path   string
		status int
		body   string
	}{
		{"/", http.StatusOK, "<h1>home</h1>"},
		{"/posts/hello/", http.StatusOK, "<h1>hello</h1>"},
		{"/missing/", http.StatusNotFound, "Not Found"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		rec := httptest.NewRecorder()
		s.echo.ServeHTTP(rec, req)

		if rec.Code != tt.status {
			t.Errorf("GET %s status = %d, want %d", tt.path, rec.Code, tt.status)
		}
		if !strings.Contains(rec.Body.String(), tt.body) {
			t.Errorf("GET %s body = %q, want it to contain %q", tt.path, rec.Body.String(), tt.body)
		}
		if got := rec.Header().Get("Cache-Control"); got != "no-store" {
			t.Errorf("GET %s Cache-Control = %q, want no-store", tt.path, got)
		}
	}
}

func TestServerCustomNotFound(t *testing.T) {
	dir := t.TempDir()
	writeFileT(t, filepath.Join(dir, "404.html"), "<p>lost</p>")
	s := newServer(dir, quietLogger())

	req := httptest.NewRequest(http.MethodGet, "/nowhere", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "<p>lost</p>") {
		t.Errorf("body = %q, want the custom 404 page", rec.Body.String())
	}
}

func TestIsPrecompressed(t *testing.T) {
	if !isPrecompressed("/img/a.png") || isPrecompressed("/index.html") {
		t.Error("isPrecompressed misclassifies files")
	}
}
