package stablogen

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
)

func TestNewS3PublisherValidation(t *testing.T) {
	if _, err := NewS3Publisher(S3Config{Region: "us-east-1"}, quietLogger()); !errors.Is(err, ErrPublishConfig) {
		t.Errorf("missing bucket error = %v, want ErrPublishConfig", err)
	}
	p, err := NewS3Publisher(S3Config{Bucket: "b", Region: "us-east-1", Prefix: "/blog/"}, quietLogger())
	if err != nil {
		t.Fatalf("NewS3Publisher failed: %v", err)
	}
	if p.Prefix != "blog" {
		t.Errorf("Prefix = %q, want blog", p.Prefix)
	}
}

func TestS3PublisherPublish(t *testing.T) {
	var mu sync.Mutex
	uploads := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			http.Error(w, "unexpected method", http.StatusMethodNotAllowed)
			return
		}
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		uploads[r.URL.Path] = r.Header.Get("Content-Type") + " " + string(body)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	dir := t.TempDir()
	writeFileT(t, filepath.Join(dir, "index.html"), "home")
	writeFileT(t, filepath.Join(dir, "css", "code.css"), "css")

	p, err := NewS3Publisher(S3Config{
		Endpoint:        srv.URL,
		Region:          "us-east-1",
		Bucket:          "site",
		Prefix:          "blog",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
	}, quietLogger())
	if err != nil {
		t.Fatalf("NewS3Publisher failed: %v", err)
	}
	if err := p.Publish(context.Background(), dir); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	var keys []string
	for k := range uploads {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "/site/blog/css/code.css" || keys[1] != "/site/blog/index.html" {
		t.Fatalf("uploaded keys = %v", keys)
	}
	if got := uploads["/site/blog/index.html"]; got != "text/html; charset=utf-8 home" {
		t.Errorf("index.html upload = %q", got)
	}
}

func TestNewSFTPPublisherValidation(t *testing.T) {
	knownHosts := filepath.Join(t.TempDir(), "known_hosts")
	if err := os.WriteFile(knownHosts, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewSFTPPublisher(SFTPConfig{Host: "example.com"}, quietLogger()); !errors.Is(err, ErrPublishConfig) {
		t.Errorf("missing user error = %v, want ErrPublishConfig", err)
	}
	cfg := SFTPConfig{Host: "example.com", Port: 2222, User: "deploy", Dir: "/srv/www", KnownHosts: knownHosts}
	if _, err := NewSFTPPublisher(cfg, quietLogger()); !errors.Is(err, ErrPublishConfig) {
		t.Errorf("missing auth error = %v, want ErrPublishConfig", err)
	}

	cfg.Password = "secret"
	p, err := NewSFTPPublisher(cfg, quietLogger())
	if err != nil {
		t.Fatalf("NewSFTPPublisher failed: %v", err)
	}
	if p.Addr != "example.com:2222" {
		t.Errorf("Addr = %q, want example.com:2222", p.Addr)
	}
	if p.Config.User != "deploy" || len(p.Config.Auth) != 1 {
		t.Errorf("ssh config = %+v", p.Config)
	}

	cfg.KeyFile = filepath.Join(t.TempDir(), "missing-key")
	if _, err := NewSFTPPublisher(cfg, quietLogger()); err == nil {
		t.Error("NewSFTPPublisher should fail for an unreadable key file")
	}
}
