package stablogen

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// RenderCache wraps a SQLite database that memoizes rendered post bodies,
// keyed by a hash of their source.
type RenderCache struct {
	db *sql.DB
}

// OpenRenderCache opens (or creates) the cache database at path, ensures the
// parent directory exists, and creates the schema.
func OpenRenderCache(path string) (*RenderCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path+"?"+cacheQueryString())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	c := &RenderCache{db: db}
	if err := c.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// cacheQueryString sets the pragmas on every pooled connection. WAL lets
// the parallel post renderers read while one of them writes; the busy
// timeout makes writers wait instead of failing with SQLITE_BUSY.
func cacheQueryString() string {
	values := make(url.Values)
	values.Add("_pragma", "busy_timeout(5000)")
	values.Add("_pragma", "journal_mode(WAL)")
	values.Add("_pragma", "synchronous(NORMAL)")
	values.Set("_txlock", "immediate")
	return strings.NewReplacer("%28", "(", "%29", ")").Replace(values.Encode())
}

// DefaultCachePath is where the render cache of the site in inputDir lives.
func DefaultCachePath(inputDir string) string {
	return filepath.Join(inputDir, stateDirname, "cache.db")
}

// Close closes the underlying database connection.
func (c *RenderCache) Close() error {
	return c.db.Close()
}

func (c *RenderCache) ensureSchema() error {
	_, err := c.db.Exec(`
CREATE TABLE IF NOT EXISTS rendered (
    hash TEXT PRIMARY KEY,
    html TEXT NOT NULL,
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`)
	return err
}

// CacheKey hashes every input that influences a rendering.
func CacheKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		fmt.Fprintf(h, "%d:%s", len(p), p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the HTML stored under key.
func (c *RenderCache) Get(key string) (string, bool, error) {
	var html string
	err := c.db.QueryRow(`SELECT html FROM rendered WHERE hash = ?`, key).Scan(&html)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return html, true, nil
}

// Put stores html under key, replacing any previous value.
func (c *RenderCache) Put(key, html string) error {
	_, err := c.db.Exec(`INSERT OR REPLACE INTO rendered (hash, html) VALUES (?, ?)`, key, html)
	return err
}

// Len returns the number of cached renderings.
func (c *RenderCache) Len() (int, error) {
	var n int
	err := c.db.QueryRow(`SELECT count(*) FROM rendered`).Scan(&n)
	return n, err
}

// Prune deletes every entry whose key is not in keep and reports how many
// were removed.
func (c *RenderCache) Prune(keep map[string]struct{}) (int, error) {
	rows, err := c.db.Query(`SELECT hash FROM rendered`)
	if err != nil {
		return 0, err
	}
	var stale []string
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			rows.Close()
			return 0, err
		}
		if _, ok := keep[hash]; !ok {
			stale = append(stale, hash)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	tx, err := c.db.Begin()
	if err != nil {
		return 0, err
	}
	for _, hash := range stale {
		if _, err := tx.Exec(`DELETE FROM rendered WHERE hash = ?`, hash); err != nil {
			tx.Rollback()
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(stale), nil
}
