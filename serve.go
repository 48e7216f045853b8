package stablogen

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// watchDebounce is how long the watcher waits for a burst of file events to
// settle before regenerating.
const watchDebounce = 300 * time.Millisecond

// server is the preview server for a generated site.
type server struct {
	echo *echo.Echo
	dir  string
	log  logrus.FieldLogger
}

func newServer(dir string, log logrus.FieldLogger) *server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	s := &server{echo: e, dir: dir, log: log}
	s.setupMiddleware()
	return s
}

// Serve serves the output directory on addr until ctx is cancelled. With
// watch set, the site is regenerated whenever the input tree changes.
func (g *Generator) Serve(ctx context.Context, addr string, watch bool) error {
	s := newServer(g.cfg.OutputDir, g.log)

	if watch {
		w, err := g.newWatcher()
		if err != nil {
			return err
		}
		defer w.Close()
		go g.watch(ctx, w)
	}

	errCh := make(chan error, 1)
	go func() {
		g.log.WithFields(logrus.Fields{"addr": addr, "dir": g.cfg.OutputDir}).Info("serving site")
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}

// newWatcher watches every directory of the input tree that feeds the
// output.
func (g *Generator) newWatcher() (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := g.addWatches(w, g.cfg.InputDir); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

func (g *Generator) addWatches(w *fsnotify.Watcher, root string) error {
	outputAbs, err := filepath.Abs(g.cfg.OutputDir)
	if err != nil {
		return err
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if g.ignored(path, outputAbs) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

// ignored reports whether changes under path never affect the output.
func (g *Generator) ignored(path, outputAbs string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return true
	}
	if abs == outputAbs {
		return true
	}
	rel, err := filepath.Rel(g.cfg.InputDir, path)
	if err != nil {
		return true
	}
	return rel != "." && isHidden(rel)
}

func (g *Generator) watch(ctx context.Context, w *fsnotify.Watcher) {
	outputAbs, _ := filepath.Abs(g.cfg.OutputDir)
	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if g.ignored(event.Name, outputAbs) || g.ignored(filepath.Dir(event.Name), outputAbs) {
				continue
			}
			if event.Has(fsnotify.Create) {
				// New directories need their own watch.
				if err := g.addWatches(w, event.Name); err != nil && !errors.Is(err, fs.ErrNotExist) {
					g.log.WithError(err).WithField("path", event.Name).Warn("watch failed")
				}
			}
			g.log.WithField("path", event.Name).Debug("change detected")
			timer.Reset(watchDebounce)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			g.log.WithError(err).Warn("watcher error")
		case <-timer.C:
			g.repo.Invalidate()
			if err := g.Generate(ctx); err != nil {
				g.log.WithError(err).Error("regenerate failed")
			}
		}
	}
}
