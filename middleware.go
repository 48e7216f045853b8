package stablogen

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

func (s *server) setupMiddleware() {
	e := s.echo

	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			entry := s.log.WithFields(logrus.Fields{
				"method":  v.Method,
				"uri":     v.URI,
				"status":  v.Status,
				"latency": v.Latency,
			})
			if v.Error != nil {
				entry.WithError(v.Error).Warn("request failed")
				return nil
			}
			entry.Info("request")
			return nil
		},
	}))

	e.Use(middleware.Recover())

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			return isPrecompressed(c.Request().URL.Path)
		},
	}))

	e.Use(noStoreMiddleware)

	e.Use(middleware.StaticWithConfig(middleware.StaticConfig{
		Root:  s.dir,
		Index: "index.html",
	}))
}

// noStoreMiddleware disables browser caching so that every reload shows the
// latest generated output.
func noStoreMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set("Cache-Control", "no-store")
		return next(c)
	}
}

func isPrecompressed(path string) bool {
	switch {
	case strings.HasSuffix(path, ".gz"), strings.HasSuffix(path, ".zip"),
		strings.HasSuffix(path, ".jpg"), strings.HasSuffix(path, ".jpeg"),
		strings.HasSuffix(path, ".png"), strings.HasSuffix(path, ".webp"):
		return true
	}
	return false
}

func (s *server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
	}
	if code >= http.StatusInternalServerError {
		s.log.WithError(err).Error("preview server error")
	}
	if code == http.StatusNotFound {
		if data, err := os.ReadFile(filepath.Join(s.dir, "404.html")); err == nil {
			_ = c.HTMLBlob(code, data)
			return
		}
	}
	_ = c.String(code, http.StatusText(code))
}
