package stablogen

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
)

// errNotImage is returned by copyImage when the source cannot be decoded.
var errNotImage = errors.New("not an image")

// isResizable reports whether the file at rel is an image format that
// copyImage can re-encode.
func isResizable(rel string) bool {
	switch strings.ToLower(filepath.Ext(rel)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

// resizeImage scales img down to maxWidth, keeping its aspect ratio. Images
// that are already narrow enough are returned unchanged.
func resizeImage(img image.Image, maxWidth int) (image.Image, bool) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxWidth {
		return img, false
	}
	newH := max(1, h*maxWidth/w)
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst, true
}

// copyImage copies the image at src to dst, downscaling it to
// cfg.MaxWidth. The output keeps the source format; images that need no
// resizing are copied byte for byte.
func copyImage(dst, src string, cfg ImageConfig) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", errNotImage, src, err)
	}
	img, resized := resizeImage(img, cfg.MaxWidth)
	if !resized {
		return writeFile(dst, bytes.NewReader(data))
	}

	var buf bytes.Buffer
	switch format {
	case "png":
		err = png.Encode(&buf, img)
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: cfg.Quality})
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", src, err)
	}
	return writeFile(dst, &buf)
}

// copyFile copies the regular file src to dst.
func copyFile(dst, src string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	return writeFile(dst, f)
}

func writeFile(dst string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
