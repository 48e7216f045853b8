package stablogen

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidPost is returned when a post file has no usable metadata block.
var ErrInvalidPost = errors.New("stablogen: invalid post")

// ParsePost decodes a post file. The metadata block runs up to the first
// blank line; everything after it is the post body, kept byte for byte.
// name is the file name, which provides the post's URL and extension.
func ParsePost(name string, r io.Reader) (*Post, error) {
	var meta bytes.Buffer
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if strings.TrimSpace(line) == "" && err == nil {
			break
		}
		meta.WriteString(line)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("stablogen: read %s: %w", name, err)
		}
	}
	body, err := io.ReadAll(br)
	if err != nil {
		return nil, fmt.Errorf("stablogen: read %s: %w", name, err)
	}

	var p Post
	if err := yaml.Unmarshal(meta.Bytes(), &p); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPost, name, err)
	}
	if strings.TrimSpace(p.Title) == "" {
		return nil, fmt.Errorf("%w: %s: missing title", ErrInvalidPost, name)
	}
	base := filepath.Base(name)
	p.Extension = filepath.Ext(base)
	p.URL = strings.TrimSuffix(base, p.Extension)
	p.Tags = FilterEmpty(p.Tags)
	p.Content = string(body)
	return &p, nil
}

// WriteTo encodes the post in the format read by ParsePost.
func (p *Post) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return 0, fmt.Errorf("stablogen: encode %s: %w", p.URL, err)
	}
	if err := enc.Close(); err != nil {
		return 0, err
	}
	buf.WriteByte('\n')
	buf.WriteString(p.Content)
	return buf.WriteTo(w)
}

// FileName is the name of the file the post is stored in.
func (p *Post) FileName() string {
	return p.URL + p.Extension
}
