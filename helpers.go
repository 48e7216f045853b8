package stablogen

import (
	"strings"

	"github.com/gosimple/slug"
)

// MakeURL converts a post title or tag name to the URL path segment it is
// published under.
func MakeURL(title string) string {
	return slug.Make(strings.TrimSpace(title))
}

// FilterEmpty removes empty/whitespace-only strings from a slice.
func FilterEmpty(vals []string) []string {
	var out []string
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ToList splits a comma separated list, dropping empty entries.
func ToList(s string) []string {
	return FilterEmpty(strings.Split(s, ","))
}

// JoinTags joins tags with ", ".
func JoinTags(tags []string) string {
	return strings.Join(tags, ", ")
}
