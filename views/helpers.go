package views

import (
	"strconv"
	"strings"
)

// PageURL is the site-relative URL of page n of a listing rooted at base.
// Page 1 is base itself; later pages live under base/page/n/.
func PageURL(base string, n int) string {
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	if n <= 1 {
		return base
	}
	return base + "page/" + strconv.Itoa(n) + "/"
}

// TagClass returns CSS classes for a tag pill, with active variant.
func TagClass(active bool) string {
	if active {
		return "tag tag-active"
	}
	return "tag"
}
