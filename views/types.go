package views

// Cursor is the part of a page.Paginator that pagination controls need. It
// is satisfied by page.Paginator of any element type.
type Cursor interface {
	PageNumber() int
	Len() int
	HasNext() bool
	HasPrev() bool
}

// NavigationLink is an entry of the site menu.
type NavigationLink struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

// DefaultMenu links the post and tag listings.
func DefaultMenu() []NavigationLink {
	return []NavigationLink{
		{Name: "Posts", URL: "/posts/"},
		{Name: "Tags", URL: "/tags/"},
	}
}
