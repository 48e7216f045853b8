// Package page splits an ordered sequence of items into fixed-size pages and
// exposes an immutable cursor over them.
//
// Pages are computed once, when the Paginator is constructed, so the source
// may be a one-shot iter.Seq. Navigation never mutates a Paginator: Next and
// Prev return siblings that share the same frozen pages and differ only in
// their position.
//
//	p := page.FromSlice([]int{1, 2, 3, 4, 5, 6, 7, 8, 9}, 4)
//	for cur := range p.All() {
//	    fmt.Println(cur, cur.Items()) // Page 1 of 3 [1 2 3 4] ...
//	}
package page

import (
	"errors"
	"fmt"
	"iter"
	"slices"
)

// ErrOutOfRange is returned when navigation goes past either end of the page
// list, or when a page index outside [0, Len()) is requested.
var ErrOutOfRange = errors.New("page: index out of range")

// Paginator is a position within a list of pages. The zero value is not
// usable; construct one with New or FromSlice.
type Paginator[T any] struct {
	pages    [][]T
	index    int
	length   int
	pageSize int
}

// New consumes seq once and partitions it into pages of at most pageSize
// items, preserving order. An empty seq yields a single empty page. New
// panics if pageSize is not positive.
func New[T any](seq iter.Seq[T], pageSize int) Paginator[T] {
	if pageSize <= 0 {
		panic(fmt.Sprintf("page: non-positive page size %d", pageSize))
	}
	pages := paginate(seq, pageSize)
	return Paginator[T]{
		pages:    pages,
		index:    0,
		length:   len(pages),
		pageSize: pageSize,
	}
}

// FromSlice is New over the elements of items.
func FromSlice[T any](items []T, pageSize int) Paginator[T] {
	return New(slices.Values(items), pageSize)
}

func fromState[T any](pages [][]T, index, length, pageSize int) (Paginator[T], error) {
	if index < 0 || index >= length {
		return Paginator[T]{}, fmt.Errorf("%w: page %d of %d", ErrOutOfRange, index+1, length)
	}
	return Paginator[T]{
		pages:    pages,
		index:    index,
		length:   length,
		pageSize: pageSize,
	}, nil
}

// paginate walks seq once. A full buffer is emitted as soon as it fills, the
// remainder when seq is exhausted.
func paginate[T any](seq iter.Seq[T], pageSize int) [][]T {
	var pages [][]T
	buf := make([]T, 0, pageSize)
	for item := range seq {
		buf = append(buf, item)
		if len(buf) == pageSize {
			pages = append(pages, buf)
			buf = make([]T, 0, pageSize)
		}
	}
	if len(buf) > 0 {
		pages = append(pages, buf)
	}
	if len(pages) == 0 {
		pages = [][]T{{}}
	}
	return pages
}

// PageNumber returns the 1-based number of the current page.
func (p Paginator[T]) PageNumber() int {
	return p.index + 1
}

// Index returns the 0-based position of the current page.
func (p Paginator[T]) Index() int {
	return p.index
}

// Len returns the total number of pages. It is never less than 1.
func (p Paginator[T]) Len() int {
	return p.length
}

// PageSize returns the maximum number of items per page.
func (p Paginator[T]) PageSize() int {
	return p.pageSize
}

// Items returns the items on the current page. The slice is shared between
// siblings and must not be modified.
func (p Paginator[T]) Items() []T {
	return slices.Clip(p.pages[p.index])
}

// ItemsAt returns the items on the page at index i.
func (p Paginator[T]) ItemsAt(i int) ([]T, error) {
	if i < 0 || i >= p.length {
		return nil, fmt.Errorf("%w: page %d of %d", ErrOutOfRange, i+1, p.length)
	}
	return slices.Clip(p.pages[i]), nil
}

// HasNext reports whether there is a page after the current one.
func (p Paginator[T]) HasNext() bool {
	return p.index < p.length-1
}

// HasPrev reports whether there is a page before the current one.
func (p Paginator[T]) HasPrev() bool {
	return p.index > 0
}

// Next returns the Paginator positioned on the following page, or
// ErrOutOfRange on the last page.
func (p Paginator[T]) Next() (Paginator[T], error) {
	return fromState(p.pages, p.index+1, p.length, p.pageSize)
}

// Prev returns the Paginator positioned on the preceding page, or
// ErrOutOfRange on the first page.
func (p Paginator[T]) Prev() (Paginator[T], error) {
	return fromState(p.pages, p.index-1, p.length, p.pageSize)
}

// Remaining yields the pages after p in order. Reaching the last page ends
// the sequence; it is not reported as an error.
func (p Paginator[T]) Remaining() iter.Seq[Paginator[T]] {
	return func(yield func(Paginator[T]) bool) {
		cur := p
		for {
			next, err := cur.Next()
			if errors.Is(err, ErrOutOfRange) {
				return
			}
			if !yield(next) {
				return
			}
			cur = next
		}
	}
}

// All yields p followed by Remaining.
func (p Paginator[T]) All() iter.Seq[Paginator[T]] {
	return func(yield func(Paginator[T]) bool) {
		if !yield(p) {
			return
		}
		for next := range p.Remaining() {
			if !yield(next) {
				return
			}
		}
	}
}

// String returns "Page N of M".
func (p Paginator[T]) String() string {
	return fmt.Sprintf("Page %d of %d", p.PageNumber(), p.length)
}
