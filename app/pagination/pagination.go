// Package pagination splits an ordered result into numbered pages.
package pagination

import (
	"errors"
	"strconv"
)

// DefaultPerPage is the page size used when none is configured.
const DefaultPerPage = 10

var ErrOutOfRange = errors.New("page number out of range")

// Paginator computes page windows. In strict mode a number past the last
// page fails with ErrOutOfRange instead of returning the last page.
type Paginator struct {
	PerPage int
	Strict  bool
}

// New returns a Paginator; a non-positive perPage falls back to DefaultPerPage.
func New(perPage int, strict bool) Paginator {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	return Paginator{PerPage: perPage, Strict: strict}
}

// Window is the position of one page inside a result of Count items.
type Window struct {
	Number   int
	NumPages int
	Count    int
	PerPage  int
}

// Resolve places number inside a result of count items. Numbers below 1 mean
// page 1 and an empty result still has one page.
func (p Paginator) Resolve(count, number int) (Window, error) {
	perPage := p.PerPage
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	numPages := 1
	if count > 0 {
		numPages = (count + perPage - 1) / perPage
	}
	if number < 1 {
		number = 1
	}
	if number > numPages {
		if p.Strict {
			return Window{}, ErrOutOfRange
		}
		number = numPages
	}
	return Window{Number: number, NumPages: numPages, Count: count, PerPage: perPage}, nil
}

// Offset is the index of the first item on the page.
func (w Window) Offset() int {
	return (w.Number - 1) * w.PerPage
}

func (w Window) HasNext() bool {
	return w.Number < w.NumPages
}

func (w Window) HasPrevious() bool {
	return w.Number > 1
}

// Page is one page of items with its position.
type Page[T any] struct {
	Items        []T  `json:"items"`
	Number       int  `json:"number"`
	NumPages     int  `json:"num_pages"`
	Count        int  `json:"count"`
	PerPage      int  `json:"per_page"`
	HasNext      bool `json:"has_next"`
	HasPrevious  bool `json:"has_previous"`
	NextPage     int  `json:"next_page,omitempty"`
	PreviousPage int  `json:"previous_page,omitempty"`
}

// NewPage attaches items to w. A nil items slice becomes empty.
func NewPage[T any](w Window, items []T) Page[T] {
	if items == nil {
		items = []T{}
	}
	page := Page[T]{
		Items:       items,
		Number:      w.Number,
		NumPages:    w.NumPages,
		Count:       w.Count,
		PerPage:     w.PerPage,
		HasNext:     w.HasNext(),
		HasPrevious: w.HasPrevious(),
	}
	if page.HasNext {
		page.NextPage = w.Number + 1
	}
	if page.HasPrevious {
		page.PreviousPage = w.Number - 1
	}
	return page
}

// ParseNumber reads a page query value. Missing or malformed values mean page 1.
func ParseNumber(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return n
}
