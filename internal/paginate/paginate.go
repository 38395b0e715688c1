// Package paginate divides large ordered collections into pages.
//
// HOW IT FITS TOGETHER:
// A Page is computed from three inputs: a Collection (anything that can be
// counted and sliced), the requested page number and the page size.
//
//	coll := paginate.Slice(items)            // in-memory slice
//	page, err := paginate.New(ctx, coll, paginate.Request{Page: 3, PerPage: 10})
//
// The database layer provides its own Collection implementations that turn
// Count into SELECT COUNT(*) and Slice into LIMIT/OFFSET, so only the rows of
// the requested page are ever loaded.
//
// Page numbers start at 1. Item offsets (FirstItem, LastItem) start at 0.
package paginate

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sakif/pastie/internal/apperror"
)

const (
	// DefaultPerPage is used when a Request leaves PerPage at zero.
	DefaultPerPage = 20

	// NoPage is the FirstPage/LastPage value of an empty Page.
	NoPage = 0
	// NoItem is the FirstItem/LastItem value of an empty Page.
	NoItem = -1
)

// Collection is the capability a source needs to be paged through.
//
// Count may be expensive (a filtered COUNT(*) query), which is why Request
// lets callers pass a count they already know.
type Collection[T any] interface {
	Count(ctx context.Context) (int, error)
	Slice(ctx context.Context, offset, limit int) ([]T, error)
}

// Request describes which page to build.
type Request struct {
	Page    int // 1-based; out-of-range values are clamped
	PerPage int // 0 means DefaultPerPage
	// ItemCount skips the Count call when the caller already knows the size.
	ItemCount *int
}

// Page is one window of a larger collection plus the metadata needed to
// render navigation. It is JSON-friendly so whole pages can be cached.
type Page[T any] struct {
	Items        []T `json:"items"`
	CurrentPage  int `json:"currentPage"`
	ItemsPerPage int `json:"itemsPerPage"`
	ItemCount    int `json:"itemCount"`
	PageCount    int `json:"pageCount"`
	FirstPage    int `json:"firstPage"`
	LastPage     int `json:"lastPage"`
	FirstItem    int `json:"firstItem"`
	LastItem     int `json:"lastItem"`
}

// Count returns a pointer to n, for Request.ItemCount.
func Count(n int) *int {
	return &n
}

// ParsePage converts a raw page parameter ("3", "", "abc") into a page
// number. Anything that is not an integer becomes 1.
func ParsePage(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 1
	}
	return n
}

// Clamp returns the page New selects when page is requested from a
// collection of count items. Out-of-range requests snap to the nearest bound
// instead of failing; an empty collection keeps the requested number.
func Clamp(page, count, perPage int) int {
	if count <= 0 {
		return page
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	pageCount := (count + perPage - 1) / perPage
	return min(max(page, 1), pageCount)
}

// New builds the requested page of coll.
func New[T any](ctx context.Context, coll Collection[T], req Request) (*Page[T], error) {
	if coll == nil {
		return nil, apperror.ValidationFailed("collection", "collection does not support paging")
	}

	perPage := req.PerPage
	if perPage == 0 {
		perPage = DefaultPerPage
	}
	if perPage < 0 {
		return nil, apperror.ValidationFailed("perPage",
			fmt.Sprintf("items per page must be positive, got %d", perPage))
	}

	var count int
	if req.ItemCount != nil {
		count = *req.ItemCount
		if count < 0 {
			return nil, apperror.ValidationFailed("itemCount",
				fmt.Sprintf("item count must not be negative, got %d", count))
		}
	} else {
		n, err := coll.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("paginate: counting items: %w", err)
		}
		count = n
	}

	p := &Page[T]{
		CurrentPage:  req.Page,
		ItemsPerPage: perPage,
		ItemCount:    count,
	}

	if count == 0 {
		p.Items = []T{}
		p.FirstPage, p.LastPage = NoPage, NoPage
		p.FirstItem, p.LastItem = NoItem, NoItem
		return p, nil
	}

	p.PageCount = (count + perPage - 1) / perPage
	p.FirstPage = 1
	p.LastPage = p.PageCount

	p.CurrentPage = Clamp(req.Page, count, perPage)

	p.FirstItem = (p.CurrentPage - 1) * perPage
	p.LastItem = min(p.FirstItem+perPage-1, count-1)

	items, err := coll.Slice(ctx, p.FirstItem, p.LastItem-p.FirstItem+1)
	if err != nil {
		return nil, fmt.Errorf("paginate: loading page %d: %w", p.CurrentPage, err)
	}
	if items == nil {
		items = []T{}
	}
	p.Items = items

	return p, nil
}

// HasPrevious reports whether a page before the current one exists.
func (p *Page[T]) HasPrevious() bool {
	return p.PageCount > 0 && p.CurrentPage > p.FirstPage
}

// HasNext reports whether a page after the current one exists.
func (p *Page[T]) HasNext() bool {
	return p.PageCount > 0 && p.CurrentPage < p.LastPage
}

// Previous returns the previous page number, or NoPage on the first page.
func (p *Page[T]) Previous() int {
	if !p.HasPrevious() {
		return NoPage
	}
	return p.CurrentPage - 1
}

// Next returns the next page number, or NoPage on the last page.
func (p *Page[T]) Next() int {
	if !p.HasNext() {
		return NoPage
	}
	return p.CurrentPage + 1
}
