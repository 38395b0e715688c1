package paginate

// LinkKind says how a navigation entry should be rendered.
type LinkKind string

const (
	LinkPage    LinkKind = "page"    // a link to another page
	LinkCurrent LinkKind = "current" // the current page, highlighted, not linked
	LinkGap     LinkKind = "gap"     // an ellipsis between non-adjacent pages
)

// Link is one entry of the navigation bar. Number is 0 for gaps.
type Link struct {
	Kind   LinkKind `json:"kind"`
	Number int      `json:"number,omitempty"`
}

// PagerOptions controls Pager output.
type PagerOptions struct {
	// Radius is how many pages to list on each side of the current page.
	Radius int
	// ShowIfSinglePage renders navigation even when there is only one page.
	ShowIfSinglePage bool
}

// DefaultPagerOptions lists two pages on each side of the current one.
func DefaultPagerOptions() PagerOptions {
	return PagerOptions{Radius: 2}
}

// Pager returns the navigation entries for p, e.g. for radius 2 on page 7 of 12:
//
//	1 .. 5 6 [7] 8 9 .. 12
func (p *Page[T]) Pager(opts PagerOptions) []Link {
	if p.PageCount == 0 || (p.PageCount == 1 && !opts.ShowIfSinglePage) {
		return []Link{}
	}

	radius := max(opts.Radius, 0)
	leftmost := max(p.FirstPage, p.CurrentPage-radius)
	rightmost := min(p.LastPage, p.CurrentPage+radius)

	links := make([]Link, 0, rightmost-leftmost+5)

	if p.CurrentPage != p.FirstPage && p.FirstPage < leftmost {
		links = append(links, Link{Kind: LinkPage, Number: p.FirstPage})
	}
	if leftmost-p.FirstPage > 1 {
		links = append(links, Link{Kind: LinkGap})
	}

	for n := leftmost; n <= rightmost; n++ {
		kind := LinkPage
		if n == p.CurrentPage {
			kind = LinkCurrent
		}
		links = append(links, Link{Kind: kind, Number: n})
	}

	if p.LastPage-rightmost > 1 {
		links = append(links, Link{Kind: LinkGap})
	}
	if p.CurrentPage != p.LastPage && rightmost < p.LastPage {
		links = append(links, Link{Kind: LinkPage, Number: p.LastPage})
	}

	return links
}
