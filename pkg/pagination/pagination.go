package pagination

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

// ErrPageOutOfRange is returned when the requested page does not exist
var ErrPageOutOfRange = errors.New("requested page is out of range")

// Pagination describes the page being returned
type Pagination struct {
	Page       int `json:"currentPage"`
	PerPage    int `json:"rowsPerPage"`
	NumResults int `json:"numberOfResults"`
}

// Link is a named navigation link
type Link struct {
	Name string
	URL  string
}

// New validates the page request against the total number of results
func New(page, perPage, numResults int) (*Pagination, error) {
	if perPage <= 0 {
		return nil, fmt.Errorf("perPage must be positive, got %d", perPage)
	}
	if page <= 0 {
		return nil, fmt.Errorf("page must be positive, got %d", page)
	}
	p := &Pagination{Page: page, PerPage: perPage, NumResults: numResults}
	if page > p.LastPage() {
		return nil, fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, page, p.LastPage())
	}
	return p, nil
}

// LastPage returns the number of the last page. An empty result still has one page.
func (p *Pagination) LastPage() int {
	if p.NumResults == 0 {
		return 1
	}
	return (p.NumResults + p.PerPage - 1) / p.PerPage
}

// Bounds returns the [from, to) indexes of the current page
func (p *Pagination) Bounds() (int, int) {
	from := (p.Page - 1) * p.PerPage
	if from > p.NumResults {
		from = p.NumResults
	}
	to := from + p.PerPage
	if to > p.NumResults {
		to = p.NumResults
	}
	return from, to
}

// Links builds first/previous/next/last links by rewriting the page parameter
// of the request URL. Links that would point outside the result are omitted.
func (p *Pagination) Links(base *url.URL) []Link {
	last := p.LastPage()

	var links []Link
	if p.Page > 1 {
		links = append(links, Link{Name: "first", URL: pageURL(base, 1)})
		links = append(links, Link{Name: "previous", URL: pageURL(base, p.Page-1)})
	}
	if p.Page < last {
		links = append(links, Link{Name: "next", URL: pageURL(base, p.Page+1)})
		links = append(links, Link{Name: "last", URL: pageURL(base, last)})
	}
	return links
}

func pageURL(base *url.URL, page int) string {
	u := *base
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}
