// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
)

// DefaultPerPage is the page size when the client does not ask for one.
const DefaultPerPage = 20

// MaxPerPage caps what a client may request.
const MaxPerPage = 100

// Params holds sanitized offset-pagination inputs.
type Params struct {
	Page    int64
	PerPage int64
}

// Parse reads "page" and "per_page" query parameters, clamping them to
// sane bounds.
func Parse(r *http.Request) Params {
	p := Params{Page: 1, PerPage: DefaultPerPage}

	if v := query.Get(r, "page"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 1 {
			p.Page = n
		}
	}
	if v := query.Get(r, "per_page"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 1 {
			if n > MaxPerPage {
				n = MaxPerPage
			}
			p.PerPage = n
		}
	}
	return p
}

// Meta is the pagination envelope returned beside list results.
type Meta struct {
	Page       int64 `json:"page"`
	PerPage    int64 `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

// MetaFor computes the envelope for a total row count.
func (p Params) MetaFor(total int64) Meta {
	pages := total / p.PerPage
	if total%p.PerPage != 0 {
		pages++
	}
	if pages < 1 {
		pages = 1
	}
	return Meta{Page: p.Page, PerPage: p.PerPage, Total: total, TotalPages: pages}
}
