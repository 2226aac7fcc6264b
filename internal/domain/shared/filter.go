package shared

import "strings"

// Paging limits of every list query
const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// Filter is the paging, ordering and search part of a list query.
// OrderBy is checked against a per-table whitelist by the repositories.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Search   string
}

// NewFilter builds a normalized filter from raw query values
func NewFilter(page, pageSize int, orderBy, orderDir, search string) Filter {
	return Filter{
		Page:     page,
		PageSize: pageSize,
		OrderBy:  strings.TrimSpace(orderBy),
		OrderDir: orderDir,
		Search:   search,
	}.Normalize()
}

// DefaultFilter is the first page, newest first
func DefaultFilter() Filter {
	return NewFilter(1, DefaultPageSize, "created_at", "desc", "")
}

// Normalize clamps paging into range and folds OrderDir to asc or desc
func (f Filter) Normalize() Filter {
	f.Page = max(f.Page, 1)
	switch {
	case f.PageSize < 1:
		f.PageSize = DefaultPageSize
	case f.PageSize > MaxPageSize:
		f.PageSize = MaxPageSize
	}
	if strings.EqualFold(f.OrderDir, "asc") {
		f.OrderDir = "asc"
	} else {
		f.OrderDir = "desc"
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

// Offset returns the row offset for the current page
func (f Filter) Offset() int {
	return (f.Page - 1) * f.PageSize
}
