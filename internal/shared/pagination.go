package shared

import (
	"net/url"
	"strconv"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Pagination contains the window for list queries.
type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// NewPagination clamps limit and offset to sane bounds.
func NewPagination(limit, offset int) Pagination {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return Pagination{Limit: limit, Offset: offset}
}

// PaginationFromQuery reads limit/offset query parameters.
func PaginationFromQuery(q url.Values) Pagination {
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	return NewPagination(limit, offset)
}
