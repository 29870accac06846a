// internal/app/system/paging/paging.go

// Package paging parses limit/offset query parameters for list
// endpoints. Values are clamped, never rejected: a garbage limit gets
// the default, an oversized one gets the cap.
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
)

// DefaultLimit applies when the request carries no usable limit.
const DefaultLimit = 50

// MaxLimit caps what a client can request in one page.
const MaxLimit = 500

// Limit extracts the "limit" query parameter, clamped to [1, MaxLimit].
func Limit(r *http.Request) int64 {
	s := query.Get(r, "limit")
	if s == "" {
		return DefaultLimit
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 1 {
		return DefaultLimit
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

// Offset extracts the "offset" query parameter. Negative or malformed
// values become zero.
func Offset(r *http.Request) int64 {
	s := query.Get(r, "offset")
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
