// internal/app/system/search/search.go
package webutil

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxQueryLen caps free-text search input, in bytes, before it reaches a
// regex filter. Longer queries are truncated, not rejected.
const MaxQueryLen = 64

// CleanQuery trims and truncates a user-supplied search query. Truncation
// lands on a rune boundary so a multi-byte rune is dropped whole rather
// than leaving invalid UTF-8 in the pattern.
func CleanQuery(q string) string {
	q = strings.TrimSpace(q)
	if len(q) <= MaxQueryLen {
		return q
	}
	cut := MaxQueryLen
	for cut > 0 && !utf8.RuneStart(q[cut]) {
		cut--
	}
	return q[:cut]
}

// PrefixPattern builds an anchored, escaped prefix pattern for the query,
// suitable for a Mongo $regex against a case-folded field. An empty query
// yields an empty pattern, which callers treat as "no filter".
func PrefixPattern(q string) string {
	q = CleanQuery(q)
	if q == "" {
		return ""
	}
	return "^" + regexp.QuoteMeta(q)
}
