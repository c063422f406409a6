// Package util holds small helpers shared by listing code.
package util

import "math"

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Calculate turns a 1-based page and a page size into an offset and a limit.
// Out of range sizes fall back to DefaultPageSize. Pages too far out for the
// offset to fit in an int are clamped, which still lands past any real list.
func Calculate(page, size int) (from, limit int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > MaxPageSize {
		size = DefaultPageSize
	}
	if maxPage := math.MaxInt / size; page > maxPage {
		page = maxPage
	}
	return (page - 1) * size, size
}

// Window clamps [from, from+limit) to a slice of length total.
func Window(total, from, limit int) (lo, hi int) {
	if from < 0 || from >= total {
		return total, total
	}
	hi = from + limit
	if hi > total || hi < from {
		hi = total
	}
	return from, hi
}

// Paginate returns the requested page of items and the effective page and size.
func Paginate[T any](items []T, page, size int) (out []T, effPage, effSize int) {
	from, limit := Calculate(page, size)
	lo, hi := Window(len(items), from, limit)
	out = make([]T, hi-lo)
	copy(out, items[lo:hi])
	return out, from/limit + 1, limit
}
