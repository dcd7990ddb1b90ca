// Package sliceutil holds small generic helpers for sorted selection sets.
package sliceutil

import (
	"cmp"
	"slices"
)

// Take returns at most n leading items. A non-positive n returns an empty slice.
func Take[T any](items []T, n int) []T {
	if n <= 0 {
		return items[:0]
	}
	if len(items) <= n {
		return items
	}
	return items[:n]
}

// SortedSet returns the distinct values of items in ascending order,
// skipping zero values.
func SortedSet[T cmp.Ordered](items []T) []T {
	var zero T
	out := make([]T, 0, len(items))
	for _, item := range items {
		if item != zero {
			out = append(out, item)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Toggle returns a copy of set with v removed if present, otherwise added.
// The result is sorted and distinct.
func Toggle[T cmp.Ordered](set []T, v T) []T {
	out := make([]T, 0, len(set)+1)
	found := false
	for _, item := range set {
		if item == v {
			found = true
			continue
		}
		out = append(out, item)
	}
	if !found {
		out = append(out, v)
	}
	return SortedSet(out)
}
