// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package lookup

import (
	"iter"
	"strings"
)

// Batches yields contiguous, non-overlapping sub-slices of ids holding at
// most size items each; the last batch may be smaller. Concatenating the
// batches reproduces ids exactly. A non-positive size yields ids as a
// single batch, and an empty ids yields nothing.
//
// The sequence is lazy and may be ranged over any number of times.
func Batches(ids []string, size int) iter.Seq[[]string] {
	return func(yield func([]string) bool) {
		if len(ids) == 0 {
			return
		}
		if size <= 0 {
			yield(ids)
			return
		}
		for start := 0; start < len(ids); start += size {
			end := min(start+size, len(ids))
			if !yield(ids[start:end:end]) {
				return
			}
		}
	}
}

// BatchCount returns the number of batches Batches yields for n ids.
func BatchCount(n, size int) int {
	switch {
	case n == 0:
		return 0
	case size <= 0:
		return 1
	default:
		return (n + size - 1) / size
	}
}

// Unique trims each identifier, drops empty ones, and removes duplicates,
// keeping the first occurrence order.
func Unique(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
