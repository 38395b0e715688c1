package model

import (
	"slices"
	"strings"
)

// Tag labels pastes. Names are unique ignoring ASCII case; the stored
// spelling is the one first submitted.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// SortTags orders tags alphabetically for display, case-insensitively with
// the exact spelling as tie-breaker.
func SortTags(tags []Tag) {
	slices.SortFunc(tags, func(a, b Tag) int {
		if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
}
