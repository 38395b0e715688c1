// Package tags turns free-text tag input into tag names and computes
// tag-cloud weights.
//
// NAME RULES:
//   - commas and whitespace separate tags: "go, http  json" → go, http, json
//   - accents are decomposed and every non-ASCII or control character is
//     dropped: "café" → "cafe", "日本" → "" (discarded)
//   - names longer than MaxNameLength are cut
//   - identity ignores ASCII case: "Go go GO" is one tag, spelled "Go"
package tags

import (
	"math"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// MaxNameLength matches the width of the tags.name column.
const MaxNameLength = 30

// ParseNames splits raw tag input into distinct tag names, in input order.
// When two tokens differ only in case the first spelling wins.
func ParseNames(raw string) []string {
	fields := strings.Fields(strings.ReplaceAll(raw, ",", " "))

	names := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, field := range fields {
		name := Normalize(field)
		if name == "" {
			continue
		}
		key := Canonical(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, name)
	}
	return names
}

// Normalize folds one token to its stored form. It returns "" when nothing
// usable is left.
func Normalize(token string) string {
	folded := strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII || unicode.IsControl(r) {
			return -1
		}
		return r
	}, norm.NFKD.String(token))

	folded = strings.TrimSpace(folded)
	if len(folded) > MaxNameLength {
		folded = strings.TrimSpace(folded[:MaxNameLength])
	}
	return folded
}

// Canonical is the identity of a tag name: two names with the same
// Canonical form are the same tag. It is also the per-tag cache key.
func Canonical(name string) string {
	return strings.ToLower(name)
}

// Count is how many distinct pastes carry a tag.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Weight is one entry of the tag cloud.
type Weight struct {
	Name   string  `json:"name"`
	Count  int     `json:"count"`
	Weight float64 `json:"weight"`
}

// WeightOf maps a usage count to a display size. The scale is logarithmic so
// one very popular tag does not dwarf the rest of the cloud.
func WeightOf(count int) float64 {
	return math.Log(float64(max(count, 1)))*4 + 10
}

// Weights computes the tag cloud, sorted by name.
func Weights(counts []Count) []Weight {
	out := make([]Weight, 0, len(counts))
	for _, c := range counts {
		out = append(out, Weight{Name: c.Name, Count: c.Count, Weight: WeightOf(c.Count)})
	}
	slices.SortFunc(out, func(a, b Weight) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}
