package tags

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseNames(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty input", "", []string{}},
		{"only separators", " , ,, \t\n", []string{}},
		{"commas and spaces", "go, http  json", []string{"go", "http", "json"}},
		{"case-insensitive dedup keeps first spelling", "foo, foo Bar bar", []string{"foo", "Bar"}},
		{"accents folded", "café naïve", []string{"cafe", "naive"}},
		{"non-ascii only token dropped", "日本 go", []string{"go"}},
		{"symbols kept", "c++ c# .net", []string{"c++", "c#", ".net"}},
		{"control characters stripped", "ab\x1fc", []string{"abc"}},
		{"tabs and newlines split", "a\tb\nc", []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseNames(tt.raw))
		})
	}
}

func TestNormalize_Truncates(t *testing.T) {
	long := strings.Repeat("x", 45)
	assert.Len(t, Normalize(long), MaxNameLength)
	assert.Equal(t, "u", Normalize("  ü  "))
	assert.Equal(t, "", Normalize("日本"))
}

func TestCanonical(t *testing.T) {
	assert.Equal(t, Canonical("Bar"), Canonical("bar"))
	assert.NotEqual(t, Canonical("bar"), Canonical("baz"))
}

func TestWeights(t *testing.T) {
	got := Weights([]Count{{"c", 1}, {"b", 10}, {"a", 1}})

	assert.Equal(t, []string{"a", "b", "c"}, []string{got[0].Name, got[1].Name, got[2].Name})
	assert.Equal(t, 10.0, got[0].Weight)
	assert.InDelta(t, math.Log(10)*4+10, got[1].Weight, 1e-9)
	assert.Equal(t, 10, got[1].Count)
	assert.Equal(t, 10.0, got[2].Weight)
}

func TestWeightOf_ZeroCountUsesOne(t *testing.T) {
	assert.Equal(t, WeightOf(1), WeightOf(0))
	assert.Greater(t, WeightOf(100), WeightOf(10))
}
