package highlight

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffOp says what happened to a line going from the old code to the new.
type DiffOp string

const (
	OpEqual  DiffOp = "equal"
	OpInsert DiffOp = "insert"
	OpDelete DiffOp = "delete"
)

// DiffLine is one line of a line-by-line comparison.
type DiffLine struct {
	Op   DiffOp `json:"op"`
	Text string `json:"text"`
}

// Diff compares a and b line by line. The result lists every line of both
// inputs once, in source order; a changed line shows up as a delete followed
// by an insert.
//
// LINE MODE:
// diffmatchpatch diffs characters. DiffLinesToChars maps each distinct line
// to one rune, the character diff then runs over lines, and DiffCharsToLines
// maps the runes back.
func Diff(a, b string) []DiffLine {
	dmp := diffmatchpatch.New()
	charsA, charsB, lineArray := dmp.DiffLinesToChars(terminate(a), terminate(b))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(charsA, charsB, false), lineArray)

	out := []DiffLine{}
	for _, d := range diffs {
		op := OpEqual
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			op = OpInsert
		case diffmatchpatch.DiffDelete:
			op = OpDelete
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			out = append(out, DiffLine{Op: op, Text: strings.TrimSuffix(line, "\n")})
		}
	}
	return out
}

// terminate makes the last line end in "\n" so that "x" and "x\n" compare
// as the same line.
func terminate(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	if s != "" && !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	return s
}

// Unified renders a unified diff with three lines of context, suitable for
// `patch`. Identical inputs give an empty string.
func Unified(a, b, fromName, toName string) (string, error) {
	out, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLines(a),
		B:        splitLines(b),
		FromFile: fromName,
		ToFile:   toName,
		Context:  3,
	})
	if err != nil {
		return "", fmt.Errorf("highlight: writing unified diff: %w", err)
	}
	return out, nil
}

// splitLines gives difflib one "\n"-terminated entry per line.
// difflib.SplitLines adds a newline to the last entry itself.
func splitLines(s string) []string {
	return difflib.SplitLines(strings.TrimSuffix(terminate(s), "\n"))
}
