package watch

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// OutputDiff describes how the generated page changed between two
// consecutive successful cycles.
type OutputDiff struct {
	// First is set for the first cycle of a session (nothing to compare).
	First   bool
	Added   int
	Removed int
}

// diffOutput counts added and removed lines between prev and curr.
func diffOutput(prev, curr []byte) OutputDiff {
	if prev == nil {
		return OutputDiff{First: true}
	}

	a := difflib.SplitLines(string(prev))
	b := difflib.SplitLines(string(curr))

	var d OutputDiff

	for _, op := range difflib.NewMatcher(a, b).GetOpCodes() {
		switch op.Tag {
		case 'r':
			d.Removed += op.I2 - op.I1
			d.Added += op.J2 - op.J1
		case 'd':
			d.Removed += op.I2 - op.I1
		case 'i':
			d.Added += op.J2 - op.J1
		}
	}

	return d
}

// Summary returns a human-readable one-line summary.
func (d OutputDiff) Summary() string {
	if d.First {
		return "initial build"
	}

	if d.Added == 0 && d.Removed == 0 {
		return "no output changes"
	}

	parts := make([]string, 0, 2)

	if d.Added > 0 {
		parts = append(parts, fmt.Sprintf("+%d line(s)", d.Added))
	}

	if d.Removed > 0 {
		parts = append(parts, fmt.Sprintf("-%d line(s)", d.Removed))
	}

	return strings.Join(parts, ", ")
}
