// Package completeness decides whether a compiled chapter covers every verse
// its versification requires.
package completeness

import (
	"strconv"
	"strings"
)

// VerseCounter reports how many verses a chapter of a book has.
type VerseCounter interface {
	VerseCount(book string, chapter int) (int, error)
}

// Decision is the outcome of a completeness check.
type Decision struct {
	Required int
	// Missing lists the absent verse numbers in ascending order.
	Missing []int
	Retain  bool
}

// Reason is a short human description of the decision.
func (d Decision) Reason() string {
	if d.Retain {
		return "all " + strconv.Itoa(d.Required) + " verses present"
	}
	parts := make([]string, len(d.Missing))
	for i, v := range d.Missing {
		parts[i] = strconv.Itoa(v)
	}
	return "missing verses " + strings.Join(parts, ",")
}

// Check compares the verse labels present in a chapter with the verse count
// the table requires. The chapter is retained only when every verse from 1 to
// the required count is present. Labels that are not verse numbers, or that
// are out of range, do not affect the result. Lookup failures surface as
// services.ErrUnknownBook or services.ErrChapterOutOfRange.
func Check(table VerseCounter, book string, chapter int, present []string) (Decision, error) {
	required, err := table.VerseCount(book, chapter)
	if err != nil {
		return Decision{}, err
	}

	seen := make(map[int]struct{}, len(present))
	for _, label := range present {
		if n, ok := VerseNumber(label); ok {
			seen[n] = struct{}{}
		}
	}

	decision := Decision{Required: required}
	for v := 1; v <= required; v++ {
		if _, ok := seen[v]; !ok {
			decision.Missing = append(decision.Missing, v)
		}
	}
	decision.Retain = len(decision.Missing) == 0
	return decision, nil
}

// NormalizeLabel trims whitespace and one leading "v" or "V", so "v3" and
// " 3" both become "3".
func NormalizeLabel(label string) string {
	label = strings.TrimSpace(label)
	if len(label) > 0 && (label[0] == 'v' || label[0] == 'V') {
		label = strings.TrimSpace(label[1:])
	}
	return label
}

// VerseNumber parses a normalized label as a verse number.
func VerseNumber(label string) (int, bool) {
	n, err := strconv.Atoi(NormalizeLabel(label))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
