// Package stats handles user-supplied stat input: numeral normalization,
// value validation and parsing of whole pasted stat blocks.
package stats

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrNotNumber means the input is not a parseable number.
	ErrNotNumber = errors.New("stats: not a number")

	// ErrNegative means the input parsed but is below zero.
	ErrNegative = errors.New("stats: negative value")
)

// fullWidthZero..fullWidthNine is the zenkaku digit block.
const (
	fullWidthZero = '０'
	fullWidthNine = '９'
)

// Fold converts full-width digits and separators to their ASCII forms.
// Users on Japanese IMEs routinely type ５００ or ０．５.
func Fold(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= fullWidthZero && r <= fullWidthNine:
			b.WriteRune('0' + (r - fullWidthZero))
		case r == '．':
			b.WriteRune('.')
		case r == '　':
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParseValue folds and parses a single answer. Only finite, non-negative
// values are accepted; words that strconv happens to accept (NaN, Inf) are
// rejected as non-numbers.
func ParseValue(s string) (float64, error) {
	folded := strings.TrimSpace(Fold(s))
	if folded == "" {
		return 0, ErrNotNumber
	}

	v, err := strconv.ParseFloat(folded, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrNotNumber
	}
	if v < 0 {
		return 0, ErrNegative
	}
	return v, nil
}
