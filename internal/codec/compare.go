package codec

import (
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

// Canonical apparel size order.
var sizeOrder = map[string]int{
	"XXS":   0,
	"XS":    1,
	"S":     2,
	"M":     3,
	"L":     4,
	"XL":    5,
	"XXL":   6,
	"XXXL":  7,
	"XXXXL": 8,
}

const (
	rankNumeric = iota
	rankSize
	rankAlphanumeric
	rankText
)

func classify(v string) (int, float64) {
	s := strings.TrimSpace(v)
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return rankNumeric, f
	}
	if pos, ok := sizeOrder[strings.ToUpper(s)]; ok {
		return rankSize, float64(pos)
	}
	if strings.ContainsFunc(s, unicode.IsDigit) {
		return rankAlphanumeric, 0
	}
	return rankText, 0
}

// CompareValues orders facet values: numbers first (numerically), then size
// tokens XXS..XXXXL, then values mixing letters and digits in natural order,
// then everything else lexicographically.
func CompareValues(a, b string) int {
	ra, na := classify(a)
	rb, nb := classify(b)
	if ra != rb {
		return ra - rb
	}
	switch ra {
	case rankNumeric, rankSize:
		if na < nb {
			return -1
		}
		if na > nb {
			return 1
		}
	case rankAlphanumeric:
		if c := naturalCompare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
			return c
		}
	}
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// SortValues sorts values in place with CompareValues.
func SortValues(values []string) {
	slices.SortStableFunc(values, CompareValues)
}

func naturalCompare(a, b string) int {
	for a != "" && b != "" {
		ca, restA := chunk(a)
		cb, restB := chunk(b)
		da, db := isDigit(ca[0]), isDigit(cb[0])
		switch {
		case da && db:
			ta, tb := strings.TrimLeft(ca, "0"), strings.TrimLeft(cb, "0")
			if len(ta) != len(tb) {
				return len(ta) - len(tb)
			}
			if c := strings.Compare(ta, tb); c != 0 {
				return c
			}
		case da != db:
			if da {
				return -1
			}
			return 1
		default:
			if c := strings.Compare(ca, cb); c != 0 {
				return c
			}
		}
		a, b = restA, restB
	}
	return len(a) - len(b)
}

func chunk(s string) (string, string) {
	digit := isDigit(s[0])
	i := 1
	for i < len(s) && isDigit(s[i]) == digit {
		i++
	}
	return s[:i], s[i:]
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
