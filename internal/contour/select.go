// Package contour holds the foreground selection policy applied to the
// areas of the external contours found in a binary mask.
//
// The contour with the largest area is the primary foreground. Any other
// contour whose area times the ratio (20 by default, i.e. more than 5% of the
// primary) strictly exceeds the primary's area is kept as a secondary blob,
// which covers objects that threshold into several disjoint parts.
package contour

import (
	"errors"
	"sort"
)

// DefaultRatio keeps secondary contours larger than 1/20 of the primary.
const DefaultRatio = 20

// ErrNoContours is returned when there is nothing to select from.
var ErrNoContours = errors.New("no contours")

// Mode controls which indices are eligible as secondary contours.
type Mode int

const (
	// ModeLegacy evaluates secondaries from index 1 on. A contour at index 0
	// that is not the primary is never kept, however large.
	ModeLegacy Mode = iota
	// ModeScanAll evaluates every index other than the primary.
	ModeScanAll
)

func (m Mode) String() string {
	switch m {
	case ModeLegacy:
		return "legacy"
	case ModeScanAll:
		return "scan_all"
	default:
		return "unknown"
	}
}

// ParseMode maps a configuration value onto a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "legacy":
		return ModeLegacy, nil
	case "scan_all":
		return ModeScanAll, nil
	default:
		return ModeLegacy, errors.New("unknown contour scan mode " + s)
	}
}

// Selection is the outcome of Select.
type Selection struct {
	Primary   int
	Secondary []int
	MaxArea   float64
}

// Indices returns primary and secondary indices in ascending order.
func (s Selection) Indices() []int {
	out := make([]int, 0, 1+len(s.Secondary))
	out = append(out, s.Primary)
	out = append(out, s.Secondary...)
	sort.Ints(out)
	return out
}

// Select picks the primary and secondary contours from areas.
// ratio <= 1 falls back to DefaultRatio.
func Select(areas []float64, ratio float64, mode Mode) (Selection, error) {
	if len(areas) == 0 {
		return Selection{}, ErrNoContours
	}
	if ratio <= 1 {
		ratio = DefaultRatio
	}

	// Index 0 seeds the maximum; only strictly larger areas replace it, so
	// the first of several equal maxima wins.
	primary := 0
	maxArea := areas[0]
	for i := 1; i < len(areas); i++ {
		if areas[i] > maxArea {
			primary = i
			maxArea = areas[i]
		}
	}

	start := 1
	if mode == ModeScanAll {
		start = 0
	}

	var secondary []int
	for i := start; i < len(areas); i++ {
		if i == primary {
			continue
		}
		if areas[i]*ratio > maxArea {
			secondary = append(secondary, i)
		}
	}

	return Selection{Primary: primary, Secondary: secondary, MaxArea: maxArea}, nil
}
