// Package gauge turns a normalized position into the arc segments of a
// half-circle doughnut gauge.
package gauge

import (
	"errors"
	"fmt"
	"math"
)

const (
	// PointerWidth is the share of the full circle taken by the pointer.
	PointerWidth = 0.02
	PointerColor = "red"

	third = 1.0 / 3
)

// TertileColors are the low, medium and high consumption bands.
var TertileColors = [3]string{
	"rgba(255, 200, 200, 0.4)",
	"rgba(255, 100, 100, 0.4)",
	"rgba(255, 50, 50, 0.4)",
}

var ErrPositionOutOfRange = errors.New("gauge position outside [0, 1]")

// Segment is one arc of the doughnut.
type Segment struct {
	Color string  `json:"color"`
	Value float64 `json:"value"`
}

// Segments returns the five arcs for position: the tertile holding the
// position is split around the pointer, the other two are emitted whole.
// Tertile boundaries belong to the upper tertile.
//
// The pointer is always PointerWidth wide. When it does not fit in what is
// left of its tertile it eats into the start of the next one; in the last
// tertile there is nothing after it, so the pointer is pulled back to end
// at 1 and its offset becomes 1-PointerWidth.
func Segments(position float64) ([]Segment, error) {
	if math.IsNaN(position) || position < 0 || position > 1 {
		return nil, fmt.Errorf("%w: %v", ErrPositionOutOfRange, position)
	}

	holder := tertileOf(position)
	widths := [3]float64{third, third, third}
	before := position - float64(holder)*third
	after := widths[holder] - before - PointerWidth
	if after < 0 {
		overflow := -after
		after = 0
		if holder < len(widths)-1 {
			widths[holder+1] -= overflow
		} else {
			before = math.Max(0, before-overflow)
		}
	}

	segments := make([]Segment, 0, 5)
	for i, color := range TertileColors {
		if i != holder {
			segments = append(segments, Segment{Color: color, Value: widths[i]})
			continue
		}
		segments = append(segments,
			Segment{Color: color, Value: before},
			Segment{Color: PointerColor, Value: PointerWidth},
			Segment{Color: color, Value: after},
		)
	}
	return segments, nil
}

func tertileOf(position float64) int {
	switch {
	case position < third:
		return 0
	case position < 2*third:
		return 1
	default:
		return 2
	}
}

// Normalize places actual between the cohort's smallest and largest values.
// A degenerate cohort puts everyone in the middle; the result is clamped
// because comparators can lag behind the subject's own value.
func Normalize(actual, smallest, largest float64) float64 {
	if largest == smallest {
		return 0.5
	}
	position := (actual - smallest) / (largest - smallest)
	switch {
	case math.IsNaN(position):
		return 0.5
	case position < 0:
		return 0
	case position > 1:
		return 1
	}
	return position
}

// Gauge is a rendered-ready gauge: where the subject sits and the arcs
// that draw it.
type Gauge struct {
	Actual   float64   `json:"actual"`
	Position float64   `json:"position"`
	Segments []Segment `json:"segments"`
}

// New normalizes actual against the cohort and segments the result.
func New(actual, smallest, largest float64) (Gauge, error) {
	position := Normalize(actual, smallest, largest)
	segments, err := Segments(position)
	if err != nil {
		return Gauge{}, err
	}
	return Gauge{Actual: actual, Position: position, Segments: segments}, nil
}
