// Package effectiveness estimates vaccine effectiveness by the screening
// method: from the proportion of the population vaccinated (PPV) and the
// proportion of cases vaccinated (PCV).
package effectiveness

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	apperrors "covidcli/internal/errors"
)

// Ratio is the odds of a case being vaccinated relative to the odds of a
// person being vaccinated: (pcv/(1-pcv)) * ((1-ppv)/ppv).
// ppv must lie in (0, 1] and pcv in [0, 1).
func Ratio(ppv, pcv float64) (float64, error) {
	if math.IsNaN(ppv) || ppv <= 0 || ppv > 1 {
		return 0, apperrors.NewDomainError(fmt.Sprintf("proportion of population vaccinated must be in (0, 1], got %g", ppv)).
			WithContext("ppv", ppv)
	}
	if math.IsNaN(pcv) || pcv < 0 || pcv >= 1 {
		return 0, apperrors.NewDomainError(fmt.Sprintf("proportion of cases vaccinated must be in [0, 1), got %g", pcv)).
			WithContext("pcv", pcv)
	}
	return (pcv / (1 - pcv)) * ((1 - ppv) / ppv), nil
}

// Effectiveness is 1 - Ratio.
func Effectiveness(ppv, pcv float64) (float64, error) {
	r, err := Ratio(ppv, pcv)
	if err != nil {
		return 0, err
	}
	return 1 - r, nil
}

// Point is one evaluation of the curve.
type Point struct {
	PPV   float64
	Ratio float64
}

// Curve evaluates Ratio at every ppv for a fixed pcv. The first value
// outside the domain fails the whole curve.
func Curve(ppvs []float64, pcv float64) ([]Point, error) {
	out := make([]Point, len(ppvs))
	for i, ppv := range ppvs {
		r, err := Ratio(ppv, pcv)
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
		out[i] = Point{PPV: ppv, Ratio: r}
	}
	return out, nil
}

// Grid returns n evenly spaced proportions from lo to hi inclusive.
func Grid(lo, hi float64, n int) []float64 {
	if n < 2 {
		return []float64{lo}
	}
	return floats.Span(make([]float64, n), lo, hi)
}
