package chart

import (
	"fmt"
	"image/color"
	"math"
	"time"

	apperrors "covidcli/internal/errors"
	"covidcli/internal/estimator"
	"covidcli/internal/series"
)

// Figure is a grid of panels filled row by row.
type Figure struct {
	Title  string
	Cols   int
	Panels []Panel
}

// Panel is one set of axes.
type Panel struct {
	Title  string
	XLabel string
	YLabel string

	// Time marks X values as Unix seconds and enables date ticks, regions
	// and events.
	Time bool

	Lines   []Line
	Regions []Region
	Events  []Event
	Limits  *Limits
}

// Limits fixes the Y axis range.
type Limits struct {
	Min float64
	Max float64
}

// Line is a polyline. Missing Y values break the line.
type Line struct {
	Label  string
	X      []float64
	Y      []float64
	Color  color.Color
	Faint  bool
	Fill   bool
	Dashed bool
}

// Region shades the dates [Start, End].
type Region struct {
	Label string
	Start time.Time
	End   time.Time
	Color color.Color
}

// Event marks a single date, numbered in order of appearance.
type Event struct {
	Date  time.Time
	Label string
}

// DateLine plots a daily series against its dates.
func DateLine(label string, s series.Daily, c color.Color) Line {
	xs := make([]float64, s.Len())
	for i := range xs {
		xs[i] = TimeX(s.Date(i))
	}
	return Line{Label: label, X: xs, Y: s.Values(), Color: c}
}

// OffsetLine plots ys against 0, 1, 2, ...
func OffsetLine(label string, ys []float64, c color.Color) Line {
	xs := make([]float64, len(ys))
	for i := range xs {
		xs[i] = float64(i)
	}
	return Line{Label: label, X: xs, Y: append([]float64(nil), ys...), Color: c}
}

// FitLines returns the fitted line on the linear and on the log scale.
func FitLines(label string, fit *estimator.Fit, c color.Color) (linear, log Line) {
	return DateLine(label, fit.Linear, c), DateLine(label, fit.Log, c)
}

// TimeX converts a date to the X coordinate of a time panel.
func TimeX(t time.Time) float64 {
	return float64(t.Unix())
}

func (f Figure) cols() int {
	if f.Cols <= 0 || f.Cols > len(f.Panels) {
		return len(f.Panels)
	}
	return f.Cols
}

func (f Figure) validate() error {
	if len(f.Panels) == 0 {
		return apperrors.NewAppValidationError(fmt.Sprintf("figure %q has no panels", f.Title))
	}
	for i, p := range f.Panels {
		if err := p.validate(); err != nil {
			return fmt.Errorf("panel %d: %w", i+1, err)
		}
	}
	return nil
}

func (p Panel) validate() error {
	for _, l := range p.Lines {
		if len(l.X) != len(l.Y) {
			return apperrors.NewInputShapeError(
				fmt.Sprintf("line %q has %d x values and %d y values", l.Label, len(l.X), len(l.Y)))
		}
	}
	if !p.Time && (len(p.Regions) > 0 || len(p.Events) > 0) {
		return apperrors.NewAppValidationError("regions and events need a time axis")
	}
	for _, r := range p.Regions {
		if r.Start.After(r.End) {
			return apperrors.NewInvertedRangeError(r.Start, r.End)
		}
	}
	if p.Limits != nil && !(p.Limits.Min < p.Limits.Max) {
		return apperrors.NewAppValidationError(
			fmt.Sprintf("y limits [%g, %g] are empty", p.Limits.Min, p.Limits.Max))
	}
	return nil
}

// yRange is the span of the plotted data, or Limits when set.
func (p Panel) yRange() (float64, float64) {
	if p.Limits != nil {
		return p.Limits.Min, p.Limits.Max
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, l := range p.Lines {
		for _, y := range l.Y {
			if math.IsNaN(y) || math.IsInf(y, 0) {
				continue
			}
			lo, hi = math.Min(lo, y), math.Max(hi, y)
		}
	}
	if math.IsInf(lo, 1) {
		return 0, 1
	}
	if lo == hi {
		return lo - 0.5, hi + 0.5
	}
	return lo, hi
}
