package estimator

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	apperrors "covidcli/internal/errors"
	"covidcli/internal/series"
)

// Fit is a straight line fitted to a log10 series over a closed date range.
type Fit struct {
	Start     time.Time
	End       time.Time
	Slope     float64 // log10 units per day
	Intercept float64 // value of the line at x = 0, the day before Start
	Points    int     // valid observations used

	Log    series.Daily // fitted line over [Start, End]
	Linear series.Daily // 10^Log
}

// FitSegment fits log10 values in [start, end] by least squares against the
// day position x = 1..N. Missing values are skipped but the fitted line
// covers every day of the range.
func FitSegment(log series.Daily, start, end time.Time) (*Fit, error) {
	segment, err := log.Slice(start, end)
	if err != nil {
		return nil, err
	}

	xs := make([]float64, 0, segment.Len())
	ys := make([]float64, 0, segment.Len())
	for i := 0; i < segment.Len(); i++ {
		if v := segment.At(i); !math.IsNaN(v) && !math.IsInf(v, 0) {
			xs = append(xs, float64(i+1))
			ys = append(ys, v)
		}
	}
	if len(xs) < 2 {
		return nil, apperrors.NewInsufficientDataError(
			fmt.Sprintf("fit %s..%s needs at least 2 valid points, found %d",
				segment.Start().Format(time.DateOnly), segment.End().Format(time.DateOnly), len(xs)),
			len(xs), 2)
	}

	intercept, slope := stat.LinearRegression(xs, ys, nil, false)

	line := make([]float64, segment.Len())
	for i := range line {
		line[i] = intercept + slope*float64(i+1)
	}
	fitted := series.New(log.Name()+" (fit)", segment.Start(), line)

	return &Fit{
		Start:     segment.Start(),
		End:       segment.End(),
		Slope:     slope,
		Intercept: intercept,
		Points:    len(xs),
		Log:       fitted,
		Linear:    fitted.Pow10(),
	}, nil
}

// GrowthFactor is the daily multiplicative change implied by the slope.
func (f *Fit) GrowthFactor() float64 {
	return math.Pow(10, f.Slope)
}

// DoublingDays is the number of days for the fitted value to double. It is
// negative for a decline, where its magnitude is the halving time, and
// infinite for a flat line.
func (f *Fit) DoublingDays() float64 {
	if f.Slope == 0 {
		return math.Inf(1)
	}
	return math.Log10(2) / f.Slope
}

// Segment is a named date range to fit.
type Segment struct {
	Label string
	Start time.Time
	End   time.Time
}

// SegmentResult pairs a segment with its fit or the reason it failed.
type SegmentResult struct {
	Segment Segment
	Fit     *Fit
	Err     error
}

// FitSegments fits each segment independently. A failing segment does not
// affect the others.
func FitSegments(log series.Daily, segments []Segment) []SegmentResult {
	results := make([]SegmentResult, len(segments))
	for i, seg := range segments {
		fit, err := FitSegment(log, seg.Start, seg.End)
		results[i] = SegmentResult{Segment: seg, Fit: fit, Err: err}
	}
	return results
}
