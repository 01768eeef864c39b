package series

import (
	"fmt"
	"math"
	"time"

	"github.com/montanaflynn/stats"

	apperrors "covidcli/internal/errors"
)

// Point is one dated observation.
type Point struct {
	Date  time.Time
	Value float64
}

// Daily is an immutable series with one value per calendar day starting at
// Start. Missing days are NaN, never omitted.
type Daily struct {
	name   string
	start  time.Time
	values []float64
}

// New creates a daily series. values is copied.
func New(name string, start time.Time, values []float64) Daily {
	v := make([]float64, len(values))
	copy(v, values)
	return Daily{name: name, start: Midnight(start), values: v}
}

// Missing creates a series of n missing values.
func Missing(name string, start time.Time, n int) Daily {
	v := make([]float64, n)
	for i := range v {
		v[i] = math.NaN()
	}
	return Daily{name: name, start: Midnight(start), values: v}
}

// FromDates builds a series from explicit dates, which must advance by
// exactly one day per row.
func FromDates(name string, dates []time.Time, values []float64) (Daily, error) {
	if len(dates) != len(values) {
		return Daily{}, apperrors.NewInputShapeError(
			fmt.Sprintf("%d dates but %d values", len(dates), len(values)))
	}
	if len(dates) == 0 {
		return Daily{name: name}, nil
	}
	for i := 1; i < len(dates); i++ {
		if step := DaysBetween(dates[i-1], dates[i]); step != 1 {
			return Daily{}, apperrors.NewInputShapeError(
				fmt.Sprintf("series %q is not daily: %s to %s is %d days", name,
					dates[i-1].Format(time.DateOnly), dates[i].Format(time.DateOnly), step)).
				WithContext("row", i)
		}
	}
	return New(name, dates[0], values), nil
}

// FromPoints builds a series over the span of points, filling absent days
// with NaN. Later duplicates overwrite earlier ones.
func FromPoints(name string, points []Point) Daily {
	if len(points) == 0 {
		return Daily{name: name}
	}
	first, last := Midnight(points[0].Date), Midnight(points[0].Date)
	for _, p := range points[1:] {
		d := Midnight(p.Date)
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}
	s := Missing(name, first, DaysBetween(first, last)+1)
	for _, p := range points {
		s.values[DaysBetween(first, p.Date)] = p.Value
	}
	return s
}

func (s Daily) Name() string { return s.name }

func (s Daily) Start() time.Time { return s.start }

func (s Daily) Len() int { return len(s.values) }

func (s Daily) At(i int) float64 { return s.values[i] }

// Date returns the date at position i.
func (s Daily) Date(i int) time.Time { return s.start.AddDate(0, 0, i) }

// End returns the last date of the series.
func (s Daily) End() time.Time {
	if len(s.values) == 0 {
		return s.start
	}
	return s.Date(len(s.values) - 1)
}

// Values returns a copy of the underlying values.
func (s Daily) Values() []float64 {
	v := make([]float64, len(s.values))
	copy(v, s.values)
	return v
}

// Dates returns the index of the series.
func (s Daily) Dates() []time.Time {
	if len(s.values) == 0 {
		return nil
	}
	return DateRange(s.start, s.End())
}

// Points returns the series as dated observations.
func (s Daily) Points() []Point {
	pts := make([]Point, len(s.values))
	for i, v := range s.values {
		pts[i] = Point{Date: s.Date(i), Value: v}
	}
	return pts
}

// IndexOf returns the position of date, and false if it is outside the index.
func (s Daily) IndexOf(date time.Time) (int, bool) {
	i := DaysBetween(s.start, date)
	return i, i >= 0 && i < len(s.values)
}

// ValueAt returns the value on date; ok is false outside the index.
func (s Daily) ValueAt(date time.Time) (float64, bool) {
	i, ok := s.IndexOf(date)
	if !ok {
		return math.NaN(), false
	}
	return s.values[i], true
}

// Rename returns the same values under a new name.
func (s Daily) Rename(name string) Daily {
	return Daily{name: name, start: s.start, values: s.values}
}

// Reindex conforms the series to [start, end]; new dates are missing.
func (s Daily) Reindex(start, end time.Time) Daily {
	start, end = Midnight(start), Midnight(end)
	n := DaysBetween(start, end) + 1
	if n < 0 {
		n = 0
	}
	out := Missing(s.name, start, n)
	offset := DaysBetween(start, s.start)
	for i, v := range s.values {
		if j := i + offset; j >= 0 && j < n {
			out.values[j] = v
		}
	}
	return out
}

// Shift moves values by periods positions along a fixed index: a negative
// shift attributes the value on day D to day D+periods. Values shifted past
// either end are dropped and vacated positions become missing.
func (s Daily) Shift(periods int) Daily {
	out := Missing(s.name, s.start, len(s.values))
	for i := range out.values {
		if j := i - periods; j >= 0 && j < len(s.values) {
			out.values[i] = s.values[j]
		}
	}
	return out
}

// RollingMean is a centred moving average of width window. For an even
// window the centre sits right of the midpoint. A position is missing unless
// its window, clipped to the series, holds at least minPeriods valid values;
// minPeriods <= 0 means the whole window.
func (s Daily) RollingMean(window, minPeriods int) Daily {
	if minPeriods <= 0 || minPeriods > window {
		minPeriods = window
	}
	offset := (window - 1) / 2
	out := Missing(s.name, s.start, len(s.values))
	buf := make([]float64, 0, window)

	for i := range s.values {
		hi := i + offset
		lo := hi - window + 1
		buf = buf[:0]
		for j := max(lo, 0); j <= hi && j < len(s.values); j++ {
			if v := s.values[j]; !math.IsNaN(v) {
				buf = append(buf, v)
			}
		}
		if len(buf) == 0 || len(buf) < minPeriods {
			continue
		}
		mean, err := stats.Mean(buf)
		if err != nil {
			continue
		}
		out.values[i] = mean
	}
	return out
}

// Map applies f to every value, including missing ones.
func (s Daily) Map(f func(float64) float64) Daily {
	out := Daily{name: s.name, start: s.start, values: make([]float64, len(s.values))}
	for i, v := range s.values {
		out.values[i] = f(v)
	}
	return out
}

// Scale multiplies every value by factor.
func (s Daily) Scale(factor float64) Daily {
	return s.Map(func(v float64) float64 { return v * factor })
}

// Log10 takes the base-10 logarithm; values <= 0 or missing become missing.
func (s Daily) Log10() Daily {
	return s.Map(func(v float64) float64 {
		if math.IsNaN(v) || v <= 0 {
			return math.NaN()
		}
		return math.Log10(v)
	})
}

// Pow10 raises ten to every value.
func (s Daily) Pow10() Daily {
	return s.Map(func(v float64) float64 { return math.Pow(10, v) })
}

// Valid returns the non-missing values in date order.
func (s Daily) Valid() []float64 {
	out := make([]float64, 0, len(s.values))
	for _, v := range s.values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// Count returns the number of non-missing values.
func (s Daily) Count() int {
	return len(s.Valid())
}

// Sum adds the non-missing values; an all-missing series sums to 0.
func (s Daily) Sum() float64 {
	sum, err := stats.Sum(s.Valid())
	if err != nil {
		return 0
	}
	return sum
}

// Max returns the largest non-missing value, or NaN if there is none.
func (s Daily) Max() float64 {
	m, err := stats.Max(s.Valid())
	if err != nil {
		return math.NaN()
	}
	return m
}

// CumSum is the running total; missing values leave the total unchanged and
// stay missing in the output.
func (s Daily) CumSum() Daily {
	out := Missing(s.name, s.start, len(s.values))
	total := 0.0
	for i, v := range s.values {
		if math.IsNaN(v) {
			continue
		}
		total += v
		out.values[i] = total
	}
	return out
}

// NormalizeMax divides by the largest value so the peak is 1.
func (s Daily) NormalizeMax() (Daily, error) {
	m := s.Max()
	if math.IsNaN(m) || m == 0 {
		return Daily{}, apperrors.NewInsufficientDataError(
			fmt.Sprintf("series %q has no positive peak to normalize by", s.name), s.Count(), 1)
	}
	return s.Scale(1 / m), nil
}

// Slice returns the closed range [start, end], which must lie within the index.
func (s Daily) Slice(start, end time.Time) (Daily, error) {
	start, end = Midnight(start), Midnight(end)
	if start.After(end) {
		return Daily{}, apperrors.NewInvertedRangeError(start, end)
	}
	i, okStart := s.IndexOf(start)
	j, okEnd := s.IndexOf(end)
	if !okStart || !okEnd {
		return Daily{}, apperrors.NewRangeError(start, end, s.start, s.End())
	}
	return New(s.name, start, s.values[i:j+1]), nil
}

// Between returns the part of the series inside [start, end], clipped to the
// index. The result may be empty.
func (s Daily) Between(start, end time.Time) Daily {
	start, end = Midnight(start), Midnight(end)
	if start.Before(s.start) {
		start = s.start
	}
	if end.After(s.End()) {
		end = s.End()
	}
	if len(s.values) == 0 || end.Before(start) {
		return Daily{name: s.name, start: start}
	}
	i, _ := s.IndexOf(start)
	j, _ := s.IndexOf(end)
	return New(s.name, start, s.values[i:j+1])
}

// MonthlySum sums each calendar month, dated on the month's last day.
func (s Daily) MonthlySum() []Point {
	var out []Point
	for i, v := range s.values {
		d := s.Date(i)
		monthEnd := time.Date(d.Year(), d.Month()+1, 0, 0, 0, 0, 0, time.UTC)
		if len(out) == 0 || !out[len(out)-1].Date.Equal(monthEnd) {
			out = append(out, Point{Date: monthEnd})
		}
		if !math.IsNaN(v) {
			out[len(out)-1].Value += v
		}
	}
	return out
}

// Equal reports whether two series share index and values, treating NaN as equal.
func (s Daily) Equal(o Daily) bool {
	if !s.start.Equal(o.start) || len(s.values) != len(o.values) {
		return false
	}
	for i := range s.values {
		a, b := s.values[i], o.values[i]
		if a != b && !(math.IsNaN(a) && math.IsNaN(b)) {
			return false
		}
	}
	return true
}
