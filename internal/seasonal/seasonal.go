// Package seasonal compares deaths with the seasons: solar declination,
// the Hope-Simpson influenza profile and post-peak declines.
package seasonal

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	apperrors "covidcli/internal/errors"
	"covidcli/internal/estimator"
	"covidcli/internal/series"
)

// Column names of DeclinationFrame.
const (
	ColumnWinter = "solar angle (winter)"
	ColumnSummer = "solar angle (summer)"
	ColumnHope   = "Hope-Simpson"
)

// Declination is the solar declination in degrees on date, approximated as
// 23.5·cos(2π(n−172)/365) with n the day of the year (1 Jan = 1).
func Declination(date time.Time) float64 {
	n := date.YearDay()
	return 23.5 * math.Cos(2*math.Pi*float64(n-172)/365)
}

// DeclinationFrame returns the declination over [start, end] split into a
// winter column (angle <= 0) and a summer column (angle >= 0). Each column
// is missing on the days that belong to the other.
func DeclinationFrame(start, end time.Time) (series.Frame, error) {
	start, end = series.Midnight(start), series.Midnight(end)
	if start.After(end) {
		return series.Frame{}, apperrors.NewInvertedRangeError(start, end)
	}

	dates := series.DateRange(start, end)
	winter := make([]float64, len(dates))
	summer := make([]float64, len(dates))
	for i, d := range dates {
		a := Declination(d)
		winter[i], summer[i] = math.NaN(), math.NaN()
		if a <= 0 {
			winter[i] = a
		}
		if a >= 0 {
			summer[i] = a
		}
	}
	return series.NewFrame(
		series.New(ColumnWinter, start, winter),
		series.New(ColumnSummer, start, summer),
	)
}

// HopeSimpson is the share (%) of epidemic influenza by month in the
// northern temperate zone, 1964-1975. Hope-Simpson, R.E. (1981) The role of
// season in the epidemiology of influenza.
var HopeSimpson = map[time.Month]float64{
	time.July:      0,
	time.August:    0,
	time.September: 4.1,
	time.October:   2.2,
	time.November:  4.2,
	time.December:  13.8,
	time.January:   35.6,
	time.February:  19.1,
	time.March:     16.8,
	time.April:     4.2,
	time.May:       0,
	time.June:      0,
}

// Season returns the 1 July to 30 June winter season starting in year.
func Season(year int) (time.Time, time.Time) {
	return time.Date(year, time.July, 1, 0, 0, 0, 0, time.UTC),
		time.Date(year+1, time.June, 30, 0, 0, 0, 0, time.UTC)
}

// HopeSimpsonProfile spreads the monthly Hope-Simpson shares over every day
// of the season starting in year.
func HopeSimpsonProfile(year int) series.Daily {
	start, end := Season(year)
	dates := series.DateRange(start, end)
	values := make([]float64, len(dates))
	for i, d := range dates {
		values[i] = HopeSimpson[d.Month()]
	}
	return series.New(ColumnHope, start, values)
}

// WinterMonthly returns the deaths of each month of the season starting in
// year as a percentage of the season's total. Months the series does not
// reach are missing, so there are always twelve points.
func WinterMonthly(deaths series.Daily, year int) ([]series.Point, error) {
	start, end := Season(year)
	season := deaths.Between(start, end)
	total := season.Sum()
	if season.Count() == 0 || total == 0 {
		return nil, apperrors.NewInsufficientDataError(
			fmt.Sprintf("no deaths in the %d/%d season", year, year+1), season.Count(), 1)
	}

	sums := map[time.Time]float64{}
	for _, p := range season.MonthlySum() {
		sums[p.Date] = p.Value
	}

	out := make([]series.Point, 12)
	for i := range out {
		monthEnd := time.Date(year, time.July+time.Month(i)+1, 0, 0, 0, 0, 0, time.UTC)
		v, ok := sums[monthEnd]
		if !ok {
			out[i] = series.Point{Date: monthEnd, Value: math.NaN()}
			continue
		}
		out[i] = series.Point{Date: monthEnd, Value: v / total * 100}
	}

	slog.Debug("Computed winter monthly shares",
		slog.Int("season", year),
		slog.Float64("total", total))
	return out, nil
}

// Window selects a post-peak decline and the number of days from the peak
// used to fit it.
type Window struct {
	Label   string
	Start   time.Time
	End     time.Time
	FitDays int
}

// DefaultWindows are the England spring 2020 and winter 2021 declines.
func DefaultWindows() []Window {
	return []Window{
		{Label: "2020", Start: series.MustParseDate("2020-03-20"), End: series.MustParseDate("2020-07-31"), FitDays: 90},
		{Label: "2021", Start: series.MustParseDate("2021-01-15"), End: series.MustParseDate("2021-04-30"), FitDays: 50},
	}
}

// Decline is one window normalized to its peak. Values[0] is the first day
// of the window.
type Decline struct {
	Window Window
	Values []float64
	Fit    *estimator.Fit
}

// Days returns the offsets 0..n-1 of Values.
func (d Decline) Days() []float64 {
	out := make([]float64, len(d.Values))
	for i := range out {
		out[i] = float64(i)
	}
	return out
}

// HalvingDays is the number of days for the fitted decline to halve.
func (d Decline) HalvingDays() float64 {
	if d.Fit == nil {
		return math.NaN()
	}
	return -d.Fit.DoublingDays()
}

// IsolateDecline cuts [w.Start, w.End] from infections and divides it by its
// maximum. Days outside the series are missing.
func IsolateDecline(infections series.Daily, w Window) (series.Daily, error) {
	start, end := series.Midnight(w.Start), series.Midnight(w.End)
	if start.After(end) {
		return series.Daily{}, apperrors.NewInvertedRangeError(start, end)
	}
	return infections.Reindex(start, end).Rename(w.Label).NormalizeMax()
}

// CompareDeclines isolates each window and fits a straight line to the log10
// of its first FitDays days, or all of it when shorter.
func CompareDeclines(infections series.Daily, windows []Window) ([]Decline, error) {
	out := make([]Decline, 0, len(windows))
	for _, w := range windows {
		norm, err := IsolateDecline(infections, w)
		if err != nil {
			return nil, fmt.Errorf("decline %s: %w", w.Label, err)
		}

		days := w.FitDays
		if days > norm.Len() || days <= 0 {
			days = norm.Len()
		}
		fit, err := estimator.FitSegment(norm.Log10(), norm.Start(), norm.Date(days-1))
		if err != nil {
			return nil, fmt.Errorf("decline %s: %w", w.Label, err)
		}

		slog.Debug("Fitted decline",
			slog.String("label", w.Label),
			slog.Int("points", fit.Points),
			slog.Float64("slope", fit.Slope))

		out = append(out, Decline{Window: w, Values: norm.Values(), Fit: fit})
	}
	return out, nil
}
