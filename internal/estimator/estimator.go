package estimator

import (
	"fmt"
	"math"
	"time"

	"covidcli/internal/config"
	apperrors "covidcli/internal/errors"
	"covidcli/internal/series"
)

// Column names used when an estimate is flattened into a frame.
const (
	ColumnRaw        = "deaths (raw)"
	ColumnRolling    = "infections (rolling)"
	ColumnInfections = "infections"
	ColumnLog        = "infections (log)"
)

// Options controls the estimation. Zero Start/End select the span of the raw
// series.
type Options struct {
	LagDays    int
	Window     int
	MinPeriods int
	Tolerance  float64
	Start      time.Time
	End        time.Time
}

// DefaultOptions returns a 28-day lag with a 7-day centred window.
func DefaultOptions() Options {
	return NewOptions(config.Default().Estimator)
}

// NewOptions converts the estimator configuration.
func NewOptions(cfg config.EstimatorConfig) Options {
	return Options{
		LagDays:    cfg.LagDays,
		Window:     cfg.Window,
		MinPeriods: cfg.MinPeriods,
		Tolerance:  cfg.Tolerance,
	}
}

// WithRange returns a copy of o restricted to the display range [start, end].
func (o Options) WithRange(start, end time.Time) Options {
	o.Start, o.End = start, end
	return o
}

func (o Options) validate() error {
	switch {
	case o.LagDays < 0:
		return apperrors.NewAppValidationError(fmt.Sprintf("lag must not be negative, got %d", o.LagDays))
	case o.Window < 1:
		return apperrors.NewAppValidationError(fmt.Sprintf("window must be at least 1, got %d", o.Window))
	case o.MinPeriods > o.Window:
		return apperrors.NewAppValidationError(
			fmt.Sprintf("min periods %d exceeds window %d", o.MinPeriods, o.Window))
	case !(o.Tolerance > 0):
		return apperrors.NewAppValidationError(fmt.Sprintf("tolerance must be positive, got %g", o.Tolerance))
	}
	return nil
}

// Result is the fatal-infection estimate for one region, with every series
// on the display index.
type Result struct {
	Region     string
	Raw        series.Daily // deaths as registered
	Rolling    series.Daily // shifted and smoothed, before correction
	Infections series.Daily // corrected fatal infections
	Log        series.Daily // log10 of Infections

	// Correction is the factor applied to the smoothed series.
	Correction float64
	// Ratio is corrected total over raw total across the working range.
	Ratio float64
}

// Estimate converts daily death registrations into estimated daily fatal
// infections. Deaths are attributed LagDays earlier, smoothed with a centred
// window and rescaled so that the smoothed series keeps the raw total.
func Estimate(raw series.Daily, opts Options) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if raw.Len() == 0 {
		return nil, apperrors.NewInputShapeError(fmt.Sprintf("series %q is empty", raw.Name()))
	}

	start, end := opts.Start, opts.End
	if start.IsZero() {
		start = raw.Start()
	}
	if end.IsZero() {
		end = raw.End()
	}
	start, end = series.Midnight(start), series.Midnight(end)
	if start.After(end) {
		return nil, apperrors.NewInvertedRangeError(start, end)
	}

	workStart := raw.Start().AddDate(0, 0, -opts.LagDays)
	if start.Before(workStart) || end.After(raw.End()) {
		return nil, apperrors.NewRangeError(start, end, workStart, raw.End())
	}

	extended := raw.Reindex(workStart, raw.End())
	shifted := extended.Shift(-opts.LagDays)
	rolling := shifted.RollingMean(opts.Window, opts.MinPeriods)

	smoothedTotal := rolling.Sum()
	if smoothedTotal == 0 || math.IsNaN(smoothedTotal) {
		return nil, apperrors.NewConservationError(math.NaN(), opts.Tolerance).
			WithContext("region", raw.Name()).
			WithContext("reason", "smoothed series has no mass")
	}
	correction := shifted.Sum() / smoothedTotal
	infections := rolling.Scale(correction)

	ratio := infections.Sum() / raw.Sum()
	if math.IsNaN(ratio) || math.Abs(ratio-1) > opts.Tolerance {
		return nil, apperrors.NewConservationError(ratio, opts.Tolerance).
			WithContext("region", raw.Name())
	}

	est := &Result{
		Region:     raw.Name(),
		Correction: correction,
		Ratio:      ratio,
	}
	est.Raw = extended.Between(start, end).Rename(ColumnRaw)
	est.Rolling = rolling.Between(start, end).Rename(ColumnRolling)
	est.Infections = infections.Between(start, end).Rename(ColumnInfections)
	est.Log = infections.Log10().Between(start, end).Rename(ColumnLog)
	return est, nil
}

// EstimateRegion selects region from frame and estimates it.
func EstimateRegion(frame series.Frame, region string, opts Options) (*Result, error) {
	raw, err := frame.Column(region)
	if err != nil {
		return nil, err
	}
	return Estimate(raw, opts)
}

// Frame returns the estimate as a frame of its four series.
func (e *Result) Frame() series.Frame {
	f, _ := series.NewFrame(e.Raw, e.Rolling, e.Infections, e.Log)
	return f
}
