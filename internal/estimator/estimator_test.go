package estimator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "covidcli/internal/errors"
	"covidcli/internal/series"
)

var start = time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC)

func constant(name string, n int, v float64) series.Daily {
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = v
	}
	return series.New(name, start, vals)
}

// registrations looks like published death counts: a wave with nothing
// registered at weekends.
func registrations(n int) series.Daily {
	vals := make([]float64, n)
	for i := range vals {
		d := start.AddDate(0, 0, i)
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		vals[i] = math.Round(800 * math.Exp(-math.Pow(float64(i-45)/20, 2)))
	}
	return series.New("England", start, vals)
}

func TestEstimate_ConservesMass(t *testing.T) {
	gappy := registrations(150).Values()
	for i := 7; i < len(gappy); i += 23 {
		gappy[i] = math.NaN()
	}

	tests := []struct {
		name string
		raw  series.Daily
		opts Options
	}{
		{"weekend zeros", registrations(150), DefaultOptions()},
		{"missing days", series.New("Wales", start, gappy), DefaultOptions()},
		{"relaxed window", series.New("Wales", start, gappy), Options{LagDays: 21, Window: 5, MinPeriods: 3, Tolerance: 1e-7}},
		{"no lag", registrations(90), Options{LagDays: 0, Window: 7, Tolerance: 1e-7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est, err := Estimate(tt.raw, tt.opts.WithRange(
				start.AddDate(0, 0, -tt.opts.LagDays), tt.raw.End()))
			require.NoError(t, err)

			assert.InDelta(t, 1.0, est.Infections.Sum()/tt.raw.Sum(), 1e-7)
			assert.InDelta(t, 1.0, est.Ratio, 1e-7)
			assert.Greater(t, est.Correction, 0.0)
		})
	}
}

func TestEstimate_ImpulseLandsLagDaysEarlier(t *testing.T) {
	const (
		impulseDay = 60
		mass       = 1000.0
	)
	vals := make([]float64, 100)
	vals[impulseDay] = mass
	raw := series.New("UK", start, vals)

	est, err := Estimate(raw, DefaultOptions())
	require.NoError(t, err)

	var weighted, total float64
	for i := 0; i < est.Infections.Len(); i++ {
		v := est.Infections.At(i)
		if math.IsNaN(v) || v == 0 {
			continue
		}
		offset := float64(series.DaysBetween(start, est.Infections.Date(i)))
		weighted += offset * v
		total += v
	}
	require.InDelta(t, mass, total, 1e-6)

	centre := weighted / total
	assert.InDelta(t, float64(impulseDay-28), centre, 3.5)

	peak, ok := est.Infections.ValueAt(start.AddDate(0, 0, impulseDay-28))
	require.True(t, ok)
	assert.InDelta(t, mass/7, peak, 1e-9)

	outside, _ := est.Infections.ValueAt(start.AddDate(0, 0, impulseDay-28-4))
	assert.Equal(t, 0.0, outside)
}

func TestEstimateRegion_RenamedColumnIsIdentical(t *testing.T) {
	uk := registrations(120).Rename("UK")
	frame, err := series.NewFrame(uk, uk.Rename("United Kingdom"))
	require.NoError(t, err)

	a, err := EstimateRegion(frame, "UK", DefaultOptions())
	require.NoError(t, err)
	b, err := EstimateRegion(frame, "United Kingdom", DefaultOptions())
	require.NoError(t, err)

	assert.True(t, a.Infections.Equal(b.Infections))
	assert.True(t, a.Log.Equal(b.Log))
	assert.Equal(t, a.Correction, b.Correction)

	_, err = EstimateRegion(frame, "Scotland", DefaultOptions())
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInputShape))
}

// A constant 700/day over 60 days, shown over the whole 88-day working range.
// The uncorrected rolling mean is exactly 700 wherever its window is full.
// Edge truncation drops 6 of the 60 days of mass, so the corrected interior
// is 700 * 60/54 and the total is preserved.
func TestEstimate_ConstantSeries(t *testing.T) {
	raw := constant("England", 60, 700)
	opts := DefaultOptions().WithRange(start.AddDate(0, 0, -28), raw.End())

	est, err := Estimate(raw, opts)
	require.NoError(t, err)
	assert.Equal(t, 88, est.Infections.Len())

	rolling := est.Rolling.Valid()
	require.Len(t, rolling, 54)
	for _, v := range rolling {
		assert.Equal(t, 700.0, v)
	}
	assert.InDelta(t, 2.8451, math.Log10(rolling[0]), 1e-4)

	assert.InDelta(t, 60.0/54.0, est.Correction, 1e-12)
	for i := 3; i < 57; i++ {
		assert.InDelta(t, 700*60.0/54.0, est.Infections.At(i), 1e-9, "day %d", i)
		assert.InDelta(t, math.Log10(700*60.0/54.0), est.Log.At(i), 1e-12, "day %d", i)
	}
	for _, i := range []int{0, 2, 57, 87} {
		assert.True(t, math.IsNaN(est.Infections.At(i)), "day %d", i)
		assert.True(t, math.IsNaN(est.Log.At(i)), "day %d", i)
	}
	assert.InDelta(t, 42000, est.Infections.Sum(), 1e-6)
}

func TestEstimate_DisplayRange(t *testing.T) {
	raw := registrations(120)

	t.Run("defaults to raw span", func(t *testing.T) {
		est, err := Estimate(raw, DefaultOptions())
		require.NoError(t, err)
		assert.True(t, raw.Start().Equal(est.Raw.Start()))
		assert.True(t, raw.End().Equal(est.Log.End()))
		assert.Equal(t, raw.Len(), est.Rolling.Len())
	})

	t.Run("narrower window", func(t *testing.T) {
		from, to := start.AddDate(0, 0, 10), start.AddDate(0, 0, 40)
		est, err := Estimate(raw, DefaultOptions().WithRange(from, to))
		require.NoError(t, err)
		assert.Equal(t, 31, est.Infections.Len())
		assert.True(t, from.Equal(est.Infections.Start()))
		assert.InDelta(t, 1.0, est.Ratio, 1e-7)
	})

	tests := []struct {
		name     string
		from, to time.Time
	}{
		{"before working range", start.AddDate(0, 0, -29), raw.End()},
		{"after data", start, raw.End().AddDate(0, 0, 1)},
		{"inverted", start.AddDate(0, 0, 10), start},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Estimate(raw, DefaultOptions().WithRange(tt.from, tt.to))
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeRange), "got %v", err)
		})
	}
}

func TestEstimate_Failures(t *testing.T) {
	tests := []struct {
		name string
		raw  series.Daily
		opts Options
		want apperrors.ErrorType
	}{
		{"no deaths", constant("UK", 30, 0), DefaultOptions(), apperrors.ErrTypeConservation},
		{"all missing", series.Missing("UK", start, 30), DefaultOptions(), apperrors.ErrTypeConservation},
		{"shorter than window", constant("UK", 3, 10), Options{LagDays: 0, Window: 7, Tolerance: 1e-7}, apperrors.ErrTypeConservation},
		{"empty", series.New("UK", start, nil), DefaultOptions(), apperrors.ErrTypeInputShape},
		{"zero window", constant("UK", 30, 1), Options{LagDays: 28, Tolerance: 1e-7}, apperrors.ErrTypeValidation},
		{"negative lag", constant("UK", 30, 1), Options{LagDays: -1, Window: 7, Tolerance: 1e-7}, apperrors.ErrTypeValidation},
		{"min periods beyond window", constant("UK", 30, 1), Options{Window: 7, MinPeriods: 8, Tolerance: 1e-7}, apperrors.ErrTypeValidation},
		{"no tolerance", constant("UK", 30, 1), Options{Window: 7}, apperrors.ErrTypeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est, err := Estimate(tt.raw, tt.opts)
			require.Error(t, err)
			assert.Nil(t, est)
			assert.Equal(t, tt.want, apperrors.TypeOf(err))
		})
	}
}

func TestEstimate_PureFunction(t *testing.T) {
	raw := registrations(120)
	before := raw.Values()

	a, err := Estimate(raw, DefaultOptions())
	require.NoError(t, err)
	b, err := Estimate(raw, DefaultOptions())
	require.NoError(t, err)

	assert.True(t, a.Infections.Equal(b.Infections))
	assert.Equal(t, before, raw.Values())
}

func TestEstimate_Frame(t *testing.T) {
	est, err := Estimate(registrations(60), DefaultOptions())
	require.NoError(t, err)

	f := est.Frame()
	assert.Equal(t, []string{ColumnRaw, ColumnRolling, ColumnInfections, ColumnLog}, f.Names())
	assert.Equal(t, 60, f.Len())
}
