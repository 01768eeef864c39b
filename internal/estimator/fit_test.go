package estimator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "covidcli/internal/errors"
	"covidcli/internal/series"
)

func exponential(n int, rate float64) series.Daily {
	vals := make([]float64, n)
	for t := range vals {
		vals[t] = math.Pow(10, rate*float64(t))
	}
	return series.New("synthetic", start, vals)
}

func TestFitSegment_RecoversGrowthRate(t *testing.T) {
	tests := []struct {
		name string
		rate float64
	}{
		{"growth", 0.01},
		{"decline", -0.02},
		{"fast growth", 0.05},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := exponential(60, tt.rate).Log10()
			fit, err := FitSegment(log, log.Start(), log.End())
			require.NoError(t, err)

			want := math.Pow(10, tt.rate)
			assert.InEpsilon(t, want, fit.GrowthFactor(), 0.01)
			assert.InDelta(t, tt.rate, fit.Slope, 1e-9)
			// x = 1 is t = 0
			assert.InDelta(t, -tt.rate, fit.Intercept, 1e-9)
			assert.Equal(t, 60, fit.Points)
		})
	}
}

func TestFitSegment_LineCoversRequestedRange(t *testing.T) {
	vals := exponential(40, 0.01).Log10().Values()
	vals[0], vals[5], vals[39] = math.NaN(), math.NaN(), math.NaN()
	log := series.New("infections (log)", start, vals)

	from, to := start, start.AddDate(0, 0, 39)
	fit, err := FitSegment(log, from, to)
	require.NoError(t, err)

	assert.Equal(t, 37, fit.Points)
	assert.Equal(t, 40, fit.Log.Len())
	assert.Equal(t, 40, fit.Linear.Len())
	assert.True(t, from.Equal(fit.Log.Start()))
	assert.True(t, to.Equal(fit.Linear.End()))
	assert.Equal(t, 0, 40-fit.Log.Count(), "line has a value on every day")
	assert.InDelta(t, 0.01, fit.Slope, 1e-9)
	assert.InDelta(t, math.Pow(10, fit.Log.At(10)), fit.Linear.At(10), 1e-9)
}

func TestFitSegment_Rejects(t *testing.T) {
	log := exponential(30, 0.01).Log10()
	gappy := log.Values()
	gappy[11], gappy[12] = math.NaN(), math.NaN()
	withGaps := series.New("x", start, gappy)

	tests := []struct {
		name     string
		log      series.Daily
		from, to int
		want     apperrors.ErrorType
	}{
		{"single day", log, 5, 5, apperrors.ErrTypeInsufficientData},
		{"one valid point", withGaps, 10, 12, apperrors.ErrTypeInsufficientData},
		{"inverted", log, 10, 5, apperrors.ErrTypeRange},
		{"before series", log, -1, 5, apperrors.ErrTypeRange},
		{"after series", log, 20, 30, apperrors.ErrTypeRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fit, err := FitSegment(tt.log, start.AddDate(0, 0, tt.from), start.AddDate(0, 0, tt.to))
			require.Error(t, err)
			assert.Nil(t, fit)
			assert.Equal(t, tt.want, apperrors.TypeOf(err))
		})
	}
}

func TestFit_DoublingDays(t *testing.T) {
	assert.InDelta(t, 30.103, (&Fit{Slope: 0.01}).DoublingDays(), 1e-3)
	assert.InDelta(t, -15.051, (&Fit{Slope: -0.02}).DoublingDays(), 1e-3)
	assert.True(t, math.IsInf((&Fit{}).DoublingDays(), 1))
}

func TestFitSegments_IndependentFailures(t *testing.T) {
	log := exponential(30, 0.01).Log10()
	results := FitSegments(log, []Segment{
		{Label: "first wave", Start: start, End: start.AddDate(0, 0, 14)},
		{Label: "bad", Start: start.AddDate(0, 0, 3), End: start.AddDate(0, 0, 3)},
		{Label: "second wave", Start: start.AddDate(0, 0, 15), End: start.AddDate(0, 0, 29)},
	})
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)
	assert.InDelta(t, 0.01, results[2].Fit.Slope, 1e-9)
}
