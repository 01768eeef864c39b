package main

import (
	"context"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"covidcli/internal/app"
	"covidcli/internal/config"
	apperrors "covidcli/internal/errors"
	"covidcli/internal/infrastructure"
	"covidcli/internal/ons"
)

func TestFitFlags(t *testing.T) {
	var f fitFlags
	require.NoError(t, f.Set("rise=2020-03-05:2020-03-25"))
	require.NoError(t, f.Set(" fall = 2020-04-10:2020-05-30"))
	require.Len(t, f, 2)
	assert.Equal(t, "fall", f[1].Label)
	assert.Equal(t, "2020-04-10", f[1].From)
	assert.Equal(t, "rise=2020-03-05:2020-03-25,fall=2020-04-10:2020-05-30", f.String())

	for _, bad := range []string{"2020-03-05:2020-03-25", "rise=2020-03-05", "=2020-03-05:2020-03-25"} {
		assert.Error(t, f.Set(bad), bad)
	}
}

func TestOptionsJob(t *testing.T) {
	opts := options{workbook: "deaths.xlsx", region: "North East", startRow: 4, endRow: 408, lag: -1, window: -1}

	job, err := opts.job()
	require.NoError(t, err)
	assert.Equal(t, "north_east", job.Output)
	assert.Equal(t, "north_east", job.Charts[0].Name)
	assert.True(t, job.Charts[0].ShowDeaths)
	assert.Nil(t, job.Estimator.LagDays)
	assert.Nil(t, job.Estimator.Window)

	opts.lag, opts.window, opts.out = 21, 14, "ne"
	job, err = opts.job()
	require.NoError(t, err)
	assert.Equal(t, "ne", job.Output)
	assert.Equal(t, 21, *job.Estimator.LagDays)
	assert.Equal(t, 14, *job.Estimator.Window)

	opts.to = "soon"
	_, err = opts.job()
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestRun(t *testing.T) {
	infrastructure.ResetLoggerForTesting()
	t.Cleanup(infrastructure.ResetLoggerForTesting)

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Report.WidthInches, cfg.Report.HeightInches = 6, 3
	a, err := app.New("infections", cfg, dir, io.Discard)
	require.NoError(t, err)
	writeRegistrations(t, a.Paths.DataPath("deaths.xlsx"), 120)

	opts := options{
		workbook: "deaths.xlsx",
		region:   "England",
		startRow: 3,
		endRow:   123,
		lag:      -1,
		window:   -1,
		fits:     fitFlags{{Label: "rise", From: "2020-02-10", To: "2020-03-05"}},
	}
	res, err := run(context.Background(), a, opts)
	require.NoError(t, err)

	assert.InDelta(t, 1, res.Estimate.Ratio, 1e-7)
	for _, name := range []string{"england.png", "england_fits.csv", "england.csv", "england.xlsx"} {
		assert.FileExists(t, filepath.Join(a.Paths.OutputDir, name))
	}
	require.Len(t, res.Charts[0].Fits, 1)
	assert.NoError(t, res.Charts[0].Fits[0].Err)
	assert.Greater(t, res.Charts[0].Fits[0].Fit.Slope, 0.0)
}

// writeRegistrations saves a one-wave registrations table from 1 March 2020
// with its header on row 3.
func writeRegistrations(t *testing.T, path string, days int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName(f.GetSheetName(0), ons.DailySheet))
	require.NoError(t, f.SetSheetRow(ons.DailySheet, "A3", &[]interface{}{"Date", "England"}))

	first := time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < days; i++ {
		x := (float64(i) - 40) / 20
		row := []interface{}{first.AddDate(0, 0, i).Format("2 Jan 2006"), math.Round(1000*math.Exp(-x*x)) + 1}
		cell, err := excelize.CoordinatesToCellName(1, i+4)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(ons.DailySheet, cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
}
