package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covidcli/internal/config"
	apperrors "covidcli/internal/errors"
)

const minimalJob = `
title: Wales
output: wales
source:
  workbook: deaths.xlsx
  region: Wales
  start_row: 5
  end_row: 412
charts:
  - name: all
    from: 2020-03-01
    to: 2021-03-31
`

func TestParseJob(t *testing.T) {
	job, err := ParseJob([]byte(jobYAML))
	require.NoError(t, err)

	assert.Equal(t, "England", job.Title)
	assert.Equal(t, "england", job.Output)
	require.NotNil(t, job.Vaccinations)
	require.NotNil(t, job.Policy)
	require.NotNil(t, job.Declines)
	require.Len(t, job.Charts, 2)

	wave := job.Charts[0]
	from, to := wave.Range()
	assert.Equal(t, time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2020, 7, 28, 0, 0, 0, 0, time.UTC), to)
	assert.Equal(t, 1400.0, wave.YMax)

	segments := wave.Segments()
	require.Len(t, segments, 2)
	assert.Equal(t, "rise", segments[0].Label)
	assert.Equal(t, time.Date(2020, 3, 25, 0, 0, 0, 0, time.UTC), segments[0].End)

	windows := job.Declines.SeasonalWindows()
	require.Len(t, windows, 1)
	assert.Equal(t, 60, windows[0].FitDays)
	assert.Equal(t, time.Date(2020, 4, 1, 0, 0, 0, 0, time.UTC), windows[0].Start)
}

func TestParseJob_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		wantType apperrors.ErrorType
		contains string
	}{
		{
			name:     "no charts",
			yaml:     strings.SplitN(minimalJob, "charts:", 2)[0],
			wantType: apperrors.ErrTypeValidation,
			contains: "charts is required",
		},
		{
			name:     "no workbook",
			yaml:     strings.Replace(minimalJob, "  workbook: deaths.xlsx\n", "", 1),
			wantType: apperrors.ErrTypeValidation,
			contains: "source.workbook is required",
		},
		{
			name:     "bad date",
			yaml:     strings.Replace(minimalJob, "to: 2021-03-31", "to: last spring", 1),
			wantType: apperrors.ErrTypeValidation,
			contains: "charts[0].to must be a date",
		},
		{
			name:     "end row before start row",
			yaml:     strings.Replace(minimalJob, "end_row: 412", "end_row: 4", 1),
			wantType: apperrors.ErrTypeValidation,
			contains: "source.end_row must be greater than StartRow",
		},
		{
			name:     "output outside the output directory",
			yaml:     strings.Replace(minimalJob, "output: wales", "output: ../wales", 1),
			wantType: apperrors.ErrTypeValidation,
			contains: "output must be a plain file name",
		},
		{
			name: "unknown colour",
			yaml: minimalJob + `    fits:
      - label: rise
        from: 2020-03-05
        to: 2020-03-25
        color: chartreuse-ish
`,
			wantType: apperrors.ErrTypeValidation,
			contains: "charts[0].fits[0].color must be a colour name",
		},
		{
			name:     "unknown key",
			yaml:     minimalJob + "colour_scheme: dark\n",
			wantType: apperrors.ErrTypeParsing,
		},
		{
			name:     "not yaml",
			yaml:     "title: [unterminated",
			wantType: apperrors.ErrTypeParsing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job, err := ParseJob([]byte(tt.yaml))
			require.Error(t, err)
			assert.Nil(t, job)
			assert.Equal(t, tt.wantType, apperrors.TypeOf(err), "got %v", err)
			if tt.contains != "" {
				assert.Contains(t, err.Error(), tt.contains)
			}
		})
	}
}

func TestValidateStruct_ReportsEveryField(t *testing.T) {
	err := ValidateStruct(&Job{Output: "a/b"})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrTypeValidation, appErr.Type)
	assert.Contains(t, appErr.Context, "title")
	assert.Contains(t, appErr.Context, "output")
	assert.Contains(t, appErr.Context, "charts")
	assert.Contains(t, appErr.Context, "source.region")
}

func TestLoadJob(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wales.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalJob), 0o644))

	job, err := LoadJob(path)
	require.NoError(t, err)
	assert.Equal(t, "Wales", job.Source.Region)
	assert.Nil(t, job.Vaccinations)
	assert.Nil(t, job.Declines)

	_, err = LoadJob(filepath.Join(dir, "missing.yaml"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage))

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("title: x\n"), 0o644))
	_, err = LoadJob(bad)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
	assert.Contains(t, err.Error(), bad)
}

func TestSource_Meta(t *testing.T) {
	src := Source{Workbook: "deaths.xlsx", Region: "Wales", StartRow: 5, EndRow: 412, From: "2020-03-01"}
	meta := src.Meta()

	assert.Equal(t, "Wales", meta.Region)
	assert.Equal(t, 5, meta.StartRow)
	assert.Equal(t, time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC), meta.Start)
	assert.True(t, meta.End.IsZero())
}

func TestVaccinationSource_Layout(t *testing.T) {
	layout := VaccinationSource{Workbook: "v.xlsx"}.Layout()
	assert.Equal(t, "Vaccination Date", layout.Sheet)
	assert.Equal(t, 13, layout.HeaderRow)
	assert.Equal(t, "B,T", layout.Columns)

	layout = VaccinationSource{Workbook: "v.xlsx", HeaderRow: 10, Columns: "B,U"}.Layout()
	assert.Equal(t, 10, layout.HeaderRow)
	assert.Equal(t, 100, layout.LastRow)
	assert.Equal(t, "B,U", layout.Columns)
}

func TestEstimatorOverrides_Options(t *testing.T) {
	cfg := config.Default().Estimator

	opts := EstimatorOverrides{}.Options(cfg)
	assert.Equal(t, 28, opts.LagDays)
	assert.Equal(t, 7, opts.Window)

	lag, window := 21, 14
	opts = EstimatorOverrides{LagDays: &lag, Window: &window}.Options(cfg)
	assert.Equal(t, 21, opts.LagDays)
	assert.Equal(t, 14, opts.Window)
	assert.Equal(t, cfg.Tolerance, opts.Tolerance)
}

func TestPickColor(t *testing.T) {
	named := pickColor("tab:red", 0)
	r, g, b, _ := named.RGBA()
	assert.Greater(t, r, g)
	assert.Greater(t, r, b)

	assert.Equal(t, pickColor("", 2), pickColor("not a colour", 2))
}
