package report

import (
	"fmt"
	"image/color"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"covidcli/internal/chart"
	"covidcli/internal/config"
	"covidcli/internal/estimator"
	apperrors "covidcli/internal/errors"
	"covidcli/internal/nhs"
	"covidcli/internal/ons"
	"covidcli/internal/oxcgrt"
	"covidcli/internal/seasonal"
	"covidcli/internal/series"
)

// Job describes one report: where the deaths come from, how to estimate
// fatal infections and which charts to draw from the estimate.
type Job struct {
	Title  string `yaml:"title" validate:"required"`
	Output string `yaml:"output" validate:"required,filename"`

	Source       Source             `yaml:"source"`
	Vaccinations *VaccinationSource `yaml:"vaccinations" validate:"omitempty"`
	Policy       *PolicySource      `yaml:"policy" validate:"omitempty"`
	Estimator    EstimatorOverrides `yaml:"estimator"`

	Charts   []ChartSpec  `yaml:"charts" validate:"required,min=1,dive"`
	Declines *DeclineSpec `yaml:"declines" validate:"omitempty"`
}

// Source is the ONS daily registrations table.
type Source struct {
	Workbook string `yaml:"workbook" validate:"required"`
	Region   string `yaml:"region" validate:"required"`
	Sheet    string `yaml:"sheet"`
	Columns  string `yaml:"columns"`
	StartRow int    `yaml:"start_row" validate:"required,gte=1"`
	EndRow   int    `yaml:"end_row" validate:"required,gtfield=StartRow"`
	From     string `yaml:"from" validate:"omitempty,date"`
	To       string `yaml:"to" validate:"omitempty,date"`
}

// VaccinationSource is the NHS daily vaccinations workbook.
type VaccinationSource struct {
	Workbook  string `yaml:"workbook" validate:"required"`
	Sheet     string `yaml:"sheet"`
	HeaderRow int    `yaml:"header_row" validate:"gte=0"`
	LastRow   int    `yaml:"last_row" validate:"gte=0"`
	Columns   string `yaml:"columns"`
}

// PolicySource marks the days a government response policy was relaxed.
type PolicySource struct {
	Tracker    string             `yaml:"tracker" validate:"required"`
	Country    string             `yaml:"country"`
	Policy     string             `yaml:"policy" validate:"required"`
	Thresholds []oxcgrt.Threshold `yaml:"thresholds" validate:"dive"`
}

// EstimatorOverrides replaces the configured estimator defaults.
type EstimatorOverrides struct {
	LagDays    *int     `yaml:"lag_days" validate:"omitempty,gte=0"`
	Window     *int     `yaml:"window" validate:"omitempty,gte=1"`
	MinPeriods *int     `yaml:"min_periods" validate:"omitempty,gte=0"`
	Tolerance  *float64 `yaml:"tolerance" validate:"omitempty,gt=0,lt=1"`
}

// ChartSpec is one two-panel chart of the estimate over a display range.
// An empty From or To extends the range to that end of the estimate.
type ChartSpec struct {
	Name             string       `yaml:"name" validate:"required,filename"`
	Title            string       `yaml:"title"`
	From             string       `yaml:"from" validate:"omitempty,date"`
	To               string       `yaml:"to" validate:"omitempty,date"`
	ShowDeaths       bool         `yaml:"show_deaths"`
	ShowVaccinations bool         `yaml:"show_vaccinations"`
	PolicyEvents     bool         `yaml:"policy_events"`
	YMax             float64      `yaml:"y_max" validate:"gte=0"`
	Fits             []FitSpec    `yaml:"fits" validate:"dive"`
	Regions          []RegionSpec `yaml:"regions" validate:"dive"`
	Events           []EventSpec  `yaml:"events" validate:"dive"`
}

// FitSpec is a log-linear fit segment.
type FitSpec struct {
	Label string `yaml:"label" validate:"required"`
	From  string `yaml:"from" validate:"required,date"`
	To    string `yaml:"to" validate:"required,date"`
	Color string `yaml:"color" validate:"omitempty,colour"`
}

// RegionSpec is a shaded date range.
type RegionSpec struct {
	Label string `yaml:"label"`
	From  string `yaml:"from" validate:"required,date"`
	To    string `yaml:"to" validate:"required,date"`
	Color string `yaml:"color" validate:"omitempty,colour"`
}

// EventSpec is a numbered date marker.
type EventSpec struct {
	Date  string `yaml:"date" validate:"required,date"`
	Label string `yaml:"label" validate:"required"`
}

// DeclineSpec overlays post-peak declines normalized to their peak.
type DeclineSpec struct {
	Name    string       `yaml:"name" validate:"required,filename"`
	Title   string       `yaml:"title"`
	Windows []WindowSpec `yaml:"windows" validate:"required,min=1,dive"`
}

// WindowSpec is one decline.
type WindowSpec struct {
	Label   string `yaml:"label" validate:"required"`
	From    string `yaml:"from" validate:"required,date"`
	To      string `yaml:"to" validate:"required,date"`
	FitDays int    `yaml:"fit_days" validate:"gte=2"`
	Color   string `yaml:"color" validate:"omitempty,colour"`
}

// LoadJob reads and validates the job file at path.
func LoadJob(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to read job file %s", path), err)
	}
	job, err := ParseJob(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return job, nil
}

// ParseJob decodes and validates a YAML job.
func ParseJob(data []byte) (*Job, error) {
	var job Job
	if err := yaml.UnmarshalStrict(data, &job); err != nil {
		return nil, apperrors.NewParsingError("invalid job file", err)
	}
	if err := ValidateStruct(&job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Meta returns the ONS table layout.
func (s Source) Meta() ons.Meta {
	meta := ons.Meta{
		Workbook: s.Workbook,
		Region:   s.Region,
		Sheet:    s.Sheet,
		Columns:  s.Columns,
		StartRow: s.StartRow,
		EndRow:   s.EndRow,
	}
	meta.Start, _ = parseOptionalDate(s.From)
	meta.End, _ = parseOptionalDate(s.To)
	return meta
}

// Layout returns the NHS table layout, defaulting each unset field.
func (v VaccinationSource) Layout() nhs.Layout {
	layout := nhs.DefaultLayout()
	if v.Sheet != "" {
		layout.Sheet = v.Sheet
	}
	if v.HeaderRow > 0 {
		layout.HeaderRow = v.HeaderRow
	}
	if v.LastRow > 0 {
		layout.LastRow = v.LastRow
	}
	if v.Columns != "" {
		layout.Columns = v.Columns
	}
	return layout
}

// Options applies the overrides to the configured estimator settings.
func (o EstimatorOverrides) Options(cfg config.EstimatorConfig) estimator.Options {
	if o.LagDays != nil {
		cfg.LagDays = *o.LagDays
	}
	if o.Window != nil {
		cfg.Window = *o.Window
	}
	if o.MinPeriods != nil {
		cfg.MinPeriods = *o.MinPeriods
	}
	if o.Tolerance != nil {
		cfg.Tolerance = *o.Tolerance
	}
	return estimator.NewOptions(cfg)
}

// Range returns the display range of the chart.
func (c ChartSpec) Range() (time.Time, time.Time) {
	from, _ := parseOptionalDate(c.From)
	to, _ := parseOptionalDate(c.To)
	return from, to
}

// within fills an open display range from the estimate.
func (c ChartSpec) within(est *estimator.Result) ChartSpec {
	if c.From == "" {
		c.From = est.Raw.Start().Format(time.DateOnly)
	}
	if c.To == "" {
		c.To = est.Raw.End().Format(time.DateOnly)
	}
	return c
}

// Segments returns the fit segments of the chart.
func (c ChartSpec) Segments() []estimator.Segment {
	out := make([]estimator.Segment, len(c.Fits))
	for i, f := range c.Fits {
		out[i] = estimator.Segment{Label: f.Label, Start: mustDate(f.From), End: mustDate(f.To)}
	}
	return out
}

// SeasonalWindows returns the decline windows.
func (d DeclineSpec) SeasonalWindows() []seasonal.Window {
	out := make([]seasonal.Window, len(d.Windows))
	for i, w := range d.Windows {
		out[i] = seasonal.Window{Label: w.Label, Start: mustDate(w.From), End: mustDate(w.To), FitDays: w.FitDays}
	}
	return out
}

// pickColor returns the named colour, or the i-th palette colour when the
// name is empty.
func pickColor(name string, i int) color.Color {
	if name != "" {
		if c, err := chart.ParseColor(name); err == nil {
			return c
		}
	}
	return chart.Palette(i)
}

// mustDate parses a date that has already passed the "date" validation.
func mustDate(s string) time.Time {
	return series.MustParseDate(s)
}

func parseOptionalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return series.ParseDate(s)
}
