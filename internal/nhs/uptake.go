package nhs

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"covidcli/internal/dataprocessing"
	apperrors "covidcli/internal/errors"
	"covidcli/internal/series"
)

// UptakeSheet holds weekly vaccine uptake by age band.
const UptakeSheet = "Figure 61. COVID Vac Uptake"

// AgeGroup splits the population at 50.
type AgeGroup int

const (
	Under50 AgeGroup = iota
	Over50
)

func (g AgeGroup) String() string {
	if g == Under50 {
		return "under 50"
	}
	return "50 and over"
}

// Bands returns the published age bands making up the group.
func (g AgeGroup) Bands() []string {
	if g == Under50 {
		return []string{"Under 40", "40 to under 45", "45 to under 50"}
	}
	return []string{
		"50 to under 55",
		"55 to under 60",
		"60 to under 65",
		"65 to under 70",
		"70 to under 75",
		"75 to under 80",
		"Over 80",
	}
}

// Doses selects first or second dose counts.
type Doses int

const (
	AtLeastOne Doses = iota
	Two
)

type measure int

const (
	cohort measure = iota
	firstDose
	secondDose
)

var measureHeaders = map[string]measure{
	"people in nims cohort":               cohort,
	"number vaccinated (at least 1 dose)": firstDose,
	"number vaccinated (2 doses)":         secondDose,
}

// Uptake is the weekly NIMS cohort table.
type Uptake struct {
	weeks []time.Time
	// values[band][measure] has one entry per week
	values map[string]map[measure][]float64
}

// ReadUptake reads the uptake sheet, whose header spans two rows: age bands
// on headerRow and measures beneath them.
func ReadUptake(path string, headerRow int) (*Uptake, error) {
	wb, err := dataprocessing.OpenWorkbook(path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	sheet, err := wb.FindSheet(UptakeSheet)
	if err != nil {
		return nil, err
	}
	rows, err := wb.Rows(sheet)
	if err != nil {
		return nil, err
	}
	if headerRow < 1 || headerRow+1 > len(rows) {
		return nil, apperrors.NewInputShapeError(
			fmt.Sprintf("uptake header row %d outside sheet with %d rows", headerRow, len(rows)))
	}

	bands, measures := rows[headerRow-1], rows[headerRow]
	weekCol := -1
	type target struct {
		band string
		m    measure
	}
	targets := map[int]target{}
	band := ""
	for c := 0; c < max(len(bands), len(measures)); c++ {
		if c < len(bands) && strings.TrimSpace(bands[c]) != "" {
			band = strings.TrimSpace(bands[c])
		}
		sub := ""
		if c < len(measures) {
			sub = strings.ToLower(strings.TrimSpace(measures[c]))
		}
		if strings.EqualFold(band, "Week Ending") || sub == "week ending" {
			if weekCol < 0 {
				weekCol = c
			}
			continue
		}
		if m, ok := measureHeaders[sub]; ok && band != "" {
			targets[c] = target{band: band, m: m}
		}
	}
	if weekCol < 0 {
		return nil, apperrors.NewColumnNotFoundError("Week Ending", bands)
	}

	u := &Uptake{values: map[string]map[measure][]float64{}}
	for _, t := range targets {
		if u.values[t.band] == nil {
			u.values[t.band] = map[measure][]float64{}
		}
	}
	for _, row := range rows[headerRow+1:] {
		if weekCol >= len(row) || strings.TrimSpace(row[weekCol]) == "" {
			continue
		}
		week, err := dataprocessing.ParseCellDate(row[weekCol])
		if err != nil {
			continue // footnotes
		}
		u.weeks = append(u.weeks, week)
		for c, t := range targets {
			v := 0.0
			if c < len(row) {
				v = dataprocessing.ParseNumber(row[c])
			}
			u.values[t.band][t.m] = append(u.values[t.band][t.m], v)
		}
	}
	if len(u.weeks) == 0 {
		return nil, apperrors.NewInputShapeError(fmt.Sprintf("no weeks in %q", sheet))
	}
	if !sort.SliceIsSorted(u.weeks, func(i, j int) bool { return u.weeks[i].Before(u.weeks[j]) }) {
		return nil, apperrors.NewInputShapeError("uptake weeks are not in date order")
	}

	slog.Debug("Read vaccine uptake",
		slog.String("workbook", path),
		slog.Int("weeks", len(u.weeks)),
		slog.Int("bands", len(u.values)))
	return u, nil
}

// Weeks returns the week-ending dates.
func (u *Uptake) Weeks() []time.Time {
	out := make([]time.Time, len(u.weeks))
	copy(out, u.weeks)
	return out
}

// Cohort is the NIMS population of group in the last week ending on or
// before date.
func (u *Uptake) Cohort(group AgeGroup, date time.Time) (float64, error) {
	return u.total(group, date, cohort)
}

// Vaccinated counts people in group with the given doses.
func (u *Uptake) Vaccinated(group AgeGroup, date time.Time, doses Doses) (float64, error) {
	m := firstDose
	if doses == Two {
		m = secondDose
	}
	return u.total(group, date, m)
}

// Unvaccinated counts people in group without the given doses.
func (u *Uptake) Unvaccinated(group AgeGroup, date time.Time, doses Doses) (float64, error) {
	c, err := u.Cohort(group, date)
	if err != nil {
		return 0, err
	}
	v, err := u.Vaccinated(group, date, doses)
	if err != nil {
		return 0, err
	}
	return c - v, nil
}

// Coverage is the vaccinated fraction of group.
func (u *Uptake) Coverage(group AgeGroup, date time.Time, doses Doses) (float64, error) {
	c, err := u.Cohort(group, date)
	if err != nil {
		return 0, err
	}
	if c == 0 {
		return 0, apperrors.NewDomainError(fmt.Sprintf("empty %s cohort", group))
	}
	v, err := u.Vaccinated(group, date, doses)
	if err != nil {
		return 0, err
	}
	return v / c, nil
}

func (u *Uptake) total(group AgeGroup, date time.Time, m measure) (float64, error) {
	date = series.Midnight(date)
	idx := sort.Search(len(u.weeks), func(i int) bool { return u.weeks[i].After(date) }) - 1
	if idx < 0 {
		return 0, apperrors.NewRangeError(date, date, u.weeks[0], u.weeks[len(u.weeks)-1])
	}

	var sum float64
	for _, band := range group.Bands() {
		measures, ok := u.values[band]
		if !ok {
			return 0, apperrors.NewColumnNotFoundError(band, u.bandNames())
		}
		col, ok := measures[m]
		if !ok {
			return 0, apperrors.NewInputShapeError(fmt.Sprintf("band %q lacks a measure", band))
		}
		if v := col[idx]; !math.IsNaN(v) {
			sum += v
		}
	}
	return sum, nil
}

func (u *Uptake) bandNames() []string {
	names := make([]string, 0, len(u.values))
	for b := range u.values {
		names = append(names, b)
	}
	sort.Strings(names)
	return names
}
