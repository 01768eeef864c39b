// Package cmi reads the Continuous Mortality Investigation mortality monitor
// workbook: weekly standardised mortality ratios and cumulative SMR by year.
package cmi

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"covidcli/internal/dataprocessing"
	apperrors "covidcli/internal/errors"
	"covidcli/internal/series"
)

// Key identifies one year of one category.
type Key struct {
	Category
	Year int
}

// SMR holds weekly SMR values keyed by category and ISO year.
type SMR struct {
	Set    SMRSet
	values map[Key]map[int]float64
}

// Weeks returns the ISO week numbers published for key, in order.
func (s *SMR) Weeks(key Key) []int {
	weeks := make([]int, 0, len(s.values[key]))
	for w := range s.values[key] {
		weeks = append(weeks, w)
	}
	sort.Ints(weeks)
	return weeks
}

// Value returns the SMR of key in ISO week week.
func (s *SMR) Value(key Key, week int) (float64, bool) {
	v, ok := s.values[key][week]
	return v, ok
}

// Years returns the ISO years present, in order.
func (s *SMR) Years() []int {
	seen := map[int]bool{}
	for k := range s.values {
		seen[k.Year] = true
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Year returns the 53 weekly values of key, missing where unpublished.
func (s *SMR) Year(key Key) []float64 {
	out := make([]float64, 53)
	for i := range out {
		out[i] = math.NaN()
	}
	for w, v := range s.values[key] {
		if w >= 1 && w <= 53 {
			out[w-1] = v
		}
	}
	return out
}

// ReadSMR reads the weekly SMR sheet of set for every category.
func ReadSMR(path string, set SMRSet) (*SMR, error) {
	sheetName := set.Sheet()
	if sheetName == "" {
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("unknown SMR set %d", set))
	}

	wb, err := dataprocessing.OpenWorkbook(path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	sheet, err := wb.FindSheet(sheetName)
	if err != nil {
		return nil, err
	}
	rows, err := wb.Rows(sheet)
	if err != nil {
		return nil, err
	}

	headerIdx := -1
	for i, row := range rows {
		if indexOf(row, "ISOWeek") >= 0 {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, apperrors.NewColumnNotFoundError("ISOWeek", nil)
	}
	header := rows[headerIdx]
	weekCol, yearCol := indexOf(header, "ISOWeek"), indexOf(header, "ISOYear")
	if yearCol < 0 {
		return nil, apperrors.NewColumnNotFoundError("ISOYear", header)
	}

	cols := map[Category]int{}
	for _, c := range Categories() {
		idx := indexOf(header, c.Header())
		if idx < 0 {
			return nil, apperrors.NewColumnNotFoundError(c.Header(), header)
		}
		cols[c] = idx
	}

	smr := &SMR{Set: set, values: map[Key]map[int]float64{}}
	for _, row := range rows[headerIdx+1:] {
		week, errW := strconv.Atoi(cell(row, weekCol))
		year, errY := strconv.Atoi(cell(row, yearCol))
		if errW != nil || errY != nil {
			continue
		}
		for c, idx := range cols {
			v := dataprocessing.ParseNumber(cell(row, idx))
			if math.IsNaN(v) {
				continue
			}
			k := Key{Category: c, Year: year}
			if smr.values[k] == nil {
				smr.values[k] = map[int]float64{}
			}
			smr.values[k][week] = v
		}
	}

	slog.Debug("Read CMI SMR",
		slog.String("workbook", path),
		slog.String("sheet", sheet),
		slog.Int("series", len(smr.values)))
	return smr, nil
}

// CumulativeSMR is the year-to-date SMR of one category, one row per year
// indexed by day of year.
type CumulativeSMR struct {
	Category Category
	Relative bool
	values   map[int][]float64
}

// Years returns the years present, in order.
func (c *CumulativeSMR) Years() []int {
	years := make([]int, 0, len(c.values))
	for y := range c.values {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Days returns the values of year by day of year, starting at day 1.
func (c *CumulativeSMR) Days(year int) []float64 {
	out := make([]float64, len(c.values[year]))
	copy(out, c.values[year])
	return out
}

// Series returns year as a daily series from 1 January.
func (c *CumulativeSMR) Series(year int) series.Daily {
	return series.New(strconv.Itoa(year), time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC), c.values[year])
}

// ReadCumulativeSMR reads the cumulative SMR sheet, or its relative variant,
// for one category. The sheet's first three columns are gender, age band and
// year; day-of-year columns start at column F.
func ReadCumulativeSMR(path string, category Category, relative bool) (*CumulativeSMR, error) {
	if _, err := NewCategory(category.Gender, category.AgeBand); err != nil {
		return nil, err
	}
	sheetName := "CumulativeSMR"
	if relative {
		sheetName = "CumulativeSMRRelative"
	}
	cols := dataprocessing.MustParseColumns("A:C, F:NG")

	wb, err := dataprocessing.OpenWorkbook(path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	sheet, err := wb.FindSheet(sheetName)
	if err != nil {
		return nil, err
	}
	rows, err := wb.Rows(sheet)
	if err != nil {
		return nil, err
	}

	out := &CumulativeSMR{Category: category, Relative: relative, values: map[int][]float64{}}
	for _, raw := range rows {
		row := cols.Pick(raw)
		if !strings.EqualFold(strings.TrimSpace(row[0]), category.Gender.String()) ||
			!strings.EqualFold(strings.TrimSpace(row[1]), category.AgeBand.String()) {
			continue
		}
		year, err := strconv.Atoi(strings.TrimSpace(row[2]))
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("bad year %q for %s", row[2], category), err)
		}
		days := make([]float64, 0, len(row)-3)
		for _, v := range row[3:] {
			days = append(days, dataprocessing.ParseNumber(v))
		}
		out.values[year] = trimMissing(days)
	}
	if len(out.values) == 0 {
		return nil, apperrors.NewInsufficientDataError(
			fmt.Sprintf("no cumulative SMR rows for %s in %q", category, sheetName), 0, 1)
	}
	return out, nil
}

func trimMissing(v []float64) []float64 {
	for len(v) > 0 && math.IsNaN(v[len(v)-1]) {
		v = v[:len(v)-1]
	}
	return v
}

func indexOf(row []string, name string) int {
	for i, c := range row {
		if strings.TrimSpace(c) == name {
			return i
		}
	}
	return -1
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
