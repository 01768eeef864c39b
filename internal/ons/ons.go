// Package ons reads the Office for National Statistics daily death
// registrations workbook.
package ons

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"covidcli/internal/dataprocessing"
	apperrors "covidcli/internal/errors"
	"covidcli/internal/series"
)

const (
	// DailySheet is the sheet holding deaths by date of registration.
	DailySheet = "Covid-19 - Daily registrations"
	// DailyColumns spans the date column and the region columns.
	DailyColumns = "A:P"
	// DateHeader labels the date column.
	DateHeader = "Date"
)

// Meta locates the daily registrations table in a workbook. Rows are
// 1-based: StartRow is the header and EndRow the last day.
type Meta struct {
	Workbook string
	Region   string
	StartRow int
	EndRow   int
	Sheet    string
	Columns  string

	// Start and End replace the published date column when set. Their span
	// must match the number of data rows.
	Start time.Time
	End   time.Time
}

// DefaultMeta returns the layout of the week 14 2021 release.
func DefaultMeta(workbook, region string) Meta {
	return Meta{
		Workbook: workbook,
		Region:   region,
		StartRow: 4,
		EndRow:   408,
	}
}

func (m Meta) withDefaults() Meta {
	if m.Sheet == "" {
		m.Sheet = DailySheet
	}
	if m.Columns == "" {
		m.Columns = DailyColumns
	}
	return m
}

// ReadDailyRegistrations returns one column per region of the registrations
// table. The published date column is not trusted: the index is rebuilt as a
// contiguous daily range from the first and last dates, or from Meta.Start
// and Meta.End.
func ReadDailyRegistrations(path string, meta Meta) (series.Frame, error) {
	meta = meta.withDefaults()

	cols, err := dataprocessing.ParseColumns(meta.Columns)
	if err != nil {
		return series.Frame{}, err
	}

	wb, err := dataprocessing.OpenWorkbook(path)
	if err != nil {
		return series.Frame{}, err
	}
	defer wb.Close()

	sheet, err := wb.FindSheet(meta.Sheet)
	if err != nil {
		return series.Frame{}, err
	}

	table, err := wb.ReadTable(sheet, meta.StartRow, meta.EndRow, cols)
	if err != nil {
		return series.Frame{}, err
	}
	table.Rows = trimTrailingBlank(table.Rows)
	if len(table.Rows) == 0 {
		return series.Frame{}, apperrors.NewInputShapeError(
			fmt.Sprintf("no data rows between rows %d and %d of %q", meta.StartRow, meta.EndRow, sheet))
	}

	dateCol := table.Column(DateHeader)
	if dateCol < 0 {
		dateCol = 0
	}

	start, end, err := dateSpan(table, dateCol, meta)
	if err != nil {
		return series.Frame{}, err
	}
	if days := series.DaysBetween(start, end) + 1; days != len(table.Rows) {
		return series.Frame{}, apperrors.NewInputShapeError(
			fmt.Sprintf("%s to %s is %d days but the table has %d rows",
				start.Format(time.DateOnly), end.Format(time.DateOnly), days, len(table.Rows))).
			WithContext("workbook", path)
	}

	var columns []series.Daily
	for c, name := range table.Header {
		name = strings.TrimSpace(name)
		if c == dateCol || name == "" {
			continue
		}
		values := make([]float64, len(table.Rows))
		for r, row := range table.Rows {
			values[r] = dataprocessing.ParseNumber(row[c])
		}
		columns = append(columns, series.New(name, start, values))
	}

	slog.Debug("Read daily registrations",
		slog.String("workbook", path),
		slog.String("sheet", sheet),
		slog.String("start", start.Format(time.DateOnly)),
		slog.String("end", end.Format(time.DateOnly)),
		slog.Int("regions", len(columns)))

	return series.NewFrame(columns...)
}

// ReadRegion reads the registrations table and returns the Meta.Region column.
func ReadRegion(path string, meta Meta) (series.Daily, error) {
	frame, err := ReadDailyRegistrations(path, meta)
	if err != nil {
		return series.Daily{}, err
	}
	return frame.Column(meta.Region)
}

func dateSpan(table dataprocessing.Table, dateCol int, meta Meta) (time.Time, time.Time, error) {
	if !meta.Start.IsZero() && !meta.End.IsZero() {
		return series.Midnight(meta.Start), series.Midnight(meta.End), nil
	}

	first, err := dataprocessing.ParseCellDate(table.Rows[0][dateCol])
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("first row: %w", err)
	}
	last, err := dataprocessing.ParseCellDate(table.Rows[len(table.Rows)-1][dateCol])
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("last row: %w", err)
	}
	if !meta.Start.IsZero() {
		first = series.Midnight(meta.Start)
	}
	if !meta.End.IsZero() {
		last = series.Midnight(meta.End)
	}
	return first, last, nil
}

func trimTrailingBlank(rows [][]string) [][]string {
	for len(rows) > 0 {
		blank := true
		for _, cell := range rows[len(rows)-1] {
			if strings.TrimSpace(cell) != "" {
				blank = false
				break
			}
		}
		if !blank {
			break
		}
		rows = rows[:len(rows)-1]
	}
	return rows
}
