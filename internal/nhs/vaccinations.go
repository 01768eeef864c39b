// Package nhs reads NHS England vaccination publications: daily doses by
// vaccination date and the weekly NIMS uptake tables.
package nhs

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"covidcli/internal/dataprocessing"
	apperrors "covidcli/internal/errors"
	"covidcli/internal/series"
)

// TotalDoses names the daily vaccination series.
const TotalDoses = "Total doses"

// Layout locates the doses table. Rows are 1-based and inclusive.
type Layout struct {
	Sheet     string
	HeaderRow int
	LastRow   int
	Columns   string // date column, then doses column
}

// DefaultLayout is the layout of the daily vaccinations workbook.
func DefaultLayout() Layout {
	return Layout{
		Sheet:     "Vaccination Date",
		HeaderRow: 13,
		LastRow:   100,
		Columns:   "B,T",
	}
}

// ReadVaccinations returns total doses given per day.
func ReadVaccinations(path string, layout Layout) (series.Daily, error) {
	cols, err := dataprocessing.ParseColumns(layout.Columns)
	if err != nil {
		return series.Daily{}, err
	}
	if len(cols) != 2 {
		return series.Daily{}, apperrors.NewInputShapeError(
			fmt.Sprintf("vaccinations need a date and a doses column, got %q", layout.Columns))
	}

	wb, err := dataprocessing.OpenWorkbook(path)
	if err != nil {
		return series.Daily{}, err
	}
	defer wb.Close()

	sheet, err := wb.FindSheet(layout.Sheet)
	if err != nil {
		return series.Daily{}, err
	}
	table, err := wb.ReadTable(sheet, layout.HeaderRow, layout.LastRow, cols)
	if err != nil {
		return series.Daily{}, err
	}

	var (
		dates  []time.Time
		values []float64
	)
	for i, row := range table.Rows {
		if strings.TrimSpace(row[0]) == "" {
			continue
		}
		d, err := dataprocessing.ParseCellDate(row[0])
		if err != nil {
			return series.Daily{}, fmt.Errorf("row %d: %w", layout.HeaderRow+1+i, err)
		}
		dates = append(dates, d)
		values = append(values, dataprocessing.ParseNumber(row[1]))
	}
	if len(dates) == 0 {
		return series.Daily{}, apperrors.NewInputShapeError(fmt.Sprintf("no vaccination rows in %q", sheet))
	}

	slog.Debug("Read vaccinations",
		slog.String("workbook", path),
		slog.Int("days", len(dates)),
		slog.String("first", dates[0].Format(time.DateOnly)))

	return series.FromDates(TotalDoses, dates, values)
}
