// Package owid reads the Our World in Data COVID-19 CSV export.
package owid

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"covidcli/internal/dataprocessing"
	apperrors "covidcli/internal/errors"
	"covidcli/internal/series"
)

const (
	// DeathsColumn is the measure read from the export.
	DeathsColumn = "new_deaths_smoothed_per_million"
	// UK labels the United Kingdom column of the result.
	UK = "UK"

	ukLocation = "United Kingdom"
)

// ReadDeaths returns smoothed deaths per million for the United Kingdom and,
// when country is not empty, for every location containing country.
func ReadDeaths(path, country string) (series.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return series.Frame{}, apperrors.NewStorageError(fmt.Sprintf("failed to open %s", path), err)
	}
	defer f.Close()
	return ParseDeaths(f, country)
}

// ParseDeaths is ReadDeaths over an open reader.
func ParseDeaths(r io.Reader, country string) (series.Frame, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return series.Frame{}, apperrors.NewParsingError("failed to read CSV header", err)
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")] = i
	}
	for _, want := range []string{"date", "location", DeathsColumn} {
		if _, ok := idx[want]; !ok {
			return series.Frame{}, apperrors.NewColumnNotFoundError(want, header)
		}
	}

	var uk, other []series.Point
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return series.Frame{}, apperrors.NewParsingError(fmt.Sprintf("line %d", line), err)
		}

		location := field(record, idx["location"])
		isUK := strings.Contains(location, ukLocation)
		isOther := country != "" && strings.Contains(location, country)
		if !isUK && !isOther {
			continue
		}

		date, err := series.ParseDate(field(record, idx["date"]))
		if err != nil {
			return series.Frame{}, apperrors.NewParsingError(fmt.Sprintf("line %d", line), err)
		}
		p := series.Point{Date: date, Value: dataprocessing.ParseNumber(field(record, idx[DeathsColumn]))}
		if isUK {
			uk = append(uk, p)
		}
		if isOther {
			other = append(other, p)
		}
	}

	if len(uk) == 0 {
		return series.Frame{}, apperrors.NewInsufficientDataError("no United Kingdom rows", 0, 1)
	}
	cols := []series.Daily{series.FromPoints(UK, uk)}
	if country != "" {
		if len(other) == 0 {
			return series.Frame{}, apperrors.NewInsufficientDataError(fmt.Sprintf("no rows for %q", country), 0, 1)
		}
		cols = append(cols, series.FromPoints(country, other))
	}

	slog.Debug("Read OWID deaths",
		slog.Int("uk_rows", len(uk)),
		slog.String("country", country),
		slog.Int("country_rows", len(other)))

	return series.Align(cols...), nil
}

func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
