package dataprocessing

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	apperrors "covidcli/internal/errors"
	"covidcli/internal/series"
)

// Workbook is an open published spreadsheet.
type Workbook struct {
	path string
	file *excelize.File
}

// OpenWorkbook opens the spreadsheet at path for reading.
func OpenWorkbook(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to open workbook %s", path), err)
	}
	return &Workbook{path: path, file: f}, nil
}

// Close releases the workbook.
func (w *Workbook) Close() error {
	return w.file.Close()
}

func (w *Workbook) Path() string { return w.path }

// Sheets lists the sheet names in workbook order.
func (w *Workbook) Sheets() []string {
	return w.file.GetSheetList()
}

// FindSheet returns the first sheet matching one of the candidate names.
// Publishers pad and re-case sheet names between releases, so a candidate
// also matches ignoring case and surrounding spaces, then as a prefix.
func (w *Workbook) FindSheet(candidates ...string) (string, error) {
	sheets := w.file.GetSheetList()
	norm := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

	for _, c := range candidates {
		for _, s := range sheets {
			if s == c {
				return s, nil
			}
		}
	}
	for _, c := range candidates {
		for _, s := range sheets {
			if norm(s) == norm(c) {
				return s, nil
			}
		}
	}
	for _, c := range candidates {
		for _, s := range sheets {
			if strings.HasPrefix(norm(s), norm(c)) {
				slog.Debug("Matched sheet by prefix",
					slog.String("workbook", w.path),
					slog.String("wanted", c),
					slog.String("sheet", s))
				return s, nil
			}
		}
	}
	return "", apperrors.NewInputShapeError(fmt.Sprintf("no sheet named %q in %s", candidates, w.path)).
		WithContext("sheets", sheets)
}

// Rows returns the sheet's rows with raw cell values: dates stay as Excel
// serial numbers and numbers are unformatted.
func (w *Workbook) Rows(sheet string) ([][]string, error) {
	rows, err := w.file.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to read sheet %q", sheet), err)
	}
	slog.Debug("Read sheet",
		slog.String("workbook", w.path),
		slog.String("sheet", sheet),
		slog.Int("rows", len(rows)))
	return rows, nil
}

// Table is a header row and the data rows beneath it, restricted to a set
// of columns.
type Table struct {
	Header []string
	Rows   [][]string
}

// Column returns the index of the header equal to name, ignoring case and
// surrounding spaces, or -1.
func (t Table) Column(name string) int {
	for i, h := range t.Header {
		if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(name)) {
			return i
		}
	}
	return -1
}

// ReadTable extracts a table whose header is on 1-based row headerRow and
// whose data runs to 1-based row lastRow inclusive. lastRow <= 0 reads to the
// end of the sheet. Only the columns in cols are kept, in order.
func (w *Workbook) ReadTable(sheet string, headerRow, lastRow int, cols Columns) (Table, error) {
	rows, err := w.Rows(sheet)
	if err != nil {
		return Table{}, err
	}
	if headerRow < 1 || headerRow > len(rows) {
		return Table{}, apperrors.NewInputShapeError(
			fmt.Sprintf("header row %d outside sheet %q with %d rows", headerRow, sheet, len(rows)))
	}
	if lastRow <= 0 || lastRow > len(rows) {
		lastRow = len(rows)
	}
	if lastRow < headerRow {
		return Table{}, apperrors.NewInputShapeError(
			fmt.Sprintf("last row %d is above header row %d", lastRow, headerRow))
	}

	t := Table{Header: cols.Pick(rows[headerRow-1])}
	for _, row := range rows[headerRow:lastRow] {
		t.Rows = append(t.Rows, cols.Pick(row))
	}
	return t, nil
}

// Columns is an ordered set of 0-based column indexes.
type Columns []int

// ParseColumns parses a column specification such as "A:P", "B,T" or
// "C:N, T:AC, AI:AR".
func ParseColumns(spec string) (Columns, error) {
	var cols Columns
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		from, to, isRange := strings.Cut(part, ":")
		first, err := excelize.ColumnNameToNumber(strings.TrimSpace(from))
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("bad column %q in %q", from, spec), err)
		}
		last := first
		if isRange {
			if last, err = excelize.ColumnNameToNumber(strings.TrimSpace(to)); err != nil {
				return nil, apperrors.NewParsingError(fmt.Sprintf("bad column %q in %q", to, spec), err)
			}
		}
		if last < first {
			return nil, apperrors.NewParsingError(fmt.Sprintf("column range %q runs backwards", part), nil)
		}
		for c := first; c <= last; c++ {
			cols = append(cols, c-1)
		}
	}
	if len(cols) == 0 {
		return nil, apperrors.NewParsingError(fmt.Sprintf("empty column specification %q", spec), nil)
	}
	return cols, nil
}

// MustParseColumns is ParseColumns for constant specifications.
func MustParseColumns(spec string) Columns {
	cols, err := ParseColumns(spec)
	if err != nil {
		panic(err)
	}
	return cols
}

// Pick returns the cells of row at the set's columns; short rows are padded
// with blanks.
func (c Columns) Pick(row []string) []string {
	out := make([]string, len(c))
	for i, idx := range c {
		if idx < len(row) {
			out[i] = row[idx]
		}
	}
	return out
}

// ParseNumber parses a published count. Thousands separators are accepted;
// blanks and placeholders such as "-" or ":" are missing.
func ParseNumber(cell string) float64 {
	s := strings.ReplaceAll(strings.TrimSpace(cell), ",", "")
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// ParseCellDate parses a date cell given either as an Excel serial number
// or as text.
func ParseCellDate(cell string) (time.Time, error) {
	s := strings.TrimSpace(cell)
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, apperrors.NewParsingError(fmt.Sprintf("bad date serial %q", s), err)
		}
		return series.Midnight(t), nil
	}
	t, err := series.ParseDate(s)
	if err != nil {
		return time.Time{}, apperrors.NewParsingError("bad date cell", err)
	}
	return t, nil
}
