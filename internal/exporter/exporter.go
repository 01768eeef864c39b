package exporter

import (
	"fmt"
	"time"

	"covidcli/internal/config"
	"covidcli/internal/estimator"
	"covidcli/internal/series"
)

// Exporter writes analysis results as CSV and XLSX tables.
type Exporter struct {
	csvWriter  *CSVWriter
	xlsxWriter *XLSXWriter
}

// New creates an exporter writing under paths.OutputDir.
func New(paths *config.Paths) *Exporter {
	return &Exporter{
		csvWriter:  NewCSVWriter(paths),
		xlsxWriter: NewXLSXWriter(paths),
	}
}

// Table is a header row and its records.
type Table struct {
	Name    string
	Headers []string
	Rows    [][]interface{}
}

// ExportFrame writes one row per day: the date and then every column.
func (e *Exporter) ExportFrame(filePath string, frame series.Frame) (string, error) {
	stream, err := e.csvWriter.CreateStreamWriter(filePath, frameHeaders(frame))
	if err != nil {
		return "", err
	}
	cols := frame.Columns()
	for i := 0; i < frame.Len(); i++ {
		if err := stream.WriteRecord(frameRow(frame.Start().AddDate(0, 0, i), cols, i)); err != nil {
			stream.Close()
			return "", fmt.Errorf("row %d: %w", i, err)
		}
	}
	if err := stream.Close(); err != nil {
		return "", err
	}
	return stream.Path(), nil
}

// ExportFits writes one row per segment. Failed segments keep their row
// with the error message.
func (e *Exporter) ExportFits(filePath string, results []estimator.SegmentResult) (string, error) {
	var records [][]string
	for _, r := range results {
		records = append(records, fitRow(r))
	}
	return e.csvWriter.WriteSimpleCSV(filePath, fitHeaders(), records)
}

// ExportPoints writes dated values such as monthly totals.
func (e *Exporter) ExportPoints(filePath, valueHeader string, points []series.Point) (string, error) {
	records := make([][]string, len(points))
	for i, p := range points {
		records[i] = []string{formatDate(p.Date), formatFloat(p.Value)}
	}
	return e.csvWriter.WriteSimpleCSV(filePath, []string{"date", valueHeader}, records)
}

// ExportTable writes a generic table.
func (e *Exporter) ExportTable(filePath string, table Table) (string, error) {
	records := make([][]string, len(table.Rows))
	for i, row := range table.Rows {
		rec := make([]string, len(row))
		for j, v := range row {
			rec[j] = formatCell(v)
		}
		records[i] = rec
	}
	return e.csvWriter.WriteSimpleCSV(filePath, table.Headers, records)
}

// ExportWorkbook writes each table to its own sheet of one XLSX file.
func (e *Exporter) ExportWorkbook(filePath string, tables ...Table) (string, error) {
	return e.xlsxWriter.Write(filePath, tables...)
}

// FrameTable converts a frame to a table with a date column.
func FrameTable(name string, frame series.Frame) Table {
	cols := frame.Columns()
	rows := make([][]interface{}, frame.Len())
	for i := range rows {
		row := make([]interface{}, 0, len(cols)+1)
		row = append(row, formatDate(frame.Start().AddDate(0, 0, i)))
		for _, c := range cols {
			row = append(row, cellValue(c.At(i)))
		}
		rows[i] = row
	}
	return Table{Name: name, Headers: frameHeaders(frame), Rows: rows}
}

// FitTable converts segment fits to a table.
func FitTable(name string, results []estimator.SegmentResult) Table {
	rows := make([][]interface{}, len(results))
	for i, r := range results {
		rec := fitRow(r)
		row := make([]interface{}, len(rec))
		for j, v := range rec {
			row[j] = v
		}
		if r.Fit != nil {
			row[3], row[4] = r.Fit.Slope, r.Fit.Intercept
			row[5] = r.Fit.Points
			row[6], row[7] = cellValue(r.Fit.GrowthFactor()), cellValue(r.Fit.DoublingDays())
		}
		rows[i] = row
	}
	return Table{Name: name, Headers: fitHeaders(), Rows: rows}
}

func frameHeaders(frame series.Frame) []string {
	return append([]string{"date"}, frame.Names()...)
}

func frameRow(date time.Time, cols []series.Daily, i int) []string {
	row := make([]string, 0, len(cols)+1)
	row = append(row, formatDate(date))
	for _, c := range cols {
		row = append(row, formatFloat(c.At(i)))
	}
	return row
}

func fitHeaders() []string {
	return []string{
		"label", "start", "end", "slope", "intercept", "points",
		"growth_factor", "doubling_days", "error",
	}
}

func fitRow(r estimator.SegmentResult) []string {
	row := []string{
		r.Segment.Label,
		formatDate(r.Segment.Start),
		formatDate(r.Segment.End),
		"", "", "", "", "", "",
	}
	if r.Err != nil {
		row[8] = r.Err.Error()
		return row
	}
	row[3] = formatFloat(r.Fit.Slope)
	row[4] = formatFloat(r.Fit.Intercept)
	row[5] = formatInt(r.Fit.Points)
	row[6] = formatFloat(r.Fit.GrowthFactor())
	row[7] = formatFloat(r.Fit.DoublingDays())
	return row
}

func formatCell(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return formatFloat(x)
	case int:
		return formatInt(x)
	case time.Time:
		return formatDate(x)
	default:
		return fmt.Sprint(x)
	}
}
