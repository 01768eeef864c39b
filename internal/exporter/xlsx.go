package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"covidcli/internal/config"
	apperrors "covidcli/internal/errors"
)

// XLSXWriter writes tables to Excel workbooks.
type XLSXWriter struct {
	paths *config.Paths
}

// NewXLSXWriter creates a new XLSX writer instance
func NewXLSXWriter(paths *config.Paths) *XLSXWriter {
	return &XLSXWriter{paths: paths}
}

// Write creates the workbook at filePath with one sheet per table and
// returns its full path.
func (w *XLSXWriter) Write(filePath string, tables ...Table) (string, error) {
	if len(tables) == 0 {
		return "", apperrors.NewAppValidationError("workbook needs at least one table")
	}
	fullPath := filePath
	if w.paths != nil && !filepath.IsAbs(filePath) {
		fullPath = w.paths.OutputPath(filePath)
	}

	f := excelize.NewFile()
	defer f.Close()

	seen := map[string]bool{}
	for i, t := range tables {
		name := sheetName(t.Name, i)
		if seen[name] {
			return "", apperrors.NewAppValidationError(fmt.Sprintf("duplicate sheet name %q", name))
		}
		seen[name] = true

		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return "", apperrors.NewStorageError("failed to name sheet", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return "", apperrors.NewStorageError(fmt.Sprintf("failed to add sheet %q", name), err)
		}
		if err := writeSheet(f, name, t); err != nil {
			return "", err
		}
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", apperrors.NewStorageError("failed to create directory", err)
	}
	if err := f.SaveAs(fullPath); err != nil {
		return "", apperrors.NewStorageError(fmt.Sprintf("failed to save %s", fullPath), err)
	}

	slog.Info("Wrote workbook",
		slog.String("full_path", fullPath),
		slog.Int("sheets", len(tables)))
	return fullPath, nil
}

func writeSheet(f *excelize.File, name string, t Table) error {
	sw, err := f.NewStreamWriter(name)
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to open sheet %q", name), err)
	}

	header := make([]interface{}, len(t.Headers))
	for i, h := range t.Headers {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return apperrors.NewStorageError("failed to write header", err)
	}
	for i, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return apperrors.NewStorageError("failed to address row", err)
		}
		if err := sw.SetRow(cell, sheetRow(row)); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("failed to write row %d", i+2), err)
		}
	}
	if err := sw.Flush(); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to flush sheet %q", name), err)
	}
	return nil
}

// sheetRow blanks missing and infinite numbers.
func sheetRow(row []interface{}) []interface{} {
	out := make([]interface{}, len(row))
	for i, v := range row {
		if f, ok := v.(float64); ok {
			out[i] = cellValue(f)
			continue
		}
		out[i] = v
	}
	return out
}

// sheetName makes name valid as an Excel sheet name: at most 31 characters
// and none of []:*?/\.
func sheetName(name string, i int) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		name = fmt.Sprintf("Sheet%d", i+1)
	}
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	return name
}
