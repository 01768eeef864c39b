// Package exporter writes estimates, fits and other series to CSV and XLSX
// files under the output directory.
//
// CSVWriter: Core CSV writing with headers, streaming, and an optional
// UTF-8 BOM so Excel detects the encoding.
//
// Exporter: Turns frames, fits and monthly points into rows and writes them
// through CSVWriter, or one sheet per table through XLSXWriter.
//
// Example usage:
//
//	exp := exporter.New(paths)
//
//	// One CSV with a date column and one column per series
//	path, err := exp.ExportFrame("england.csv", est.Frame())
//
//	// Fitted growth rates for each segment
//	path, err = exp.ExportFits("england_fits.csv", results)
package exporter
