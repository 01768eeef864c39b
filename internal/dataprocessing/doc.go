// Package dataprocessing reads the tables out of published spreadsheets.
//
// The publishers lay their workbooks out for people rather than programs:
// title rows above the header, notes below the data, thousands separators
// in numeric cells and date columns that are sometimes text and sometimes
// Excel serial numbers. Workbook and Table hide those details from the
// readers in the ons, nhs and cmi packages, which only describe where their
// table lives.
//
// Summarizer condenses a frame into per-column statistics for the summary
// sheet of exported workbooks.
package dataprocessing
