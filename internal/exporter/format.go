package exporter

import (
	"math"
	"strconv"
	"time"
)

// formatFloat formats a value with the fewest digits that read back exactly.
// Missing and infinite values are written as empty cells, as in XLSX.
func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatDate formats a day as YYYY-MM-DD.
func formatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

// formatInt formats an int value for CSV output
func formatInt(i int) string {
	return strconv.Itoa(i)
}

// cellValue is the XLSX form of a value; missing values become empty cells.
func cellValue(f float64) interface{} {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}
