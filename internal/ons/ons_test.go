package ons

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "covidcli/internal/errors"
)

// writeRegistrations saves an ONS-style workbook: two title rows, a header
// on row 3 and one row per day from 1 March 2020. The date cells are
// deliberately inconsistent, as in the published files.
func writeRegistrations(t *testing.T, days int) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName(f.GetSheetName(0), DailySheet))

	set := func(cell string, v interface{}) { require.NoError(t, f.SetCellValue(DailySheet, cell, v)) }
	set("A1", "Number of deaths registered by date")
	set("A2", "England and Wales")
	require.NoError(t, f.SetSheetRow(DailySheet, "A3", &[]interface{}{"Date", "England", "Wales", "North East"}))

	first := time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < days; i++ {
		row := i + 4
		cell, _ := excelize.CoordinatesToCellName(1, row)
		var date interface{} = first.AddDate(0, 0, i).Format("2 Jan 2006")
		if i > 0 && i < days-1 {
			date = "corrupt"
		}
		values := []interface{}{date, 100 + i, "", i}
		if i == 2 {
			values[1] = "1,000"
		}
		require.NoError(t, f.SetSheetRow(DailySheet, cell, &values))
	}
	cell, _ := excelize.CoordinatesToCellName(1, days+6)
	set(cell, "Source: Office for National Statistics")

	path := filepath.Join(t.TempDir(), "publishedweek142021.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReadDailyRegistrations(t *testing.T) {
	path := writeRegistrations(t, 10)
	meta := Meta{StartRow: 3, EndRow: 13}

	frame, err := ReadDailyRegistrations(path, meta)
	require.NoError(t, err)

	assert.Equal(t, []string{"England", "Wales", "North East"}, frame.Names())
	assert.True(t, time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC).Equal(frame.Start()))
	assert.True(t, time.Date(2020, 3, 10, 0, 0, 0, 0, time.UTC).Equal(frame.End()))

	england, err := frame.Column("England")
	require.NoError(t, err)
	assert.Equal(t, 100.0, england.At(0))
	assert.Equal(t, 1000.0, england.At(2))
	assert.Equal(t, 109.0, england.At(9))

	wales, err := frame.Column("Wales")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(wales.At(4)), "blank cells are missing")
}

func TestReadDailyRegistrations_ExplicitDates(t *testing.T) {
	path := writeRegistrations(t, 5)

	meta := Meta{
		StartRow: 3,
		EndRow:   8,
		Start:    time.Date(2020, 4, 1, 0, 0, 0, 0, time.UTC),
		End:      time.Date(2020, 4, 5, 0, 0, 0, 0, time.UTC),
	}
	frame, err := ReadDailyRegistrations(path, meta)
	require.NoError(t, err)
	assert.True(t, meta.Start.Equal(frame.Start()))

	meta.End = time.Date(2020, 4, 9, 0, 0, 0, 0, time.UTC)
	_, err = ReadDailyRegistrations(path, meta)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInputShape))
}

func TestReadDailyRegistrations_Errors(t *testing.T) {
	path := writeRegistrations(t, 5)

	tests := []struct {
		name string
		meta Meta
		want apperrors.ErrorType
	}{
		{"row window cuts the dates", Meta{StartRow: 3, EndRow: 6}, apperrors.ErrTypeParsing},
		{"header past the end", Meta{StartRow: 40, EndRow: 50}, apperrors.ErrTypeInputShape},
		{"missing sheet", Meta{StartRow: 3, EndRow: 8, Sheet: "Weekly"}, apperrors.ErrTypeInputShape},
		{"bad columns", Meta{StartRow: 3, EndRow: 8, Columns: "P:A"}, apperrors.ErrTypeParsing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadDailyRegistrations(path, tt.meta)
			require.Error(t, err)
			assert.Equal(t, tt.want, apperrors.TypeOf(err))
		})
	}

	_, err := ReadDailyRegistrations(filepath.Join(t.TempDir(), "absent.xlsx"), Meta{StartRow: 3})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage))
}

func TestReadRegion(t *testing.T) {
	path := writeRegistrations(t, 5)

	s, err := ReadRegion(path, Meta{Region: "North East", StartRow: 3, EndRow: 8})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2, 3, 4}, s.Values())

	_, err = ReadRegion(path, Meta{Region: "Scotland", StartRow: 3, EndRow: 8})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInputShape))
}
