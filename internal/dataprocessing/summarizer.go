package dataprocessing

import (
	"log/slog"
	"math"
	"time"

	"github.com/montanaflynn/stats"

	"covidcli/internal/series"
)

// ColumnSummary describes one column of a frame. Missing days are skipped
// by every statistic; Count is the number of days with a value.
type ColumnSummary struct {
	Name     string
	First    time.Time
	Last     time.Time
	Days     int
	Count    int
	Sum      float64
	Mean     float64
	Median   float64
	Peak     float64
	PeakDate time.Time
	Latest   float64
}

// Summarizer condenses frames into per-column summaries.
type Summarizer struct {
	logger *slog.Logger
}

// NewSummarizer creates a summarizer. A nil logger uses the default.
func NewSummarizer(logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{logger: logger}
}

// Summarize returns one summary per column, in column order. Columns with
// no values have NaN statistics and a zero PeakDate.
func (s *Summarizer) Summarize(frame series.Frame) []ColumnSummary {
	cols := frame.Columns()
	out := make([]ColumnSummary, 0, len(cols))
	for _, col := range cols {
		out = append(out, summarizeColumn(col))
	}
	s.logger.Debug("Summarized frame",
		slog.Int("columns", len(out)),
		slog.Int("days", frame.Len()))
	return out
}

func summarizeColumn(col series.Daily) ColumnSummary {
	sum := ColumnSummary{
		Name:   col.Name(),
		First:  col.Start(),
		Last:   col.End(),
		Days:   col.Len(),
		Sum:    math.NaN(),
		Mean:   math.NaN(),
		Median: math.NaN(),
		Peak:   math.NaN(),
		Latest: math.NaN(),
	}

	valid := stats.Float64Data(col.Valid())
	sum.Count = len(valid)
	if sum.Count == 0 {
		return sum
	}

	sum.Sum, _ = valid.Sum()
	sum.Mean, _ = valid.Mean()
	sum.Median, _ = valid.Median()

	for i := 0; i < col.Len(); i++ {
		v := col.At(i)
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(sum.Peak) || v > sum.Peak {
			sum.Peak, sum.PeakDate = v, col.Date(i)
		}
		sum.Latest = v
	}
	return sum
}
