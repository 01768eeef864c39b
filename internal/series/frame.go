package series

import (
	"fmt"
	"time"

	apperrors "covidcli/internal/errors"
)

// Frame is a set of named daily columns sharing one date index.
type Frame struct {
	start  time.Time
	length int
	names  []string
	cols   map[string]Daily
}

// NewFrame builds a frame from columns that already share an index.
func NewFrame(cols ...Daily) (Frame, error) {
	f := Frame{cols: make(map[string]Daily, len(cols))}
	for i, c := range cols {
		if i == 0 {
			f.start, f.length = c.Start(), c.Len()
		}
		if !c.Start().Equal(f.start) || c.Len() != f.length {
			return Frame{}, apperrors.NewInputShapeError(
				fmt.Sprintf("column %q spans %s+%d, frame spans %s+%d", c.Name(),
					c.Start().Format(time.DateOnly), c.Len(), f.start.Format(time.DateOnly), f.length))
		}
		if _, dup := f.cols[c.Name()]; dup {
			return Frame{}, apperrors.NewInputShapeError(fmt.Sprintf("duplicate column %q", c.Name()))
		}
		f.names = append(f.names, c.Name())
		f.cols[c.Name()] = c
	}
	return f, nil
}

// Align reindexes every column to the union of their ranges.
func Align(cols ...Daily) Frame {
	if len(cols) == 0 {
		return Frame{cols: map[string]Daily{}}
	}
	start, end := cols[0].Start(), cols[0].End()
	for _, c := range cols[1:] {
		if c.Start().Before(start) {
			start = c.Start()
		}
		if c.End().After(end) {
			end = c.End()
		}
	}
	f := Frame{start: start, length: DaysBetween(start, end) + 1, cols: make(map[string]Daily, len(cols))}
	for _, c := range cols {
		if _, dup := f.cols[c.Name()]; !dup {
			f.names = append(f.names, c.Name())
		}
		f.cols[c.Name()] = c.Reindex(start, end)
	}
	return f
}

func (f Frame) Start() time.Time { return f.start }

func (f Frame) Len() int { return f.length }

// End returns the last date of the index.
func (f Frame) End() time.Time {
	if f.length == 0 {
		return f.start
	}
	return f.start.AddDate(0, 0, f.length-1)
}

// Names returns the column names in insertion order.
func (f Frame) Names() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// Column returns the named column.
func (f Frame) Column(name string) (Daily, error) {
	c, ok := f.cols[name]
	if !ok {
		return Daily{}, apperrors.NewColumnNotFoundError(name, f.names)
	}
	return c, nil
}

// Has reports whether the frame holds a column called name.
func (f Frame) Has(name string) bool {
	_, ok := f.cols[name]
	return ok
}

// With returns a copy of the frame with col added or replaced. The column
// must share the frame's index unless the frame is empty.
func (f Frame) With(col Daily) (Frame, error) {
	if len(f.names) == 0 {
		return NewFrame(col)
	}
	if !col.Start().Equal(f.start) || col.Len() != f.length {
		return Frame{}, apperrors.NewInputShapeError(
			fmt.Sprintf("column %q does not share the frame index", col.Name()))
	}
	out := Frame{start: f.start, length: f.length, cols: make(map[string]Daily, len(f.cols)+1)}
	for _, n := range f.names {
		out.names = append(out.names, n)
		out.cols[n] = f.cols[n]
	}
	if _, ok := out.cols[col.Name()]; !ok {
		out.names = append(out.names, col.Name())
	}
	out.cols[col.Name()] = col
	return out, nil
}

// Columns returns the columns in insertion order.
func (f Frame) Columns() []Daily {
	out := make([]Daily, len(f.names))
	for i, n := range f.names {
		out[i] = f.cols[n]
	}
	return out
}

// Between clips every column to [start, end].
func (f Frame) Between(start, end time.Time) Frame {
	cols := make([]Daily, len(f.names))
	for i, n := range f.names {
		cols[i] = f.cols[n].Between(start, end)
	}
	out, _ := NewFrame(cols...)
	return out
}
