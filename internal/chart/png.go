package chart

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	apperrors "covidcli/internal/errors"
)

// Renderer draws a figure to w.
type Renderer interface {
	Render(ctx context.Context, fig Figure, w io.Writer) error
}

// PNGRenderer renders figures with gonum/plot. It holds no state between
// calls and may be shared by goroutines.
type PNGRenderer struct {
	Width  vg.Length
	Height vg.Length
	DPI    int
}

// NewPNGRenderer returns a renderer for images of the given size in inches.
func NewPNGRenderer(width, height float64, dpi int) *PNGRenderer {
	if dpi <= 0 {
		dpi = vgimg.DefaultDPI
	}
	return &PNGRenderer{
		Width:  vg.Length(width) * vg.Inch,
		Height: vg.Length(height) * vg.Inch,
		DPI:    dpi,
	}
}

const titleHeight = 10 * vg.Millimeter

// Render implements Renderer.
func (r *PNGRenderer) Render(ctx context.Context, fig Figure, w io.Writer) error {
	if err := fig.validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	grid, err := fig.plots()
	if err != nil {
		return err
	}

	img := vgimg.NewWith(vgimg.UseWH(r.Width, r.Height), vgimg.UseDPI(r.DPI))
	dc := draw.New(img)
	if fig.Title != "" {
		sty := grid[0][0].Title.TextStyle
		sty.Font.Size = vg.Points(14)
		sty.XAlign = text.XCenter
		sty.YAlign = text.YTop
		dc.FillText(sty, vg.Point{X: (dc.Min.X + dc.Max.X) / 2, Y: dc.Max.Y - vg.Millimeter}, fig.Title)
		dc = draw.Crop(dc, 0, 0, 0, -titleHeight)
	}

	tiles := draw.Tiles{
		Rows:      len(grid),
		Cols:      fig.cols(),
		PadX:      6 * vg.Millimeter,
		PadY:      6 * vg.Millimeter,
		PadTop:    2 * vg.Millimeter,
		PadBottom: 2 * vg.Millimeter,
		PadLeft:   2 * vg.Millimeter,
		PadRight:  4 * vg.Millimeter,
	}
	canvases := plot.Align(grid, tiles, dc)
	for i := range grid {
		for j := range grid[i] {
			grid[i][j].Draw(canvases[i][j])
		}
	}

	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(w); err != nil {
		return apperrors.NewStorageError("failed to encode PNG", err)
	}

	slog.Debug("Rendered figure",
		slog.String("title", fig.Title),
		slog.Int("panels", len(fig.Panels)))
	return nil
}

// Save renders fig to path, creating its directory.
func Save(ctx context.Context, r Renderer, fig Figure, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to create directory for %s", path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to create %s", path), err)
	}
	if err := r.Render(ctx, fig, f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to write %s", path), err)
	}
	return nil
}

// plots lays the panels out row by row. Unused cells of the last row get
// an empty plot with hidden axes.
func (f Figure) plots() ([][]*plot.Plot, error) {
	cols := f.cols()
	rows := (len(f.Panels) + cols - 1) / cols
	grid := make([][]*plot.Plot, rows)
	for i := range grid {
		grid[i] = make([]*plot.Plot, cols)
		for j := range grid[i] {
			k := i*cols + j
			if k >= len(f.Panels) {
				blank := plot.New()
				blank.HideAxes()
				grid[i][j] = blank
				continue
			}
			p, err := f.Panels[k].plot()
			if err != nil {
				return nil, fmt.Errorf("panel %d: %w", k+1, err)
			}
			grid[i][j] = p
		}
	}
	return grid, nil
}

func (p Panel) plot() (*plot.Plot, error) {
	pl := plot.New()
	pl.Title.Text = p.Title
	pl.X.Label.Text = p.XLabel
	pl.Y.Label.Text = p.YLabel
	pl.Legend.Top = true
	pl.Legend.Left = true
	if p.Time {
		pl.X.Tick.Marker = plot.TimeTicks{Format: "Jan\n2006"}
	}
	pl.Add(plotter.NewGrid())

	lo, hi := p.yRange()
	for i, r := range p.Regions {
		x1, x2 := TimeX(r.Start), TimeX(r.End)
		poly, err := plotter.NewPolygon(plotter.XYs{{X: x1, Y: lo}, {X: x2, Y: lo}, {X: x2, Y: hi}, {X: x1, Y: hi}})
		if err != nil {
			return nil, apperrors.NewAppError(apperrors.ErrTypeValidation, fmt.Sprintf("region %q", r.Label), err)
		}
		c := r.Color
		if c == nil {
			c = Palette(i)
		}
		poly.Color = fade(c, 0.1)
		poly.LineStyle.Width = 0
		pl.Add(poly)
		if r.Label != "" {
			pl.Legend.Add(r.Label, poly)
		}
	}

	for i, l := range p.Lines {
		if err := addLine(pl, l, i); err != nil {
			return nil, err
		}
	}

	for i, ev := range p.Events {
		x := TimeX(ev.Date)
		mark, err := plotter.NewLine(plotter.XYs{{X: x, Y: lo}, {X: x, Y: hi}})
		if err != nil {
			return nil, apperrors.NewAppError(apperrors.ErrTypeValidation, fmt.Sprintf("event %q", ev.Label), err)
		}
		mark.Color = fade(Palette(7), 0.6)
		mark.Dashes = []vg.Length{vg.Points(3), vg.Points(3)}
		labels, err := plotter.NewLabels(plotter.XYLabels{
			XYs:    plotter.XYs{{X: x, Y: hi}},
			Labels: []string{fmt.Sprintf("%d %s", i+1, ev.Label)},
		})
		if err != nil {
			return nil, apperrors.NewAppError(apperrors.ErrTypeValidation, fmt.Sprintf("event %q", ev.Label), err)
		}
		pl.Add(mark, labels)
	}

	if p.Limits != nil {
		pl.Y.Min, pl.Y.Max = p.Limits.Min, p.Limits.Max
	}
	return pl, nil
}

// addLine draws every unbroken run of l as its own line; only the first
// run goes in the legend.
func addLine(pl *plot.Plot, l Line, i int) error {
	c := l.Color
	if c == nil {
		c = Palette(i)
	}
	if l.Faint {
		c = fade(c, 0.3)
	}

	for k, run := range runs(l.X, l.Y) {
		line, err := plotter.NewLine(run)
		if err != nil {
			return apperrors.NewAppError(apperrors.ErrTypeValidation, fmt.Sprintf("line %q", l.Label), err)
		}
		line.Color = c
		line.Width = vg.Points(1.5)
		if l.Dashed {
			line.Dashes = []vg.Length{vg.Points(5), vg.Points(3)}
		}
		if l.Fill {
			line.FillColor = fade(c, 0.1)
		}
		pl.Add(line)
		if k == 0 && l.Label != "" {
			pl.Legend.Add(l.Label, line)
		}
	}
	return nil
}

// runs splits the points into maximal stretches of finite Y values.
func runs(xs, ys []float64) []plotter.XYs {
	var out []plotter.XYs
	var cur plotter.XYs
	for i := range xs {
		y := ys[i]
		if math.IsNaN(y) || math.IsInf(y, 0) {
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, plotter.XY{X: xs[i], Y: y})
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}
