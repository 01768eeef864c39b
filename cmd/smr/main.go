package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"covidcli/internal/app"
	"covidcli/internal/chart"
	"covidcli/internal/cmi"
	"covidcli/internal/exporter"
)

type options struct {
	workbook string
	set      string
	gender   string
	band     string
	relative bool
	out      string
}

type result struct {
	category   cmi.Category
	smr        *cmi.SMR
	cumulative *cmi.CumulativeSMR
	files      []string
}

func main() {
	var opts options
	flag.StringVar(&opts.workbook, "workbook", "", "CMI mortality monitor workbook, relative to the data directory")
	flag.StringVar(&opts.set, "set", "weekly", "weekly | quarterly | annual")
	flag.StringVar(&opts.gender, "gender", "Unisex", "Unisex | Male | Female")
	flag.StringVar(&opts.band, "band", "20to100", "age band such as 20to100 or 85plus")
	flag.BoolVar(&opts.relative, "relative", false, "read cumulative SMR relative to the 2019 average")
	flag.StringVar(&opts.out, "out", "smr", "output name without extension")
	flag.Parse()

	if opts.workbook == "" {
		slog.Error("Missing required flag", slog.String("flag", "workbook"))
		flag.Usage()
		os.Exit(2)
	}

	application, err := app.NewApplication("smr")
	if err != nil {
		slog.Error("Failed to initialize", slog.String("error", err.Error()))
		os.Exit(1)
	}

	err = application.Run(func(ctx context.Context) error {
		res, err := run(ctx, application, opts)
		if err != nil {
			return err
		}
		application.Logger.InfoContext(ctx, "SMR exported",
			slog.String("category", res.category.String()),
			slog.Any("files", res.files))
		return nil
	})
	if err != nil {
		slog.Error("SMR export failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func (o options) category() (cmi.SMRSet, cmi.Category, error) {
	set, err := cmi.ParseSMRSet(o.set)
	if err != nil {
		return 0, cmi.Category{}, err
	}
	gender, err := cmi.ParseGender(o.gender)
	if err != nil {
		return 0, cmi.Category{}, err
	}
	band, err := cmi.ParseAgeBand(o.band)
	if err != nil {
		return 0, cmi.Category{}, err
	}
	c, err := cmi.NewCategory(gender, band)
	return set, c, err
}

func run(ctx context.Context, a *app.Application, opts options) (*result, error) {
	set, category, err := opts.category()
	if err != nil {
		return nil, err
	}
	path := a.Paths.DataPath(opts.workbook)

	ctx, span := a.Telemetry.Start(ctx, "smr.load")
	smr, err := cmi.ReadSMR(path, set)
	if err != nil {
		span.End()
		return nil, fmt.Errorf("weekly SMR: %w", err)
	}
	cumulative, err := cmi.ReadCumulativeSMR(path, category, opts.relative)
	span.End()
	if err != nil {
		return nil, fmt.Errorf("cumulative SMR: %w", err)
	}

	res := &result{category: category, smr: smr, cumulative: cumulative}
	weekly := weeklyTable(smr, category)
	cum := cumulativeTable(cumulative)

	for _, export := range []struct {
		name  string
		table exporter.Table
	}{
		{opts.out + ".csv", weekly},
		{opts.out + "_cumulative.csv", cum},
	} {
		p, err := a.Exporter.ExportTable(export.name, export.table)
		if err != nil {
			return nil, err
		}
		res.files = append(res.files, p)
	}
	p, err := a.Exporter.ExportWorkbook(opts.out+".xlsx", weekly, cum)
	if err != nil {
		return nil, err
	}
	res.files = append(res.files, p)

	png := a.Paths.OutputPath(opts.out + ".png")
	if err := chart.Save(ctx, a.Renderer, smrFigure(smr, cumulative), png); err != nil {
		return nil, err
	}
	a.Telemetry.PipelineMetrics().RecordChart(ctx, "smr")
	res.files = append(res.files, png)
	return res, nil
}

// weeklyTable has one row per ISO year and week of the category.
func weeklyTable(smr *cmi.SMR, c cmi.Category) exporter.Table {
	t := exporter.Table{Name: "weekly smr", Headers: []string{"year", "week", c.Header()}}
	for _, year := range smr.Years() {
		key := cmi.Key{Category: c, Year: year}
		for _, week := range smr.Weeks(key) {
			v, _ := smr.Value(key, week)
			t.Rows = append(t.Rows, []interface{}{year, week, v})
		}
	}
	return t
}

// cumulativeTable has one row per day of year and one column per year.
func cumulativeTable(c *cmi.CumulativeSMR) exporter.Table {
	years := c.Years()
	t := exporter.Table{Name: "cumulative smr", Headers: []string{"day"}}
	days := 0
	values := make([][]float64, len(years))
	for i, y := range years {
		t.Headers = append(t.Headers, strconv.Itoa(y))
		values[i] = c.Days(y)
		days = max(days, len(values[i]))
	}
	for d := 0; d < days; d++ {
		row := []interface{}{d + 1}
		for i := range years {
			if d < len(values[i]) {
				row = append(row, values[i][d])
			} else {
				row = append(row, nil)
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// smrFigure draws each year's weekly SMR and cumulative SMR against the
// week and the day of the year.
func smrFigure(smr *cmi.SMR, c *cmi.CumulativeSMR) chart.Figure {
	weekly := chart.Panel{Title: "SMR (" + c.Category.String() + ")", XLabel: "ISO week", YLabel: "SMR"}
	for i, year := range smr.Years() {
		ys := smr.Year(cmi.Key{Category: c.Category, Year: year})
		line := chart.OffsetLine(strconv.Itoa(year), ys, chart.Palette(i))
		for k := range line.X {
			line.X[k]++
		}
		weekly.Lines = append(weekly.Lines, line)
	}

	title := "cumulative SMR"
	if c.Relative {
		title = "cumulative SMR relative to 2019"
	}
	cumulative := chart.Panel{Title: title, XLabel: "day of year", YLabel: "cumulative SMR"}
	for i, year := range c.Years() {
		line := chart.OffsetLine(strconv.Itoa(year), c.Days(year), chart.Palette(i))
		for k := range line.X {
			line.X[k]++
		}
		cumulative.Lines = append(cumulative.Lines, line)
	}

	return chart.Figure{Title: "Standardised mortality ratio", Cols: 2, Panels: []chart.Panel{weekly, cumulative}}
}
