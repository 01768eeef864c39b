package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"covidcli/internal/app"
	"covidcli/internal/chart"
	"covidcli/internal/exporter"
	"covidcli/internal/ons"
	"covidcli/internal/owid"
	"covidcli/internal/seasonal"
	"covidcli/internal/series"
)

type options struct {
	owid     string
	country  string
	from     string
	to       string
	ons      string
	region   string
	startRow int
	endRow   int
	season   int
	out      string
}

// result lists what a seasonal run produced.
type result struct {
	deaths  series.Frame
	monthly []series.Point
	files   []string
}

func main() {
	defaults := ons.DefaultMeta("", "")
	var opts options
	flag.StringVar(&opts.owid, "owid", "", "Our World in Data CSV export, relative to the data directory")
	flag.StringVar(&opts.country, "country", "", "location compared with the United Kingdom")
	flag.StringVar(&opts.from, "from", "", "first day (defaults to the first row of the export)")
	flag.StringVar(&opts.to, "to", "", "last day (defaults to the last row of the export)")
	flag.StringVar(&opts.ons, "ons", "", "ONS daily registrations workbook for the Hope-Simpson comparison")
	flag.StringVar(&opts.region, "region", "England", "ONS region compared with Hope-Simpson")
	flag.IntVar(&opts.startRow, "start-row", defaults.StartRow, "header row of the ONS table")
	flag.IntVar(&opts.endRow, "end-row", defaults.EndRow, "last row of the ONS table")
	flag.IntVar(&opts.season, "season", 2020, "year the compared July to June season starts")
	flag.StringVar(&opts.out, "out", "seasonal", "output name without extension")
	flag.Parse()

	if opts.owid == "" {
		slog.Error("Missing required flag", slog.String("flag", "owid"))
		flag.Usage()
		os.Exit(2)
	}

	application, err := app.NewApplication("seasonal")
	if err != nil {
		slog.Error("Failed to initialize", slog.String("error", err.Error()))
		os.Exit(1)
	}

	err = application.Run(func(ctx context.Context) error {
		res, err := run(ctx, application, opts)
		if err != nil {
			return err
		}
		application.Logger.InfoContext(ctx, "Seasonal comparison written", slog.Any("files", res.files))
		return nil
	})
	if err != nil {
		slog.Error("Seasonal comparison failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app.Application, opts options) (*result, error) {
	deaths, err := readDeaths(ctx, a, opts)
	if err != nil {
		return nil, err
	}
	declination, err := seasonal.DeclinationFrame(deaths.Start(), deaths.End())
	if err != nil {
		return nil, err
	}

	res := &result{deaths: deaths}
	path := a.Paths.OutputPath(opts.out + ".png")
	if err := chart.Save(ctx, a.Renderer, declinationFigure(deaths, declination), path); err != nil {
		return nil, err
	}
	a.Telemetry.PipelineMetrics().RecordChart(ctx, "declination")
	res.files = append(res.files, path)

	combined := series.Align(append(deaths.Columns(), declination.Columns()...)...)
	csvPath, err := a.Exporter.ExportFrame(opts.out+".csv", combined)
	if err != nil {
		return nil, err
	}
	res.files = append(res.files, csvPath)

	if opts.ons == "" {
		return res, nil
	}

	meta := ons.DefaultMeta(opts.ons, opts.region)
	meta.StartRow, meta.EndRow = opts.startRow, opts.endRow
	registrations, err := ons.ReadRegion(a.Paths.DataPath(opts.ons), meta)
	if err != nil {
		return nil, fmt.Errorf("registrations: %w", err)
	}
	a.Telemetry.PipelineMetrics().RecordRows(ctx, "ons", registrations.Len())

	res.monthly, err = seasonal.WinterMonthly(registrations, opts.season)
	if err != nil {
		return nil, err
	}

	name := opts.out + "_hope_simpson"
	table := hopeSimpsonTable(opts.region, res.monthly)
	tablePath, err := a.Exporter.ExportTable(name+".csv", table)
	if err != nil {
		return nil, err
	}
	pngPath := a.Paths.OutputPath(name + ".png")
	if err := chart.Save(ctx, a.Renderer, hopeSimpsonFigure(opts.region, opts.season, res.monthly), pngPath); err != nil {
		return nil, err
	}
	a.Telemetry.PipelineMetrics().RecordChart(ctx, "hope_simpson")
	res.files = append(res.files, tablePath, pngPath)
	return res, nil
}

func readDeaths(ctx context.Context, a *app.Application, opts options) (series.Frame, error) {
	ctx, span := a.Telemetry.Start(ctx, "seasonal.load", attribute.String("country", opts.country))
	defer span.End()

	frame, err := owid.ReadDeaths(a.Paths.DataPath(opts.owid), opts.country)
	if err != nil {
		return series.Frame{}, fmt.Errorf("owid: %w", err)
	}
	a.Telemetry.PipelineMetrics().RecordRows(ctx, "owid", frame.Len())

	from, to := frame.Start(), frame.End()
	if opts.from != "" {
		if from, err = series.ParseDate(opts.from); err != nil {
			return series.Frame{}, err
		}
	}
	if opts.to != "" {
		if to, err = series.ParseDate(opts.to); err != nil {
			return series.Frame{}, err
		}
	}
	clipped := frame.Between(from, to)
	if clipped.Len() == 0 {
		return series.Frame{}, fmt.Errorf("no deaths between %s and %s", from.Format(time.DateOnly), to.Format(time.DateOnly))
	}
	return clipped, nil
}

func declinationFigure(deaths, declination series.Frame) chart.Figure {
	deathPanel := chart.Panel{Title: "deaths per million (7 day average)", YLabel: "deaths per million", Time: true}
	for i, col := range deaths.Columns() {
		deathPanel.Lines = append(deathPanel.Lines, chart.DateLine(col.Name(), col, chart.Palette(i)))
	}

	anglePanel := chart.Panel{Title: "solar declination", YLabel: "degrees", Time: true}
	winter, _ := declination.Column(seasonal.ColumnWinter)
	summer, _ := declination.Column(seasonal.ColumnSummer)
	blue, _ := chart.ParseColor("tab:blue")
	red, _ := chart.ParseColor("tab:red")
	anglePanel.Lines = []chart.Line{
		chart.DateLine(winter.Name(), winter, blue),
		chart.DateLine(summer.Name(), summer, red),
	}

	return chart.Figure{Title: "Deaths and the seasons", Cols: 2, Panels: []chart.Panel{deathPanel, anglePanel}}
}

func hopeSimpsonTable(region string, monthly []series.Point) exporter.Table {
	t := exporter.Table{
		Name:    "hope simpson",
		Headers: []string{"month", seasonal.ColumnHope, region},
	}
	for _, p := range monthly {
		t.Rows = append(t.Rows, []interface{}{p.Date.Month().String(), seasonal.HopeSimpson[p.Date.Month()], p.Value})
	}
	return t
}

// hopeSimpsonFigure plots the monthly shares against months from July.
func hopeSimpsonFigure(region string, season int, monthly []series.Point) chart.Figure {
	hope := make([]float64, len(monthly))
	observed := make([]float64, len(monthly))
	for i, p := range monthly {
		hope[i] = seasonal.HopeSimpson[p.Date.Month()]
		observed[i] = p.Value
	}
	grey, _ := chart.ParseColor("grey")
	panel := chart.Panel{
		Title:  fmt.Sprintf("%d/%d season", season, season+1),
		XLabel: "months from July",
		YLabel: "% of season",
		Lines: []chart.Line{
			chart.OffsetLine(seasonal.ColumnHope, hope, grey),
			chart.OffsetLine(region, observed, chart.Palette(0)),
		},
	}
	return chart.Figure{Title: "Monthly share of deaths", Panels: []chart.Panel{panel}}
}
