package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"covidcli/internal/app"
	"covidcli/internal/ons"
	"covidcli/internal/report"
)

type options struct {
	workbook string
	region   string
	sheet    string
	startRow int
	endRow   int
	from     string
	to       string
	lag      int
	window   int
	out      string
	fits     fitFlags
}

// fitFlags collects -fit label=from:to segments.
type fitFlags []report.FitSpec

func (f *fitFlags) String() string {
	parts := make([]string, len(*f))
	for i, s := range *f {
		parts[i] = fmt.Sprintf("%s=%s:%s", s.Label, s.From, s.To)
	}
	return strings.Join(parts, ",")
}

func (f *fitFlags) Set(v string) error {
	label, span, ok := strings.Cut(v, "=")
	if !ok {
		return fmt.Errorf("fit %q is not label=from:to", v)
	}
	from, to, ok := strings.Cut(span, ":")
	if !ok || strings.TrimSpace(label) == "" {
		return fmt.Errorf("fit %q is not label=from:to", v)
	}
	*f = append(*f, report.FitSpec{Label: strings.TrimSpace(label), From: strings.TrimSpace(from), To: strings.TrimSpace(to)})
	return nil
}

func main() {
	defaults := ons.DefaultMeta("", "")
	var opts options
	flag.StringVar(&opts.workbook, "workbook", "", "ONS daily registrations workbook, relative to the data directory")
	flag.StringVar(&opts.region, "region", "England", "region column to estimate")
	flag.StringVar(&opts.sheet, "sheet", "", "worksheet (defaults to "+ons.DailySheet+")")
	flag.IntVar(&opts.startRow, "start-row", defaults.StartRow, "header row of the table")
	flag.IntVar(&opts.endRow, "end-row", defaults.EndRow, "last row of the table")
	flag.StringVar(&opts.from, "from", "", "first day to chart (defaults to the start of the estimate)")
	flag.StringVar(&opts.to, "to", "", "last day to chart (defaults to the last registration)")
	flag.IntVar(&opts.lag, "lag", -1, "days from infection to death registration (defaults to config)")
	flag.IntVar(&opts.window, "window", -1, "smoothing window in days (defaults to config)")
	flag.StringVar(&opts.out, "out", "", "output name without extension (defaults to the region)")
	flag.Var(&opts.fits, "fit", "log-linear fit segment label=from:to (repeatable)")
	flag.Parse()

	if opts.workbook == "" {
		slog.Error("Missing required flag", slog.String("flag", "workbook"))
		flag.Usage()
		os.Exit(2)
	}

	application, err := app.NewApplication("infections")
	if err != nil {
		slog.Error("Failed to initialize", slog.String("error", err.Error()))
		os.Exit(1)
	}

	err = application.Run(func(ctx context.Context) error {
		res, err := run(ctx, application, opts)
		if err != nil {
			return err
		}
		for _, f := range res.Files {
			application.Logger.InfoContext(ctx, "Wrote output", slog.String("path", f))
		}
		return nil
	})
	if err != nil {
		slog.Error("Fatal infections estimate failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app.Application, opts options) (*report.Result, error) {
	job, err := opts.job()
	if err != nil {
		return nil, err
	}
	return report.NewRunner(a.Config, a.Paths, a.Renderer, a.Telemetry).Run(ctx, job)
}

// job expresses the flags as a one-chart report job.
func (o options) job() (*report.Job, error) {
	out := o.out
	if out == "" {
		out = strings.ToLower(strings.Join(strings.Fields(o.region), "_"))
	}

	job := &report.Job{
		Title:  o.region,
		Output: out,
		Source: report.Source{
			Workbook: o.workbook,
			Region:   o.region,
			Sheet:    o.sheet,
			StartRow: o.startRow,
			EndRow:   o.endRow,
		},
		Charts: []report.ChartSpec{{
			Name:       out,
			Title:      "Fatal infections: " + o.region,
			From:       o.from,
			To:         o.to,
			ShowDeaths: true,
			Fits:       o.fits,
		}},
	}
	if o.lag >= 0 {
		lag := o.lag
		job.Estimator.LagDays = &lag
	}
	if o.window > 0 {
		window := o.window
		job.Estimator.Window = &window
	}

	if err := report.ValidateStruct(job); err != nil {
		return nil, err
	}
	return job, nil
}
