package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"covidcli/internal/app"
	"covidcli/internal/report"
)

func main() {
	jobPath := flag.String("job", "", "report job file (YAML)")
	flag.Parse()

	if *jobPath == "" {
		slog.Error("Missing required flag", slog.String("flag", "job"))
		flag.Usage()
		os.Exit(2)
	}

	job, err := report.LoadJob(*jobPath)
	if err != nil {
		slog.Error("Failed to load job", slog.String("job", *jobPath), slog.String("error", err.Error()))
		os.Exit(1)
	}

	application, err := app.NewApplication("report")
	if err != nil {
		slog.Error("Failed to initialize", slog.String("error", err.Error()))
		os.Exit(1)
	}

	err = application.Run(func(ctx context.Context) error {
		runner := report.NewRunner(application.Config, application.Paths, application.Renderer, application.Telemetry)
		res, err := runner.Run(ctx, job)
		if err != nil {
			return err
		}
		for _, c := range res.Charts {
			for _, f := range c.Fits {
				if f.Err != nil {
					continue
				}
				application.Logger.InfoContext(ctx, "Fit",
					slog.String("chart", c.Name),
					slog.String("segment", f.Segment.Label),
					slog.Float64("growth_factor", f.Fit.GrowthFactor()),
					slog.Float64("doubling_days", f.Fit.DoublingDays()))
			}
		}
		application.Logger.InfoContext(ctx, "Report written",
			slog.String("job", res.Job),
			slog.Any("files", res.Files))
		return nil
	})
	if err != nil {
		slog.Error("Report failed", slog.String("job", *jobPath), slog.String("error", err.Error()))
		os.Exit(1)
	}
}
