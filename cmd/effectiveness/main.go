package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"covidcli/internal/app"
	"covidcli/internal/chart"
	"covidcli/internal/effectiveness"
	apperrors "covidcli/internal/errors"
	"covidcli/internal/exporter"
	"covidcli/internal/nhs"
	"covidcli/internal/series"
)

type options struct {
	pcv       string
	lo        float64
	hi        float64
	points    int
	uptake    string
	headerRow int
	group     string
	doses     string
	date      string
	out       string
}

// curve is the screening-method effectiveness over the PPV grid for one
// proportion of cases vaccinated.
type curve struct {
	pcv    float64
	points []effectiveness.Point
}

// observation is the effectiveness implied by the published uptake.
type observation struct {
	ppv           float64
	label         string
	effectiveness []float64 // one per curve
}

type result struct {
	curves   []curve
	observed *observation
	files    []string
}

func main() {
	var opts options
	flag.StringVar(&opts.pcv, "pcv", "0.1,0.3,0.5", "comma separated proportions of cases vaccinated")
	flag.Float64Var(&opts.lo, "ppv-from", 0.05, "lowest proportion of the population vaccinated")
	flag.Float64Var(&opts.hi, "ppv-to", 1, "highest proportion of the population vaccinated")
	flag.IntVar(&opts.points, "points", 96, "grid points between -ppv-from and -ppv-to")
	flag.StringVar(&opts.uptake, "uptake", "", "NHS weekly uptake workbook used to mark the observed PPV")
	flag.IntVar(&opts.headerRow, "header-row", 8, "row of the age band header in the uptake sheet")
	flag.StringVar(&opts.group, "group", "over50", "under50 | over50")
	flag.StringVar(&opts.doses, "doses", "one", "one | two")
	flag.StringVar(&opts.date, "date", "", "date the uptake is read at (defaults to the last week)")
	flag.StringVar(&opts.out, "out", "effectiveness", "output name without extension")
	flag.Parse()

	application, err := app.NewApplication("effectiveness")
	if err != nil {
		slog.Error("Failed to initialize", slog.String("error", err.Error()))
		os.Exit(1)
	}

	err = application.Run(func(ctx context.Context) error {
		res, err := run(ctx, application, opts)
		if err != nil {
			return err
		}
		if o := res.observed; o != nil {
			for i, c := range res.curves {
				application.Logger.InfoContext(ctx, "Observed effectiveness",
					slog.String("uptake", o.label),
					slog.Float64("ppv", o.ppv),
					slog.Float64("pcv", c.pcv),
					slog.Float64("effectiveness", o.effectiveness[i]))
			}
		}
		application.Logger.InfoContext(ctx, "Effectiveness curves written", slog.Any("files", res.files))
		return nil
	})
	if err != nil {
		slog.Error("Effectiveness failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app.Application, opts options) (*result, error) {
	pcvs, err := parseProportions(opts.pcv)
	if err != nil {
		return nil, err
	}

	grid := effectiveness.Grid(opts.lo, opts.hi, opts.points)
	res := &result{}
	for _, pcv := range pcvs {
		points, err := effectiveness.Curve(grid, pcv)
		if err != nil {
			return nil, fmt.Errorf("pcv %g: %w", pcv, err)
		}
		res.curves = append(res.curves, curve{pcv: pcv, points: points})
	}

	if opts.uptake != "" {
		res.observed, err = observe(ctx, a, opts, pcvs)
		if err != nil {
			return nil, err
		}
	}

	table := curveTable(res.curves)
	csvPath, err := a.Exporter.ExportTable(opts.out+".csv", table)
	if err != nil {
		return nil, err
	}
	png := a.Paths.OutputPath(opts.out + ".png")
	if err := chart.Save(ctx, a.Renderer, curveFigure(res), png); err != nil {
		return nil, err
	}
	a.Telemetry.PipelineMetrics().RecordChart(ctx, "effectiveness")
	res.files = append(res.files, csvPath, png)
	return res, nil
}

func observe(ctx context.Context, a *app.Application, opts options, pcvs []float64) (*observation, error) {
	ctx, span := a.Telemetry.Start(ctx, "effectiveness.uptake")
	defer span.End()

	group, err := parseGroup(opts.group)
	if err != nil {
		return nil, err
	}
	doses, err := parseDoses(opts.doses)
	if err != nil {
		return nil, err
	}

	up, err := nhs.ReadUptake(a.Paths.DataPath(opts.uptake), opts.headerRow)
	if err != nil {
		return nil, fmt.Errorf("uptake: %w", err)
	}
	weeks := up.Weeks()
	a.Telemetry.PipelineMetrics().RecordRows(ctx, "nhs", len(weeks))

	date := weeks[len(weeks)-1]
	if opts.date != "" {
		if date, err = series.ParseDate(opts.date); err != nil {
			return nil, apperrors.NewAppValidationError(err.Error())
		}
	}
	ppv, err := up.Coverage(group, date, doses)
	if err != nil {
		return nil, err
	}

	o := &observation{
		ppv:   ppv,
		label: fmt.Sprintf("%s, %s dose(s), %s", group, opts.doses, date.Format(time.DateOnly)),
	}
	for _, pcv := range pcvs {
		e, err := effectiveness.Effectiveness(ppv, pcv)
		if err != nil {
			return nil, err
		}
		o.effectiveness = append(o.effectiveness, e)
	}
	return o, nil
}

func parseProportions(s string) ([]float64, error) {
	var out []float64
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f == "" {
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, apperrors.NewAppValidationError(fmt.Sprintf("bad proportion %q", f))
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, apperrors.NewAppValidationError("no proportions of cases vaccinated given")
	}
	return out, nil
}

func parseGroup(s string) (nhs.AgeGroup, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "under50":
		return nhs.Under50, nil
	case "over50":
		return nhs.Over50, nil
	}
	return 0, apperrors.NewAppValidationError(fmt.Sprintf("age group must be under50 or over50: got %q", s))
}

func parseDoses(s string) (nhs.Doses, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "one", "1":
		return nhs.AtLeastOne, nil
	case "two", "2":
		return nhs.Two, nil
	}
	return 0, apperrors.NewAppValidationError(fmt.Sprintf("doses must be one or two: got %q", s))
}

func pcvLabel(pcv float64) string {
	return "pcv=" + strconv.FormatFloat(pcv, 'f', -1, 64)
}

// curveTable has one row per PPV and one effectiveness column per curve.
func curveTable(curves []curve) exporter.Table {
	t := exporter.Table{Name: "effectiveness", Headers: []string{"ppv"}}
	if len(curves) == 0 {
		return t
	}
	for _, c := range curves {
		t.Headers = append(t.Headers, pcvLabel(c.pcv))
	}
	for i, p := range curves[0].points {
		row := []interface{}{p.PPV}
		for _, c := range curves {
			row = append(row, 1-c.points[i].Ratio)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func curveFigure(res *result) chart.Figure {
	panel := chart.Panel{
		Title:  "vaccine effectiveness (screening method)",
		XLabel: "proportion of population vaccinated",
		YLabel: "effectiveness",
		Limits: &chart.Limits{Min: 0, Max: 1},
	}
	for i, c := range res.curves {
		line := chart.Line{Label: pcvLabel(c.pcv), Color: chart.Palette(i)}
		for _, p := range c.points {
			line.X = append(line.X, p.PPV)
			line.Y = append(line.Y, 1-p.Ratio)
		}
		panel.Lines = append(panel.Lines, line)
	}
	if o := res.observed; o != nil {
		grey, _ := chart.ParseColor("grey")
		panel.Lines = append(panel.Lines, chart.Line{
			Label:  o.label,
			X:      []float64{o.ppv, o.ppv},
			Y:      []float64{0, 1},
			Color:  grey,
			Dashed: true,
		})
	}
	return chart.Figure{Title: "Vaccine effectiveness", Panels: []chart.Panel{panel}}
}
