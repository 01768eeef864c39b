package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"covidcli/internal/chart"
	"covidcli/internal/config"
	"covidcli/internal/dataprocessing"
	"covidcli/internal/estimator"
	apperrors "covidcli/internal/errors"
	"covidcli/internal/exporter"
	"covidcli/internal/files"
	"covidcli/internal/infrastructure"
	"covidcli/internal/nhs"
	"covidcli/internal/ons"
	"covidcli/internal/oxcgrt"
	"covidcli/internal/seasonal"
	"covidcli/internal/series"
)

// Runner executes jobs: it reads the sources, estimates fatal infections
// once per job and then renders the job's charts, up to cfg.Report.Workers
// at a time.
type Runner struct {
	cfg       *config.Config
	paths     *config.Paths
	renderer  chart.Renderer
	exporter  *exporter.Exporter
	discovery *files.Discovery
	telemetry *infrastructure.Telemetry
	logger    *slog.Logger
}

// NewRunner creates a runner. telemetry may be nil.
func NewRunner(cfg *config.Config, paths *config.Paths, renderer chart.Renderer, telemetry *infrastructure.Telemetry) *Runner {
	return &Runner{
		cfg:       cfg,
		paths:     paths,
		renderer:  renderer,
		exporter:  exporter.New(paths),
		discovery: files.NewDiscovery(paths.DataDir),
		telemetry: telemetry,
		logger:    infrastructure.WithComponent(slog.Default(), "report"),
	}
}

// Result lists what a job produced.
type Result struct {
	Job      string
	Estimate *estimator.Result
	Charts   []ChartResult
	Declines []seasonal.Decline
	Files    []string
}

// ChartResult is one rendered chart and its fits.
type ChartResult struct {
	Name  string
	Fits  []estimator.SegmentResult
	Files []string
}

// inputs are the series read for a job.
type inputs struct {
	raw          series.Daily
	vaccinations *series.Daily // cumulative doses
	events       []chart.Event // policy relaxations
}

// Run executes job.
func (r *Runner) Run(ctx context.Context, job *Job) (*Result, error) {
	ctx, span := r.telemetry.Start(ctx, "report.run", attribute.String("job", job.Title))
	defer span.End()
	started := time.Now()
	metrics := r.telemetry.PipelineMetrics()

	in, err := r.load(ctx, job)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}

	opts := job.Estimator.Options(r.cfg.Estimator)
	opts = opts.WithRange(in.raw.Start().AddDate(0, 0, -opts.LagDays), in.raw.End())
	est, err := estimator.Estimate(in.raw, opts)
	if err != nil {
		metrics.RecordEstimation(ctx, job.Source.Region, 0, err)
		infrastructure.RecordError(ctx, err)
		return nil, fmt.Errorf("estimate %s: %w", job.Source.Region, err)
	}
	metrics.RecordEstimation(ctx, job.Source.Region, est.Correction, nil)

	r.logger.InfoContext(ctx, "Estimated fatal infections",
		slog.String("region", job.Source.Region),
		slog.Float64("correction", est.Correction),
		slog.Float64("ratio", est.Ratio))

	res := &Result{Job: job.Title, Estimate: est, Charts: make([]ChartResult, len(job.Charts))}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Report.Workers)
	for i, spec := range job.Charts {
		g.Go(func() error {
			cr, err := r.renderChart(gctx, job, spec, est, in)
			if err != nil {
				return fmt.Errorf("chart %s: %w", spec.Name, err)
			}
			res.Charts[i] = *cr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}
	for _, c := range res.Charts {
		res.Files = append(res.Files, c.Files...)
	}

	if job.Declines != nil {
		declines, files, err := r.renderDeclines(ctx, job.Declines, est)
		if err != nil {
			infrastructure.RecordError(ctx, err)
			return nil, err
		}
		res.Declines = declines
		res.Files = append(res.Files, files...)
	}

	files, err := r.export(job, res, in)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}
	res.Files = append(res.Files, files...)

	r.logger.InfoContext(ctx, "Job complete",
		slog.String("job", job.Title),
		slog.Int("charts", len(res.Charts)),
		slog.Int("files", len(res.Files)),
		slog.Duration("duration", time.Since(started)))
	return res, nil
}

func (r *Runner) load(ctx context.Context, job *Job) (*inputs, error) {
	ctx, span := r.telemetry.Start(ctx, "report.load")
	defer span.End()
	metrics := r.telemetry.PipelineMetrics()

	path, err := r.discovery.Resolve(job.Source.Workbook)
	if err != nil {
		return nil, fmt.Errorf("deaths: %w", err)
	}
	raw, err := ons.ReadRegion(path, job.Source.Meta())
	if err != nil {
		return nil, fmt.Errorf("deaths: %w", err)
	}
	metrics.RecordRows(ctx, "ons", raw.Len())
	in := &inputs{raw: raw}

	if v := job.Vaccinations; v != nil {
		path, err := r.discovery.Resolve(v.Workbook)
		if err != nil {
			return nil, fmt.Errorf("vaccinations: %w", err)
		}
		doses, err := nhs.ReadVaccinations(path, v.Layout())
		if err != nil {
			return nil, fmt.Errorf("vaccinations: %w", err)
		}
		metrics.RecordRows(ctx, "nhs", doses.Len())
		total := doses.CumSum()
		in.vaccinations = &total
	}

	if p := job.Policy; p != nil {
		path, err := r.discovery.Resolve(p.Tracker)
		if err != nil {
			return nil, fmt.Errorf("policy: %w", err)
		}
		resp, err := oxcgrt.ReadResponse(path, p.Country, p.Thresholds)
		if err != nil {
			return nil, fmt.Errorf("policy: %w", err)
		}
		metrics.RecordRows(ctx, "oxcgrt", len(resp.Records))
		drops, err := resp.Decreases(p.Policy)
		if err != nil {
			return nil, fmt.Errorf("policy: %w", err)
		}
		for _, d := range drops {
			in.events = append(in.events, chart.Event{Date: d, Label: p.Policy + " eased"})
		}
	}

	r.logger.DebugContext(ctx, "Loaded sources",
		slog.String("region", job.Source.Region),
		slog.Int("days", raw.Len()),
		slog.Bool("vaccinations", in.vaccinations != nil),
		slog.Int("policy_events", len(in.events)))
	return in, nil
}

func (r *Runner) renderChart(ctx context.Context, job *Job, spec ChartSpec, est *estimator.Result, in *inputs) (*ChartResult, error) {
	ctx, span := r.telemetry.Start(ctx, "report.chart", attribute.String("chart", spec.Name))
	defer span.End()
	metrics := r.telemetry.PipelineMetrics()

	spec = spec.within(est)
	from, to := spec.Range()
	if from.After(to) {
		return nil, apperrors.NewInvertedRangeError(from, to)
	}
	if first, last := est.Raw.Start(), est.Raw.End(); from.Before(first) || to.After(last) {
		return nil, apperrors.NewRangeError(from, to, first, last)
	}

	fits := estimator.FitSegments(est.Log, spec.Segments())
	for _, f := range fits {
		metrics.RecordFit(ctx, f.Err)
		if f.Err != nil {
			r.logger.WarnContext(ctx, "Fit segment skipped",
				slog.String("chart", spec.Name),
				slog.String("segment", f.Segment.Label),
				slog.String("error", f.Err.Error()))
		}
	}

	fig := estimateFigure(job, spec, est, in, fits)
	path := r.paths.OutputPath(spec.Name + ".png")
	if err := chart.Save(ctx, r.renderer, fig, path); err != nil {
		return nil, err
	}
	metrics.RecordChart(ctx, "estimate")

	cr := &ChartResult{Name: spec.Name, Fits: fits, Files: []string{path}}
	if len(fits) > 0 {
		p, err := r.exporter.ExportFits(spec.Name+"_fits.csv", fits)
		if err != nil {
			return nil, err
		}
		cr.Files = append(cr.Files, p)
	}
	return cr, nil
}

func (r *Runner) renderDeclines(ctx context.Context, spec *DeclineSpec, est *estimator.Result) ([]seasonal.Decline, []string, error) {
	ctx, span := r.telemetry.Start(ctx, "report.declines", attribute.String("chart", spec.Name))
	defer span.End()

	declines, err := seasonal.CompareDeclines(est.Infections, spec.SeasonalWindows())
	if err != nil {
		return nil, nil, err
	}
	for _, d := range declines {
		r.logger.InfoContext(ctx, "Decline fitted",
			slog.String("label", d.Window.Label),
			slog.Float64("slope", d.Fit.Slope),
			slog.Float64("halving_days", d.HalvingDays()))
	}

	path := r.paths.OutputPath(spec.Name + ".png")
	if err := chart.Save(ctx, r.renderer, declineFigure(spec, declines), path); err != nil {
		return nil, nil, err
	}
	r.telemetry.PipelineMetrics().RecordChart(ctx, "declines")

	csvPath, err := r.exporter.ExportTable(spec.Name+".csv", declineTable(declines))
	if err != nil {
		return nil, nil, err
	}
	return declines, []string{path, csvPath}, nil
}

// export writes the estimate (with cumulative vaccinations when read) as CSV
// and, with every fit table, as one workbook.
func (r *Runner) export(job *Job, res *Result, in *inputs) ([]string, error) {
	frame := res.Estimate.Frame()
	if in.vaccinations != nil {
		withDoses, err := frame.With(in.vaccinations.Reindex(frame.Start(), frame.End()))
		if err != nil {
			return nil, err
		}
		frame = withDoses
	}

	csvPath, err := r.exporter.ExportFrame(job.Output+".csv", frame)
	if err != nil {
		return nil, err
	}

	tables := []exporter.Table{
		exporter.FrameTable("estimate", frame),
		summaryTable(dataprocessing.NewSummarizer(r.logger).Summarize(frame)),
	}
	for _, c := range res.Charts {
		if len(c.Fits) > 0 {
			tables = append(tables, exporter.FitTable("fits "+c.Name, c.Fits))
		}
	}
	if len(res.Declines) > 0 {
		tables = append(tables, declineTable(res.Declines))
	}
	xlsxPath, err := r.exporter.ExportWorkbook(job.Output+".xlsx", tables...)
	if err != nil {
		return nil, err
	}
	return []string{csvPath, xlsxPath}, nil
}

func summaryTable(summaries []dataprocessing.ColumnSummary) exporter.Table {
	t := exporter.Table{
		Name:    "summary",
		Headers: []string{"column", "first", "last", "days", "count", "sum", "mean", "median", "peak", "peak_date", "latest"},
	}
	for _, s := range summaries {
		var peakDate interface{}
		if !s.PeakDate.IsZero() {
			peakDate = s.PeakDate.Format(time.DateOnly)
		}
		t.Rows = append(t.Rows, []interface{}{
			s.Name, s.First.Format(time.DateOnly), s.Last.Format(time.DateOnly), s.Days, s.Count,
			s.Sum, s.Mean, s.Median, s.Peak, peakDate, s.Latest,
		})
	}
	return t
}

func declineTable(declines []seasonal.Decline) exporter.Table {
	t := exporter.Table{
		Name:    "declines",
		Headers: []string{"label", "start", "end", "fit_days", "slope", "halving_days"},
	}
	for _, d := range declines {
		t.Rows = append(t.Rows, []interface{}{
			d.Window.Label, d.Window.Start, d.Window.End, d.Fit.Points, d.Fit.Slope, d.HalvingDays(),
		})
	}
	return t
}
