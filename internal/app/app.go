package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"covidcli/internal/chart"
	"covidcli/internal/config"
	"covidcli/internal/exporter"
	"covidcli/internal/infrastructure"
)

// DPI of rendered charts.
const DPI = 100

// Application holds what every command needs to run.
type Application struct {
	Name      string
	Config    *config.Config
	Paths     *config.Paths
	Logger    *slog.Logger
	Telemetry *infrastructure.Telemetry
	Renderer  chart.Renderer
	Exporter  *exporter.Exporter
}

// NewApplication loads the configuration and builds the application for the
// named command, relative to the working directory.
func NewApplication(name string) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	base, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return New(name, cfg, base, os.Stdout)
}

// New builds the application from cfg with directories resolved against
// base. Spans go to traceOut when the stdout trace exporter is configured.
func New(name string, cfg *config.Config, base string, traceOut io.Writer) (*Application, error) {
	paths := config.ResolvePaths(base, cfg.Paths)
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	if !filepath.IsAbs(cfg.Logging.FilePath) {
		cfg.Logging.FilePath = filepath.Join(base, cfg.Logging.FilePath)
	}
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger = infrastructure.WithComponent(logger, name)

	if cfg.Telemetry.MetricsFile != "" && !filepath.IsAbs(cfg.Telemetry.MetricsFile) {
		cfg.Telemetry.MetricsFile = paths.OutputPath(cfg.Telemetry.MetricsFile)
	}
	tel, err := infrastructure.InitializeTelemetry(cfg.Telemetry, traceOut, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	logger.Debug("Application initialized",
		slog.String("data_dir", paths.DataDir),
		slog.String("output_dir", paths.OutputDir),
		slog.String("logs_dir", paths.LogsDir))

	return &Application{
		Name:      name,
		Config:    cfg,
		Paths:     paths,
		Logger:    logger,
		Telemetry: tel,
		Renderer:  chart.NewPNGRenderer(cfg.Report.WidthInches, cfg.Report.HeightInches, DPI),
		Exporter:  exporter.New(paths),
	}, nil
}

// Run calls fn under a span named after the command. The context is
// cancelled on SIGINT or SIGTERM. Telemetry is flushed and the log file
// closed before Run returns.
func (a *Application) Run(fn func(ctx context.Context) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.run(ctx, fn)
}

func (a *Application) run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	ctx = infrastructure.EnsureTraceID(ctx)
	started := time.Now()
	a.Logger.InfoContext(ctx, "Run started")

	defer func() {
		if cerr := a.close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	ctx, span := a.Telemetry.Start(ctx, a.Name)
	err = fn(ctx)
	if err != nil {
		infrastructure.RecordError(ctx, err)
	}
	span.End()

	if err != nil {
		a.Logger.ErrorContext(ctx, "Run failed",
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(started)))
		return err
	}
	a.Logger.InfoContext(ctx, "Run complete", slog.Duration("duration", time.Since(started)))
	return nil
}

func (a *Application) close() error {
	timeout := a.Config.Telemetry.FlushTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if err := a.Telemetry.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := infrastructure.CloseLogFile(); err != nil {
		errs = append(errs, fmt.Errorf("close log file: %w", err))
	}
	return errors.Join(errs...)
}
