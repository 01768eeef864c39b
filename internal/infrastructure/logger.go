package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"covidcli/internal/config"
)

// runLog is the logger of the running command and the file it appends to.
// Commands are one-shot, so it is set up once and closed on exit.
var runLog struct {
	once   sync.Once
	logger *slog.Logger

	mu   sync.Mutex
	file *os.File
}

// InitializeLogger builds the command's JSON logger from cfg and installs it
// as the slog default. Later calls return the first logger.
func InitializeLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	var err error
	runLog.once.Do(func() {
		var w io.Writer
		if w, err = logWriter(cfg); err != nil {
			return
		}
		runLog.logger = newLogger(w, cfg.Level, true)
		slog.SetDefault(runLog.logger)
	})
	return runLog.logger, err
}

// GetLogger returns the command's logger, or slog's default before
// InitializeLogger.
func GetLogger() *slog.Logger {
	if runLog.logger == nil {
		return slog.Default()
	}
	return runLog.logger
}

// NewLogger builds a JSON logger on w that tags records with the run's
// trace_id. It does not touch global state.
func NewLogger(w io.Writer, level string) *slog.Logger {
	return newLogger(w, level, false)
}

func newLogger(w io.Writer, level string, withSource bool) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: withSource,
		Level:     parseLogLevel(level),
	})
	return slog.New(runHandler{handler})
}

// logWriter opens the configured destination. Stdout carries command output,
// so console logging goes to stderr.
func logWriter(cfg config.LoggingConfig) (io.Writer, error) {
	output := strings.ToLower(cfg.Output)
	if output != "file" && output != "both" {
		return os.Stderr, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", cfg.FilePath, err)
	}

	runLog.mu.Lock()
	runLog.file = f
	runLog.mu.Unlock()

	if output == "both" {
		return io.MultiWriter(os.Stderr, f), nil
	}
	return f, nil
}

// CloseLogFile closes the log file, if one was opened.
func CloseLogFile() error {
	runLog.mu.Lock()
	defer runLog.mu.Unlock()
	if runLog.file == nil {
		return nil
	}
	err := runLog.file.Close()
	runLog.file = nil
	return err
}

// ResetLoggerForTesting lets a test initialize the logger again.
func ResetLoggerForTesting() {
	_ = CloseLogFile()
	runLog.logger = nil
	runLog.once = sync.Once{}
}

// runHandler adds the trace_id of the context to every record.
type runHandler struct {
	slog.Handler
}

func (h runHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := GetTraceID(ctx); id != "" {
		r.AddAttrs(slog.String("trace_id", id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h runHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return runHandler{h.Handler.WithAttrs(attrs)}
}

func (h runHandler) WithGroup(name string) slog.Handler {
	return runHandler{h.Handler.WithGroup(name)}
}

func parseLogLevel(level string) slog.Level {
	var l slog.Level
	if strings.EqualFold(level, "warning") {
		return slog.LevelWarn
	}
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
