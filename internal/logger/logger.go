package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/jwebster45206/dungeon-master/internal/config"
)

// Setup configures the global slog logger based on environment.
// When LOG_FILE is set, output goes to that file so the console UI keeps the
// terminal. The returned func closes the file.
func Setup(cfg *config.Config) (*slog.Logger, func(), error) {
	var w io.Writer = os.Stderr
	closer := func() {}

	if cfg.LogFile != "" {
		if dir := filepath.Dir(cfg.LogFile); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, closer, fmt.Errorf("failed to create log directory: %w", err)
			}
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, closer, fmt.Errorf("failed to open log file: %w", err)
		}
		w = f
		closer = func() { _ = f.Close() }
	}

	logger := slog.New(NewHandler(w, cfg))

	// Set as default logger
	slog.SetDefault(logger)

	return logger, closer, nil
}

// NewHandler returns a JSON handler in production and a charm log handler
// otherwise.
func NewHandler(w io.Writer, cfg *config.Config) slog.Handler {
	if cfg.Environment == "production" {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.LogLevel})
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          "dm",
		Level:           log.Level(cfg.LogLevel),
	})
}

// WithRequestID adds request ID to logger context
func WithRequestID(logger *slog.Logger, requestID string) *slog.Logger {
	return logger.With("request_id", requestID)
}

// WithError adds error to logger context
func WithError(logger *slog.Logger, err error) *slog.Logger {
	return logger.With("error", err.Error())
}

// WithTurn tags log lines with the turn they belong to.
func WithTurn(logger *slog.Logger, turnID string) *slog.Logger {
	return logger.With("turn_id", turnID)
}
