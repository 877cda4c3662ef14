// Package astlog configures structured logging for the indexer, CLI,
// and query server. All components log through log/slog; this package
// only decides where those records go and how they are formatted.
package astlog

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config controls where and how log records are written.
type Config struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string
	// FilePath is the rotating log file destination. Empty disables
	// file logging.
	FilePath string
	// MaxSizeMB is the rotation threshold in megabytes.
	MaxSizeMB int
	// MaxFiles bounds how many rotated backups are retained.
	MaxFiles int
	// WriteToStderr additionally mirrors records to stderr.
	WriteToStderr bool
}

// DefaultConfig returns the settings startLogging applies to every
// command, logging to a file by default.
func DefaultConfig() Config {
	return Config{
		Level:         "info",
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: true,
	}
}

// DebugConfig is DefaultConfig with the level raised to debug.
func DebugConfig() Config {
	cfg := DefaultConfig()
	cfg.Level = "debug"
	return cfg
}

// Setup builds a slog.Logger per cfg and returns it along with a
// cleanup function that flushes and closes the log file. Callers
// should defer cleanup() immediately.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	if cfg.FilePath == "" {
		handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.Level)})
		return slog.New(handler), func() {}, nil
	}

	if err := EnsureLogDir(); err != nil {
		return nil, nil, err
	}

	writer, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
	if err != nil {
		return nil, nil, err
	}

	var output io.Writer = writer
	if cfg.WriteToStderr {
		output = io.MultiWriter(writer, os.Stderr)
	}

	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{Level: parseLevel(cfg.Level)})
	logger := slog.New(handler)

	cleanup := func() {
		_ = writer.Sync()
		_ = writer.Close()
	}

	return logger, cleanup, nil
}

// SetupDefault configures logging with DefaultConfig and installs the
// result as slog's package-level default logger.
func SetupDefault() (func(), error) {
	logger, cleanup, err := Setup(DefaultConfig())
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return cleanup, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
