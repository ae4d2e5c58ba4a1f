// Package logger builds the server's slog handlers: JSON for
// production, a human-readable pretty handler everywhere else.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Config selects the handler, level, and source annotation for New.
type Config struct {
	Writer      io.Writer // defaults to os.Stdout
	Format      string    // "json" or "pretty"; derived from Environment when empty
	Environment string
	Level       slog.Level
	AddSource   bool
}

// Logger embeds slog.Logger so call sites use the standard API.
type Logger struct {
	*slog.Logger
}

// New builds a logger from cfg. Source file paths are shortened to
// their base name so log lines stay readable.
func New(cfg Config) *Logger {
	out := cfg.Writer
	if out == nil {
		out = os.Stdout
	}

	format := cfg.Format
	if format == "" {
		if cfg.Environment == "production" {
			format = "json"
		} else {
			format = "pretty"
		}
	}

	opts := &slog.HandlerOptions{
		Level:       cfg.Level,
		AddSource:   cfg.AddSource,
		ReplaceAttr: trimSource,
	}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(out, opts)
	default:
		handler = NewPrettyHandler(out, opts)
	}

	return &Logger{Logger: slog.New(handler)}
}

// ParseLevel maps a configuration string to a slog.Level. Unknown
// values fall back to info.
func ParseLevel(level string) slog.Level {
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

func trimSource(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.SourceKey {
		if source, ok := a.Value.Any().(*slog.Source); ok {
			source.File = filepath.Base(source.File)
		}
	}
	return a
}
