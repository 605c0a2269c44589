// Package logging builds the structured logger shared by every pv command.
// It wraps log/slog; a TUI session logs to a file so the terminal is not
// disturbed, one-shot commands log to stderr.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Log levels accepted in configuration.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// Formats accepted in configuration.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options configures New.
type Options struct {
	Level  string // DEBUG, INFO, WARN or ERROR; defaults to INFO
	Format string // text or json; defaults to text
	Path   string // log file; empty means the fallback writer
}

// Logger is a slog.Logger with the file it writes to, if any.
type Logger struct {
	*slog.Logger
	file *os.File
}

// New creates a logger. When opts.Path is empty it writes to fallback
// (os.Stderr when fallback is nil).
func New(opts Options, fallback io.Writer) (*Logger, error) {
	var w io.Writer = fallback
	if w == nil {
		w = os.Stderr
	}
	var file *os.File
	if opts.Path != "" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		file = f
		w = f
	}

	hopts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	var h slog.Handler
	switch strings.ToLower(opts.Format) {
	case FormatJSON:
		h = slog.NewJSONHandler(w, hopts)
	case FormatText, "":
		h = slog.NewTextHandler(w, hopts)
	default:
		if file != nil {
			file.Close()
		}
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}
	return &Logger{Logger: slog.New(h), file: file}, nil
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// ParseLevel converts a level name to slog.Level. Unknown names map to INFO.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn, "WARNING":
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ValidLevel reports whether level names a known level.
func ValidLevel(level string) bool {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case LevelDebug, LevelInfo, LevelWarn, "WARNING", LevelError:
		return true
	}
	return false
}

// Close closes the log file. It is a no-op for stderr and discard loggers.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
