// Package logging defines the diagnostic record contract between the
// compiler core and its host. The core never writes to a terminal; it
// emits records through an injected Logger.
package logging

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lemonberrylabs/manifestc/pkg/lexer"
)

// Level is a diagnostic severity.
type Level int

const (
	Debug Level = iota
	Info
	Notice
	Warning
	Error
	Alert
	Emergency
	Critical
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Notice:
		return "notice"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Alert:
		return "alert"
	case Emergency:
		return "emergency"
	case Critical:
		return "critical"
	}
	return "unknown"
}

// ParseLevel resolves a level name; unknown names default to Notice.
func ParseLevel(name string) Level {
	switch name {
	case "debug":
		return Debug
	case "info":
		return Info
	case "notice":
		return Notice
	case "warning":
		return Warning
	case "err", "error":
		return Error
	case "alert":
		return Alert
	case "emerg", "emergency":
		return Emergency
	case "crit", "critical":
		return Critical
	}
	return Notice
}

// Record is one diagnostic.
type Record struct {
	Level   Level
	Path    string
	Pos     lexer.Position
	Snippet string // text of the offending line
	Message string
}

// Logger consumes diagnostic records.
type Logger interface {
	Log(record Record)
}

// SlogLogger forwards records to a slog.Logger.
type SlogLogger struct {
	Logger *slog.Logger
	// MinLevel filters records below the given severity.
	MinLevel Level
}

// Log implements Logger.
func (l *SlogLogger) Log(record Record) {
	if record.Level < l.MinLevel {
		return
	}
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{slog.String("severity", record.Level.String())}
	if record.Path != "" {
		attrs = append(attrs,
			slog.String("path", record.Path),
			slog.Int("line", record.Pos.Line),
			slog.Int("column", record.Pos.Column))
	}
	if record.Snippet != "" {
		attrs = append(attrs,
			slog.String("snippet", record.Snippet),
			slog.String("caret", caret(record.Pos.Column)))
	}
	logger.Log(context.Background(), slogLevel(record.Level), record.Message, attrs...)
}

func slogLevel(l Level) slog.Level {
	switch l {
	case Debug:
		return slog.LevelDebug
	case Info, Notice:
		return slog.LevelInfo
	case Warning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

func caret(column int) string {
	if column < 1 {
		column = 1
	}
	return fmt.Sprintf("%*s", column, "^")
}

// Capture is a Logger that retains records, used in tests.
type Capture struct {
	Records []Record
}

// Log implements Logger.
func (c *Capture) Log(record Record) {
	c.Records = append(c.Records, record)
}

// MessagesAt returns the messages recorded at a level.
func (c *Capture) MessagesAt(level Level) []string {
	var out []string
	for _, r := range c.Records {
		if r.Level == level {
			out = append(out, r.Message)
		}
	}
	return out
}

type contextKey struct{}

// WithLogger embeds a logger in a context.
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext extracts the logger from a context, falling back to a
// default slog-backed logger.
func FromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(contextKey{}).(Logger); ok {
		return logger
	}
	return &SlogLogger{}
}
