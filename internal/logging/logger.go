// Package logging provides structured logging for unidlewatch with consistent
// formatting and context support. It wraps charmbracelet/log to provide
// leveled logging with structured key-value pairs.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Level represents a log level.
type Level int

const (
	// LevelDebug is for verbose debugging information.
	LevelDebug Level = iota
	// LevelInfo is for general informational messages.
	LevelInfo
	// LevelWarn is for recoverable errors and warnings.
	LevelWarn
	// LevelError is for significant errors that may impact functionality.
	LevelError
)

var levelNames = map[Level]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", int(l))
}

func (l Level) charm() log.Level {
	switch l {
	case LevelDebug:
		return log.DebugLevel
	case LevelInfo:
		return log.InfoLevel
	case LevelError:
		return log.ErrorLevel
	default:
		return log.WarnLevel
	}
}

// ParseLevel converts a level name such as "info" into a Level.
func ParseLevel(name string) (Level, error) {
	for level, n := range levelNames {
		if strings.EqualFold(name, n) {
			return level, nil
		}
	}
	return LevelWarn, fmt.Errorf("unknown log level %q", name)
}

// Format selects how log lines are rendered.
type Format string

const (
	FormatText   Format = "text"
	FormatLogfmt Format = "logfmt"
	FormatJSON   Format = "json"
)

func (f Format) formatter() log.Formatter {
	switch f {
	case FormatLogfmt:
		return log.LogfmtFormatter
	case FormatJSON:
		return log.JSONFormatter
	default:
		return log.TextFormatter
	}
}

// Logger provides structured logging with context.
type Logger struct {
	l *log.Logger
}

var (
	// defaultLogger is the package-level logger.
	defaultLogger = New()
)

// New creates a new Logger writing text to stderr at warn level.
func New() *Logger {
	return NewWithWriter(os.Stderr, FormatText)
}

// NewWithWriter creates a Logger writing to w in the given format.
func NewWithWriter(w io.Writer, format Format) *Logger {
	return &Logger{
		l: log.NewWithOptions(w, log.Options{
			Level:           log.WarnLevel,
			ReportTimestamp: format != FormatLogfmt,
			Formatter:       format.formatter(),
		}),
	}
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	return NewWithWriter(io.Discard, FormatText)
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level Level) {
	l.l.SetLevel(level.charm())
}

// SetOutput redirects log output.
func (l *Logger) SetOutput(w io.Writer) {
	l.l.SetOutput(w)
}

// SetFormat changes how lines are rendered.
func (l *Logger) SetFormat(format Format) {
	l.l.SetFormatter(format.formatter())
}

// With returns a new Logger with an additional context field.
func (l *Logger) With(key string, value interface{}) *Logger {
	return &Logger{l: l.l.With(key, value)}
}

// WithFields returns a new Logger with multiple additional context fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	keyVals := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		keyVals = append(keyVals, k, v)
	}
	return &Logger{l: l.l.With(keyVals...)}
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, keyVals ...interface{}) {
	l.l.Debug(msg, keyVals...)
}

// Info logs at info level.
func (l *Logger) Info(msg string, keyVals ...interface{}) {
	l.l.Info(msg, keyVals...)
}

// Warn logs at warn level (for recoverable errors).
func (l *Logger) Warn(msg string, keyVals ...interface{}) {
	l.l.Warn(msg, keyVals...)
}

// Error logs at error level (for significant errors).
func (l *Logger) Error(msg string, keyVals ...interface{}) {
	l.l.Error(msg, keyVals...)
}

// Package-level functions that use the default logger.

// Default returns the package-level logger.
func Default() *Logger {
	return defaultLogger
}

// SetLevel sets the minimum log level for the default logger.
func SetLevel(level Level) {
	defaultLogger.SetLevel(level)
}

// SetOutput sets the output for the default logger.
func SetOutput(w io.Writer) {
	defaultLogger.SetOutput(w)
}

// SetFormat sets the format for the default logger.
func SetFormat(format Format) {
	defaultLogger.SetFormat(format)
}

// With returns a new Logger with additional context from the default logger.
func With(key string, value interface{}) *Logger {
	return defaultLogger.With(key, value)
}

// WithFields returns a new Logger with multiple additional context fields.
func WithFields(fields map[string]interface{}) *Logger {
	return defaultLogger.WithFields(fields)
}

// Debug logs at debug level using the default logger.
func Debug(msg string, keyVals ...interface{}) {
	defaultLogger.Debug(msg, keyVals...)
}

// Info logs at info level using the default logger.
func Info(msg string, keyVals ...interface{}) {
	defaultLogger.Info(msg, keyVals...)
}

// Warn logs at warn level using the default logger.
func Warn(msg string, keyVals ...interface{}) {
	defaultLogger.Warn(msg, keyVals...)
}

// Error logs at error level using the default logger.
func Error(msg string, keyVals ...interface{}) {
	defaultLogger.Error(msg, keyVals...)
}
