package logging

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(buf *bytes.Buffer) *Logger {
	logger := NewWithWriter(buf, FormatLogfmt)
	logger.SetLevel(LevelDebug)
	return logger
}

func TestLoggerLevels(t *testing.T) {
	tests := []struct {
		name      string
		minLevel  Level
		logLevel  Level
		shouldLog bool
	}{
		{"debug allowed at debug", LevelDebug, LevelDebug, true},
		{"error allowed at debug", LevelDebug, LevelError, true},
		{"debug blocked at info", LevelInfo, LevelDebug, false},
		{"info allowed at info", LevelInfo, LevelInfo, true},
		{"info blocked at warn", LevelWarn, LevelInfo, false},
		{"warn allowed at warn", LevelWarn, LevelWarn, true},
		{"warn blocked at error", LevelError, LevelWarn, false},
		{"error allowed at error", LevelError, LevelError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewWithWriter(&buf, FormatLogfmt)
			logger.SetLevel(tt.minLevel)

			switch tt.logLevel {
			case LevelDebug:
				logger.Debug("test message")
			case LevelInfo:
				logger.Info("test message")
			case LevelWarn:
				logger.Warn("test message")
			case LevelError:
				logger.Error("test message")
			}

			if tt.shouldLog {
				assert.Contains(t, buf.String(), "test message")
				assert.Contains(t, buf.String(), "level="+tt.logLevel.String())
			} else {
				assert.Empty(t, buf.String(), "expected no log output")
			}
		})
	}
}

func TestLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	logger.With("host", "app.example.com").Warn("stream failed")

	output := buf.String()
	assert.Contains(t, output, "stream failed")
	assert.Contains(t, output, "host=app.example.com")
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	logger.WithFields(map[string]interface{}{
		"host":  "app",
		"state": "waiting",
	}).Error("error occurred")

	output := buf.String()
	assert.Contains(t, output, "level=error")
	assert.Contains(t, output, "host=app")
	assert.Contains(t, output, "state=waiting")
}

func TestLoggerInlineKeyVals(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	logger.Warn("reconnecting", "error", errors.New("timeout"), "attempt", 3)

	output := buf.String()
	assert.Contains(t, output, "reconnecting")
	assert.Contains(t, output, "error=timeout")
	assert.Contains(t, output, "attempt=3")
}

func TestLoggerOriginalUnmodified(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	_ = logger.With("host", "abc123")
	logger.Info("original logger")

	assert.NotContains(t, buf.String(), "host=abc123")
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	logger.SetLevel(LevelDebug)
	assert.NotPanics(t, func() { logger.Error("dropped") })
}

func TestParseLevel(t *testing.T) {
	for _, name := range []string{"debug", "INFO", "Warn", "error"} {
		_, err := ParseLevel(name)
		require.NoError(t, err, name)
	}

	level, err := ParseLevel("info")
	require.NoError(t, err)
	assert.Equal(t, LevelInfo, level)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}

func TestDefaultLogger(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetFormat(FormatLogfmt)
	SetLevel(LevelWarn)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetFormat(FormatText)
	})

	Debug("debug message")
	assert.Empty(t, buf.String())

	Warn("warn message")
	assert.Contains(t, buf.String(), "warn message")

	buf.Reset()

	With("component", "test").Error("error message")
	assert.Contains(t, buf.String(), "component=test")
}
