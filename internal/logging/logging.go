// Package logging configures the engine's structured (JSON) and
// human-readable loggers on top of log/slog, with rotating file loggers
// for long-running playback sessions.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	LevelTrace = slog.Level(-8)
	LevelFatal = slog.Level(12)
)

var levelNames = map[slog.Leveler]string{
	LevelTrace: "TRACE",
	LevelFatal: "FATAL",
}

var (
	mu                  sync.RWMutex
	structuredLogger    *slog.Logger
	humanReadableLogger *slog.Logger
)

// replaceLevelNames renames the custom TRACE/FATAL levels in log output.
func replaceLevelNames(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		level := a.Value.Any().(slog.Level)
		if label, ok := levelNames[level]; ok {
			a.Value = slog.StringValue(label)
		}
	}
	return a
}

func newJSONHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevelNames,
	})
}

func newTextHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevelNames,
	})
}

// Init sets up the global loggers: JSON to stdout for structured logs,
// text to stderr for humans. The structured logger becomes the slog default.
func Init() {
	InitWithLevel(slog.LevelDebug, slog.LevelInfo)
}

// InitWithLevel sets up the global loggers with explicit minimum levels.
func InitWithLevel(structuredLevel, humanLevel slog.Level) {
	mu.Lock()
	defer mu.Unlock()

	structuredLogger = slog.New(newJSONHandler(os.Stdout, structuredLevel))
	humanReadableLogger = slog.New(newTextHandler(os.Stderr, humanLevel))
	slog.SetDefault(structuredLogger)
}

// SetOutput redirects the global loggers to the given writers at the
// given level.
func SetOutput(structuredOutput, humanReadableOutput io.Writer, level slog.Level) {
	mu.Lock()
	defer mu.Unlock()

	structuredLogger = slog.New(newJSONHandler(structuredOutput, level))
	humanReadableLogger = slog.New(newTextHandler(humanReadableOutput, level))
	slog.SetDefault(structuredLogger)
}

// Structured returns the global structured logger, or nil before Init.
func Structured() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return structuredLogger
}

// HumanReadable returns the global human-readable logger, or nil before Init.
func HumanReadable() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return humanReadableLogger
}

// ForService returns a child of the structured logger tagged with a
// 'service' attribute. Falls back to slog.Default when Init has not run,
// so packages can always obtain a usable logger.
func ForService(serviceName string) *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if structuredLogger == nil {
		return slog.Default().With("service", serviceName)
	}
	return structuredLogger.With("service", serviceName)
}

// Trace logs at the custom trace level using the default logger.
func Trace(msg string, args ...any) {
	slog.Log(context.TODO(), LevelTrace, msg, args...)
}

// Fatal logs at the custom fatal level and exits the process.
func Fatal(msg string, args ...any) {
	slog.Log(context.TODO(), LevelFatal, msg, args...)
	os.Exit(1)
}

func newRotatingWriter(filePath string) (*lumberjack.Logger, error) {
	logDir := filepath.Dir(filePath)
	if logDir != "." {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
		}
	}
	return &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    100, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}, nil
}

// InitFile routes the global structured logger to a rotating file. The
// human-readable logger keeps writing to stderr. Returns a close function
// for the underlying writer.
func InitFile(filePath string, level slog.Level) (func() error, error) {
	logWriter, err := newRotatingWriter(filePath)
	if err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	structuredLogger = slog.New(newJSONHandler(logWriter, level))
	humanReadableLogger = slog.New(newTextHandler(os.Stderr, level))
	slog.SetDefault(structuredLogger)
	return logWriter.Close, nil
}

// NewFileLogger creates a JSON logger writing to filePath with lumberjack
// rotation, tagged with a 'service' attribute. It returns the logger and a
// close function for the underlying writer.
func NewFileLogger(filePath, serviceName string, level slog.Level) (*slog.Logger, func() error, error) {
	logWriter, err := newRotatingWriter(filePath)
	if err != nil {
		return nil, nil, err
	}

	logger := slog.New(newJSONHandler(logWriter, level)).With("service", serviceName)
	return logger, logWriter.Close, nil
}
