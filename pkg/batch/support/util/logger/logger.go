// Package logger provides the process-wide leveled logger used by the batch core and the coffee jobs.
// Messages are formatted printf-style and emitted through log/slog, with a tint console handler by default.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
)

// Format selects the slog handler used for output.
type Format string

const (
	// FormatConsole renders colored, human readable lines (tint).
	FormatConsole Format = "console"
	// FormatJSON renders one JSON object per line.
	FormatJSON Format = "json"
)

var (
	mu       sync.RWMutex
	level    = new(slog.LevelVar)
	base     *slog.Logger
	exitFunc = os.Exit
)

func init() {
	level.Set(slog.LevelInfo)
	base = slog.New(newHandler(os.Stderr, FormatConsole))
}

func newHandler(w io.Writer, format Format) slog.Handler {
	if format == FormatJSON {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}
	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.DateTime,
	})
}

// Configure replaces the output destination and handler format.
// The current level is kept.
func Configure(w io.Writer, format string) {
	mu.Lock()
	defer mu.Unlock()
	base = slog.New(newHandler(w, Format(strings.ToLower(format))))
}

// SetLogLevel sets the global log level.
// Valid values are "DEBUG", "INFO", "WARN", "ERROR" and "FATAL" (case-insensitive).
// Unknown values fall back to INFO.
func SetLogLevel(l string) {
	switch strings.ToUpper(l) {
	case "DEBUG":
		level.Set(slog.LevelDebug)
	case "INFO", "":
		level.Set(slog.LevelInfo)
	case "WARN", "WARNING":
		level.Set(slog.LevelWarn)
	case "ERROR", "FATAL":
		level.Set(slog.LevelError)
	default:
		level.Set(slog.LevelInfo)
		Warnf("Unknown log level '%s' specified. Defaulting to INFO level.", l)
	}
}

// Slog returns the underlying structured logger, for collaborators (gin middleware) that log attributes.
func Slog() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func logf(l slog.Level, format string, v ...interface{}) {
	lg := Slog()
	if !lg.Enabled(context.Background(), l) {
		return
	}
	lg.Log(context.Background(), l, fmt.Sprintf(format, v...))
}

// Debugf logs at DEBUG level.
func Debugf(format string, v ...interface{}) { logf(slog.LevelDebug, format, v...) }

// Infof logs at INFO level.
func Infof(format string, v ...interface{}) { logf(slog.LevelInfo, format, v...) }

// Warnf logs at WARN level.
func Warnf(format string, v ...interface{}) { logf(slog.LevelWarn, format, v...) }

// Errorf logs at ERROR level.
func Errorf(format string, v ...interface{}) { logf(slog.LevelError, format, v...) }

// Fatalf logs at ERROR level and terminates the process with exit code 1.
func Fatalf(format string, v ...interface{}) {
	Slog().Error(fmt.Sprintf(format, v...), slog.Bool("fatal", true))
	exitFunc(1)
}
