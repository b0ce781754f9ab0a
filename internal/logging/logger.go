// Package logging is the slog setup shared by the sweep driver, the encoder
// runs and the CLI. Records go to stderr or to the per-run log file opened by
// Setup, and cell-scoped records carry the grid coordinates as attributes.
package logging

import (
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

// Levels accepted by Config and Init.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Logger is an slog.Logger that can be narrowed to a single sweep cell.
type Logger struct {
	*slog.Logger
}

// Config selects the level and destination of a Logger. A disabled
// Config discards every record.
type Config struct {
	Level   slog.Level
	Output  io.Writer
	Enabled bool
}

// DefaultConfig logs warnings and errors to stderr, which is what a sweep
// prints before Setup has opened the run log.
func DefaultConfig() Config {
	return Config{
		Level:   LevelWarn,
		Output:  os.Stderr,
		Enabled: true,
	}
}

// New builds a text-handler Logger from cfg.
func New(cfg Config) *Logger {
	if !cfg.Enabled {
		return &Logger{
			Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		}
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	handler := slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: cfg.Level,
	})

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithCell returns a logger that tags every record with a grid cell.
func (l *Logger) WithCell(resolution, bitrate string) *Logger {
	return &Logger{
		Logger: l.With("resolution", resolution, "bitrate", bitrate),
	}
}

var globalLogger atomic.Pointer[Logger]

// Global returns the process-wide Logger, creating it from DefaultConfig on
// first use.
func Global() *Logger {
	if l := globalLogger.Load(); l != nil {
		return l
	}
	globalLogger.CompareAndSwap(nil, New(DefaultConfig()))
	return globalLogger.Load()
}

// SetGlobal replaces the process-wide Logger.
func SetGlobal(logger *Logger) {
	globalLogger.Store(logger)
}

// Init points the process-wide Logger at w.
func Init(level slog.Level, w io.Writer) {
	SetGlobal(New(Config{
		Level:   level,
		Output:  w,
		Enabled: true,
	}))
}

// Debug logs at debug level through Global.
func Debug(msg string, args ...any) {
	Global().Debug(msg, args...)
}

// Info logs at info level through Global.
func Info(msg string, args ...any) {
	Global().Info(msg, args...)
}

// Warn logs at warn level through Global.
func Warn(msg string, args ...any) {
	Global().Warn(msg, args...)
}

// Error logs at error level through Global.
func Error(msg string, args ...any) {
	Global().Error(msg, args...)
}
