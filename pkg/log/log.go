package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger zerolog.Logger

	// levelMu guards baseLevel. The active level lives in zerolog's global
	// level, which is atomic, so ToggleDebug may run while other goroutines log.
	levelMu   sync.Mutex
	baseLevel = zerolog.InfoLevel
)

// Config controls logger output
type Config struct {
	Level      string
	JSON       bool
	File       string
	MaxSize    int // megabytes before rotation
	MaxBackups int

	// Output overrides stdout, mainly for tests
	Output io.Writer
}

// Initialize sets up the logger with the given configuration
func Initialize(cfg Config) {
	var output io.Writer = os.Stdout
	if cfg.Output != nil {
		output = cfg.Output
	}

	// Set up console writer for pretty output if not JSON
	if !cfg.JSON {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	// Tee to a rotating file when one is configured and writable
	if cfg.File != "" {
		if f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v\n", cfg.File, err)
		} else {
			f.Close()
			rotator := &lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
			}
			output = zerolog.MultiLevelWriter(output, rotator)
		}
	}

	level := parseLevel(cfg.Level)
	levelMu.Lock()
	baseLevel = level
	zerolog.SetGlobalLevel(level)
	levelMu.Unlock()

	logger = zerolog.New(output).
		Level(zerolog.DebugLevel).
		With().
		Timestamp().
		Logger()
}

// Level returns the level currently in effect
func Level() zerolog.Level {
	return zerolog.GlobalLevel()
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// ToggleDebug switches between debug and the configured level
func ToggleDebug() {
	levelMu.Lock()
	defer levelMu.Unlock()

	if zerolog.GlobalLevel() == zerolog.DebugLevel && baseLevel != zerolog.DebugLevel {
		logger.Info().Msgf("Log level restored to %s", baseLevel)
		zerolog.SetGlobalLevel(baseLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	logger.Info().Msg("Debug logging enabled")
}

// Debug logs a debug message
func Debug(msg string) {
	logger.Debug().Msg(msg)
}

// Debugf logs a formatted debug message
func Debugf(format string, args ...interface{}) {
	logger.Debug().Msgf(format, args...)
}

// Info logs an info message
func Info(msg string) {
	logger.Info().Msg(msg)
}

// Infof logs a formatted info message
func Infof(format string, args ...interface{}) {
	logger.Info().Msgf(format, args...)
}

// Warn logs a warning message
func Warn(msg string) {
	logger.Warn().Msg(msg)
}

// Warnf logs a formatted warning message
func Warnf(format string, args ...interface{}) {
	logger.Warn().Msgf(format, args...)
}

// Error logs an error message
func Error(msg string) {
	logger.Error().Msg(msg)
}

// Errorf logs a formatted error message
func Errorf(format string, args ...interface{}) {
	logger.Error().Msgf(format, args...)
}

// ErrorErr logs an error with an error object
func ErrorErr(msg string, err error) {
	logger.Error().Err(err).Msg(msg)
}

// WithSchedule returns a logger with schedule context
func WithSchedule(schedule string, item int) *zerolog.Logger {
	l := logger.With().
		Str("schedule", schedule).
		Int("item", item).
		Logger()
	return &l
}

// WithFields returns a logger with arbitrary context fields
func WithFields(fields map[string]interface{}) *zerolog.Logger {
	l := logger.With().Fields(fields).Logger()
	return &l
}
