// Package logger provides structured, component-scoped logging for the
// calculator core, backed by zerolog.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Level mirrors zerolog's levels so callers never import zerolog directly.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	case LevelFatal:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// ParseLevel converts a string to a Level, defaulting to Info on garbage input.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	default:
		return LevelInfo
	}
}

// Logger is a component-scoped structured logger.
type Logger struct {
	zl zerolog.Logger
}

// Config controls how the default logger is constructed.
type Config struct {
	Level    string
	FilePath string
	ToStdout bool
	Pretty   bool // human-readable console writer instead of JSON lines
}

var (
	defaultLogger *Logger
	once          sync.Once
	mu            sync.Mutex
)

// Init initializes the process-wide default logger. Safe to call once;
// later calls are no-ops, matching the teacher's sync.Once guard.
func Init(cfg Config) error {
	var err error
	once.Do(func() {
		defaultLogger, err = New(cfg)
	})
	return err
}

// New builds an independent Logger instance.
func New(cfg Config) (*Logger, error) {
	var writers []io.Writer

	if cfg.FilePath != "" {
		f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, f)
	}
	if cfg.ToStdout || cfg.FilePath == "" {
		if cfg.Pretty {
			writers = append(writers, zerolog.ConsoleWriter{Out: os.Stdout})
		} else {
			writers = append(writers, os.Stdout)
		}
	}

	var w io.Writer = io.MultiWriter(writers...)
	zl := zerolog.New(w).With().Timestamp().Logger().Level(ParseLevel(cfg.Level).zerolog())

	return &Logger{zl: zl}, nil
}

// WithComponent returns a logger tagged with a component name, the same
// call shape used throughout the rest of the core (logger.WithComponent("CostAnalysis")).
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{zl: l.zl.With().Str("component", component).Logger()}
}

// SetLevel changes the minimum level this logger emits.
func (l *Logger) SetLevel(level Level) {
	l.zl = l.zl.Level(level.zerolog())
}

func (l *Logger) Debug(format string, args ...interface{}) { l.zl.Debug().Msg(fmt.Sprintf(format, args...)) }
func (l *Logger) Info(format string, args ...interface{})  { l.zl.Info().Msg(fmt.Sprintf(format, args...)) }
func (l *Logger) Warn(format string, args ...interface{})  { l.zl.Warn().Msg(fmt.Sprintf(format, args...)) }
func (l *Logger) Error(format string, args ...interface{}) { l.zl.Error().Msg(fmt.Sprintf(format, args...)) }
func (l *Logger) Fatal(format string, args ...interface{}) { l.zl.Fatal().Msg(fmt.Sprintf(format, args...)) }

// Default logger convenience functions, mirroring the teacher's package-level helpers.

func ensureDefault() *Logger {
	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		l, _ := New(Config{Level: "info", ToStdout: true})
		defaultLogger = l
	}
	return defaultLogger
}

func Debug(format string, args ...interface{}) { ensureDefault().Debug(format, args...) }
func Info(format string, args ...interface{})  { ensureDefault().Info(format, args...) }
func Warn(format string, args ...interface{})  { ensureDefault().Warn(format, args...) }
func Error(format string, args ...interface{}) { ensureDefault().Error(format, args...) }
func Fatal(format string, args ...interface{}) { ensureDefault().Fatal(format, args...) }

// WithComponent returns a component logger backed by the default logger.
func WithComponent(component string) *Logger {
	return ensureDefault().WithComponent(component)
}

// SetLevel changes the default logger's level.
func SetLevel(level Level) {
	ensureDefault().SetLevel(level)
}
