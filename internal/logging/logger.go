// Package logging provides structured logging for the sync CLI.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger wraps zerolog with a console writer gated by the verbosity
// flags and an optional file sink that always receives debug level.
type Logger struct {
	zlog         zerolog.Logger
	output       io.Writer
	consoleLevel zerolog.Level
	logFile      *os.File
}

// New creates a logger writing human-readable output to stdout.
// Stderr is reserved for progress bars and the aria2c console stream.
func New() *Logger {
	l := &Logger{
		output: zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		},
		consoleLevel: zerolog.InfoLevel,
	}
	l.rebuild()
	return l
}

// SetLevel sets the console verbosity. The file sink, when attached,
// stays at debug level regardless.
func (l *Logger) SetLevel(level zerolog.Level) {
	l.consoleLevel = level
	l.rebuild()
}

// WithFile attaches a file sink that always receives debug-level output,
// regardless of the console level. The file is opened in append mode.
func (l *Logger) WithFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	l.logFile = f
	l.rebuild()
	return nil
}

// rebuild wires the writer chain for the current level and sinks.
// With a file attached, events are generated at debug level and the
// console is filtered down to its own level; without one, the global
// level gates event generation directly.
func (l *Logger) rebuild() {
	if l.logFile == nil {
		zerolog.SetGlobalLevel(l.consoleLevel)
		l.zlog = zerolog.New(l.output).With().Timestamp().Logger()
		return
	}

	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	console := &zerolog.FilteredLevelWriter{
		Writer: zerolog.MultiLevelWriter(l.output),
		Level:  l.consoleLevel,
	}
	l.zlog = zerolog.New(zerolog.MultiLevelWriter(console, l.logFile)).
		With().
		Timestamp().
		Logger()
}

// Close releases the file sink, if any.
func (l *Logger) Close() {
	if l.logFile != nil {
		_ = l.logFile.Close()
		l.logFile = nil
	}
}

// Info returns an info level event.
func (l *Logger) Info() *zerolog.Event {
	return l.zlog.Info()
}

// Error returns an error level event.
func (l *Logger) Error() *zerolog.Event {
	return l.zlog.Error()
}

// Debug returns a debug level event.
func (l *Logger) Debug() *zerolog.Event {
	return l.zlog.Debug()
}

// Warn returns a warn level event.
func (l *Logger) Warn() *zerolog.Event {
	return l.zlog.Warn()
}

// Debugf logs a debug message with printf-style formatting.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.zlog.Debug().Msgf(format, args...)
}

// Infof logs an info message with printf-style formatting.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.zlog.Info().Msgf(format, args...)
}

// Warnf logs a warning message with printf-style formatting.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.zlog.Warn().Msgf(format, args...)
}

// Errorf logs an error message with printf-style formatting.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.zlog.Error().Msgf(format, args...)
}

// SetGlobalLevel sets the global log level.
func SetGlobalLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	})
}
