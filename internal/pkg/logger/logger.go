package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Pesokrava/review_widget/internal/domain"
)

// Logger wraps zerolog.Logger with convenience methods
type Logger struct {
	logger zerolog.Logger
}

// New creates a new logger instance based on environment
func New(env string) *Logger {
	return NewWithWriter(env, os.Stdout)
}

// NewWithWriter creates a logger writing to w; development gets the console format
func NewWithWriter(env string, w io.Writer) *Logger {
	var logger zerolog.Logger

	if env == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Caller().Logger()
	} else {
		logger = zerolog.New(w).With().Timestamp().Caller().Logger()
	}

	switch env {
	case "development":
		logger = logger.Level(zerolog.DebugLevel)
	case "test":
		logger = logger.Level(zerolog.WarnLevel)
	default:
		logger = logger.Level(zerolog.InfoLevel)
	}

	return &Logger{logger: logger}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

// Debug logs a debug message
func (l *Logger) Debug(msg string) {
	l.logger.Debug().Msg(msg)
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, v ...any) {
	l.logger.Debug().Msgf(format, v...)
}

// Info logs an info message
func (l *Logger) Info(msg string) {
	l.logger.Info().Msg(msg)
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, v ...any) {
	l.logger.Info().Msgf(format, v...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string) {
	l.logger.Warn().Msg(msg)
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, v ...any) {
	l.logger.Warn().Msgf(format, v...)
}

// Error logs an error message
func (l *Logger) Error(msg string, err error) {
	l.logger.Error().Err(err).Msg(msg)
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(err error, format string, v ...any) {
	l.logger.Error().Err(err).Msgf(format, v...)
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(msg string, err error) {
	l.logger.Fatal().Err(err).Msg(msg)
}

// With returns a new logger with an additional context field
func (l *Logger) With(key string, value any) *Logger {
	return &Logger{
		logger: l.logger.With().Interface(key, value).Logger(),
	}
}

// WithFields returns a new logger with multiple context fields
func (l *Logger) WithFields(fields map[string]any) *Logger {
	ctx := l.logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{logger: ctx.Logger()}
}

// WithPartition tags every entry with the partition key
func (l *Logger) WithPartition(p domain.Partition) *Logger {
	return &Logger{
		logger: l.logger.With().
			Str("product_id", p.ProductID).
			Str("website", p.Website).
			Logger(),
	}
}

// GetZerologLogger returns the underlying zerolog.Logger for advanced usage
func (l *Logger) GetZerologLogger() *zerolog.Logger {
	return &l.logger
}

// SetGlobalLogger sets the global logger instance
func SetGlobalLogger(l *Logger) {
	log.Logger = l.logger
}
