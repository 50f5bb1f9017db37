// Custom logging utility used internally all over Cardpack.

package log

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// Keys looked up by WithCtx while building a sub-logger.
const (
	RequestIDKey     = "ReqID"
	CorrelationIDKey = "correlation_id"
)

// Logger acts as a wrapper for zerolog with custom features.
type Logger interface {
	// WithCtx returns a sub-logger based of root logger with added context.
	WithCtx(context.Context) Logger
	// With returns a sub-logger carrying an additional string field.
	With(key, value string) Logger
	// Info level log starts a log message with INFO level.
	Info() *zerolog.Event
	// Debug level log starts a log message with DEBUG level.
	Debug() *zerolog.Event
	// Warn level log starts a log message with WARNING level.
	Warn() *zerolog.Event
	// Error level log starts a log message with ERROR level.
	Error() *zerolog.Event
	// Fatal level log starts a log message with FATAL level.
	Fatal() *zerolog.Event
}

type logger struct {
	zerolog.Logger
}

// Output of Logger based on what environment Cardpack is being run on.
func output(env string) io.Writer {
	if env == "DEV" {
		// Set output of Logger to prettified ConsoleOutput for local environment
		return zerolog.ConsoleWriter{Out: os.Stdout}
	}
	// ConsoleWriter prettifies log, inefficient in prod
	return os.Stdout
}

// Creates a new logger instance for other packages to use the internal zerolog.
func New(version string) Logger {
	return NewWithEnv(version, os.Getenv("ENV"))
}

// NewWithEnv is New with an explicit environment instead of the ENV variable.
func NewWithEnv(version, env string) Logger {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339Nano
	return &logger{zerolog.New(output(env)).With().Str("Version", version).Timestamp().Caller().Stack().Logger()}
}

// Nop returns a Logger which discards everything, handy in tests.
func Nop() Logger {
	return &logger{zerolog.Nop()}
}

// Returns a sub-logger by adding additional requestID context to it.
// Helps in debugging issues.
func (l *logger) WithCtx(ctx context.Context) Logger {
	if ctx == nil {
		return l
	}
	sub := l.Logger.With()
	added := false
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		sub = sub.Str(RequestIDKey, requestID)
		added = true
	}
	if correlationID, ok := ctx.Value(CorrelationIDKey).(string); ok && correlationID != "" {
		sub = sub.Str(CorrelationIDKey, correlationID)
		added = true
	}
	if !added {
		return l
	}
	return &logger{sub.Logger()}
}

func (l *logger) With(key, value string) Logger {
	return &logger{l.Logger.With().Str(key, value).Logger()}
}
