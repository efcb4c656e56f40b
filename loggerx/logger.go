package loggerx

import (
	"context"
	"io"
	"log/slog"

	internaltracex "github.com/clinia/searchx/internal/tracex"
	"github.com/clinia/searchx/slogx"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

type Logger struct {
	*slog.Logger
}

// New wraps the given handler.
func New(h slog.Handler) *Logger {
	return &Logger{slog.New(h)}
}

// NewJSON creates a logger writing JSON records at the given level.
func NewJSON(w io.Writer, level slog.Leveler) *Logger {
	return New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewDefault returns a logger backed by slog's default handler.
func NewDefault() *Logger {
	return &Logger{slog.Default()}
}

// NewNoop returns a logger discarding every record.
func NewNoop() *Logger {
	return New(slog.DiscardHandler)
}

func (l *Logger) WithError(err error) *Logger {
	return &Logger{l.Logger.With(slogx.ErrorAttr(err))}
}

func (l *Logger) Panic(ctx context.Context, msg string, kvs ...attribute.KeyValue) *Logger {
	l.Error(ctx, msg, kvs...)
	panic(msg)
}

func (l *Logger) WithStackTrace() *Logger {
	stackTrace := internaltracex.GetStackTrace(3)
	return l.WithFields(semconv.ExceptionStacktrace(stackTrace))
}

func (l *Logger) Error(ctx context.Context, msg string, kvs ...attribute.KeyValue) {
	l.Logger.LogAttrs(ctx, slog.LevelError, msg, slogx.NewLogFields(kvs...)...)
}

func (l *Logger) Warn(ctx context.Context, msg string, kvs ...attribute.KeyValue) {
	l.Logger.LogAttrs(ctx, slog.LevelWarn, msg, slogx.NewLogFields(kvs...)...)
}

func (l *Logger) Info(ctx context.Context, msg string, kvs ...attribute.KeyValue) {
	l.Logger.LogAttrs(ctx, slog.LevelInfo, msg, slogx.NewLogFields(kvs...)...)
}

func (l *Logger) Debug(ctx context.Context, msg string, kvs ...attribute.KeyValue) {
	l.Logger.LogAttrs(ctx, slog.LevelDebug, msg, slogx.NewLogFields(kvs...)...)
}

func (l *Logger) WithFields(kvs ...attribute.KeyValue) *Logger {
	if len(kvs) == 0 {
		return l
	}
	attrs := slogx.NewLogFields(kvs...)
	args := make([]any, len(attrs))
	for i, a := range attrs {
		args[i] = a
	}
	return &Logger{l.Logger.With(args...)}
}

// WithSpanStartOptions copies the attributes passed to a span onto the logger.
func (l *Logger) WithSpanStartOptions(opts ...trace.SpanStartOption) *Logger {
	cfg := trace.NewSpanStartConfig(opts...)
	return l.WithFields(cfg.Attributes()...)
}
