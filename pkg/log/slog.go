// Package log provides the slog-backed implementation of Logger.
//
// This file lets applications that standardize on Go's log/slog route mlcore
// logging through their own handlers. Level values map one to one between
// the two packages, so conversions are direct casts.

package log

import (
	"context"
	"io"
	"log/slog"
	"os"
)

const (
	// ErrAttrKey is the attribute key for error values.
	ErrAttrKey = "error"

	// StacktraceAttrKey is the attribute key for formatted stack traces.
	StacktraceAttrKey = "stacktrace"
)

// ErrAttr wraps an error as a slog attribute under the standard error key.
func ErrAttr(err error) slog.Attr {
	return slog.Any(ErrAttrKey, err)
}

// slogLogger adapts a *slog.Logger to the Logger interface.
type slogLogger struct {
	sl *slog.Logger
}

// NewSlogLogger wraps an existing slog.Logger in the Logger interface so a
// host application's logging configuration applies to mlcore as well.
func NewSlogLogger(sl *slog.Logger) Logger {
	return &slogLogger{sl: sl}
}

// Debug implements Logger.Debug.
func (l *slogLogger) Debug(msg string, fields ...any) {
	l.log(LevelDebug, msg, fields)
}

// Info implements Logger.Info.
func (l *slogLogger) Info(msg string, fields ...any) {
	l.log(LevelInfo, msg, fields)
}

// Warn implements Logger.Warn.
func (l *slogLogger) Warn(msg string, fields ...any) {
	l.log(LevelWarn, msg, fields)
}

// Error implements Logger.Error.
// A bare error as the first field is recorded under the standard error key,
// so the stacktrace handler can annotate it.
func (l *slogLogger) Error(msg string, fields ...any) {
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			fields = append([]any{ErrAttr(err)}, fields[1:]...)
		}
	}
	l.log(LevelError, msg, fields)
}

// With implements Logger.With.
func (l *slogLogger) With(fields ...any) Logger {
	attrs := buildAttrs(fields)
	args := make([]any, len(attrs))
	for i, a := range attrs {
		args[i] = a
	}
	return &slogLogger{sl: l.sl.With(args...)}
}

// Enabled implements Logger.Enabled.
func (l *slogLogger) Enabled(ctx context.Context, level Level) bool {
	return l.sl.Enabled(ctx, slog.Level(level))
}

func (l *slogLogger) log(level Level, msg string, fields []any) {
	ctx := context.Background()
	if !l.sl.Enabled(ctx, slog.Level(level)) {
		return
	}
	l.sl.LogAttrs(ctx, slog.Level(level), msg, buildAttrs(fields)...)
}

// buildAttrs converts alternating key-value fields into slog attributes.
// A slog.Attr in the field list passes through unchanged. Dangling keys
// without a value are dropped, matching TestLogger.
func buildAttrs(fields []any) []slog.Attr {
	attrs := make([]slog.Attr, 0, (len(fields)+1)/2)
	for i := 0; i < len(fields); {
		if a, ok := fields[i].(slog.Attr); ok {
			attrs = append(attrs, a)
			i++
			continue
		}
		if i+1 >= len(fields) {
			break
		}
		attrs = append(attrs, slog.Any(fieldKey(fields[i]), fields[i+1]))
		i += 2
	}
	return attrs
}

// SlogProvider implements LoggerProvider on top of log/slog.
type SlogProvider struct {
	root  *slog.Logger
	level *slog.LevelVar
}

// NewSlogProvider creates a provider writing JSON lines to w at the given
// minimum level. Error attributes are extended with a stack trace when the
// logged error carries one.
func NewSlogProvider(w io.Writer, level Level) *SlogProvider {
	lv := new(slog.LevelVar)
	lv.Set(slog.Level(level))
	handler := WithStacktraces(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lv}))
	return &SlogProvider{root: slog.New(handler), level: lv}
}

// GetLogger implements LoggerProvider.GetLogger.
func (p *SlogProvider) GetLogger() Logger {
	return &slogLogger{sl: p.root}
}

// GetLoggerWithName implements LoggerProvider.GetLoggerWithName.
// The name is recorded under the standard component key.
func (p *SlogProvider) GetLoggerWithName(name string) Logger {
	return &slogLogger{sl: p.root.With(slog.String(ComponentKey, name))}
}

// SetLevel implements LoggerProvider.SetLevel.
// slog.LevelVar is safe for concurrent use, so no locking is required.
func (p *SlogProvider) SetLevel(level Level) {
	p.level.Set(slog.Level(level))
}

// SetupSlog installs a slog-backed JSON provider on stderr as the package
// default, replacing the zerolog provider. Stack traces carried by logged
// errors appear as a stacktrace attribute.
func SetupSlog(level Level) {
	SetProvider(NewSlogProvider(os.Stderr, level))
}
