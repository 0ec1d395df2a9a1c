package log

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/YuminosukeSato/carprice/pkg/errors"
)

// ZerologLogger adapts a zerolog.Logger to the Logger interface.
type ZerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger wraps an existing zerolog logger.
func NewZerologLogger(zl zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{zl: zl}
}

// Debug implements Logger.Debug.
func (l *ZerologLogger) Debug(msg string, fields ...any) {
	l.emit(l.zl.Debug(), msg, fields)
}

// Info implements Logger.Info.
func (l *ZerologLogger) Info(msg string, fields ...any) {
	l.emit(l.zl.Info(), msg, fields)
}

// Warn implements Logger.Warn.
func (l *ZerologLogger) Warn(msg string, fields ...any) {
	l.emit(l.zl.Warn(), msg, fields)
}

// Error implements Logger.Error.
func (l *ZerologLogger) Error(msg string, fields ...any) {
	l.emit(l.zl.Error(), msg, fields)
}

// With implements Logger.With.
func (l *ZerologLogger) With(fields ...any) Logger {
	return &ZerologLogger{zl: l.zl.With().Fields(pairs(fields)).Logger()}
}

// Enabled implements Logger.Enabled.
func (l *ZerologLogger) Enabled(_ context.Context, level Level) bool {
	return toZerologLevel(level) >= l.zl.GetLevel()
}

// Zerolog exposes the underlying logger.
func (l *ZerologLogger) Zerolog() zerolog.Logger {
	return l.zl
}

func (l *ZerologLogger) emit(e *zerolog.Event, msg string, fields []any) {
	if e == nil {
		return
	}
	kv := pairs(fields)
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		switch v := kv[i+1].(type) {
		case error:
			e = e.AnErr(key, v)
		case zerolog.LogObjectMarshaler:
			e = e.Object(key, v)
		default:
			e = e.Interface(key, v)
		}
	}
	e.Msg(msg)
}

// pairs drops a trailing key without value and stringifies non-string keys.
func pairs(fields []any) []any {
	n := len(fields) - len(fields)%2
	out := make([]any, 0, n)
	for i := 0; i < n; i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			key = "!BADKEY"
		}
		out = append(out, key, fields[i+1])
	}
	return out
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// ZerologProvider implements LoggerProvider on top of zerolog.
type ZerologProvider struct {
	mu    sync.RWMutex
	out   io.Writer
	level Level
	base  zerolog.Logger
}

// NewZerologProvider creates a provider writing human-readable console output
// to stderr at the given level. Warnings raised through errors.Warn are
// routed to it.
func NewZerologProvider(level Level) *ZerologProvider {
	return NewZerologProviderWithWriter(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}, level)
}

// NewZerologProviderWithWriter creates a provider writing to w. Pass a plain
// writer (not a ConsoleWriter) for JSON lines.
func NewZerologProviderWithWriter(w io.Writer, level Level) *ZerologProvider {
	p := &ZerologProvider{out: w}
	p.SetLevel(level)
	errors.SetZerologWarnFunc(p.warn)
	return p
}

// GetLogger implements LoggerProvider.GetLogger.
func (p *ZerologProvider) GetLogger() Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &ZerologLogger{zl: p.base}
}

// GetLoggerWithName implements LoggerProvider.GetLoggerWithName.
func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &ZerologLogger{zl: p.base.With().Str(ComponentKey, name).Logger()}
}

// SetLevel implements LoggerProvider.SetLevel.
func (p *ZerologProvider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = level
	p.base = zerolog.New(p.out).Level(toZerologLevel(level)).With().Timestamp().Logger()
}

func (p *ZerologProvider) warn(w error) {
	p.mu.RLock()
	zl := p.base
	p.mu.RUnlock()

	e := zl.Warn()
	if obj, ok := w.(zerolog.LogObjectMarshaler); ok {
		e = e.Object("warning", obj)
	}
	e.Msg(w.Error())
}
