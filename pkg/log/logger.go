package log

import (
	"io"
	"log/slog"
)

// NewSlogLogger returns a JSON slog logger writing to w whose error
// attributes carry cockroachdb/errors stack traces. Used by callers that log
// through log/slog rather than the Logger interface.
func NewSlogLogger(w io.Writer, loglevel string) *slog.Logger {
	ops := slog.HandlerOptions{
		AddSource: true,
		Level:     ToLogLevel(loglevel),
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.LevelKey:
				attr.Key = "severity"
			case slog.MessageKey:
				attr.Key = "message"
			}
			return attr
		},
	}
	return slog.New(WrapByErrFmtHandler(slog.NewJSONHandler(w, &ops)))
}

// ToLogLevel maps a level name to slog.Level. Unknown names map to info.
func ToLogLevel(level string) slog.Level {
	l, _ := ParseLevel(level)
	return slog.Level(l)
}

const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
)

// ErrAttr is a wrapper to pass err to slog.
func ErrAttr(err error) slog.Attr {
	return slog.Any(ErrAttrKey, err)
}
