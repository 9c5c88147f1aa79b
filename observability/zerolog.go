package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ZerologConfig configures the zerolog-backed Logger.
type ZerologConfig struct {
	Level   string // debug, info, warn, error
	Format  string // json or console
	Output  io.Writer
	Service string
}

type zerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger returns a Logger writing structured events through zerolog.
func NewZerologLogger(cfg ZerologConfig) Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	var zl zerolog.Logger
	if cfg.Format == "console" {
		zl = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	} else {
		zl = zerolog.New(out)
	}
	zctx := zl.With().Timestamp()
	if cfg.Service != "" {
		zctx = zctx.Str("service", cfg.Service)
	}
	zl = zctx.Logger().Level(ParseLevel(cfg.Level))
	return &zerologLogger{zl: zl}
}

// ParseLevel maps a level name to a zerolog level; unknown names mean info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

func (l *zerologLogger) Debug(msg string, fields ...Field) { emit(l.zl.Debug(), msg, fields) }
func (l *zerologLogger) Info(msg string, fields ...Field)  { emit(l.zl.Info(), msg, fields) }
func (l *zerologLogger) Warn(msg string, fields ...Field)  { emit(l.zl.Warn(), msg, fields) }
func (l *zerologLogger) Error(msg string, fields ...Field) { emit(l.zl.Error(), msg, fields) }

func (l *zerologLogger) With(fields ...Field) Logger {
	zctx := l.zl.With()
	for _, f := range fields {
		zctx = zctx.Interface(f.Key(), fieldValue(f))
	}
	return &zerologLogger{zl: zctx.Logger()}
}

func emit(evt *zerolog.Event, msg string, fields []Field) {
	if evt == nil {
		return
	}
	for _, f := range fields {
		switch v := f.Value().(type) {
		case string:
			evt = evt.Str(f.Key(), v)
		case int:
			evt = evt.Int(f.Key(), v)
		case int64:
			evt = evt.Int64(f.Key(), v)
		case float64:
			evt = evt.Float64(f.Key(), v)
		case bool:
			evt = evt.Bool(f.Key(), v)
		case time.Duration:
			evt = evt.Dur(f.Key(), v)
		case error:
			evt = evt.AnErr(f.Key(), v)
		default:
			evt = evt.Interface(f.Key(), v)
		}
	}
	evt.Msg(msg)
}

func fieldValue(f Field) interface{} {
	if err, ok := f.Value().(error); ok && err != nil {
		return err.Error()
	}
	return f.Value()
}
