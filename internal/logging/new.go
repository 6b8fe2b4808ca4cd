package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects a backend and its output shape.
//
//	Backend: "slog" (default) or "zap"
//	Level:   "debug", "info", "warn", "error"
//	Format:  "text" (default) or "json"
type Options struct {
	Backend string
	Level   string
	Format  string
}

// New builds a Logger writing to w. Unknown levels fall back to info.
func New(w io.Writer, o Options) (Logger, error) {
	switch strings.ToLower(o.Backend) {
	case "", "slog":
		return newSlog(w, o), nil
	case "zap":
		return newZap(w, o), nil
	default:
		return nil, fmt.Errorf("unknown log backend %q", o.Backend)
	}
}

func newSlog(w io.Writer, o Options) *SlogLogger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(o.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: redactAttr}

	var h slog.Handler
	if strings.EqualFold(o.Format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return NewSlogLogger(slog.New(h))
}

func newZap(w io.Writer, o Options) *ZapLogger {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(o.Level)); err != nil {
		level = zap.InfoLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if strings.EqualFold(o.Format, "json") {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(w), zap.NewAtomicLevelAt(level))
	return NewZapLogger(zap.New(core))
}

// Sync flushes l when its backend buffers output. For other loggers it is a
// no-op.
func Sync(l Logger) error {
	if s, ok := l.(interface{ Sync() error }); ok {
		return s.Sync()
	}
	return nil
}
