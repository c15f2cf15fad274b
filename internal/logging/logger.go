// Package logging provides the structured logger used across every oracle-v2
// component: one construction point, JSON encoding in production, console
// encoding for local development.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls logger construction.
type Config struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string
	// Format is "json" (default) or "console".
	Format string
}

// Logger wraps *zap.Logger with the telemetry-swallowing conventions used
// by fire-and-forget log inserts (§4.1, §4.5.8).
type Logger struct {
	*zap.Logger
}

// New builds a Logger from cfg. A zero Config produces a sane production
// default: info level, JSON encoding to stdout.
func New(cfg Config) (*Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.Set(cfg.Level); err != nil {
			return nil, err
		}
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level)
	zl := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	return &Logger{Logger: zl}, nil
}

// NewNop returns a Logger that discards everything, for tests.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// Telemetry logs a swallowed telemetry-insert failure with the stable
// "telemetry:" prefix §4.1/§7 require. It never returns an error because
// the caller has already decided the failure is non-fatal.
func (l *Logger) Telemetry(table string, err error) {
	l.Warn("telemetry: insert failed", zap.String("table", table), zap.Error(err))
}

// Named returns a child logger scoped to name.
func (l *Logger) Named(name string) *Logger {
	return &Logger{Logger: l.Logger.Named(name)}
}

// With returns a child logger with the given structured fields attached.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...)}
}
