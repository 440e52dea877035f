// Package logging configures the process-wide zap logger used by every
// command in the pipeline.
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-style JSON logger whose level is controlled by
// the LOG_LEVEL environment variable (debug|info|warn|error, default info).
// service is attached to every line so logs from the ingestor and the
// detector can be told apart once aggregated.
func New(service string) *zap.Logger {
	level := zapcore.InfoLevel
	switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))) {
	case "debug":
		level = zapcore.DebugLevel
	case "warn", "warning":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		// zap's own production config never fails to build in practice; if
		// it ever does, fall back to a no-op logger rather than panic on
		// startup over a logging misconfiguration.
		logger = zap.NewNop()
	}

	return logger.With(zap.String("service", service))
}
