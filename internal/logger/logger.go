package logger

import (
	"strings"

	"github.com/amerfu/llm-fallback/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Initialize builds the process logger. Callers pass the result down
// explicitly; the package keeps no global.
func Initialize(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zapConfig zap.Config

	if cfg.Format == "json" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapConfig.Level = zap.NewAtomicLevelAt(ParseLevel(cfg.Level))

	// Set output paths
	if cfg.OutputPath != "" && cfg.OutputPath != "stdout" {
		if cfg.OutputPath == "stderr" {
			zapConfig.OutputPaths = []string{"stderr"}
			zapConfig.ErrorOutputPaths = []string{"stderr"}
		} else {
			zapConfig.OutputPaths = []string{cfg.OutputPath}
			zapConfig.ErrorOutputPaths = []string{cfg.OutputPath}
		}
	}

	return zapConfig.Build()
}

// ParseLevel maps a config level name to a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zap.DebugLevel
	case "info":
		return zap.InfoLevel
	case "warn", "warning":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	case "fatal":
		return zap.FatalLevel
	default:
		return zap.InfoLevel
	}
}
