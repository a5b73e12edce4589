// Package logger owns the process-wide zap logger. Console output goes to
// stderr only: in stdio serve mode stdout carries the MCP protocol stream,
// and in convert mode it can carry generated artifacts, so log lines must
// never mix into it.
package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nirholas/specbridge/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// globalLogger starts as a nop so extractors can log before InitLogger runs
// (tests, library use) without nil checks.
var globalLogger = zap.NewNop()

// InitLogger replaces the process-wide logger. Called once at startup,
// before any conversion pipeline stage runs.
func InitLogger(cfg *config.LoggingConfig) error {
	logger, err := NewLogger(cfg)
	if err != nil {
		return err
	}
	globalLogger = logger
	return nil
}

// NewLogger builds a logger from config. The "console" format is for humans
// running the CLI; "json" is for whatever scrapes a serve deployment's logs.
func NewLogger(cfg *config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
	}

	encoding := cfg.Format
	if encoding == "" {
		encoding = "console"
	}

	var outputPaths, errorPaths []string
	if !cfg.DisableConsole {
		outputPaths = append(outputPaths, "stderr")
		errorPaths = append(errorPaths, "stderr")
	}
	if cfg.OutputPath != "" {
		if dir := filepath.Dir(cfg.OutputPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create log directory %s: %w", dir, err)
			}
		}
		if !cfg.AppendToFile {
			_ = os.Remove(cfg.OutputPath)
		}
		outputPaths = append(outputPaths, cfg.OutputPath)
		errorPaths = append(errorPaths, cfg.OutputPath)
	}
	if len(outputPaths) == 0 {
		outputPaths = []string{"stderr"}
		errorPaths = []string{"stderr"}
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      encoding == "console",
		Encoding:         encoding,
		OutputPaths:      outputPaths,
		ErrorOutputPaths: errorPaths,
		EncoderConfig:    encoderConfig(encoding),
	}

	buildOpts := []zap.Option{zap.AddCallerSkip(1)}
	if !cfg.DisableStacktrace {
		buildOpts = append(buildOpts, zap.AddStacktrace(zapcore.ErrorLevel))
	}
	logger, err := zapConfig.Build(buildOpts...)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

func encoderConfig(encoding string) zapcore.EncoderConfig {
	if encoding == "json" {
		ec := zap.NewProductionEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
		return ec
	}
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	ec.EncodeCaller = zapcore.ShortCallerEncoder
	ec.EncodeDuration = zapcore.StringDurationEncoder
	return ec
}

// GetLogger returns the process-wide logger.
func GetLogger() *zap.Logger {
	return globalLogger
}

func Debug(msg string, fields ...zap.Field) { globalLogger.Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { globalLogger.Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { globalLogger.Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { globalLogger.Error(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { globalLogger.Fatal(msg, fields...) }

// Sync flushes buffered entries; deferred from main.
func Sync() error { return globalLogger.Sync() }
