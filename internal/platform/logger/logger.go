package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap with the service configuration it was built from.
type Logger struct {
	*zap.Logger
	config LoggerConfig
}

// NewLogger builds a zap logger from cfg. Broken settings fall back to sane
// defaults instead of failing startup.
func NewLogger(cfg LoggerConfig) *Logger {
	var zapConfig zap.Config
	if cfg.ToZapLevel() == zapcore.DebugLevel {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zapConfig.Level = zap.NewAtomicLevelAt(cfg.ToZapLevel())

	output := cfg.OutputFile
	if output == "" {
		output = "stdout"
	}
	if output != "stdout" && output != "stderr" {
		logDir := filepath.Dir(output)
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to create log directory '%s', logging to stdout: %v\n", logDir, err)
			zapConfig.OutputPaths = []string{"stdout"}
		} else {
			zapConfig.OutputPaths = []string{output, "stdout"}
		}
	} else {
		zapConfig.OutputPaths = []string{output}
	}
	zapConfig.ErrorOutputPaths = []string{"stderr"}

	switch strings.ToLower(cfg.Format) {
	case "console", "text":
		zapConfig.Encoding = "console"
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		zapConfig.Encoding = "json"
	}

	l, err := zapConfig.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing zap logger: %v. Falling back to production defaults.\n", err)
		l, _ = zap.NewProduction()
	}
	l.Info("Logger initialized",
		zap.String("level", cfg.ToZapLevel().String()),
		zap.String("format", zapConfig.Encoding),
		zap.Strings("output_paths", zapConfig.OutputPaths),
	)
	return &Logger{Logger: l, config: cfg}
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop(), config: DefaultConfig()}
}

// Named adds a new path segment to the logger's name.
func (l *Logger) Named(name string) *Logger {
	return &Logger{Logger: l.Logger.Named(name), config: l.config}
}

// With adds structured context to the logger.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...), config: l.config}
}

func (l *Logger) Config() LoggerConfig { return l.config }
