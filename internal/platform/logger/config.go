package logger

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// LoggerConfig holds configuration for the logger.
type LoggerConfig struct {
	Level      string `mapstructure:"level" validate:"omitempty,oneof=debug info warn warning error fatal panic"`
	Format     string `mapstructure:"format" validate:"omitempty,oneof=json console text"`
	OutputFile string `mapstructure:"output_file"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() LoggerConfig {
	return LoggerConfig{Level: "info", Format: "json", OutputFile: "stdout"}
}

// ToZapLevel converts the string log level to zapcore.Level.
func (c LoggerConfig) ToZapLevel() zapcore.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	case "panic":
		return zapcore.PanicLevel
	default:
		return zapcore.InfoLevel
	}
}
