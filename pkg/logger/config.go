package logger

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the configuration for the logger
type Config struct {
	Level         string `yaml:"level"          mapstructure:"level"`
	FilePath      string `yaml:"file_path"      mapstructure:"file_path"`
	Format        string `yaml:"format"         mapstructure:"format"`
	WithTrace     bool   `yaml:"with_trace"     mapstructure:"with_trace"`
	EnableConsole bool   `yaml:"enable_console" mapstructure:"enable_console"`
	InstantSync   bool   `yaml:"instant_sync"   mapstructure:"instant_sync"`
}

func baseEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     customTimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

func consoleEncoderConfig() zapcore.EncoderConfig {
	cfg := baseEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncodeCaller = nil
	cfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format("15:04:05"))
	}
	return cfg
}

func newBufferCore(level zapcore.LevelEnabler) zapcore.Core {
	return zapcore.NewCore(
		zapcore.NewConsoleEncoder(baseEncoderConfig()),
		zapcore.AddSync(globalLogBuffer),
		level,
	)
}

// Initialize sets up the global logger with the given configuration
func Initialize(config Config) error {
	GlobalInstantSync = config.InstantSync

	logLevel := config.Level
	if logLevel == "" {
		logLevel = InfoLogLevel
	}
	GlobalLogLevel = logLevel
	level := getZapLevel(logLevel)

	cores := []zapcore.Core{newBufferCore(level)}

	if config.EnableConsole {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleEncoderConfig()),
			zapcore.Lock(os.Stderr),
			level,
		))
	}

	if config.FilePath != "" {
		var encoder zapcore.Encoder
		if config.Format == "json" {
			encoder = zapcore.NewJSONEncoder(baseEncoderConfig())
		} else {
			encoder = zapcore.NewConsoleEncoder(baseEncoderConfig())
		}

		file, err := os.OpenFile(
			config.FilePath,
			os.O_APPEND|os.O_CREATE|os.O_WRONLY,
			LogFilePermissions,
		)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		GlobalLogFile = file

		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(file), level))
	}

	opts := []zap.Option{zap.AddCaller(), zap.AddCallerSkip(1)}
	if config.WithTrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	SetGlobalLogger(&Logger{Logger: zap.New(zapcore.NewTee(cores...), opts...).Named(loggerName)})
	return nil
}
