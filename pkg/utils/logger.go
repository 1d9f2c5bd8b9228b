package utils

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger represents a logger instance.
type Logger struct {
	sugar *zap.SugaredLogger
}

// NewLogger creates a new logger writing to stdout and, when outputPath is
// set, to outputPath/vectrain.log as well.
func NewLogger(level, format, outputPath string) (*Logger, error) {
	logLevel := zap.NewAtomicLevel()
	if err := logLevel.UnmarshalText([]byte(level)); err != nil {
		logLevel.SetLevel(zap.InfoLevel)
	}

	var zapConfig zap.Config
	if format == "console" {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapConfig = zap.NewProductionConfig()
		zapConfig.Encoding = "json"
	}
	zapConfig.Level = logLevel
	zapConfig.OutputPaths = []string{"stdout"}
	if outputPath != "" {
		if err := os.MkdirAll(outputPath, os.ModePerm); err != nil {
			return nil, err
		}
		zapConfig.OutputPaths = append(zapConfig.OutputPaths, filepath.Join(outputPath, "vectrain.log"))
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{sugar: logger.Sugar()}, nil
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

// Named returns a child logger tagged with the given component.
func (l *Logger) Named(component string) *Logger {
	return &Logger{sugar: l.sugar.Named(component)}
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{sugar: l.sugar.With(keysAndValues...)}
}

// Info logs an informational message.
func (l *Logger) Info(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, v ...interface{}) {
	l.sugar.Debugf(format, v...)
}

// Warn logs a warning.
func (l *Logger) Warn(format string, v ...interface{}) {
	l.sugar.Warnf(format, v...)
}

// Error logs an error message.
func (l *Logger) Error(format string, v ...interface{}) {
	l.sugar.Errorf(format, v...)
}

// Fatal logs a fatal error message and exits the program.
func (l *Logger) Fatal(format string, v ...interface{}) {
	l.sugar.Fatalf(format, v...)
}

// Sync flushes buffered log entries.
func (l *Logger) Sync() {
	_ = l.sugar.Sync()
}
