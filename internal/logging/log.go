// Package logging wraps a global zap sugared logger with key/value helpers.
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)

func init() {
	zap.ReplaceGlobals(zap.New(
		zapcore.NewCore(
			zapcore.NewJSONEncoder(config()),
			zapcore.Lock(os.Stdout),
			logLevel,
		),
	))
}

func config() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}

// SetLevel changes the minimum level for every logger created by this package.
func SetLevel(level string) error {
	lvl, err := zapcore.ParseLevel(Clean(level))
	if err != nil {
		return err
	}
	logLevel.SetLevel(lvl)
	return nil
}

func GetLevel() zapcore.Level {
	return logLevel.Level()
}

// Clean normalizes user supplied level names.
func Clean(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func Debug(msg string, kv ...interface{}) { zap.S().Debugw(msg, kv...) }
func Info(msg string, kv ...interface{})  { zap.S().Infow(msg, kv...) }
func Warn(msg string, kv ...interface{})  { zap.S().Warnw(msg, kv...) }
func Error(msg string, kv ...interface{}) { zap.S().Errorw(msg, kv...) }
func Panic(msg string, kv ...interface{}) { zap.S().Panicw(msg, kv...) }
func Fatal(msg string, kv ...interface{}) { zap.S().Fatalw(msg, kv...) }

// Sync flushes buffered entries; call it before the process exits.
func Sync() {
	_ = zap.L().Sync()
}
