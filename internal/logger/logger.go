package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu   sync.RWMutex
	base = zap.NewNop()
)

// Init installs the process-wide JSON logger writing to stdout.
func Init() {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.MessageKey = "msg"
	encCfg.LevelKey = "level"
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.Lock(os.Stdout),
		zap.InfoLevel,
	)

	Set(zap.New(core))
	Info("logger initialized", nil)
}

// Set replaces the underlying logger. Tests use it with zaptest/observer.
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	base = l
	mu.Unlock()
}

// L returns the underlying zap logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func Info(msg string, fields map[string]any) {
	L().Info(msg, toZap(fields)...)
}

func Warn(msg string, fields map[string]any) {
	L().Warn(msg, toZap(fields)...)
}

func Error(msg string, fields map[string]any) {
	L().Error(msg, toZap(fields)...)
}

func Fatal(msg string, fields map[string]any) {
	L().Error(msg, toZap(fields)...)
	_ = L().Sync()
	os.Exit(1)
}

func toZap(fields map[string]any) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}
