package logger

import (
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var current atomic.Pointer[zap.SugaredLogger]

func init() {
	current.Store(zap.NewNop().Sugar())
}

// Init builds the process logger. "production" logs JSON at info, anything
// else logs colored console output at debug. LOG_LEVEL overrides the level.
func Init(env string) {
	var cfg zap.Config
	if strings.EqualFold(env, "production") {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		if parsed, err := zapcore.ParseLevel(lvl); err == nil {
			cfg.Level = zap.NewAtomicLevelAt(parsed)
		}
	}

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		l = zap.NewExample()
	}
	current.Store(l.Sugar())
}

// Set installs l, mostly for tests.
func Set(l *zap.Logger) {
	current.Store(l.WithOptions(zap.AddCallerSkip(1)).Sugar())
}

// L returns the underlying zap logger.
func L() *zap.Logger {
	return current.Load().Desugar()
}

func Debug(msg string, keysAndValues ...any) {
	current.Load().Debugw(msg, normalize(keysAndValues)...)
}

func Info(msg string, keysAndValues ...any) {
	current.Load().Infow(msg, normalize(keysAndValues)...)
}

func Warn(msg string, keysAndValues ...any) {
	current.Load().Warnw(msg, normalize(keysAndValues)...)
}

func Error(msg string, keysAndValues ...any) {
	current.Load().Errorw(msg, normalize(keysAndValues)...)
}

func Fatal(msg string, keysAndValues ...any) {
	current.Load().Fatalw(msg, normalize(keysAndValues)...)
}

func Sync() error {
	return current.Load().Sync()
}

// normalize turns a lone trailing error into an "error" field so calls like
// logger.Error("failed", err) keep their value.
func normalize(kv []any) []any {
	if len(kv)%2 == 1 {
		if err, ok := kv[len(kv)-1].(error); ok {
			return append(kv[:len(kv)-1:len(kv)-1], "error", err)
		}
	}
	return kv
}
