package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	loggers   sync.Map // map[string]*zap.SugaredLogger
	levels    sync.Map // map[string]zap.AtomicLevel
	globalMu  sync.Once
	globalLog *zap.SugaredLogger
)

// Named returns the logger for subsystem, creating and caching it on
// first use. Calling Named with the same subsystem always returns the
// same instance.
func Named(subsystem string) *zap.SugaredLogger {
	if l, ok := loggers.Load(subsystem); ok {
		return l.(*zap.SugaredLogger)
	}

	cfg := ConfigFromEnv()
	atomic := zap.NewAtomicLevelAt(cfg.LevelFor(subsystem))

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.Format == FormatJSON {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), atomic)
	l := zap.New(core).Named(subsystem).Sugar()

	actual, loaded := loggers.LoadOrStore(subsystem, l)
	if !loaded {
		levels.Store(subsystem, atomic)
	}
	return actual.(*zap.SugaredLogger)
}

// Global returns the default, unnamed logger.
func Global() *zap.SugaredLogger {
	globalMu.Do(func() {
		globalLog = Named("hippius")
	})
	return globalLog
}

// SetLevel dynamically adjusts the level for an already-created subsystem
// logger, without requiring a restart.
func SetLevel(subsystem string, level zapcore.Level) {
	if a, ok := levels.Load(subsystem); ok {
		a.(zap.AtomicLevel).SetLevel(level)
	}
}

// Discard returns a logger that writes nowhere, for tests.
func Discard() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
