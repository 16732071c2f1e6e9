// Package logging provides categorized logging for healthd, built on zap.
// Each subsystem logs under its own named category so a single store or
// cache issue can be traced without wading through unrelated output.
// Until Init is called every helper is a no-op, which keeps library use
// (and tests) quiet by default.
package logging

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/subsystem.
type Category string

const (
	CategoryBoot      Category = "boot"      // Startup, config, shutdown
	CategoryStore     Category = "store"     // SQLite store operations
	CategoryCache     Category = "cache"     // Redis cache operations, degradation
	CategoryAssistant Category = "assistant" // Cache-aside orchestration
)

var (
	mu      sync.RWMutex
	base    = zap.NewNop().Sugar()
	byCat   = make(map[Category]*zap.SugaredLogger)
	enabled bool
)

// Init installs a real zap logger at the given level ("debug", "info",
// "warn", "error"). An optional file path redirects output there instead
// of stderr. Safe to call more than once; the last call wins.
func Init(level string, file string) error {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	switch level {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "warn", "warning":
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	if file != "" {
		cfg.OutputPaths = []string{file}
		cfg.ErrorOutputPaths = []string{file}
	}

	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	mu.Lock()
	base = logger.Sugar()
	byCat = make(map[Category]*zap.SugaredLogger)
	enabled = true
	mu.Unlock()
	return nil
}

// Get returns the logger for a category, creating it on first use.
func Get(category Category) *zap.SugaredLogger {
	mu.RLock()
	if l, ok := byCat[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := byCat[category]; ok {
		return l
	}
	l := base.Named(string(category))
	byCat[category] = l
	return l
}

// Sync flushes buffered log entries. Call at shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = base.Sync()
}

// Enabled reports whether Init has installed a real logger.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// Convenience helpers so call sites read as logging.Store(...) instead of
// threading loggers through every struct.

// Boot logs to the boot category.
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Infof(format, args...)
}

// BootDebug logs debug to the boot category.
func BootDebug(format string, args ...interface{}) {
	Get(CategoryBoot).Debugf(format, args...)
}

// Store logs to the store category.
func Store(format string, args ...interface{}) {
	Get(CategoryStore).Infof(format, args...)
}

// StoreDebug logs debug to the store category.
func StoreDebug(format string, args ...interface{}) {
	Get(CategoryStore).Debugf(format, args...)
}

// Cache logs to the cache category.
func Cache(format string, args ...interface{}) {
	Get(CategoryCache).Infof(format, args...)
}

// CacheDebug logs debug to the cache category.
func CacheDebug(format string, args ...interface{}) {
	Get(CategoryCache).Debugf(format, args...)
}

// Assistant logs to the assistant category.
func Assistant(format string, args ...interface{}) {
	Get(CategoryAssistant).Infof(format, args...)
}

// AssistantDebug logs debug to the assistant category.
func AssistantDebug(format string, args ...interface{}) {
	Get(CategoryAssistant).Debugf(format, args...)
}

// Timer helps measure operation duration.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration at debug level.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debugf("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs a warning if the duration exceeds threshold.
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warnf("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debugf("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
