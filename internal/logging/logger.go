// Package logging provides config-driven categorized logging for the spotter.
// Every category shares one zap core; categories can be switched off
// individually and the whole package is a no-op until Initialize is called.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot      Category = "boot"      // Boot/initialization
	CategoryDecode    Category = "decode"    // Raw chain decoding, trait pool
	CategorySolver    Category = "solver"    // Matching, aggregation, optimality
	CategoryExclusion Category = "exclusion" // Ignored combos and pruning
	CategorySession   Category = "session"   // Solve state machine transitions
	CategoryStore     Category = "store"     // SQLite persistence
	CategoryCollab    Category = "collab"    // Collaboration client/server
	CategoryWatch     Category = "watch"     // File watching
	CategoryAudit     Category = "audit"     // Audit trail of state transitions
)

// Options mirrors config.LoggingConfig to avoid an import cycle.
type Options struct {
	Level      string          // debug, info, warn, error
	Format     string          // json, console
	File       string          // optional file output (relative to Dir)
	Dir        string          // base directory for File
	DebugMode  bool            // false = only warnings and errors reach stderr
	Categories map[string]bool // per-category toggles
}

// Logger is a category-scoped printf-style logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu         sync.RWMutex
	base       = zap.NewNop()
	opts       Options
	loggers    = make(map[Category]*Logger)
	closeFiles []func()
)

// Initialize builds the shared zap logger from opts.
// Safe to call more than once; later calls replace the previous core.
func Initialize(o Options) error {
	level := zapcore.InfoLevel
	if o.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(o.Level))); err != nil {
			return fmt.Errorf("invalid log level %q: %w", o.Level, err)
		}
	}
	if !o.DebugMode && level < zapcore.WarnLevel {
		level = zapcore.WarnLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	switch o.Format {
	case "json":
		enc = zapcore.NewJSONEncoder(encCfg)
	default:
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	sinks := []zapcore.WriteSyncer{zapcore.Lock(os.Stderr)}
	var closers []func()
	if o.File != "" {
		path := o.File
		if !filepath.IsAbs(path) && o.Dir != "" {
			path = filepath.Join(o.Dir, path)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		ws, closeFn, err := zap.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", path, err)
		}
		sinks = append(sinks, ws)
		closers = append(closers, closeFn)
	}

	core := zapcore.NewCore(enc, zapcore.NewMultiWriteSyncer(sinks...), zap.NewAtomicLevelAt(level))

	mu.Lock()
	defer mu.Unlock()
	for _, c := range closeFiles {
		c()
	}
	_ = base.Sync()
	base = zap.New(core)
	opts = o
	closeFiles = closers
	loggers = make(map[Category]*Logger)

	base.Debug("logging initialized",
		zap.String("level", level.String()),
		zap.String("format", o.Format),
		zap.Bool("debug_mode", o.DebugMode))
	return nil
}

// UseLogger installs an existing zap logger (tests, embedding).
func UseLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	base = l
	opts = Options{DebugMode: true}
	loggers = make(map[Category]*Logger)
}

// Base returns the shared zap logger.
func Base() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// IsCategoryEnabled returns whether a specific category is enabled.
// Categories not listed are enabled.
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	if opts.Categories == nil {
		return true
	}
	enabled, exists := opts.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Disabled categories get a no-op logger.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category, sugar: zap.NewNop().Sugar()}
	}

	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l := &Logger{
		category: category,
		sugar:    base.Named(string(category)).Sugar(),
	}
	loggers[category] = l
	return l
}

// Sync flushes buffered entries and closes file outputs.
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	_ = base.Sync()
	for _, c := range closeFiles {
		c()
	}
	closeFiles = nil
}

// Category returns the logger's category.
func (l *Logger) Category() Category { return l.category }

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// With returns a child logger carrying structured key/value context.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// =============================================================================
// CONVENIENCE FUNCTIONS
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

// Decode logs to the decode category
func Decode(format string, args ...interface{}) {
	Get(CategoryDecode).Info(format, args...)
}

// DecodeDebug logs debug to the decode category
func DecodeDebug(format string, args ...interface{}) {
	Get(CategoryDecode).Debug(format, args...)
}

// Solver logs to the solver category
func Solver(format string, args ...interface{}) {
	Get(CategorySolver).Info(format, args...)
}

// SolverDebug logs debug to the solver category
func SolverDebug(format string, args ...interface{}) {
	Get(CategorySolver).Debug(format, args...)
}

// ExclusionDebug logs debug to the exclusion category
func ExclusionDebug(format string, args ...interface{}) {
	Get(CategoryExclusion).Debug(format, args...)
}

// Session logs to the session category
func Session(format string, args ...interface{}) {
	Get(CategorySession).Info(format, args...)
}

// SessionDebug logs debug to the session category
func SessionDebug(format string, args ...interface{}) {
	Get(CategorySession).Debug(format, args...)
}

// Store logs to the store category
func Store(format string, args ...interface{}) {
	Get(CategoryStore).Info(format, args...)
}

// StoreDebug logs debug to the store category
func StoreDebug(format string, args ...interface{}) {
	Get(CategoryStore).Debug(format, args...)
}

// Collab logs to the collab category
func Collab(format string, args ...interface{}) {
	Get(CategoryCollab).Info(format, args...)
}

// CollabDebug logs debug to the collab category
func CollabDebug(format string, args ...interface{}) {
	Get(CategoryCollab).Debug(format, args...)
}

// Watch logs to the watch category
func Watch(format string, args ...interface{}) {
	Get(CategoryWatch).Info(format, args...)
}

// =============================================================================
// TIMING HELPERS
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
