// Package logging provides config-driven categorized debug logging for agentkit.
// Logs are written to <state dir>/evidence/debug/ with one file per category.
// Nothing is written unless debug mode is enabled, and nothing ever goes to
// stdout: the hook contract owns stdout.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"agentkit/internal/config"
)

// Category represents a logging category
type Category string

const (
	CategoryHook      Category = "hook"      // Dispatcher and handlers
	CategoryState     Category = "state"     // State store reads and writes
	CategoryInput     Category = "input"     // Hook input sanitizing
	CategorySections  Category = "sections"  // Section composer
	CategoryTelemetry Category = "telemetry" // Langfuse emitter
	CategoryEvals     Category = "evals"     // Offline evaluation pipeline
)

// timestampLayout matches the compact stamp used by the hook scripts.
const timestampLayout = "20060102T150405"

// Level represents log severity
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// ParseLevel maps a config level name onto a Level. Unknown names are debug.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	}
	return LevelDebug
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	logsDir   string
	cfg       config.LoggingConfig
	minLevel  = LevelDebug
	nowFunc   = time.Now
)

// Logger wraps one category log file.
type Logger struct {
	category Category
	file     *os.File
	mu       sync.Mutex
}

// Initialize sets up the logging system for a debug directory. Safe to call
// more than once; open files from a previous call are closed first.
func Initialize(dir string, lc config.LoggingConfig) error {
	CloseAll()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	logsDir = dir
	cfg = lc
	minLevel = ParseLevel(lc.Level)

	if !lc.DebugMode {
		return nil
	}
	if dir == "" {
		return fmt.Errorf("debug directory is empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create debug directory: %w", err)
	}
	return nil
}

// IsDebugMode returns whether debug logging is on.
func IsDebugMode() bool {
	loggersMu.RLock()
	defer loggersMu.RUnlock()
	return cfg.DebugMode
}

// Get returns a logger for the category. When the category is disabled the
// returned logger discards everything.
func Get(category Category) *Logger {
	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	enabled := cfg.IsCategoryEnabled(string(category)) && logsDir != ""
	loggersMu.RUnlock()

	if !enabled {
		return &Logger{category: category}
	}

	loggersMu.Lock()
	defer loggersMu.Unlock()

	if l, ok := loggers[category]; ok {
		return l
	}

	path := filepath.Join(logsDir, string(category)+".log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return &Logger{category: category}
	}

	l := &Logger{category: category, file: file}
	loggers[category] = l
	return l
}

func (l *Logger) write(level Level, format string, args ...interface{}) {
	if l == nil || l.file == nil || level < minLevel {
		return
	}
	msg := fmt.Sprintf(format, args...)
	line := fmt.Sprintf("%s [%s] %s\n", nowFunc().Format(timestampLayout), level, msg)

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.file.WriteString(line)
}

// Debug logs at debug level.
func (l *Logger) Debug(format string, args ...interface{}) { l.write(LevelDebug, format, args...) }

// Info logs at info level.
func (l *Logger) Info(format string, args ...interface{}) { l.write(LevelInfo, format, args...) }

// Warn logs at warn level.
func (l *Logger) Warn(format string, args ...interface{}) { l.write(LevelWarn, format, args...) }

// Error logs at error level.
func (l *Logger) Error(format string, args ...interface{}) { l.write(LevelError, format, args...) }

// Enabled reports whether this logger writes anywhere.
func (l *Logger) Enabled() bool { return l != nil && l.file != nil }

// CloseAll closes all open log files.
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	for cat, l := range loggers {
		if l.file != nil {
			_ = l.file.Close()
		}
		delete(loggers, cat)
	}
}

// =============================================================================
// CONVENIENCE FUNCTIONS
// =============================================================================

// Hook logs to the hook category.
func Hook(format string, args ...interface{}) { Get(CategoryHook).Info(format, args...) }

// HookDebug logs debug output to the hook category.
func HookDebug(format string, args ...interface{}) { Get(CategoryHook).Debug(format, args...) }

// State logs to the state category.
func State(format string, args ...interface{}) { Get(CategoryState).Info(format, args...) }

// StateDebug logs debug output to the state category.
func StateDebug(format string, args ...interface{}) { Get(CategoryState).Debug(format, args...) }

// Input logs to the input category.
func Input(format string, args ...interface{}) { Get(CategoryInput).Debug(format, args...) }

// Sections logs to the sections category.
func Sections(format string, args ...interface{}) { Get(CategorySections).Debug(format, args...) }

// Telemetry logs to the telemetry category.
func Telemetry(format string, args ...interface{}) { Get(CategoryTelemetry).Debug(format, args...) }

// Evals logs to the evals category.
func Evals(format string, args ...interface{}) { Get(CategoryEvals).Info(format, args...) }

// =============================================================================
// TIMING
// =============================================================================

// Timer measures an operation and logs its duration when stopped.
type Timer struct {
	category  Category
	operation string
	start     time.Time
}

// StartTimer starts timing an operation.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, operation: operation, start: time.Now()}
}

// Stop logs the elapsed time and returns it.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.operation, elapsed)
	return elapsed
}
