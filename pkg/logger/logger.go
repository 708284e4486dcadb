// Package logger provides the component-tagged structured logging
// convention used throughout this repository: every package obtains a
// *ComponentLogger via WithComponent and logs key-value pairs alongside
// a message, the way the wider example pack's call sites already assume
// even where their own logger package never defined it.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/killallgit/chatcast/pkg/config"
)

// Level represents the logging level.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
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
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Logger is the process-wide sink every ComponentLogger writes through.
type Logger struct {
	level       Level
	logger      *log.Logger
	file        *os.File
	initialized bool
}

var defaultLogger *Logger

// Init initializes the default logger from a loaded Config.
func Init(cfg *config.LoggingConfig) error {
	if defaultLogger != nil && defaultLogger.initialized {
		return nil
	}
	l, err := New(parseLevel(cfg.Level), cfg.LogFile, cfg.Persist)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defaultLogger = l
	return nil
}

// New creates a standalone Logger instance.
func New(level Level, logFile string, persist bool) (*Logger, error) {
	logPath := logFile
	if !filepath.IsAbs(logPath) {
		logPath = config.ResolveLogPath(filepath.Base(logPath))
	}

	logDir := filepath.Dir(logPath)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY
	if persist {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(logPath, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return &Logger{
		level:       level,
		logger:      log.New(file, "", log.LstdFlags),
		file:        file,
		initialized: true,
	}, nil
}

func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func parseLevel(levelStr string) Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	default:
		return LevelInfo
	}
}

func (l *Logger) shouldLog(level Level) bool {
	return level >= l.level
}

func formatKV(kv []any) string {
	if len(kv) == 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i+1 < len(kv); i += 2 {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%v=%v", kv[i], kv[i+1])
	}
	if len(kv)%2 == 1 {
		fmt.Fprintf(&b, " %v=<missing>", kv[len(kv)-1])
	}
	return b.String()
}

func (l *Logger) log(level Level, component, msg string, kv ...any) {
	if !l.shouldLog(level) {
		return
	}
	line := fmt.Sprintf("[%s] [%s] %s", level.String(), component, msg)
	if fields := formatKV(kv); fields != "" {
		line = line + " " + fields
	}
	l.logger.Println(line)
	if level >= LevelError {
		fmt.Fprintln(os.Stderr, line)
	}
}

// ComponentLogger tags every call site with a fixed component name,
// matching the logger.WithComponent("name") idiom used across this
// repository's HTTP clients and adapters.
type ComponentLogger struct {
	component string
	logger    *Logger
}

// WithComponent returns a logger tagged with component, bound to the
// default (process-wide) logger. Safe to call before Init; log calls are
// silently dropped until a default logger exists.
func WithComponent(component string) *ComponentLogger {
	return &ComponentLogger{component: component, logger: defaultLogger}
}

func (c *ComponentLogger) Debug(msg string, kv ...any) {
	if c.logger != nil {
		c.logger.log(LevelDebug, c.component, msg, kv...)
	}
}

func (c *ComponentLogger) Info(msg string, kv ...any) {
	if c.logger != nil {
		c.logger.log(LevelInfo, c.component, msg, kv...)
	}
}

func (c *ComponentLogger) Warn(msg string, kv ...any) {
	if c.logger != nil {
		c.logger.log(LevelWarn, c.component, msg, kv...)
	}
}

func (c *ComponentLogger) Error(msg string, kv ...any) {
	if c.logger != nil {
		c.logger.log(LevelError, c.component, msg, kv...)
	}
}

// SetOutput redirects the default logger's output, useful in tests.
func SetOutput(w io.Writer) {
	if defaultLogger != nil && defaultLogger.logger != nil {
		defaultLogger.logger.SetOutput(w)
	}
}

// Close closes the default logger.
func Close() error {
	if defaultLogger != nil {
		return defaultLogger.Close()
	}
	return nil
}
