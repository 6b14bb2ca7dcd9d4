// Package logger provides a per-pair, per-day file logger for trading
// activity, following the teacher repo's leveled-logging convention. The
// file is named for the date the logger was opened; an open logger keeps
// writing to that file and does not rotate at midnight.
package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger writes leveled log lines for a single trading pair to a daily file.
type Logger struct {
	pair      string
	logFile   *os.File
	logger    *log.Logger
	mu        sync.Mutex
	logDir    string
	debugMode bool
}

// Level tags a log entry with its kind.
type Level string

const (
	LevelInfo     Level = "INFO"
	LevelWarning  Level = "WARN"
	LevelError    Level = "ERROR"
	LevelTrade    Level = "TRADE"
	LevelStatus   Level = "STATUS"
	LevelDebug    Level = "DEBUG"
	LevelRegime   Level = "REGIME"
	LevelRisk     Level = "RISK"
)

// New creates a file logger for the given pair under logs/.
func New(pair string) (*Logger, error) {
	return NewWithDebug(pair, false)
}

// NewWithDebug creates a file logger with debug-level logging enabled or not.
func NewWithDebug(pair string, debugMode bool) (*Logger, error) {
	logDir := "logs"
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02")
	filename := fmt.Sprintf("%s_%s.log", pair, timestamp)
	logPath := filepath.Join(logDir, filename)

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := &Logger{
		pair:      pair,
		logFile:   file,
		logger:    log.New(file, "", 0),
		logDir:    logDir,
		debugMode: debugMode,
	}
	l.writeSessionHeader()
	return l, nil
}

func (l *Logger) writeSessionHeader() {
	l.mu.Lock()
	defer l.mu.Unlock()
	header := fmt.Sprintf(
		"================================================================================\n"+
			"GRID TRADING SESSION STARTED\n"+
			"================================================================================\n"+
			"Pair: %s | Started: %s\n"+
			"================================================================================\n",
		l.pair, time.Now().Format("2006-01-02 15:04:05"))
	l.logger.Print(header)
}

// Log writes a single formatted entry at the given level.
func (l *Logger) Log(level Level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	message := fmt.Sprintf(format, args...)
	l.logger.Println(fmt.Sprintf("[%s] [%s] %s", timestamp, level, message))
}

func (l *Logger) Info(format string, args ...interface{})    { l.Log(LevelInfo, format, args...) }
func (l *Logger) Warning(format string, args ...interface{}) { l.Log(LevelWarning, format, args...) }
func (l *Logger) Error(format string, args ...interface{})   { l.Log(LevelError, format, args...) }
func (l *Logger) Trade(format string, args ...interface{})   { l.Log(LevelTrade, format, args...) }
func (l *Logger) Status(format string, args ...interface{})  { l.Log(LevelStatus, format, args...) }
func (l *Logger) Regime(format string, args ...interface{})  { l.Log(LevelRegime, format, args...) }
func (l *Logger) Risk(format string, args ...interface{})    { l.Log(LevelRisk, format, args...) }

// Debug logs only when debug mode is enabled.
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.debugMode {
		l.Log(LevelDebug, format, args...)
	}
}

// LogError logs an error with a short context prefix.
func (l *Logger) LogError(context string, err error) {
	l.Error("%s: %v", context, err)
}

// LogWarning logs a warning with a short context prefix.
func (l *Logger) LogWarning(component, message string, args ...interface{}) {
	l.Warning("[%s] %s", component, fmt.Sprintf(message, args...))
}

// SetDebugMode toggles debug-level logging.
func (l *Logger) SetDebugMode(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debugMode = enabled
}

// Close flushes a session-end footer and closes the underlying file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.logFile == nil {
		return nil
	}
	footer := fmt.Sprintf(
		"================================================================================\n"+
			"GRID TRADING SESSION ENDED: %s\n"+
			"================================================================================\n",
		time.Now().Format("2006-01-02 15:04:05"))
	l.logger.Print(footer)
	return l.logFile.Close()
}
