package internal

import (
	"log"
	"os"
)

// LogLevel orders message severities from quietest to noisiest.
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// parseLevel maps a LOG_LEVEL value to a level, defaulting to info. The
// pipeline and adapters log run progress at info; per-file read timings sit
// behind debug.
func parseLevel(s string) LogLevel {
	switch s {
	case "ERROR":
		return LogLevelError
	case "WARN":
		return LogLevelWarn
	case "DEBUG":
		return LogLevelDebug
	default:
		return LogLevelInfo
	}
}

// Logger filters leveled messages onto the standard log output.
type Logger struct {
	level LogLevel
}

// NewLogger returns a logger emitting messages at or below level.
func NewLogger(level LogLevel) *Logger {
	return &Logger{level: level}
}

// NewDefaultLogger reads the level from the LOG_LEVEL environment variable.
func NewDefaultLogger() *Logger {
	return &Logger{level: parseLevel(os.Getenv("LOG_LEVEL"))}
}

func (l *Logger) logf(level LogLevel, tag, format string, args ...interface{}) {
	if l.level >= level {
		log.Printf(tag+format, args...)
	}
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.logf(LogLevelError, "[ERROR] ", format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.logf(LogLevelWarn, "[WARN] ", format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.logf(LogLevelInfo, "[INFO] ", format, args...)
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.logf(LogLevelDebug, "[DEBUG] ", format, args...)
}

// DefaultLogger is the process-wide logger shared by the pipeline, the HTTP
// app, and the file readers.
var DefaultLogger = NewDefaultLogger()
