// Package logger is a leveled wrapper over the standard log package. Messages
// below the configured level are dropped.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// ParseLevel maps a level name to a Level, defaulting to InfoLevel.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

var std = New(os.Stderr, InfoLevel, "text")

// Logger writes leveled, printf style messages.
type Logger struct {
	level Level
	out   *log.Logger
}

// New creates a Logger. The "text" format adds the caller's file and line to
// every message.
func New(w io.Writer, level Level, format string) *Logger {
	flags := log.LstdFlags | log.Lmicroseconds
	if strings.ToLower(format) == "text" {
		flags |= log.Lshortfile
	}
	return &Logger{level: level, out: log.New(w, "", flags)}
}

// Init replaces the package logger.
func Init(level, format string) {
	std = New(os.Stderr, ParseLevel(level), format)
}

// Default returns the package logger.
func Default() *Logger {
	return std
}

func (l *Logger) logf(depth int, level Level, format string, args ...interface{}) {
	if l == nil || level < l.level {
		return
	}
	_ = l.out.Output(depth+1, fmt.Sprintf("["+level.String()+"] "+format, args...))
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.logf(2, DebugLevel, format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.logf(2, InfoLevel, format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.logf(2, WarnLevel, format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.logf(2, ErrorLevel, format, args...) }

func Debugf(format string, args ...interface{}) { std.logf(2, DebugLevel, format, args...) }
func Infof(format string, args ...interface{})  { std.logf(2, InfoLevel, format, args...) }
func Warnf(format string, args ...interface{})  { std.logf(2, WarnLevel, format, args...) }
func Errorf(format string, args ...interface{}) { std.logf(2, ErrorLevel, format, args...) }

// Fatalf logs regardless of level and exits.
func Fatalf(format string, args ...interface{}) {
	_ = std.out.Output(2, fmt.Sprintf("[FATAL] "+format, args...))
	os.Exit(1)
}
