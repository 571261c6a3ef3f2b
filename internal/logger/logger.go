// Package logger provides leveled logging for the whole process.
package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// Level represents a logging level.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// ParseLevel maps a config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel
	case "warn":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

type leveledLogger struct {
	level Level
	out   *log.Logger
}

var defaultLogger *leveledLogger

// Init initializes the default logger. Format "text" adds source locations,
// anything else keeps the compact timestamp-only prefix.
func Init(level string, format string) {
	flags := log.LstdFlags | log.Lmicroseconds
	if strings.ToLower(format) == "text" {
		flags |= log.Lshortfile
	}
	defaultLogger = &leveledLogger{
		level: ParseLevel(level),
		out:   log.New(os.Stderr, "", flags),
	}
}

func emit(l Level, tag, format string, args ...interface{}) {
	if defaultLogger == nil || defaultLogger.level > l {
		return
	}
	_ = defaultLogger.out.Output(3, fmt.Sprintf(tag+format, args...))
}

func Debug(format string, args ...interface{}) { emit(DebugLevel, "[DEBUG] ", format, args...) }

func Info(format string, args ...interface{}) { emit(InfoLevel, "[INFO] ", format, args...) }

func Warn(format string, args ...interface{}) { emit(WarnLevel, "[WARN] ", format, args...) }

func Error(format string, args ...interface{}) { emit(ErrorLevel, "[ERROR] ", format, args...) }

// Fatal logs the message and exits the process.
func Fatal(format string, args ...interface{}) {
	msg := fmt.Sprintf("[FATAL] "+format, args...)
	if defaultLogger != nil {
		_ = defaultLogger.out.Output(2, msg)
	} else {
		log.Print(msg)
	}
	os.Exit(1)
}
