// Package logger provides leveled logging on top of the standard library.
package logger

import (
	"fmt"
	"io"
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

func parseLevel(s string) Level {
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

var (
	minLevel Level = InfoLevel
	std            = log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)
)

// Init configures the package-level logger. Format "text" adds source file
// locations; anything else keeps the compact default.
func Init(level string, format string) {
	minLevel = parseLevel(level)
	flags := log.LstdFlags | log.Lmicroseconds
	if strings.ToLower(format) == "text" {
		flags |= log.Lshortfile
	}
	std = log.New(os.Stderr, "", flags)
}

// SetOutput redirects log output, primarily for tests.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

func output(lvl Level, tag, format string, args ...any) {
	if lvl < minLevel {
		return
	}
	_ = std.Output(3, fmt.Sprintf(tag+" "+format, args...))
}

func Debug(format string, args ...any) { output(DebugLevel, "[DEBUG]", format, args...) }
func Info(format string, args ...any)  { output(InfoLevel, "[INFO]", format, args...) }
func Warn(format string, args ...any)  { output(WarnLevel, "[WARN]", format, args...) }
func Error(format string, args ...any) { output(ErrorLevel, "[ERROR]", format, args...) }

// Fatal logs at the highest severity and exits the process.
func Fatal(format string, args ...any) {
	_ = std.Output(2, fmt.Sprintf("[FATAL] "+format, args...))
	os.Exit(1)
}
