// Package logging provides the process-wide leveled logger.
//
// Calls accept three shapes:
//
//	logging.Info("started")                        // plain
//	logging.Info("probe took %dms", 42)            // printf
//	logging.Info("probe done", "endpoint", url)    // key/value
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	mu     sync.RWMutex
	logger = newLogger(os.Stderr, log.InfoLevel)
)

func newLogger(w io.Writer, level log.Level) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "2006-01-02 15:04:05",
	})
	l.SetLevel(level)
	return l
}

// Init replaces the global logger. level is one of debug, info, warn, error.
func Init(w io.Writer, level string) {
	mu.Lock()
	defer mu.Unlock()
	logger = newLogger(w, ParseLevel(level))
}

// ParseLevel maps a config string to a log level, defaulting to info.
func ParseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "trace":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// hasFmtVerb checks if a string contains printf-style format verbs
func hasFmtVerb(s string) bool {
	for i := 0; i < len(s)-1; i++ {
		if s[i] == '%' {
			next := s[i+1]
			if next != '%' && strings.ContainsRune("vsdtfgeopqxXbcUT+#", rune(next)) {
				return true
			}
		}
	}
	return false
}

func logMsg(level log.Level, msg string, args ...interface{}) {
	mu.RLock()
	l := logger
	mu.RUnlock()

	var keyvals []interface{}
	if len(args) > 0 {
		if hasFmtVerb(msg) {
			msg = fmt.Sprintf(msg, args...)
		} else {
			keyvals = args
		}
	}

	switch level {
	case log.DebugLevel:
		l.Debug(msg, keyvals...)
	case log.InfoLevel:
		l.Info(msg, keyvals...)
	case log.WarnLevel:
		l.Warn(msg, keyvals...)
	case log.ErrorLevel:
		l.Error(msg, keyvals...)
	case log.FatalLevel:
		l.Fatal(msg, keyvals...)
	}
}

func Debug(msg string, args ...interface{}) { logMsg(log.DebugLevel, msg, args...) }

func Info(msg string, args ...interface{}) { logMsg(log.InfoLevel, msg, args...) }

func Warn(msg string, args ...interface{}) { logMsg(log.WarnLevel, msg, args...) }

func Error(msg string, args ...interface{}) { logMsg(log.ErrorLevel, msg, args...) }

// Fatal logs and exits the process.
func Fatal(msg string, args ...interface{}) { logMsg(log.FatalLevel, msg, args...) }
