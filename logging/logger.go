/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package logging is the structured logger used across docstore.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	globalLogger   Logger
	globalLoggerMu sync.RWMutex
)

type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "DEBUG"
	}
}

// ParseLevel maps a case-insensitive level name. Unknown names map to info.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return LogLevelDebug
	case "warn", "warning":
		return LogLevelWarn
	case "error", "fatal":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// Logger takes a message and alternating key/value fields.
type Logger interface {
	SetLevel(LogLevel)
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// InitLogger installs log as the process-wide logger. The first call wins.
func InitLogger(log Logger) {
	if log == nil {
		return
	}
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()
	if globalLogger == nil {
		globalLogger = log
	}
}

// GetLogger returns the process-wide logger, creating a default one on first
// use.
func GetLogger() Logger {
	globalLoggerMu.RLock()
	l := globalLogger
	globalLoggerMu.RUnlock()
	if l != nil {
		return l
	}

	dl := New(os.Stderr, "text", LogLevelInfo)
	globalLoggerMu.Lock()
	if globalLogger == nil {
		globalLogger = dl
	}
	l = globalLogger
	globalLoggerMu.Unlock()
	return l
}

// DefaultLogger writes through logrus with structured fields.
type DefaultLogger struct {
	logger *logrus.Logger
	base   logrus.Fields
}

// New builds a DefaultLogger writing to w. format is "json" or "text".
func New(w io.Writer, format string, level LogLevel) *DefaultLogger {
	l := logrus.New()
	l.SetOutput(w)
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	}
	dl := &DefaultLogger{logger: l, base: logrus.Fields{"component": "docstore"}}
	dl.SetLevel(level)
	return dl
}

// With returns a logger that adds fields to every entry.
func (l *DefaultLogger) With(fields ...interface{}) *DefaultLogger {
	merged := make(logrus.Fields, len(l.base)+len(fields)/2)
	for k, v := range l.base {
		merged[k] = v
	}
	for k, v := range toFields(fields) {
		merged[k] = v
	}
	return &DefaultLogger{logger: l.logger, base: merged}
}

func (l *DefaultLogger) Debug(msg string, fields ...interface{}) {
	l.entry(fields).Debug(msg)
}

func (l *DefaultLogger) Info(msg string, fields ...interface{}) {
	l.entry(fields).Info(msg)
}

func (l *DefaultLogger) Warn(msg string, fields ...interface{}) {
	l.entry(fields).Warn(msg)
}

func (l *DefaultLogger) Error(msg string, fields ...interface{}) {
	l.entry(fields).Error(msg)
}

func (l *DefaultLogger) SetLevel(level LogLevel) {
	switch level {
	case LogLevelDebug:
		l.logger.SetLevel(logrus.DebugLevel)
	case LogLevelWarn:
		l.logger.SetLevel(logrus.WarnLevel)
	case LogLevelError:
		l.logger.SetLevel(logrus.ErrorLevel)
	default:
		l.logger.SetLevel(logrus.InfoLevel)
	}
}

func (l *DefaultLogger) entry(fields []interface{}) *logrus.Entry {
	e := l.logger.WithFields(l.base)
	if len(fields) > 0 {
		e = e.WithFields(toFields(fields))
	}
	return e
}

func toFields(fields []interface{}) logrus.Fields {
	out := make(logrus.Fields, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		out[fmt.Sprint(fields[i])] = fields[i+1]
	}
	if len(fields)%2 == 1 {
		out["_extra"] = fields[len(fields)-1]
	}
	return out
}

// Nop discards everything.
type Nop struct{}

func (Nop) SetLevel(LogLevel)             {}
func (Nop) Debug(string, ...interface{}) {}
func (Nop) Info(string, ...interface{})  {}
func (Nop) Warn(string, ...interface{})  {}
func (Nop) Error(string, ...interface{}) {}
