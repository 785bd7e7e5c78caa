// ============================================================================
// condparse - MSBuild-style condition expression parser
// ============================================================================
//
// Package:     logging
// Description: Logger factory and key/value logging layer
// Created:     2026-10-18
// License:     MIT
// ============================================================================

package logging

import (
	cplog "github.com/msto63/condparse/pkg/core/log"
)

// Logger wraps the structured logger with key/value logging methods.
// Keys must be strings; a trailing key without a value is dropped.
type Logger struct {
	*cplog.Logger
	name string
}

// Wrap adapts an existing structured logger
func Wrap(logger *cplog.Logger) *Logger {
	return &Logger{Logger: logger, name: logger.Name()}
}

// WithLevel returns a copy filtering below the named level. Unknown names
// leave the level unchanged.
func (l *Logger) WithLevel(name string) *Logger {
	level, err := cplog.ParseLevel(name)
	if err != nil {
		return l
	}
	return &Logger{Logger: l.Logger.WithLevel(level), name: l.name}
}

// WithRequestID returns a copy that tags every entry with id
func (l *Logger) WithRequestID(id string) *Logger {
	return &Logger{Logger: l.Logger.WithRequestID(id), name: l.name}
}

// With returns a copy carrying the given key/value pairs on every entry
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{Logger: l.Logger.WithFields(toFields(keysAndValues...)), name: l.name}
}

// Log logs at a level chosen at runtime
func (l *Logger) Log(level cplog.Level, msg string, keysAndValues ...interface{}) {
	fields := toFields(keysAndValues...)
	switch {
	case level >= cplog.LevelError:
		l.Logger.Error(msg, fields)
	case level == cplog.LevelWarn:
		l.Logger.Warn(msg, fields)
	case level == cplog.LevelInfo:
		l.Logger.Info(msg, fields)
	case level == cplog.LevelDebug:
		l.Logger.Debug(msg, fields)
	default:
		l.Logger.Trace(msg, fields)
	}
}

// Debug logs a debug message with key/value pairs
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.Logger.Debug(msg, toFields(keysAndValues...))
}

// Info logs an info message with key/value pairs
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.Logger.Info(msg, toFields(keysAndValues...))
}

// Warn logs a warning with key/value pairs
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.Logger.Warn(msg, toFields(keysAndValues...))
}

// Error logs an error message with key/value pairs
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.Logger.Error(msg, toFields(keysAndValues...))
}

func toFields(keysAndValues ...interface{}) cplog.Fields {
	if len(keysAndValues) == 0 {
		return nil
	}

	fields := make(cplog.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields[key] = keysAndValues[i+1]
	}
	return fields
}
