package log

import (
	"time"
)

// Timer logs one entry when an operation finishes. Successes are logged at
// debug level, failures at warn unless WithFailureLevel says otherwise.
type Timer struct {
	logger       *Logger
	operation    string
	start        time.Time
	fields       Fields
	failureLevel Level
	stopped      bool
}

// NewTimer creates a new timer for the given operation
func NewTimer(logger *Logger, operation string) *Timer {
	return &Timer{
		logger:       logger,
		operation:    operation,
		start:        time.Now(),
		fields:       Fields{"operation": operation},
		failureLevel: LevelWarn,
	}
}

// WithField adds a field to the completion entry
func (t *Timer) WithField(key string, value interface{}) *Timer {
	t.fields[key] = value
	return t
}

// WithTraceField adds a field only when the logger writes trace entries.
// Bulky values such as the parsed input stay out of normal logs.
func (t *Timer) WithTraceField(key string, value interface{}) *Timer {
	if t.logger != nil && t.logger.Enabled(LevelTrace) {
		t.fields[key] = value
	}
	return t
}

// WithFailureLevel sets the level used by StopWithError. Failures caused by
// the caller's input are usually not worth a warning.
func (t *Timer) WithFailureLevel(level Level) *Timer {
	t.failureLevel = level
	return t
}

// Elapsed returns the time since the timer was started
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// Stop logs the completion and returns the elapsed time. Only the first
// Stop or StopWithError logs; later calls return 0.
func (t *Timer) Stop() time.Duration {
	return t.finish(LevelDebug, "completed", nil)
}

// StopWithError logs the failure and returns the elapsed time
func (t *Timer) StopWithError(err error) time.Duration {
	return t.finish(t.failureLevel, "failed", err)
}

func (t *Timer) finish(level Level, outcome string, err error) time.Duration {
	if t.stopped {
		return 0
	}
	t.stopped = true
	elapsed := t.Elapsed()

	if t.logger != nil {
		t.logger.write(level, t.operation+" "+outcome, err, elapsed, t.fields)
	}
	return elapsed
}
