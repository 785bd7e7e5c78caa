package logging

import (
	"io"
	"os"
	"sync"

	cplog "github.com/msto63/condparse/pkg/core/log"
)

// LoggerConfig holds configuration for creating loggers
type LoggerConfig struct {
	// Component name
	ServiceName string

	// Log level (trace, debug, info, warn, error, fatal)
	Level string

	// Output format: json, text or console (default: json)
	Format string

	// Output writer (default: stderr, so stdout stays free for results)
	Output io.Writer

	// Additional outputs
	AdditionalOutputs []io.Writer
}

// DefaultLoggerConfig returns a default configuration
func DefaultLoggerConfig(serviceName string) LoggerConfig {
	return LoggerConfig{
		ServiceName: serviceName,
		Level:       "info",
		Format:      "json",
	}
}

var (
	baseMu   sync.RWMutex
	baseConf = DefaultLoggerConfig("condparse")
)

// Configure sets the configuration used by New for compatibility loggers
func Configure(cfg LoggerConfig) {
	baseMu.Lock()
	defer baseMu.Unlock()
	baseConf = cfg
}

// NewLogger creates a structured logger from string based configuration.
// Unknown levels fall back to info, unknown formats to json.
func NewLogger(cfg LoggerConfig) *cplog.Logger {
	level, err := cplog.ParseLevel(cfg.Level)
	if err != nil {
		level = cplog.LevelInfo
	}
	format, err := cplog.ParseFormat(cfg.Format)
	if err != nil {
		format = cplog.FormatJSON
	}

	var output io.Writer = os.Stderr
	if cfg.Output != nil {
		output = cfg.Output
	}
	if len(cfg.AdditionalOutputs) > 0 {
		writers := append([]io.Writer{output}, cfg.AdditionalOutputs...)
		output = io.MultiWriter(writers...)
	}

	return cplog.NewWithConfig(cplog.Config{
		Level:  level,
		Format: format,
		Output: output,
		Name:   cfg.ServiceName,
	})
}

// NewSimpleLogger creates a logger with the default configuration
func NewSimpleLogger(serviceName string) *cplog.Logger {
	return NewLogger(DefaultLoggerConfig(serviceName))
}

// New creates a key/value logger using the configuration set by Configure
func New(name string) *Logger {
	baseMu.RLock()
	cfg := baseConf
	baseMu.RUnlock()

	cfg.ServiceName = name
	return &Logger{
		Logger: NewLogger(cfg),
		name:   name,
	}
}
