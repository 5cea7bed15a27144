// Package logger wires the Vista.Logger interface to a process-wide sink.
// Sinks register themselves by name; Setup picks one from the config and
// every logger created by New fans into it.
package logger

import (
	"fmt"
	"io"
	"sync"
	"time"

	"Vista"
)

// Config selects and parameterizes the process log sink.
type Config struct {
	// Sink names the output backend, e.g. "stderr" or "structured".
	Sink string
	// Level is the process-wide log level.
	Level Vista.LogLevel
	// InstanceName labels log records from this process.
	InstanceName string
	// Logfile redirects output to a file for sinks that support it;
	// empty means standard error.
	Logfile string
}

// sink receives every log record that passed the level filter.
type sink interface {
	Print(level Vista.LogLevel, ts time.Time, prefix string, attributes map[string]interface{}, args ...interface{})
}

type creator func(cfg *Config) (sink, error)

var registry = make(map[string]creator)

func add(name string, creator creator) {
	registry[name] = creator
}

var root = struct {
	mu    sync.RWMutex
	sink  sink
	level Vista.LogLevel
}{
	level: Vista.Info,
}

// Setup installs the configured sink. Calling it is optional; without it
// loggers fall back to the plain stderr sink at info level.
func Setup(cfg *Config) error {
	name := cfg.Sink
	if name == "" {
		name = "stderr"
	}
	create, ok := registry[name]
	if !ok {
		return fmt.Errorf("unknown log sink %q", name)
	}
	s, err := create(cfg)
	if err != nil {
		return fmt.Errorf("creating log sink %q: %w", name, err)
	}

	root.mu.Lock()
	defer root.mu.Unlock()
	if closer, ok := root.sink.(io.Closer); ok {
		closer.Close()
	}
	root.sink = s
	if cfg.Level != Vista.None {
		root.level = cfg.Level
	}
	return nil
}

// CloseLogging releases the active sink if it holds resources.
func CloseLogging() error {
	root.mu.Lock()
	defer root.mu.Unlock()
	var err error
	if closer, ok := root.sink.(io.Closer); ok {
		err = closer.Close()
	}
	root.sink = nil
	return err
}

func emit(level Vista.LogLevel, prefix string, attributes map[string]interface{}, args ...interface{}) {
	root.mu.RLock()
	defer root.mu.RUnlock()
	if !root.level.Includes(level) {
		return
	}
	s := root.sink
	if s == nil {
		s = defaultSink()
	}
	s.Print(level, time.Now(), prefix, attributes, args...)
}

func rootLevel() Vista.LogLevel {
	root.mu.RLock()
	defer root.mu.RUnlock()
	return root.level
}
