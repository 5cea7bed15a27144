package logger

import (
	"fmt"
	"sync"

	"Vista"
)

// logger implements Vista.Logger for one named component. The prefix is
// fixed at creation, attributes accumulate over the component's lifetime.
type logger struct {
	prefix string

	mu         sync.Mutex
	attributes map[string]interface{}
}

// New creates a component logger. Category and name form the prefix, the
// optional alias distinguishes multiple instances of the same component.
func New(category, name, alias string) Vista.Logger {
	prefix := category
	if name != "" {
		if prefix != "" {
			prefix += "."
		}
		prefix += name
	}
	if alias != "" {
		prefix += "::" + alias
	}
	if prefix != "" {
		prefix = "[" + prefix + "] "
	}
	return &logger{prefix: prefix}
}

func (l *logger) Level() Vista.LogLevel {
	return rootLevel()
}

func (l *logger) AddAttribute(key string, value interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.attributes == nil {
		l.attributes = make(map[string]interface{})
	}
	l.attributes[key] = value
}

func (l *logger) snapshot() map[string]interface{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.attributes) == 0 {
		return nil
	}
	attributes := make(map[string]interface{}, len(l.attributes))
	for k, v := range l.attributes {
		attributes[k] = v
	}
	return attributes
}

func (l *logger) print(level Vista.LogLevel, args ...interface{}) {
	emit(level, l.prefix, l.snapshot(), args...)
}

func (l *logger) printf(level Vista.LogLevel, format string, args ...interface{}) {
	emit(level, l.prefix, l.snapshot(), fmt.Sprintf(format, args...))
}

func (l *logger) Errorf(format string, args ...interface{}) { l.printf(Vista.Error, format, args...) }
func (l *logger) Error(args ...interface{})                 { l.print(Vista.Error, args...) }
func (l *logger) Warnf(format string, args ...interface{})  { l.printf(Vista.Warn, format, args...) }
func (l *logger) Warn(args ...interface{})                  { l.print(Vista.Warn, args...) }
func (l *logger) Infof(format string, args ...interface{})  { l.printf(Vista.Info, format, args...) }
func (l *logger) Info(args ...interface{})                  { l.print(Vista.Info, args...) }
func (l *logger) Debugf(format string, args ...interface{}) { l.printf(Vista.Debug, format, args...) }
func (l *logger) Debug(args ...interface{})                 { l.print(Vista.Debug, args...) }
