package logger

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"Vista"
)

// structuredSink emits one JSON object per record via logrus, for setups
// that ship logs into an indexer instead of a terminal.
type structuredSink struct {
	logger *logrus.Logger
	file   io.Closer
}

func (s *structuredSink) Print(level Vista.LogLevel, ts time.Time, prefix string, attributes map[string]interface{}, args ...interface{}) {
	entry := s.logger.WithTime(ts)
	if prefix != "" {
		entry = entry.WithField("component", prefix)
	}
	if len(attributes) > 0 {
		entry = entry.WithFields(logrus.Fields(attributes))
	}

	switch level {
	case Vista.Error:
		entry.Error(args...)
	case Vista.Warn:
		entry.Warn(args...)
	case Vista.Info:
		entry.Info(args...)
	default:
		entry.Debug(args...)
	}
}

func (s *structuredSink) Close() error {
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

func createStructuredSink(cfg *Config) (sink, error) {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	l.SetLevel(logrus.DebugLevel)

	var file io.Closer
	if cfg.Logfile != "" {
		f, err := os.OpenFile(cfg.Logfile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		l.SetOutput(f)
		file = f
	} else {
		l.SetOutput(os.Stderr)
	}
	if cfg.InstanceName != "" {
		l.AddHook(&instanceHook{name: cfg.InstanceName})
	}
	return &structuredSink{logger: l, file: file}, nil
}

type instanceHook struct {
	name string
}

func (h *instanceHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *instanceHook) Fire(entry *logrus.Entry) error {
	entry.Data["instance"] = h.name
	return nil
}

func init() {
	add("structured", createStructuredSink)
}
