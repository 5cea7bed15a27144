package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"Vista"
)

// textSink writes the classic one-line plain-text format:
//
//	2006-01-02T15:04:05Z I! [category.name] message (key=value)
type textSink struct {
	logger *log.Logger
	file   io.Closer
}

var levelColors = map[Vista.LogLevel]*color.Color{
	Vista.Error: color.New(color.FgRed),
	Vista.Warn:  color.New(color.FgYellow),
	Vista.Info:  color.New(color.FgWhite),
	Vista.Debug: color.New(color.FgHiBlack),
}

func (s *textSink) Print(level Vista.LogLevel, ts time.Time, prefix string, attributes map[string]interface{}, args ...interface{}) {
	indicator := level.Indicator()
	if c, ok := levelColors[level]; ok {
		indicator = c.Sprint(indicator)
	}

	var suffix string
	if len(attributes) > 0 {
		keys := make([]string, 0, len(attributes))
		for k := range attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s=%v", k, attributes[k]))
		}
		suffix = " (" + strings.Join(pairs, ",") + ")"
	}

	s.logger.Print(ts.UTC().Format(time.RFC3339), " ", indicator, " ", prefix, fmt.Sprint(args...), suffix)
}

func (s *textSink) Close() error {
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

func createTextSink(cfg *Config) (sink, error) {
	writer := io.Writer(os.Stderr)
	var file io.Closer
	if cfg.Logfile != "" {
		f, err := os.OpenFile(cfg.Logfile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		writer = f
		file = f
		// Colors make no sense in a file.
		color.NoColor = true
	}
	return &textSink{
		logger: log.New(writer, "", 0),
		file:   file,
	}, nil
}

var defaultOnce sync.Once
var fallback sink

// defaultSink serves loggers used before Setup ran, e.g. in tests.
func defaultSink() sink {
	defaultOnce.Do(func() {
		fallback = &textSink{logger: log.New(os.Stderr, "", 0)}
	})
	return fallback
}

func init() {
	add("stderr", createTextSink)
}
