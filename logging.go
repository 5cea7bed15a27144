package Vista

// LogLevel denotes the level for a given log message. Levels are ordered,
// a logger set to a level emits that level and everything above it.
type LogLevel int

const (
	None LogLevel = iota
	Error
	Warn
	Info
	Debug
)

func (e LogLevel) String() string {
	switch e {
	case Error:
		return "ERROR"
	case Warn:
		return "WARN"
	case Info:
		return "INFO"
	case Debug:
		return "DEBUG"
	}
	return "NONE"
}

// Indicator returns the short level marker used in plain-text output.
func (e LogLevel) Indicator() string {
	switch e {
	case Error:
		return "E!"
	case Warn:
		return "W!"
	case Info:
		return "I!"
	case Debug:
		return "D!"
	}
	return "U!"
}

func (e LogLevel) Includes(level LogLevel) bool {
	return e >= level
}

// Logger defines an plugin-related interface for logging.
type Logger interface {
	// Level returns the log-level of the logger
	Level() LogLevel

	// AddAttribute allows to add a key-value attribute to the logging output
	AddAttribute(key string, value interface{})

	// Errorf logs an error message, patterned after log.Printf.
	Errorf(format string, args ...interface{})
	// Error logs an error message, patterned after log.Print.
	Error(args ...interface{})
	// Warnf logs a warning message, patterned after log.Printf.
	Warnf(format string, args ...interface{})
	// Warn logs a warning message, patterned after log.Print.
	Warn(args ...interface{})
	// Infof logs an information message, patterned after log.Printf.
	Infof(format string, args ...interface{})
	// Info logs an information message, patterned after log.Print.
	Info(args ...interface{})
	// Debugf logs a debug message, patterned after log.Printf.
	Debugf(format string, args ...interface{})
	// Debug logs a debug message, patterned after log.Print.
	Debug(args ...interface{})
}
