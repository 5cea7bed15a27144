package Vista

import (
	"fmt"
	"strings"
)

// ParseError reports malformed dashboard source. Position fields are
// zero when the underlying decoder could not attribute the failure.
type ParseError struct {
	Format string
	Line   int
	Column int
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("parsing ")
	b.WriteString(e.Format)
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d", e.Line)
		if e.Column > 0 {
			fmt.Fprintf(&b, ", column %d", e.Column)
		}
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// UnsupportedVersionError is returned when a source carries a version
// marker no decode strategy is registered for. The parser never guesses.
type UnsupportedVersionError struct {
	Format  string
	Version string
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported %s version %q", e.Format, e.Version)
}

// BuildError aborts an entity-graph rebuild. The previously persisted graph
// is left untouched whenever a BuildError is returned.
type BuildError struct {
	Dashboard string
	Reason    string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("building dashboard %q: %s", e.Dashboard, e.Reason)
}

// DispatchErrorKind classifies why a search dispatch failed.
type DispatchErrorKind string

const (
	KindDispatch DispatchErrorKind = "dispatch"
	KindTimeout  DispatchErrorKind = "timeout"
	KindBackend  DispatchErrorKind = "backend"
)

// DispatchError surfaces as a failed execution, never as a fault that
// escapes the tracker.
type DispatchError struct {
	Kind DispatchErrorKind
	Msg  string
	Err  error
}

func (e *DispatchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}
