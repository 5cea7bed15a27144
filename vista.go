package Vista

import (
	"Vista/dashboard"
)

// DashboardParser decodes raw dashboard source text into the shared
// intermediate document model. Implementations are registered in
// plugins/parsers and selected by format name. Version handling stays
// inside the parser: an unknown version is an error, never a guess.
type DashboardParser interface {
	// Parse decodes source text into a Document. Malformed input returns
	// a *ParseError; an unrecognized version marker returns a
	// *UnsupportedVersionError.
	Parse(src []byte) (*dashboard.Document, error)
}

// Initializer is implemented by plugins that need setup before first use.
type Initializer interface {
	Init() error
}

// PluginWithID is implemented by plugins carrying their own stable identifier.
type PluginWithID interface {
	ID() string
}
