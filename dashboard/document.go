package dashboard

import "errors"

// Document is the markup-oriented intermediate representation of a
// dashboard: rows of panels plus input fieldsets. Both parsers produce it
// and the converter consumes it, so it stays format-agnostic.
type Document struct {
	Title       string
	Description string
	Rows        []Row
	Fieldsets   []Fieldset

	// Extra holds root-level attributes of the source that have no
	// dedicated field (theme, refresh display flags and the like) so a
	// later re-serialization can carry them along.
	Extra map[string]string
}

type Row struct {
	Panels []Panel
}

type Panel struct {
	Title         string
	Visualization VisualizationSpec
	Search        *SearchSpec

	// Extra keeps unknown panel-level child elements (name -> text
	// content) for best-effort round-tripping.
	Extra map[string]string
}

// VisualizationSpec describes how a panel renders. Options are kept as
// strings on the document side; the converter coerces them.
type VisualizationSpec struct {
	Kind        string
	Options     map[string]string
	FormatRules []FormatRule
}

// FormatRule is one per-field formatting rule flattened out of the markup
// "format" sub-elements.
type FormatRule struct {
	Field   string
	Type    string // "color" or "number"
	Palette PaletteSpec
	Scale   ScaleSpec
	Options map[string]string
}

type PaletteSpec struct {
	Type     string // "list", "minMidMax" or "map"
	Colors   []string
	MinColor string
	MidColor string
	MaxColor string
	Lookup   map[string]string
}

type ScaleSpec struct {
	Type   string
	Values []float64
}

// SearchSpec describes the query feeding a panel or populating an input.
// Exactly one of Query, Base and Ref is set: an inline query, a chained
// post-processing search or a saved-search reference.
type SearchSpec struct {
	Query    string
	Earliest string
	Latest   string
	Refresh  string
	ID       string
	Base     string
	Ref      string

	// Tokens is the set of $name$ references found in the query text,
	// extracted at parse time without resolution.
	Tokens []string
}

// ErrSearchShape is wrapped by Validate when the one-of invariant fails.
var ErrSearchShape = errors.New("search requires exactly one of inline query, base or ref")

// Validate enforces the one-of invariant on the search shape.
func (s *SearchSpec) Validate() error {
	n := 0
	if s.Query != "" {
		n++
	}
	if s.Base != "" {
		n++
	}
	if s.Ref != "" {
		n++
	}
	if n != 1 {
		return ErrSearchShape
	}
	return nil
}

// Fieldset groups the inputs of a dashboard together with the submission
// behavior that drives the auto-run decision rule.
type Fieldset struct {
	SubmitOnEnter bool
	AutoRun       bool
	Inputs        []InputSpec
}

type InputSpec struct {
	Kind              string
	Token             string
	Label             string
	DefaultValue      string
	InitialValue      string
	Prefix            string
	Suffix            string
	Choices           []Choice
	ChangeHandler     string
	SearchWhenChanged bool

	// Search optionally populates the input's choices dynamically.
	Search *SearchSpec
}

type Choice struct {
	Value string
	Label string
}
