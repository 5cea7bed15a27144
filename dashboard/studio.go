package dashboard

import (
	"fmt"
	"sort"
)

// Data source types used in the studio model.
const (
	DataSourceSearch      = "ds.search"
	DataSourceChain       = "ds.chain"
	DataSourceSavedSearch = "ds.savedSearch"
)

// Layout item types.
const (
	LayoutItemBlock = "block"
	LayoutItemInput = "input"
)

// StudioModel is the flat, ID-indexed intermediate representation: every
// data source, visualization and input lives in a map and the layout wires
// them together by id.
type StudioModel struct {
	Title          string                       `json:"title"`
	Description    string                       `json:"description,omitempty"`
	DataSources    map[string]*DataSourceDef    `json:"dataSources"`
	Visualizations map[string]*VisualizationDef `json:"visualizations"`
	Inputs         map[string]*InputDef         `json:"inputs"`
	Layout         Layout                       `json:"layout"`
}

type DataSourceDef struct {
	Type    string             `json:"type"`
	Name    string             `json:"name,omitempty"`
	Options DataSourceOptions  `json:"options"`
	Extra   map[string]any     `json:"-"`
}

// DataSourceOptions carries the typed option set understood by the search
// layer; unknown keys survive in Extra on the owning definition.
type DataSourceOptions struct {
	Query           string `json:"query,omitempty"`
	Extend          string `json:"extend,omitempty"`
	Ref             string `json:"ref,omitempty"`
	Earliest        string `json:"earliest,omitempty"`
	Latest          string `json:"latest,omitempty"`
	RefreshInterval string `json:"refresh,omitempty"`
}

type VisualizationDef struct {
	Type        string            `json:"type"`
	Title       string            `json:"title,omitempty"`
	Options     map[string]any    `json:"options,omitempty"`
	Context     map[string]any    `json:"context,omitempty"`
	DataSources map[string]string `json:"dataSources,omitempty"`
}

// PrimaryDataSource returns the id of the primary data source, or "".
func (v *VisualizationDef) PrimaryDataSource() string {
	return v.DataSources["primary"]
}

type InputDef struct {
	Type    string       `json:"type"`
	Title   string       `json:"title,omitempty"`
	Options InputOptions `json:"options"`
	Extra   map[string]any `json:"-"`
}

type InputOptions struct {
	Token             string       `json:"token"`
	DefaultValue      string       `json:"defaultValue,omitempty"`
	InitialValue      string       `json:"initialValue,omitempty"`
	Prefix            string       `json:"prefix,omitempty"`
	Suffix            string       `json:"suffix,omitempty"`
	Items             []ChoiceItem `json:"items,omitempty"`
	SearchWhenChanged bool         `json:"searchWhenChanged,omitempty"`
	Query             string       `json:"query,omitempty"`
}

type ChoiceItem struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type Layout struct {
	Type  string       `json:"type"`
	Items []LayoutItem `json:"structure"`
}

type LayoutItem struct {
	Item     string   `json:"item"`
	Type     string   `json:"type"`
	Position Position `json:"position"`
}

type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Validate checks the referential invariants of the flat model: every
// visualization's primary data source must resolve in DataSources and every
// layout item must resolve in Visualizations or Inputs.
func (m *StudioModel) Validate() error {
	for _, id := range sortedKeys(m.Visualizations) {
		viz := m.Visualizations[id]
		if primary := viz.PrimaryDataSource(); primary != "" {
			if _, ok := m.DataSources[primary]; !ok {
				return fmt.Errorf("visualization %q references unknown data source %q", id, primary)
			}
		}
	}
	for _, item := range m.Layout.Items {
		_, isViz := m.Visualizations[item.Item]
		_, isInput := m.Inputs[item.Item]
		if !isViz && !isInput {
			return fmt.Errorf("layout item %q resolves to neither a visualization nor an input", item.Item)
		}
	}
	for id, ds := range m.DataSources {
		if ds.Options.Extend != "" {
			if _, ok := m.DataSources[ds.Options.Extend]; !ok {
				return fmt.Errorf("data source %q extends unknown data source %q", id, ds.Options.Extend)
			}
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
