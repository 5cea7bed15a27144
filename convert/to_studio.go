package convert

import (
	"fmt"

	"Vista"
	"Vista/dashboard"
)

// Converter maps between the document and studio models. The zero value is
// usable; attach a logger to surface conversion ambiguities.
type Converter struct {
	Log Vista.Logger
}

// ToStudio converts with the zero-value Converter (no ambiguity logging).
func ToStudio(doc *dashboard.Document) (*dashboard.StudioModel, error) {
	return (&Converter{}).ToStudio(doc)
}

// ToDocument converts with the zero-value Converter.
func ToDocument(m *dashboard.StudioModel) *dashboard.Document {
	return (&Converter{}).ToDocument(m)
}

// ToStudio lowers a document into the flat studio model. Synthetic ids are
// deterministic: explicit search ids keep their name under the ds_ prefix,
// everything else draws from a per-kind counter. Layout is an absolute
// grid: inputs first, then rows stacked vertically with panels dividing the
// row width evenly.
func (c *Converter) ToStudio(doc *dashboard.Document) (*dashboard.StudioModel, error) {
	m := &dashboard.StudioModel{
		Title:          doc.Title,
		Description:    doc.Description,
		DataSources:    make(map[string]*dashboard.DataSourceDef),
		Visualizations: make(map[string]*dashboard.VisualizationDef),
		Inputs:         make(map[string]*dashboard.InputDef),
		Layout:         dashboard.Layout{Type: "absolute"},
	}

	dsIDs := newIDAllocator(dataSourcePrefix)
	vizIDs := newIDAllocator(visualizationPrefix)
	inputIDs := newIDAllocator(inputPrefix)

	// Reserve explicit search ids up front so a synthetic counter id can
	// never collide with one, and so chains can point at them.
	explicit := make(map[string]string)
	for _, row := range doc.Rows {
		for _, panel := range row.Panels {
			if s := panel.Search; s != nil && s.ID != "" {
				explicit[s.ID] = dsIDs.reserve(s.ID)
			}
		}
	}

	// Inputs precede all rows in the layout.
	inputCount := 0
	for _, fs := range doc.Fieldsets {
		for _, in := range fs.Inputs {
			id := inputIDs.reserve(in.Token)
			m.Inputs[id] = inputToStudio(in)
			m.Layout.Items = append(m.Layout.Items, dashboard.LayoutItem{
				Item: id,
				Type: dashboard.LayoutItemInput,
				Position: dashboard.Position{
					X: inputCount * InputWidth,
					Y: 0,
					W: InputWidth,
					H: InputHeight,
				},
			})
			inputCount++
		}
	}
	yOffset := 0
	if inputCount > 0 {
		yOffset = InputHeight
	}

	for rowIndex, row := range doc.Rows {
		if len(row.Panels) == 0 {
			continue
		}
		width := GridWidth / len(row.Panels)
		for panelIndex, panel := range row.Panels {
			var primary string
			if s := panel.Search; s != nil {
				if err := s.Validate(); err != nil {
					return nil, fmt.Errorf("row %d panel %d: %w", rowIndex, panelIndex, err)
				}
				if s.ID != "" {
					primary = explicit[s.ID]
				} else {
					primary = dsIDs.alloc()
				}
				m.DataSources[primary] = searchToDataSource(s)
			}

			vizID := vizIDs.alloc()
			m.Visualizations[vizID] = c.panelToVisualization(panel, primary)
			m.Layout.Items = append(m.Layout.Items, dashboard.LayoutItem{
				Item: vizID,
				Type: dashboard.LayoutItemBlock,
				Position: dashboard.Position{
					X: panelIndex * width,
					Y: yOffset + rowIndex*RowHeight,
					W: width,
					H: RowHeight,
				},
			})
		}
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func searchToDataSource(s *dashboard.SearchSpec) *dashboard.DataSourceDef {
	def := &dashboard.DataSourceDef{Name: s.ID}
	switch {
	case s.Base != "":
		def.Type = dashboard.DataSourceChain
		def.Options.Extend = dataSourcePrefix + s.Base
	case s.Ref != "":
		def.Type = dashboard.DataSourceSavedSearch
		def.Options.Ref = s.Ref
	default:
		def.Type = dashboard.DataSourceSearch
		def.Options.Query = s.Query
	}
	def.Options.Earliest = s.Earliest
	def.Options.Latest = s.Latest
	def.Options.RefreshInterval = s.Refresh
	return def
}

func (c *Converter) panelToVisualization(panel dashboard.Panel, primary string) *dashboard.VisualizationDef {
	options := make(map[string]string, len(panel.Visualization.Options))
	for k, v := range panel.Visualization.Options {
		options[k] = v
	}
	studioType := c.vizTypeToStudio(panel.Visualization.Kind, options)
	delete(options, chartOptionKey)

	def := &dashboard.VisualizationDef{
		Type:    studioType,
		Title:   panel.Title,
		Options: coerceOptions(options),
	}
	if formats := formatsToContext(panel.Visualization.FormatRules); formats != nil {
		def.Context = map[string]interface{}{contextFormatsKey: formats}
	}
	if primary != "" {
		def.DataSources = map[string]string{"primary": primary}
	}
	return def
}

func inputToStudio(in dashboard.InputSpec) *dashboard.InputDef {
	def := &dashboard.InputDef{
		Type:  "input." + in.Kind,
		Title: in.Label,
		Options: dashboard.InputOptions{
			Token:             in.Token,
			DefaultValue:      in.DefaultValue,
			InitialValue:      in.InitialValue,
			Prefix:            in.Prefix,
			Suffix:            in.Suffix,
			SearchWhenChanged: in.SearchWhenChanged,
		},
	}
	for _, choice := range in.Choices {
		def.Options.Items = append(def.Options.Items, dashboard.ChoiceItem{
			Label: choice.Label,
			Value: choice.Value,
		})
	}
	if in.Search != nil {
		def.Options.Query = in.Search.Query
	}
	return def
}

func (c *Converter) warnf(format string, args ...interface{}) {
	if c.Log != nil {
		c.Log.Warnf(format, args...)
	}
}
