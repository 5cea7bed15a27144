package convert

import (
	"sort"
	"strings"

	"Vista/dashboard"
	"Vista/token"
)

// ToDocument raises a studio model back into the row/panel document model.
// Layout items are grouped into synthetic rows by vertical position and
// ordered within a row by horizontal position; two items sharing a Y
// position tie-break on X, then on item id, so the grouping is stable
// across passes. Studio-only layout kinds and options with no document
// equivalent are dropped, never an error.
func (c *Converter) ToDocument(m *dashboard.StudioModel) *dashboard.Document {
	doc := &dashboard.Document{
		Title:       m.Title,
		Description: m.Description,
	}

	var inputs, blocks []dashboard.LayoutItem
	for _, item := range m.Layout.Items {
		switch item.Type {
		case dashboard.LayoutItemInput:
			inputs = append(inputs, item)
		case dashboard.LayoutItemBlock:
			blocks = append(blocks, item)
		default:
			c.warnf("dropping layout item %q with unrepresentable kind %q", item.Item, item.Type)
		}
	}
	sortItems(inputs)
	sortItems(blocks)

	if fieldset, ok := c.inputsToFieldset(m, inputs); ok {
		doc.Fieldsets = append(doc.Fieldsets, fieldset)
	}

	var currentY int
	var row *dashboard.Row
	for _, item := range blocks {
		viz, ok := m.Visualizations[item.Item]
		if !ok {
			c.warnf("dropping layout item %q: no such visualization", item.Item)
			continue
		}
		if row == nil || item.Position.Y != currentY {
			doc.Rows = append(doc.Rows, dashboard.Row{})
			row = &doc.Rows[len(doc.Rows)-1]
			currentY = item.Position.Y
		}
		row.Panels = append(row.Panels, c.visualizationToPanel(m, item.Item, viz))
	}

	return doc
}

func (c *Converter) visualizationToPanel(m *dashboard.StudioModel, id string, viz *dashboard.VisualizationDef) dashboard.Panel {
	kind, chartFlavor := vizTypeToDocument(viz.Type)
	options := stringifyOptions(viz.Options)
	if chartFlavor != "" {
		options[chartOptionKey] = chartFlavor
	}

	panel := dashboard.Panel{
		Title: viz.Title,
		Visualization: dashboard.VisualizationSpec{
			Kind:        kind,
			Options:     options,
			FormatRules: contextToFormats(viz.Context),
		},
	}

	if primary := viz.PrimaryDataSource(); primary != "" {
		if ds, ok := m.DataSources[primary]; ok {
			spec := c.dataSourceToSearch(primary, ds)
			panel.Search = &spec
		} else {
			c.warnf("visualization %q: dropping dangling data source reference %q", id, primary)
		}
	}
	return panel
}

func (c *Converter) dataSourceToSearch(id string, ds *dashboard.DataSourceDef) dashboard.SearchSpec {
	spec := dashboard.SearchSpec{
		ID:       stripPrefix(id, dataSourcePrefix),
		Earliest: ds.Options.Earliest,
		Latest:   ds.Options.Latest,
		Refresh:  ds.Options.RefreshInterval,
	}
	switch ds.Type {
	case dashboard.DataSourceChain:
		spec.Base = stripPrefix(ds.Options.Extend, dataSourcePrefix)
		if ds.Options.Query != "" {
			c.warnf("data source %q: dropping inline query on a chained search", id)
		}
	case dashboard.DataSourceSavedSearch:
		spec.Ref = ds.Options.Ref
	default:
		spec.Query = ds.Options.Query
	}
	spec.Tokens = token.ExtractReferences(spec.Query)
	return spec
}

func (c *Converter) inputsToFieldset(m *dashboard.StudioModel, placed []dashboard.LayoutItem) (dashboard.Fieldset, bool) {
	ids := make([]string, 0, len(m.Inputs))
	seen := make(map[string]bool)
	for _, item := range placed {
		if _, ok := m.Inputs[item.Item]; ok && !seen[item.Item] {
			ids = append(ids, item.Item)
			seen[item.Item] = true
		}
	}
	// Inputs defined but absent from the layout still belong to the
	// fieldset; they follow the placed ones in id order.
	unplaced := make([]string, 0)
	for id := range m.Inputs {
		if !seen[id] {
			unplaced = append(unplaced, id)
		}
	}
	sort.Strings(unplaced)
	ids = append(ids, unplaced...)

	if len(ids) == 0 {
		return dashboard.Fieldset{}, false
	}

	// The studio model carries no submit-button notion; the document
	// default of no submit button keeps searches running on load and on
	// token change.
	fieldset := dashboard.Fieldset{SubmitOnEnter: false, AutoRun: false}
	for _, id := range ids {
		def := m.Inputs[id]
		in := dashboard.InputSpec{
			Kind:              strings.TrimPrefix(def.Type, "input."),
			Token:             def.Options.Token,
			Label:             def.Title,
			DefaultValue:      def.Options.DefaultValue,
			InitialValue:      def.Options.InitialValue,
			Prefix:            def.Options.Prefix,
			Suffix:            def.Options.Suffix,
			SearchWhenChanged: def.Options.SearchWhenChanged,
		}
		for _, item := range def.Options.Items {
			in.Choices = append(in.Choices, dashboard.Choice{Value: item.Value, Label: item.Label})
		}
		if def.Options.Query != "" {
			in.Search = &dashboard.SearchSpec{
				Query:  def.Options.Query,
				Tokens: token.ExtractReferences(def.Options.Query),
			}
		}
		fieldset.Inputs = append(fieldset.Inputs, in)
	}
	return fieldset, true
}

// sortItems orders layout items by Y, then X, then item id. This is the
// documented tie-break for items sharing a vertical position.
func sortItems(items []dashboard.LayoutItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Position.Y != b.Position.Y {
			return a.Position.Y < b.Position.Y
		}
		if a.Position.X != b.Position.X {
			return a.Position.X < b.Position.X
		}
		return a.Item < b.Item
	})
}
