package convert

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"Vista/dashboard"
)

func sampleDocument() *dashboard.Document {
	return &dashboard.Document{
		Title:       "Web Traffic",
		Description: "Access log overview",
		Fieldsets: []dashboard.Fieldset{{
			SubmitOnEnter: false,
			AutoRun:       true,
			Inputs: []dashboard.InputSpec{{
				Kind:         "dropdown",
				Token:        "host",
				Label:        "Host",
				DefaultValue: "web01",
				Choices: []dashboard.Choice{
					{Value: "web01", Label: "Web 01"},
					{Value: "web02", Label: "Web 02"},
				},
			}},
		}},
		Rows: []dashboard.Row{
			{Panels: []dashboard.Panel{
				{
					Title: "Requests over time",
					Visualization: dashboard.VisualizationSpec{
						Kind: "chart",
						Options: map[string]string{
							"charting.chart":       "line",
							"charting.axisY.scale": "log",
							"height":               "300",
						},
					},
					Search: &dashboard.SearchSpec{
						ID:       "base",
						Query:    "index=web host=$host$ | timechart count",
						Earliest: "-24h",
						Latest:   "now",
						Tokens:   []string{"host"},
					},
				},
				{
					Title: "Status codes",
					Visualization: dashboard.VisualizationSpec{
						Kind:    "table",
						Options: map[string]string{},
						FormatRules: []dashboard.FormatRule{{
							Field: "count",
							Type:  "color",
							Palette: dashboard.PaletteSpec{
								Type:   "list",
								Colors: []string{"#53A051", "#F8BE34", "#DC4E41"},
							},
							Scale: dashboard.ScaleSpec{Type: "threshold", Values: []float64{30, 70}},
						}},
					},
					Search: &dashboard.SearchSpec{
						Base:   "base",
						Tokens: nil,
					},
				},
			}},
			{Panels: []dashboard.Panel{{
				Title: "Saved errors",
				Visualization: dashboard.VisualizationSpec{
					Kind:    "single",
					Options: map[string]string{"unit": "req/s"},
				},
				Search: &dashboard.SearchSpec{Ref: "Errors last hour"},
			}}},
		},
	}
}

func TestToStudioAssignsDeterministicIDs(t *testing.T) {
	m, err := ToStudio(sampleDocument())
	require.NoError(t, err)

	require.Contains(t, m.DataSources, "ds_base")
	require.Contains(t, m.DataSources, "ds_1")
	require.Contains(t, m.DataSources, "ds_2")
	require.Contains(t, m.Visualizations, "viz_1")
	require.Contains(t, m.Visualizations, "viz_2")
	require.Contains(t, m.Visualizations, "viz_3")
	require.Contains(t, m.Inputs, "input_host")

	chained := findByType(m, dashboard.DataSourceChain)
	require.NotNil(t, chained)
	require.Equal(t, "ds_base", chained.Options.Extend)

	saved := findByType(m, dashboard.DataSourceSavedSearch)
	require.NotNil(t, saved)
	require.Equal(t, "Errors last hour", saved.Options.Ref)
	require.Empty(t, saved.Options.Query)
}

func TestToStudioLayoutGrid(t *testing.T) {
	m, err := ToStudio(sampleDocument())
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	byItem := make(map[string]dashboard.LayoutItem)
	for _, item := range m.Layout.Items {
		byItem[item.Item] = item
	}

	// Input above all rows.
	require.Equal(t, 0, byItem["input_host"].Position.Y)

	// First row below the input strip, two panels splitting the width.
	require.Equal(t, InputHeight, byItem["viz_1"].Position.Y)
	require.Equal(t, 0, byItem["viz_1"].Position.X)
	require.Equal(t, GridWidth/2, byItem["viz_1"].Position.W)
	require.Equal(t, GridWidth/2, byItem["viz_2"].Position.X)

	// Second row stacked below the first.
	require.Equal(t, InputHeight+RowHeight, byItem["viz_3"].Position.Y)
	require.Equal(t, GridWidth, byItem["viz_3"].Position.W)
}

func TestOptionCoercion(t *testing.T) {
	tests := []struct {
		in       string
		expected interface{}
	}{
		{"true", true},
		{"false", false},
		{"42", int64(42)},
		{"1", int64(1)},
		{"3.14", 3.14},
		{"log", "log"},
		{"", ""},
	}
	for _, tt := range tests {
		require.Equal(t, tt.expected, coerceOption(tt.in), "coercing %q", tt.in)
	}
}

func TestRoundTripPreservesQueriesAndKinds(t *testing.T) {
	original := sampleDocument()
	m, err := ToStudio(original)
	require.NoError(t, err)
	back := ToDocument(m)

	require.Len(t, back.Rows, 2)
	require.Len(t, back.Rows[0].Panels, 2)

	first := back.Rows[0].Panels[0]
	require.Equal(t, "chart", first.Visualization.Kind)
	require.Equal(t, "line", first.Visualization.Options["charting.chart"])
	require.Equal(t, "index=web host=$host$ | timechart count", first.Search.Query)
	require.Equal(t, "-24h", first.Search.Earliest)
	require.Equal(t, []string{"host"}, first.Search.Tokens)

	second := back.Rows[0].Panels[1]
	require.Equal(t, "table", second.Visualization.Kind)
	require.Equal(t, "base", second.Search.Base)
	require.Empty(t, second.Search.Query)
	require.Len(t, second.Visualization.FormatRules, 1)
	rule := second.Visualization.FormatRules[0]
	require.Equal(t, "list", rule.Palette.Type)
	require.Equal(t, []string{"#53A051", "#F8BE34", "#DC4E41"}, rule.Palette.Colors)
	require.Equal(t, []float64{30, 70}, rule.Scale.Values)

	third := back.Rows[1].Panels[0]
	require.Equal(t, "single", third.Visualization.Kind)
	require.Equal(t, "Errors last hour", third.Search.Ref)

	require.Len(t, back.Fieldsets, 1)
	require.Len(t, back.Fieldsets[0].Inputs, 1)
	require.Equal(t, "host", back.Fieldsets[0].Inputs[0].Token)
	require.Len(t, back.Fieldsets[0].Inputs[0].Choices, 2)
}

func TestConversionIdempotentOnSecondPass(t *testing.T) {
	pass := func(doc *dashboard.Document) *dashboard.Document {
		m, err := ToStudio(doc)
		require.NoError(t, err)
		return ToDocument(m)
	}

	second := pass(pass(sampleDocument()))
	third := pass(second)

	if diff := cmp.Diff(second, third); diff != "" {
		t.Fatalf("second and third conversion passes differ (-second +third):\n%s", diff)
	}
}

func TestToDocumentTieBreakOnSharedY(t *testing.T) {
	m := &dashboard.StudioModel{
		Title: "tie",
		DataSources: map[string]*dashboard.DataSourceDef{
			"ds_1": {Type: dashboard.DataSourceSearch, Options: dashboard.DataSourceOptions{Query: "search a"}},
		},
		Visualizations: map[string]*dashboard.VisualizationDef{
			"viz_a": {Type: "splunk.table", Title: "A", DataSources: map[string]string{"primary": "ds_1"}},
			"viz_b": {Type: "splunk.table", Title: "B"},
			"viz_c": {Type: "splunk.table", Title: "C"},
		},
		Inputs: map[string]*dashboard.InputDef{},
		Layout: dashboard.Layout{
			Type: "absolute",
			Items: []dashboard.LayoutItem{
				// Same Y, same X: ordered by item id.
				{Item: "viz_c", Type: dashboard.LayoutItemBlock, Position: dashboard.Position{X: 0, Y: 0}},
				{Item: "viz_b", Type: dashboard.LayoutItemBlock, Position: dashboard.Position{X: 0, Y: 0}},
				// Same Y, larger X: last in the row.
				{Item: "viz_a", Type: dashboard.LayoutItemBlock, Position: dashboard.Position{X: 600, Y: 0}},
			},
		},
	}

	doc := ToDocument(m)
	require.Len(t, doc.Rows, 1)
	require.Len(t, doc.Rows[0].Panels, 3)
	require.Equal(t, "B", doc.Rows[0].Panels[0].Title)
	require.Equal(t, "C", doc.Rows[0].Panels[1].Title)
	require.Equal(t, "A", doc.Rows[0].Panels[2].Title)
}

func TestToDocumentDropsUnrepresentableLayoutKinds(t *testing.T) {
	m := &dashboard.StudioModel{
		Visualizations: map[string]*dashboard.VisualizationDef{
			"viz_1": {Type: "splunk.table"},
		},
		DataSources: map[string]*dashboard.DataSourceDef{},
		Inputs:      map[string]*dashboard.InputDef{},
		Layout: dashboard.Layout{
			Items: []dashboard.LayoutItem{
				{Item: "viz_1", Type: "tab", Position: dashboard.Position{Y: 0}},
			},
		},
	}

	doc := ToDocument(m)
	require.Empty(t, doc.Rows)
}

func TestFormatRegroupingGradientAndMap(t *testing.T) {
	rules := []dashboard.FormatRule{
		{
			Field:   "cpu",
			Type:    "color",
			Palette: dashboard.PaletteSpec{Type: "minMidMax", MinColor: "#FFFFFF", MidColor: "#808080", MaxColor: "#000000"},
		},
		{
			Field:   "status",
			Type:    "color",
			Palette: dashboard.PaletteSpec{Type: "map", Lookup: map[string]string{"ok": "#53A051", "down": "#DC4E41"}},
		},
	}

	back := contextToFormats(map[string]interface{}{contextFormatsKey: formatsToContext(rules)})
	require.Len(t, back, 2)

	require.Equal(t, "minMidMax", back[0].Palette.Type)
	require.Equal(t, "#FFFFFF", back[0].Palette.MinColor)
	require.Equal(t, "#000000", back[0].Palette.MaxColor)
	// A gradient is two stops; the mid color does not survive.
	require.Empty(t, back[0].Palette.MidColor)

	require.Equal(t, "map", back[1].Palette.Type)
	require.Equal(t, "#53A051", back[1].Palette.Lookup["ok"])
}

func findByType(m *dashboard.StudioModel, dsType string) *dashboard.DataSourceDef {
	for _, id := range []string{"ds_base", "ds_1", "ds_2"} {
		if ds, ok := m.DataSources[id]; ok && ds.Type == dsType {
			return ds
		}
	}
	return nil
}
