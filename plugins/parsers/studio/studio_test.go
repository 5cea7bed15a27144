package studio

import (
	"testing"

	"github.com/stretchr/testify/require"

	"Vista"
	"Vista/convert"
	"Vista/dashboard"
)

const definition = `{
  "version": "1.1",
  "title": "Service Health",
  "description": "per-service error budget",
  "dataSources": {
    "ds_errors": {
      "type": "ds.search",
      "options": {
        "query": "index=svc status=error | stats count by service",
        "queryParameters": {"earliest": "-1h", "latest": "now"},
        "sampleRatio": 10
      }
    },
    "ds_top": {
      "type": "ds.chain",
      "options": {"extend": "ds_errors", "query": "| head 5"}
    }
  },
  "visualizations": {
    "viz_table": {
      "type": "splunk.table",
      "title": "Errors",
      "options": {"count": 20},
      "context": {"formats": [{"field": "count", "type": "color", "options": {"mode": "threshold"}}]},
      "dataSources": {"primary": "ds_errors"}
    }
  },
  "inputs": {
    "input_service": {
      "type": "input.dropdown",
      "options": {
        "token": "service",
        "defaultValue": "api",
        "items": [{"label": "API", "value": "api"}, {"label": "Web", "value": "web"}],
        "searchWhenChanged": true,
        "clearDefaultOnSelection": true
      }
    }
  },
  "layout": {
    "type": "grid",
    "globalInputs": ["input_service"],
    "structure": [
      {"item": "viz_table", "type": "block", "position": {"x": 0, "y": 0, "w": 1200, "h": 250}}
    ]
  }
}`

func TestParseStudioDecodesModel(t *testing.T) {
	p := &Parser{}
	require.NoError(t, p.Init())

	m, err := p.ParseStudio([]byte(definition))
	require.NoError(t, err)

	require.Equal(t, "Service Health", m.Title)
	require.Equal(t, "per-service error budget", m.Description)

	errorsDS := m.DataSources["ds_errors"]
	require.NotNil(t, errorsDS)
	require.Equal(t, dashboard.DataSourceSearch, errorsDS.Type)
	require.Equal(t, "index=svc status=error | stats count by service", errorsDS.Options.Query)
	require.Equal(t, "-1h", errorsDS.Options.Earliest)
	require.Equal(t, "now", errorsDS.Options.Latest)
	// Unknown option keys survive in the residual bag.
	require.Contains(t, errorsDS.Extra, "sampleRatio")

	topDS := m.DataSources["ds_top"]
	require.Equal(t, dashboard.DataSourceChain, topDS.Type)
	require.Equal(t, "ds_errors", topDS.Options.Extend)
	require.Equal(t, "| head 5", topDS.Options.Query)

	viz := m.Visualizations["viz_table"]
	require.Equal(t, "splunk.table", viz.Type)
	require.Equal(t, "ds_errors", viz.PrimaryDataSource())
	require.Contains(t, viz.Context, "formats")

	input := m.Inputs["input_service"]
	require.Equal(t, "service", input.Options.Token)
	require.Equal(t, "api", input.Options.DefaultValue)
	require.True(t, input.Options.SearchWhenChanged)
	require.Equal(t, []dashboard.ChoiceItem{
		{Label: "API", Value: "api"},
		{Label: "Web", Value: "web"},
	}, input.Options.Items)
	require.Contains(t, input.Extra, "clearDefaultOnSelection")

	// The global input becomes a leading input layout item.
	require.Equal(t, "grid", m.Layout.Type)
	require.Len(t, m.Layout.Items, 2)
	first := m.Layout.Items[0]
	require.Equal(t, "input_service", first.Item)
	require.Equal(t, dashboard.LayoutItemInput, first.Type)
	require.Equal(t, convert.InputWidth, first.Position.W)
	require.Equal(t, convert.InputHeight, first.Position.H)
	require.Equal(t, "viz_table", m.Layout.Items[1].Item)

	require.NoError(t, m.Validate())
}

func TestParseLowersToDocument(t *testing.T) {
	p := &Parser{}
	doc, err := p.Parse([]byte(definition))
	require.NoError(t, err)

	require.Equal(t, "Service Health", doc.Title)
	require.Len(t, doc.Fieldsets, 1)
	require.Len(t, doc.Fieldsets[0].Inputs, 1)
	require.Equal(t, "service", doc.Fieldsets[0].Inputs[0].Token)
	require.NotEmpty(t, doc.Rows)
}

func TestParseStudioRejectsInvalidJSON(t *testing.T) {
	p := &Parser{}
	_, err := p.ParseStudio([]byte(`{"title": "broken"`))
	var parseErr *Vista.ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, "studio", parseErr.Format)
}

func TestParseStudioRejectsUnsupportedVersion(t *testing.T) {
	p := &Parser{}
	_, err := p.ParseStudio([]byte(`{"version": "2.0", "title": "future"}`))
	var versionErr *Vista.UnsupportedVersionError
	require.ErrorAs(t, err, &versionErr)
	require.Equal(t, "2.0", versionErr.Version)
}

func TestParseStudioSchemaViolation(t *testing.T) {
	p := &Parser{}
	// A data source without a type fails the structural contract before
	// any decoding happens.
	_, err := p.ParseStudio([]byte(`{"dataSources": {"ds_1": {"options": {}}}}`))
	var parseErr *Vista.ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Contains(t, parseErr.Error(), "schema validation")

	_, err = p.ParseStudio([]byte(`{"dataSources": {"ds_1": "not an object"}}`))
	require.ErrorAs(t, err, &parseErr)
}

func TestParseStudioMissingVersionIsAccepted(t *testing.T) {
	p := &Parser{}
	m, err := p.ParseStudio([]byte(`{"title": "bare"}`))
	require.NoError(t, err)
	require.Equal(t, "bare", m.Title)
	require.Equal(t, "absolute", m.Layout.Type)
	require.Empty(t, m.Layout.Items)
}
