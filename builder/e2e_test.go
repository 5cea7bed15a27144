package builder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"Vista/agent/repository"
	"Vista/convert"
	"Vista/plugins/parsers/simplexml"
)

// legacySource is a two-panel, one-fieldset legacy document exercising the
// whole parse -> convert -> build pipeline.
const legacySource = `<dashboard version="1">
  <label>NOC Overview</label>
  <fieldset submitButton="false" autoRun="true">
    <input type="dropdown" token="host">
      <label>Host</label>
      <default>web01</default>
      <choice value="web01">Web 01</choice>
      <choice value="web02">Web 02</choice>
    </input>
  </fieldset>
  <row>
    <panel>
      <title>Traffic</title>
      <chart>
        <option name="charting.chart">line</option>
        <search>
          <query>index=web host=$host$ | timechart count</query>
          <earliest>-4h</earliest>
          <latest>now</latest>
        </search>
      </chart>
    </panel>
    <panel>
      <title>Errors</title>
      <table>
        <search>
          <query>index=web host=$host$ status>=500 | stats count by status</query>
        </search>
      </table>
    </panel>
  </row>
</dashboard>`

func TestLegacyDocumentEndToEnd(t *testing.T) {
	parser := &simplexml.Parser{}
	require.NoError(t, parser.Init())

	doc, err := parser.Parse([]byte(legacySource))
	require.NoError(t, err)
	require.Equal(t, "NOC Overview", doc.Title)
	require.Len(t, doc.Rows, 1)
	require.Len(t, doc.Rows[0].Panels, 2)
	require.Len(t, doc.Fieldsets, 1)

	m, err := convert.ToStudio(doc)
	require.NoError(t, err)

	repo := repository.NewMemoryDashboardRepo(nil)
	graph, err := New(repo, nil).Build(context.Background(), m, Key{Namespace: "search", Name: "noc_overview"}, []byte(legacySource))
	require.NoError(t, err)

	require.Len(t, graph.DataSources, 2)
	require.Len(t, graph.Visualizations, 2)
	require.Len(t, graph.Inputs, 1)
	require.Equal(t, "host", graph.Inputs[0].Token)

	// The input sits above both panels in the layout.
	var inputY int
	var panelYs []int
	for _, item := range graph.Layout.Items {
		switch {
		case item.InputID != "":
			inputY = item.Y
		case item.VisualizationID != "":
			panelYs = append(panelYs, item.Y)
		}
	}
	require.Len(t, panelYs, 2)
	for _, y := range panelYs {
		require.Greater(t, y, inputY)
	}

	// The query text survives the whole pipeline unchanged.
	queries := map[string]bool{}
	for _, ds := range graph.DataSources {
		queries[ds.Query] = true
	}
	require.True(t, queries["index=web host=$host$ | timechart count"])
	require.True(t, queries["index=web host=$host$ status>=500 | stats count by status"])
}
