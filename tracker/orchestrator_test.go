package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"Vista/agent/model"
	"Vista/dashboard"
	"Vista/events"
	"Vista/plugins/datasources/fake"
	"Vista/token"
)

func batchGraph() *model.Dashboard {
	return &model.Dashboard{
		Namespace: "search",
		Name:      "web",
		DataSources: []model.DataSource{
			{SourceID: "ds_base", Type: dashboard.DataSourceSearch, Query: "index=web host=$host$ | stats count"},
			{SourceID: "ds_child", Type: dashboard.DataSourceChain, ExtendsID: "ds_base"},
			{SourceID: "ds_saved", Type: dashboard.DataSourceSavedSearch, SavedRef: "Errors last hour"},
		},
		Inputs: []model.DashboardInput{
			{InputID: "input_host", Token: "host", OptionsJSON: `{"query":"| inputlookup hosts"}`},
		},
	}
}

func TestRunDashboardDispatchesBatch(t *testing.T) {
	backend := fake.New()
	bus := events.NewBus(nil)
	defer bus.Close()

	tracker := New(backend, bus, nil, WithPollInterval(2*time.Millisecond))
	defer tracker.Stop()
	orchestrator := NewOrchestrator(tracker, bus, nil)
	defer orchestrator.Close()

	catalog := token.NewCatalog()
	catalog.SetValue("host", "web01")

	started, err := orchestrator.RunDashboard(context.Background(), batchGraph(), catalog, nil, RunOptions{})
	require.NoError(t, err)

	// The input-populating search and the root search dispatch up front.
	// The saved search reference is skipped, the chain is deferred.
	require.Contains(t, started, "input:input_host")
	require.Contains(t, started, "ds_base")
	require.NotContains(t, started, "ds_child")
	require.NotContains(t, started, "ds_saved")

	base, err := tracker.Get(started["ds_base"])
	require.NoError(t, err)
	require.Equal(t, "index=web host=web01 | stats count", base.Query)
	require.Equal(t, "web01", base.TokenSnapshot["host"])

	require.Equal(t, "completed", waitTerminal(t, tracker, started["ds_base"]))

	// The chained source starts once its base completes, inheriting the
	// base query when it declares none of its own.
	var child *model.SearchExecution
	require.Eventually(t, func() bool {
		for _, id := range trackerExecutionIDs(tracker) {
			record, err := tracker.Get(id)
			if err == nil && record.SourceID == "ds_child" {
				child = record
				return terminalStatus(record.Status)
			}
		}
		return false
	}, 2*time.Second, 2*time.Millisecond)
	require.Equal(t, "completed", child.Status)
	require.Equal(t, "index=web host=web01 | stats count", child.Query)
}

func trackerExecutionIDs(t *Tracker) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.execs))
	for id := range t.execs {
		ids = append(ids, id)
	}
	return ids
}
