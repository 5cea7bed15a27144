package tracker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"Vista"
	"Vista/agent/model"
	"Vista/dashboard"
	"Vista/events"
	"Vista/token"
)

// Orchestrator turns a built dashboard graph into a batch of tracked
// executions. Input-populating searches dispatch before the regular data
// sources so selectable choices exist by the time their consumers run,
// and post-processing chains dispatch only once their base completes.
type Orchestrator struct {
	tracker *Tracker
	bus     *events.Bus
	log     Vista.Logger

	mu      sync.Mutex
	pending map[string][]StartRequest

	feed <-chan events.Event
	done chan struct{}
}

const orchestratorSubscriber = "orchestrator"

func NewOrchestrator(tracker *Tracker, bus *events.Bus, log Vista.Logger) *Orchestrator {
	o := &Orchestrator{
		tracker: tracker,
		bus:     bus,
		log:     log,
		pending: make(map[string][]StartRequest),
		done:    make(chan struct{}),
	}
	o.feed = bus.Subscribe(orchestratorSubscriber, 64)
	go o.run()
	return o
}

func (o *Orchestrator) Close() {
	o.bus.Unsubscribe(orchestratorSubscriber)
	<-o.done
}

// RunOptions carries the per-batch dispatch settings.
type RunOptions struct {
	Timeout    time.Duration
	Credential Vista.Credential
}

// RunDashboard dispatches every runnable data source of graph and returns
// the execution id per source id. Chained sources are registered, not
// dispatched; they start when their base source completes.
func (o *Orchestrator) RunDashboard(ctx context.Context, graph *model.Dashboard, catalog *token.Catalog, defs []token.Definition, opts RunOptions) (map[string]string, error) {
	started := make(map[string]string)
	snapshot := catalog.Snapshot()

	// Input-populating searches go first.
	for _, input := range graph.Inputs {
		query := gjson.Get(input.OptionsJSON, "query").String()
		if query == "" {
			continue
		}
		id, err := o.dispatch(ctx, graph.Key(), "input:"+input.InputID, query, "", "", catalog, defs, snapshot, opts)
		if err != nil {
			return started, err
		}
		started["input:"+input.InputID] = id
	}

	byID := make(map[string]*model.DataSource, len(graph.DataSources))
	for i := range graph.DataSources {
		byID[graph.DataSources[i].SourceID] = &graph.DataSources[i]
	}

	for i := range graph.DataSources {
		ds := &graph.DataSources[i]
		switch ds.Type {
		case dashboard.DataSourceSearch:
			id, err := o.dispatch(ctx, graph.Key(), ds.SourceID, ds.Query, ds.Earliest, ds.Latest, catalog, defs, snapshot, opts)
			if err != nil {
				return started, err
			}
			started[ds.SourceID] = id
		case dashboard.DataSourceChain:
			base, ok := byID[ds.ExtendsID]
			if !ok {
				o.warnf("chained source %q extends unknown source %q, skipping", ds.SourceID, ds.ExtendsID)
				continue
			}
			query := ds.Query
			if query == "" {
				query = base.Query
			}
			o.registerChild(graph.Key(), ds.ExtendsID, StartRequest{
				DashboardID:   graph.Key(),
				SourceID:      ds.SourceID,
				Query:         o.resolve(query, catalog, defs),
				Earliest:      firstNonEmpty(ds.Earliest, base.Earliest),
				Latest:        firstNonEmpty(ds.Latest, base.Latest),
				TokenSnapshot: snapshot,
				Timeout:       opts.Timeout,
				Credential:    opts.Credential,
			})
		case dashboard.DataSourceSavedSearch:
			// Needs server-side expansion of the saved search body,
			// which no configured backend provides yet.
			o.warnf("source %q references saved search %q, skipping dispatch", ds.SourceID, ds.SavedRef)
		default:
			o.warnf("source %q has unknown type %q, skipping dispatch", ds.SourceID, ds.Type)
		}
	}
	return started, nil
}

func (o *Orchestrator) dispatch(ctx context.Context, dashboardID, sourceID, query, earliest, latest string, catalog *token.Catalog, defs []token.Definition, snapshot map[string]string, opts RunOptions) (string, error) {
	return o.tracker.Start(ctx, StartRequest{
		DashboardID:   dashboardID,
		SourceID:      sourceID,
		Query:         o.resolve(query, catalog, defs),
		Earliest:      earliest,
		Latest:        latest,
		TokenSnapshot: snapshot,
		Timeout:       opts.Timeout,
		Credential:    opts.Credential,
	})
}

// resolve substitutes token references. Unresolved references stay
// literal and the query still dispatches; the backend reports the
// resulting syntax error if there is one.
func (o *Orchestrator) resolve(query string, catalog *token.Catalog, defs []token.Definition) string {
	resolved, err := catalog.Resolve(query, defs)
	var resErr *token.ResolutionError
	if errors.As(err, &resErr) {
		o.warnf("query dispatched with unresolved tokens: %s", strings.Join(resErr.Names, ", "))
	}
	return resolved
}

func (o *Orchestrator) registerChild(dashboardID, parentSourceID string, req StartRequest) {
	key := dashboardID + "\x00" + parentSourceID
	o.mu.Lock()
	o.pending[key] = append(o.pending[key], req)
	o.mu.Unlock()
}

func (o *Orchestrator) run() {
	defer close(o.done)
	for event := range o.feed {
		if event.Type != events.ExecutionCompleted {
			continue
		}
		o.releaseChildren(event.DashboardID, event.DataSourceID)
	}
}

func (o *Orchestrator) releaseChildren(dashboardID, parentSourceID string) {
	key := dashboardID + "\x00" + parentSourceID
	o.mu.Lock()
	children := o.pending[key]
	delete(o.pending, key)
	o.mu.Unlock()

	for _, req := range children {
		if _, err := o.tracker.Start(context.Background(), req); err != nil {
			o.warnf("starting chained source %q: %v", req.SourceID, err)
		}
	}
}

func (o *Orchestrator) warnf(format string, args ...interface{}) {
	if o.log != nil {
		o.log.Warnf(format, args...)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
