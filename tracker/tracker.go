// Package tracker owns the asynchronous lifecycle of search executions.
// It is the single authority over execution state: every transition and
// every appended result row goes through its lock, observers see rows in
// strictly increasing order, and a terminal execution never moves again.
package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/alitto/pond"
	"github.com/benbjohnson/clock"
	"github.com/gofrs/uuid/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"Vista"
	"Vista/agent/model"
	"Vista/agent/repository"
	"Vista/events"
)

var ErrExecutionNotFound = errors.New("execution not found")

// WatchFunc observes one execution. It is called at least once per state
// transition and may additionally be called for progress while running.
type WatchFunc func(update Update)

type Update struct {
	ExecutionID  string
	Status       string
	ResultCount  int
	ErrorMessage string
}

// StartRequest describes one dispatch of a data source's resolved query.
type StartRequest struct {
	DashboardID   string
	SourceID      string
	Query         string
	Earliest      string
	Latest        string
	TokenSnapshot map[string]string
	Timeout       time.Duration
	Credential    Vista.Credential
}

type Option func(*Tracker)

// WithClock substitutes the time source, for tests.
func WithClock(c clock.Clock) Option {
	return func(t *Tracker) { t.clock = c }
}

// WithRepo write-through persists executions and their results.
func WithRepo(repo repository.ExecutionRepo) Option {
	return func(t *Tracker) { t.repo = repo }
}

// WithPoolSize bounds the number of concurrent in-flight dispatches.
func WithPoolSize(n int) Option {
	return func(t *Tracker) { t.poolSize = n }
}

func WithPollInterval(d time.Duration) Option {
	return func(t *Tracker) { t.pollInterval = d }
}

func WithDefaultTimeout(d time.Duration) Option {
	return func(t *Tracker) { t.defaultTimeout = d }
}

func WithFetchLimit(n int) Option {
	return func(t *Tracker) { t.fetchLimit = n }
}

type Tracker struct {
	ds  Vista.DataSource
	bus *events.Bus
	log Vista.Logger

	repo           repository.ExecutionRepo
	clock          clock.Clock
	poolSize       int
	pollInterval   time.Duration
	defaultTimeout time.Duration
	fetchLimit     int

	pool *pond.WorkerPool

	mu    sync.Mutex
	execs map[string]*execution
}

type execution struct {
	record   model.SearchExecution
	watchers []WatchFunc
	cancel   context.CancelFunc
	handle   Vista.ExecutionHandle
}

func New(ds Vista.DataSource, bus *events.Bus, log Vista.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		ds:             ds,
		bus:            bus,
		log:            log,
		clock:          clock.New(),
		poolSize:       8,
		pollInterval:   250 * time.Millisecond,
		defaultTimeout: 5 * time.Minute,
		fetchLimit:     500,
		execs:          make(map[string]*execution),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.pool = pond.New(t.poolSize, t.poolSize*4)
	return t
}

// Stop waits for in-flight dispatches to drain.
func (t *Tracker) Stop() {
	t.pool.StopAndWait()
}

// Start creates a queued execution synchronously and schedules its
// asynchronous dispatch. The returned id identifies the execution from the
// first moment; the caller never waits on the remote side.
func (t *Tracker) Start(ctx context.Context, req StartRequest) (string, error) {
	id := uuid.Must(uuid.NewV4()).String()
	record := model.SearchExecution{
		ExecutionID:   id,
		DashboardID:   req.DashboardID,
		SourceID:      req.SourceID,
		Query:         req.Query,
		TokenSnapshot: req.TokenSnapshot,
		Status:        model.ExecutionQueued,
		StartTime:     primitive.NewDateTimeFromTime(t.clock.Now()),
	}

	dispatchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	t.mu.Lock()
	t.execs[id] = &execution{record: record, cancel: cancel}
	t.mu.Unlock()

	if t.repo != nil {
		if err := t.repo.Insert(ctx, &record); err != nil {
			cancel()
			t.mu.Lock()
			delete(t.execs, id)
			t.mu.Unlock()
			return "", err
		}
	}

	t.publish(events.ExecutionStarted, &record)

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = t.defaultTimeout
	}
	t.pool.Submit(func() {
		t.dispatch(dispatchCtx, id, req, timeout)
	})
	return id, nil
}

// Get returns a copy of the execution record.
func (t *Tracker) Get(id string) (*model.SearchExecution, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	exec, ok := t.execs[id]
	if !ok {
		return nil, ErrExecutionNotFound
	}
	record := exec.record
	record.Results = append([]model.SearchResult(nil), exec.record.Results...)
	return &record, nil
}

// Watch attaches a live observer. The current state is delivered
// immediately so late subscribers never miss the terminal transition.
func (t *Tracker) Watch(id string, fn WatchFunc) error {
	t.mu.Lock()
	exec, ok := t.execs[id]
	if !ok {
		t.mu.Unlock()
		return ErrExecutionNotFound
	}
	exec.watchers = append(exec.watchers, fn)
	update := updateOf(&exec.record)
	t.mu.Unlock()

	fn(update)
	return nil
}

// Cancel immediately marks the execution cancelled locally and asks the
// remote dispatch to stop, best effort. A cancelled execution can never
// transition further; rows already recorded are retained.
func (t *Tracker) Cancel(ctx context.Context, id string) error {
	t.mu.Lock()
	exec, ok := t.execs[id]
	if !ok {
		t.mu.Unlock()
		return ErrExecutionNotFound
	}
	if model.TerminalStatus(exec.record.Status) {
		t.mu.Unlock()
		return nil
	}
	exec.record.Status = model.ExecutionCancelled
	exec.record.EndTime = primitive.NewDateTimeFromTime(t.clock.Now())
	record := exec.record
	watchers := append([]WatchFunc(nil), exec.watchers...)
	handle := exec.handle
	cancel := exec.cancel
	t.mu.Unlock()

	cancel()
	if handle != "" {
		if err := t.ds.Cancel(ctx, handle); err != nil && t.log != nil {
			t.log.Warnf("cancelling remote search for execution %s: %v", id, err)
		}
	}

	t.persistStatus(&record)
	t.publish(events.ExecutionCancelled, &record)
	notify(watchers, updateOf(&record))
	return nil
}

// dispatch runs the remote lifecycle of one execution on a pool worker.
// Every failure path lands in a terminal failed state; nothing escapes.
func (t *Tracker) dispatch(ctx context.Context, id string, req StartRequest, timeout time.Duration) {
	started := t.clock.Now()
	params := Vista.SearchParams{
		Earliest:   req.Earliest,
		Latest:     req.Latest,
		Timeout:    timeout,
		Credential: req.Credential,
	}

	handle, err := t.ds.ExecuteSearch(ctx, req.Query, params)
	if err != nil {
		t.fail(id, &Vista.DispatchError{Kind: Vista.KindDispatch, Msg: "dispatch rejected", Err: err})
		return
	}
	if !t.transitionRunning(id, handle) {
		return
	}

	offset := 0
	for {
		if t.terminal(id) {
			return
		}
		if t.clock.Since(started) > timeout {
			t.fail(id, &Vista.DispatchError{Kind: Vista.KindTimeout, Msg: "dispatch exceeded timeout"})
			return
		}

		status, err := t.ds.CheckStatus(ctx, handle)
		if err != nil {
			t.fail(id, &Vista.DispatchError{Kind: Vista.KindBackend, Msg: "status check failed", Err: err})
			return
		}

		// Drain available rows before acting on a terminal status so
		// completed executions carry their full result set.
		for {
			rows, err := t.ds.FetchResults(ctx, handle, offset, t.fetchLimit)
			if err != nil {
				t.fail(id, &Vista.DispatchError{Kind: Vista.KindBackend, Msg: "fetching results failed", Err: err})
				return
			}
			if len(rows) == 0 {
				break
			}
			offset += len(rows)
			t.appendRows(id, rows)
			if len(rows) < t.fetchLimit {
				break
			}
		}

		switch status {
		case Vista.SearchDone:
			t.complete(id)
			return
		case Vista.SearchFailed:
			t.fail(id, &Vista.DispatchError{Kind: Vista.KindBackend, Msg: "remote search failed"})
			return
		}

		select {
		case <-ctx.Done():
			// Cancel already marked the record; nothing more to do.
			return
		case <-t.clock.After(t.pollInterval):
		}
	}
}

// appendRows appends rows in order with monotonically increasing row
// indexes and publishes a progress update.
func (t *Tracker) appendRows(id string, rows []Vista.ResultRow) {
	t.mu.Lock()
	exec, ok := t.execs[id]
	if !ok || model.TerminalStatus(exec.record.Status) {
		t.mu.Unlock()
		return
	}
	for _, row := range rows {
		exec.record.Results = append(exec.record.Results, model.SearchResult{
			RowIndex: len(exec.record.Results),
			Payload:  row,
		})
	}
	exec.record.ResultCount = len(exec.record.Results)
	appended := exec.record.Results[len(exec.record.Results)-len(rows):]
	record := exec.record
	watchers := append([]WatchFunc(nil), exec.watchers...)
	t.mu.Unlock()

	if t.repo != nil {
		if err := t.repo.AppendResults(context.Background(), id, appended); err != nil && t.log != nil {
			t.log.Errorf("persisting %d rows for execution %s: %v", len(appended), id, err)
		}
	}
	t.publish(events.ExecutionProgressUpdated, &record)
	notify(watchers, updateOf(&record))
}

func (t *Tracker) transitionRunning(id string, handle Vista.ExecutionHandle) bool {
	t.mu.Lock()
	exec, ok := t.execs[id]
	if !ok || exec.record.Status != model.ExecutionQueued {
		t.mu.Unlock()
		return false
	}
	exec.record.Status = model.ExecutionRunning
	exec.handle = handle
	record := exec.record
	watchers := append([]WatchFunc(nil), exec.watchers...)
	t.mu.Unlock()

	t.persistStatus(&record)
	t.publish(events.ExecutionProgressUpdated, &record)
	notify(watchers, updateOf(&record))
	return true
}

func (t *Tracker) complete(id string) {
	t.finish(id, model.ExecutionCompleted, "")
}

func (t *Tracker) fail(id string, cause *Vista.DispatchError) {
	t.finish(id, model.ExecutionFailed, cause.Error())
}

// finish moves an execution into a terminal state. Rows already recorded
// are always retained, whatever the outcome.
func (t *Tracker) finish(id, status, errorMessage string) {
	t.mu.Lock()
	exec, ok := t.execs[id]
	if !ok || model.TerminalStatus(exec.record.Status) {
		t.mu.Unlock()
		return
	}
	exec.record.Status = status
	exec.record.ErrorMessage = errorMessage
	exec.record.EndTime = primitive.NewDateTimeFromTime(t.clock.Now())
	record := exec.record
	watchers := append([]WatchFunc(nil), exec.watchers...)
	t.mu.Unlock()

	t.persistStatus(&record)
	switch status {
	case model.ExecutionCompleted:
		t.publish(events.ExecutionCompleted, &record)
	case model.ExecutionFailed:
		t.publish(events.ExecutionFailed, &record)
	}
	notify(watchers, updateOf(&record))
}

func (t *Tracker) terminal(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	exec, ok := t.execs[id]
	return !ok || model.TerminalStatus(exec.record.Status)
}

func (t *Tracker) persistStatus(record *model.SearchExecution) {
	if t.repo == nil {
		return
	}
	var endTime time.Time
	if record.EndTime != 0 {
		endTime = record.EndTime.Time()
	}
	if err := t.repo.UpdateStatus(context.Background(), record.ExecutionID, record.Status, record.ErrorMessage, endTime); err != nil && t.log != nil {
		t.log.Errorf("persisting status %s for execution %s: %v", record.Status, record.ExecutionID, err)
	}
}

func (t *Tracker) publish(eventType events.Type, record *model.SearchExecution) {
	if t.bus == nil {
		return
	}
	t.bus.Publish(events.Event{
		Type:         eventType,
		ExecutionID:  record.ExecutionID,
		DataSourceID: record.SourceID,
		DashboardID:  record.DashboardID,
		Status:       record.Status,
		ResultCount:  record.ResultCount,
	})
}

func updateOf(record *model.SearchExecution) Update {
	return Update{
		ExecutionID:  record.ExecutionID,
		Status:       record.Status,
		ResultCount:  record.ResultCount,
		ErrorMessage: record.ErrorMessage,
	}
}

func notify(watchers []WatchFunc, update Update) {
	for _, fn := range watchers {
		fn(update)
	}
}
