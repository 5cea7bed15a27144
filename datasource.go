package Vista

import (
	"context"
	"time"
)

// SearchStatus is the remote-side status of a dispatched search as reported
// by the data source collaborator.
type SearchStatus string

const (
	SearchPending SearchStatus = "pending"
	SearchRunning SearchStatus = "running"
	SearchDone    SearchStatus = "done"
	SearchFailed  SearchStatus = "failed"
)

// Terminal reports whether the remote search reached a final state.
func (s SearchStatus) Terminal() bool {
	return s == SearchDone || s == SearchFailed
}

// ExecutionHandle is an opaque remote-side identifier for an in-flight search.
type ExecutionHandle string

// ResultRow is one decoded result row as returned by the data source.
type ResultRow map[string]interface{}

// Credential is an opaque credential handle passed through to the data
// source unmodified. Its storage and shape are out of scope here.
type Credential interface{}

// SearchParams carries per-dispatch parameters for a remote search.
type SearchParams struct {
	Earliest   string
	Latest     string
	Timeout    time.Duration
	Credential Credential
}

// DataSource is the abstract contract every remote search backend must
// satisfy. The execution tracker depends only on these four methods; the
// REST client, a mock, or a different analytics engine are interchangeable.
type DataSource interface {
	// ExecuteSearch dispatches a query and returns a handle for polling.
	ExecuteSearch(ctx context.Context, query string, params SearchParams) (ExecutionHandle, error)
	// CheckStatus reports the remote status for a handle.
	CheckStatus(ctx context.Context, handle ExecutionHandle) (SearchStatus, error)
	// FetchResults returns up to limit rows starting at offset.
	FetchResults(ctx context.Context, handle ExecutionHandle, offset, limit int) ([]ResultRow, error)
	// Cancel asks the backend to stop an in-flight search. Best effort.
	Cancel(ctx context.Context, handle ExecutionHandle) error
}
