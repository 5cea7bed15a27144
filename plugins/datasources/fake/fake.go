// Package fake is a scripted in-process search backend. It serves two
// jobs: deterministic tests for the execution tracker, and a standalone
// server mode that needs no real search head.
package fake

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"Vista"
	"Vista/plugins/datasources"
)

// Script describes what one dispatched search does. Scripts are matched
// by exact query text; unmatched queries fall back to Default.
type Script struct {
	// Rows returned, in order, across successive polls.
	Rows []Vista.ResultRow
	// RowsPerPoll limits how many rows become visible per status check.
	// Zero means all rows are available immediately.
	RowsPerPoll int
	// Polls the search spends in the running state before finishing.
	Polls int
	// Fail makes the search report a backend failure after its rows
	// are exposed.
	Fail bool
	// RejectDispatch makes ExecuteSearch itself fail.
	RejectDispatch bool
	// Hang keeps the search running forever, for timeout tests.
	Hang bool
}

type search struct {
	script    Script
	polls     int
	available int
	cancelled bool
}

type Fake struct {
	Scripts map[string]Script
	Default Script

	mu       sync.Mutex
	searches map[Vista.ExecutionHandle]*search
	serial   int
}

func New() *Fake {
	return &Fake{
		Scripts:  make(map[string]Script),
		searches: make(map[Vista.ExecutionHandle]*search),
	}
}

func (f *Fake) ExecuteSearch(_ context.Context, query string, _ Vista.SearchParams) (Vista.ExecutionHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	script, ok := f.Scripts[query]
	if !ok {
		script = f.Default
	}
	if script.RejectDispatch {
		return "", fmt.Errorf("backend rejected query %q", query)
	}
	f.serial++
	handle := Vista.ExecutionHandle("fake-" + strconv.Itoa(f.serial))
	f.searches[handle] = &search{script: script}
	return handle, nil
}

func (f *Fake) CheckStatus(_ context.Context, handle Vista.ExecutionHandle) (Vista.SearchStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.searches[handle]
	if !ok {
		return "", fmt.Errorf("unknown search handle %q", handle)
	}
	if s.cancelled {
		return Vista.SearchFailed, nil
	}

	s.polls++
	if s.script.RowsPerPoll > 0 {
		s.available += s.script.RowsPerPoll
		if s.available > len(s.script.Rows) {
			s.available = len(s.script.Rows)
		}
	} else {
		s.available = len(s.script.Rows)
	}

	if s.script.Hang {
		return Vista.SearchRunning, nil
	}
	if s.polls <= s.script.Polls || s.available < len(s.script.Rows) {
		return Vista.SearchRunning, nil
	}
	if s.script.Fail {
		return Vista.SearchFailed, nil
	}
	return Vista.SearchDone, nil
}

func (f *Fake) FetchResults(_ context.Context, handle Vista.ExecutionHandle, offset, limit int) ([]Vista.ResultRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.searches[handle]
	if !ok {
		return nil, fmt.Errorf("unknown search handle %q", handle)
	}
	if offset >= s.available {
		return nil, nil
	}
	end := s.available
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	rows := make([]Vista.ResultRow, end-offset)
	copy(rows, s.script.Rows[offset:end])
	return rows, nil
}

func (f *Fake) Cancel(_ context.Context, handle Vista.ExecutionHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.searches[handle]
	if !ok {
		return fmt.Errorf("unknown search handle %q", handle)
	}
	s.cancelled = true
	return nil
}

// Cancelled reports whether the backend saw a cancel for handle.
func (f *Fake) Cancelled(handle Vista.ExecutionHandle) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.searches[handle]
	return ok && s.cancelled
}

// Rows builds n rows of the shape {"_serial": i, "value": "row-i"}.
func Rows(n int) []Vista.ResultRow {
	rows := make([]Vista.ResultRow, n)
	for i := range rows {
		rows[i] = Vista.ResultRow{
			"_serial": i,
			"value":   "row-" + strconv.Itoa(i),
		}
	}
	return rows
}

func init() {
	datasources.Add("fake", func() Vista.DataSource {
		return New()
	})
}
