// Package convert maps between the two intermediate dashboard
// representations: the markup-oriented row/panel document model and the
// flat, ID-indexed studio model. Conversion is best-effort lossless, not a
// bijection; a second pass through either direction is idempotent.
package convert

import (
	"strconv"
	"strings"
)

// Absolute-grid layout constants. Rows stack vertically, panels within a
// row divide the grid width evenly, inputs precede all rows.
const (
	GridWidth   = 1200
	RowHeight   = 250
	InputWidth  = 300
	InputHeight = 50
)

const (
	dataSourcePrefix    = "ds_"
	visualizationPrefix = "viz_"
	inputPrefix         = "input_"
)

// idAllocator hands out deterministic, collision-free synthetic ids.
// Explicit ids win their plain name; the synthetic counter skips any
// value an explicit id already claimed.
type idAllocator struct {
	prefix string
	taken  map[string]bool
	next   int
}

func newIDAllocator(prefix string) *idAllocator {
	return &idAllocator{prefix: prefix, taken: make(map[string]bool), next: 1}
}

// reserve claims an explicit id, qualifying it on collision.
func (a *idAllocator) reserve(explicit string) string {
	id := a.prefix + explicit
	for n := 2; a.taken[id]; n++ {
		id = a.prefix + explicit + "_" + strconv.Itoa(n)
	}
	a.taken[id] = true
	return id
}

// alloc claims the next synthetic counter id, skipping any counter value
// already taken by an explicit id.
func (a *idAllocator) alloc() string {
	for {
		id := a.prefix + strconv.Itoa(a.next)
		a.next++
		if !a.taken[id] {
			a.taken[id] = true
			return id
		}
	}
}

func stripPrefix(id, prefix string) string {
	return strings.TrimPrefix(id, prefix)
}
