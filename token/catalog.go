package token

import (
	"sort"
	"sync"
)

// ChangeFunc observes committed token value changes.
type ChangeFunc func(name, value string)

// Catalog is the single owner of current token values. All reads and
// writes go through its lock so a resolution in progress always sees a
// consistent snapshot; readers never observe a write in progress.
type Catalog struct {
	mu       sync.RWMutex
	values   map[string]string
	onChange []ChangeFunc
}

func NewCatalog() *Catalog {
	return &Catalog{
		values: make(map[string]string),
	}
}

// OnChange registers an observer called after each committed SetValue.
// Observers are invoked outside the lock.
func (c *Catalog) OnChange(fn ChangeFunc) {
	c.mu.Lock()
	c.onChange = append(c.onChange, fn)
	c.mu.Unlock()
}

// SetValue commits a runtime value for a token and notifies observers.
func (c *Catalog) SetValue(name, value string) {
	c.mu.Lock()
	prev, had := c.values[name]
	c.values[name] = value
	observers := c.onChange
	c.mu.Unlock()

	if had && prev == value {
		return
	}
	for _, fn := range observers {
		fn(name, value)
	}
}

// Value returns the current runtime value for a token, if any.
func (c *Catalog) Value(name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[name]
	return v, ok
}

// Unset removes a runtime value, falling resolution back to defaults.
func (c *Catalog) Unset(name string) {
	c.mu.Lock()
	delete(c.values, name)
	c.mu.Unlock()
}

// Snapshot returns a copy of all current values, for recording alongside a
// dispatched execution.
func (c *Catalog) Snapshot() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := make(map[string]string, len(c.values))
	for k, v := range c.values {
		snap[k] = v
	}
	return snap
}

// Names returns the sorted names of all tokens holding runtime values.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.values))
	for name := range c.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortStrings(s []string) {
	sort.Strings(s)
}
