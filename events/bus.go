package events

import (
	"sync"
	"time"

	"Vista"
)

// Type names every event the core publishes.
type Type string

const (
	ExecutionStarted         Type = "executionStarted"
	ExecutionProgressUpdated Type = "executionProgressUpdated"
	ExecutionCompleted       Type = "executionCompleted"
	ExecutionFailed          Type = "executionFailed"
	ExecutionCancelled       Type = "executionCancelled"
	TokenValueChanged        Type = "tokenValueChanged"
)

// Event carries the identifiers a subscriber needs to re-fetch precise
// state without polling the full graph.
type Event struct {
	Type         Type
	ExecutionID  string
	DataSourceID string
	DashboardID  string
	Status       string
	ResultCount  int
	Token        string
	Value        string
	At           time.Time
}

// Bus is an in-process typed event channel with identified subscribers.
// Publish never blocks: a subscriber whose buffer is full misses the event
// and a warning is logged, so a stalled consumer cannot stall the tracker.
type Bus struct {
	mu   sync.RWMutex
	subs map[string]chan Event
	log  Vista.Logger
}

func NewBus(log Vista.Logger) *Bus {
	return &Bus{
		subs: make(map[string]chan Event),
		log:  log,
	}
}

// Subscribe registers a named subscriber and returns its receive channel.
// Re-subscribing under the same id replaces the previous subscription.
func (b *Bus) Subscribe(id string, buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Event, buffer)
	b.mu.Lock()
	if old, ok := b.subs[id]; ok {
		close(old)
	}
	b.subs[id] = ch
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	if ch, ok := b.subs[id]; ok {
		close(ch)
		delete(b.subs, id)
	}
	b.mu.Unlock()
}

// Publish delivers the event to every subscriber without blocking.
func (b *Bus) Publish(event Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		select {
		case ch <- event:
		default:
			if b.log != nil {
				b.log.Warnf("subscriber %q dropped event %s", id, event.Type)
			}
		}
	}
}

// Close closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
	b.mu.Unlock()
}
