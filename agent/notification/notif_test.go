package notification

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"Vista/events"
)

func TestForwarderPostsTerminalEventsOnly(t *testing.T) {
	var mu sync.Mutex
	var received []string
	sink := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		received = append(received, string(body))
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer sink.Close()

	bus := events.NewBus(nil)
	defer bus.Close()
	forwarder := NewForwarder(sink.URL, time.Second, bus, nil)
	defer forwarder.Close()

	bus.Publish(events.Event{Type: events.ExecutionStarted, ExecutionID: "e1"})
	bus.Publish(events.Event{Type: events.ExecutionProgressUpdated, ExecutionID: "e1"})
	bus.Publish(events.Event{
		Type:        events.ExecutionFailed,
		ExecutionID: "e1",
		DashboardID: "search/web",
		Status:      "failed",
	})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	payload := received[0]
	mu.Unlock()
	require.Equal(t, "executionFailed", gjson.Get(payload, "event").String())
	require.Equal(t, "e1", gjson.Get(payload, "executionId").String())
	require.Equal(t, "search/web", gjson.Get(payload, "dashboardId").String())
}
