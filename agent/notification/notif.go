// Package notification forwards terminal execution events to an external
// webhook so operators can alert on failed dashboards without polling.
package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"Vista"
	"Vista/events"
)

const subscriberID = "notification"

// Forwarder posts one JSON document per terminal execution event to the
// configured webhook URL. Delivery is best effort; a failed post is
// logged and dropped.
type Forwarder struct {
	url    string
	client *http.Client
	bus    *events.Bus
	log    Vista.Logger
	done   chan struct{}
}

func NewForwarder(url string, timeout time.Duration, bus *events.Bus, log Vista.Logger) *Forwarder {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	f := &Forwarder{
		url:    url,
		client: &http.Client{Timeout: timeout},
		bus:    bus,
		log:    log,
		done:   make(chan struct{}),
	}
	go f.run(bus.Subscribe(subscriberID, 64))
	return f
}

func (f *Forwarder) Close() {
	f.bus.Unsubscribe(subscriberID)
	<-f.done
}

func (f *Forwarder) run(feed <-chan events.Event) {
	defer close(f.done)
	for event := range feed {
		switch event.Type {
		case events.ExecutionCompleted, events.ExecutionFailed, events.ExecutionCancelled:
		default:
			continue
		}
		if err := f.post(event); err != nil && f.log != nil {
			f.log.Warnf("forwarding %s for execution %s: %v", event.Type, event.ExecutionID, err)
		}
	}
}

func (f *Forwarder) post(event events.Event) error {
	payload := map[string]interface{}{
		"event":        string(event.Type),
		"executionId":  event.ExecutionID,
		"dashboardId":  event.DashboardID,
		"dataSourceId": event.DataSourceID,
		"status":       event.Status,
		"resultCount":  event.ResultCount,
		"at":           event.At.UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	resp, err := f.client.Post(f.url, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			return
		}
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded with status code %d", resp.StatusCode)
	}
	return nil
}
