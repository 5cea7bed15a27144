package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBusDeliversToAllSubscribers(t *testing.T) {
	bus := NewBus(nil)
	defer bus.Close()

	a := bus.Subscribe("a", 4)
	b := bus.Subscribe("b", 4)

	bus.Publish(Event{Type: ExecutionStarted, ExecutionID: "x1"})

	for _, ch := range []<-chan Event{a, b} {
		select {
		case ev := <-ch:
			require.Equal(t, ExecutionStarted, ev.Type)
			require.Equal(t, "x1", ev.ExecutionID)
			require.False(t, ev.At.IsZero())
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestBusDropsWhenSubscriberFull(t *testing.T) {
	bus := NewBus(nil)
	defer bus.Close()

	ch := bus.Subscribe("slow", 1)
	bus.Publish(Event{Type: ExecutionStarted, ExecutionID: "x1"})
	bus.Publish(Event{Type: ExecutionCompleted, ExecutionID: "x1"}) // dropped

	ev := <-ch
	require.Equal(t, ExecutionStarted, ev.Type)
	select {
	case ev := <-ch:
		t.Fatalf("expected drop, got %v", ev.Type)
	default:
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus(nil)
	ch := bus.Subscribe("a", 1)
	bus.Unsubscribe("a")
	_, open := <-ch
	require.False(t, open)
}
