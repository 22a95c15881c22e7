package sse

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubBroadcastReachesAllClients(t *testing.T) {
	hub := NewHub()
	a := hub.Register("dash-a")
	b := hub.Register("dash-b")
	defer hub.Unregister("dash-a")
	defer hub.Unregister("dash-b")

	n := 3
	hub.Broadcast(&SyncEvent{Event: EventRefreshCompleted, Count: &n})

	for _, c := range []*Client{a, b} {
		select {
		case data := <-c.Events:
			var ev SyncEvent
			require.NoError(t, json.Unmarshal(data, &ev))
			assert.Equal(t, EventRefreshCompleted, ev.Event)
			require.NotNil(t, ev.Count)
			assert.Equal(t, 3, *ev.Count)
			assert.False(t, ev.Timestamp.IsZero(), "broadcast stamps the event time")
		default:
			t.Fatalf("client %s received nothing", c.ID)
		}
	}
}

func TestHubBroadcastWithoutClientsIsNoOp(t *testing.T) {
	hub := NewHub()

	ev := &SyncEvent{Event: EventDriftDetected}
	hub.Broadcast(ev)

	assert.True(t, ev.Timestamp.IsZero(), "with no one listening there is nothing to stamp or marshal")
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHubUnregisterClosesClientChannel(t *testing.T) {
	hub := NewHub()
	c := hub.Register("dash-gone")
	hub.Unregister("dash-gone")

	_, open := <-c.Events
	assert.False(t, open, "unregister closes the client channel")
	assert.Equal(t, 0, hub.ClientCount())

	// A second unregister for the same id is a harmless no-op.
	hub.Unregister("dash-gone")
}

func TestHubSlowClientDoesNotBlockBroadcast(t *testing.T) {
	hub := NewHub()
	c := hub.Register("dash-slow")
	defer hub.Unregister("dash-slow")

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.Broadcast(&SyncEvent{Event: EventWebhookProcessed, EventID: "evt_1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a client that never reads")
	}
	assert.Equal(t, cap(c.Events), len(c.Events), "buffer holds what fits, the overflow is dropped")
}
