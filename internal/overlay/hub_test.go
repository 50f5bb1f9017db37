// Overlay hub tests in Cardpack.

package overlay

import (
	"Cardpack/internal/entity"
	"Cardpack/pkg/log"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runHub(t *testing.T) *Hub {
	hub := NewHub(log.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub
}

func receive(t *testing.T, client *Client) entity.OverlayEvent {
	t.Helper()
	select {
	case event, ok := <-client.Send:
		require.True(t, ok, "send channel closed")
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
		return entity.OverlayEvent{}
	}
}

func TestBroadcastReachesEveryClientInOrder(t *testing.T) {
	hub := runHub(t)
	first := NewClient(TransportSSE, nil)
	second := NewClient(TransportSSE, nil)
	require.True(t, hub.Register(first))
	require.True(t, hub.Register(second))

	started := entity.OverlayEvent{Type: entity.EventOpeningStarted, Payload: entity.OpeningStarted{RequestID: "r1"}}
	complete := entity.OverlayEvent{Type: entity.EventOpeningComplete, Payload: entity.OpeningComplete{RequestID: "r1"}}
	hub.Broadcast(started)
	hub.Broadcast(complete)

	for _, client := range []*Client{first, second} {
		assert.Equal(t, started, receive(t, client))
		assert.Equal(t, complete, receive(t, client))
	}
	assert.Eventually(t, func() bool {
		return hub.Stats() == Stats{ActiveClients: 2, TotalConnections: 2, TotalEvents: 2}
	}, time.Second, 5*time.Millisecond)
}

func TestUnregisterClosesSend(t *testing.T) {
	hub := runHub(t)
	client := NewClient(TransportSSE, nil)
	require.True(t, hub.Register(client))

	hub.Unregister(client)
	_, ok := <-client.Send
	assert.False(t, ok)
	// a second unregister is harmless
	hub.Unregister(client)
	assert.Zero(t, hub.Stats().ActiveClients)
}

func TestSlowClientIsDropped(t *testing.T) {
	hub := runHub(t)
	slow := NewClient(TransportSSE, nil)
	require.True(t, hub.Register(slow))

	for i := 0; i <= sendBufferSize; i++ {
		hub.Broadcast(entity.OverlayEvent{Type: entity.EventOpeningComplete})
	}

	assert.Eventually(t, func() bool { return hub.Stats().ActiveClients == 0 }, 2*time.Second, 5*time.Millisecond)
	drained := 0
	for range slow.Send {
		drained++
	}
	assert.Equal(t, sendBufferSize, drained)
}

func TestRegisterAfterShutdown(t *testing.T) {
	hub := NewHub(log.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	client := NewClient(TransportSSE, nil)
	require.True(t, hub.Register(client))

	cancel()
	<-stopped
	_, ok := <-client.Send
	assert.False(t, ok)
	assert.False(t, hub.Register(NewClient(TransportSSE, nil)))
	hub.Unregister(client)
}
