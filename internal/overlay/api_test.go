// Overlay API tests in Cardpack.

package overlay

import (
	"Cardpack/internal/entity"
	"Cardpack/internal/test"
	"Cardpack/pkg/log"
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ack struct {
	requestID string
	result    json.RawMessage
}

type mockAcknowledger struct {
	mu      sync.Mutex
	pending map[string]bool
	acks    chan ack
}

func newMockAcknowledger(pending ...string) *mockAcknowledger {
	m := &mockAcknowledger{pending: map[string]bool{}, acks: make(chan ack, 16)}
	for _, id := range pending {
		m.pending[id] = true
	}
	return m
}

func (m *mockAcknowledger) Acknowledge(requestID string, result json.RawMessage) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acks <- ack{requestID, result}
	if m.pending[requestID] {
		delete(m.pending, requestID)
		return true
	}
	return false
}

func (m *mockAcknowledger) next(t *testing.T) ack {
	t.Helper()
	select {
	case a := <-m.acks:
		return a
	case <-time.After(2 * time.Second):
		t.Fatal("no acknowledgement received")
		return ack{}
	}
}

func newOverlayServer(t *testing.T, acker Acknowledger) (*Hub, *httptest.Server) {
	hub := runHub(t)
	router := test.MockRouter()
	APIHandlers(router, hub, acker, log.Nop())
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return hub, server
}

func TestWebsocketOverlay(t *testing.T) {
	acker := newMockAcknowledger("r1")
	hub, server := newOverlayServer(t, acker)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/api/overlay/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Stats().ActiveClients == 1 }, 2*time.Second, 5*time.Millisecond)

	hub.Broadcast(entity.OverlayEvent{Type: entity.EventOpeningStarted, Payload: entity.OpeningStarted{
		RequestID: "r1",
		Viewer:    entity.OverlayViewer{ID: "v1", Username: "alice"},
		Card:      entity.Card{ID: "C1", Name: "Card One", Rarity: entity.Common, SetID: "S"},
		Stats:     entity.OpeningStats{DistinctCardsInSet: 1, TotalDistinctCards: 1},
	}})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "opening-started",
		"payload": {
			"requestId": "r1",
			"viewer": {"id": "v1", "username": "alice"},
			"card": {"id": "C1", "name": "Card One", "rarity": "COMMON", "set_id": "S"},
			"stats": {"distinctCardsInSet": 1, "totalDistinctCards": 1}
		}
	}`, string(frame))

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "something-else", "requestId": "r1"}))
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": entity.EventAnimationComplete, "requestId": "r1", "result": map[string]bool{"shown": true}}))
	got := acker.next(t)
	assert.Equal(t, "r1", got.requestID)
	assert.JSONEq(t, `{"shown":true}`, string(got.result))

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Stats().ActiveClients == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestAckUsesOutboundRequestIDKey(t *testing.T) {
	// an overlay echoes the key it was sent
	outbound, err := json.Marshal(entity.OpeningComplete{RequestID: "r1"})
	require.NoError(t, err)
	var inbound entity.AnimationComplete
	require.NoError(t, json.Unmarshal(outbound, &inbound))
	assert.Equal(t, "r1", inbound.RequestID)
}

func TestSSEOverlay(t *testing.T) {
	hub, server := newOverlayServer(t, newMockAcknowledger())

	resp, err := http.Get(server.URL + "/api/overlay/stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	require.Eventually(t, func() bool { return hub.Stats().ActiveClients == 1 }, 2*time.Second, 5*time.Millisecond)

	hub.Broadcast(entity.OverlayEvent{Type: entity.EventOpeningError, Payload: entity.OpeningError{RequestID: "r9", Message: "boom"}})

	lines := make(chan string, 8)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()
	var received []string
	timeout := time.After(2 * time.Second)
	for len(received) < 2 {
		select {
		case line, ok := <-lines:
			require.True(t, ok, "stream ended early")
			if line != "" {
				received = append(received, line)
			}
		case <-timeout:
			t.Fatalf("incomplete event, got %v", received)
		}
	}
	assert.Equal(t, "event:opening-error", received[0])
	assert.JSONEq(t, `{"requestId":"r9","message":"boom"}`, strings.TrimPrefix(received[1], "data:"))
}

func TestAnimationCompleteEndpoint(t *testing.T) {
	acker := newMockAcknowledger("r1")
	router := test.MockRouter()
	APIHandlers(router, runHub(t), acker, log.Nop())

	tests := []struct {
		name    string
		body    interface{}
		status  int
		resolve bool
	}{
		{"pending request", map[string]string{"type": entity.EventAnimationComplete, "requestId": "r1"}, http.StatusAccepted, true},
		{"repeated ack", map[string]string{"type": entity.EventAnimationComplete, "requestId": "r1"}, http.StatusAccepted, false},
		{"unknown request", map[string]string{"requestId": "ghost"}, http.StatusAccepted, false},
		{"missing request id", map[string]string{"type": entity.EventAnimationComplete}, http.StatusBadRequest, false},
		{"snake case request id", map[string]string{"type": entity.EventAnimationComplete, "request_id": "r1"}, http.StatusBadRequest, false},
		{"malformed body", []byte("{"), http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := test.ExecuteAPITest(t, router, test.RequestAPITest{
				Method:       http.MethodPost,
				Path:         "/api/overlay/animation-complete",
				Body:         tt.body,
				WantResponse: []int{tt.status},
			})
			if tt.status == http.StatusAccepted {
				assert.JSONEq(t, `{"acknowledged":`+map[bool]string{true: "true", false: "false"}[tt.resolve]+`}`, w.Body.String())
			}
		})
	}
}
