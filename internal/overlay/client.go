// Overlay clients connected over websocket or Server-Sent Events.

package overlay

import (
	"Cardpack/internal/entity"
	"Cardpack/pkg/log"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/xid"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 << 10

	// Buffer size for outbound events
	sendBufferSize = 64
)

// Transports an overlay can use.
const (
	TransportWebsocket = "websocket"
	TransportSSE       = "sse"
)

// Acknowledger resolves the wait for an overlay animation.
type Acknowledger interface {
	Acknowledge(requestID string, result json.RawMessage) bool
}

// Client is one connected overlay.
type Client struct {
	ID        string
	Transport string
	// Closed by the hub when the client is unregistered
	Send chan entity.OverlayEvent
	conn *websocket.Conn
}

// NewClient creates a client, conn is nil for SSE clients.
func NewClient(transport string, conn *websocket.Conn) *Client {
	return &Client{
		ID:        xid.New().String(),
		Transport: transport,
		Send:      make(chan entity.OverlayEvent, sendBufferSize),
		conn:      conn,
	}
}

// TrySend queues an event without blocking, returns false if the buffer is full.
func (c *Client) TrySend(event entity.OverlayEvent) bool {
	select {
	case c.Send <- event:
		return true
	default:
		return false
	}
}

// ReadPump reads inbound frames until the connection breaks, then unregisters the client.
func (c *Client) ReadPump(hub *Hub, acker Acknowledger, logger log.Logger) {
	defer func() {
		hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg entity.AnimationComplete
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn().Err(err).Str("client", c.ID).Msg("Overlay client closed unexpectedly")
			}
			return
		}
		if msg.Type != entity.EventAnimationComplete || msg.RequestID == "" {
			logger.Debug().Str("client", c.ID).Str("type", msg.Type).Msg("Ignoring overlay frame")
			continue
		}
		resolved := acker.Acknowledge(msg.RequestID, msg.Result)
		logger.Info().Str("client", c.ID).Str("request_id", msg.RequestID).Bool("resolved", resolved).Msg("Animation complete")
	}
}

// WritePump writes queued events and pings to the websocket.
func (c *Client) WritePump(logger log.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				logger.Warn().Err(err).Str("client", c.ID).Msg("Overlay write failed")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
