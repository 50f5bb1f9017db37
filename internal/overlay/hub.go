// Broadcast hub fanning out pack opening events to every connected overlay.

package overlay

import (
	"Cardpack/internal/entity"
	"Cardpack/pkg/log"
	"context"
	"sync"
)

// Events waiting to be fanned out before Broadcast starts dropping.
const broadcastBufferSize = 256

// Stats of the hub, reported by the health endpoint.
type Stats struct {
	ActiveClients    int   `json:"active_clients"`
	TotalConnections int64 `json:"total_connections"`
	TotalEvents      int64 `json:"total_events"`
}

// Hub maintains the set of active overlay clients and broadcasts events to them.
type Hub struct {
	// Registered clients, only written by Run
	clients   map[*Client]bool
	clientsMu sync.RWMutex

	broadcast  chan entity.OverlayEvent
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	totalConnections int64
	totalEvents      int64
	metricsMu        sync.Mutex

	logger log.Logger
}

func NewHub(logger log.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan entity.OverlayEvent, broadcastBufferSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run is the hub's main loop, it returns once ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info().Msg("Overlay hub started")
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case event := <-h.broadcast:
			h.broadcastEvent(event)
		}
	}
}

// Register adds a client, returns false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client and closes its Send channel.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues an event for every client. The event is dropped when the queue is full.
func (h *Hub) Broadcast(event entity.OverlayEvent) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn().Str("type", event.Type).Msg("Overlay broadcast buffer full, dropping event")
	}
}

func (h *Hub) Stats() Stats {
	h.clientsMu.RLock()
	active := len(h.clients)
	h.clientsMu.RUnlock()

	h.metricsMu.Lock()
	defer h.metricsMu.Unlock()
	return Stats{ActiveClients: active, TotalConnections: h.totalConnections, TotalEvents: h.totalEvents}
}

func (h *Hub) registerClient(c *Client) {
	h.clientsMu.Lock()
	h.clients[c] = true
	total := len(h.clients)
	h.clientsMu.Unlock()

	h.metricsMu.Lock()
	h.totalConnections++
	h.metricsMu.Unlock()
	h.logger.Info().Str("client", c.ID).Str("transport", c.Transport).Int("total", total).Msg("Overlay client connected")
}

func (h *Hub) unregisterClient(c *Client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.Send)
		h.logger.Info().Str("client", c.ID).Int("total", len(h.clients)).Msg("Overlay client disconnected")
	}
}

func (h *Hub) broadcastEvent(event entity.OverlayEvent) {
	h.clientsMu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clientsMu.RUnlock()

	for _, c := range clients {
		if !c.TrySend(event) {
			// too slow to keep up
			h.logger.Warn().Str("client", c.ID).Msg("Overlay client buffer full, disconnecting")
			h.unregisterClient(c)
		}
	}

	h.metricsMu.Lock()
	h.totalEvents++
	h.metricsMu.Unlock()
	h.logger.Debug().Str("type", event.Type).Int("clients", len(clients)).Msg("Overlay event broadcasted")
}

func (h *Hub) shutdown() {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	h.logger.Info().Int("clients", len(h.clients)).Msg("Shutting down overlay hub")
	for c := range h.clients {
		close(c.Send)
		delete(h.clients, c)
	}
}
