package hub

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-facerig/internal/log"
)

// Hub maintains the set of active viewers and broadcasts frames to them
type Hub struct {
	// Name for logging
	name string

	// Registered clients
	clients map[*Client]bool

	// Inbound messages to broadcast
	broadcast chan Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	mu      sync.RWMutex
	running atomic.Bool

	sent    atomic.Uint64
	dropped atomic.Uint64
}

// Stats holds delivery counters
type Stats struct {
	Clients int    `json:"clients"`
	Sent    uint64 `json:"sent"`
	Dropped uint64 `json:"dropped"`
}

// New creates a new Hub
func New(name string) *Hub {
	return &Hub{
		name:       name,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop and returns when ctx is cancelled.
// This should be called once, in a goroutine.
func (h *Hub) Run(ctx context.Context) {
	h.running.Store(true)
	defer func() {
		h.running.Store(false)
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			log.Info("viewer connected", "hub", h.name, "session", client.session, "total", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			log.Info("viewer disconnected", "hub", h.name, "remaining", count)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !message.matches(client.session) {
					continue
				}
				select {
				case client.send <- message:
					h.sent.Add(1)
				default:
					// too slow, drop the viewer
					close(client.send)
					delete(h.clients, client)
					h.dropped.Add(1)
					log.Warn("dropped slow viewer", "hub", h.name)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues a message for all matching viewers
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.dropped.Add(1)
		log.Warn("broadcast channel full, dropping frame", "hub", h.name)
	}
}

// BroadcastJSON encodes and broadcasts v for a session
func (h *Hub) BroadcastJSON(session string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(NewMessage(session, data))
	return nil
}

// ClientCount returns the number of connected viewers
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsRunning returns whether the hub loop is active
func (h *Hub) IsRunning() bool {
	return h.running.Load()
}

// Stats returns delivery counters
func (h *Hub) Stats() Stats {
	return Stats{
		Clients: h.ClientCount(),
		Sent:    h.sent.Load(),
		Dropped: h.dropped.Load(),
	}
}
