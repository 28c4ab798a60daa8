package websocket

import (
	"fmt"
	"sync"

	"github.com/kalastudio/concierge/utils/log"
)

// Hub tracks the connected companion sessions. Registration flows through
// channels owned by run(); lookups take the mutex, so they are safe from
// any goroutine (the action forwarders use SendToSession concurrently).
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub
func (h *Hub) Run() {
	go h.run()
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.WithCtx(client.ctx).Debug("New client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client]
			delete(h.clients, client)
			h.mu.Unlock()
			if ok {
				client.Close()
				log.WithCtx(client.ctx).Debug("Client unregistered")
			}
		}
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// SendToSession sends a message to a specific client by session ID
func (h *Hub) SendToSession(sessionID string, message []byte) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if client.sessionID == sessionID && !client.IsClosed() {
			return client.SendMessage(message)
		}
	}
	return fmt.Errorf("client with session ID %s not found", sessionID)
}

// IsSessionConnected checks if a session is already connected
func (h *Hub) IsSessionConnected(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if client.sessionID == sessionID && !client.IsClosed() {
			return true
		}
	}
	return false
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
