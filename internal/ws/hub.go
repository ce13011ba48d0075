package ws

import (
	"encoding/json"
	"sync"
)

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// batchEvent is an internal struct for routing events to specific batch rooms
type batchEvent struct {
	BatchID string
	Event   Event
}

// Hub maintains the set of active clients and broadcasts messages to them.
// Admin dashboards subscribe to a batch and receive order events as
// households submit. The feed is advisory only; the database remains the
// source of truth.
type Hub struct {
	// Registered clients by batch ID
	rooms map[string]map[*Client]bool

	// Inbound messages from clients (register/unregister)
	register   chan *Client
	unregister chan *Client

	// Outbound messages to broadcast
	broadcast chan *batchEvent

	// Mutex for thread-safe room access
	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *batchEvent, 256),
	}
}

// Run starts the hub's main loop
// This should be called as a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.batchID] == nil {
				h.rooms[client.batchID] = make(map[*Client]bool)
			}
			h.rooms[client.batchID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.batchID]; ok {
				if _, exists := clients[client]; exists {
					delete(clients, client)
					close(client.send)
					// Clean up empty rooms
					if len(clients) == 0 {
						delete(h.rooms, client.batchID)
					}
				}
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.Lock()
			clients := h.rooms[event.BatchID]

			// Marshal event to JSON once
			message, err := json.Marshal(event.Event)
			if err != nil {
				h.mu.Unlock()
				continue
			}

			// Send to all clients in this batch's room
			for client := range clients {
				select {
				case client.send <- message:
				default:
					// Client's send buffer is full, close and unregister
					close(client.send)
					delete(h.rooms[event.BatchID], client)
					if len(h.rooms[event.BatchID]) == 0 {
						delete(h.rooms, event.BatchID)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastToBatch sends an event to all clients subscribed to a specific batch
// This is the public API for handlers to broadcast events
func (h *Hub) BroadcastToBatch(batchID string, event Event) {
	h.broadcast <- &batchEvent{
		BatchID: batchID,
		Event:   event,
	}
}
