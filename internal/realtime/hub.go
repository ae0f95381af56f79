package realtime

import (
	"log"
	"sync"

	"presence-hub-api/internal/events"
)

// Client represents a single websocket client connection.
// We keep it minimal here; the actual network conn is managed in the ws handler.
type Client interface {
	Send(message []byte) bool
	Close()
}

// Hub maintains the live connections and delivers outbound event frames.
// Delivery is best-effort: a send to a connection that is gone, or whose
// write fails, is dropped without surfacing an error to the caller.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]Client
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]Client),
	}
}

// Register adds a client under its connection ID.
func (h *Hub) Register(connectionID string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[connectionID] = client
}

// Unregister removes a client. The ws handler owns closing the conn.
func (h *Hub) Unregister(connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, connectionID)
}

// Emit sends one event frame to one connection. Returns false when the
// connection is unknown or the write failed.
func (h *Hub) Emit(connectionID, event string, data any) bool {
	frame, err := events.Encode(event, data)
	if err != nil {
		log.Printf("Failed to encode %s event: %v", event, err)
		return false
	}

	h.mu.RLock()
	client, ok := h.clients[connectionID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	return client.Send(frame)
}

// EmitAll broadcasts one event frame to every connected client. The client
// set is snapshotted first so a slow write cannot hold the lock against
// register/unregister.
func (h *Hub) EmitAll(event string, data any) {
	frame, err := events.Encode(event, data)
	if err != nil {
		log.Printf("Failed to encode %s event: %v", event, err)
		return
	}

	h.mu.RLock()
	clients := make([]Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if ok := c.Send(frame); !ok {
			// client write failed; the ws handler cleans it up on its side
		}
	}
}

// EmitTo sends one event frame to an explicit list of connections,
// optionally skipping one (the sender of the inbound event).
func (h *Hub) EmitTo(connectionIDs []string, skipConnectionID, event string, data any) {
	frame, err := events.Encode(event, data)
	if err != nil {
		log.Printf("Failed to encode %s event: %v", event, err)
		return
	}

	h.mu.RLock()
	clients := make([]Client, 0, len(connectionIDs))
	for _, id := range connectionIDs {
		if id == skipConnectionID {
			continue
		}
		if c, ok := h.clients[id]; ok {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		_ = c.Send(frame)
	}
}

// Len reports the number of registered connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
