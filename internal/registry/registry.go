// Package registry tracks which locally-connected clients belong to which
// room. It is the only shared mutable structure in the process; everything
// cross-instance goes through the broadcast bus instead.
package registry

import (
	"sync"
)

// Client is one live connection's delivery channel. The connection gateway
// owns the channel exclusively; the registry only ever sends to it.
type Client struct {
	Send chan []byte
}

// NewClient creates a client with a buffered delivery channel.
func NewClient(buffer int) *Client {
	return &Client{Send: make(chan []byte, buffer)}
}

// Registry maps room ids to the clients connected to this process. A single
// readers/writer lock guards the whole map, never per-room locks, so that
// dropping a room the moment its last client leaves stays atomic with the
// deregistration itself.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string][]*Client
}

func New() *Registry {
	return &Registry{rooms: make(map[string][]*Client)}
}

// Register adds c to the room, creating the room entry if absent.
func (r *Registry) Register(roomID string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rooms[roomID] = append(r.rooms[roomID], c)
}

// Deregister removes c from the room by identity. Channels are not
// comparable by content, so the pointer is what identifies a client.
// The room entry is deleted entirely once its last client is gone.
func (r *Registry) Deregister(roomID string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	clients := r.rooms[roomID]
	for i, existing := range clients {
		if existing == c {
			clients = append(clients[:i], clients[i+1:]...)
			break
		}
	}

	if len(clients) == 0 {
		delete(r.rooms, roomID)
		return
	}
	r.rooms[roomID] = clients
}

// FanoutLocal delivers payload to every client currently registered for the
// room. Delivery is best-effort: a client whose buffer is full or whose
// receiver has gone away is skipped, and no error surfaces to the publisher.
func (r *Registry) FanoutLocal(roomID string, payload []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.rooms[roomID] {
		select {
		case c.Send <- payload:
		default:
		}
	}
}

// HasRoom reports whether any local client holds the room.
func (r *Registry) HasRoom(roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.rooms[roomID]
	return ok
}

// ClientCount returns the number of local clients in the room.
func (r *Registry) ClientCount(roomID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms[roomID])
}
