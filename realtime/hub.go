// Package realtime implements the live broadcast channel dashboards subscribe
// to. Delivery is at-most-once and in-memory only: nothing is persisted, and a
// subscriber that connects after an event was published never sees it.
package realtime

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
)

// Envelope is the wire form of every broadcast message.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Client is one connected subscriber. Messages are delivered through a
// buffered channel; the transport layer drains it with a write pump.
type Client struct {
	id        string
	send      chan []byte
	closeOnce sync.Once
}

func NewClient() *Client {
	return &Client{
		id:   uuid.NewString(),
		send: make(chan []byte, 16),
	}
}

// ID identifies the client in connection logs.
func (c *Client) ID() string {
	return c.id
}

// Send exposes the delivery channel to the transport's write pump. The
// channel is closed when the client is unregistered.
func (c *Client) Send() <-chan []byte {
	return c.send
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.send) })
}

// Hub fans events out to connected clients, optionally scoped to a named
// subject room. A slow client whose buffer is full has the message dropped
// rather than blocking the publisher.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		rooms:   make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for room, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	c.close()
}

// Join adds a registered client to a subject room.
func (h *Hub) Join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][c] = struct{}{}
}

func (h *Hub) Leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members := h.rooms[room]
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// Broadcast delivers an event to every connected client.
func (h *Hub) Broadcast(event string, data interface{}) {
	msg, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		log.Printf("realtime: failed to marshal %s event: %v", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		deliver(c, msg)
	}
}

// BroadcastToRoom delivers an event only to clients that joined the room.
func (h *Hub) BroadcastToRoom(room, event string, data interface{}) {
	msg, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		log.Printf("realtime: failed to marshal %s event: %v", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[room] {
		deliver(c, msg)
	}
}

// ClientCount reports connected subscribers, for the health endpoint.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func deliver(c *Client, msg []byte) {
	select {
	case c.send <- msg:
	default:
		// Buffer full: drop the message. At-most-once, never block publish.
	}
}
