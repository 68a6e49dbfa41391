package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// Message is the WebSocket envelope format for both directions
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Connection represents one connected client. Room and Name are set by
// the read loop once the client has joined and are only touched there.
type Connection struct {
	ID   string
	Room string
	Name string
	Send chan []byte
}

type broadcastMessage struct {
	roomCode string
	data     []byte
}

// Hub tracks which connections are subscribed to which room and fans
// broadcasts out to them. A single loop drains the broadcast channel, so
// snapshots enqueued in order arrive at every subscriber in that order.
// Delivery is fire and forget: a subscriber with a full send buffer has
// the message dropped, never retried.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Connection]bool

	broadcast chan *broadcastMessage
}

// NewHub creates a new hub and starts its broadcast loop
func NewHub() *Hub {
	h := &Hub{
		rooms:     make(map[string]map[*Connection]bool),
		broadcast: make(chan *broadcastMessage, 256),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for msg := range h.broadcast {
		h.mu.RLock()
		for conn := range h.rooms[msg.roomCode] {
			select {
			case conn.Send <- msg.data:
			default:
				// Slow consumer; drop rather than block the room.
			}
		}
		h.mu.RUnlock()
	}
}

// Subscribe adds conn to roomCode's subscriber set. It returns before
// any later broadcast on the room is delivered, so a join-triggered
// snapshot always reaches the joining connection.
func (h *Hub) Subscribe(conn *Connection, roomCode string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[roomCode] == nil {
		h.rooms[roomCode] = make(map[*Connection]bool)
	}
	h.rooms[roomCode][conn] = true
	log.Printf("ws: connection %s subscribed to room %s (%d total)", conn.ID, roomCode, len(h.rooms[roomCode]))
}

// Unsubscribe removes conn from roomCode's subscriber set.
func (h *Hub) Unsubscribe(conn *Connection, roomCode string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[roomCode]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, roomCode)
		}
	}
}

// Unregister drops conn from its room, if any, and closes its send
// channel, stopping the write pump.
func (h *Hub) Unregister(conn *Connection) {
	if conn.Room != "" {
		h.Unsubscribe(conn, conn.Room)
	}
	close(conn.Send)
	log.Printf("ws: connection %s disconnected", conn.ID)
}

// Broadcast sends payload to every connection currently subscribed to
// roomCode (implements service.Broadcaster).
func (h *Hub) Broadcast(roomCode string, msgType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ws: marshal error for %s: %v", msgType, err)
		return
	}
	envelope, _ := json.Marshal(&Message{Type: msgType, Payload: data})
	h.broadcast <- &broadcastMessage{roomCode: roomCode, data: envelope}
}

// RoomSize returns the number of connections subscribed to roomCode
// (implements service.Broadcaster).
func (h *Hub) RoomSize(roomCode string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomCode])
}

// SendTo delivers a message to a single connection, bypassing room
// fan-out. Used for per-connection errors.
func (h *Hub) SendTo(conn *Connection, msgType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ws: marshal error for %s: %v", msgType, err)
		return
	}
	envelope, _ := json.Marshal(&Message{Type: msgType, Payload: data})
	select {
	case conn.Send <- envelope:
	default:
	}
}
