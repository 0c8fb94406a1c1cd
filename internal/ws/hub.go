package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"

	"kasturi-ledger/pkg/logger"
)

const broadcastBuffer = 256

// Message is the envelope every feed event is sent in.
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

type Hub struct {
	Clients    map[*websocket.Conn]bool
	Register   chan *websocket.Conn
	Unregister chan *websocket.Conn
	Broadcast  chan []byte
	mutex      sync.Mutex
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		Clients:    make(map[*websocket.Conn]bool),
		Register:   make(chan *websocket.Conn),
		Unregister: make(chan *websocket.Conn),
		Broadcast:  make(chan []byte, broadcastBuffer),
		done:       make(chan struct{}),
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Join registers conn. It reports false when the hub has already stopped.
func (h *Hub) Join(conn *websocket.Conn) bool {
	select {
	case h.Register <- conn:
		return true
	case <-h.done:
		return false
	}
}

// Leave unregisters conn; after shutdown it returns immediately.
func (h *Hub) Leave(conn *websocket.Conn) {
	select {
	case h.Unregister <- conn:
	case <-h.done:
	}
}

// Publish queues event for every connected client. It never blocks the
// caller; events are dropped when the hub is backed up.
func (h *Hub) Publish(event string, payload interface{}) {
	msg, err := json.Marshal(Message{Type: event, Data: payload, Timestamp: time.Now()})
	if err != nil {
		logger.Errorf("ws: marshal %s: %v", event, err)
		return
	}

	select {
	case h.Broadcast <- msg:
	default:
		logger.Warnf("ws: broadcast queue full, dropping %s", event)
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.Clients)
}

// Run serves register, unregister and broadcast requests until ctx ends,
// then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for conn := range h.Clients {
				conn.Close()
				delete(h.Clients, conn)
			}
			h.mutex.Unlock()
			return

		case conn := <-h.Register:
			h.mutex.Lock()
			h.Clients[conn] = true
			h.mutex.Unlock()
			logger.Debugf("ws client connected")

		case conn := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.Clients[conn]; ok {
				delete(h.Clients, conn)
				conn.Close()
			}
			h.mutex.Unlock()

		case message := <-h.Broadcast:
			h.mutex.Lock()
			for conn := range h.Clients {
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					conn.Close()
					delete(h.Clients, conn)
				}
			}
			h.mutex.Unlock()
		}
	}
}
