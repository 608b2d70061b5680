// Package ws streams domain events and state changes to websocket clients.
package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nathoo/idlecore/engine/events"
	"github.com/nathoo/idlecore/engine/store"
	"github.com/nathoo/idlecore/types"
)

// Message types sent to clients.
const (
	TypeSnapshot = "snapshot"
	TypeEvent    = "event"
	TypeChange   = "change"
)

const (
	sendBuffer = 64
	writeWait  = 5 * time.Second
)

// Message is the envelope written to every client.
type Message struct {
	Type   string           `json:"type"`
	Event  *types.Event     `json:"event,omitempty"`
	Action string           `json:"action,omitempty"`
	Paths  []string         `json:"paths,omitempty"`
	State  *types.GameState `json:"state,omitempty"`
}

// Source is the part of the game facade the feed reads from.
type Source interface {
	State() *types.GameState
	Events() *events.Bus
	Subscribe(paths []string, fn store.Listener) (unsubscribe func())
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub fans messages out to connected clients. A client whose buffer is full
// is dropped.
type Hub struct {
	src      Source
	log      *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	detach  []func()
}

// NewHub builds a hub over src. Call Attach to start forwarding.
func NewHub(src Source, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		src: src,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Attach subscribes to the event bus and, when withChanges is set, to every
// committed state change. Detach undoes both.
func (h *Hub) Attach(withChanges bool) {
	unsub := h.src.Events().Subscribe(func(e types.Event) {
		h.Broadcast(Message{Type: TypeEvent, Event: &e})
	})
	h.mu.Lock()
	h.detach = append(h.detach, unsub)
	h.mu.Unlock()

	if !withChanges {
		return
	}
	first := true
	unsubState := h.src.Subscribe([]string{store.PathAll}, func(c store.Change) {
		// the initial call replays current state, which Handle already sends
		if first {
			first = false
			return
		}
		h.Broadcast(Message{Type: TypeChange, Action: c.Action, Paths: c.Paths})
	})
	h.mu.Lock()
	h.detach = append(h.detach, unsubState)
	h.mu.Unlock()
}

// Detach stops forwarding and disconnects every client.
func (h *Hub) Detach() {
	h.mu.Lock()
	detach := h.detach
	h.detach = nil
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for _, fn := range detach {
		fn()
	}
	for c := range clients {
		c.close()
	}
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues msg for every client.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("encode ws message", "type", msg.Type, "error", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.log.Warn("ws client too slow, dropping", "remote", c.conn.RemoteAddr().String())
			delete(h.clients, c)
			c.close()
		}
	}
}

// Handle upgrades the request, sends a state snapshot and keeps the client
// registered until the connection closes.
func (h *Hub) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	snapshot, err := json.Marshal(Message{Type: TypeSnapshot, State: h.src.State()})
	if err != nil {
		h.log.Error("encode snapshot", "error", err)
		conn.Close()
		return
	}
	c.send <- snapshot

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.log.Info("ws client connected", "remote", conn.RemoteAddr().String())

	go h.writeLoop(c)
	h.readLoop(c)
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.Debug("ws write failed", "error", err)
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// readLoop discards client input; it exists to notice disconnects.
func (h *Hub) readLoop(c *client) {
	defer func() {
		h.mu.Lock()
		_, ok := h.clients[c]
		delete(h.clients, c)
		h.mu.Unlock()
		if ok {
			c.close()
		}
		h.log.Info("ws client disconnected", "remote", c.conn.RemoteAddr().String())
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
