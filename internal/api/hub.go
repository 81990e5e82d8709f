// Live feed of recorded events to websocket and SSE spectators.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	sendBuffer = 256
	writeWait  = 10 * time.Second
)

// Message is the envelope for every streamed record.
type Message struct {
	Type    string `json:"type"`
	Run     string `json:"run"`
	Payload any    `json:"payload"`
}

type client struct {
	send chan []byte
}

// Hub fans published messages out to every connected spectator. Run owns
// the client set.
type Hub struct {
	RunID string
	// CheckOrigin vets websocket origins; nil allows same-origin only.
	CheckOrigin func(r *http.Request) bool

	clients    map[*client]bool
	count      atomic.Int32
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}
}

// NewHub creates a hub for one run. Call Run before connecting clients.
func NewHub(runID string) *Hub {
	return &Hub{
		RunID:      runID,
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, sendBuffer),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
}

// Run serves registrations and broadcasts until ctx is done, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			h.count.Add(1)
		case c := <-h.unregister:
			h.drop(c)
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					slog.Warn("spectator too slow, dropping")
					h.drop(c)
				}
			}
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return
		}
	}
}

func (h *Hub) drop(c *client) {
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
		h.count.Add(-1)
	}
}

// Clients returns how many spectators are connected.
func (h *Hub) Clients() int { return int(h.count.Load()) }

// Publish queues a message for every spectator. It never blocks the
// caller; messages are dropped when the queue is full or the hub stopped.
func (h *Hub) Publish(kind string, payload any) {
	data, err := json.Marshal(Message{Type: kind, Run: h.RunID, Payload: payload})
	if err != nil {
		slog.Error("encode feed message", "type", kind, "error", err)
		return
	}
	select {
	case h.broadcast <- data:
	case <-h.done:
	default:
		slog.Warn("feed queue full, dropping message", "type", kind)
	}
}

func (h *Hub) subscribe() (*client, bool) {
	c := &client{send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
		return c, true
	case <-h.done:
		return nil, false
	}
}

func (h *Hub) unsubscribe(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ServeWs upgrades a spectator to a websocket and streams the feed to it.
// Anything the spectator sends is discarded.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.CheckOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	c, ok := h.subscribe()
	if !ok {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "run over"), time.Now().Add(writeWait))
		conn.Close()
		return
	}
	slog.Info("websocket spectator connected", "remote", r.RemoteAddr)

	go h.writePump(conn, c)
	go h.readPump(conn, c)
}

func (h *Hub) readPump(conn *websocket.Conn, c *client) {
	defer func() {
		h.unsubscribe(c)
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket read", "error", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(conn *websocket.Conn, c *client) {
	defer conn.Close()
	for msg := range c.send {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
