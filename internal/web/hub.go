package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const (
	writeWait   = 10 * time.Second
	sendBuffer  = 64
	publishSize = 1024
)

// Message is the JSON frame sent to websocket clients.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type envelope struct {
	session string
	msg     Message
}

type client struct {
	hub     *Hub
	conn    *websocket.Conn
	session string
	send    chan Message
}

// Hub fans import progress out to the websocket clients of the session that started the import.
type Hub struct {
	upgrader   websocket.Upgrader
	logger     *log.Logger
	clients    map[string]map[*client]bool
	broadcast  chan envelope
	register   chan *client
	unregister chan *client
	done       chan struct{}
	mu         sync.Mutex
}

// NewHub creates a hub. It does nothing until [Hub.Run] is started.
func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		upgrader:   websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
		logger:     logger,
		clients:    make(map[string]map[*client]bool),
		broadcast:  make(chan envelope, publishSize),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
}

// Run dispatches registrations and messages until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for session, set := range h.clients {
				for c := range set {
					close(c.send)
				}
				delete(h.clients, session)
			}
			h.mu.Unlock()
			return
		case c := <-h.register:
			h.mu.Lock()
			if h.clients[c.session] == nil {
				h.clients[c.session] = make(map[*client]bool)
			}
			h.clients[c.session][c] = true
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			h.remove(c)
			h.mu.Unlock()
		case e := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients[e.session] {
				select {
				case c.send <- e.msg:
				default:
					h.logger.Warn("websocket client too slow, disconnecting", "session_id", e.session)
					c.conn.Close()
					h.remove(c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with mu held.
func (h *Hub) remove(c *client) {
	set, ok := h.clients[c.session]
	if !ok || !set[c] {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.session)
	}
}

// Publish queues msg for every client of session. It never blocks; when the queue is full the message is dropped.
func (h *Hub) Publish(session string, msg Message) {
	select {
	case h.broadcast <- envelope{session: session, msg: msg}:
	default:
		h.logger.Warn("websocket queue full, dropping message", "session_id", session, "type", msg.Type)
	}
}

// Clients returns the number of connected clients for session.
func (h *Hub) Clients(session string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[session])
}

// ServeWS upgrades the request and subscribes the connection to session.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, session string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	c := &client{hub: h, conn: conn, session: session, send: make(chan Message, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (c *client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			c.hub.logger.Debug("websocket write failed", "err", err)
			break
		}
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// readPump discards client frames; it exists to notice the peer going away.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
