package view

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	clientBuffer = 32
)

type client struct {
	conn *websocket.Conn
	send chan Update
}

// Hub pushes updates to every websocket attached to one session.
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	clients  map[*client]struct{}
}

// NewHub builds a hub. checkOrigin may be nil to accept only same-origin
// requests (the gorilla default).
func NewHub(checkOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		clients: make(map[*client]struct{}),
	}
}

// Serve upgrades the request, sends the rendering returned by current, and
// then streams updates until the peer goes away. The client is registered
// before current is called, so nothing emitted in between is lost.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, current func() Rendered) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{conn: conn, send: make(chan Update, clientBuffer)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(current()); err != nil {
		h.remove(c)
		return err
	}

	go h.writeLoop(c)

	// Reads only detect the peer closing; clients send nothing.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(c)
	return nil
}

func (h *Hub) writeLoop(c *client) {
	for u := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(u); err != nil {
			log.Printf("view hub: write failed: %v", err)
			h.remove(c)
			return
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	c.conn.Close()
}

// Apply queues u for every client. Slow clients drop updates rather than
// stall the session.
func (h *Hub) Apply(u Update) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- u:
		default:
			log.Printf("view hub: client buffer full, dropping %s update", u.Kind)
		}
	}
}

// Clients returns the number of attached websockets.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
		c.conn.Close()
	}
}
