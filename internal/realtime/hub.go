package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 5 * time.Second

// client serializes writes; a websocket connection allows one writer at a time.
type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *client) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(v)
}

// Hub fans out market quotes to every connected websocket.
type Hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]*client
}

// NewHub создает хаб websocket-клиентов.
func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]*client)}
}

// AddClient регистрирует соединение.
func (h *Hub) AddClient(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = &client{conn: conn}
	h.mu.Unlock()
}

// RemoveClient удаляет и закрывает соединение.
func (h *Hub) RemoveClient(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()

	if ok {
		_ = conn.Close()
	}
}

// Send пишет сообщение одному клиенту.
func (h *Hub) Send(conn *websocket.Conn, v any) error {
	h.mu.RLock()
	c, ok := h.clients[conn]
	h.mu.RUnlock()

	if !ok {
		return websocket.ErrCloseSent
	}
	return c.writeJSON(v)
}

// BroadcastJSON отправляет сообщение всем клиентам; сломанные соединения удаляются.
func (h *Hub) BroadcastJSON(v any) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.writeJSON(v); err != nil {
			h.RemoveClient(c.conn)
		}
	}
}

// Len возвращает число подключенных клиентов.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
