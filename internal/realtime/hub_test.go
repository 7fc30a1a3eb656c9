package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func startHubServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.AddClient(conn)
		_ = hub.Send(conn, map[string]string{"type": "hello"})

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				hub.RemoveClient(conn)
				return
			}
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitClients(t *testing.T, hub *Hub, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Len() != want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, got %d", want, hub.Len())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// TestHubBroadcast проверяет доставку рассылки всем клиентам.
func TestHubBroadcast(t *testing.T) {
	hub := NewHub()
	server := startHubServer(t, hub)

	first := dial(t, server)
	second := dial(t, server)
	waitClients(t, hub, 2)

	for _, conn := range []*websocket.Conn{first, second} {
		var hello map[string]string
		if err := conn.ReadJSON(&hello); err != nil || hello["type"] != "hello" {
			t.Fatalf("expected hello message, got %v (%v)", hello, err)
		}
	}

	hub.BroadcastJSON(map[string]any{"symbol": "VOO", "price": 512.3})

	for _, conn := range []*websocket.Conn{first, second} {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("expected broadcast, got error %v", err)
		}
		if msg["symbol"] != "VOO" {
			t.Fatalf("expected VOO, got %v", msg["symbol"])
		}
	}
}

// TestHubRemovesClosedClient проверяет удаление отключившегося клиента.
func TestHubRemovesClosedClient(t *testing.T) {
	hub := NewHub()
	server := startHubServer(t, hub)

	conn := dial(t, server)
	waitClients(t, hub, 1)

	_ = conn.Close()
	waitClients(t, hub, 0)
}
