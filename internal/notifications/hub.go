package notifications

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"example.com/networth-optimizer/web/internal/models"
)

// Event is an auth-state change pushed to every open stream of a key. Keys
// are user ids for account-wide events and browser ids for sign-in and
// sign-out. User is nil for SIGNED_OUT.
type Event struct {
	Type      string       `json:"type"`
	Timestamp time.Time    `json:"timestamp"`
	User      *models.User `json:"user"`
}

type Hub struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]map[chan Event]struct{}
}

// NewHub создает хаб для SSE-подписок.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[uuid.UUID]map[chan Event]struct{}),
	}
}

// Subscribe подписывает ключ на события и возвращает канал и функцию отписки.
func (h *Hub) Subscribe(key uuid.UUID) (<-chan Event, func()) {
	ch := make(chan Event, 10)

	h.mu.Lock()
	defer h.mu.Unlock()

	keySubs, ok := h.subscribers[key]
	if !ok {
		keySubs = make(map[chan Event]struct{})
		h.subscribers[key] = keySubs
	}
	keySubs[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()

			if subs, exists := h.subscribers[key]; exists {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(h.subscribers, key)
				}
			}
			close(ch)
		})
	}
}

// Publish отправляет событие всем подписчикам ключа. Медленные
// подписчики пропускают событие.
func (h *Hub) Publish(key uuid.UUID, eventType string, user *models.User) {
	event := Event{Type: eventType, Timestamp: time.Now().UTC()}
	if user != nil {
		copied := *user
		event.User = &copied
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	subs, ok := h.subscribers[key]
	if !ok {
		return
	}

	for ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribers возвращает число открытых потоков ключа.
func (h *Hub) Subscribers(key uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[key])
}
