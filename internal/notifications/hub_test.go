package notifications

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"example.com/networth-optimizer/web/internal/models"
)

// TestHubPublishSubscribe проверяет доставку событий подписчику.
func TestHubPublishSubscribe(t *testing.T) {
	hub := NewHub()
	user := models.User{ID: uuid.New(), Email: "ann@example.com"}

	ch, unsubscribe := hub.Subscribe(user.ID)
	defer unsubscribe()

	hub.Publish(user.ID, "USER_UPDATED", &user)

	select {
	case event := <-ch:
		if event.Type != "USER_UPDATED" {
			t.Fatalf("expected event type USER_UPDATED, got %s", event.Type)
		}
		if event.Timestamp.IsZero() {
			t.Fatal("expected timestamp to be set")
		}
		if event.User == nil || event.User.Email != user.Email {
			t.Fatalf("expected user payload, got %+v", event.User)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected event to be delivered")
	}
}

// TestHubSignedOutHasNoUser проверяет пустого пользователя в событии выхода.
func TestHubSignedOutHasNoUser(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()

	ch, unsubscribe := hub.Subscribe(userID)
	defer unsubscribe()

	hub.Publish(userID, "SIGNED_OUT", nil)

	event := <-ch
	if event.User != nil {
		t.Fatalf("expected nil user, got %+v", event.User)
	}
}

// TestHubIsolatesUsers проверяет, что события не уходят чужим подписчикам.
func TestHubIsolatesUsers(t *testing.T) {
	hub := NewHub()

	ch, unsubscribe := hub.Subscribe(uuid.New())
	defer unsubscribe()

	hub.Publish(uuid.New(), "SIGNED_IN", nil)

	select {
	case event := <-ch:
		t.Fatalf("expected no event, got %+v", event)
	default:
	}
}

// TestHubUnsubscribe проверяет закрытие канала после отписки.
func TestHubUnsubscribe(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()

	ch, unsubscribe := hub.Subscribe(userID)
	unsubscribe()
	unsubscribe()

	if _, ok := <-ch; ok {
		t.Fatal("expected channel to be closed")
	}
	if hub.Subscribers(userID) != 0 {
		t.Fatalf("expected no subscribers, got %d", hub.Subscribers(userID))
	}
}
