package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/networth-optimizer/web/internal/auth"
	"example.com/networth-optimizer/web/internal/identity"
	"example.com/networth-optimizer/web/internal/notifications"
)

const (
	deviceCookie      = "nwo_device"
	deviceCookieAge   = 365 * 24 * time.Hour
	keepAliveInterval = 25 * time.Second
)

// UserFetcher resolves the user behind a provider access token.
type UserFetcher interface {
	GetUser(ctx context.Context, accessToken string) (identity.User, error)
}

type EventsHandler struct {
	Hub   *notifications.Hub
	Users UserFetcher
}

// NewEventsHandler создает SSE-обработчик событий авторизации.
func NewEventsHandler(hub *notifications.Hub, users UserFetcher) *EventsHandler {
	return &EventsHandler{Hub: hub, Users: users}
}

type StreamEvent struct {
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	auth.Snapshot
}

// Stream открывает SSE-поток состояния авторизации. Первым всегда приходит
// INITIAL_SESSION; он отправляется, как только разрешится начальная загрузка
// сессии или придет первое событие.
func (h *EventsHandler) Stream(c echo.Context) error {
	ctx := c.Request().Context()

	deviceEvents, unsubscribeDevice := h.Hub.Subscribe(deviceID(c))
	defer unsubscribeDevice()

	var userEvents <-chan notifications.Event
	session, loggedIn := auth.SessionFromContext(c)
	if loggedIn {
		ch, unsubscribeUser := h.Hub.Subscribe(session.User.ID)
		defer unsubscribeUser()
		userEvents = ch
	}

	// Поток живет дольше WriteTimeout сервера. Писатели без поддержки
	// дедлайнов оставляют таймаут как есть, и браузер переподключается.
	_ = http.NewResponseController(c.Response().Writer).SetWriteDeadline(time.Time{})

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
	c.Response().WriteHeader(http.StatusOK)

	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return nil
	}

	state := auth.NewState()
	go h.resolveInitial(ctx, state, session.AccessToken, loggedIn)

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	ready := state.Ready()
	sentInitial := false
	sendInitial := func() error {
		sentInitial = true
		ready = nil
		return writeSSE(c, StreamEvent{
			Event:     string(auth.EventInitialSession),
			Timestamp: time.Now().UTC(),
			Snapshot:  state.Snapshot(),
		})
	}
	forward := func(event notifications.Event) error {
		state.Apply(auth.Event(event.Type), event.User)
		if !sentInitial {
			if err := sendInitial(); err != nil {
				return err
			}
		}
		return writeSSE(c, StreamEvent{
			Event:     event.Type,
			Timestamp: event.Timestamp,
			Snapshot:  state.Snapshot(),
		})
	}

	for {
		var err error
		select {
		case <-ctx.Done():
			return nil
		case <-ready:
			err = sendInitial()
		case event, ok := <-deviceEvents:
			if !ok {
				return nil
			}
			err = forward(event)
		case event, ok := <-userEvents:
			if !ok {
				return nil
			}
			err = forward(event)
		case <-keepAlive.C:
			_, err = c.Response().Write([]byte(": keep-alive\n\n"))
		}
		if err != nil {
			return nil
		}
		flusher.Flush()
	}
}

// resolveInitial загружает пользователя сессии у провайдера. Ошибка
// загрузки означает, что пользователь не вошел.
func (h *EventsHandler) resolveInitial(ctx context.Context, state *auth.State, accessToken string, loggedIn bool) {
	if !loggedIn || h.Users == nil {
		state.Resolve(nil, nil)
		return
	}

	user, err := h.Users.GetUser(ctx, accessToken)
	if err != nil {
		state.Resolve(nil, err)
		return
	}

	model := user.Model()
	state.Resolve(&model, nil)
}

func writeSSE(c echo.Context, event StreamEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if _, err := c.Response().Write([]byte("event: " + event.Event + "\n")); err != nil {
		return err
	}
	if _, err := c.Response().Write([]byte("data: " + string(payload) + "\n\n")); err != nil {
		return err
	}

	return nil
}

// deviceID returns the browser id from its cookie and issues one on first
// use. Sign-in and sign-out events are published per browser.
func deviceID(c echo.Context) uuid.UUID {
	if id, ok := c.Get(deviceCookie).(uuid.UUID); ok {
		return id
	}
	if cookie, err := c.Cookie(deviceCookie); err == nil {
		if id, err := uuid.Parse(cookie.Value); err == nil {
			c.Set(deviceCookie, id)
			return id
		}
	}

	id := uuid.New()
	c.Set(deviceCookie, id)
	c.SetCookie(&http.Cookie{
		Name:     deviceCookie,
		Value:    id.String(),
		Path:     "/",
		MaxAge:   int(deviceCookieAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}
