package auth

import (
	"sync"

	"example.com/networth-optimizer/web/internal/models"
)

type Event string

const (
	EventInitialSession   Event = "INITIAL_SESSION"
	EventSignedIn         Event = "SIGNED_IN"
	EventSignedOut        Event = "SIGNED_OUT"
	EventTokenRefreshed   Event = "TOKEN_REFRESHED"
	EventUserUpdated      Event = "USER_UPDATED"
	EventPasswordRecovery Event = "PASSWORD_RECOVERY"
)

// State reconciles two sources of the current user: pushed auth events and a
// one-shot initial session fetch. Whichever resolves first ends loading; the
// latest write is kept.
type State struct {
	mu      sync.RWMutex
	user    *models.User
	loading bool
	ready   chan struct{}
}

type Snapshot struct {
	User    *models.User `json:"user"`
	Loading bool         `json:"loading"`
}

// NewState создает состояние в режиме загрузки.
func NewState() *State {
	return &State{
		loading: true,
		ready:   make(chan struct{}),
	}
}

// Apply применяет событие из подписки.
func (s *State) Apply(event Event, user *models.User) {
	if event == EventSignedOut {
		user = nil
	}
	s.set(user, true)
}

// Resolve применяет результат начальной загрузки сессии. Ошибка не меняет
// пользователя, но завершает загрузку.
func (s *State) Resolve(user *models.User, err error) {
	s.set(user, err == nil)
}

// Snapshot возвращает текущего пользователя и признак загрузки.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := Snapshot{Loading: s.loading}
	if s.user != nil {
		user := *s.user
		out.User = &user
	}
	return out
}

// Ready закрывается, когда загрузка завершена.
func (s *State) Ready() <-chan struct{} {
	return s.ready
}

func (s *State) set(user *models.User, write bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if write {
		if user == nil {
			s.user = nil
		} else {
			copied := *user
			s.user = &copied
		}
	}

	if s.loading {
		s.loading = false
		close(s.ready)
	}
}
