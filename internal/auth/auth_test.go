package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/networth-optimizer/web/internal/identity"
	"example.com/networth-optimizer/web/internal/models"
)

var errStoreDown = errors.New("store down")

type fakeStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]models.Session
	getErr   error
	deleted  []uuid.UUID
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: make(map[uuid.UUID]models.Session)}
}

func (s *fakeStore) Get(ctx context.Context, id uuid.UUID) (models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return models.Session{}, s.getErr
	}
	session, ok := s.sessions[id]
	if !ok {
		return models.Session{}, errors.New("not found")
	}
	return session, nil
}

func (s *fakeStore) Save(ctx context.Context, session models.Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	s.deleted = append(s.deleted, id)
	return nil
}

type fakeRefresher struct {
	session identity.Session
	err     error
	calls   int
	// during runs while the provider call is in flight.
	during func()
}

func (r *fakeRefresher) RefreshSession(ctx context.Context, refreshToken string) (identity.Session, error) {
	r.calls++
	if r.during != nil {
		r.during()
	}
	return r.session, r.err
}

func newTestManager(store SessionStore, refresher SessionRefresher) *SessionManager {
	return NewSessionManager(SessionManagerConfig{
		Tokens:     NewTokenManager("secret", "test", time.Hour),
		Store:      store,
		Refresher:  refresher,
		CookieName: "nwo_session",
	})
}

func seedSession(t *testing.T, manager *SessionManager, store *fakeStore, expiresAt time.Time) (models.Session, string) {
	t.Helper()
	session := models.Session{
		ID:           uuid.New(),
		User:         models.User{ID: uuid.New(), Email: "ann@example.com"},
		AccessToken:  "at",
		RefreshToken: "rt",
		ExpiresAt:    expiresAt,
	}
	store.sessions[session.ID] = session

	token, _, err := manager.tokens.NewSessionToken(session.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return session, token
}

func runMiddleware(manager *SessionManager, cookie string) (models.Session, bool) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: "nwo_session", Value: cookie})
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var (
		got models.Session
		ok  bool
	)
	handler := manager.Middleware()(func(c echo.Context) error {
		got, ok = SessionFromContext(c)
		return nil
	})
	_ = handler(c)
	return got, ok
}

// TestSessionTokenRoundTrip проверяет подпись и разбор токена сессии.
func TestSessionTokenRoundTrip(t *testing.T) {
	manager := NewTokenManager("secret", "test", time.Hour)
	sessionID := uuid.New()

	token, expiresAt, err := manager.NewSessionToken(sessionID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatal("expected expiry in the future")
	}

	parsed, err := manager.ParseSessionToken(token)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if parsed != sessionID {
		t.Fatalf("expected %s, got %s", sessionID, parsed)
	}

	other := NewTokenManager("other", "test", time.Hour)
	if _, err := other.ParseSessionToken(token); err == nil {
		t.Fatal("expected error for foreign secret")
	}
}

// TestMiddlewareResolvesSession проверяет загрузку сессии по cookie.
func TestMiddlewareResolvesSession(t *testing.T) {
	store := newFakeStore()
	refresher := &fakeRefresher{}
	manager := newTestManager(store, refresher)
	seeded, token := seedSession(t, manager, store, time.Now().Add(time.Hour))

	got, ok := runMiddleware(manager, token)
	if !ok {
		t.Fatal("expected session in context")
	}
	if got.ID != seeded.ID {
		t.Fatalf("expected session %s, got %s", seeded.ID, got.ID)
	}
	if refresher.calls != 0 {
		t.Fatalf("expected no refresh, got %d calls", refresher.calls)
	}
}

// TestMiddlewareFailsOpenToLoggedOut проверяет, что ошибки трактуются как выход.
func TestMiddlewareFailsOpenToLoggedOut(t *testing.T) {
	store := newFakeStore()
	manager := newTestManager(store, &fakeRefresher{})
	_, token := seedSession(t, manager, store, time.Now().Add(time.Hour))

	if _, ok := runMiddleware(manager, "garbage"); ok {
		t.Fatal("expected no session for invalid cookie")
	}
	if _, ok := runMiddleware(manager, ""); ok {
		t.Fatal("expected no session without cookie")
	}

	store.getErr = errStoreDown
	if _, ok := runMiddleware(manager, token); ok {
		t.Fatal("expected no session when the store fails")
	}
}

// TestMiddlewareRefreshesExpiredSession проверяет обновление истекших токенов.
func TestMiddlewareRefreshesExpiredSession(t *testing.T) {
	store := newFakeStore()
	refresher := &fakeRefresher{session: identity.Session{AccessToken: "at2", RefreshToken: "rt2", ExpiresIn: 3600}}
	manager := newTestManager(store, refresher)

	var refreshed []models.Session
	manager.onRefresh = func(session models.Session) { refreshed = append(refreshed, session) }

	seeded, token := seedSession(t, manager, store, time.Now().Add(-time.Minute))

	got, ok := runMiddleware(manager, token)
	if !ok {
		t.Fatal("expected refreshed session")
	}
	if got.AccessToken != "at2" || got.RefreshToken != "rt2" {
		t.Fatalf("expected new tokens, got %+v", got)
	}
	if got.User.Email != seeded.User.Email {
		t.Fatalf("expected user to be kept, got %+v", got.User)
	}
	if store.sessions[seeded.ID].AccessToken != "at2" {
		t.Fatal("expected refreshed session to be persisted")
	}
	if len(refreshed) != 1 {
		t.Fatalf("expected one refresh callback, got %d", len(refreshed))
	}
}

// TestRefreshKeepsConcurrentLink проверяет, что обновление токенов не
// затирает счет, привязанный параллельным запросом.
func TestRefreshKeepsConcurrentLink(t *testing.T) {
	store := newFakeStore()
	refresher := &fakeRefresher{session: identity.Session{AccessToken: "at2", RefreshToken: "rt2", ExpiresIn: 3600}}
	manager := newTestManager(store, refresher)
	seeded, token := seedSession(t, manager, store, time.Now().Add(-time.Minute))

	refresher.during = func() {
		linked := seeded
		linked.LinkAccessToken = []byte("sealed-link")
		_ = store.Save(context.Background(), linked, time.Hour)
	}

	got, ok := runMiddleware(manager, token)
	if !ok {
		t.Fatal("expected refreshed session")
	}
	if string(got.LinkAccessToken) != "sealed-link" {
		t.Fatalf("expected link token in request session, got %q", got.LinkAccessToken)
	}

	stored := store.sessions[seeded.ID]
	if string(stored.LinkAccessToken) != "sealed-link" {
		t.Fatalf("expected link to survive refresh, got %+v", stored)
	}
	if stored.AccessToken != "at2" || stored.RefreshToken != "rt2" {
		t.Fatalf("expected new tokens to be persisted, got %+v", stored)
	}
}

// TestMiddlewareDropsRejectedRefresh проверяет удаление сессии при отказе провайдера.
func TestMiddlewareDropsRejectedRefresh(t *testing.T) {
	store := newFakeStore()
	refresher := &fakeRefresher{err: &identity.Error{StatusCode: http.StatusBadRequest, Code: "invalid_grant"}}
	manager := newTestManager(store, refresher)
	seeded, token := seedSession(t, manager, store, time.Now().Add(-time.Minute))

	if _, ok := runMiddleware(manager, token); ok {
		t.Fatal("expected logged out after rejected refresh")
	}
	if len(store.deleted) != 1 || store.deleted[0] != seeded.ID {
		t.Fatalf("expected session %s to be deleted, got %v", seeded.ID, store.deleted)
	}
}

// TestRequireUser проверяет редирект страниц и 401 для API.
func TestRequireUser(t *testing.T) {
	e := echo.New()
	handler := RequireUser("/auth/login")(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/dashboard?tab=loans", nil)
	rec := httptest.NewRecorder()
	if err := handler(e.NewContext(req, rec)); err != nil {
		t.Fatalf("expected redirect, got %v", err)
	}
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	if location := rec.Header().Get("Location"); !strings.HasPrefix(location, "/auth/login?next=") {
		t.Fatalf("unexpected location %q", location)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
	rec = httptest.NewRecorder()
	err := handler(e.NewContext(req, rec))

	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	rec = httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(ContextSessionKey, models.Session{ID: uuid.New()})
	if err := handler(c); err != nil || rec.Code != http.StatusOK {
		t.Fatalf("expected pass-through, got %v / %d", err, rec.Code)
	}
}

// TestStateFirstResolutionEndsLoading проверяет завершение загрузки первым источником.
func TestStateFirstResolutionEndsLoading(t *testing.T) {
	state := NewState()
	if !state.Snapshot().Loading {
		t.Fatal("expected loading state")
	}

	user := &models.User{ID: uuid.New(), Email: "ann@example.com"}
	state.Apply(EventSignedIn, user)

	select {
	case <-state.Ready():
	default:
		t.Fatal("expected ready after first event")
	}

	snapshot := state.Snapshot()
	if snapshot.Loading || snapshot.User == nil || snapshot.User.Email != "ann@example.com" {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}

	state.Resolve(nil, nil)
	if state.Snapshot().User != nil {
		t.Fatal("expected later resolution to win")
	}
}

// TestStateLastWriteWins проверяет, что поздняя запись перекрывает раннюю.
func TestStateLastWriteWins(t *testing.T) {
	state := NewState()
	first := &models.User{ID: uuid.New(), Email: "first@example.com"}
	second := &models.User{ID: uuid.New(), Email: "second@example.com"}

	state.Resolve(first, nil)
	state.Apply(EventUserUpdated, second)

	if got := state.Snapshot().User; got == nil || got.Email != "second@example.com" {
		t.Fatalf("expected second user, got %+v", got)
	}

	state.Apply(EventSignedOut, second)
	if state.Snapshot().User != nil {
		t.Fatal("expected signed out")
	}
}

// TestStateFailedInitialFetch проверяет, что ошибка начальной загрузки означает выход.
func TestStateFailedInitialFetch(t *testing.T) {
	state := NewState()
	state.Resolve(&models.User{Email: "ignored@example.com"}, errStoreDown)

	snapshot := state.Snapshot()
	if snapshot.Loading {
		t.Fatal("expected loading to end")
	}
	if snapshot.User != nil {
		t.Fatalf("expected no user, got %+v", snapshot.User)
	}
}

// TestSealerRoundTrip проверяет шифрование токена привязки счета.
func TestSealerRoundTrip(t *testing.T) {
	sealer, err := NewSealer([]byte(strings.Repeat("k", 32)))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	sealed, err := sealer.Seal("access-sandbox-123")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if strings.Contains(string(sealed), "access-sandbox-123") {
		t.Fatal("expected ciphertext not to contain plaintext")
	}

	opened, err := sealer.Open(sealed)
	if err != nil || opened != "access-sandbox-123" {
		t.Fatalf("expected round trip, got %q (%v)", opened, err)
	}

	sealed[len(sealed)-1] ^= 0xff
	if _, err := sealer.Open(sealed); !errors.Is(err, ErrUnseal) {
		t.Fatalf("expected ErrUnseal, got %v", err)
	}

	if _, err := NewSealer([]byte("short")); !errors.Is(err, ErrInvalidSealKey) {
		t.Fatalf("expected ErrInvalidSealKey, got %v", err)
	}
}

// TestRatePassword проверяет оценку сложности пароля.
func TestRatePassword(t *testing.T) {
	tests := map[string]PasswordStrength{
		"":                PasswordWeak,
		"short1A":         PasswordWeak,
		"alllowercase123": PasswordWeak,
		"GoodPassword123": PasswordGood,
		"StrongPass123!":  PasswordStrong,
	}

	for password, want := range tests {
		if got := RatePassword(password); got != want {
			t.Fatalf("password %q: expected %s, got %s", password, want, got)
		}
	}
}
