package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/networth-optimizer/web/internal/identity"
	"example.com/networth-optimizer/web/internal/models"
)

// refreshSkew refreshes provider tokens slightly before they expire.
const refreshSkew = 30 * time.Second

type SessionStore interface {
	Get(ctx context.Context, id uuid.UUID) (models.Session, error)
	Save(ctx context.Context, session models.Session, ttl time.Duration) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type SessionRefresher interface {
	RefreshSession(ctx context.Context, refreshToken string) (identity.Session, error)
}

type SessionManagerConfig struct {
	Tokens       *TokenManager
	Store        SessionStore
	Refresher    SessionRefresher
	CookieName   string
	CookieSecure bool
	Logger       *slog.Logger
	// OnRefresh is called after provider tokens were renewed.
	OnRefresh func(session models.Session)
}

// SessionManager owns the server-side session and the cookie pointing at it.
type SessionManager struct {
	tokens       *TokenManager
	store        SessionStore
	refresher    SessionRefresher
	cookieName   string
	cookieSecure bool
	logger       *slog.Logger
	onRefresh    func(session models.Session)
	now          func() time.Time
}

// NewSessionManager создает менеджер серверных сессий.
func NewSessionManager(cfg SessionManagerConfig) *SessionManager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &SessionManager{
		tokens:       cfg.Tokens,
		store:        cfg.Store,
		refresher:    cfg.Refresher,
		cookieName:   cfg.CookieName,
		cookieSecure: cfg.CookieSecure,
		logger:       logger,
		onRefresh:    cfg.OnRefresh,
		now:          time.Now,
	}
}

// Start сохраняет сессию провайдера и выставляет cookie.
func (m *SessionManager) Start(c echo.Context, provider identity.Session) (models.Session, error) {
	now := m.now()
	session := models.Session{
		ID:           uuid.New(),
		User:         provider.User.Model(),
		AccessToken:  provider.AccessToken,
		RefreshToken: provider.RefreshToken,
		ExpiresAt:    provider.Expiry(now),
		CreatedAt:    now.UTC(),
	}

	if err := m.store.Save(c.Request().Context(), session, m.tokens.TTL()); err != nil {
		return models.Session{}, err
	}

	token, expiresAt, err := m.tokens.NewSessionToken(session.ID)
	if err != nil {
		return models.Session{}, err
	}

	c.SetCookie(&http.Cookie{
		Name:     m.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(m.tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   m.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	c.Set(ContextSessionKey, session)

	return session, nil
}

// Save перезаписывает сессию в хранилище.
func (m *SessionManager) Save(ctx context.Context, session models.Session) error {
	return m.store.Save(ctx, session, m.tokens.TTL())
}

// End удаляет сессию и очищает cookie. Ошибки хранилища только логируются.
func (m *SessionManager) End(c echo.Context) (models.Session, bool) {
	session, ok := SessionFromContext(c)
	if ok {
		if err := m.store.Delete(c.Request().Context(), session.ID); err != nil {
			m.logger.Warn("delete session failed", slog.String("error", err.Error()))
		}
	}

	c.SetCookie(&http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	c.Set(ContextSessionKey, nil)

	return session, ok
}

// Resolve читает сессию по значению cookie. Любая ошибка означает
// отсутствие сессии.
func (m *SessionManager) Resolve(ctx context.Context, cookieValue string) (models.Session, bool) {
	if cookieValue == "" {
		return models.Session{}, false
	}

	sessionID, err := m.tokens.ParseSessionToken(cookieValue)
	if err != nil {
		m.logger.Debug("session cookie rejected", slog.String("error", err.Error()))
		return models.Session{}, false
	}

	session, err := m.store.Get(ctx, sessionID)
	if err != nil {
		m.logger.Warn("session lookup failed", slog.String("session_id", sessionID.String()), slog.String("error", err.Error()))
		return models.Session{}, false
	}

	if !session.Expired(m.now().Add(refreshSkew)) {
		return session, true
	}

	refreshed, err := m.refresher.RefreshSession(ctx, session.RefreshToken)
	if err != nil {
		m.logger.Warn("session refresh failed", slog.String("session_id", sessionID.String()), slog.String("error", err.Error()))

		var providerErr *identity.Error
		if errors.Is(err, identity.ErrNoSession) || (errors.As(err, &providerErr) && providerErr.Unauthorized()) {
			if err := m.store.Delete(ctx, sessionID); err != nil {
				m.logger.Warn("delete session failed", slog.String("error", err.Error()))
			}
		}
		return models.Session{}, false
	}

	// Пока шел запрос к провайдеру, другой запрос мог сохранить сессию,
	// например с токеном привязанного счета. Новые токены кладутся поверх
	// свежей копии.
	if latest, err := m.store.Get(ctx, sessionID); err == nil {
		session = latest
	}
	session.AccessToken = refreshed.AccessToken
	session.RefreshToken = refreshed.RefreshToken
	session.ExpiresAt = refreshed.Expiry(m.now())
	if refreshed.User.Email != "" {
		session.User = refreshed.User.Model()
	}

	if err := m.store.Save(ctx, session, m.tokens.TTL()); err != nil {
		m.logger.Warn("save refreshed session failed", slog.String("error", err.Error()))
	}

	if m.onRefresh != nil {
		m.onRefresh(session)
	}

	return session, true
}
