package auth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"example.com/networth-optimizer/web/internal/models"
)

const ContextSessionKey = "session"

// SessionMiddleware кладет сессию в контекст, если cookie валидна.
// Запрос без сессии проходит дальше как анонимный.
func (m *SessionManager) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(m.cookieName)
			if err != nil {
				return next(c)
			}

			if session, ok := m.Resolve(c.Request().Context(), cookie.Value); ok {
				c.Set(ContextSessionKey, session)
			}

			return next(c)
		}
	}
}

// RequireUser пропускает только запросы с сессией. JSON API получает 401,
// страницы перенаправляются на форму входа.
func RequireUser(loginPath string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := SessionFromContext(c); ok {
				return next(c)
			}

			if wantsJSON(c.Request()) {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}

			target := loginPath + "?next=" + url.QueryEscape(c.Request().URL.RequestURI())
			return c.Redirect(http.StatusSeeOther, target)
		}
	}
}

// SessionFromContext извлекает сессию из контекста.
func SessionFromContext(c echo.Context) (models.Session, bool) {
	session, ok := c.Get(ContextSessionKey).(models.Session)
	return session, ok
}

// UserFromContext извлекает пользователя из контекста.
func UserFromContext(c echo.Context) (models.User, bool) {
	session, ok := SessionFromContext(c)
	if !ok {
		return models.User{}, false
	}
	return session.User, true
}

func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}
