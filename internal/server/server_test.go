package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"example.com/networth-optimizer/web/internal/config"
	"example.com/networth-optimizer/web/internal/identity"
	"example.com/networth-optimizer/web/internal/optimizer"
	"example.com/networth-optimizer/web/internal/repository"
)

func testConfig() config.Config {
	return config.Config{
		Session: config.SessionConfig{
			Secret:     "test-secret",
			Issuer:     "networth-optimizer",
			TTL:        time.Hour,
			CookieName: "nwo_session",
			SealKey:    []byte(strings.Repeat("k", 32)),
		},
		RateLimit: config.RateLimitConfig{
			AuthPerMinute: 60,
			AuthBurst:     10,
			APIPerMinute:  60,
			APIBurst:      10,
		},
	}
}

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	e, err := New(testConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)), Dependencies{
		Sessions:  repository.NewMemorySessionRepository(),
		Profiles:  repository.NewMemoryProfileRepository(),
		Optimizer: optimizer.NewClient("http://127.0.0.1:1", time.Second),
		Identity:  identity.NewClient("http://127.0.0.1:1", "anon", time.Second),
	})
	if err != nil {
		t.Fatalf("expected server to build, got %v", err)
	}
	return e
}

// TestHealth проверяет служебный эндпоинт.
func TestHealth(t *testing.T) {
	e := newTestServer(t)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("expected ok, got %d %s", rec.Code, rec.Body.String())
	}
}

// TestProtectedPageRedirects проверяет перенаправление анонимного пользователя.
func TestProtectedPageRedirects(t *testing.T) {
	e := newTestServer(t)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	if location := rec.Header().Get(echo.HeaderLocation); location != "/auth/login?next=%2Fdashboard" {
		t.Fatalf("unexpected location: %s", location)
	}
}

// TestProtectedAPIUnauthorized проверяет 401 в JSON для API.
func TestProtectedAPIUnauthorized(t *testing.T) {
	e := newTestServer(t)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		t.Fatalf("expected JSON error, got %s", rec.Header().Get(echo.HeaderContentType))
	}
}

// TestPostWithoutCSRFRejected проверяет защиту форм и API от CSRF.
func TestPostWithoutCSRFRejected(t *testing.T) {
	e := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/optimize", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code < http.StatusBadRequest || rec.Code >= http.StatusInternalServerError {
		t.Fatalf("expected client error, got %d", rec.Code)
	}
}

// TestToolsPageRenders проверяет рендер публичной страницы.
func TestToolsPageRenders(t *testing.T) {
	e := newTestServer(t)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tools", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "401(k) Calculator") {
		t.Fatal("expected catalog tools on the page")
	}
	if !strings.Contains(rec.Body.String(), `name="csrf-token"`) {
		t.Fatal("expected csrf meta tag")
	}
}

// TestErrorHandlerRendersPage проверяет HTML-страницу ошибки для браузера.
func TestErrorHandlerRendersPage(t *testing.T) {
	e := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/no-such-page", nil)
	req.Header.Set(echo.HeaderAccept, "text/html")
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get(echo.HeaderContentType), echo.MIMETextHTML) {
		t.Fatalf("expected HTML error page, got %s", rec.Header().Get(echo.HeaderContentType))
	}
}

// TestErrorHandlerHidesInternalErrors проверяет, что детали 500 не уходят клиенту.
func TestErrorHandlerHidesInternalErrors(t *testing.T) {
	e := echo.New()
	handler := errorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), nil)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil), rec)
	handler(errors.New("pq: password authentication failed"), c)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "pq:") {
		t.Fatalf("expected generic message, got %s", rec.Body.String())
	}
}

// TestAPIRateLimiterIdentifier проверяет ключ лимита по сессии и по IP.
func TestAPIRateLimiterIdentifier(t *testing.T) {
	cfg := config.RateLimitConfig{APIPerMinute: 60, APIBurst: 1}
	limiter := apiRateLimiter(cfg, "nwo_session")
	handler := limiter(func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	e := echo.New()

	call := func(cookie string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/optimize", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		if cookie != "" {
			req.AddCookie(&http.Cookie{Name: "nwo_session", Value: cookie})
		}
		rec := httptest.NewRecorder()
		if err := handler(e.NewContext(req, rec)); err != nil {
			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				return httpErr.Code
			}
			return http.StatusInternalServerError
		}
		return rec.Code
	}

	if code := call(""); code != http.StatusNoContent {
		t.Fatalf("expected first anonymous call to pass, got %d", code)
	}
	if code := call(""); code != http.StatusTooManyRequests {
		t.Fatalf("expected second anonymous call to be limited, got %d", code)
	}
	if code := call("session-a"); code != http.StatusNoContent {
		t.Fatalf("expected session to have its own bucket, got %d", code)
	}
}

// TestValidatorUsesJSONNames проверяет имена полей в ошибках валидации.
func TestValidatorUsesJSONNames(t *testing.T) {
	type payload struct {
		MonthlyBudget float64 `json:"monthlyBudget" validate:"gte=0"`
		Ticker        string  `form:"ticker" validate:"required"`
	}

	err := NewValidator().Validate(&payload{MonthlyBudget: -1})
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) != 2 {
		t.Fatalf("expected two field errors, got %v", err)
	}
	if fieldErrs[0].Field() != "monthlyBudget" || fieldErrs[1].Field() != "ticker" {
		t.Fatalf("expected wire names, got %s and %s", fieldErrs[0].Field(), fieldErrs[1].Field())
	}
}
