package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/networth-optimizer/web/internal/auth"
	"example.com/networth-optimizer/web/internal/catalog"
	"example.com/networth-optimizer/web/internal/identity"
	"example.com/networth-optimizer/web/internal/models"
	"example.com/networth-optimizer/web/internal/view"
)

type fakeIdentity struct {
	user       identity.User
	signInErr  error
	signUp     identity.SignUpResult
	signedOut  []string
	resetEmail string
	update     identity.UserUpdate
}

func (f *fakeIdentity) SignUp(ctx context.Context, params identity.SignUpParams) (identity.SignUpResult, error) {
	return f.signUp, nil
}

func (f *fakeIdentity) SignInWithPassword(ctx context.Context, email, password string) (identity.Session, error) {
	if f.signInErr != nil {
		return identity.Session{}, f.signInErr
	}
	return identity.Session{AccessToken: "access", RefreshToken: "refresh", ExpiresIn: 3600, User: f.user}, nil
}

func (f *fakeIdentity) GetUser(ctx context.Context, accessToken string) (identity.User, error) {
	return f.user, nil
}

func (f *fakeIdentity) UpdateUser(ctx context.Context, accessToken string, update identity.UserUpdate) (identity.User, error) {
	f.update = update
	return f.user, nil
}

func (f *fakeIdentity) SignOut(ctx context.Context, accessToken string) error {
	f.signedOut = append(f.signedOut, accessToken)
	return nil
}

func (f *fakeIdentity) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	f.resetEmail = email
	return nil
}

type publishedEvent struct {
	key   uuid.UUID
	event string
	user  *models.User
}

type fakePublisher struct {
	events []publishedEvent
}

func (f *fakePublisher) Publish(key uuid.UUID, eventType string, user *models.User) {
	f.events = append(f.events, publishedEvent{key: key, event: eventType, user: user})
}

func newPageEcho(t *testing.T) *echo.Echo {
	t.Helper()
	renderer, err := view.NewRenderer(catalog.MustDefault())
	if err != nil {
		t.Fatalf("expected templates to parse, got %v", err)
	}
	e := newTestEcho()
	e.Renderer = renderer
	return e
}

func newFormContext(e *echo.Echo, target string, form url.Values) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func testIdentityUser() identity.User {
	return identity.User{ID: uuid.New(), Email: "ana@example.com"}
}

// TestLoginRedirectsAndPublishes проверяет вход и событие SIGNED_IN для браузера.
func TestLoginRedirectsAndPublishes(t *testing.T) {
	e := newPageEcho(t)
	provider := &fakeIdentity{user: testIdentityUser()}
	events := &fakePublisher{}
	h := NewAuthHandler(catalog.MustDefault(), provider, &fakeSessions{}, events, "")

	c, rec := newFormContext(e, "/auth/login", url.Values{
		"email":    {" Ana@Example.com "},
		"password": {"correct horse"},
		"next":     {"/plan"},
	})

	if err := h.Login(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusSeeOther || rec.Header().Get(echo.HeaderLocation) != "/plan" {
		t.Fatalf("expected redirect to /plan, got %d %s", rec.Code, rec.Header().Get(echo.HeaderLocation))
	}
	if len(events.events) != 1 || events.events[0].event != string(auth.EventSignedIn) {
		t.Fatalf("expected SIGNED_IN, got %+v", events.events)
	}
	if events.events[0].key != deviceID(c) {
		t.Fatal("expected event keyed by browser id")
	}
}

// TestLoginFailureRendersForm проверяет сообщение об ошибке входа.
func TestLoginFailureRendersForm(t *testing.T) {
	e := newPageEcho(t)
	provider := &fakeIdentity{signInErr: &identity.Error{StatusCode: http.StatusBadRequest, Message: "Invalid login credentials"}}
	events := &fakePublisher{}
	h := NewAuthHandler(catalog.MustDefault(), provider, &fakeSessions{}, events, "")

	c, rec := newFormContext(e, "/auth/login", url.Values{
		"email":    {"ana@example.com"},
		"password": {"wrong"},
	})

	if err := h.Login(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid login credentials") {
		t.Fatalf("expected provider message in page")
	}
	if len(events.events) != 0 {
		t.Fatal("expected no events on failure")
	}
}

// TestSignupWithoutSessionAsksToConfirm проверяет регистрацию с подтверждением почты.
func TestSignupWithoutSessionAsksToConfirm(t *testing.T) {
	e := newPageEcho(t)
	provider := &fakeIdentity{signUp: identity.SignUpResult{User: testIdentityUser()}}
	sessions := &fakeSessions{}
	h := NewAuthHandler(catalog.MustDefault(), provider, sessions, &fakePublisher{}, "")

	c, rec := newFormContext(e, "/auth/signup", url.Values{
		"email":            {"ana@example.com"},
		"password":         {"longenough1"},
		"confirm_password": {"longenough1"},
	})

	if err := h.Signup(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Check your email") {
		t.Fatalf("expected confirmation notice, got %d", rec.Code)
	}
	if _, ok := auth.SessionFromContext(c); ok {
		t.Fatal("expected no session before confirmation")
	}
}

// TestLogoutPublishesSignedOut проверяет выход и событие SIGNED_OUT.
func TestLogoutPublishesSignedOut(t *testing.T) {
	e := newTestEcho()
	provider := &fakeIdentity{}
	events := &fakePublisher{}
	h := NewAuthHandler(nil, provider, &fakeSessions{}, events, "")

	c, rec := newFormContext(e, "/auth/logout", url.Values{})
	withSession(c, testSession())

	if err := h.Logout(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusSeeOther || rec.Header().Get(echo.HeaderLocation) != "/" {
		t.Fatalf("expected redirect home, got %d", rec.Code)
	}
	if len(provider.signedOut) != 1 || provider.signedOut[0] != "provider-access" {
		t.Fatalf("expected provider sign out, got %v", provider.signedOut)
	}
	if len(events.events) != 1 || events.events[0].event != string(auth.EventSignedOut) || events.events[0].user != nil {
		t.Fatalf("expected SIGNED_OUT without user, got %+v", events.events)
	}
}

// TestSessionAPI проверяет ответ для анонимного и вошедшего пользователя.
func TestSessionAPI(t *testing.T) {
	e := newTestEcho()
	h := NewAuthHandler(nil, &fakeIdentity{}, &fakeSessions{}, nil, "")

	c, rec := newJSONContext(e, http.MethodGet, "/api/v1/auth/session", "")
	if err := h.Session(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"user":null`) {
		t.Fatalf("expected null user, got %s", rec.Body.String())
	}

	c, rec = newJSONContext(e, http.MethodGet, "/api/v1/auth/session", "")
	withSession(c, testSession())
	if err := h.Session(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if strings.Contains(rec.Body.String(), "provider-access") {
		t.Fatal("expected provider tokens to stay on the server")
	}
	if !strings.Contains(rec.Body.String(), "ana@example.com") {
		t.Fatalf("expected user email, got %s", rec.Body.String())
	}
}
