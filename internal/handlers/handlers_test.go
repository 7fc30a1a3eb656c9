package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/networth-optimizer/web/internal/auth"
	"example.com/networth-optimizer/web/internal/identity"
	"example.com/networth-optimizer/web/internal/models"
	"example.com/networth-optimizer/web/internal/optimizer"
	"example.com/networth-optimizer/web/internal/sequencer"
)

type testValidator struct {
	validate *validator.Validate
}

func (v testValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = testValidator{validate: validator.New()}
	return e
}

func newJSONContext(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func withSession(c echo.Context, session models.Session) {
	c.Set(auth.ContextSessionKey, session)
}

func testSession() models.Session {
	return models.Session{
		ID:          uuid.New(),
		User:        models.User{ID: uuid.New(), Email: "ana@example.com", FullName: "Ana"},
		AccessToken: "provider-access",
	}
}

// fakeOptimizer отвечает заранее заданными результатами.
type fakeOptimizer struct {
	exchange    optimizer.ExchangeResult
	exchangeErr error
	optimizeErr error
	linkReq     optimizer.LinkTokenRequest
}

func (f *fakeOptimizer) Optimize(ctx context.Context, req optimizer.OptimizationRequest) (optimizer.OptimizationResult, error) {
	return optimizer.OptimizationResult{}, f.optimizeErr
}

func (f *fakeOptimizer) OptimizeMultiLoan(ctx context.Context, req optimizer.MultiLoanRequest) (optimizer.MultiLoanResult, error) {
	return optimizer.MultiLoanResult{}, f.optimizeErr
}

func (f *fakeOptimizer) GeneratePlan(ctx context.Context, req optimizer.PersonalizedPlanRequest) (optimizer.InvestmentPlan, error) {
	return optimizer.InvestmentPlan{}, f.optimizeErr
}

func (f *fakeOptimizer) CreateInvestmentPlan(ctx context.Context, req optimizer.SimplePlanRequest) (optimizer.SimplePlan, error) {
	return optimizer.SimplePlan{}, f.optimizeErr
}

func (f *fakeOptimizer) AnalyzeInvestments(ctx context.Context, req optimizer.AnalyzeRequest) (optimizer.AnalyzeResult, error) {
	return optimizer.AnalyzeResult{}, f.optimizeErr
}

func (f *fakeOptimizer) CompletePicture(ctx context.Context, req optimizer.AccessTokenRequest) (optimizer.CompletePicture, error) {
	return optimizer.CompletePicture{}, f.optimizeErr
}

func (f *fakeOptimizer) ActionPlan(ctx context.Context, req optimizer.ActionPlanRequest) (optimizer.ActionPlan, error) {
	return optimizer.ActionPlan{}, f.optimizeErr
}

func (f *fakeOptimizer) CreateLinkToken(ctx context.Context, req optimizer.LinkTokenRequest) (optimizer.LinkToken, error) {
	f.linkReq = req
	return optimizer.LinkToken{LinkToken: "link-sandbox"}, nil
}

func (f *fakeOptimizer) ExchangeToken(ctx context.Context, req optimizer.ExchangeRequest) (optimizer.ExchangeResult, error) {
	return f.exchange, f.exchangeErr
}

func (f *fakeOptimizer) Balance(ctx context.Context, req optimizer.AccessTokenRequest) (optimizer.Balance, error) {
	return optimizer.Balance{}, f.optimizeErr
}

// fakeSessions запоминает последнюю сохраненную сессию.
type fakeSessions struct {
	saved models.Session
	saves int
}

func (f *fakeSessions) Start(c echo.Context, provider identity.Session) (models.Session, error) {
	session := models.Session{ID: uuid.New(), User: provider.User.Model(), AccessToken: provider.AccessToken}
	c.Set(auth.ContextSessionKey, session)
	return session, nil
}

func (f *fakeSessions) Save(ctx context.Context, session models.Session) error {
	f.saved = session
	f.saves++
	return nil
}

func (f *fakeSessions) End(c echo.Context) (models.Session, bool) {
	return auth.SessionFromContext(c)
}

// TestOptimizerErrorMapping проверяет коды ответа для ошибок сервиса.
func TestOptimizerErrorMapping(t *testing.T) {
	e := newTestEcho()

	c, rec := newJSONContext(e, http.MethodPost, "/api/v1/optimize", "")
	_ = optimizerError(c, optimizer.ErrNoLoans)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for validation error, got %d", rec.Code)
	}

	c, rec = newJSONContext(e, http.MethodPost, "/api/v1/optimize", "")
	_ = optimizerError(c, errors.New("connection refused"))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 for remote failure, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), optimizer.FallbackMessage) {
		t.Fatalf("expected fallback message, got %s", rec.Body.String())
	}
}

// TestSequencedSuperseded проверяет, что вытесненный запрос получает 409.
func TestSequencedSuperseded(t *testing.T) {
	e := newTestEcho()
	tracker := sequencer.NewTracker()
	c, rec := newJSONContext(e, http.MethodPost, "/api/v1/optimize", "{}")

	err := sequenced(c, tracker, "optimize", func(ctx context.Context) (optimizer.OptimizationResult, error) {
		// Более новый запрос того же пользователя стартует, пока этот в полете.
		_, newer := tracker.Begin(context.Background(), sequenceKey(c, "optimize"))
		defer newer.Done()
		if ctx.Err() == nil {
			t.Error("expected superseded request context to be cancelled")
		}
		return optimizer.OptimizationResult{}, nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "superseded") {
		t.Fatalf("expected superseded error, got %s", rec.Body.String())
	}
}

// TestSequencedCurrent проверяет, что последний запрос отдает результат.
func TestSequencedCurrent(t *testing.T) {
	e := newTestEcho()
	tracker := sequencer.NewTracker()
	c, rec := newJSONContext(e, http.MethodPost, "/api/v1/plan/generate", "{}")

	err := sequenced(c, tracker, "plan", func(ctx context.Context) (optimizer.SimplePlan, error) {
		return optimizer.SimplePlan{}, nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if tracker.Len() != 0 {
		t.Fatalf("expected tracker to be released, got %d keys", tracker.Len())
	}
}

// TestSequenceKeyPerUser проверяет ключи для вошедших и анонимных запросов.
func TestSequenceKeyPerUser(t *testing.T) {
	e := newTestEcho()
	c, _ := newJSONContext(e, http.MethodPost, "/api/v1/optimize", "")
	device := uuid.New()
	c.Request().AddCookie(&http.Cookie{Name: deviceCookie, Value: device.String()})

	if key := sequenceKey(c, "optimize"); key != device.String()+":optimize" {
		t.Fatalf("expected device key, got %s", key)
	}

	session := testSession()
	withSession(c, session)
	if key := sequenceKey(c, "optimize"); key != session.User.ID.String()+":optimize" {
		t.Fatalf("expected user key, got %s", key)
	}
}

// TestSequenceKeySharedIP проверяет, что браузеры за одним адресом не
// вытесняют запросы друг друга.
func TestSequenceKeySharedIP(t *testing.T) {
	e := newTestEcho()
	tracker := sequencer.NewTracker()

	keys := make([]string, 0, 2)
	for _, device := range []uuid.UUID{uuid.New(), uuid.New()} {
		c, _ := newJSONContext(e, http.MethodPost, "/api/v1/optimize", "")
		c.Request().RemoteAddr = "192.0.2.10:5050"
		c.Request().AddCookie(&http.Cookie{Name: deviceCookie, Value: device.String()})
		keys = append(keys, sequenceKey(c, "optimize"))
	}
	if keys[0] == keys[1] {
		t.Fatalf("expected distinct keys for two browsers, got %s", keys[0])
	}

	_, first := tracker.Begin(context.Background(), keys[0])
	defer first.Done()
	_, second := tracker.Begin(context.Background(), keys[1])
	defer second.Done()
	if !first.Current() || !second.Current() {
		t.Fatal("expected both requests to stay current")
	}
}

// TestFlashRoundTrip проверяет одноразовое сообщение через cookie.
func TestFlashRoundTrip(t *testing.T) {
	e := newTestEcho()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	setFlash(c, "You have been signed out.")

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected flash cookie, got %d cookies", len(cookies))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)

	if message := popFlash(c); message != "You have been signed out." {
		t.Fatalf("unexpected flash: %q", message)
	}
	cleared := rec.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge >= 0 {
		t.Fatalf("expected flash cookie to be cleared, got %+v", cleared)
	}
}
