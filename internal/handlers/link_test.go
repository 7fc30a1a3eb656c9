package handlers

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"example.com/networth-optimizer/web/internal/auth"
	"example.com/networth-optimizer/web/internal/optimizer"
)

func newTestSealer(t *testing.T) *auth.Sealer {
	t.Helper()
	sealer, err := auth.NewSealer([]byte(strings.Repeat("s", 32)))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return sealer
}

// TestLinkExchangeSealsToken проверяет, что access token попадает в сессию
// только в зашифрованном виде.
func TestLinkExchangeSealsToken(t *testing.T) {
	e := newTestEcho()
	sealer := newTestSealer(t)
	sessions := &fakeSessions{}
	client := &fakeOptimizer{exchange: optimizer.ExchangeResult{AccessToken: "access-sandbox-1", ItemID: "item-1"}}
	h := NewLinkHandler(client, sessions, sealer)

	c, rec := newJSONContext(e, http.MethodPost, "/api/v1/link/exchange", `{"public_token":"public-sandbox"}`)
	withSession(c, testSession())

	if err := h.Exchange(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "access-sandbox-1") {
		t.Fatal("expected access token not to reach the browser")
	}
	if sessions.saves != 1 {
		t.Fatalf("expected session to be saved once, got %d", sessions.saves)
	}
	if strings.Contains(string(sessions.saved.LinkAccessToken), "access-sandbox-1") {
		t.Fatal("expected sealed token in the session")
	}

	token, linked := sessionLinkToken(c, sealer)
	if !linked || token != "access-sandbox-1" {
		t.Fatalf("expected linked token, got %q (linked=%v)", token, linked)
	}
}

// TestLinkExchangeRequiresToken проверяет отказ без public token.
func TestLinkExchangeRequiresToken(t *testing.T) {
	e := newTestEcho()
	h := NewLinkHandler(&fakeOptimizer{}, &fakeSessions{}, newTestSealer(t))

	c, rec := newJSONContext(e, http.MethodPost, "/api/v1/link/exchange", `{}`)
	withSession(c, testSession())

	if err := h.Exchange(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

// TestLinkExchangeProviderFailure проверяет ответ при сбое провайдера.
func TestLinkExchangeProviderFailure(t *testing.T) {
	e := newTestEcho()
	sessions := &fakeSessions{}
	h := NewLinkHandler(&fakeOptimizer{exchangeErr: errors.New("timeout")}, sessions, newTestSealer(t))

	c, rec := newJSONContext(e, http.MethodPost, "/api/v1/link/exchange", `{"public_token":"public-sandbox"}`)
	withSession(c, testSession())

	if err := h.Exchange(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if sessions.saves != 0 {
		t.Fatal("expected session to stay untouched")
	}
}

// TestLinkTokenDefaultsToDepository проверяет тип счета по умолчанию.
func TestLinkTokenDefaultsToDepository(t *testing.T) {
	e := newTestEcho()
	client := &fakeOptimizer{}
	h := NewLinkHandler(client, &fakeSessions{}, newTestSealer(t))

	c, rec := newJSONContext(e, http.MethodPost, "/api/v1/link/token", `{}`)
	session := testSession()
	withSession(c, session)

	if err := h.Token(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if client.linkReq.AccountType != accountTypeDepository || client.linkReq.UserID != session.User.ID.String() {
		t.Fatalf("unexpected link request: %+v", client.linkReq)
	}
}

// TestBalanceWithoutLink проверяет ответ без связанного счета.
func TestBalanceWithoutLink(t *testing.T) {
	e := newTestEcho()
	h := NewLinkHandler(&fakeOptimizer{}, &fakeSessions{}, newTestSealer(t))

	c, rec := newJSONContext(e, http.MethodGet, "/api/v1/link/balance", "")
	withSession(c, testSession())

	if err := h.Balance(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
