package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/networth-optimizer/web/internal/auth"
	"example.com/networth-optimizer/web/internal/catalog"
	"example.com/networth-optimizer/web/internal/identity"
	"example.com/networth-optimizer/web/internal/models"
	"example.com/networth-optimizer/web/internal/optimizer"
	"example.com/networth-optimizer/web/internal/profile"
	"example.com/networth-optimizer/web/internal/view"
)

const (
	// LoginPath is where protected pages send anonymous visitors.
	LoginPath = "/auth/login"

	flashCookie = "nwo_flash"
)

// Optimizer is the part of the remote optimization service the handlers call.
type Optimizer interface {
	Optimize(ctx context.Context, req optimizer.OptimizationRequest) (optimizer.OptimizationResult, error)
	OptimizeMultiLoan(ctx context.Context, req optimizer.MultiLoanRequest) (optimizer.MultiLoanResult, error)
	GeneratePlan(ctx context.Context, req optimizer.PersonalizedPlanRequest) (optimizer.InvestmentPlan, error)
	CreateInvestmentPlan(ctx context.Context, req optimizer.SimplePlanRequest) (optimizer.SimplePlan, error)
	AnalyzeInvestments(ctx context.Context, req optimizer.AnalyzeRequest) (optimizer.AnalyzeResult, error)
	CompletePicture(ctx context.Context, req optimizer.AccessTokenRequest) (optimizer.CompletePicture, error)
	ActionPlan(ctx context.Context, req optimizer.ActionPlanRequest) (optimizer.ActionPlan, error)
	CreateLinkToken(ctx context.Context, req optimizer.LinkTokenRequest) (optimizer.LinkToken, error)
	ExchangeToken(ctx context.Context, req optimizer.ExchangeRequest) (optimizer.ExchangeResult, error)
	Balance(ctx context.Context, req optimizer.AccessTokenRequest) (optimizer.Balance, error)
}

// QuoteProvider отдает текущую котировку индексного фонда.
type QuoteProvider interface {
	Quote(ctx context.Context) (optimizer.Quote, error)
}

// Identity is the hosted auth provider.
type Identity interface {
	SignUp(ctx context.Context, params identity.SignUpParams) (identity.SignUpResult, error)
	SignInWithPassword(ctx context.Context, email, password string) (identity.Session, error)
	GetUser(ctx context.Context, accessToken string) (identity.User, error)
	UpdateUser(ctx context.Context, accessToken string, update identity.UserUpdate) (identity.User, error)
	SignOut(ctx context.Context, accessToken string) error
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
}

// Sessions owns the server-side session behind the cookie.
type Sessions interface {
	Start(c echo.Context, provider identity.Session) (models.Session, error)
	Save(ctx context.Context, session models.Session) error
	End(c echo.Context) (models.Session, bool)
}

type Profiles interface {
	Load(ctx context.Context, userID uuid.UUID) models.FinancialProfile
	Update(ctx context.Context, userID uuid.UUID, patch profile.Patch) (models.FinancialProfile, error)
	SyncDashboard(ctx context.Context, userID uuid.UUID, monthlyBudget float64, loans []models.Loan) (models.FinancialProfile, error)
}

// Publisher рассылает события состояния авторизации.
type Publisher interface {
	Publish(userID uuid.UUID, eventType string, user *models.User)
}

// LinkTokens seals account-link access tokens stored in the session.
type LinkTokens interface {
	Seal(plaintext string) ([]byte, error)
	Open(sealed []byte) (string, error)
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// pages собирает общие данные шаблонов.
type pages struct {
	catalog *catalog.Catalog
}

func (p pages) render(c echo.Context, status int, name, title, active string, data any) error {
	page := view.Page{
		Title:  title,
		Active: active,
		Data:   data,
		Flash:  popFlash(c),
	}
	if p.catalog != nil {
		page.Tools = p.catalog.Tools
	}
	if user, ok := auth.UserFromContext(c); ok {
		page.User = &user
	}
	if token, ok := c.Get("csrf").(string); ok {
		page.CSRF = token
	}
	return c.Render(status, name, page)
}

func setFlash(c echo.Context, message string) {
	c.SetCookie(&http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(message),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func popFlash(c echo.Context) string {
	cookie, err := c.Cookie(flashCookie)
	if err != nil || cookie.Value == "" {
		return ""
	}
	c.SetCookie(&http.Cookie{
		Name:     flashCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
	})
	message, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return ""
	}
	return message
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// validationFailed перечисляет поля, не прошедшие проверку.
func validationFailed(c echo.Context, err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return badRequest(c, "validation failed")
	}
	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fe.Field())
	}
	return badRequest(c, "validation failed: "+strings.Join(fields, ", "))
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
}

func conflict(c echo.Context, message string) error {
	return c.JSON(http.StatusConflict, ErrorResponse{Error: message})
}

func notFound(c echo.Context, message string) error {
	return c.JSON(http.StatusNotFound, ErrorResponse{Error: message})
}

func badGateway(c echo.Context, message string) error {
	return c.JSON(http.StatusBadGateway, ErrorResponse{Error: message})
}

func serverError(c echo.Context) error {
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

func superseded(c echo.Context) error {
	return conflict(c, "superseded")
}

// optimizerError maps a remote failure onto the JSON API: local validation is
// a 400, everything else a 502 with the service detail when there is one.
func optimizerError(c echo.Context, err error) error {
	var validationErr optimizer.ValidationError
	if errors.As(err, &validationErr) {
		return badRequest(c, validationErr.Error())
	}
	return badGateway(c, optimizer.Message(err))
}
