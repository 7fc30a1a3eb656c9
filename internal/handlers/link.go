package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"example.com/networth-optimizer/web/internal/auth"
	"example.com/networth-optimizer/web/internal/optimizer"
)

const (
	accountTypeDepository = "depository"
	linkFailedText        = "Failed to link account"
)

// LinkHandler drives the hosted account-link flow. The access token never
// leaves the server: it is sealed into the session record.
type LinkHandler struct {
	Optimizer Optimizer
	Sessions  Sessions
	Links     LinkTokens
}

// NewLinkHandler создает обработчик привязки счетов.
func NewLinkHandler(client Optimizer, sessions Sessions, links LinkTokens) *LinkHandler {
	return &LinkHandler{
		Optimizer: client,
		Sessions:  sessions,
		Links:     links,
	}
}

type LinkTokenPayload struct {
	AccountType string `json:"account_type" validate:"omitempty,oneof=depository investment"`
}

type ExchangePayload struct {
	PublicToken string `json:"public_token" validate:"required"`
}

type LinkedResponse struct {
	Linked bool   `json:"linked"`
	ItemID string `json:"item_id,omitempty"`
}

type BalanceResponse struct {
	optimizer.Balance
	SuggestedBudget float64 `json:"suggested_budget"`
}

// Token создает link token для открытия виджета провайдера.
func (h *LinkHandler) Token(c echo.Context) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var payload LinkTokenPayload
	if err := c.Bind(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&payload); err != nil {
		return badRequest(c, "account_type must be depository or investment")
	}
	if payload.AccountType == "" {
		payload.AccountType = accountTypeDepository
	}

	token, err := h.Optimizer.CreateLinkToken(c.Request().Context(), optimizer.LinkTokenRequest{
		UserID:      user.ID.String(),
		AccountType: payload.AccountType,
	})
	if err != nil {
		return badGateway(c, messageOr(err, linkFailedText))
	}

	return c.JSON(http.StatusOK, token)
}

// Exchange меняет public token на access token и сохраняет его в сессии.
func (h *LinkHandler) Exchange(c echo.Context) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var payload ExchangePayload
	if err := c.Bind(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&payload); err != nil {
		return badRequest(c, "public_token is required")
	}

	result, err := h.Optimizer.ExchangeToken(c.Request().Context(), optimizer.ExchangeRequest{PublicToken: payload.PublicToken})
	if err != nil {
		return badGateway(c, messageOr(err, linkFailedText))
	}
	if result.AccessToken == "" {
		return badGateway(c, "No access token received")
	}

	sealed, err := h.Links.Seal(result.AccessToken)
	if err != nil {
		return serverError(c)
	}

	session.LinkAccessToken = sealed
	if err := h.Sessions.Save(c.Request().Context(), session); err != nil {
		return serverError(c)
	}
	c.Set(auth.ContextSessionKey, session)

	return c.JSON(http.StatusOK, LinkedResponse{Linked: true, ItemID: result.ItemID})
}

// Balance возвращает остатки связанных счетов и предложенный бюджет.
func (h *LinkHandler) Balance(c echo.Context) error {
	token, linked := sessionLinkToken(c, h.Links)
	if !linked {
		return badRequest(c, "no linked account")
	}

	balance, err := h.Optimizer.Balance(c.Request().Context(), optimizer.AccessTokenRequest{AccessToken: token})
	if err != nil {
		return optimizerError(c, err)
	}

	return c.JSON(http.StatusOK, BalanceResponse{
		Balance:         balance,
		SuggestedBudget: optimizer.SuggestedBudget(balance.TotalBalance),
	})
}
