package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"example.com/networth-optimizer/web/internal/catalog"
	"example.com/networth-optimizer/web/internal/optimizer"
	"example.com/networth-optimizer/web/internal/sequencer"
	"example.com/networth-optimizer/web/internal/view"
)

const (
	analyzeDaysBack        = 365
	investmentsFailedText  = "Failed to generate investment plan"
	analyzeFailedText      = "Failed to analyze your portfolio"
	brokerageRequiredText  = "Link your brokerage account first."
	riskToleranceRangeText = "Risk tolerance must be between 1 and 10"
)

type InvestmentsHandler struct {
	pages
	Optimizer Optimizer
	Links     LinkTokens
	Tracker   *sequencer.Tracker
}

// NewInvestmentsHandler создает обработчик ETF-плана и анализа портфеля.
func NewInvestmentsHandler(c *catalog.Catalog, client Optimizer, links LinkTokens, tracker *sequencer.Tracker) *InvestmentsHandler {
	return &InvestmentsHandler{
		pages:     pages{catalog: c},
		Optimizer: client,
		Links:     links,
		Tracker:   tracker,
	}
}

type AnalyzePayload struct {
	DaysBack int `json:"days_back" validate:"omitempty,gt=0,lte=3650"`
}

// Investments рендерит форму ETF-плана.
func (h *InvestmentsHandler) Investments(c echo.Context) error {
	data := view.InvestmentsData{RiskTolerance: defaultRiskTolerance}
	_, data.Linked = sessionLinkToken(c, h.Links)
	return h.render(c, http.StatusOK, "investments.html", "Investments", "investments", data)
}

// Submit запрашивает ETF-план по шкале риска 1–10. Пустые суммы считаются
// нулем.
func (h *InvestmentsHandler) Submit(c echo.Context) error {
	data := view.InvestmentsData{RiskTolerance: defaultRiskTolerance}
	_, data.Linked = sessionLinkToken(c, h.Links)

	var req optimizer.SimplePlanRequest
	if err := c.Bind(&req); err != nil {
		data.Error = invalidInputText
		return h.render(c, http.StatusOK, "investments.html", "Investments", "investments", data)
	}
	data.PortfolioValue = req.TotalPortfolioValue
	data.MonthlyContribution = req.MonthlyContribution
	if err := c.Validate(&req); err != nil {
		data.Error = formProblem(err, invalidInputText, riskMessages)
		return h.render(c, http.StatusOK, "investments.html", "Investments", "investments", data)
	}
	data.RiskTolerance = req.RiskTolerance

	plan, err := h.Optimizer.CreateInvestmentPlan(c.Request().Context(), req)
	if err != nil {
		data.Error = messageOr(err, investmentsFailedText)
		return h.render(c, http.StatusOK, "investments.html", "Investments", "investments", data)
	}

	data.Plan = &plan
	return h.render(c, http.StatusOK, "investments.html", "Investments", "investments", data)
}

// Analyze анализирует связанный брокерский счет.
func (h *InvestmentsHandler) Analyze(c echo.Context) error {
	data := view.InvestmentsData{RiskTolerance: defaultRiskTolerance}

	token, linked := sessionLinkToken(c, h.Links)
	data.Linked = linked
	if !linked {
		data.LinkError = brokerageRequiredText
		return h.render(c, http.StatusOK, "investments.html", "Investments", "investments", data)
	}

	analysis, err := h.Optimizer.AnalyzeInvestments(c.Request().Context(), optimizer.AnalyzeRequest{
		AccessToken: token,
		DaysBack:    analyzeDaysBack,
	})
	if err != nil {
		data.LinkError = messageOr(err, analyzeFailedText)
		return h.render(c, http.StatusOK, "investments.html", "Investments", "investments", data)
	}

	data.Analysis = &analysis
	return h.render(c, http.StatusOK, "investments.html", "Investments", "investments", data)
}

// CreatePlanAPI строит ETF-план для JSON API.
func (h *InvestmentsHandler) CreatePlanAPI(c echo.Context) error {
	var req optimizer.SimplePlanRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, formProblem(err, invalidInputText, riskMessages))
	}

	return sequenced(c, h.Tracker, "create-plan", func(ctx context.Context) (optimizer.SimplePlan, error) {
		return h.Optimizer.CreateInvestmentPlan(ctx, req)
	})
}

// AnalyzeAPI анализирует связанный брокерский счет для JSON API.
func (h *InvestmentsHandler) AnalyzeAPI(c echo.Context) error {
	var payload AnalyzePayload
	if err := c.Bind(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&payload); err != nil {
		return validationFailed(c, err)
	}
	if payload.DaysBack == 0 {
		payload.DaysBack = analyzeDaysBack
	}

	token, linked := sessionLinkToken(c, h.Links)
	if !linked {
		return badRequest(c, "no linked account")
	}

	return sequenced(c, h.Tracker, "analyze", func(ctx context.Context) (optimizer.AnalyzeResult, error) {
		return h.Optimizer.AnalyzeInvestments(ctx, optimizer.AnalyzeRequest{AccessToken: token, DaysBack: payload.DaysBack})
	})
}

