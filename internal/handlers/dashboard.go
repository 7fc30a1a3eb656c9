package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/networth-optimizer/web/internal/auth"
	"example.com/networth-optimizer/web/internal/catalog"
	"example.com/networth-optimizer/web/internal/models"
	"example.com/networth-optimizer/web/internal/optimizer"
	"example.com/networth-optimizer/web/internal/profile"
	"example.com/networth-optimizer/web/internal/sequencer"
	"example.com/networth-optimizer/web/internal/view"
)

const (
	defaultTermMonths    = 120
	defaultRiskTolerance = 5
	linkLoadErrorText    = "Could not load your linked accounts. Please try linking again."
)

type DashboardHandler struct {
	pages
	Optimizer Optimizer
	Quotes    QuoteProvider
	Profiles  Profiles
	Links     LinkTokens
	Tracker   *sequencer.Tracker
}

// NewDashboardHandler создает обработчик дашборда нескольких кредитов.
func NewDashboardHandler(c *catalog.Catalog, client Optimizer, quotes QuoteProvider, profiles Profiles, links LinkTokens, tracker *sequencer.Tracker) *DashboardHandler {
	return &DashboardHandler{
		pages:     pages{catalog: c},
		Optimizer: client,
		Quotes:    quotes,
		Profiles:  profiles,
		Links:     links,
		Tracker:   tracker,
	}
}

type ActionPlanPayload struct {
	RiskTolerance int `json:"risk_tolerance" form:"risk_tolerance" validate:"required,gte=1,lte=10"`
}

// Dashboard рендерит дашборд с бюджетом из профиля.
func (h *DashboardHandler) Dashboard(c echo.Context) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return c.Redirect(http.StatusSeeOther, LoginPath)
	}

	saved := h.Profiles.Load(c.Request().Context(), user.ID)
	data := h.load(c)
	data.Loans = []models.Loan{}
	data.MonthlyBudget = saved.MonthlyBudget
	return h.render(c, http.StatusOK, "dashboard.html", "Dashboard", "dashboard", data)
}

// Submit обрабатывает форму дашборда: добавление и удаление строк или
// оптимизацию. Бюджет и сумма долга сохраняются в профиль.
func (h *DashboardHandler) Submit(c echo.Context) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return c.Redirect(http.StatusSeeOther, LoginPath)
	}

	var form DashboardForm
	bindErr := c.Bind(&form)
	if bindErr != nil {
		// Rows are kept without their amounts so the page still shows them.
		params, err := c.FormParams()
		if err != nil {
			return c.Redirect(http.StatusSeeOther, "/dashboard")
		}
		form = DashboardForm{
			IDs:    params["loan_id"],
			Types:  params["loan_type"],
			Names:  params["loan_name"],
			Action: params.Get("action"),
		}
	}

	data := h.load(c)
	data.Loans = form.Loans()
	data.MonthlyBudget = form.MonthlyBudget

	loansErr, budgetErr := bindErr, bindErr
	if bindErr == nil {
		loansErr = validateLoans(c, data.Loans)
		budgetErr = c.Validate(&form)
	}

	action := form.Action
	switch {
	case action == "add":
		data.Loans = append(data.Loans, newLoan(len(data.Loans)))
	case strings.HasPrefix(action, "remove:"):
		index, err := strconv.Atoi(strings.TrimPrefix(action, "remove:"))
		if err == nil && index >= 0 && index < len(data.Loans) {
			data.Loans = append(data.Loans[:index], data.Loans[index+1:]...)
		}
	default:
		switch {
		case loansErr != nil:
			data.Error = optimizer.ErrInvalidLoan.Error()
		case budgetErr != nil:
			data.Error = optimizer.ErrNoBudget.Error()
		default:
			h.optimize(c, &data)
		}
	}

	if budgetErr == nil {
		_, _ = h.Profiles.SyncDashboard(c.Request().Context(), user.ID, form.MonthlyBudget, data.Loans)
	}
	data.TotalDebt = profile.TotalDebt(data.Loans)

	return h.render(c, http.StatusOK, "dashboard.html", "Dashboard", "dashboard", data)
}

// ActionPlan строит план действий по связанным счетам.
func (h *DashboardHandler) ActionPlan(c echo.Context) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return c.Redirect(http.StatusSeeOther, LoginPath)
	}

	data := h.load(c)
	data.Loans = []models.Loan{}
	data.MonthlyBudget = h.Profiles.Load(c.Request().Context(), user.ID).MonthlyBudget

	var payload ActionPlanPayload
	if err := c.Bind(&payload); err != nil || c.Validate(&payload) != nil {
		data.Error = riskToleranceRangeText
		return h.render(c, http.StatusOK, "dashboard.html", "Dashboard", "dashboard", data)
	}
	risk := payload.RiskTolerance
	data.RiskTolerance = risk

	token, linked := sessionLinkToken(c, h.Links)
	if !linked {
		data.LinkError = "Link a bank account first."
		return h.render(c, http.StatusOK, "dashboard.html", "Dashboard", "dashboard", data)
	}

	plan, err := h.Optimizer.ActionPlan(c.Request().Context(), optimizer.ActionPlanRequest{AccessToken: token, RiskTolerance: risk})
	if err != nil {
		data.Error = optimizer.Message(err)
		return h.render(c, http.StatusOK, "dashboard.html", "Dashboard", "dashboard", data)
	}

	data.ActionPlan = &plan
	return h.render(c, http.StatusOK, "dashboard.html", "Dashboard", "dashboard", data)
}

// CompletePictureAPI возвращает сводку по всем связанным счетам.
func (h *DashboardHandler) CompletePictureAPI(c echo.Context) error {
	token, linked := sessionLinkToken(c, h.Links)
	if !linked {
		return badRequest(c, "no linked account")
	}

	picture, err := h.Optimizer.CompletePicture(c.Request().Context(), optimizer.AccessTokenRequest{AccessToken: token})
	if err != nil {
		return optimizerError(c, err)
	}
	return c.JSON(http.StatusOK, picture)
}

// ActionPlanAPI строит план действий для JSON API.
func (h *DashboardHandler) ActionPlanAPI(c echo.Context) error {
	var payload ActionPlanPayload
	if err := c.Bind(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&payload); err != nil {
		return badRequest(c, riskToleranceRangeText)
	}

	token, linked := sessionLinkToken(c, h.Links)
	if !linked {
		return badRequest(c, "no linked account")
	}

	return sequenced(c, h.Tracker, "action-plan", func(ctx context.Context) (optimizer.ActionPlan, error) {
		return h.Optimizer.ActionPlan(ctx, optimizer.ActionPlanRequest{AccessToken: token, RiskTolerance: payload.RiskTolerance})
	})
}

// load собирает общую часть страницы: котировку и связанные счета.
func (h *DashboardHandler) load(c echo.Context) view.DashboardData {
	ctx := c.Request().Context()
	data := view.DashboardData{RiskTolerance: defaultRiskTolerance}

	if h.Quotes != nil {
		if quote, err := h.Quotes.Quote(ctx); err == nil {
			data.Quote = &quote
		}
	}

	token, linked := sessionLinkToken(c, h.Links)
	if !linked {
		return data
	}
	data.Linked = true

	balance, err := h.Optimizer.Balance(ctx, optimizer.AccessTokenRequest{AccessToken: token})
	if err != nil {
		data.LinkError = linkLoadErrorText
		return data
	}
	data.Balance = &balance
	data.SuggestedBudget = optimizer.SuggestedBudget(balance.TotalBalance)

	if picture, err := h.Optimizer.CompletePicture(ctx, optimizer.AccessTokenRequest{AccessToken: token}); err == nil {
		data.Picture = &picture
	}

	return data
}

func (h *DashboardHandler) optimize(c echo.Context, data *view.DashboardData) {
	req, err := optimizer.NewMultiLoanRequest(data.Loans, data.MonthlyBudget)
	if err != nil {
		data.Error = optimizer.Message(err)
		return
	}

	result, err := h.Optimizer.OptimizeMultiLoan(c.Request().Context(), req)
	if err != nil {
		data.Error = optimizer.Message(err)
		return
	}

	data.Result = &result
	data.Chart = view.ProjectionChart(result.NetWorthProjection)
}

// sessionLinkToken вскрывает токен связанного счета из сессии запроса.
func sessionLinkToken(c echo.Context, links LinkTokens) (string, bool) {
	session, ok := auth.SessionFromContext(c)
	if !ok || links == nil || len(session.LinkAccessToken) == 0 {
		return "", false
	}
	token, err := links.Open(session.LinkAccessToken)
	if err != nil || token == "" {
		return "", false
	}
	return token, true
}

func newLoan(index int) models.Loan {
	term := defaultTermMonths
	return models.Loan{
		ID:         uuid.NewString(),
		LoanType:   models.LoanTypeStudent,
		LoanName:   optimizer.DefaultLoanName(index),
		TermMonths: &term,
	}
}
