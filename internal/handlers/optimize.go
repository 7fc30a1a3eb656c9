package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"example.com/networth-optimizer/web/internal/auth"
	"example.com/networth-optimizer/web/internal/catalog"
	"example.com/networth-optimizer/web/internal/models"
	"example.com/networth-optimizer/web/internal/optimizer"
	"example.com/networth-optimizer/web/internal/sequencer"
	"example.com/networth-optimizer/web/internal/view"
)

type OptimizeHandler struct {
	pages
	Optimizer Optimizer
	Profiles  Profiles
	Tracker   *sequencer.Tracker
}

// NewOptimizeHandler создает обработчик сравнения «погасить долг или инвестировать».
func NewOptimizeHandler(c *catalog.Catalog, client Optimizer, profiles Profiles, tracker *sequencer.Tracker) *OptimizeHandler {
	return &OptimizeHandler{
		pages:     pages{catalog: c},
		Optimizer: client,
		Profiles:  profiles,
		Tracker:   tracker,
	}
}

type MultiLoanPayload struct {
	Loans         []models.Loan `json:"loans" validate:"required,min=1,dive"`
	MonthlyBudget float64       `json:"monthly_budget"`
}

// Calculator рендерит форму быстрого расчета для одного кредита.
func (h *OptimizeHandler) Calculator(c echo.Context) error {
	data := view.CalculatorData{Form: optimizer.DefaultSingleLoanForm()}
	return h.render(c, http.StatusOK, "calculator.html", "Quick Calculator", "calculator", data)
}

// CalculatorSubmit отправляет форму в сервис оптимизации. Ошибки
// показываются рядом с формой.
func (h *OptimizeHandler) CalculatorSubmit(c echo.Context) error {
	data := view.CalculatorData{Form: optimizer.DefaultSingleLoanForm()}
	if err := c.Bind(&data.Form); err != nil {
		data.Error = optimizer.ErrInvalidLoan.Error()
		return h.render(c, http.StatusOK, "calculator.html", "Quick Calculator", "calculator", data)
	}

	req, err := optimizer.NewSingleLoanRequest(data.Form)
	if err != nil {
		data.Error = optimizer.Message(err)
		return h.render(c, http.StatusOK, "calculator.html", "Quick Calculator", "calculator", data)
	}

	result, err := h.Optimizer.Optimize(c.Request().Context(), req)
	if err != nil {
		data.Error = optimizer.Message(err)
		return h.render(c, http.StatusOK, "calculator.html", "Quick Calculator", "calculator", data)
	}

	data.Result = &result
	data.Chart = view.BreakdownChart(result.MonthlyBreakdown)
	return h.render(c, http.StatusOK, "calculator.html", "Quick Calculator", "calculator", data)
}

// Optimize сравнивает два пути для одного кредита.
func (h *OptimizeHandler) Optimize(c echo.Context) error {
	var form optimizer.SingleLoanForm
	if err := c.Bind(&form); err != nil {
		return badRequest(c, "invalid payload")
	}

	req, err := optimizer.NewSingleLoanRequest(form)
	if err != nil {
		return optimizerError(c, err)
	}

	return sequenced(c, h.Tracker, "optimize", func(ctx context.Context) (optimizer.OptimizationResult, error) {
		return h.Optimizer.Optimize(ctx, req)
	})
}

// OptimizeMultiLoan ранжирует несколько кредитов. Для вошедшего
// пользователя бюджет и сумма долга переносятся в профиль.
func (h *OptimizeHandler) OptimizeMultiLoan(c echo.Context) error {
	var payload MultiLoanPayload
	if err := c.Bind(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}
	if len(payload.Loans) == 0 {
		return badRequest(c, optimizer.ErrNoLoans.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return validationFailed(c, err)
	}

	req, err := optimizer.NewMultiLoanRequest(payload.Loans, payload.MonthlyBudget)
	if err != nil {
		return optimizerError(c, err)
	}

	if user, ok := auth.UserFromContext(c); ok && h.Profiles != nil {
		_, _ = h.Profiles.SyncDashboard(c.Request().Context(), user.ID, payload.MonthlyBudget, payload.Loans)
	}

	return sequenced(c, h.Tracker, "optimize-multi-loan", func(ctx context.Context) (optimizer.MultiLoanResult, error) {
		return h.Optimizer.OptimizeMultiLoan(ctx, req)
	})
}

// sequenced runs call under the caller's ticket for operation. A request
// that was superseded while in flight answers 409 instead of its result.
func sequenced[T any](c echo.Context, tracker *sequencer.Tracker, operation string, call func(ctx context.Context) (T, error)) error {
	ctx, ticket := tracker.Begin(c.Request().Context(), sequenceKey(c, operation))
	defer ticket.Done()

	result, err := call(ctx)
	if !ticket.Current() {
		return superseded(c)
	}
	if err != nil {
		return optimizerError(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

// sequenceKey строит ключ по пользователю, а для анонимных запросов по cookie
// браузера: за одним NAT бывает много людей.
func sequenceKey(c echo.Context, operation string) string {
	if user, ok := auth.UserFromContext(c); ok {
		return user.ID.String() + ":" + operation
	}
	return deviceID(c).String() + ":" + operation
}
