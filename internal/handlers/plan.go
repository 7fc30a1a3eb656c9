package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"example.com/networth-optimizer/web/internal/auth"
	"example.com/networth-optimizer/web/internal/catalog"
	"example.com/networth-optimizer/web/internal/optimizer"
	"example.com/networth-optimizer/web/internal/profile"
	"example.com/networth-optimizer/web/internal/sequencer"
	"example.com/networth-optimizer/web/internal/view"
)

const (
	planFailedText    = "Failed to generate plan"
	planNoBudgetText  = "Please enter a monthly amount to invest"
	invalidFieldsText = "Please check the highlighted values"
)

type PlanHandler struct {
	pages
	Optimizer Optimizer
	Profiles  Profiles
	Tracker   *sequencer.Tracker
}

// NewPlanHandler создает обработчик персонального инвестиционного плана.
func NewPlanHandler(c *catalog.Catalog, client Optimizer, profiles Profiles, tracker *sequencer.Tracker) *PlanHandler {
	return &PlanHandler{
		pages:     pages{catalog: c},
		Optimizer: client,
		Profiles:  profiles,
		Tracker:   tracker,
	}
}

// Plan рендерит форму плана, заполненную из профиля.
func (h *PlanHandler) Plan(c echo.Context) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return c.Redirect(http.StatusSeeOther, LoginPath)
	}

	data := view.PlanData{Profile: h.Profiles.Load(c.Request().Context(), user.ID)}
	return h.render(c, http.StatusOK, "plan.html", "Investment Plan", "plan", data)
}

// Submit сохраняет параметры в профиль и запрашивает план.
func (h *PlanHandler) Submit(c echo.Context) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return c.Redirect(http.StatusSeeOther, LoginPath)
	}

	ctx := c.Request().Context()
	current := h.Profiles.Load(ctx, user.ID)
	data := view.PlanData{Profile: current}

	patch, err := bindFinancial(c)
	if err != nil {
		data.Error = invalidFieldsText
		return h.render(c, http.StatusOK, "plan.html", "Investment Plan", "plan", data)
	}

	data.Profile = profile.Normalize(profile.Apply(current, patch))
	if _, err := h.Profiles.Update(ctx, user.ID, patch); err == nil {
		data.Saved = true
	}

	if data.Profile.MonthlyBudget <= 0 {
		data.Error = planNoBudgetText
		return h.render(c, http.StatusOK, "plan.html", "Investment Plan", "plan", data)
	}

	plan, err := h.Optimizer.GeneratePlan(ctx, optimizer.NewPlanRequest(data.Profile))
	if err != nil {
		data.Error = messageOr(err, planFailedText)
		return h.render(c, http.StatusOK, "plan.html", "Investment Plan", "plan", data)
	}

	data.Plan = &plan
	data.Chart = view.PlanChart(&plan)
	return h.render(c, http.StatusOK, "plan.html", "Investment Plan", "plan", data)
}

// GeneratePlanAPI строит план по профилю с необязательными изменениями из
// тела запроса. Изменения сохраняются для вошедшего пользователя.
func (h *PlanHandler) GeneratePlanAPI(c echo.Context) error {
	var patch profile.Patch
	if err := c.Bind(&patch); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&patch); err != nil {
		return validationFailed(c, err)
	}

	ctx := c.Request().Context()
	current := profile.Defaults()
	user, loggedIn := auth.UserFromContext(c)
	if loggedIn {
		current = h.Profiles.Load(ctx, user.ID)
	}

	merged := profile.Normalize(profile.Apply(current, patch))
	if merged.MonthlyBudget <= 0 {
		return badRequest(c, planNoBudgetText)
	}
	if loggedIn {
		_, _ = h.Profiles.Update(ctx, user.ID, patch)
	}

	return sequenced(c, h.Tracker, "plan", func(ctx context.Context) (optimizer.InvestmentPlan, error) {
		return h.Optimizer.GeneratePlan(ctx, optimizer.NewPlanRequest(merged))
	})
}

// messageOr returns the user-facing text of err, replacing the generic
// optimizer fallback with fallback.
func messageOr(err error, fallback string) string {
	message := optimizer.Message(err)
	if message == optimizer.FallbackMessage {
		return fallback
	}
	return message
}
