package server

import (
	"github.com/labstack/echo/v4"

	"example.com/networth-optimizer/web/internal/handlers"
	"example.com/networth-optimizer/web/internal/view"
)

type routeHandlers struct {
	health      *handlers.HealthHandler
	tools       *handlers.ToolsHandler
	optimize    *handlers.OptimizeHandler
	dashboard   *handlers.DashboardHandler
	plan        *handlers.PlanHandler
	investments *handlers.InvestmentsHandler
	link        *handlers.LinkHandler
	auth        *handlers.AuthHandler
	settings    *handlers.SettingsHandler
	events      *handlers.EventsHandler
	market      *handlers.MarketHandler
}

func registerRoutes(
	e *echo.Echo,
	h routeHandlers,
	requireUser echo.MiddlewareFunc,
	authRateLimiter echo.MiddlewareFunc,
	apiRateLimiter echo.MiddlewareFunc,
) {
	e.GET("/health", h.health.Health)
	e.StaticFS("/static", view.Static())

	e.GET("/", h.tools.Home)
	e.GET("/tools", h.tools.Tools)
	e.GET("/tools/401k", h.tools.Calc401k)
	e.GET("/tools/401k/export", h.tools.Export401k)
	e.GET("/tools/roth-ira", h.tools.RothIRA)
	e.GET("/tools/roth-ira/export", h.tools.ExportRothIRA)
	e.GET("/calculator", h.optimize.Calculator)
	e.POST("/calculator", h.optimize.CalculatorSubmit, apiRateLimiter)
	e.GET("/events", h.events.Stream)
	e.GET("/ws/market", h.market.Stream)

	authGroup := e.Group("/auth", authRateLimiter)
	authGroup.GET("/login", h.auth.LoginPage)
	authGroup.POST("/login", h.auth.Login)
	authGroup.GET("/signup", h.auth.SignupPage)
	authGroup.POST("/signup", h.auth.Signup)
	authGroup.GET("/reset-password", h.auth.ResetPage)
	authGroup.POST("/reset-password", h.auth.Reset)
	authGroup.POST("/recovery", h.auth.Recovery)
	authGroup.POST("/logout", h.auth.Logout)

	dashboard := e.Group("/dashboard", requireUser)
	dashboard.GET("", h.dashboard.Dashboard)
	dashboard.POST("", h.dashboard.Submit, apiRateLimiter)
	dashboard.POST("/action-plan", h.dashboard.ActionPlan, apiRateLimiter)

	plan := e.Group("/plan", requireUser)
	plan.GET("", h.plan.Plan)
	plan.POST("", h.plan.Submit, apiRateLimiter)

	investments := e.Group("/investments", requireUser)
	investments.GET("", h.investments.Investments)
	investments.POST("", h.investments.Submit, apiRateLimiter)
	investments.POST("/analyze", h.investments.Analyze, apiRateLimiter)

	settings := e.Group("/settings", requireUser)
	settings.GET("", h.settings.Settings)
	settings.POST("/profile", h.settings.ProfileName)
	settings.POST("/financial", h.settings.Financial)
	settings.POST("/password", h.settings.Password, authRateLimiter)

	api := e.Group("/api/v1")
	api.GET("/auth/session", h.auth.Session)
	api.GET("/market/voo", h.market.VOO)

	calculators := api.Group("/calculators")
	calculators.POST("/401k", h.tools.Calc401kAPI)
	calculators.POST("/roth-ira", h.tools.RothIRAAPI)

	api.POST("/optimize", h.optimize.Optimize, apiRateLimiter)
	api.POST("/optimize-multi-loan", h.optimize.OptimizeMultiLoan, apiRateLimiter)
	api.POST("/plan/generate", h.plan.GeneratePlanAPI, apiRateLimiter)
	api.POST("/investments/create-plan", h.investments.CreatePlanAPI, apiRateLimiter)
	api.POST("/investments/analyze", h.investments.AnalyzeAPI, requireUser, apiRateLimiter)
	api.POST("/dashboard/complete-picture", h.dashboard.CompletePictureAPI, requireUser, apiRateLimiter)
	api.POST("/dashboard/action-plan", h.dashboard.ActionPlanAPI, requireUser, apiRateLimiter)

	api.POST("/link/token", h.link.Token, requireUser)
	api.POST("/link/exchange", h.link.Exchange, requireUser)
	api.GET("/link/balance", h.link.Balance, requireUser)
	api.GET("/profile", h.settings.ProfileAPI, requireUser)
	api.PATCH("/profile", h.settings.UpdateProfileAPI, requireUser)
}
