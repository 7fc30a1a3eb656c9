package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"example.com/networth-optimizer/web/internal/auth"
	"example.com/networth-optimizer/web/internal/catalog"
	"example.com/networth-optimizer/web/internal/config"
	"example.com/networth-optimizer/web/internal/handlers"
	"example.com/networth-optimizer/web/internal/identity"
	"example.com/networth-optimizer/web/internal/market"
	"example.com/networth-optimizer/web/internal/models"
	"example.com/networth-optimizer/web/internal/notifications"
	"example.com/networth-optimizer/web/internal/optimizer"
	"example.com/networth-optimizer/web/internal/profile"
	"example.com/networth-optimizer/web/internal/realtime"
	"example.com/networth-optimizer/web/internal/sequencer"
	"example.com/networth-optimizer/web/internal/view"
)

// Dependencies are the stores and remote clients built by main.
type Dependencies struct {
	Sessions  auth.SessionStore
	Profiles  profile.Repository
	Optimizer *optimizer.Client
	Identity  *identity.Client
	Catalog   *catalog.Catalog
	// Poller and MarketHub are nil when background quote polling is off.
	Poller    *market.Poller
	MarketHub *realtime.Hub

	// HealthChecks are probed by /health.
	HealthChecks map[string]handlers.HealthCheck
}

// New собирает HTTP-сервер Echo с роутами и зависимостями.
func New(cfg config.Config, logger *slog.Logger, deps Dependencies) (*echo.Echo, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Catalog == nil {
		c, err := catalog.Default()
		if err != nil {
			return nil, err
		}
		deps.Catalog = c
	}

	renderer, err := view.NewRenderer(deps.Catalog)
	if err != nil {
		return nil, fmt.Errorf("templates: %w", err)
	}
	sealer, err := auth.NewSealer(cfg.Session.SealKey)
	if err != nil {
		return nil, fmt.Errorf("seal key: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	e.Renderer = renderer
	e.HTTPErrorHandler = errorHandler(logger, deps.Catalog)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))
	if len(cfg.CORS.AllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch},
			AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAccept, "X-CSRF-Token"},
			AllowCredentials: true,
		}))
	}
	e.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
		TokenLookup:    "form:_csrf,header:X-CSRF-Token",
		CookieName:     "nwo_csrf",
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSecure:   cfg.Session.CookieSecure,
		CookieSameSite: http.SameSiteLaxMode,
	}))

	eventHub := notifications.NewHub()
	sessions := auth.NewSessionManager(auth.SessionManagerConfig{
		Tokens:       auth.NewTokenManager(cfg.Session.Secret, cfg.Session.Issuer, cfg.Session.TTL),
		Store:        deps.Sessions,
		Refresher:    deps.Identity,
		CookieName:   cfg.Session.CookieName,
		CookieSecure: cfg.Session.CookieSecure,
		Logger:       logger,
		OnRefresh: func(session models.Session) {
			user := session.User
			eventHub.Publish(user.ID, string(auth.EventTokenRefreshed), &user)
		},
	})
	e.Use(sessions.Middleware())

	var quotes handlers.QuoteProvider = liveQuotes{client: deps.Optimizer}
	var latest handlers.LatestQuote
	if deps.Poller != nil {
		quotes = deps.Poller
		latest = deps.Poller
	}

	tracker := sequencer.NewTracker()
	profiles := profile.NewService(deps.Profiles, logger)

	registerRoutes(e, routeHandlers{
		health:      handlers.NewHealthHandler(deps.HealthChecks),
		tools:       handlers.NewToolsHandler(deps.Catalog, quotes),
		optimize:    handlers.NewOptimizeHandler(deps.Catalog, deps.Optimizer, profiles, tracker),
		dashboard:   handlers.NewDashboardHandler(deps.Catalog, deps.Optimizer, quotes, profiles, sealer, tracker),
		plan:        handlers.NewPlanHandler(deps.Catalog, deps.Optimizer, profiles, tracker),
		investments: handlers.NewInvestmentsHandler(deps.Catalog, deps.Optimizer, sealer, tracker),
		link:        handlers.NewLinkHandler(deps.Optimizer, sessions, sealer),
		auth:        handlers.NewAuthHandler(deps.Catalog, deps.Identity, sessions, eventHub, cfg.Identity.ResetRedirectURL),
		settings:    handlers.NewSettingsHandler(deps.Catalog, deps.Identity, sessions, profiles, eventHub),
		events:      handlers.NewEventsHandler(eventHub, deps.Identity),
		market:      handlers.NewMarketHandler(quotes, latest, deps.MarketHub, logger),
	},
		auth.RequireUser(handlers.LoginPath),
		authRateLimiter(cfg.RateLimit),
		apiRateLimiter(cfg.RateLimit, cfg.Session.CookieName),
	)

	return e, nil
}

// NewHTTPServer создает net/http сервер с заданными таймаутами.
func NewHTTPServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

// liveQuotes asks the optimization service on every call; used when the
// background poller is off.
type liveQuotes struct {
	client *optimizer.Client
}

func (q liveQuotes) Quote(ctx context.Context) (optimizer.Quote, error) {
	return q.client.VOOLive(ctx)
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.String("remote_ip", v.RemoteIP),
				slog.String("request_id", v.RequestID),
				slog.Duration("latency", v.Latency),
			}
			if user, ok := auth.UserFromContext(c); ok {
				attrs = append(attrs, slog.String("user_id", user.ID.String()))
			}

			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}

			msg := "request completed"
			if v.Status >= http.StatusInternalServerError {
				logger.LogAttrs(c.Request().Context(), slog.LevelError, msg, attrs...)
				return nil
			}

			logger.LogAttrs(c.Request().Context(), slog.LevelInfo, msg, attrs...)
			return nil
		},
	})
}

func authRateLimiter(cfg config.RateLimitConfig) echo.MiddlewareFunc {
	limit := rate.Limit(float64(cfg.AuthPerMinute) / 60.0)
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      limit,
		Burst:     cfg.AuthBurst,
		ExpiresIn: time.Minute,
	})

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().Method == http.MethodGet
		},
		Store: store,
	})
}

// apiRateLimiter limits optimization calls per session, or per IP for
// anonymous visitors.
func apiRateLimiter(cfg config.RateLimitConfig, cookieName string) echo.MiddlewareFunc {
	limit := rate.Limit(float64(cfg.APIPerMinute) / 60.0)
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      limit,
		Burst:     cfg.APIBurst,
		ExpiresIn: time.Minute,
	})

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			if cookie, err := c.Cookie(cookieName); err == nil && cookie.Value != "" {
				return "session:" + auth.HashToken(cookie.Value), nil
			}
			return "ip:" + c.RealIP(), nil
		},
	})
}
