package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck проверяет доступность одной зависимости.
type HealthCheck func(ctx context.Context) error

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

type HealthHandler struct {
	Checks map[string]HealthCheck
}

func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{Checks: checks}
}

// Health возвращает статус сервиса и его хранилищ.
func (h *HealthHandler) Health(c echo.Context) error {
	if len(h.Checks) == 0 {
		return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
	defer cancel()

	resp := HealthResponse{Status: "ok", Checks: make(map[string]string, len(h.Checks))}
	for name, check := range h.Checks {
		if err := check(ctx); err != nil {
			resp.Status = "degraded"
			resp.Checks[name] = "unavailable"
			continue
		}
		resp.Checks[name] = "ok"
	}

	if resp.Status != "ok" {
		return c.JSON(http.StatusServiceUnavailable, resp)
	}
	return c.JSON(http.StatusOK, resp)
}
