package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"example.com/networth-optimizer/web/internal/auth"
	"example.com/networth-optimizer/web/internal/catalog"
	"example.com/networth-optimizer/web/internal/handlers"
	"example.com/networth-optimizer/web/internal/view"
)

// errorHandler отвечает JSON для API и страницей ошибки для браузера.
func errorHandler(logger *slog.Logger, c *catalog.Catalog) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		if ctx.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		message := "Something went wrong. Please try again."
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			status = httpErr.Code
			if status < http.StatusInternalServerError {
				message = fmt.Sprint(httpErr.Message)
			}
		}
		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				slog.String("uri", ctx.Request().RequestURI),
				slog.String("error", err.Error()),
			)
		}

		if ctx.Request().Method == http.MethodHead {
			err = ctx.NoContent(status)
		} else if wantsJSON(ctx.Request()) {
			err = ctx.JSON(status, handlers.ErrorResponse{Error: message})
		} else {
			page := view.Page{
				Title: http.StatusText(status),
				Data:  view.ErrorData{Status: status, Message: message},
			}
			if c != nil {
				page.Tools = c.Tools
			}
			if user, ok := auth.UserFromContext(ctx); ok {
				page.User = &user
			}
			if token, ok := ctx.Get("csrf").(string); ok {
				page.CSRF = token
			}
			err = ctx.Render(status, "error.html", page)
		}
		if err != nil {
			logger.Warn("write error response failed", slog.String("error", err.Error()))
		}
	}
}

func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}
