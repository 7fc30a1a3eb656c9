package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"example.com/networth-optimizer/web/internal/market"
	"example.com/networth-optimizer/web/internal/optimizer"
	"example.com/networth-optimizer/web/internal/realtime"
)

// LatestQuote отдает последнюю закешированную котировку.
type LatestQuote interface {
	Latest() (market.Update, bool)
}

type MarketHandler struct {
	Quotes   QuoteProvider
	Latest   LatestQuote
	Hub      *realtime.Hub
	Logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewMarketHandler создает обработчик котировок. latest и hub могут быть nil,
// если фоновый опрос выключен.
func NewMarketHandler(quotes QuoteProvider, latest LatestQuote, hub *realtime.Hub, logger *slog.Logger) *MarketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MarketHandler{
		Quotes: quotes,
		Latest: latest,
		Hub:    hub,
		Logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// VOO возвращает текущую котировку индексного фонда.
func (h *MarketHandler) VOO(c echo.Context) error {
	quote, err := h.Quotes.Quote(c.Request().Context())
	if err != nil {
		return badGateway(c, optimizer.Message(err))
	}
	return c.JSON(http.StatusOK, quote)
}

// Stream подключает websocket к рассылке котировок. Новый клиент сразу
// получает последнюю известную котировку.
func (h *MarketHandler) Stream(c echo.Context) error {
	if h.Hub == nil {
		return notFound(c, "market stream disabled")
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.Logger.Debug("websocket upgrade failed", slog.String("error", err.Error()))
		return nil
	}

	h.Hub.AddClient(conn)
	defer h.Hub.RemoveClient(conn)

	if h.Latest != nil {
		if update, ok := h.Latest.Latest(); ok {
			if err := h.Hub.Send(conn, update); err != nil {
				return nil
			}
		}
	}

	// Клиент ничего не присылает; чтение нужно только чтобы заметить закрытие.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return nil
		}
	}
}
