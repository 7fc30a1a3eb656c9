package market

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"example.com/networth-optimizer/web/internal/optimizer"
)

var ErrNoQuote = errors.New("no quote available")

type QuoteSource interface {
	VOOLive(ctx context.Context) (optimizer.Quote, error)
}

type Broadcaster interface {
	BroadcastJSON(v any)
}

// Update is the message broadcast to websocket clients.
type Update struct {
	Type      string          `json:"type"`
	Quote     optimizer.Quote `json:"quote"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Poller periodically fetches the index quote and keeps the last good one.
// A failed fetch never replaces a cached quote.
type Poller struct {
	source      QuoteSource
	broadcaster Broadcaster
	ticker      string
	interval    time.Duration
	logger      *slog.Logger
	now         func() time.Time

	mu        sync.RWMutex
	quote     optimizer.Quote
	fetchedAt time.Time
	hasQuote  bool
}

// NewPoller создает опросчик котировок.
func NewPoller(source QuoteSource, broadcaster Broadcaster, ticker string, interval time.Duration, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = time.Minute
	}

	return &Poller{
		source:      source,
		broadcaster: broadcaster,
		ticker:      ticker,
		interval:    interval,
		logger:      logger,
		now:         time.Now,
	}
}

// Run опрашивает источник до отмены контекста.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.refreshLogged(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refreshLogged(ctx)
		}
	}
}

// Refresh загружает котировку и рассылает ее клиентам.
func (p *Poller) Refresh(ctx context.Context) error {
	quote, err := p.source.VOOLive(ctx)
	if err != nil {
		return err
	}
	if quote.Error != "" {
		return errors.New(quote.Error)
	}
	if quote.Price <= 0 {
		return ErrNoQuote
	}
	if quote.Ticker == "" {
		quote.Ticker = p.ticker
	}

	fetchedAt := p.now().UTC()

	p.mu.Lock()
	p.quote = quote
	p.fetchedAt = fetchedAt
	p.hasQuote = true
	p.mu.Unlock()

	if p.broadcaster != nil {
		p.broadcaster.BroadcastJSON(Update{Type: "quote", Quote: quote, FetchedAt: fetchedAt})
	}

	return nil
}

// Latest возвращает последнюю успешную котировку.
func (p *Poller) Latest() (Update, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.hasQuote {
		return Update{}, false
	}
	return Update{Type: "quote", Quote: p.quote, FetchedAt: p.fetchedAt}, true
}

// Quote возвращает кэшированную котировку или загружает ее, если кэш пуст.
func (p *Poller) Quote(ctx context.Context) (optimizer.Quote, error) {
	if latest, ok := p.Latest(); ok {
		return latest.Quote, nil
	}

	if err := p.Refresh(ctx); err != nil {
		return optimizer.Quote{}, err
	}

	latest, _ := p.Latest()
	return latest.Quote, nil
}

func (p *Poller) refreshLogged(ctx context.Context) {
	if err := p.Refresh(ctx); err != nil && ctx.Err() == nil {
		p.logger.Warn("market quote refresh failed",
			slog.String("ticker", p.ticker),
			slog.String("error", err.Error()),
		)
	}
}
