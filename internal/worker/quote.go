package worker

import (
	"context"
	"log/slog"
	"time"
)

// MarketRefresher refreshes the cached exchange rates and quotes.
type MarketRefresher interface {
	RefreshMarketData(ctx context.Context) error
}

// QuoteWorker periodically refreshes market data so valuations can fall back to recent
// values when a provider is down.
type QuoteWorker struct {
	refresher MarketRefresher
	interval  time.Duration
}

// NewQuoteWorker creates a new QuoteWorker.
func NewQuoteWorker(refresher MarketRefresher, interval time.Duration) *QuoteWorker {
	return &QuoteWorker{
		refresher: refresher,
		interval:  interval,
	}
}

func (w *QuoteWorker) refresh(ctx context.Context, initial bool) {
	if err := w.refresher.RefreshMarketData(ctx); err != nil {
		slog.Error("QuoteWorker: refresh failed", "initial", initial, "error", err)
		return
	}
	slog.Info("QuoteWorker: refresh completed", "initial", initial)
}

// Run starts the quote worker loop. It blocks until the context is cancelled.
func (w *QuoteWorker) Run(ctx context.Context) {
	slog.Info("QuoteWorker: starting", "interval", w.interval)

	w.refresh(ctx, true)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("QuoteWorker: shutting down")
			return
		case <-ticker.C:
			w.refresh(ctx, false)
		}
	}
}
