// Package external fetches exchange rates and quotes from third-party APIs, falling back
// to the last values cached in the store.
package external

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/mtlprog/cartera/internal/domain"
	"github.com/mtlprog/cartera/internal/store"
)

// ErrNoFallback is returned when live data is unavailable and nothing is cached.
var ErrNoFallback = errors.New("no live data and no cached fallback")

const (
	fxCacheID     = "fx-rates"
	quotesCacheID = "quotes"
)

// FxSource fetches a fresh exchange-rate set.
type FxSource interface {
	FetchFxRates(ctx context.Context) (domain.FxRates, error)
}

// QuoteSource fetches quotes for the symbols it handles. Results may be partial.
type QuoteSource interface {
	Name() string
	Handles(symbol string) bool
	FetchQuotes(ctx context.Context, symbols []string) (map[string]domain.Quote, error)
}

// Service resolves rates and quotes: live first, then the last values persisted in the
// store's cache collection.
type Service struct {
	fx      FxSource
	sources []QuoteSource
	store   store.Store
	cache   *quoteCache
}

// NewService creates a Service. Quote sources are tried in order for the symbols they handle.
func NewService(fx FxSource, st store.Store, cacheTTL time.Duration, sources ...QuoteSource) *Service {
	return &Service{
		fx:      fx,
		sources: sources,
		store:   st,
		cache:   newQuoteCache(cacheTTL),
	}
}

// FxRates returns live rates, saving them as the new fallback, or the cached set when the
// live fetch fails.
func (s *Service) FxRates(ctx context.Context) (domain.FxRates, error) {
	var liveErr error
	if s.fx != nil {
		rates, err := s.fx.FetchFxRates(ctx)
		if err == nil {
			if err := store.PutAs(ctx, s.store, store.Cache, fxCacheID, rates); err != nil {
				slog.Warn("External: caching fx rates failed", "error", err)
			}
			return rates, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.FxRates{}, ctxErr
		}
		liveErr = err
		slog.Warn("External: live fx rates unavailable, using cache", "error", err)
	}

	cached, err := store.GetAs[domain.FxRates](ctx, s.store, store.Cache, fxCacheID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.FxRates{}, fmt.Errorf("fx rates: %w (live: %v)", ErrNoFallback, liveErr)
	}
	if err != nil {
		return domain.FxRates{}, fmt.Errorf("loading cached fx rates: %w", err)
	}
	return cached, nil
}

// Quotes returns what it can for symbols from the in-memory cache, the live sources and
// the persisted cache, in that order. Missing symbols are simply absent. An error is
// returned only when nothing at all could be resolved.
func (s *Service) Quotes(ctx context.Context, symbols []string) (map[string]domain.Quote, error) {
	return s.quotes(ctx, symbols, true)
}

// Refresh fetches live rates and quotes, bypassing the in-memory cache, and persists them.
func (s *Service) Refresh(ctx context.Context, symbols []string) error {
	var errs []error
	if s.fx != nil {
		rates, err := s.fx.FetchFxRates(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("refreshing fx rates: %w", err))
		} else if err := store.PutAs(ctx, s.store, store.Cache, fxCacheID, rates); err != nil {
			errs = append(errs, fmt.Errorf("caching fx rates: %w", err))
		}
	}
	if len(symbols) > 0 {
		if _, err := s.quotes(ctx, symbols, false); err != nil {
			errs = append(errs, fmt.Errorf("refreshing quotes: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (s *Service) quotes(ctx context.Context, symbols []string, useCache bool) (map[string]domain.Quote, error) {
	wanted := lo.Uniq(lo.Compact(symbols))
	slices.Sort(wanted)
	result := make(map[string]domain.Quote, len(wanted))
	if len(wanted) == 0 {
		return result, nil
	}

	if useCache {
		for _, sym := range wanted {
			if q, ok := s.cache.get(sym); ok {
				result[sym] = q
			}
		}
	}

	fetched := make(map[string]domain.Quote)
	var errs []error
	for _, src := range s.sources {
		batch := lo.Filter(wanted, func(sym string, _ int) bool {
			_, have := result[sym]
			return !have && src.Handles(sym)
		})
		if len(batch) == 0 {
			continue
		}
		quotes, err := src.FetchQuotes(ctx, batch)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			slog.Warn("External: quote source failed", "source", src.Name(), "symbols", len(batch), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}
		for sym, q := range quotes {
			result[sym] = q
			fetched[sym] = q
			s.cache.set(sym, q)
		}
	}

	missing := lo.Filter(wanted, func(sym string, _ int) bool {
		_, have := result[sym]
		return !have
	})
	if len(missing) > 0 || len(fetched) > 0 {
		persisted := s.loadPersisted(ctx)
		for _, sym := range missing {
			if q, ok := persisted[sym]; ok {
				result[sym] = q
			}
		}
		if len(fetched) > 0 {
			for sym, q := range fetched {
				persisted[sym] = q
			}
			if err := store.PutAs(ctx, s.store, store.Cache, quotesCacheID, persisted); err != nil {
				slog.Warn("External: caching quotes failed", "error", err)
			}
		}
	}

	if len(result) == 0 && len(errs) > 0 {
		return nil, fmt.Errorf("quotes: %w: %w", ErrNoFallback, errors.Join(errs...))
	}
	return result, nil
}

func (s *Service) loadPersisted(ctx context.Context) map[string]domain.Quote {
	persisted, err := store.GetAs[map[string]domain.Quote](ctx, s.store, store.Cache, quotesCacheID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.Warn("External: loading cached quotes failed", "error", err)
	}
	if persisted == nil {
		persisted = make(map[string]domain.Quote)
	}
	return persisted
}
