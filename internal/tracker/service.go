// Package tracker wires the store, the market data service and the valuation engine
// together: it loads the book, values it, and runs the yield and fixed-term jobs.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/mtlprog/cartera/internal/domain"
	"github.com/mtlprog/cartera/internal/external"
	"github.com/mtlprog/cartera/internal/fixedterm"
	"github.com/mtlprog/cartera/internal/fx"
	"github.com/mtlprog/cartera/internal/ledger"
	"github.com/mtlprog/cartera/internal/portfolio"
	"github.com/mtlprog/cartera/internal/store"
	"github.com/mtlprog/cartera/internal/yield"
)

// MarketData provides exchange rates and quotes.
type MarketData interface {
	FxRates(ctx context.Context) (domain.FxRates, error)
	Quotes(ctx context.Context, symbols []string) (map[string]domain.Quote, error)
	Refresh(ctx context.Context, symbols []string) error
}

// Service is the application core used by the API, the workers and the CLI.
type Service struct {
	store   store.Store
	market  MarketData
	prefs   domain.Preferences
	now     func() time.Time
	accrual singleflight.Group
}

// NewService creates a Service. The store and market data are required.
func NewService(st store.Store, market MarketData, prefs domain.Preferences) *Service {
	if st == nil {
		panic("tracker.NewService: store is nil")
	}
	if market == nil {
		panic("tracker.NewService: market is nil")
	}
	return &Service{store: st, market: market, prefs: prefs, now: time.Now}
}

// Preferences returns the valuation preferences the service was configured with.
func (s *Service) Preferences() domain.Preferences { return s.prefs }

// Book loads the stored accounts, instruments, movements and manual prices.
func (s *Service) Book(ctx context.Context) (Book, error) {
	return loadBook(ctx, s.store)
}

// Valuate values the portfolio as of now.
func (s *Service) Valuate(ctx context.Context) (domain.Portfolio, error) {
	return s.ValuateAt(ctx, s.now())
}

// ValuateAt values the portfolio as of the given instant. Rates and quotes are fetched
// concurrently; when neither live data nor a cached fallback exists the valuation still
// completes with the affected amounts left unpriced. Nothing is persisted.
func (s *Service) ValuateAt(ctx context.Context, now time.Time) (domain.Portfolio, error) {
	book, err := loadBook(ctx, s.store)
	if err != nil {
		return domain.Portfolio{}, err
	}

	var (
		rates  *domain.FxRates
		quotes map[string]domain.Quote
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := s.market.FxRates(gctx)
		if errors.Is(err, external.ErrNoFallback) {
			slog.Warn("Tracker: valuing without fx rates", "error", err)
			return nil
		}
		if err != nil {
			return fmt.Errorf("fetching fx rates: %w", err)
		}
		rates = &r
		return nil
	})
	g.Go(func() error {
		q, err := s.market.Quotes(gctx, book.Symbols(portfolio.NeedsQuote))
		if errors.Is(err, external.ErrNoFallback) {
			slog.Warn("Tracker: valuing without quotes", "error", err)
			return nil
		}
		if err != nil {
			return fmt.Errorf("fetching quotes: %w", err)
		}
		quotes = q
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.Portfolio{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Portfolio{}, err
	}

	return s.valuate(book, rates, quotes, now), nil
}

func (s *Service) valuate(book Book, rates *domain.FxRates, quotes map[string]domain.Quote, now time.Time) domain.Portfolio {
	resolver := fx.NewResolver(rates, s.prefs)
	positions, ftWarnings := fixedterm.Derive(book.Movements, now)
	result := portfolio.Valuate(portfolio.Input{
		Now:          now,
		Ledger:       ledger.Build(book.Movements, book.Instruments, resolver),
		Instruments:  book.Instruments,
		Accounts:     book.Accounts,
		Quotes:       quotes,
		ManualPrices: book.ManualPrices,
		FixedTerms:   positions,
		Resolver:     resolver,
		Warnings:     ftWarnings,
	})
	if len(result.Warnings) > 0 {
		slog.Warn("Tracker: valuation has warnings", "count", len(result.Warnings))
	}
	return result
}

// RefreshMarketData refreshes rates and every quote the book needs.
func (s *Service) RefreshMarketData(ctx context.Context) error {
	book, err := loadBook(ctx, s.store)
	if err != nil {
		return err
	}
	return s.market.Refresh(ctx, book.Symbols(portfolio.NeedsQuote))
}

// FixedTerms derives every fixed-term deposit as of now, settled ones included.
func (s *Service) FixedTerms(ctx context.Context, now time.Time) ([]domain.FixedTermPosition, []domain.Warning, error) {
	movements, err := store.ListAs[domain.Movement](ctx, s.store, store.Movements)
	if err != nil {
		return nil, nil, fmt.Errorf("loading movements: %w", err)
	}
	positions, warnings := fixedterm.Derive(movements, now)
	return positions, warnings, nil
}

// YieldSummary describes an account's cash yield.
type YieldSummary struct {
	AccountID       string           `json:"accountId"`
	Enabled         bool             `json:"enabled"`
	BalanceARS      decimal.Decimal  `json:"balanceArs"`
	TNA             decimal.Decimal  `json:"tna"`
	TEA             decimal.Decimal  `json:"tea"`
	LastAccruedDate *domain.Date     `json:"lastAccruedDate,omitempty"`
	Projection30d   yield.Projection `json:"projection30d"`
	Projection1y    yield.Projection `json:"projection1y"`
}

// YieldSummary returns the current ARS cash balance of an account with its rate and
// projections. It returns store.ErrNotFound for unknown accounts.
func (s *Service) YieldSummary(ctx context.Context, accountID string) (YieldSummary, error) {
	book, err := loadBook(ctx, s.store)
	if err != nil {
		return YieldSummary{}, err
	}
	acc, ok := domain.AccountsByID(book.Accounts)[accountID]
	if !ok {
		return YieldSummary{}, fmt.Errorf("account %s: %w", accountID, store.ErrNotFound)
	}

	res := ledger.Build(book.Movements, book.Instruments, fx.NewResolver(nil, s.prefs))
	summary := YieldSummary{
		AccountID:  acc.ID,
		Enabled:    acc.YieldEnabled(),
		BalanceARS: res.CashBalance(acc.ID, domain.CurrencyARS),
	}
	if acc.CashYield != nil {
		summary.TNA = acc.CashYield.TNA
		summary.TEA = yield.ComputeTEA(acc.CashYield.TNA)
		summary.LastAccruedDate = yield.LastAccrued(acc, book.Movements)
	}
	summary.Projection30d = yield.Projection30d(summary.BalanceARS, summary.TNA)
	summary.Projection1y = yield.Projection1y(summary.BalanceARS, summary.TNA)
	return summary, nil
}

// SaveMovement validates and upserts a movement. An empty id gets a new one and
// user-entered movements without a source are tagged as such.
func (s *Service) SaveMovement(ctx context.Context, m domain.Movement) (domain.Movement, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Source == "" {
		m.Source = domain.SourceUser
	}
	if err := m.Validate(); err != nil {
		return domain.Movement{}, err
	}
	if err := store.PutAs(ctx, s.store, store.Movements, m.ID, m); err != nil {
		return domain.Movement{}, fmt.Errorf("saving movement %s: %w", m.ID, err)
	}
	return m, nil
}

// DeleteMovement removes a movement. Derived state is recomputed on the next valuation.
func (s *Service) DeleteMovement(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, store.Movements, id); err != nil {
		return fmt.Errorf("deleting movement %s: %w", id, err)
	}
	return nil
}

// SaveAccount validates and upserts an account.
func (s *Service) SaveAccount(ctx context.Context, a domain.Account) (domain.Account, error) {
	if err := a.Validate(); err != nil {
		return domain.Account{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := store.PutAs(ctx, s.store, store.Accounts, a.ID, a); err != nil {
		return domain.Account{}, fmt.Errorf("saving account %s: %w", a.ID, err)
	}
	return a, nil
}

// SaveInstrument validates and upserts an instrument.
func (s *Service) SaveInstrument(ctx context.Context, inst domain.Instrument) (domain.Instrument, error) {
	if err := inst.Validate(); err != nil {
		return domain.Instrument{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := store.PutAs(ctx, s.store, store.Instruments, inst.ID, inst); err != nil {
		return domain.Instrument{}, fmt.Errorf("saving instrument %s: %w", inst.ID, err)
	}
	return inst, nil
}

// SaveManualPrice upserts a manual price for an instrument.
func (s *Service) SaveManualPrice(ctx context.Context, p domain.ManualPrice) (domain.ManualPrice, error) {
	if p.InstrumentID == "" {
		return domain.ManualPrice{}, fmt.Errorf("%w: manual price instrument id is required", ErrInvalid)
	}
	if !p.Price.IsPositive() {
		return domain.ManualPrice{}, fmt.Errorf("%w: manual price for %s must be positive", ErrInvalid, p.InstrumentID)
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = s.now().UTC()
	}
	if err := store.PutAs(ctx, s.store, store.ManualPrices, p.InstrumentID, p); err != nil {
		return domain.ManualPrice{}, fmt.Errorf("saving manual price %s: %w", p.InstrumentID, err)
	}
	return p, nil
}
