package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mtlprog/cartera/internal/domain"
	"github.com/mtlprog/cartera/internal/fixedterm"
	"github.com/mtlprog/cartera/internal/fx"
	"github.com/mtlprog/cartera/internal/ledger"
	"github.com/mtlprog/cartera/internal/store"
	"github.com/mtlprog/cartera/internal/yield"
)

// ErrInvalid wraps validation failures of user input.
var ErrInvalid = errors.New("invalid input")

// AccrualReport summarises one accrual run.
type AccrualReport struct {
	Day         domain.Date       `json:"day"`
	Interest    []domain.Movement `json:"interest"`
	Settlements []domain.Movement `json:"settlements"`
	Accounts    []string          `json:"accounts"`
	Warnings    []domain.Warning  `json:"warnings"`
}

// Movements returns every movement the run created.
func (r AccrualReport) Movements() []domain.Movement {
	return append(append([]domain.Movement{}, r.Settlements...), r.Interest...)
}

// Accrue settles matured fixed-term deposits and catches up daily interest on every
// yield-enabled account, then persists the new movements followed by the updated
// accounts. Concurrent calls share a single run. Re-running it is harmless: every
// synthesized movement has a deterministic id.
func (s *Service) Accrue(ctx context.Context, now time.Time) (AccrualReport, error) {
	v, err, shared := s.accrual.Do("accrue", func() (any, error) {
		return s.accrue(ctx, now)
	})
	if err != nil {
		return AccrualReport{}, err
	}
	if shared {
		slog.Debug("Tracker: accrual run shared with a concurrent caller")
	}
	return v.(AccrualReport), nil
}

func (s *Service) accrue(ctx context.Context, now time.Time) (AccrualReport, error) {
	book, err := loadBook(ctx, s.store)
	if err != nil {
		return AccrualReport{}, err
	}
	today := s.prefs.Today(now)
	report := AccrualReport{Day: today}

	positions, warnings := fixedterm.Derive(book.Movements, now)
	report.Warnings = append(report.Warnings, warnings...)
	report.Settlements = fixedterm.Settle(positions, now)
	movements := append(book.Movements, report.Settlements...)

	// Settlements credit cash before interest is computed on it.
	balances := ledger.Build(movements, book.Instruments, fx.NewResolver(nil, s.prefs))

	var updated []domain.Account
	for _, acc := range book.Accounts {
		if !acc.YieldEnabled() {
			continue
		}
		acc.CashYield.LastAccruedDate = yield.LastAccrued(acc, movements)
		run := yield.Accrue(acc, balances.CashBalance(acc.ID, domain.CurrencyARS), today)
		report.Warnings = append(report.Warnings, run.Warnings...)
		if len(run.Movements) == 0 {
			continue
		}
		report.Interest = append(report.Interest, run.Movements...)
		acc.CashYield.LastAccruedDate = run.LastAccruedDate
		updated = append(updated, acc)
		report.Accounts = append(report.Accounts, acc.ID)
	}

	for _, w := range report.Warnings {
		slog.Warn("Tracker: accrual skipped", "kind", w.Kind, "account", w.AccountID, "movement", w.MovementID, "message", w.Message)
	}

	if err := ctx.Err(); err != nil {
		return AccrualReport{}, err
	}
	for _, m := range report.Movements() {
		if err := store.PutAs(ctx, s.store, store.Movements, m.ID, m); err != nil {
			return AccrualReport{}, fmt.Errorf("saving movement %s: %w", m.ID, err)
		}
	}
	for _, acc := range updated {
		if err := store.PutAs(ctx, s.store, store.Accounts, acc.ID, acc); err != nil {
			return AccrualReport{}, fmt.Errorf("saving account %s: %w", acc.ID, err)
		}
	}

	slog.Info("Tracker: accrual complete",
		"day", today,
		"interest", len(report.Interest),
		"settlements", len(report.Settlements),
		"accounts", len(report.Accounts),
	)
	return report, nil
}
