package tracker

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/mtlprog/cartera/internal/domain"
	"github.com/mtlprog/cartera/internal/store"
)

// Book is the user's data as stored: everything a valuation is computed from.
type Book struct {
	Accounts     []domain.Account
	Instruments  []domain.Instrument
	Movements    []domain.Movement
	ManualPrices []domain.ManualPrice
}

// Symbols returns the quote symbols the book's instruments need, without duplicates.
func (b Book) Symbols(needsQuote func(domain.Instrument) bool) []string {
	return lo.Uniq(lo.FilterMap(b.Instruments, func(inst domain.Instrument, _ int) (string, bool) {
		return inst.Symbol, needsQuote(inst)
	}))
}

func loadBook(ctx context.Context, st store.Store) (Book, error) {
	var (
		b   Book
		err error
	)
	if b.Accounts, err = store.ListAs[domain.Account](ctx, st, store.Accounts); err != nil {
		return Book{}, fmt.Errorf("loading accounts: %w", err)
	}
	if b.Instruments, err = store.ListAs[domain.Instrument](ctx, st, store.Instruments); err != nil {
		return Book{}, fmt.Errorf("loading instruments: %w", err)
	}
	if b.Movements, err = store.ListAs[domain.Movement](ctx, st, store.Movements); err != nil {
		return Book{}, fmt.Errorf("loading movements: %w", err)
	}
	if b.ManualPrices, err = store.ListAs[domain.ManualPrice](ctx, st, store.ManualPrices); err != nil {
		return Book{}, fmt.Errorf("loading manual prices: %w", err)
	}
	return b, nil
}
