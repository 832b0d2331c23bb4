// Package ledger folds movements into weighted-average-cost positions.
package ledger

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/cartera/internal/domain"
	"github.com/mtlprog/cartera/internal/fx"
)

// Result is the ledger state derived from a movement list.
type Result struct {
	Positions []domain.Position
	Debts     []domain.Debt
	Warnings  []domain.Warning

	index map[domain.PositionKey]int
}

// Position returns the folded state of one key.
func (r Result) Position(key domain.PositionKey) (domain.Position, bool) {
	i, ok := r.index[key]
	if !ok {
		return domain.Position{}, false
	}
	return r.Positions[i], true
}

// CashBalance returns an account's cash balance in cur.
func (r Result) CashBalance(accountID string, cur domain.Currency) decimal.Decimal {
	p, ok := r.Position(domain.PositionKey{InstrumentID: domain.CashInstrumentID(cur), AccountID: accountID})
	if !ok {
		return decimal.Zero
	}
	return p.Quantity
}

// Open returns the positions that still hold units.
func (r Result) Open() []domain.Position {
	return lo.Filter(r.Positions, func(p domain.Position, _ int) bool { return p.IsOpen() })
}

// Realized sums realized PnL over every key, closed ones included.
func (r Result) Realized() domain.Amounts {
	return lo.Reduce(r.Positions, func(acc domain.Amounts, p domain.Position, _ int) domain.Amounts {
		return acc.Add(p.Realized)
	}, domain.Amounts{})
}

// Build folds movements per (instrument, account) key. Each key's movements are applied in
// DateTime order with ties broken by ID, so the result does not depend on input order.
// FTD-opening BUYs are left to the fixed-term processor and DEBT_* movements feed the
// debt aggregate. A nil resolver behaves as one with no rates.
func Build(movements []domain.Movement, instruments []domain.Instrument, resolver *fx.Resolver) Result {
	if resolver == nil {
		resolver = fx.NewResolver(nil, domain.DefaultPreferences())
	}
	b := &builder{
		instruments: domain.InstrumentsByID(instruments),
		resolver:    resolver,
		missingFx:   make(map[string]bool),
	}

	var debtMovements []domain.Movement
	routed := make([]domain.Movement, 0, len(movements))
	for _, m := range movements {
		switch {
		case m.Type == domain.MovementDebtAdd || m.Type == domain.MovementDebtPay:
			debtMovements = append(debtMovements, m)
		case isFixedTermOpening(m):
			// valued by the fixed-term processor
		default:
			routed = append(routed, m)
		}
	}

	groups := lo.GroupBy(routed, KeyOf)
	keys := lo.Keys(groups)
	slices.SortFunc(keys, compareKeys)

	result := Result{
		Positions: make([]domain.Position, 0, len(keys)),
		index:     make(map[domain.PositionKey]int, len(keys)),
	}
	for _, key := range keys {
		group := groups[key]
		SortMovements(group)
		result.index[key] = len(result.Positions)
		result.Positions = append(result.Positions, b.fold(key, group))
	}

	result.Debts = b.debts(debtMovements)
	result.Warnings = b.warnings
	return result
}

// KeyOf returns the ledger key a movement folds into. Income and instrument-less movements
// land on the account's cash key for the trade currency.
func KeyOf(m domain.Movement) domain.PositionKey {
	instrumentID := m.InstrumentID
	if instrumentID == "" || m.Type == domain.MovementInterest || m.Type == domain.MovementDividend {
		instrumentID = domain.CashInstrumentID(m.TradeCurrency)
	}
	return domain.PositionKey{InstrumentID: instrumentID, AccountID: m.AccountID}
}

// SortMovements orders movements by DateTime ascending, then by ID.
func SortMovements(ms []domain.Movement) {
	slices.SortStableFunc(ms, func(a, b domain.Movement) int {
		if c := a.DateTime.Compare(b.DateTime); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func compareKeys(a, b domain.PositionKey) int {
	if c := cmp.Compare(a.AccountID, b.AccountID); c != 0 {
		return c
	}
	return cmp.Compare(a.InstrumentID, b.InstrumentID)
}

func isFixedTermOpening(m domain.Movement) bool {
	_, ok := m.FixedTerm()
	return ok
}

type builder struct {
	instruments map[string]domain.Instrument
	resolver    *fx.Resolver
	warnings    []domain.Warning
	missingFx   map[string]bool
}

func (b *builder) warn(kind domain.WarningKind, m domain.Movement, instrumentID, format string, args ...any) {
	b.warnings = append(b.warnings, domain.Warning{
		Kind:         kind,
		MovementID:   m.ID,
		InstrumentID: instrumentID,
		AccountID:    m.AccountID,
		Message:      fmt.Sprintf(format, args...),
	})
}

func (b *builder) instrument(key domain.PositionKey) (domain.Instrument, bool) {
	if cur, ok := domain.CashCurrency(key.InstrumentID); ok {
		return domain.CashInstrument(cur), true
	}
	inst, ok := b.instruments[key.InstrumentID]
	return inst, ok
}

func (b *builder) fold(key domain.PositionKey, ms []domain.Movement) domain.Position {
	inst, known := b.instrument(key)
	pos := domain.Position{PositionKey: key, Currency: inst.NativeCurrency, Movements: len(ms)}
	if !known {
		pos.Currency = ms[0].TradeCurrency
		b.warn(domain.WarningUnknownRef, ms[0], key.InstrumentID, "instrument %s is not defined", key.InstrumentID)
	}

	for _, m := range ms {
		switch m.Type {
		case domain.MovementBuy:
			cost := b.amounts(m, inst, pos.Currency, m.Notional(), m.TradeCurrency)
			if m.Fee != nil && m.Fee.Amount.IsPositive() {
				cost = cost.Add(b.amounts(m, inst, pos.Currency, m.Fee.Amount, feeCurrency(m)))
			}
			pos.Quantity = pos.Quantity.Add(m.Quantity())
			pos.CostBasis = pos.CostBasis.Add(cost)

		case domain.MovementDeposit:
			pos.Quantity = pos.Quantity.Add(m.TotalAmount)
			pos.CostBasis = pos.CostBasis.Add(b.amounts(m, inst, pos.Currency, m.TotalAmount, m.TradeCurrency))

		case domain.MovementTransferIn:
			// TotalAmount carries the cost of the incoming units.
			pos.Quantity = pos.Quantity.Add(transferQuantity(m))
			pos.CostBasis = pos.CostBasis.Add(b.amounts(m, inst, pos.Currency, m.TotalAmount, m.TradeCurrency))

		case domain.MovementSell:
			proceeds := b.amounts(m, inst, pos.Currency, m.Notional(), m.TradeCurrency)
			if m.Fee != nil && m.Fee.Amount.IsPositive() {
				proceeds = proceeds.Sub(b.amounts(m, inst, pos.Currency, m.Fee.Amount, feeCurrency(m)))
			}
			b.dispose(&pos, m, m.Quantity(), &proceeds)

		case domain.MovementWithdraw:
			proceeds := b.amounts(m, inst, pos.Currency, m.TotalAmount, m.TradeCurrency)
			b.dispose(&pos, m, m.TotalAmount, &proceeds)

		case domain.MovementTransferOut:
			b.dispose(&pos, m, transferQuantity(m), nil)

		case domain.MovementInterest, domain.MovementDividend:
			// Income raises the balance but not the cost basis, so it shows as unrealized gain.
			pos.Quantity = pos.Quantity.Add(m.TotalAmount)

		case domain.MovementFee:
			amount := m.TotalAmount
			if amount.IsZero() && m.Fee != nil {
				amount = m.Fee.Amount
			}
			if _, isCash := domain.CashCurrency(key.InstrumentID); isCash {
				b.dispose(&pos, m, amount, nil)
				continue
			}
			pos.CostBasis = pos.CostBasis.Add(b.amounts(m, inst, pos.Currency, amount, m.TradeCurrency))
		}
	}

	if pos.Quantity.IsZero() {
		pos.CostBasis = domain.Amounts{}
	}
	return pos
}

// dispose removes qty units at the average cost held just before the movement. A nil
// proceeds disposes at cost, realizing nothing. Disposals above the held quantity are
// clamped and reported.
func (b *builder) dispose(pos *domain.Position, m domain.Movement, qty decimal.Decimal, proceeds *domain.Amounts) {
	if !qty.IsPositive() {
		return
	}
	held := decimal.Max(pos.Quantity, decimal.Zero)
	if qty.GreaterThan(held) {
		pos.Oversold = true
		b.warn(domain.WarningOversell, m, pos.InstrumentID, "disposes %s but only %s held", qty, held)
		if proceeds != nil {
			scaled := proceeds.Scale(domain.SafeDiv(held, qty))
			proceeds = &scaled
		}
		qty = held
	}
	if qty.IsZero() {
		return
	}

	costOfSale := pos.CostBasis
	if qty.LessThan(held) {
		costOfSale = pos.CostBasis.Scale(qty).Per(held)
	}
	if proceeds != nil {
		pos.Realized = pos.Realized.Add(proceeds.Sub(costOfSale))
	}
	pos.CostBasis = pos.CostBasis.Sub(costOfSale)
	pos.Quantity = held.Sub(qty)
}

// amounts expresses an amount given in cur as native/ARS/USD using the trade-time rate.
// When no rate exists 1.0 is used and the movement is flagged.
func (b *builder) amounts(m domain.Movement, inst domain.Instrument, native domain.Currency, amount decimal.Decimal, cur domain.Currency) domain.Amounts {
	rate, ok := b.resolver.AtTrade(m, inst)
	if !ok && !amount.IsZero() {
		rate = decimal.NewFromInt(1)
		if !b.missingFx[m.ID] {
			b.missingFx[m.ID] = true
			b.warn(domain.WarningMissingFx, m, inst.ID, "no exchange rate for %s, using 1.0", m.ID)
		}
	}

	convert := func(to domain.Currency) decimal.Decimal {
		v, ok := fx.Convert(amount, cur, to, rate)
		if !ok {
			return amount
		}
		return v
	}
	return domain.Amounts{
		Native: convert(native),
		ARS:    convert(domain.CurrencyARS),
		USD:    convert(domain.CurrencyUSD),
	}
}

func (b *builder) debts(ms []domain.Movement) []domain.Debt {
	groups := lo.GroupBy(ms, func(m domain.Movement) string {
		if d, ok := m.Detail.(domain.DebtDetail); ok {
			return d.DebtID
		}
		return ""
	})
	ids := lo.Keys(groups)
	slices.Sort(ids)

	debts := make([]domain.Debt, 0, len(ids))
	for _, id := range ids {
		group := groups[id]
		SortMovements(group)
		debt := domain.Debt{ID: id, AccountID: group[0].AccountID, Currency: group[0].TradeCurrency}
		for _, m := range group {
			if m.Type == domain.MovementDebtAdd {
				debt.Added = debt.Added.Add(m.TotalAmount)
				continue
			}
			debt.Paid = debt.Paid.Add(m.TotalAmount)
			if debt.Paid.GreaterThan(debt.Added) {
				b.warn(domain.WarningOverpay, m, "", "debt %s paid %s over %s owed", id, debt.Paid, debt.Added)
			}
		}
		debt.Balance = decimal.Max(debt.Added.Sub(debt.Paid), decimal.Zero)
		debts = append(debts, debt)
	}
	return debts
}

func transferQuantity(m domain.Movement) decimal.Decimal {
	if q := m.Quantity(); q.IsPositive() {
		return q
	}
	return m.TotalAmount
}

func feeCurrency(m domain.Movement) domain.Currency {
	if m.Fee.Currency == "" {
		return m.TradeCurrency
	}
	return m.Fee.Currency
}
