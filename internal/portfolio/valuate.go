// Package portfolio joins ledger positions with prices and rates into a valued portfolio.
package portfolio

import (
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/cartera/internal/domain"
	"github.com/mtlprog/cartera/internal/fx"
	"github.com/mtlprog/cartera/internal/ledger"
)

// Input is everything a valuation depends on.
type Input struct {
	Now          time.Time
	Ledger       ledger.Result
	Instruments  []domain.Instrument
	Accounts     []domain.Account
	Quotes       map[string]domain.Quote // keyed by symbol
	ManualPrices []domain.ManualPrice
	FixedTerms   []domain.FixedTermPosition
	Resolver     *fx.Resolver
	// Warnings are carried into the result, e.g. from fixed-term derivation.
	Warnings []domain.Warning
}

// NeedsQuote reports whether an instrument is priced from the live quote source.
func NeedsQuote(inst domain.Instrument) bool {
	switch inst.Category {
	case domain.CategoryCash, domain.CategoryPF:
		return false
	default:
		return inst.Symbol != ""
	}
}

// Valuate values every open position. Holdings without a usable price keep their quantity
// and cost but have nil value and unrealized PnL.
func Valuate(in Input) domain.Portfolio {
	resolver := in.Resolver
	if resolver == nil {
		resolver = fx.NewResolver(nil, domain.DefaultPreferences())
	}
	v := valuator{
		resolver:    resolver,
		instruments: domain.InstrumentsByID(in.Instruments),
		accounts:    domain.AccountsByID(in.Accounts),
		manual:      lo.KeyBy(in.ManualPrices, func(p domain.ManualPrice) string { return p.InstrumentID }),
		quotes:      in.Quotes,
	}
	v.warnings = append(v.warnings, in.Ledger.Warnings...)
	v.warnings = append(v.warnings, in.Warnings...)

	holdings := lo.Map(in.Ledger.Open(), func(p domain.Position, _ int) domain.Holding {
		return v.holding(p)
	})

	prefs := resolver.Preferences()
	portfolio := domain.Portfolio{
		AsOf:        in.Now,
		Preferences: prefs,
		Rates:       resolver.Rates(),
		Holdings:    holdings,
		Categories:  categoryTotals(holdings),
		Top:         topN(holdings, prefs.TopN),
		FixedTerms:  lo.Filter(in.FixedTerms, func(p domain.FixedTermPosition, _ int) bool { return !p.Settled }),
		Debts:       in.Ledger.Debts,
	}
	portfolio.Totals = v.totals(holdings, in.Ledger, in.FixedTerms)
	portfolio.Warnings = v.warnings
	return portfolio
}

type valuator struct {
	resolver    *fx.Resolver
	instruments map[string]domain.Instrument
	accounts    map[string]domain.Account
	manual      map[string]domain.ManualPrice
	quotes      map[string]domain.Quote
	warnings    []domain.Warning
	missingFx   bool
}

func (v *valuator) instrument(id string) domain.Instrument {
	if cur, ok := domain.CashCurrency(id); ok {
		return domain.CashInstrument(cur)
	}
	if inst, ok := v.instruments[id]; ok {
		return inst
	}
	return domain.Instrument{ID: id, Symbol: id, Category: domain.CategoryOther}
}

func (v *valuator) holding(p domain.Position) domain.Holding {
	inst := v.instrument(p.InstrumentID)
	h := domain.Holding{
		InstrumentID: p.InstrumentID,
		AccountID:    p.AccountID,
		Symbol:       inst.Symbol,
		AccountName:  v.accounts[p.AccountID].Name,
		Category:     inst.Category,
		Currency:     p.Currency,
		Quantity:     p.Quantity,
		CostBasis:    p.CostBasis,
		AvgCost:      p.AvgCost(),
		Realized:     p.Realized,
		Oversold:     p.Oversold,
		PriceSource:  domain.PriceNone,
	}

	price, priceCur, source, ok := v.price(inst, &h)
	if !ok {
		v.warnings = append(v.warnings, domain.Warning{
			Kind:         domain.WarningMissingPrice,
			InstrumentID: p.InstrumentID,
			AccountID:    p.AccountID,
			Message:      fmt.Sprintf("no price for %s", inst.Symbol),
		})
		return h
	}
	h.PriceSource = source

	value := v.value(p.Quantity.Mul(price), priceCur, p.Currency, inst)
	if value.Native != nil {
		unit := domain.SafeDiv(*value.Native, p.Quantity)
		h.UnitPrice = &unit
	}
	h.Value = value
	h.Unrealized = domain.Valuation{
		Native: minus(value.Native, p.CostBasis.Native),
		ARS:    minus(value.ARS, p.CostBasis.ARS),
		USD:    minus(value.USD, p.CostBasis.USD),
	}
	return h
}

// price returns a per-unit price and its currency. Manual prices win over live quotes.
// A CEDEAR's live quote is the underlying's USD price divided by the receipt ratio.
func (v *valuator) price(inst domain.Instrument, h *domain.Holding) (decimal.Decimal, domain.Currency, domain.PriceSource, bool) {
	if inst.Category == domain.CategoryCash {
		return decimal.NewFromInt(1), inst.NativeCurrency, domain.PricePar, true
	}
	if mp, ok := v.manual[inst.ID]; ok && mp.Price.IsPositive() {
		cur := mp.Currency
		if cur == "" {
			cur = inst.NativeCurrency
		}
		return mp.Price, cur, domain.PriceManual, true
	}
	if q, ok := v.quotes[inst.Symbol]; ok && q.PriceUSD.IsPositive() && NeedsQuote(inst) {
		h.ChangePct1d = q.ChangePct1d
		if inst.Category == domain.CategoryCedear {
			return q.PriceUSD.Div(inst.Ratio()), domain.CurrencyUSD, domain.PriceLive, true
		}
		return q.PriceUSD, domain.CurrencyUSD, domain.PriceLive, true
	}
	if inst.Category == domain.CategoryStable {
		return decimal.NewFromInt(1), domain.CurrencyUSD, domain.PricePar, true
	}
	return decimal.Zero, "", domain.PriceNone, false
}

// value expresses an amount in cur as native/ARS/USD. Components that need a missing
// rate are left nil.
func (v *valuator) value(amount decimal.Decimal, cur, native domain.Currency, inst domain.Instrument) domain.Valuation {
	rate, hasRate := v.resolver.ForInstrument(inst)

	var out domain.Valuation
	missing := false
	convert := func(to domain.Currency) *decimal.Decimal {
		res, ok := fx.Convert(amount, cur, to, rate)
		if !ok {
			if !hasRate {
				missing = true
			}
			return nil
		}
		return &res
	}
	out.Native = convert(native)
	out.ARS = convert(domain.CurrencyARS)
	out.USD = convert(domain.CurrencyUSD)

	if missing {
		v.missingFx = true
		v.warnings = append(v.warnings, domain.Warning{
			Kind:         domain.WarningMissingFx,
			InstrumentID: inst.ID,
			Message:      fmt.Sprintf("no %s rate to value %s", v.resolver.KindOf(inst), inst.Symbol),
		})
	}
	return out
}

func minus(value *decimal.Decimal, cost decimal.Decimal) *decimal.Decimal {
	if value == nil {
		return nil
	}
	diff := value.Sub(cost)
	return &diff
}
