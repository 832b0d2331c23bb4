// Package fx picks the ARS/USD exchange rate that applies to a valuation or a trade.
package fx

import (
	"github.com/shopspring/decimal"

	"github.com/mtlprog/cartera/internal/domain"
)

// Resolver answers rate lookups against one fetched rate set and a set of preferences.
// A nil rate set makes every lookup unavailable.
type Resolver struct {
	rates *domain.FxRates
	prefs domain.Preferences
}

func NewResolver(rates *domain.FxRates, prefs domain.Preferences) *Resolver {
	return &Resolver{rates: rates, prefs: prefs}
}

// Rates returns the underlying rate set, or nil.
func (r *Resolver) Rates() *domain.FxRates {
	return r.rates
}

// Preferences returns the preferences the resolver was built with.
func (r *Resolver) Preferences() domain.Preferences {
	return r.prefs
}

// Rate returns the configured side of a rate kind. Non-positive quotes count as unavailable.
func (r *Resolver) Rate(kind domain.FxKind) (decimal.Decimal, bool) {
	if r == nil || r.rates == nil {
		return decimal.Zero, false
	}
	pair, ok := r.rates.Pair(kind)
	if !ok {
		return decimal.Zero, false
	}
	rate := pair.Side(r.prefs.FxSide)
	if !rate.IsPositive() {
		return decimal.Zero, false
	}
	return rate, true
}

// BaseUSD returns the rate used to value dollar amounts.
func (r *Resolver) BaseUSD() (decimal.Decimal, bool) {
	return r.Rate(r.prefs.BaseFxForUSD)
}

// Stablecoin returns the rate used to value stablecoins.
func (r *Resolver) Stablecoin() (decimal.Decimal, bool) {
	return r.Rate(r.prefs.StablecoinFx)
}

// ForCategory returns the rate that applies to an instrument category.
func (r *Resolver) ForCategory(category domain.Category) (decimal.Decimal, bool) {
	return r.Rate(r.KindFor(category))
}

// KindFor maps a category to its rate kind: stablecoins use the stablecoin preference,
// crypto the Cripto rate, everything else the dollar preference.
func (r *Resolver) KindFor(category domain.Category) domain.FxKind {
	switch category {
	case domain.CategoryStable:
		return r.prefs.StablecoinFx
	case domain.CategoryCrypto:
		return domain.FxCripto
	default:
		return r.prefs.BaseFxForUSD
	}
}

// KindOf is KindFor with cash balances resolved by their currency.
func (r *Resolver) KindOf(inst domain.Instrument) domain.FxKind {
	if inst.Category == domain.CategoryCash && inst.NativeCurrency.IsStablecoin() {
		return r.prefs.StablecoinFx
	}
	return r.KindFor(inst.Category)
}

// ForInstrument returns the rate used to value inst, both at trade time and now.
func (r *Resolver) ForInstrument(inst domain.Instrument) (decimal.Decimal, bool) {
	return r.Rate(r.KindOf(inst))
}

// ForCurrency returns the rate for converting amounts held in cur, using the stablecoin
// preference for stablecoins.
func (r *Resolver) ForCurrency(cur domain.Currency) (decimal.Decimal, bool) {
	if cur.IsStablecoin() {
		return r.Stablecoin()
	}
	return r.BaseUSD()
}

// AtTrade returns the rate recorded on the movement, or the current rate for the
// instrument when none was recorded.
func (r *Resolver) AtTrade(m domain.Movement, inst domain.Instrument) (decimal.Decimal, bool) {
	if m.FxAtTrade != nil && m.FxAtTrade.IsPositive() {
		return *m.FxAtTrade, true
	}
	if inst.Category == "" {
		return r.ForCurrency(m.TradeCurrency)
	}
	return r.ForInstrument(inst)
}

// Convert converts amount between ARS and a dollar-like currency using rate (ARS per USD).
// Dollar-like currencies convert to each other one to one. Unknown pairs report false.
func Convert(amount decimal.Decimal, from, to domain.Currency, rate decimal.Decimal) (decimal.Decimal, bool) {
	switch {
	case from == to:
		return amount, true
	case from.IsUSDLike() && to.IsUSDLike():
		return amount, true
	case from == domain.CurrencyARS && to.IsUSDLike():
		if !rate.IsPositive() {
			return decimal.Zero, false
		}
		return amount.Div(rate), true
	case from.IsUSDLike() && to == domain.CurrencyARS:
		if !rate.IsPositive() {
			return decimal.Zero, false
		}
		return amount.Mul(rate), true
	default:
		return decimal.Zero, false
	}
}
