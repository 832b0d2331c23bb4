package portfolio

import (
	"cmp"
	"slices"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/cartera/internal/domain"
	"github.com/mtlprog/cartera/internal/fixedterm"
	"github.com/mtlprog/cartera/internal/fx"
	"github.com/mtlprog/cartera/internal/ledger"
)

var categoryOrder = []domain.Category{
	domain.CategoryCash,
	domain.CategoryCedear,
	domain.CategoryCrypto,
	domain.CategoryStable,
	domain.CategoryFCI,
	domain.CategoryPF,
	domain.CategoryOther,
}

func categoryRank(c domain.Category) int {
	if i := slices.Index(categoryOrder, c); i >= 0 {
		return i
	}
	return len(categoryOrder)
}

// sum adds terms that may be unavailable. One missing term makes the whole sum unavailable.
type sum struct {
	total   decimal.Decimal
	missing bool
}

func (s *sum) add(d *decimal.Decimal) {
	if d == nil {
		s.missing = true
		return
	}
	s.total = s.total.Add(*d)
}

func (s sum) result() *decimal.Decimal {
	if s.missing {
		return nil
	}
	return &s.total
}

type categorySums struct {
	domain.CategoryTotal
	valueARS, valueUSD           sum
	unrealizedARS, unrealizedUSD sum
}

// categoryTotals sums holdings per category in a fixed category order.
func categoryTotals(holdings []domain.Holding) []domain.CategoryTotal {
	groups := lo.GroupBy(holdings, func(h domain.Holding) domain.Category { return h.Category })
	categories := lo.Keys(groups)
	slices.SortFunc(categories, func(a, b domain.Category) int {
		if c := cmp.Compare(categoryRank(a), categoryRank(b)); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	return lo.Map(categories, func(c domain.Category, _ int) domain.CategoryTotal {
		acc := lo.Reduce(groups[c], func(acc categorySums, h domain.Holding, _ int) categorySums {
			acc.Holdings++
			acc.CostARS = acc.CostARS.Add(h.CostBasis.ARS)
			acc.CostUSD = acc.CostUSD.Add(h.CostBasis.USD)
			if !h.Value.Priced() {
				acc.Unpriced++
				return acc
			}
			acc.valueARS.add(h.Value.ARS)
			acc.valueUSD.add(h.Value.USD)
			acc.unrealizedARS.add(h.Unrealized.ARS)
			acc.unrealizedUSD.add(h.Unrealized.USD)
			return acc
		}, categorySums{CategoryTotal: domain.CategoryTotal{Category: c}})

		total := acc.CategoryTotal
		total.ValueARS = acc.valueARS.result()
		total.ValueUSD = acc.valueUSD.result()
		total.UnrealizedARS = acc.unrealizedARS.result()
		total.UnrealizedUSD = acc.unrealizedUSD.result()
		return total
	})
}

// topN returns the n priced holdings with the largest ARS value.
func topN(holdings []domain.Holding, n int) []domain.Holding {
	priced := lo.Filter(holdings, func(h domain.Holding, _ int) bool { return h.Value.ARS != nil })
	slices.SortStableFunc(priced, func(a, b domain.Holding) int {
		if c := b.Value.ARS.Cmp(*a.Value.ARS); c != 0 {
			return c
		}
		return cmp.Compare(a.InstrumentID, b.InstrumentID)
	})
	if n < len(priced) {
		priced = priced[:n]
	}
	return priced
}

type currencySums struct {
	value, unrealized, liquidity sum
	fixedTerm, debt              sum
}

func (s currencySums) apply(t *domain.CurrencyTotals) {
	t.Value = s.value.result()
	t.Unrealized = s.unrealized.result()
	t.Liquidity = s.liquidity.result()
	t.FixedTerm = s.fixedTerm.result()
	t.Debt = s.debt.result()
	if s.value.missing || s.fixedTerm.missing || s.debt.missing {
		return
	}
	netWorth := s.value.total.Add(s.fixedTerm.total).Sub(s.debt.total)
	t.NetWorth = &netWorth
}

func (v *valuator) totals(holdings []domain.Holding, res ledger.Result, terms []domain.FixedTermPosition) domain.Totals {
	var t domain.Totals
	var ars, usd currencySums
	for _, h := range holdings {
		t.ARS.Cost = t.ARS.Cost.Add(h.CostBasis.ARS)
		t.USD.Cost = t.USD.Cost.Add(h.CostBasis.USD)
		if !h.Value.Priced() {
			t.Unpriced++
			continue
		}
		ars.value.add(h.Value.ARS)
		usd.value.add(h.Value.USD)
		ars.unrealized.add(h.Unrealized.ARS)
		usd.unrealized.add(h.Unrealized.USD)
		if h.Category == domain.CategoryCash {
			ars.liquidity.add(h.Value.ARS)
			usd.liquidity.add(h.Value.USD)
		}
	}

	realized := res.Realized()
	t.ARS.Realized = realized.ARS
	t.USD.Realized = realized.USD

	// base is zero when unavailable, which makes every conversion through it fail.
	base, _ := v.resolver.BaseUSD()
	fixed := fixedterm.ActiveValue(terms)
	ars.fixedTerm.add(&fixed)
	usd.fixedTerm.add(v.convert(fixed, domain.CurrencyARS, domain.CurrencyUSD, base))

	for _, d := range res.Debts {
		ars.debt.add(v.convert(d.Balance, d.Currency, domain.CurrencyARS, base))
		usd.debt.add(v.convert(d.Balance, d.Currency, domain.CurrencyUSD, base))
	}

	ars.apply(&t.ARS)
	usd.apply(&t.USD)
	t.MissingFx = v.missingFx
	return t
}

// convert flags missing FX when a non-zero amount cannot be converted.
func (v *valuator) convert(amount decimal.Decimal, from, to domain.Currency, base decimal.Decimal) *decimal.Decimal {
	if amount.IsZero() {
		zero := decimal.Zero
		return &zero
	}
	res, ok := fx.Convert(amount, from, to, base)
	if !ok {
		v.missingFx = true
		return nil
	}
	return &res
}
