// Package fixedterm derives fixed-term deposit positions and their settlements.
package fixedterm

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/cartera/internal/domain"
	"github.com/mtlprog/cartera/internal/yield"
)

// Derive builds one position per FTD-opening BUY. Openings with missing or invalid terms
// are skipped and reported. A position is settled when its payout movement exists.
func Derive(movements []domain.Movement, now time.Time) ([]domain.FixedTermPosition, []domain.Warning) {
	ids := make(map[string]bool, len(movements))
	for _, m := range movements {
		ids[m.ID] = true
	}

	var (
		positions []domain.FixedTermPosition
		warnings  []domain.Warning
	)
	for _, m := range movements {
		terms, ok := m.FixedTerm()
		if !ok {
			continue
		}
		if err := checkTerms(m, terms); err != nil {
			warnings = append(warnings, domain.Warning{
				Kind:         domain.WarningConfig,
				MovementID:   m.ID,
				InstrumentID: m.InstrumentID,
				AccountID:    m.AccountID,
				Message:      err.Error(),
			})
			continue
		}

		p := domain.FixedTermPosition{
			ID:           m.ID,
			MovementID:   m.ID,
			AccountID:    m.AccountID,
			Bank:         terms.Bank,
			PrincipalARS: m.Notional(),
			TermDays:     terms.TermDays,
			TNA:          terms.TNA,
			TEA:          yield.ComputeTEA(terms.TNA),
			Start:        m.DateTime,
			Maturity:     m.DateTime.AddDate(0, 0, terms.TermDays),
		}
		p.ExpectedInterestARS = interest(p.PrincipalARS, p.TNA, p.TermDays)
		p.Status = Status(p, now)
		p.Settled = ids[p.SettlementID()]
		p.AccruedInterestARS = AccruedToDate(p, now)
		positions = append(positions, p)
	}
	return positions, warnings
}

func checkTerms(m domain.Movement, terms *domain.FixedTermTerms) error {
	switch {
	case terms.TermDays <= 0:
		return fmt.Errorf("fixed-term %s: term days must be positive", m.ID)
	case terms.TNA.IsNegative():
		return fmt.Errorf("fixed-term %s: tna must not be negative", m.ID)
	case m.TradeCurrency != domain.CurrencyARS:
		return fmt.Errorf("fixed-term %s: principal must be in ARS, got %s", m.ID, m.TradeCurrency)
	case !m.Notional().IsPositive():
		return fmt.Errorf("fixed-term %s: principal must be positive", m.ID)
	case m.DateTime.IsZero():
		return fmt.Errorf("fixed-term %s: start date is required", m.ID)
	}
	return nil
}

// Status is matured from the maturity instant on and active before it.
func Status(p domain.FixedTermPosition, now time.Time) domain.FixedTermStatus {
	if now.Before(p.Maturity) {
		return domain.FixedTermActive
	}
	return domain.FixedTermMatured
}

// AccruedToDate returns the interest earned by now, capped at the expected interest.
func AccruedToDate(p domain.FixedTermPosition, now time.Time) decimal.Decimal {
	if !now.Before(p.Maturity) {
		return p.ExpectedInterestARS
	}
	days := int(now.Sub(p.Start).Hours() / 24)
	if days <= 0 {
		return decimal.Zero
	}
	return interest(p.PrincipalARS, p.TNA, days)
}

// Settle returns a payout DEPOSIT for every matured, unsettled position. Payout ids are
// deterministic so storing them twice has no effect.
func Settle(positions []domain.FixedTermPosition, now time.Time) []domain.Movement {
	var out []domain.Movement
	for _, p := range positions {
		if p.Settled || Status(p, now) != domain.FixedTermMatured {
			continue
		}
		out = append(out, domain.Movement{
			ID:            p.SettlementID(),
			DateTime:      p.Maturity,
			Type:          domain.MovementDeposit,
			AccountID:     p.AccountID,
			TradeCurrency: domain.CurrencyARS,
			TotalAmount:   p.ExpectedTotalARS(),
			Source:        domain.SourceFixedTerm,
			Detail:        domain.CashDetail{},
		})
	}
	return out
}

// ActiveValue sums principal plus accrued interest of unsettled positions.
func ActiveValue(positions []domain.FixedTermPosition) decimal.Decimal {
	total := decimal.Zero
	for _, p := range positions {
		if p.Settled {
			continue
		}
		total = total.Add(p.PrincipalARS).Add(p.AccruedInterestARS)
	}
	return total
}

func interest(principal, tna decimal.Decimal, days int) decimal.Decimal {
	return principal.Mul(yield.Growth(tna, days).Sub(decimal.NewFromInt(1))).Round(2)
}
