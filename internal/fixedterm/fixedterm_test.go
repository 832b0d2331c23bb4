package fixedterm

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtlprog/cartera/internal/domain"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var start = time.Date(2024, 4, 1, 13, 0, 0, 0, time.UTC)

func opening(id string, termDays int, tna string) domain.Movement {
	return domain.Movement{
		ID:            id,
		DateTime:      start,
		Type:          domain.MovementBuy,
		AccountID:     "galicia",
		InstrumentID:  "pf-galicia",
		TradeCurrency: domain.CurrencyARS,
		TotalAmount:   d("1000000"),
		Detail: domain.TradeDetail{
			Quantity:  d("1"),
			UnitPrice: d("1000000"),
			FixedTerm: &domain.FixedTermTerms{Bank: "Galicia", TermDays: termDays, TNA: d(tna)},
		},
	}
}

func TestDeriveActive(t *testing.T) {
	now := start.AddDate(0, 0, 10)
	positions, warnings := Derive([]domain.Movement{opening("pf1", 30, "36.5")}, now)

	require.Empty(t, warnings)
	require.Len(t, positions, 1)
	p := positions[0]
	assert.Equal(t, domain.FixedTermActive, p.Status)
	assert.Equal(t, start.AddDate(0, 0, 30), p.Maturity)
	// 1e6 * (1.001^30 - 1)
	assert.True(t, p.ExpectedInterestARS.Equal(d("30439.09")), "expected %s", p.ExpectedInterestARS)
	// 1e6 * (1.001^10 - 1)
	assert.True(t, p.AccruedInterestARS.Equal(d("10045.12")), "accrued %s", p.AccruedInterestARS)
	assert.True(t, p.TEA.Round(6).Equal(d("0.440251")))
	assert.False(t, p.Settled)

	assert.Empty(t, Settle(positions, now))
	assert.True(t, ActiveValue(positions).Equal(d("1010045.12")))
}

func TestSettleExactlyOnce(t *testing.T) {
	movements := []domain.Movement{opening("pf1", 30, "36.5")}
	now := start.AddDate(0, 0, 45)

	for range 3 {
		positions, _ := Derive(movements, now)
		movements = append(movements, Settle(positions, now)...)
	}

	var payouts []domain.Movement
	for _, m := range movements {
		if m.Source == domain.SourceFixedTerm {
			payouts = append(payouts, m)
		}
	}
	require.Len(t, payouts, 1)
	assert.Equal(t, "pf-settle-pf1", payouts[0].ID)
	assert.Equal(t, domain.MovementDeposit, payouts[0].Type)
	assert.True(t, payouts[0].TotalAmount.Equal(d("1030439.09")))
	require.NoError(t, payouts[0].Validate())

	positions, _ := Derive(movements, now)
	require.Len(t, positions, 1)
	assert.Equal(t, domain.FixedTermMatured, positions[0].Status)
	assert.True(t, positions[0].Settled)
	assert.True(t, ActiveValue(positions).IsZero())
}

func TestMaturesAtMaturityInstant(t *testing.T) {
	positions, _ := Derive([]domain.Movement{opening("pf1", 30, "36.5")}, start.AddDate(0, 0, 30))
	require.Len(t, positions, 1)
	assert.Equal(t, domain.FixedTermMatured, positions[0].Status)
	assert.Len(t, Settle(positions, start.AddDate(0, 0, 30)), 1)
}

func TestDeriveSkipsInvalidTerms(t *testing.T) {
	usd := opening("pf-usd", 30, "5")
	usd.TradeCurrency = domain.CurrencyUSD

	positions, warnings := Derive([]domain.Movement{opening("pf-zero", 0, "40"), usd}, start)

	assert.Empty(t, positions)
	require.Len(t, warnings, 2)
	for _, w := range warnings {
		assert.Equal(t, domain.WarningConfig, w.Kind)
	}
}
