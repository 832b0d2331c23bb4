package yield

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtlprog/cartera/internal/domain"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var today = domain.NewDate(2024, 6, 10)

func account(tna string, last *domain.Date) domain.Account {
	return domain.Account{
		ID:              "mp",
		Name:            "Mercado Pago",
		Kind:            domain.AccountKindWallet,
		DefaultCurrency: domain.CurrencyARS,
		CashYield:       &domain.CashYield{Enabled: true, TNA: d(tna), LastAccruedDate: last},
	}
}

func ptr(day domain.Date) *domain.Date { return &day }

func TestDailyRate(t *testing.T) {
	assert.True(t, DailyRate(d("36.5")).Equal(d("0.001")))
}

func TestAccrueCompoundsEachDay(t *testing.T) {
	// Three unaccrued days: the 7th, 8th and 9th. Today is never accrued.
	acc := account("36.5", ptr(today.AddDays(-4)))

	run := Accrue(acc, d("100000"), today)

	require.Len(t, run.Movements, 3)
	want := []struct {
		id       string
		interest string
	}{
		{"yield-mp-2024-06-07", "100"},
		{"yield-mp-2024-06-08", "100.1"},
		{"yield-mp-2024-06-09", "100.2001"},
	}
	for i, w := range want {
		m := run.Movements[i]
		assert.Equal(t, w.id, m.ID)
		assert.Equal(t, domain.MovementInterest, m.Type)
		assert.Equal(t, domain.SourceYield, m.Source)
		assert.True(t, m.TotalAmount.Equal(d(w.interest)), "day %d interest %s", i, m.TotalAmount)
		require.NoError(t, m.Validate())
	}
	require.NotNil(t, run.LastAccruedDate)
	assert.Equal(t, "2024-06-09", run.LastAccruedDate.String())
	assert.True(t, run.Balance.Equal(d("100300.3001")))
}

func TestAccrueExcludesTodayAndTheLastAccruedDay(t *testing.T) {
	// The 7th is already accrued and today is never accrued: only the 8th and 9th remain.
	acc := account("36.5", ptr(today.AddDays(-3)))

	run := Accrue(acc, d("100000"), today)

	require.Len(t, run.Movements, 2)
	assert.Equal(t, "yield-mp-2024-06-08", run.Movements[0].ID)
	assert.Equal(t, "yield-mp-2024-06-09", run.Movements[1].ID)
	assert.Equal(t, "2024-06-09", run.LastAccruedDate.String())
}

func TestAccrueEmptyBalanceKeepsLastAccruedDate(t *testing.T) {
	last := today.AddDays(-4)
	run := Accrue(account("36.5", ptr(last)), decimal.Zero, today)

	assert.Empty(t, run.Movements)
	require.NotNil(t, run.LastAccruedDate)
	assert.Equal(t, last.String(), run.LastAccruedDate.String())
}

func TestAccrueIsIdempotent(t *testing.T) {
	acc := account("36.5", ptr(today.AddDays(-4)))
	first := Accrue(acc, d("100000"), today)
	require.NotEmpty(t, first.Movements)

	acc.CashYield.LastAccruedDate = first.LastAccruedDate
	second := Accrue(acc, first.Balance, today)

	assert.Empty(t, second.Movements)
	assert.Equal(t, first.LastAccruedDate.String(), second.LastAccruedDate.String())
}

func TestAccrueWithoutStartDate(t *testing.T) {
	run := Accrue(account("40", nil), d("1000"), today)

	assert.Empty(t, run.Movements)
	assert.Nil(t, run.LastAccruedDate)
	require.Len(t, run.Warnings, 1)
	assert.Equal(t, domain.WarningConfig, run.Warnings[0].Kind)
}

func TestAccrueSkipsNonPositiveBalance(t *testing.T) {
	run := Accrue(account("36.5", ptr(today.AddDays(-3))), d("-50"), today)

	assert.Empty(t, run.Movements)
	assert.Equal(t, "2024-06-07", run.LastAccruedDate.String(), "unchanged when nothing is emitted")
}

func TestAccrueDisabled(t *testing.T) {
	acc := account("36.5", ptr(today.AddDays(-3)))
	acc.CashYield.Enabled = false

	run := Accrue(acc, d("1000"), today)
	assert.Empty(t, run.Movements)
	assert.Empty(t, run.Warnings)
}

func TestComputeTEA(t *testing.T) {
	tea := ComputeTEA(d("36.5"))
	// 1.001^365 - 1
	assert.True(t, tea.Round(6).Equal(d("0.440251")), "tea %s", tea)
	assert.True(t, ComputeTEA(decimal.Zero).IsZero())
}

func TestProjections(t *testing.T) {
	p := Projection30d(d("100000"), d("36.5"))
	assert.Equal(t, 30, p.Days)
	assert.True(t, p.Balance.Round(2).Equal(d("103043.91")), "30d %s", p.Balance)

	y := Projection1y(d("100000"), d("36.5"))
	assert.True(t, y.Interest.Round(0).Equal(d("44025")), "1y %s", y.Interest)
}

func TestLastAccrued(t *testing.T) {
	acc := account("36.5", ptr(domain.NewDate(2024, 6, 1)))
	movements := []domain.Movement{
		{ID: "yield-mp-2024-06-05", Source: domain.SourceYield},
		{ID: "yield-mp-2024-06-03", Source: domain.SourceYield},
		{ID: "yield-other-2024-06-09", Source: domain.SourceYield},
		{ID: "yield-mp-2024-06-08", Source: domain.SourceUser},
	}

	got := LastAccrued(acc, movements)
	require.NotNil(t, got)
	assert.Equal(t, "2024-06-05", got.String())
}
