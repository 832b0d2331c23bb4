package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestMovementJSONRoundTrip(t *testing.T) {
	fx := dec("1200")
	movements := []Movement{
		{
			ID:            "m-buy",
			DateTime:      time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC),
			Type:          MovementBuy,
			AccountID:     "iol",
			InstrumentID:  "AAPL",
			TradeCurrency: CurrencyARS,
			TotalAmount:   dec("150000"),
			FxAtTrade:     &fx,
			Fee:           &Fee{Amount: dec("750"), Currency: CurrencyARS},
			Source:        SourceUser,
			Detail:        TradeDetail{Quantity: dec("10"), UnitPrice: dec("15000")},
		},
		{
			ID:            "m-dep",
			DateTime:      time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
			Type:          MovementDeposit,
			AccountID:     "mp",
			TradeCurrency: CurrencyARS,
			TotalAmount:   dec("100000"),
			Detail:        CashDetail{},
		},
		{
			ID:            "m-tr",
			DateTime:      time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC),
			Type:          MovementTransferOut,
			AccountID:     "binance",
			InstrumentID:  "BTC",
			TradeCurrency: CurrencyUSD,
			Detail:        TransferDetail{Quantity: dec("0.5"), ToAccountID: "ledger"},
		},
		{
			ID:            "m-debt",
			DateTime:      time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
			Type:          MovementDebtAdd,
			AccountID:     "visa",
			TradeCurrency: CurrencyARS,
			TotalAmount:   dec("5000"),
			Detail:        DebtDetail{DebtID: "card-march"},
		},
		{
			ID:            "m-pf",
			DateTime:      time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
			Type:          MovementBuy,
			AccountID:     "galicia",
			InstrumentID:  "pf-galicia",
			TradeCurrency: CurrencyARS,
			TotalAmount:   dec("1000000"),
			Detail: TradeDetail{
				Quantity:  dec("1"),
				UnitPrice: dec("1000000"),
				FixedTerm: &FixedTermTerms{Bank: "Galicia", TermDays: 30, TNA: dec("40")},
			},
		},
	}

	for _, m := range movements {
		t.Run(m.ID, func(t *testing.T) {
			require.NoError(t, m.Validate())

			first, err := json.Marshal(m)
			require.NoError(t, err)

			var decoded Movement
			require.NoError(t, json.Unmarshal(first, &decoded))

			second, err := json.Marshal(decoded)
			require.NoError(t, err)
			assert.JSONEq(t, string(first), string(second))
			assert.Equal(t, string(first), string(second))
			assert.Equal(t, m.Type, decoded.Type)
			assert.IsType(t, m.Detail, decoded.Detail)
			assert.True(t, m.Quantity().Equal(decoded.Quantity()))
		})
	}
}

func TestMovementWireShape(t *testing.T) {
	raw := `{"id":"x1","datetimeISO":"2024-05-01T12:00:00Z","type":"SELL","instrumentId":"AAPL",
		"accountId":"iol","quantity":"4","unitPrice":"150","tradeCurrency":"USD","totalAmount":"0"}`

	var m Movement
	require.NoError(t, json.Unmarshal([]byte(raw), &m))

	detail, ok := m.Detail.(TradeDetail)
	require.True(t, ok)
	assert.True(t, detail.Quantity.Equal(dec("4")))
	assert.True(t, m.Notional().Equal(dec("600")))
	assert.Nil(t, m.Fee)
	assert.False(t, m.IsCash())
}

func TestMovementValidate(t *testing.T) {
	base := Movement{
		ID:            "v1",
		DateTime:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Type:          MovementBuy,
		AccountID:     "iol",
		InstrumentID:  "AAPL",
		TradeCurrency: CurrencyUSD,
		Detail:        TradeDetail{Quantity: dec("1"), UnitPrice: dec("100")},
	}

	tests := []struct {
		name   string
		mutate func(m *Movement)
	}{
		{"missing id", func(m *Movement) { m.ID = "" }},
		{"missing account", func(m *Movement) { m.AccountID = "" }},
		{"wrong variant", func(m *Movement) { m.Detail = CashDetail{} }},
		{"unknown type", func(m *Movement) { m.Type = "SWAP" }},
		{"zero quantity", func(m *Movement) { m.Detail = TradeDetail{UnitPrice: dec("1")} }},
		{"negative total", func(m *Movement) { m.TotalAmount = dec("-1") }},
		{"trade without instrument", func(m *Movement) { m.InstrumentID = "" }},
		{"debt without id", func(m *Movement) {
			m.Type = MovementDebtPay
			m.Detail = DebtDetail{}
		}},
	}

	require.NoError(t, base.Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := base
			tt.mutate(&m)
			err := m.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidMovement))
		})
	}
}

func TestMovementFixedTerm(t *testing.T) {
	m := Movement{Type: MovementBuy, Detail: TradeDetail{FixedTerm: &FixedTermTerms{TermDays: 30}}}
	terms, ok := m.FixedTerm()
	require.True(t, ok)
	assert.Equal(t, 30, terms.TermDays)

	m.Type = MovementSell
	_, ok = m.FixedTerm()
	assert.False(t, ok)
}
