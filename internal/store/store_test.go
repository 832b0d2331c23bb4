package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtlprog/cartera/internal/domain"
)

type doc struct {
	Name string `json:"name"`
}

func backends(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "cartera.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })

	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": sq,
	}
}

func TestStoreContract(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := s.Get(ctx, Accounts, "missing")
			assert.True(t, errors.Is(err, ErrNotFound))

			require.NoError(t, PutAs(ctx, s, Accounts, "b", doc{Name: "second"}))
			require.NoError(t, PutAs(ctx, s, Accounts, "a", doc{Name: "first"}))
			require.NoError(t, PutAs(ctx, s, Accounts, "a", doc{Name: "first again"}))
			require.NoError(t, PutAs(ctx, s, Instruments, "a", doc{Name: "other collection"}))

			docs, err := ListAs[doc](ctx, s, Accounts)
			require.NoError(t, err)
			assert.Equal(t, []doc{{Name: "first again"}, {Name: "second"}}, docs)

			got, err := GetAs[doc](ctx, s, Instruments, "a")
			require.NoError(t, err)
			assert.Equal(t, "other collection", got.Name)

			require.NoError(t, s.Delete(ctx, Accounts, "a"))
			assert.True(t, errors.Is(s.Delete(ctx, Accounts, "a"), ErrNotFound))

			records, err := s.List(ctx, Accounts)
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, "b", records[0].ID)

			assert.Error(t, s.Put(ctx, Accounts, Record{Data: json.RawMessage(`{}`)}))
		})
	}
}

func TestMemoryCopiesData(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	data := []byte(`{"name":"x"}`)
	require.NoError(t, s.Put(ctx, Cache, Record{ID: "k", Data: data}))
	data[2] = 'X'

	r, err := s.Get(ctx, Cache, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"name":"x"}`, string(r.Data))
}

func TestMemoryHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemory().List(ctx, Accounts)
	assert.ErrorIs(t, err, context.Canceled)
}

func sampleBundle(t *testing.T) Bundle {
	t.Helper()
	last := domain.NewDate(2024, 5, 1)
	inst, err := domain.NewInstrument("AAPL", "AAPL", domain.CategoryCedear, domain.CurrencyARS, "20:1")
	require.NoError(t, err)
	return Bundle{
		Version:    BundleVersion,
		ExportedAt: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
		Accounts: []domain.Account{
			{ID: "iol", Name: "IOL", Kind: domain.AccountKindBroker, DefaultCurrency: domain.CurrencyARS},
			{ID: "mp", Name: "Mercado Pago", Kind: domain.AccountKindWallet, DefaultCurrency: domain.CurrencyARS,
				CashYield: &domain.CashYield{Enabled: true, TNA: decimal.RequireFromString("36.5"), LastAccruedDate: &last}},
		},
		Instruments: []domain.Instrument{inst},
		Movements: []domain.Movement{
			{
				ID: "m1", DateTime: time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC), Type: domain.MovementBuy,
				AccountID: "iol", InstrumentID: "AAPL", TradeCurrency: domain.CurrencyARS,
				TotalAmount: decimal.RequireFromString("150000"),
				Detail:      domain.TradeDetail{Quantity: decimal.RequireFromString("10"), UnitPrice: decimal.RequireFromString("15000")},
			},
			{
				ID: "m2", DateTime: time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC), Type: domain.MovementDeposit,
				AccountID: "mp", TradeCurrency: domain.CurrencyARS, TotalAmount: decimal.RequireFromString("100000"),
				Detail: domain.CashDetail{},
			},
		},
		ManualPrices: []domain.ManualPrice{
			{InstrumentID: "AAPL", Price: decimal.RequireFromString("16000"), Currency: domain.CurrencyARS,
				UpdatedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		},
	}
}

func TestBundleRoundTrip(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			original := sampleBundle(t)

			stats, err := Import(ctx, s, original)
			require.NoError(t, err)
			assert.Equal(t, ImportStats{Accounts: 2, Instruments: 1, Movements: 2, ManualPrices: 1}, stats)

			exported, err := Export(ctx, s, original.ExportedAt)
			require.NoError(t, err)

			want, err := json.Marshal(original)
			require.NoError(t, err)
			got, err := json.Marshal(exported)
			require.NoError(t, err)
			assert.Equal(t, string(want), string(got))

			fresh := NewMemory()
			_, err = Import(ctx, fresh, exported)
			require.NoError(t, err)
			again, err := Export(ctx, fresh, original.ExportedAt)
			require.NoError(t, err)
			gotAgain, err := json.Marshal(again)
			require.NoError(t, err)
			assert.Equal(t, string(got), string(gotAgain))
		})
	}
}

func TestImportRejectsInvalidBundle(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	b := sampleBundle(t)
	b.Movements[1].AccountID = ""

	_, err := Import(ctx, s, b)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidMovement)
	assert.ErrorIs(t, err, ErrInvalidBundle)

	accounts, err := s.List(ctx, Accounts)
	require.NoError(t, err)
	assert.Empty(t, accounts, "nothing is written when validation fails")
}
