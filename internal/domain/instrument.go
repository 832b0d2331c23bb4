package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is an ISO-like currency or token code.
type Currency string

const (
	CurrencyARS  Currency = "ARS"
	CurrencyUSD  Currency = "USD"
	CurrencyUSDT Currency = "USDT"
	CurrencyUSDC Currency = "USDC"
)

// IsUSDLike reports whether the currency is the dollar or a dollar stablecoin.
func (c Currency) IsUSDLike() bool {
	switch c {
	case CurrencyUSD, CurrencyUSDT, CurrencyUSDC:
		return true
	default:
		return false
	}
}

// IsStablecoin reports whether the currency is a dollar stablecoin.
func (c Currency) IsStablecoin() bool {
	return c == CurrencyUSDT || c == CurrencyUSDC
}

// Category classifies instruments for valuation and subtotals.
type Category string

const (
	CategoryCedear Category = "CEDEAR"
	CategoryCrypto Category = "CRYPTO"
	CategoryStable Category = "STABLE"
	CategoryFCI    Category = "FCI"
	CategoryCash   Category = "cash"
	CategoryPF     Category = "PF"
	CategoryOther  Category = "OTHER"
)

const cashInstrumentPrefix = "cash:"

// CashInstrumentID returns the pseudo-instrument id used for an account's cash balance in cur.
func CashInstrumentID(cur Currency) string {
	return cashInstrumentPrefix + string(cur)
}

// CashCurrency returns the currency of a cash pseudo-instrument id.
func CashCurrency(instrumentID string) (Currency, bool) {
	if !strings.HasPrefix(instrumentID, cashInstrumentPrefix) {
		return "", false
	}
	return Currency(strings.TrimPrefix(instrumentID, cashInstrumentPrefix)), true
}

// Instrument is static reference data for a tradable asset.
type Instrument struct {
	ID             string   `json:"id"`
	Symbol         string   `json:"symbol"`
	Category       Category `json:"category"`
	NativeCurrency Currency `json:"nativeCurrency"`
	CedearRatio    string   `json:"cedearRatio,omitempty"`

	ratio decimal.Decimal
}

// NewInstrument builds an instrument and precomputes its receipt ratio.
func NewInstrument(id, symbol string, category Category, native Currency, cedearRatio string) (Instrument, error) {
	inst := Instrument{
		ID:             id,
		Symbol:         symbol,
		Category:       category,
		NativeCurrency: native,
		CedearRatio:    cedearRatio,
	}
	if err := inst.loadRatio(); err != nil {
		return Instrument{}, err
	}
	return inst, nil
}

// CashInstrument returns the synthetic instrument for a cash balance in cur.
func CashInstrument(cur Currency) Instrument {
	return Instrument{
		ID:             CashInstrumentID(cur),
		Symbol:         string(cur),
		Category:       CategoryCash,
		NativeCurrency: cur,
	}
}

// Ratio returns receipts per underlying unit (A/B from "A:B"), or 1 when no ratio is set.
func (i Instrument) Ratio() decimal.Decimal {
	if !i.ratio.IsZero() {
		return i.ratio
	}
	r, err := ParseRatio(i.CedearRatio)
	if err != nil {
		return decimal.NewFromInt(1)
	}
	return r
}

func (i *Instrument) loadRatio() error {
	if i.CedearRatio == "" {
		i.ratio = decimal.NewFromInt(1)
		return nil
	}
	r, err := ParseRatio(i.CedearRatio)
	if err != nil {
		return fmt.Errorf("instrument %s: %w", i.ID, err)
	}
	i.ratio = r
	return nil
}

// Validate checks required instrument fields.
func (i Instrument) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("instrument id is required")
	}
	if i.Symbol == "" {
		return fmt.Errorf("instrument %s: symbol is required", i.ID)
	}
	if i.NativeCurrency == "" {
		return fmt.Errorf("instrument %s: native currency is required", i.ID)
	}
	if i.CedearRatio != "" {
		if _, err := ParseRatio(i.CedearRatio); err != nil {
			return fmt.Errorf("instrument %s: %w", i.ID, err)
		}
	}
	return nil
}

// UnmarshalJSON decodes an instrument and precomputes its ratio.
func (i *Instrument) UnmarshalJSON(data []byte) error {
	type alias Instrument
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*i = Instrument(a)
	return i.loadRatio()
}

// ParseRatio parses a textual "A:B" ratio (A receipts per B underlying units) into A/B.
func ParseRatio(s string) (decimal.Decimal, error) {
	left, right, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return decimal.Zero, fmt.Errorf("invalid ratio %q: expected A:B", s)
	}
	a, err := decimal.NewFromString(strings.TrimSpace(left))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid ratio %q: %w", s, err)
	}
	b, err := decimal.NewFromString(strings.TrimSpace(right))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid ratio %q: %w", s, err)
	}
	if !a.IsPositive() || !b.IsPositive() {
		return decimal.Zero, fmt.Errorf("invalid ratio %q: terms must be positive", s)
	}
	return a.Div(b), nil
}
