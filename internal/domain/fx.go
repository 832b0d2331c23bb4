package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// FxKind names one of the ARS/USD exchange rates quoted in the market.
type FxKind string

const (
	FxOficial FxKind = "OFICIAL"
	FxBlue    FxKind = "BLUE"
	FxMEP     FxKind = "MEP"
	FxCCL     FxKind = "CCL"
	FxCripto  FxKind = "CRIPTO"
)

// FxSide selects which side of a quoted pair is used for conversions.
type FxSide string

const (
	FxSideBuy  FxSide = "buy"
	FxSideSell FxSide = "sell"
)

// RatePair is a buy/sell quote in ARS per USD.
type RatePair struct {
	Buy  decimal.Decimal `json:"buy"`
	Sell decimal.Decimal `json:"sell"`
}

// Side returns the requested side of the pair.
func (p RatePair) Side(side FxSide) decimal.Decimal {
	if side == FxSideBuy {
		return p.Buy
	}
	return p.Sell
}

// FxRates is a set of ARS/USD rates fetched together.
type FxRates struct {
	Oficial   RatePair  `json:"oficial"`
	Blue      RatePair  `json:"blue"`
	MEP       RatePair  `json:"mep"`
	CCL       RatePair  `json:"ccl"`
	Cripto    RatePair  `json:"cripto"`
	UpdatedAt time.Time `json:"updatedAtISO"`
	Source    string    `json:"source"`
}

// Pair returns the quote for a rate kind.
func (r FxRates) Pair(kind FxKind) (RatePair, bool) {
	switch kind {
	case FxOficial:
		return r.Oficial, true
	case FxBlue:
		return r.Blue, true
	case FxMEP:
		return r.MEP, true
	case FxCCL:
		return r.CCL, true
	case FxCripto:
		return r.Cripto, true
	default:
		return RatePair{}, false
	}
}

// ParseFxKind validates a rate kind name.
func ParseFxKind(s string) (FxKind, error) {
	switch k := FxKind(s); k {
	case FxOficial, FxBlue, FxMEP, FxCCL, FxCripto:
		return k, nil
	default:
		return "", fmt.Errorf("unknown fx kind %q", s)
	}
}

// Quote is a live market price for a symbol.
type Quote struct {
	Symbol      string           `json:"symbol"`
	PriceUSD    decimal.Decimal  `json:"priceUsd"`
	ChangePct1d *decimal.Decimal `json:"changePct1d,omitempty"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// ManualPrice is a user-set price that overrides live quotes for an instrument.
type ManualPrice struct {
	InstrumentID string          `json:"id"`
	Price        decimal.Decimal `json:"price"`
	Currency     Currency        `json:"currency"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}
