package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Amounts is one quantity of money expressed in the position's native currency, ARS and USD.
type Amounts struct {
	Native decimal.Decimal `json:"native"`
	ARS    decimal.Decimal `json:"ars"`
	USD    decimal.Decimal `json:"usd"`
}

func (a Amounts) Add(b Amounts) Amounts {
	return Amounts{Native: a.Native.Add(b.Native), ARS: a.ARS.Add(b.ARS), USD: a.USD.Add(b.USD)}
}

func (a Amounts) Sub(b Amounts) Amounts {
	return Amounts{Native: a.Native.Sub(b.Native), ARS: a.ARS.Sub(b.ARS), USD: a.USD.Sub(b.USD)}
}

// Scale multiplies every component by f.
func (a Amounts) Scale(f decimal.Decimal) Amounts {
	return Amounts{Native: a.Native.Mul(f), ARS: a.ARS.Mul(f), USD: a.USD.Mul(f)}
}

// Per divides every component by q, returning zero amounts when q is zero.
func (a Amounts) Per(q decimal.Decimal) Amounts {
	return Amounts{Native: SafeDiv(a.Native, q), ARS: SafeDiv(a.ARS, q), USD: SafeDiv(a.USD, q)}
}

// Valuation is like Amounts but each component may be unavailable.
type Valuation struct {
	Native *decimal.Decimal `json:"native"`
	ARS    *decimal.Decimal `json:"ars"`
	USD    *decimal.Decimal `json:"usd"`
}

// Priced reports whether at least one component is known.
func (v Valuation) Priced() bool {
	return v.Native != nil || v.ARS != nil || v.USD != nil
}

// PositionKey identifies a ledger fold: an instrument (or cash pseudo-instrument) in an account.
type PositionKey struct {
	InstrumentID string `json:"instrumentId"`
	AccountID    string `json:"accountId"`
}

// Position is the running state of one ledger key after folding its movements.
type Position struct {
	PositionKey
	Currency  Currency        `json:"currency"`
	Quantity  decimal.Decimal `json:"quantity"`
	CostBasis Amounts         `json:"costBasis"`
	Realized  Amounts         `json:"realized"`
	Oversold  bool            `json:"oversold,omitempty"`
	Movements int             `json:"movements"`
}

// AvgCost returns cost basis per unit, or zero when nothing is held.
func (p Position) AvgCost() Amounts {
	if !p.Quantity.IsPositive() {
		return Amounts{}
	}
	return p.CostBasis.Per(p.Quantity)
}

// IsOpen reports whether the position still holds units.
func (p Position) IsOpen() bool {
	return p.Quantity.IsPositive()
}

// PriceSource records where a holding's price came from.
type PriceSource string

const (
	PriceManual PriceSource = "manual"
	PriceLive   PriceSource = "live"
	PricePar    PriceSource = "par"
	PriceNone   PriceSource = "none"
)

// Holding is an open position joined with metadata and a price.
type Holding struct {
	InstrumentID string          `json:"instrumentId"`
	AccountID    string          `json:"accountId"`
	Symbol       string          `json:"symbol"`
	AccountName  string          `json:"accountName"`
	Category     Category        `json:"category"`
	Currency     Currency        `json:"currency"`
	Quantity     decimal.Decimal `json:"quantity"`
	CostBasis    Amounts         `json:"costBasis"`
	AvgCost      Amounts         `json:"avgCost"`
	Realized     Amounts         `json:"realized"`
	PriceSource  PriceSource     `json:"priceSource"`
	// UnitPrice is the per-unit price in Currency.
	UnitPrice   *decimal.Decimal `json:"unitPrice,omitempty"`
	ChangePct1d *decimal.Decimal `json:"changePct1d,omitempty"`
	Value       Valuation        `json:"value"`
	Unrealized  Valuation        `json:"unrealized"`
	Oversold    bool             `json:"oversold,omitempty"`
}

// CategoryTotal sums the holdings of one category. A value sum is nil when a priced
// holding in the category could not be expressed in that currency.
type CategoryTotal struct {
	Category      Category         `json:"category"`
	Holdings      int              `json:"holdings"`
	Unpriced      int              `json:"unpriced"`
	ValueARS      *decimal.Decimal `json:"valueArs"`
	ValueUSD      *decimal.Decimal `json:"valueUsd"`
	CostARS       decimal.Decimal  `json:"costArs"`
	CostUSD       decimal.Decimal  `json:"costUsd"`
	UnrealizedARS *decimal.Decimal `json:"unrealizedArs"`
	UnrealizedUSD *decimal.Decimal `json:"unrealizedUsd"`
}

// CurrencyTotals are the portfolio totals expressed in one currency. Sums that depend on
// a conversion are nil when any term could not be converted.
type CurrencyTotals struct {
	Value      *decimal.Decimal `json:"value"`
	Cost       decimal.Decimal  `json:"cost"`
	Unrealized *decimal.Decimal `json:"unrealized"`
	Realized   decimal.Decimal  `json:"realized"`
	Liquidity  *decimal.Decimal `json:"liquidity"`
	FixedTerm  *decimal.Decimal `json:"fixedTerm"`
	Debt       *decimal.Decimal `json:"debt"`
	NetWorth   *decimal.Decimal `json:"netWorth"`
}

// Totals are whole-portfolio sums. Unpriced holdings contribute cost but not value.
type Totals struct {
	ARS       CurrencyTotals `json:"ars"`
	USD       CurrencyTotals `json:"usd"`
	Unpriced  int            `json:"unpriced"`
	MissingFx bool           `json:"missingFx,omitempty"`
}

// FixedTermStatus is the lifecycle state of a fixed-term deposit.
type FixedTermStatus string

const (
	FixedTermActive  FixedTermStatus = "active"
	FixedTermMatured FixedTermStatus = "matured"
)

// FixedTermPosition is a fixed-term deposit derived from the BUY that opened it.
type FixedTermPosition struct {
	ID                  string          `json:"id"`
	MovementID          string          `json:"movementId"`
	AccountID           string          `json:"accountId"`
	Bank                string          `json:"bank"`
	PrincipalARS        decimal.Decimal `json:"principalArs"`
	TermDays            int             `json:"termDays"`
	TNA                 decimal.Decimal `json:"tna"`
	TEA                 decimal.Decimal `json:"tea"`
	Start               time.Time       `json:"startTs"`
	Maturity            time.Time       `json:"maturityTs"`
	ExpectedInterestARS decimal.Decimal `json:"expectedInterestArs"`
	AccruedInterestARS  decimal.Decimal `json:"accruedInterestArs"`
	Status              FixedTermStatus `json:"status"`
	Settled             bool            `json:"settled"`
}

// ExpectedTotalARS is principal plus expected interest.
func (p FixedTermPosition) ExpectedTotalARS() decimal.Decimal {
	return p.PrincipalARS.Add(p.ExpectedInterestARS)
}

// SettlementID is the deterministic id of the payout movement.
func (p FixedTermPosition) SettlementID() string {
	return SettlementID(p.MovementID)
}

// SettlementID returns the payout movement id for the FTD opened by movementID.
func SettlementID(movementID string) string {
	return "pf-settle-" + movementID
}

// Debt is the running balance of one debt id.
type Debt struct {
	ID        string          `json:"id"`
	AccountID string          `json:"accountId"`
	Currency  Currency        `json:"currency"`
	Added     decimal.Decimal `json:"added"`
	Paid      decimal.Decimal `json:"paid"`
	Balance   decimal.Decimal `json:"balance"`
}

// WarningKind classifies data-quality and configuration findings.
type WarningKind string

const (
	WarningOversell     WarningKind = "oversell"
	WarningMissingFx    WarningKind = "missing_fx"
	WarningMissingPrice WarningKind = "missing_price"
	WarningConfig       WarningKind = "config"
	WarningOverpay      WarningKind = "overpay"
	WarningUnknownRef   WarningKind = "unknown_reference"
)

// Warning is reported alongside a result instead of failing it.
type Warning struct {
	Kind         WarningKind `json:"kind"`
	MovementID   string      `json:"movementId,omitempty"`
	InstrumentID string      `json:"instrumentId,omitempty"`
	AccountID    string      `json:"accountId,omitempty"`
	Message      string      `json:"message"`
}

// Portfolio is a complete valuation at one instant.
type Portfolio struct {
	AsOf        time.Time           `json:"asOf"`
	Preferences Preferences         `json:"preferences"`
	Rates       *FxRates            `json:"rates,omitempty"`
	Holdings    []Holding           `json:"holdings"`
	Categories  []CategoryTotal     `json:"categories"`
	Top         []Holding           `json:"top"`
	FixedTerms  []FixedTermPosition `json:"fixedTerms"`
	Debts       []Debt              `json:"debts"`
	Totals      Totals              `json:"totals"`
	Warnings    []Warning           `json:"warnings"`
}
