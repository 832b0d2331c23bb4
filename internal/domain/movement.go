package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidMovement is returned when a movement does not satisfy its type's contract.
var ErrInvalidMovement = errors.New("invalid movement")

// MovementType identifies the kind of financial event.
type MovementType string

const (
	MovementBuy         MovementType = "BUY"
	MovementSell        MovementType = "SELL"
	MovementDeposit     MovementType = "DEPOSIT"
	MovementWithdraw    MovementType = "WITHDRAW"
	MovementFee         MovementType = "FEE"
	MovementDividend    MovementType = "DIVIDEND"
	MovementInterest    MovementType = "INTEREST"
	MovementTransferIn  MovementType = "TRANSFER_IN"
	MovementTransferOut MovementType = "TRANSFER_OUT"
	MovementDebtAdd     MovementType = "DEBT_ADD"
	MovementDebtPay     MovementType = "DEBT_PAY"
)

// MovementSource records who created a movement.
type MovementSource string

const (
	SourceUser      MovementSource = "user"
	SourceImport    MovementSource = "import"
	SourceYield     MovementSource = "yield"
	SourceFixedTerm MovementSource = "fixed-term"
)

// Fee is a commission charged alongside a movement.
type Fee struct {
	Amount   decimal.Decimal
	Currency Currency
}

// Detail carries the fields that only make sense for some movement types.
// Exactly one variant applies to each MovementType (see DetailFor).
type Detail interface {
	detail()
}

// TradeDetail is the variant of BUY and SELL.
type TradeDetail struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	// FixedTerm marks a BUY that opens a fixed-term deposit.
	FixedTerm *FixedTermTerms
}

// CashDetail is the variant of DEPOSIT, WITHDRAW, FEE, DIVIDEND and INTEREST.
type CashDetail struct{}

// TransferDetail is the variant of TRANSFER_IN and TRANSFER_OUT.
type TransferDetail struct {
	Quantity    decimal.Decimal
	ToAccountID string
}

// DebtDetail is the variant of DEBT_ADD and DEBT_PAY.
type DebtDetail struct {
	DebtID string
}

func (TradeDetail) detail()    {}
func (CashDetail) detail()     {}
func (TransferDetail) detail() {}
func (DebtDetail) detail()     {}

// FixedTermTerms describes a fixed-term deposit opened by a BUY.
type FixedTermTerms struct {
	Bank     string          `json:"bank"`
	TermDays int             `json:"termDays"`
	TNA      decimal.Decimal `json:"tna"`
}

// Movement is one financial event. ID is globally unique; storing a movement twice
// with the same ID replaces it.
type Movement struct {
	ID            string
	DateTime      time.Time
	Type          MovementType
	AccountID     string
	InstrumentID  string
	TradeCurrency Currency
	// TotalAmount is an unsigned magnitude; Type gives its direction.
	TotalAmount decimal.Decimal
	FxAtTrade   *decimal.Decimal
	Fee         *Fee
	Source      MovementSource
	Detail      Detail
}

// Quantity returns the units moved by trades and transfers, and zero otherwise.
func (m Movement) Quantity() decimal.Decimal {
	switch d := m.Detail.(type) {
	case TradeDetail:
		return d.Quantity
	case TransferDetail:
		return d.Quantity
	default:
		return decimal.Zero
	}
}

// Notional returns TotalAmount, or quantity × unit price when no total was recorded.
func (m Movement) Notional() decimal.Decimal {
	if !m.TotalAmount.IsZero() {
		return m.TotalAmount
	}
	if d, ok := m.Detail.(TradeDetail); ok {
		return d.Quantity.Mul(d.UnitPrice)
	}
	return decimal.Zero
}

// FixedTerm returns the fixed-term terms of an FTD-opening BUY.
func (m Movement) FixedTerm() (*FixedTermTerms, bool) {
	d, ok := m.Detail.(TradeDetail)
	if !ok || m.Type != MovementBuy || d.FixedTerm == nil {
		return nil, false
	}
	return d.FixedTerm, true
}

// IsCash reports whether the movement moves an account's cash rather than an instrument.
func (m Movement) IsCash() bool {
	return m.InstrumentID == ""
}

// DetailFor returns the zero variant that belongs to a movement type.
func DetailFor(t MovementType) (Detail, error) {
	switch t {
	case MovementBuy, MovementSell:
		return TradeDetail{}, nil
	case MovementDeposit, MovementWithdraw, MovementFee, MovementDividend, MovementInterest:
		return CashDetail{}, nil
	case MovementTransferIn, MovementTransferOut:
		return TransferDetail{}, nil
	case MovementDebtAdd, MovementDebtPay:
		return DebtDetail{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidMovement, t)
	}
}

func variantOf(d Detail) string {
	switch d.(type) {
	case TradeDetail:
		return "trade"
	case CashDetail:
		return "cash"
	case TransferDetail:
		return "transfer"
	case DebtDetail:
		return "debt"
	default:
		return ""
	}
}

// Validate checks the movement against its type's contract.
func (m Movement) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidMovement)
	}
	if m.DateTime.IsZero() {
		return fmt.Errorf("%w %s: datetime is required", ErrInvalidMovement, m.ID)
	}
	if m.AccountID == "" {
		return fmt.Errorf("%w %s: account is required", ErrInvalidMovement, m.ID)
	}
	if m.TradeCurrency == "" {
		return fmt.Errorf("%w %s: trade currency is required", ErrInvalidMovement, m.ID)
	}
	if m.TotalAmount.IsNegative() {
		return fmt.Errorf("%w %s: total amount must not be negative", ErrInvalidMovement, m.ID)
	}
	want, err := DetailFor(m.Type)
	if err != nil {
		return fmt.Errorf("movement %s: %w", m.ID, err)
	}
	if variantOf(m.Detail) != variantOf(want) {
		return fmt.Errorf("%w %s: %s requires %s detail, got %q", ErrInvalidMovement, m.ID, m.Type, variantOf(want), variantOf(m.Detail))
	}

	switch d := m.Detail.(type) {
	case TradeDetail:
		if m.InstrumentID == "" {
			return fmt.Errorf("%w %s: %s requires an instrument", ErrInvalidMovement, m.ID, m.Type)
		}
		if !d.Quantity.IsPositive() {
			return fmt.Errorf("%w %s: quantity must be positive", ErrInvalidMovement, m.ID)
		}
		if d.FixedTerm != nil && m.Type != MovementBuy {
			return fmt.Errorf("%w %s: only BUY can open a fixed-term deposit", ErrInvalidMovement, m.ID)
		}
	case TransferDetail:
		if d.Quantity.IsNegative() {
			return fmt.Errorf("%w %s: quantity must not be negative", ErrInvalidMovement, m.ID)
		}
	case DebtDetail:
		if d.DebtID == "" {
			return fmt.Errorf("%w %s: %s requires a debt id", ErrInvalidMovement, m.ID, m.Type)
		}
	}
	if m.Fee != nil && m.Fee.Amount.IsNegative() {
		return fmt.Errorf("%w %s: fee must not be negative", ErrInvalidMovement, m.ID)
	}
	return nil
}

// movementJSON is the flat wire shape shared by storage, export and sync.
type movementJSON struct {
	ID            string           `json:"id"`
	DateTime      time.Time        `json:"datetimeISO"`
	Type          MovementType     `json:"type"`
	InstrumentID  string           `json:"instrumentId,omitempty"`
	AccountID     string           `json:"accountId"`
	Quantity      *decimal.Decimal `json:"quantity,omitempty"`
	UnitPrice     *decimal.Decimal `json:"unitPrice,omitempty"`
	TradeCurrency Currency         `json:"tradeCurrency"`
	TotalAmount   decimal.Decimal  `json:"totalAmount"`
	FxAtTrade     *decimal.Decimal `json:"fxAtTrade,omitempty"`
	FeeAmount     *decimal.Decimal `json:"feeAmount,omitempty"`
	FeeCurrency   Currency         `json:"feeCurrency,omitempty"`
	ToAccountID   string           `json:"toAccountId,omitempty"`
	DebtID        string           `json:"debtId,omitempty"`
	FixedTerm     *FixedTermTerms  `json:"fixedTerm,omitempty"`
	Source        MovementSource   `json:"source,omitempty"`
}

func (m Movement) MarshalJSON() ([]byte, error) {
	w := movementJSON{
		ID:            m.ID,
		DateTime:      m.DateTime.UTC(),
		Type:          m.Type,
		InstrumentID:  m.InstrumentID,
		AccountID:     m.AccountID,
		TradeCurrency: m.TradeCurrency,
		TotalAmount:   m.TotalAmount,
		FxAtTrade:     m.FxAtTrade,
		Source:        m.Source,
	}
	if m.Fee != nil {
		amount := m.Fee.Amount
		w.FeeAmount = &amount
		w.FeeCurrency = m.Fee.Currency
	}

	switch d := m.Detail.(type) {
	case TradeDetail:
		q, p := d.Quantity, d.UnitPrice
		w.Quantity = &q
		w.UnitPrice = &p
		w.FixedTerm = d.FixedTerm
	case TransferDetail:
		if !d.Quantity.IsZero() {
			q := d.Quantity
			w.Quantity = &q
		}
		w.ToAccountID = d.ToAccountID
	case DebtDetail:
		w.DebtID = d.DebtID
	}

	return json.Marshal(w)
}

func (m *Movement) UnmarshalJSON(data []byte) error {
	var w movementJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decoding movement: %w", err)
	}

	detail, err := DetailFor(w.Type)
	if err != nil {
		return fmt.Errorf("decoding movement %s: %w", w.ID, err)
	}

	switch detail.(type) {
	case TradeDetail:
		td := TradeDetail{FixedTerm: w.FixedTerm}
		if w.Quantity != nil {
			td.Quantity = *w.Quantity
		}
		if w.UnitPrice != nil {
			td.UnitPrice = *w.UnitPrice
		}
		detail = td
	case TransferDetail:
		trd := TransferDetail{ToAccountID: w.ToAccountID}
		if w.Quantity != nil {
			trd.Quantity = *w.Quantity
		}
		detail = trd
	case DebtDetail:
		detail = DebtDetail{DebtID: w.DebtID}
	}

	*m = Movement{
		ID:            w.ID,
		DateTime:      w.DateTime,
		Type:          w.Type,
		AccountID:     w.AccountID,
		InstrumentID:  w.InstrumentID,
		TradeCurrency: w.TradeCurrency,
		TotalAmount:   w.TotalAmount,
		FxAtTrade:     w.FxAtTrade,
		Source:        w.Source,
		Detail:        detail,
	}
	if w.FeeAmount != nil {
		m.Fee = &Fee{Amount: *w.FeeAmount, Currency: w.FeeCurrency}
	}
	return nil
}
