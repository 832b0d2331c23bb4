package domain

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// AccountKind classifies where an account's assets are held.
type AccountKind string

const (
	AccountKindBroker   AccountKind = "broker"
	AccountKindExchange AccountKind = "exchange"
	AccountKindBank     AccountKind = "bank"
	AccountKindWallet   AccountKind = "wallet"
)

// CashYield configures daily interest accrual on an account's ARS cash balance.
type CashYield struct {
	Enabled bool            `json:"enabled"`
	TNA     decimal.Decimal `json:"tna"` // nominal annual rate, percent
	// LastAccruedDate is the last day for which interest has been emitted.
	LastAccruedDate *Date `json:"lastAccruedDate,omitempty"`
}

// Account is a place where holdings live.
type Account struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Kind            AccountKind `json:"kind"`
	DefaultCurrency Currency    `json:"defaultCurrency"`
	CashYield       *CashYield  `json:"cashYield,omitempty"`
}

// YieldEnabled reports whether the account accrues interest on cash.
func (a Account) YieldEnabled() bool {
	return a.CashYield != nil && a.CashYield.Enabled
}

// Validate checks required account fields.
func (a Account) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("account id is required")
	}
	if a.Name == "" {
		return fmt.Errorf("account %s: name is required", a.ID)
	}
	if a.CashYield != nil && a.CashYield.TNA.IsNegative() {
		return fmt.Errorf("account %s: tna must not be negative", a.ID)
	}
	return nil
}

// AccountsByID indexes accounts by id.
func AccountsByID(accounts []Account) map[string]Account {
	return lo.KeyBy(accounts, func(a Account) string { return a.ID })
}

// InstrumentsByID indexes instruments by id.
func InstrumentsByID(instruments []Instrument) map[string]Instrument {
	return lo.KeyBy(instruments, func(i Instrument) string { return i.ID })
}
