// Package yield accrues daily interest on yield-bearing cash accounts.
package yield

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/cartera/internal/domain"
)

const daysPerYear = 365

var hundred = decimal.NewFromInt(100)

// DailyRate converts a nominal annual rate in percent to a simple daily rate.
func DailyRate(tna decimal.Decimal) decimal.Decimal {
	return tna.Div(hundred).Div(decimal.NewFromInt(daysPerYear))
}

// ComputeTEA returns the effective annual rate of tna compounded daily, as a fraction.
func ComputeTEA(tna decimal.Decimal) decimal.Decimal {
	return Growth(tna, daysPerYear).Sub(decimal.NewFromInt(1))
}

// Growth returns (1 + DailyRate(tna))^days.
func Growth(tna decimal.Decimal, days int) decimal.Decimal {
	return domain.PowInt(decimal.NewFromInt(1).Add(DailyRate(tna)), days)
}

// Projection is a balance compounded daily for a number of days.
type Projection struct {
	Days     int             `json:"days"`
	Balance  decimal.Decimal `json:"balance"`
	Interest decimal.Decimal `json:"interest"`
}

// Project compounds balance at tna for days.
func Project(balance, tna decimal.Decimal, days int) Projection {
	final := balance.Mul(Growth(tna, days)).Round(domain.DisplayPrecision)
	return Projection{Days: days, Balance: final, Interest: final.Sub(balance)}
}

func Projection30d(balance, tna decimal.Decimal) Projection { return Project(balance, tna, 30) }
func Projection1y(balance, tna decimal.Decimal) Projection  { return Project(balance, tna, daysPerYear) }

// Run is the outcome of accruing one account.
type Run struct {
	AccountID string
	Movements []domain.Movement
	// LastAccruedDate is the last day with emitted interest, or the previous value when
	// nothing was emitted.
	LastAccruedDate *domain.Date
	Balance         decimal.Decimal
	Warnings        []domain.Warning
}

// MovementID is the deterministic id of an account's interest movement for a day.
func MovementID(accountID string, day domain.Date) string {
	return fmt.Sprintf("yield-%s-%s", accountID, day)
}

// Accrue emits one INTEREST movement per day after the account's LastAccruedDate and
// before today, compounding on the running balance. Days with a non-positive balance
// earn nothing and leave LastAccruedDate where it was. An account without LastAccruedDate
// is not caught up.
func Accrue(account domain.Account, balance decimal.Decimal, today domain.Date) Run {
	run := Run{AccountID: account.ID, Balance: balance}
	if !account.YieldEnabled() {
		return run
	}
	cfg := account.CashYield
	run.LastAccruedDate = cfg.LastAccruedDate
	if cfg.LastAccruedDate == nil || cfg.LastAccruedDate.IsZero() {
		run.Warnings = append(run.Warnings, domain.Warning{
			Kind:      domain.WarningConfig,
			AccountID: account.ID,
			Message:   "cash yield enabled without lastAccruedDate",
		})
		return run
	}

	rate := DailyRate(cfg.TNA)
	running := balance
	var last *domain.Date
	for day := cfg.LastAccruedDate.AddDays(1); day.Before(today); day = day.AddDays(1) {
		if !running.IsPositive() {
			continue
		}
		interest := running.Mul(rate).Round(domain.DisplayPrecision)
		if interest.IsZero() {
			continue
		}
		run.Movements = append(run.Movements, interestMovement(account.ID, day, interest))
		running = running.Add(interest)
		emitted := day
		last = &emitted
	}

	if last != nil {
		run.LastAccruedDate = last
	}
	run.Balance = running
	return run
}

// LastAccrued returns the later of the account's LastAccruedDate and the newest interest
// movement already stored for the account.
func LastAccrued(account domain.Account, movements []domain.Movement) *domain.Date {
	if account.CashYield == nil {
		return nil
	}
	latest := account.CashYield.LastAccruedDate
	prefix := fmt.Sprintf("yield-%s-", account.ID)
	for _, m := range movements {
		if m.Source != domain.SourceYield || !strings.HasPrefix(m.ID, prefix) {
			continue
		}
		day, err := domain.ParseDate(strings.TrimPrefix(m.ID, prefix))
		if err != nil {
			continue
		}
		if latest == nil || day.After(*latest) {
			latest = &day
		}
	}
	return latest
}

func interestMovement(accountID string, day domain.Date, interest decimal.Decimal) domain.Movement {
	return domain.Movement{
		ID:            MovementID(accountID, day),
		DateTime:      day.Time(),
		Type:          domain.MovementInterest,
		AccountID:     accountID,
		TradeCurrency: domain.CurrencyARS,
		TotalAmount:   interest,
		Source:        domain.SourceYield,
		Detail:        domain.CashDetail{},
	}
}
