// Package export writes portfolio valuations to spreadsheets.
package export

import (
	"time"

	"github.com/Rhymond/go-money"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/cartera/internal/domain"
)

// Sheet is one named table: a header row followed by data rows.
type Sheet struct {
	Name string
	Rows [][]any
}

// Report is a portfolio laid out as spreadsheet tables.
type Report struct {
	AsOf     time.Time
	Holdings Sheet
	Category Sheet
	Totals   Sheet
	// History is a single summary row for append-only daily logs.
	History []any
}

// Sheets returns the tables in write order.
func (r Report) Sheets() []Sheet {
	return []Sheet{r.Holdings, r.Category, r.Totals}
}

var historyHeader = []any{"Date", "Net worth ARS", "Net worth USD", "Value ARS", "Value USD", "Fixed term ARS", "Debt ARS", "Unpriced"}

// BuildReport lays out a valuation. Numbers stay numeric; unavailable values are empty cells.
func BuildReport(p domain.Portfolio) Report {
	loc := p.Preferences.Location()
	return Report{
		AsOf:     p.AsOf,
		Holdings: Sheet{Name: "HOLDINGS", Rows: holdingRows(p.Holdings)},
		Category: Sheet{Name: "CATEGORIES", Rows: categoryRows(p.Categories)},
		Totals:   Sheet{Name: "TOTALS", Rows: totalRows(p.Totals)},
		History: []any{
			p.AsOf.In(loc).Format("02.01.2006"),
			ptrFloat(p.Totals.ARS.NetWorth),
			ptrFloat(p.Totals.USD.NetWorth),
			ptrFloat(p.Totals.ARS.Value),
			ptrFloat(p.Totals.USD.Value),
			ptrFloat(p.Totals.ARS.FixedTerm),
			ptrFloat(p.Totals.ARS.Debt),
			p.Totals.Unpriced,
		},
	}
}

// Columns: Account | Instrument | Symbol | Category | Currency | Quantity | Avg cost | Price |
// Value ARS | Value USD | Cost ARS | Cost USD | Unrealized ARS | Unrealized USD | Source
func holdingRows(holdings []domain.Holding) [][]any {
	rows := make([][]any, 0, len(holdings)+1)
	rows = append(rows, []any{
		"Account", "Instrument", "Symbol", "Category", "Currency",
		"Quantity", "Avg cost", "Price",
		"Value ARS", "Value USD", "Cost ARS", "Cost USD",
		"Unrealized ARS", "Unrealized USD", "Source",
	})
	for _, h := range holdings {
		account := lo.CoalesceOrEmpty(h.AccountName, h.AccountID)
		rows = append(rows, []any{
			account, h.InstrumentID, h.Symbol, string(h.Category), string(h.Currency),
			toFloat(h.Quantity), toFloat(h.AvgCost.Native), ptrFloat(h.UnitPrice),
			ptrFloat(h.Value.ARS), ptrFloat(h.Value.USD),
			toFloat(h.CostBasis.ARS), toFloat(h.CostBasis.USD),
			ptrFloat(h.Unrealized.ARS), ptrFloat(h.Unrealized.USD),
			string(h.PriceSource),
		})
	}
	return rows
}

func categoryRows(categories []domain.CategoryTotal) [][]any {
	rows := [][]any{{"Category", "Holdings", "Unpriced", "Value ARS", "Value USD", "Cost ARS", "Unrealized ARS"}}
	for _, c := range categories {
		rows = append(rows, []any{
			string(c.Category), c.Holdings, c.Unpriced,
			ptrFloat(c.ValueARS), ptrFloat(c.ValueUSD), toFloat(c.CostARS), ptrFloat(c.UnrealizedARS),
		})
	}
	return rows
}

// Columns: Metric | ARS | USD | ARS (formatted) | USD (formatted)
func totalRows(t domain.Totals) [][]any {
	metrics := []struct {
		name     string
		ars, usd *decimal.Decimal
	}{
		{"Value", t.ARS.Value, t.USD.Value},
		{"Cost", &t.ARS.Cost, &t.USD.Cost},
		{"Unrealized", t.ARS.Unrealized, t.USD.Unrealized},
		{"Realized", &t.ARS.Realized, &t.USD.Realized},
		{"Liquidity", t.ARS.Liquidity, t.USD.Liquidity},
		{"Fixed term", t.ARS.FixedTerm, t.USD.FixedTerm},
		{"Debt", t.ARS.Debt, t.USD.Debt},
		{"Net worth", t.ARS.NetWorth, t.USD.NetWorth},
	}
	rows := [][]any{{"Metric", "ARS", "USD", "ARS (formatted)", "USD (formatted)"}}
	for _, m := range metrics {
		rows = append(rows, []any{
			m.name, ptrFloat(m.ars), ptrFloat(m.usd),
			formatCell(m.ars, domain.CurrencyARS), formatCell(m.usd, domain.CurrencyUSD),
		})
	}
	return rows
}

// FormatMoney renders an amount with the currency's symbol, separators and minor units.
func FormatMoney(amount decimal.Decimal, cur domain.Currency) string {
	c := *money.New(0, string(cur)).Currency()
	minor := amount.Round(int32(c.Fraction)).Shift(int32(c.Fraction))
	return c.Formatter().Format(minor.IntPart())
}

func formatCell(amount *decimal.Decimal, cur domain.Currency) any {
	if amount == nil {
		return nil
	}
	return FormatMoney(*amount, cur)
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func ptrFloat(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	f, _ := d.Float64()
	return f
}
