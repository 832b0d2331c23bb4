package domain

import (
	"fmt"
	"time"
)

// DefaultTimezone is where calendar days are counted.
const DefaultTimezone = "America/Argentina/Buenos_Aires"

// Preferences configures a valuation.
type Preferences struct {
	BaseFxForUSD FxKind `json:"baseFxForUSD" toml:"base_fx_for_usd"`
	StablecoinFx FxKind `json:"stablecoinFx" toml:"stablecoin_fx"`
	FxSide       FxSide `json:"fxSide" toml:"fx_side"`
	TopN         int    `json:"topN" toml:"top_n"`
	Timezone     string `json:"timezone" toml:"timezone"`
}

// DefaultPreferences returns MEP for dollars, the crypto rate for stablecoins and the sell side.
func DefaultPreferences() Preferences {
	return Preferences{
		BaseFxForUSD: FxMEP,
		StablecoinFx: FxCripto,
		FxSide:       FxSideSell,
		TopN:         5,
		Timezone:     DefaultTimezone,
	}
}

// Validate checks that every preference names a known option.
func (p Preferences) Validate() error {
	if _, err := ParseFxKind(string(p.BaseFxForUSD)); err != nil {
		return fmt.Errorf("baseFxForUSD: %w", err)
	}
	if _, err := ParseFxKind(string(p.StablecoinFx)); err != nil {
		return fmt.Errorf("stablecoinFx: %w", err)
	}
	if p.FxSide != FxSideBuy && p.FxSide != FxSideSell {
		return fmt.Errorf("fxSide: unknown side %q", p.FxSide)
	}
	if p.TopN < 0 {
		return fmt.Errorf("topN must not be negative")
	}
	if _, err := time.LoadLocation(p.Timezone); err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	return nil
}

// Location returns the configured timezone, falling back to UTC.
func (p Preferences) Location() *time.Location {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Today returns the calendar day of now in the configured timezone.
func (p Preferences) Today(now time.Time) Date {
	return DateOf(now, p.Location())
}
