package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mtlprog/cartera/internal/domain"
)

// BundleVersion is the current export format version.
const BundleVersion = 1

// ErrInvalidBundle is returned when a bundle cannot be imported as a whole.
var ErrInvalidBundle = errors.New("invalid bundle")

// Bundle is a full export of the user-editable collections. It doubles as the remote
// sync payload.
type Bundle struct {
	Version      int                  `json:"version"`
	ExportedAt   time.Time            `json:"exportedAt"`
	Accounts     []domain.Account     `json:"accounts"`
	Instruments  []domain.Instrument  `json:"instruments"`
	Movements    []domain.Movement    `json:"movements"`
	ManualPrices []domain.ManualPrice `json:"manualPrices"`
}

// Export reads every account, instrument, movement and manual price, ordered by id.
func Export(ctx context.Context, s Store, now time.Time) (Bundle, error) {
	b := Bundle{Version: BundleVersion, ExportedAt: now.UTC()}
	var err error
	if b.Accounts, err = ListAs[domain.Account](ctx, s, Accounts); err != nil {
		return Bundle{}, fmt.Errorf("exporting accounts: %w", err)
	}
	if b.Instruments, err = ListAs[domain.Instrument](ctx, s, Instruments); err != nil {
		return Bundle{}, fmt.Errorf("exporting instruments: %w", err)
	}
	if b.Movements, err = ListAs[domain.Movement](ctx, s, Movements); err != nil {
		return Bundle{}, fmt.Errorf("exporting movements: %w", err)
	}
	if b.ManualPrices, err = ListAs[domain.ManualPrice](ctx, s, ManualPrices); err != nil {
		return Bundle{}, fmt.Errorf("exporting manual prices: %w", err)
	}
	return b, nil
}

// ImportStats counts the records written by Import.
type ImportStats struct {
	Accounts     int `json:"accounts"`
	Instruments  int `json:"instruments"`
	Movements    int `json:"movements"`
	ManualPrices int `json:"manualPrices"`
}

// Import upserts every record of the bundle. Records are validated first and nothing is
// written when any of them is invalid. Importing the same bundle twice has no further effect.
func Import(ctx context.Context, s Store, b Bundle) (ImportStats, error) {
	if b.Version > BundleVersion {
		return ImportStats{}, fmt.Errorf("%w: unsupported version %d", ErrInvalidBundle, b.Version)
	}
	for _, a := range b.Accounts {
		if err := a.Validate(); err != nil {
			return ImportStats{}, fmt.Errorf("%w: %w", ErrInvalidBundle, err)
		}
	}
	for _, i := range b.Instruments {
		if err := i.Validate(); err != nil {
			return ImportStats{}, fmt.Errorf("%w: %w", ErrInvalidBundle, err)
		}
	}
	for _, m := range b.Movements {
		if err := m.Validate(); err != nil {
			return ImportStats{}, fmt.Errorf("%w: %w", ErrInvalidBundle, err)
		}
	}
	for _, p := range b.ManualPrices {
		if p.InstrumentID == "" {
			return ImportStats{}, fmt.Errorf("%w: manual price without instrument id", ErrInvalidBundle)
		}
	}

	var stats ImportStats
	for _, a := range b.Accounts {
		if err := PutAs(ctx, s, Accounts, a.ID, a); err != nil {
			return stats, fmt.Errorf("importing account %s: %w", a.ID, err)
		}
		stats.Accounts++
	}
	for _, i := range b.Instruments {
		if err := PutAs(ctx, s, Instruments, i.ID, i); err != nil {
			return stats, fmt.Errorf("importing instrument %s: %w", i.ID, err)
		}
		stats.Instruments++
	}
	for _, m := range b.Movements {
		if err := PutAs(ctx, s, Movements, m.ID, m); err != nil {
			return stats, fmt.Errorf("importing movement %s: %w", m.ID, err)
		}
		stats.Movements++
	}
	for _, p := range b.ManualPrices {
		if err := PutAs(ctx, s, ManualPrices, p.InstrumentID, p); err != nil {
			return stats, fmt.Errorf("importing manual price %s: %w", p.InstrumentID, err)
		}
		stats.ManualPrices++
	}
	return stats, nil
}
