package snapshot

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/mtlprog/cartera/internal/domain"
	"github.com/mtlprog/cartera/internal/store"
)

// ErrNotFound indicates that the requested snapshot was not found.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is the valuation of one day, kept for history.
type Snapshot struct {
	Date       domain.Date            `json:"date"`
	AsOf       time.Time              `json:"asOf"`
	Totals     domain.Totals          `json:"totals"`
	Categories []domain.CategoryTotal `json:"categories"`
	Holdings   []domain.Holding       `json:"holdings"`
	Rates      *domain.FxRates        `json:"rates,omitempty"`
	Warnings   int                    `json:"warnings"`
}

// Repository defines persistent storage for snapshots.
type Repository interface {
	Save(ctx context.Context, s Snapshot) error
	GetLatest(ctx context.Context) (*Snapshot, error)
	GetByDate(ctx context.Context, date domain.Date) (*Snapshot, error)
	List(ctx context.Context, limit int) ([]Snapshot, error)
}

// StoreRepository keeps snapshots in the document store, one record per day.
type StoreRepository struct {
	store store.Store
}

// NewStoreRepository creates a snapshot repository backed by st.
func NewStoreRepository(st store.Store) *StoreRepository {
	return &StoreRepository{store: st}
}

func (r *StoreRepository) Save(ctx context.Context, s Snapshot) error {
	if err := store.PutAs(ctx, r.store, store.Snapshots, s.Date.String(), s); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

func (r *StoreRepository) GetLatest(ctx context.Context) (*Snapshot, error) {
	snapshots, err := r.List(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, ErrNotFound
	}
	return &snapshots[0], nil
}

func (r *StoreRepository) GetByDate(ctx context.Context, date domain.Date) (*Snapshot, error) {
	s, err := store.GetAs[Snapshot](ctx, r.store, store.Snapshots, date.String())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting snapshot by date: %w", err)
	}
	return &s, nil
}

// List returns up to limit snapshots, newest first.
func (r *StoreRepository) List(ctx context.Context, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 30
	}
	snapshots, err := store.ListAs[Snapshot](ctx, r.store, store.Snapshots)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	// Ids are YYYY-MM-DD so the store's id order is date order.
	slices.Reverse(snapshots)
	if len(snapshots) > limit {
		snapshots = snapshots[:limit]
	}
	return snapshots, nil
}
