package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/cartera/internal/domain"
	"github.com/mtlprog/cartera/internal/store"
)

type mockValuator struct {
	totals domain.Totals
	err    error
}

func (m *mockValuator) ValuateAt(_ context.Context, now time.Time) (domain.Portfolio, error) {
	if m.err != nil {
		return domain.Portfolio{}, m.err
	}
	return domain.Portfolio{AsOf: now, Preferences: domain.DefaultPreferences(), Totals: m.totals}, nil
}

type failingRepo struct {
	Repository
}

func (failingRepo) Save(_ context.Context, _ Snapshot) error {
	return errors.New("save failed")
}

func totals(value int64) domain.Totals {
	v := decimal.NewFromInt(value)
	return domain.Totals{ARS: domain.CurrencyTotals{Value: &v}}
}

func TestGenerateStoresOnePerDay(t *testing.T) {
	ctx := context.Background()
	val := &mockValuator{totals: totals(100)}
	svc := NewService(val, NewStoreRepository(store.NewMemory()))

	// 02:00 UTC is still the 9th in Buenos Aires.
	if _, err := svc.Generate(ctx, time.Date(2024, 6, 10, 2, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	val.totals = totals(200)
	if _, err := svc.Generate(ctx, time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	val.totals = totals(300)
	if _, err := svc.Generate(ctx, time.Date(2024, 6, 10, 20, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	list, err := svc.List(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d snapshots, want 2", len(list))
	}
	if list[0].Date.String() != "2024-06-10" || list[1].Date.String() != "2024-06-09" {
		t.Errorf("dates = %s, %s, want newest first", list[0].Date, list[1].Date)
	}
	if v := list[0].Totals.ARS.Value; v == nil || !v.Equal(decimal.NewFromInt(300)) {
		t.Errorf("latest value = %s, want 300 (same-day regeneration replaces)", list[0].Totals.ARS.Value)
	}

	latest, err := svc.GetLatest(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !latest.Date.Equal(list[0].Date) {
		t.Errorf("latest = %s, want %s", latest.Date, list[0].Date)
	}

	byDate, err := svc.GetByDate(ctx, domain.NewDate(2024, 6, 9))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v := byDate.Totals.ARS.Value; v == nil || !v.Equal(decimal.NewFromInt(100)) {
		t.Errorf("2024-06-09 value = %s, want 100", byDate.Totals.ARS.Value)
	}
}

func TestListLimit(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&mockValuator{}, NewStoreRepository(store.NewMemory()))
	for day := 1; day <= 5; day++ {
		if _, err := svc.Generate(ctx, time.Date(2024, 6, day, 15, 0, 0, 0, time.UTC)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	list, err := svc.List(ctx, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 3 || list[0].Date.String() != "2024-06-05" {
		t.Errorf("got %d snapshots starting %v", len(list), list)
	}
}

func TestGetMissing(t *testing.T) {
	svc := NewService(&mockValuator{}, NewStoreRepository(store.NewMemory()))

	if _, err := svc.GetLatest(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetLatest err = %v, want ErrNotFound", err)
	}
	if _, err := svc.GetByDate(context.Background(), domain.NewDate(2024, 1, 1)); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByDate err = %v, want ErrNotFound", err)
	}
}

func TestGenerateValuatorError(t *testing.T) {
	svc := NewService(&mockValuator{err: errors.New("valuation failed")}, NewStoreRepository(store.NewMemory()))

	if _, err := svc.Generate(context.Background(), time.Now()); err == nil {
		t.Fatal("expected error from valuator")
	}
}

func TestGenerateRepoSaveError(t *testing.T) {
	svc := NewService(&mockValuator{}, failingRepo{})

	if _, err := svc.Generate(context.Background(), time.Now()); err == nil {
		t.Fatal("expected error from repo save")
	}
}
