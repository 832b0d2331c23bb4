// Package snapshot stores a daily copy of the portfolio valuation.
package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mtlprog/cartera/internal/domain"
)

// Valuator produces the portfolio valuation.
type Valuator interface {
	ValuateAt(ctx context.Context, now time.Time) (domain.Portfolio, error)
}

// Service manages snapshot generation and retrieval.
type Service struct {
	valuator Valuator
	repo     Repository
}

// NewService creates a new snapshot Service.
func NewService(valuator Valuator, repo Repository) *Service {
	return &Service{valuator: valuator, repo: repo}
}

// Generate values the portfolio at now and stores it as the snapshot of now's calendar
// day, replacing an earlier snapshot of the same day.
func (s *Service) Generate(ctx context.Context, now time.Time) (domain.Portfolio, error) {
	p, err := s.valuator.ValuateAt(ctx, now)
	if err != nil {
		return domain.Portfolio{}, fmt.Errorf("valuating portfolio: %w", err)
	}

	snap := Snapshot{
		Date:       p.Preferences.Today(now),
		AsOf:       p.AsOf,
		Totals:     p.Totals,
		Categories: p.Categories,
		Holdings:   p.Holdings,
		Rates:      p.Rates,
		Warnings:   len(p.Warnings),
	}
	if p.Totals.MissingFx || p.Totals.Unpriced > 0 {
		slog.Warn("Snapshot: totals are incomplete", "date", snap.Date, "unpriced", p.Totals.Unpriced, "missingFx", p.Totals.MissingFx)
	}

	if err := s.repo.Save(ctx, snap); err != nil {
		return domain.Portfolio{}, fmt.Errorf("saving snapshot: %w", err)
	}
	return p, nil
}

// GetLatest retrieves the most recent snapshot.
func (s *Service) GetLatest(ctx context.Context) (*Snapshot, error) {
	return s.repo.GetLatest(ctx)
}

// GetByDate retrieves the snapshot of a specific day.
func (s *Service) GetByDate(ctx context.Context, date domain.Date) (*Snapshot, error) {
	return s.repo.GetByDate(ctx, date)
}

// List retrieves recent snapshots.
func (s *Service) List(ctx context.Context, limit int) ([]Snapshot, error) {
	return s.repo.List(ctx, limit)
}
