package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mtlprog/cartera/internal/domain"
)

// Writer writes a report to a spreadsheet destination.
type Writer interface {
	Write(ctx context.Context, r Report) error
}

// Service lays out a valuation and hands it to every configured writer.
type Service struct {
	writers []Writer
}

// NewService creates a new export Service.
func NewService(writers ...Writer) *Service {
	return &Service{writers: writers}
}

// Export writes the portfolio with every writer. A failing writer does not stop the others.
// Implements worker.AfterSnapshotHook.
func (s *Service) Export(ctx context.Context, p domain.Portfolio) error {
	report := BuildReport(p)
	var errs []error
	for _, w := range s.writers {
		if err := w.Write(ctx, report); err != nil {
			slog.Warn("Export: writer failed", "writer", fmt.Sprintf("%T", w), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
