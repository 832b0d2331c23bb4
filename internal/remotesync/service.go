package remotesync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mtlprog/cartera/internal/store"
)

// ErrDisabled is returned when sync is used without a remote URL.
var ErrDisabled = errors.New("remote sync is disabled")

// Remote is the other side of a sync.
type Remote interface {
	Push(ctx context.Context, b store.Bundle) (store.ImportStats, error)
	Pull(ctx context.Context) (store.Bundle, error)
}

// Service pushes the local store to a remote and pulls the remote into it.
type Service struct {
	store  store.Store
	remote Remote
	now    func() time.Time
}

// NewService creates a sync Service. A nil remote disables sync.
func NewService(st store.Store, remote Remote) *Service {
	return &Service{store: st, remote: remote, now: time.Now}
}

// Enabled reports whether a remote is configured.
func (s *Service) Enabled() bool { return s.remote != nil }

// Push exports the local book and uploads it.
func (s *Service) Push(ctx context.Context) (store.ImportStats, error) {
	if s.remote == nil {
		return store.ImportStats{}, ErrDisabled
	}
	b, err := store.Export(ctx, s.store, s.now())
	if err != nil {
		return store.ImportStats{}, err
	}
	stats, err := s.remote.Push(ctx, b)
	if err != nil {
		return store.ImportStats{}, err
	}
	slog.Info("Sync: pushed", "accounts", stats.Accounts, "instruments", stats.Instruments, "movements", stats.Movements)
	return stats, nil
}

// Pull downloads the remote book and upserts it locally. Local records missing from the
// remote are kept.
func (s *Service) Pull(ctx context.Context) (store.ImportStats, error) {
	if s.remote == nil {
		return store.ImportStats{}, ErrDisabled
	}
	b, err := s.remote.Pull(ctx)
	if err != nil {
		return store.ImportStats{}, err
	}
	stats, err := store.Import(ctx, s.store, b)
	if err != nil {
		return stats, fmt.Errorf("importing pulled bundle: %w", err)
	}
	slog.Info("Sync: pulled", "accounts", stats.Accounts, "instruments", stats.Instruments, "movements", stats.Movements)
	return stats, nil
}
