package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Memory is an in-process Store.
type Memory struct {
	mu   sync.RWMutex
	data map[Collection]map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[Collection]map[string][]byte)}
}

func (m *Memory) List(ctx context.Context, c Collection) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]Record, 0, len(m.data[c]))
	for id, data := range m.data[c] {
		records = append(records, Record{ID: id, Data: slices.Clone(data)})
	}
	slices.SortFunc(records, func(a, b Record) int { return strings.Compare(a.ID, b.ID) })
	return records, nil
}

func (m *Memory) Get(ctx context.Context, c Collection, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.data[c][id]
	if !ok {
		return Record{}, fmt.Errorf("%s/%s: %w", c, id, ErrNotFound)
	}
	return Record{ID: id, Data: slices.Clone(data)}, nil
}

func (m *Memory) Put(ctx context.Context, c Collection, r Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.ID == "" {
		return fmt.Errorf("putting into %s: id is required", c)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data[c] == nil {
		m.data[c] = make(map[string][]byte)
	}
	m.data[c][r.ID] = slices.Clone(r.Data)
	return nil
}

func (m *Memory) Delete(ctx context.Context, c Collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.data[c][id]; !ok {
		return fmt.Errorf("%s/%s: %w", c, id, ErrNotFound)
	}
	delete(m.data[c], id)
	return nil
}
