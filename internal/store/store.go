// Package store persists JSON documents in named collections.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound indicates that the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Collection names a group of records.
type Collection string

const (
	Accounts     Collection = "accounts"
	Instruments  Collection = "instruments"
	Movements    Collection = "movements"
	ManualPrices Collection = "manualPrices"
	Snapshots    Collection = "snapshots"
	Cache        Collection = "cache"
)

// Collections lists every known collection.
var Collections = []Collection{Accounts, Instruments, Movements, ManualPrices, Snapshots, Cache}

// Record is one stored document.
type Record struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// Store is a document store. Put replaces any record with the same id, so writing the
// same record twice has no further effect. List returns records ordered by id.
type Store interface {
	List(ctx context.Context, c Collection) ([]Record, error)
	Get(ctx context.Context, c Collection, id string) (Record, error)
	Put(ctx context.Context, c Collection, r Record) error
	Delete(ctx context.Context, c Collection, id string) error
}

// ListAs decodes every record of a collection into T.
func ListAs[T any](ctx context.Context, s Store, c Collection) ([]T, error) {
	records, err := s.List(ctx, c)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(records))
	for _, r := range records {
		var v T
		if err := json.Unmarshal(r.Data, &v); err != nil {
			return nil, fmt.Errorf("decoding %s/%s: %w", c, r.ID, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// GetAs decodes one record into T.
func GetAs[T any](ctx context.Context, s Store, c Collection, id string) (T, error) {
	var v T
	r, err := s.Get(ctx, c, id)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(r.Data, &v); err != nil {
		return v, fmt.Errorf("decoding %s/%s: %w", c, id, err)
	}
	return v, nil
}

// PutAs encodes v and stores it under id.
func PutAs[T any](ctx context.Context, s Store, c Collection, id string, v T) error {
	if id == "" {
		return fmt.Errorf("putting into %s: id is required", c)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s/%s: %w", c, id, err)
	}
	return s.Put(ctx, c, Record{ID: id, Data: data})
}
