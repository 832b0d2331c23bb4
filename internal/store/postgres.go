package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores documents in the documents table as jsonb.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) List(ctx context.Context, c Collection) ([]Record, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, data FROM documents WHERE collection = $1 ORDER BY id`, string(c))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", c, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Data); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", c, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", c, err)
	}
	return records, nil
}

func (p *Postgres) Get(ctx context.Context, c Collection, id string) (Record, error) {
	r := Record{ID: id}
	err := p.pool.QueryRow(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2`, string(c), id).Scan(&r.Data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, fmt.Errorf("%s/%s: %w", c, id, ErrNotFound)
		}
		return Record{}, fmt.Errorf("getting %s/%s: %w", c, id, err)
	}
	return r, nil
}

func (p *Postgres) Put(ctx context.Context, c Collection, r Record) error {
	if r.ID == "" {
		return fmt.Errorf("putting into %s: id is required", c)
	}
	_, err := p.pool.Exec(ctx,
		`INSERT INTO documents (collection, id, data)
		 VALUES ($1, $2, $3::jsonb)
		 ON CONFLICT (collection, id)
		 DO UPDATE SET data = $3::jsonb, updated_at = NOW()`,
		string(c), r.ID, string(r.Data))
	if err != nil {
		return fmt.Errorf("putting %s/%s: %w", c, r.ID, err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, c Collection, id string) error {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`, string(c), id)
	if err != nil {
		return fmt.Errorf("deleting %s/%s: %w", c, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s/%s: %w", c, id, ErrNotFound)
	}
	return nil
}
