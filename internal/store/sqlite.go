package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       TEXT NOT NULL,
	updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
	PRIMARY KEY (collection, id)
)`

// SQLite stores documents in a local single-file database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path. Use ":memory:" for an
// ephemeral database.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating documents table: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) List(ctx context.Context, c Collection) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, data FROM documents WHERE collection = ? ORDER BY id`, string(c))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", c, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r    Record
			data string
		)
		if err := rows.Scan(&r.ID, &data); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", c, err)
		}
		r.Data = []byte(data)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", c, err)
	}
	return records, nil
}

func (s *SQLite) Get(ctx context.Context, c Collection, id string) (Record, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND id = ?`, string(c), id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, fmt.Errorf("%s/%s: %w", c, id, ErrNotFound)
		}
		return Record{}, fmt.Errorf("getting %s/%s: %w", c, id, err)
	}
	return Record{ID: id, Data: []byte(data)}, nil
}

func (s *SQLite) Put(ctx context.Context, c Collection, r Record) error {
	if r.ID == "" {
		return fmt.Errorf("putting into %s: id is required", c)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data)
		 VALUES (?, ?, ?)
		 ON CONFLICT (collection, id)
		 DO UPDATE SET data = excluded.data, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`,
		string(c), r.ID, string(r.Data))
	if err != nil {
		return fmt.Errorf("putting %s/%s: %w", c, r.ID, err)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, c Collection, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`, string(c), id)
	if err != nil {
		return fmt.Errorf("deleting %s/%s: %w", c, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting %s/%s: %w", c, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s/%s: %w", c, id, ErrNotFound)
	}
	return nil
}
