package storage

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite is a namespace backed by a single sqlite bundle holding an
// artifacts(name TEXT PRIMARY KEY, data BLOB) table.
type SQLite struct {
	path string
	db   *sql.DB
}

// NewSQLite opens a bundle read-only and verifies its layout
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open model bundle %s: %w", path, err)
	}

	// Verify it's a valid bundle
	var count int
	err = db.QueryRow("SELECT count(*) FROM sqlite_master WHERE type IN ('table','view') AND name='artifacts'").Scan(&count)
	if err != nil || count == 0 {
		db.Close()
		if err == nil {
			err = errors.New("missing artifacts table")
		}
		return nil, fmt.Errorf("%s is not a valid model bundle: %w", path, err)
	}

	return &SQLite{path: path, db: db}, nil
}

func (s *SQLite) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM artifacts ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *SQLite) Exists(ctx context.Context, name string) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM artifacts WHERE name = ?", name).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *SQLite) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM artifacts WHERE name = ?", name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", name, err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) String() string {
	return "sqlite://" + s.path
}
