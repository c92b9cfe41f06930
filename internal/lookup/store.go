// Package lookup is a local mirror of the address lookup service. It keeps
// regions, provinces, municipalities, streets and address details in SQLite
// and serves them over HTTP with the same PostgREST-style query surface the
// public service exposes, so the cascade can run offline or in tests.
package lookup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	_ "modernc.org/sqlite"

	"github.com/matthewbaird/addrcascade/internal/platform/logger"
)

// DefaultDSN is used when no database URL is configured.
const DefaultDSN = "file:lookup.db?_pragma=foreign_keys(1)"

// ErrUnknownEndpoint is returned for a resource the mirror does not serve.
var ErrUnknownEndpoint = errors.New("lookup: unknown endpoint")

// Store reads and writes the mirror tables.
type Store struct {
	drv *entsql.Driver
	log *logger.Logger
}

// OpenDB opens the SQLite database at dsn with foreign keys enforced.
func OpenDB(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection keeps in-memory databases alive and serialises writes.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	return db, nil
}

// NewStore wraps an open database.
func NewStore(db *sql.DB, log *logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{drv: entsql.OpenDB(dialect.SQLite, db), log: log}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.drv.Close()
}

// Migrate creates the mirror tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range ddl {
		if err := s.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			return fmt.Errorf("lookup: migrate: %w", err)
		}
	}
	return nil
}

// Find runs q against the named endpoint and returns the decoded rows,
// never nil.
func (s *Store) Find(ctx context.Context, name string, q Query) ([]any, error) {
	ep, ok := endpoints[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEndpoint, name)
	}
	return s.find(ctx, ep, q)
}

func (s *Store) find(ctx context.Context, ep endpoint, q Query) ([]any, error) {
	query, args := q.selector(ep).Query()

	var rows entsql.Rows
	if err := s.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("lookup: query %s: %w", ep.name, err)
	}
	defer rows.Close()

	out := []any{}
	for rows.Next() {
		v, err := ep.scan(&rows)
		if err != nil {
			return nil, fmt.Errorf("lookup: scan %s: %w", ep.name, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lookup: rows %s: %w", ep.name, err)
	}
	s.log.Debug("lookup: query", "endpoint", ep.name, "rows", len(out))
	return out, nil
}

// count returns the number of rows in table.
func (s *Store) count(ctx context.Context, table string) (int, error) {
	query, args := entsql.Dialect(dialect.SQLite).
		Select(entsql.Count("*")).
		From(entsql.Table(table)).
		Query()

	var rows entsql.Rows
	if err := s.drv.Query(ctx, query, args, &rows); err != nil {
		return 0, err
	}
	defer rows.Close()

	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, err
		}
	}
	return n, rows.Err()
}
