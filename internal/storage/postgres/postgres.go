// Package postgres provides a PostgreSQL implementation of the storage
// interface using pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flowcanvas/flowcanvas/internal/storage"
)

// PGStore implements storage.Storage using PostgreSQL via pgx.
type PGStore struct {
	db *pgxpool.Pool
}

var _ storage.Storage = (*PGStore)(nil)

// New creates a new PGStore backed by the given pgx connection pool.
func New(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// Open connects to url and returns a store owning the pool.
func Open(ctx context.Context, url string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return New(pool), nil
}

// Init creates the schema if it does not exist.
func (s *PGStore) Init(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// DropSchema removes every flowcanvas table. Used by tests.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS connections, components, workflows, documents CASCADE;`)
	return err
}

// Close releases the pool.
func (s *PGStore) Close() error {
	s.db.Close()
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
