package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store wraps database access helpers.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store backed by a pgx pool.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate creates the weighbridge schema if it does not exist yet. Every
// statement is idempotent so it is safe to run on each start.
func (s *Store) Migrate(ctx context.Context) error {
	batch := &pgx.Batch{}
	for _, stmt := range schemaStatements {
		batch.Queue(stmt)
	}

	res := s.pool.SendBatch(ctx, batch)
	defer res.Close()

	for range schemaStatements {
		if _, err := res.Exec(); err != nil {
			return err
		}
	}
	return nil
}
