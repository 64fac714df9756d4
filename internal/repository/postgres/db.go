package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calegray/codedock/internal/config"
	"github.com/calegray/codedock/internal/domain"
)

// DB wraps the database connection pool
type DB struct {
	Pool *pgxpool.Pool
}

// NewDB creates a new database connection pool
func NewDB(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the database connection pool
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// Ping verifies database connectivity
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so every
// repository works unchanged inside or outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements domain.Store over Postgres.
type Store struct {
	q    querier
	pool *pgxpool.Pool // nil when the store is transaction-scoped
}

// NewStore creates a store over the connection pool.
func NewStore(db *DB) *Store {
	return &Store{q: db.Pool, pool: db.Pool}
}

func (s *Store) Sessions() domain.SessionRepository         { return &SessionRepository{q: s.q} }
func (s *Store) Participants() domain.ParticipantRepository { return &ParticipantRepository{q: s.q} }
func (s *Store) Messages() domain.MessageRepository         { return &MessageRepository{q: s.q} }
func (s *Store) Sandboxes() domain.SandboxRepository        { return &SandboxRepository{q: s.q} }
func (s *Store) Events() domain.EventRepository             { return &EventRepository{q: s.q} }
func (s *Store) Artifacts() domain.ArtifactRepository       { return &ArtifactRepository{q: s.q} }

// WithTx runs fn against a transaction-scoped store. All writes commit
// together or not at all. Nested calls reuse the enclosing transaction.
func (s *Store) WithTx(ctx context.Context, fn func(domain.Store) error) error {
	if s.pool == nil {
		return fn(s)
	}
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&Store{q: tx})
	})
	if err != nil {
		return err
	}
	return nil
}
