package persistence

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"MicroPaper/internal/engine"
	"MicroPaper/internal/market"
)

// Store is the Postgres persistence layer. It backs the engines through
// explicit transactions and serves the compliance, issuance and risk
// services directly. Row locks (SELECT ... FOR UPDATE on the note) are the
// cross-process complement to the in-process per-note locks.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// DB exposes the underlying handle for read-only services.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Begin opens one engine transaction.
func (s *Store) Begin(ctx context.Context) (engine.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageErr("begin tx", err)
	}
	return &marketTx{tx: tx}, nil
}

// storageErr wraps a driver failure so callers can match ErrUnavailable
// without losing the underlying cause in the message.
func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, market.ErrUnavailable, err)
}
