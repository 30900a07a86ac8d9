package engine

import (
	"context"
	"time"

	"MicroPaper/internal/market"
)

// Store opens explicit transaction scopes for engine runs. There is no
// ambient session: every run owns exactly one Tx and releases it on every
// exit path.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is one atomic scope over the market state. List methods return rows in
// the orderings the engines depend on: pending orders by created_at
// ascending (arrival priority), lots by acquired_at ascending (FIFO).
// Lookups return nil, nil when the row is absent.
type Tx interface {
	// GetNoteForUpdate loads a note and takes the row lock that serializes
	// concurrent match/settle runs on the same note.
	GetNoteForUpdate(ctx context.Context, noteID int64) (*market.Note, error)
	UpdateNote(ctx context.Context, note *market.Note) error

	ListPendingOrders(ctx context.Context, noteID int64) ([]*market.Order, error)
	CreateOrder(ctx context.Context, order *market.Order) error
	UpdateOrder(ctx context.Context, order *market.Order) error

	// TradedQuantity is the all-time sum of trade quantities referencing
	// the order on either side. An order is FILLED exactly when this
	// reaches its amount.
	TradedQuantity(ctx context.Context, orderID int64) (int64, error)
	CreateTrade(ctx context.Context, trade *market.Trade) error

	ListLots(ctx context.Context, walletAddress string, noteID int64) ([]*market.Holding, error)
	CreateHolding(ctx context.Context, lot *market.Holding) error
	UpdateHolding(ctx context.Context, lot *market.Holding) error

	Commit() error
	Rollback() error
}

// WalletDirectory is the read-only KYC lookup used by order intake.
type WalletDirectory interface {
	GetWallet(ctx context.Context, walletAddress string) (*market.WalletVerification, error)
}

// Clock is injected so filled_at and trade timestamps are deterministic in
// tests.
type Clock interface {
	Now() time.Time
}

// WallClock is the production Clock.
type WallClock struct{}

func (WallClock) Now() time.Time { return time.Now().UTC() }
