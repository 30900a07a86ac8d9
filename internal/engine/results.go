package engine

import (
	"time"

	"github.com/google/uuid"
)

// ParUnitPrice is the nominal per-unit price in minor units ($100.00).
// It is the acquisition price for primary-market settlement fills and the
// fallback trade price when both matched orders are market orders.
const ParUnitPrice int64 = 10_000

// TradeSummary reports one executed trade in a match result.
type TradeSummary struct {
	TradeID      int64     `json:"trade_id"`
	NoteID       int64     `json:"note_id"`
	BuyerWallet  string    `json:"buyer_wallet"`
	SellerWallet string    `json:"seller_wallet"`
	Quantity     int64     `json:"quantity"`
	Price        int64     `json:"price"`
	BuyOrderID   int64     `json:"buy_order_id"`
	SellOrderID  int64     `json:"sell_order_id"`
	ExecutedAt   time.Time `json:"executed_at"`
}

// MatchResult is the outcome of one matching run. Zero trades is a valid
// success: it means no crossing orders existed.
type MatchResult struct {
	RunID          uuid.UUID      `json:"run_id"`
	Success        bool           `json:"success"`
	NoteID         int64          `json:"note_id"`
	TradesExecuted int            `json:"trades_executed"`
	OrdersFilled   int            `json:"orders_filled"`
	QuantityTraded int64          `json:"quantity_traded"`
	Trades         []TradeSummary `json:"trades"`
	ExecutedAt     time.Time      `json:"executed_at"`
}

// SettleResult is the outcome of one primary-market settlement run.
type SettleResult struct {
	RunID           uuid.UUID `json:"run_id"`
	Success         bool      `json:"success"`
	Message         string    `json:"message"`
	NoteID          int64     `json:"note_id"`
	TotalSubscribed int64     `json:"total_subscribed"`
	TotalOffering   int64     `json:"total_offering"`
	OrdersFilled    int       `json:"orders_filled"`
	HoldingsCreated int       `json:"holdings_created"`
	SettledAt       time.Time `json:"settled_at"`
}
