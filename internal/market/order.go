package market

import "time"

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// OrderStatus tracks the order lifecycle. Filled, cancelled and rejected
// are terminal.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderFilled    OrderStatus = "filled"
	OrderCancelled OrderStatus = "cancelled"
	OrderRejected  OrderStatus = "rejected"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderFilled, OrderCancelled, OrderRejected:
		return true
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s != OrderPending
}

// Order is a buy or sell order against a single note. Amount is in integer
// minor units and must be positive. Price is the optional limit price per
// unit; nil means a market order. CreatedAt defines arrival priority for
// matching.
type Order struct {
	ID             int64
	NoteID         int64
	InvestorWallet string
	Side           Side
	Amount         int64
	Price          *int64
	Status         OrderStatus
	CreatedAt      time.Time
	FilledAt       *time.Time
	RequestID      string
}
