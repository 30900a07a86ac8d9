package market

import "time"

// Trade records one execution between a buy and a sell order on a note.
// Quantity and Price are integer minor units. The originating order ids may
// be nil when an order has since been deleted.
type Trade struct {
	ID           int64
	NoteID       int64
	BuyerWallet  string
	SellerWallet string
	Quantity     int64
	Price        int64
	BuyOrderID   *int64
	SellOrderID  *int64
	ExecutedAt   time.Time
}
