package market

import "time"

// Holding is one acquisition lot for a (wallet, note) pair. Lots form a
// FIFO queue by AcquiredAt: reductions consume the oldest lot first.
// QuantityHeld is in integer minor units and is never negative.
type Holding struct {
	ID               int64
	WalletAddress    string
	NoteID           int64
	QuantityHeld     int64
	AcquisitionPrice int64
	AcquiredAt       time.Time
}
