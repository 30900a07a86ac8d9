package query

import "time"

// Offering is one open note offering enriched with yield figures.
// MaturityValueCents and APY are nil when the note's dates are degenerate
// and the yield could not be computed.
type Offering struct {
	ID                    int64      `json:"id"`
	ISIN                  string     `json:"isin"`
	IssuerWallet          string     `json:"wallet_address"`
	Amount                int64      `json:"amount"`
	InterestRateBps       int64      `json:"interest_rate_bps"`
	Currency              string     `json:"currency"`
	MinSubscriptionAmount int64      `json:"min_subscription_amount"`
	OfferingStatus        string     `json:"offering_status"`
	MaturityDate          time.Time  `json:"maturity_date"`
	IssuedAt              time.Time  `json:"issued_at"`
	MaturityValueCents    *int64     `json:"maturity_value_cents"`
	APY                   *float64   `json:"apy"`
}

// OfferingsPage is one page of open offerings, newest first.
type OfferingsPage struct {
	Offerings []Offering `json:"offerings"`
	Total     int64      `json:"total"`
	Page      int        `json:"page"`
	Limit     int        `json:"limit"`
	HasMore   bool       `json:"has_more"`
}

// OfferingsFilter narrows the offerings listing. Zero values mean no
// filter; Page and Limit are clamped to sane bounds by the service.
type OfferingsFilter struct {
	Page       int
	Limit      int
	Currency   string
	MinRateBps *int64
	MaxRateBps *int64
}

// HoldingView is one holding lot joined with its note, enriched with the
// yield the held quantity earns at the note's rate.
type HoldingView struct {
	ID                 int64     `json:"id"`
	WalletAddress      string    `json:"wallet_address"`
	NoteID             int64     `json:"note_id"`
	ISIN               string    `json:"isin"`
	QuantityHeld       int64     `json:"quantity_held"`
	AcquisitionPrice   int64     `json:"acquisition_price"`
	AcquiredAt         time.Time `json:"acquired_at"`
	MaturityDate       time.Time `json:"maturity_date"`
	MaturityValueCents *int64    `json:"maturity_value_cents"`
	APY                *float64  `json:"apy"`
}

// HoldingsFilter narrows the holdings listing. Zero values mean no filter.
type HoldingsFilter struct {
	WalletAddress string
	NoteID        int64
}

// ComplianceStats summarizes the KYC registry.
type ComplianceStats struct {
	TotalWallets    int64 `json:"total_wallets"`
	VerifiedWallets int64 `json:"verified_wallets"`
}
