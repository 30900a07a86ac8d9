package market

import "time"

// Currency is the denomination of a note. Closed set, validated at the
// store boundary.
type Currency string

const (
	CurrencyUSD  Currency = "USD"
	CurrencyUSDC Currency = "USDC"
)

func (c Currency) Valid() bool {
	switch c {
	case CurrencyUSD, CurrencyUSDC:
		return true
	}
	return false
}

// OfferingStatus is the lifecycle state of a note offering.
// Settled is terminal: there is no transition out of it.
type OfferingStatus string

const (
	OfferingOpen    OfferingStatus = "open"
	OfferingClosed  OfferingStatus = "closed"
	OfferingSettled OfferingStatus = "settled"
)

func (s OfferingStatus) Valid() bool {
	switch s {
	case OfferingOpen, OfferingClosed, OfferingSettled:
		return true
	}
	return false
}

// Note is a tokenized short-term debt note. Amount is the face value in
// integer minor units; InterestRateBps is the simple-interest rate in
// basis points on a 360-day convention.
type Note struct {
	ID                    int64
	ISIN                  string
	IssuerWallet          string
	Amount                int64
	InterestRateBps       int64
	Currency              Currency
	MinSubscriptionAmount int64
	OfferingStatus        OfferingStatus
	MaturityDate          time.Time
	IssuedAt              time.Time
}
