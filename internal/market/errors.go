package market

import "errors"

// Domain sentinels. Engines and stores wrap these with %w; the server
// boundary maps them to transport status codes.
var (
	// ErrNoteNotFound reports that the referenced note does not exist.
	ErrNoteNotFound = errors.New("note not found")

	// ErrOrderNotFound reports that the referenced order does not exist.
	ErrOrderNotFound = errors.New("order not found")

	// ErrWalletNotFound reports that no verification record exists for
	// the wallet.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrAlreadySettled reports an attempt to settle a note twice.
	// Settlement is a one-way transition.
	ErrAlreadySettled = errors.New("note already settled")

	// ErrNotOpen reports that the note offering is not open for new
	// orders.
	ErrNotOpen = errors.New("note offering not open")

	// ErrInsufficientSubscription reports that the pending buy total is
	// below the note face value, so primary settlement cannot proceed.
	ErrInsufficientSubscription = errors.New("note not fully subscribed")

	// ErrInsufficientHoldings reports that a seller's lots do not cover
	// the matched quantity; the whole run rolls back.
	ErrInsufficientHoldings = errors.New("insufficient sell-side holdings")

	// ErrNotVerified reports that the investor wallet has not passed KYC.
	ErrNotVerified = errors.New("wallet not verified")

	// ErrNotEligible reports that the tier and jurisdiction combination
	// is barred from trading.
	ErrNotEligible = errors.New("investor not eligible")

	// ErrInvalidParameter reports an input validation failure, checked
	// before any mutation begins.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrUnavailable reports that the backing store is unreachable or
	// failed mid-run; the transaction was rolled back and re-invocation
	// is safe.
	ErrUnavailable = errors.New("storage unavailable")
)
