package issuance

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"MicroPaper/internal/compliance"
	"MicroPaper/internal/market"
)

// NoteStore persists issued notes. NoteByISIN returns nil, nil when the
// ISIN is unassigned.
type NoteStore interface {
	CreateNote(ctx context.Context, note *market.Note) error
	NoteByISIN(ctx context.Context, isin string) (*market.Note, error)
}

// Clock is injected for deterministic issued_at timestamps in tests.
type Clock interface {
	Now() time.Time
}

// IssueParams describes a new note offering. Amount and
// MinSubscriptionAmount are integer minor units; InterestRateBps is the
// simple-interest rate on a 360-day year.
type IssueParams struct {
	IssuerWallet          string
	Amount                int64
	InterestRateBps       int64
	Currency              market.Currency
	MinSubscriptionAmount int64
	MaturityDate          time.Time
}

// Service mints notes on behalf of the custodian: it validates the
// offering terms, assigns a fresh ISIN and opens the offering.
type Service struct {
	store  NoteStore
	clock  Clock
	logger zerolog.Logger
}

func NewService(store NoteStore, clock Clock, logger zerolog.Logger) *Service {
	return &Service{store: store, clock: clock, logger: logger}
}

// isinAttempts bounds the retry loop on ISIN collisions. With a 100000
// value space and a small note population, one attempt nearly always
// suffices.
const isinAttempts = 5

// Issue creates a new open note offering and returns it with its assigned
// ISIN.
func (s *Service) Issue(ctx context.Context, p IssueParams) (*market.Note, error) {
	p.IssuerWallet = compliance.NormalizeWallet(p.IssuerWallet)

	if p.IssuerWallet == "" {
		return nil, fmt.Errorf("%w: issuer wallet is required", market.ErrInvalidParameter)
	}
	if p.Amount <= 0 {
		return nil, fmt.Errorf("%w: face value must be positive", market.ErrInvalidParameter)
	}
	if p.InterestRateBps < 0 {
		return nil, fmt.Errorf("%w: interest rate cannot be negative", market.ErrInvalidParameter)
	}
	if p.Currency == "" {
		p.Currency = market.CurrencyUSD
	}
	if !p.Currency.Valid() {
		return nil, fmt.Errorf("%w: unsupported currency %q", market.ErrInvalidParameter, p.Currency)
	}
	if p.MinSubscriptionAmount <= 0 {
		return nil, fmt.Errorf("%w: minimum subscription must be positive", market.ErrInvalidParameter)
	}
	if p.MinSubscriptionAmount > p.Amount {
		return nil, fmt.Errorf("%w: minimum subscription exceeds face value", market.ErrInvalidParameter)
	}

	issuedAt := s.clock.Now().UTC()
	if !p.MaturityDate.After(issuedAt) {
		return nil, fmt.Errorf("%w: maturity date must be in the future", market.ErrInvalidParameter)
	}

	isin, err := s.freshISIN(ctx)
	if err != nil {
		return nil, err
	}

	note := &market.Note{
		ISIN:                  isin,
		IssuerWallet:          p.IssuerWallet,
		Amount:                p.Amount,
		InterestRateBps:       p.InterestRateBps,
		Currency:              p.Currency,
		MinSubscriptionAmount: p.MinSubscriptionAmount,
		OfferingStatus:        market.OfferingOpen,
		MaturityDate:          p.MaturityDate.UTC(),
		IssuedAt:              issuedAt,
	}
	if err := s.store.CreateNote(ctx, note); err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}

	s.logger.Info().
		Int64("note_id", note.ID).
		Str("isin", note.ISIN).
		Str("issuer", note.IssuerWallet).
		Int64("amount", note.Amount).
		Int64("rate_bps", note.InterestRateBps).
		Msg("note issued")

	return note, nil
}

func (s *Service) freshISIN(ctx context.Context) (string, error) {
	for i := 0; i < isinAttempts; i++ {
		isin := GenerateISIN()
		existing, err := s.store.NoteByISIN(ctx, isin)
		if err != nil {
			return "", fmt.Errorf("check isin: %w", err)
		}
		if existing == nil {
			return isin, nil
		}
	}
	return "", fmt.Errorf("%w: could not assign a unique isin", market.ErrUnavailable)
}
