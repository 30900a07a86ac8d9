package persistence

import (
	"context"

	"MicroPaper/internal/market"
)

// CreateNote inserts a freshly issued note and fills in its id.
func (s *Store) CreateNote(ctx context.Context, note *market.Note) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO notes (isin, issuer_wallet, amount, interest_rate_bps, currency,
		                   min_subscription_amount, offering_status, maturity_date, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		note.ISIN, note.IssuerWallet, note.Amount, note.InterestRateBps, note.Currency,
		note.MinSubscriptionAmount, note.OfferingStatus, note.MaturityDate, note.IssuedAt,
	).Scan(&note.ID)
	if err != nil {
		return storageErr("create note", err)
	}
	return nil
}

// GetNote loads a note without locking. Returns nil, nil when absent.
func (s *Store) GetNote(ctx context.Context, noteID int64) (*market.Note, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE id = $1`, noteID)
	return scanNote(row)
}

// NoteByISIN loads a note by its ISIN. Returns nil, nil when unassigned.
func (s *Store) NoteByISIN(ctx context.Context, isin string) (*market.Note, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE isin = $1`, isin)
	return scanNote(row)
}
