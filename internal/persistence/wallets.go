package persistence

import (
	"context"
	"database/sql"
	"errors"

	"MicroPaper/internal/compliance"
	"MicroPaper/internal/market"
)

// GetWallet loads one verification record. Returns nil, nil when the
// wallet has never been seen.
func (s *Store) GetWallet(ctx context.Context, walletAddress string) (*market.WalletVerification, error) {
	var (
		w          market.WalletVerification
		tier       sql.NullString
		juris      sql.NullString
		verifiedBy sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT wallet_address, is_verified, investor_tier, jurisdiction, verified_by,
		       created_at, updated_at
		FROM wallet_verifications
		WHERE wallet_address = $1`, walletAddress,
	).Scan(&w.WalletAddress, &w.IsVerified, &tier, &juris, &verifiedBy, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get wallet", err)
	}
	w.InvestorTier = market.InvestorTier(tier.String)
	w.Jurisdiction = juris.String
	w.VerifiedBy = verifiedBy.String
	return &w, nil
}

// UpsertWallet writes a verification record, inserting on first sight.
func (s *Store) UpsertWallet(ctx context.Context, w *market.WalletVerification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wallet_verifications
			(wallet_address, is_verified, investor_tier, jurisdiction, verified_by, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, $7)
		ON CONFLICT (wallet_address) DO UPDATE SET
			is_verified   = EXCLUDED.is_verified,
			investor_tier = EXCLUDED.investor_tier,
			jurisdiction  = EXCLUDED.jurisdiction,
			verified_by   = EXCLUDED.verified_by,
			updated_at    = EXCLUDED.updated_at`,
		w.WalletAddress, w.IsVerified, string(w.InvestorTier), w.Jurisdiction,
		w.VerifiedBy, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		return storageErr("upsert wallet", err)
	}
	return nil
}

// AppendAudit records one compliance action.
func (s *Store) AppendAudit(ctx context.Context, e *compliance.AuditEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO compliance_audit_logs
			(wallet_address, action, performed_by, request_id, was_verified, now_verified, timestamp)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7)`,
		e.WalletAddress, e.Action, e.PerformedBy, e.RequestID,
		e.WasVerified, e.NowVerified, e.Timestamp)
	if err != nil {
		return storageErr("append audit", err)
	}
	return nil
}
