package compliance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"MicroPaper/internal/market"
)

// AuditAction enumerates the operations recorded in the audit log.
type AuditAction string

const (
	ActionCheckStatus AuditAction = "check_status"
	ActionVerify      AuditAction = "verify"
	ActionUnverify    AuditAction = "unverify"
)

// AuditEntry is one compliance audit row. Fields are typed columns, not a
// free-form JSON blob, so the log can be filtered in SQL.
type AuditEntry struct {
	WalletAddress string
	Action        AuditAction
	PerformedBy   string
	RequestID     string
	WasVerified   bool
	NowVerified   bool
	Timestamp     time.Time
}

// WalletStore is the persistence surface the service mutates.
type WalletStore interface {
	GetWallet(ctx context.Context, walletAddress string) (*market.WalletVerification, error)
	UpsertWallet(ctx context.Context, w *market.WalletVerification) error
}

// AuditStore appends to the compliance audit log.
type AuditStore interface {
	AppendAudit(ctx context.Context, e *AuditEntry) error
}

// Clock is injected so audit timestamps are deterministic in tests.
type Clock interface {
	Now() time.Time
}

// Service owns KYC wallet verification and its audit trail.
type Service struct {
	wallets WalletStore
	audit   AuditStore
	clock   Clock
	logger  zerolog.Logger
}

func NewService(wallets WalletStore, audit AuditStore, clock Clock, logger zerolog.Logger) *Service {
	return &Service{wallets: wallets, audit: audit, clock: clock, logger: logger}
}

// Status returns the verification record for a wallet, recording the lookup
// in the audit log. Unknown wallets report as unverified rather than erroring.
func (s *Service) Status(ctx context.Context, walletAddress, requestID string) (*market.WalletVerification, error) {
	walletAddress = NormalizeWallet(walletAddress)
	if err := validateWallet(walletAddress); err != nil {
		return nil, err
	}

	w, err := s.wallets.GetWallet(ctx, walletAddress)
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	if w == nil {
		w = &market.WalletVerification{WalletAddress: walletAddress}
	}

	s.recordAudit(ctx, &AuditEntry{
		WalletAddress: walletAddress,
		Action:        ActionCheckStatus,
		RequestID:     requestID,
		WasVerified:   w.IsVerified,
		NowVerified:   w.IsVerified,
		Timestamp:     s.clock.Now(),
	})

	return w, nil
}

// Verify marks a wallet as KYC-verified, optionally assigning tier and
// jurisdiction, and records who performed the action.
func (s *Service) Verify(ctx context.Context, walletAddress string, tier market.InvestorTier, jurisdiction, performedBy, requestID string) (*market.WalletVerification, error) {
	walletAddress = NormalizeWallet(walletAddress)
	if err := validateWallet(walletAddress); err != nil {
		return nil, err
	}
	if tier != "" && !tier.Valid() {
		return nil, fmt.Errorf("%w: unknown investor tier %q", market.ErrInvalidParameter, tier)
	}

	return s.setVerified(ctx, walletAddress, true, tier, jurisdiction, performedBy, requestID, ActionVerify)
}

// Unverify revokes a wallet's verification. Tier and jurisdiction are kept
// so re-verification restores the prior classification.
func (s *Service) Unverify(ctx context.Context, walletAddress, performedBy, requestID string) (*market.WalletVerification, error) {
	walletAddress = NormalizeWallet(walletAddress)
	if err := validateWallet(walletAddress); err != nil {
		return nil, err
	}

	return s.setVerified(ctx, walletAddress, false, "", "", performedBy, requestID, ActionUnverify)
}

func (s *Service) setVerified(ctx context.Context, walletAddress string, verified bool, tier market.InvestorTier, jurisdiction, performedBy, requestID string, action AuditAction) (*market.WalletVerification, error) {
	existing, err := s.wallets.GetWallet(ctx, walletAddress)
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}

	now := s.clock.Now()
	w := existing
	if w == nil {
		w = &market.WalletVerification{WalletAddress: walletAddress, CreatedAt: now}
	}

	wasVerified := w.IsVerified
	w.IsVerified = verified
	w.VerifiedBy = performedBy
	w.UpdatedAt = now
	if tier != "" {
		w.InvestorTier = tier
	}
	if jurisdiction != "" {
		w.Jurisdiction = strings.ToUpper(jurisdiction)
	}

	if err := s.wallets.UpsertWallet(ctx, w); err != nil {
		return nil, fmt.Errorf("upsert wallet: %w", err)
	}

	s.recordAudit(ctx, &AuditEntry{
		WalletAddress: walletAddress,
		Action:        action,
		PerformedBy:   performedBy,
		RequestID:     requestID,
		WasVerified:   wasVerified,
		NowVerified:   verified,
		Timestamp:     now,
	})

	s.logger.Info().
		Str("wallet", walletAddress).
		Str("action", string(action)).
		Bool("verified", verified).
		Str("request_id", requestID).
		Msg("wallet verification updated")

	return w, nil
}

// recordAudit appends an audit row. Audit failures do not fail the caller's
// operation; they are logged and the mutation stands.
func (s *Service) recordAudit(ctx context.Context, e *AuditEntry) {
	if err := s.audit.AppendAudit(ctx, e); err != nil {
		s.logger.Warn().Err(err).
			Str("wallet", e.WalletAddress).
			Str("action", string(e.Action)).
			Msg("audit append failed")
	}
}

// NormalizeWallet lower-cases a wallet address for storage and lookup.
func NormalizeWallet(walletAddress string) string {
	return strings.ToLower(strings.TrimSpace(walletAddress))
}

func validateWallet(walletAddress string) error {
	if walletAddress == "" {
		return fmt.Errorf("%w: wallet address is required", market.ErrInvalidParameter)
	}
	return nil
}
