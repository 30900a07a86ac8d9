package query

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"MicroPaper/internal/compliance"
	"MicroPaper/internal/market"
	"MicroPaper/internal/observability"
	"MicroPaper/internal/yield"
)

const (
	defaultPage  = 1
	defaultLimit = 100
	maxLimit     = 1000
)

// Service answers read-only market queries straight from the database.
// It never writes and takes no locks, so a listing can run concurrently
// with match and settlement runs.
type Service struct {
	db      *sql.DB
	metrics *observability.Metrics
	logger  zerolog.Logger
}

func NewService(db *sql.DB, metrics *observability.Metrics, logger zerolog.Logger) *Service {
	return &Service{db: db, metrics: metrics, logger: logger}
}

// ListOfferings returns open offerings newest first, optionally filtered
// by currency and rate band, with each row's yield figures computed at
// read time.
func (s *Service) ListOfferings(ctx context.Context, f OfferingsFilter) (*OfferingsPage, error) {
	done := s.observe("list_offerings")

	page := f.Page
	if page < 1 {
		page = defaultPage
	}
	limit := f.Limit
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	where := []string{"offering_status = 'open'"}
	var args []interface{}
	if f.Currency != "" {
		args = append(args, strings.ToUpper(f.Currency))
		where = append(where, fmt.Sprintf("currency = $%d", len(args)))
	}
	if f.MinRateBps != nil {
		args = append(args, *f.MinRateBps)
		where = append(where, fmt.Sprintf("interest_rate_bps >= $%d", len(args)))
	}
	if f.MaxRateBps != nil {
		args = append(args, *f.MaxRateBps)
		where = append(where, fmt.Sprintf("interest_rate_bps <= $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int64
	countQuery := "SELECT COUNT(*) FROM notes WHERE " + cond
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, done(fmt.Errorf("count offerings: %w: %v", market.ErrUnavailable, err))
	}

	offset := (page - 1) * limit
	listArgs := append(args, limit, offset)
	listQuery := fmt.Sprintf(`
		SELECT id, isin, issuer_wallet, amount, interest_rate_bps, currency,
		       min_subscription_amount, offering_status, maturity_date, issued_at
		FROM notes
		WHERE %s
		ORDER BY issued_at DESC
		LIMIT $%d OFFSET $%d`, cond, len(args)+1, len(args)+2)

	rows, err := s.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, done(fmt.Errorf("list offerings: %w: %v", market.ErrUnavailable, err))
	}
	defer rows.Close()

	offerings := make([]Offering, 0, limit)
	for rows.Next() {
		var o Offering
		if err := rows.Scan(&o.ID, &o.ISIN, &o.IssuerWallet, &o.Amount, &o.InterestRateBps,
			&o.Currency, &o.MinSubscriptionAmount, &o.OfferingStatus, &o.MaturityDate, &o.IssuedAt); err != nil {
			return nil, done(fmt.Errorf("scan offering: %w: %v", market.ErrUnavailable, err))
		}
		s.enrichYield(&o.MaturityValueCents, &o.APY, o.Amount, o.InterestRateBps, o.IssuedAt, o.MaturityDate, "note", o.ID)
		offerings = append(offerings, o)
	}
	if err := rows.Err(); err != nil {
		return nil, done(fmt.Errorf("iterate offerings: %w: %v", market.ErrUnavailable, err))
	}

	done(nil)
	return &OfferingsPage{
		Offerings: offerings,
		Total:     total,
		Page:      page,
		Limit:     limit,
		HasMore:   int64(offset+limit) < total,
	}, nil
}

// ListHoldings returns holding lots joined with their notes, optionally
// filtered by wallet and note. Yield figures are computed on the held
// quantity, not the note's face value.
func (s *Service) ListHoldings(ctx context.Context, f HoldingsFilter) ([]HoldingView, error) {
	done := s.observe("list_holdings")

	where := []string{"1=1"}
	var args []interface{}
	if f.WalletAddress != "" {
		args = append(args, compliance.NormalizeWallet(f.WalletAddress))
		where = append(where, fmt.Sprintf("h.wallet_address = $%d", len(args)))
	}
	if f.NoteID != 0 {
		args = append(args, f.NoteID)
		where = append(where, fmt.Sprintf("h.note_id = $%d", len(args)))
	}

	query := fmt.Sprintf(`
		SELECT h.id, h.wallet_address, h.note_id, n.isin, h.quantity_held,
		       h.acquisition_price, h.acquired_at, n.interest_rate_bps,
		       n.maturity_date, n.issued_at
		FROM holdings h
		JOIN notes n ON n.id = h.note_id
		WHERE %s
		ORDER BY h.acquired_at ASC, h.id ASC`, strings.Join(where, " AND "))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, done(fmt.Errorf("list holdings: %w: %v", market.ErrUnavailable, err))
	}
	defer rows.Close()

	var holdings []HoldingView
	for rows.Next() {
		var (
			h       HoldingView
			rateBps int64
			issued  time.Time
		)
		if err := rows.Scan(&h.ID, &h.WalletAddress, &h.NoteID, &h.ISIN, &h.QuantityHeld,
			&h.AcquisitionPrice, &h.AcquiredAt, &rateBps, &h.MaturityDate, &issued); err != nil {
			return nil, done(fmt.Errorf("scan holding: %w: %v", market.ErrUnavailable, err))
		}
		s.enrichYield(&h.MaturityValueCents, &h.APY, h.QuantityHeld, rateBps, issued, h.MaturityDate, "holding", h.ID)
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, done(fmt.Errorf("iterate holdings: %w: %v", market.ErrUnavailable, err))
	}

	done(nil)
	return holdings, nil
}

// ComplianceStats counts total and verified wallets in the KYC registry.
func (s *Service) ComplianceStats(ctx context.Context) (*ComplianceStats, error) {
	done := s.observe("compliance_stats")

	var stats ComplianceStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE is_verified)
		FROM wallet_verifications`).Scan(&stats.TotalWallets, &stats.VerifiedWallets)
	if err != nil {
		return nil, done(fmt.Errorf("compliance stats: %w: %v", market.ErrUnavailable, err))
	}

	done(nil)
	return &stats, nil
}

// enrichYield fills the maturity value and APY for one row. A failed
// computation leaves both nil and logs a warning rather than failing the
// whole listing.
func (s *Service) enrichYield(maturity **int64, apy **float64, principal, rateBps int64, issuedAt, maturityAt time.Time, kind string, id int64) {
	mv, rate, err := yield.FromRate(principal, rateBps, issuedAt, maturityAt)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("kind", kind).
			Int64("id", id).
			Msg("yield computation failed")
		return
	}
	*maturity = &mv
	*apy = &rate
}

// observe starts a timed metrics span for one endpoint and returns a
// closer that records the outcome and passes the error through.
func (s *Service) observe(endpoint string) func(error) error {
	start := time.Now()
	return func(err error) error {
		if s.metrics != nil {
			s.metrics.QueryRequests.WithLabelValues(endpoint).Inc()
			s.metrics.QueryDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
			if err != nil {
				s.metrics.QueryErrors.WithLabelValues(endpoint).Inc()
			}
		}
		return err
	}
}
