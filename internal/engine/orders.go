package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"MicroPaper/internal/compliance"
	"MicroPaper/internal/market"
)

// PlaceOrderParams is the validated-at-the-boundary input for order intake.
type PlaceOrderParams struct {
	NoteID         int64
	InvestorWallet string
	Side           market.Side
	Amount         int64
	Price          *int64
	RequestID      string
}

// OrderIntake validates and records new orders. All checks run before any
// mutation: a rejected order leaves no trace beyond the audit trail of the
// caller.
type OrderIntake struct {
	store     Store
	directory WalletDirectory
	clock     Clock
	logger    zerolog.Logger
}

func NewOrderIntake(store Store, directory WalletDirectory, clock Clock, logger zerolog.Logger) *OrderIntake {
	return &OrderIntake{store: store, directory: directory, clock: clock, logger: logger}
}

// PlaceOrder creates a PENDING order for a note. The wallet must be
// KYC-verified and pass the compliance gate; the note must be open; buy
// amounts must be a positive multiple of the minimum subscription; sell
// amounts must be backed by the wallet's current lots.
func (oi *OrderIntake) PlaceOrder(ctx context.Context, p PlaceOrderParams) (order *market.Order, err error) {
	p.InvestorWallet = compliance.NormalizeWallet(p.InvestorWallet)

	if p.InvestorWallet == "" {
		return nil, fmt.Errorf("%w: investor wallet is required", market.ErrInvalidParameter)
	}
	if !p.Side.Valid() {
		return nil, fmt.Errorf("%w: invalid order side %q", market.ErrInvalidParameter, p.Side)
	}
	if p.Amount <= 0 {
		return nil, fmt.Errorf("%w: order amount must be positive", market.ErrInvalidParameter)
	}
	if p.Price != nil && *p.Price <= 0 {
		return nil, fmt.Errorf("%w: limit price must be positive", market.ErrInvalidParameter)
	}

	wallet, err := oi.directory.GetWallet(ctx, p.InvestorWallet)
	if err != nil {
		return nil, fmt.Errorf("lookup wallet: %w", err)
	}
	if wallet == nil || !wallet.IsVerified {
		return nil, fmt.Errorf("wallet %s: %w", p.InvestorWallet, market.ErrNotVerified)
	}
	if !compliance.Eligible(string(wallet.InvestorTier), wallet.Jurisdiction) {
		return nil, fmt.Errorf("wallet %s (%s/%s): %w",
			p.InvestorWallet, wallet.InvestorTier, wallet.Jurisdiction, market.ErrNotEligible)
	}

	tx, err := oi.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin order intake: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	note, err := tx.GetNoteForUpdate(ctx, p.NoteID)
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}
	if note == nil {
		return nil, fmt.Errorf("note %d: %w", p.NoteID, market.ErrNoteNotFound)
	}
	if note.OfferingStatus != market.OfferingOpen {
		return nil, fmt.Errorf("note %d is %s: %w", p.NoteID, note.OfferingStatus, market.ErrNotOpen)
	}

	switch p.Side {
	case market.SideBuy:
		if p.Amount < note.MinSubscriptionAmount {
			return nil, fmt.Errorf("%w: amount below minimum subscription %d",
				market.ErrInvalidParameter, note.MinSubscriptionAmount)
		}
		if note.MinSubscriptionAmount > 0 && p.Amount%note.MinSubscriptionAmount != 0 {
			return nil, fmt.Errorf("%w: amount must be a multiple of %d",
				market.ErrInvalidParameter, note.MinSubscriptionAmount)
		}

	case market.SideSell:
		lots, lerr := tx.ListLots(ctx, p.InvestorWallet, p.NoteID)
		if lerr != nil {
			return nil, fmt.Errorf("list lots: %w", lerr)
		}
		var held int64
		for _, lot := range lots {
			held += lot.QuantityHeld
		}
		if held < p.Amount {
			return nil, fmt.Errorf("wallet %s holds %d of %d: %w",
				p.InvestorWallet, held, p.Amount, market.ErrInsufficientHoldings)
		}
	}

	order = &market.Order{
		NoteID:         p.NoteID,
		InvestorWallet: p.InvestorWallet,
		Side:           p.Side,
		Amount:         p.Amount,
		Price:          p.Price,
		Status:         market.OrderPending,
		CreatedAt:      oi.clock.Now().UTC(),
		RequestID:      p.RequestID,
	}
	if err = tx.CreateOrder(ctx, order); err != nil {
		err = fmt.Errorf("create order: %w", err)
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("commit order intake: %w", err)
		return nil, err
	}

	oi.logger.Info().
		Int64("order_id", order.ID).
		Int64("note_id", p.NoteID).
		Str("wallet", p.InvestorWallet).
		Str("side", string(p.Side)).
		Int64("amount", p.Amount).
		Str("request_id", p.RequestID).
		Msg("order placed")

	return order, nil
}
