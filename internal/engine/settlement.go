package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"MicroPaper/internal/market"
	"MicroPaper/internal/observability"
)

// SettlementEngine executes primary-market settlement: once the pending buy
// orders fully subscribe a note, every order fills in full at par and the
// offering closes permanently.
type SettlementEngine struct {
	store   Store
	clock   Clock
	locks   *NoteLocks
	metrics *observability.Metrics
	logger  zerolog.Logger
}

func NewSettlementEngine(store Store, clock Clock, locks *NoteLocks, metrics *observability.Metrics, logger zerolog.Logger) *SettlementEngine {
	return &SettlementEngine{store: store, clock: clock, locks: locks, metrics: metrics, logger: logger}
}

// Settle runs primary-market settlement for one note. Oversubscription
// still fills every pending order in full: allocation is all-or-nothing,
// never proportional.
func (e *SettlementEngine) Settle(ctx context.Context, noteID int64) (*SettleResult, error) {
	start := time.Now()
	unlock := e.locks.Lock(noteID)
	defer unlock()

	result, err := e.settleLocked(ctx, noteID)

	if e.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		e.metrics.SettlementRuns.WithLabelValues(outcome).Inc()
		e.metrics.EngineRunDuration.WithLabelValues("settle").Observe(time.Since(start).Seconds())
		if result != nil {
			e.metrics.OrdersFilled.Add(float64(result.OrdersFilled))
			e.metrics.HoldingsCreated.Add(float64(result.HoldingsCreated))
		}
	}

	return result, err
}

func (e *SettlementEngine) settleLocked(ctx context.Context, noteID int64) (res *SettleResult, err error) {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin settlement run: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	note, err := tx.GetNoteForUpdate(ctx, noteID)
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}
	if note == nil {
		return nil, fmt.Errorf("note %d: %w", noteID, market.ErrNoteNotFound)
	}
	if note.OfferingStatus == market.OfferingSettled {
		return nil, fmt.Errorf("note %d: %w", noteID, market.ErrAlreadySettled)
	}

	pending, err := tx.ListPendingOrders(ctx, noteID)
	if err != nil {
		return nil, fmt.Errorf("list pending orders: %w", err)
	}

	var buys []*market.Order
	var totalSubscribed int64
	for _, o := range pending {
		if o.Side != market.SideBuy {
			continue
		}
		buys = append(buys, o)
		totalSubscribed += o.Amount
	}

	if totalSubscribed < note.Amount {
		err = fmt.Errorf("subscribed %d of %d: %w", totalSubscribed, note.Amount, market.ErrInsufficientSubscription)
		return nil, err
	}

	settledAt := e.clock.Now().UTC()
	result := &SettleResult{
		RunID:           uuid.New(),
		Success:         true,
		NoteID:          noteID,
		TotalSubscribed: totalSubscribed,
		TotalOffering:   note.Amount,
		SettledAt:       settledAt,
	}

	for _, order := range buys {
		lot := &market.Holding{
			WalletAddress:    order.InvestorWallet,
			NoteID:           noteID,
			QuantityHeld:     order.Amount,
			AcquisitionPrice: ParUnitPrice,
			AcquiredAt:       settledAt,
		}
		if err = tx.CreateHolding(ctx, lot); err != nil {
			err = fmt.Errorf("create holding for order %d: %w", order.ID, err)
			return nil, err
		}
		result.HoldingsCreated++

		filledAt := settledAt
		order.Status = market.OrderFilled
		order.FilledAt = &filledAt
		if err = tx.UpdateOrder(ctx, order); err != nil {
			err = fmt.Errorf("fill order %d: %w", order.ID, err)
			return nil, err
		}
		result.OrdersFilled++
	}

	// One-way transition: there is no path out of settled.
	note.OfferingStatus = market.OfferingSettled
	if err = tx.UpdateNote(ctx, note); err != nil {
		err = fmt.Errorf("settle note: %w", err)
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("commit settlement run: %w", err)
		return nil, err
	}

	result.Message = fmt.Sprintf("note %d successfully settled", noteID)

	e.logger.Info().
		Int64("note_id", noteID).
		Str("run_id", result.RunID.String()).
		Int64("total_subscribed", totalSubscribed).
		Int("orders_filled", result.OrdersFilled).
		Msg("settlement run committed")

	return result, nil
}
