package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"MicroPaper/internal/market"
	"MicroPaper/internal/observability"
)

// MatchingEngine converts pending buy/sell orders on one note into trades,
// consuming seller lots FIFO and crediting buyers, inside a single
// transaction under the per-note writer lock.
type MatchingEngine struct {
	store   Store
	clock   Clock
	locks   *NoteLocks
	metrics *observability.Metrics
	logger  zerolog.Logger
}

func NewMatchingEngine(store Store, clock Clock, locks *NoteLocks, metrics *observability.Metrics, logger zerolog.Logger) *MatchingEngine {
	return &MatchingEngine{store: store, clock: clock, locks: locks, metrics: metrics, logger: logger}
}

// orderState carries an order plus its derived remaining amount. Remaining
// is never stored: it is amount minus all-time traded quantity, so a
// crashed or re-invoked run recomputes it from current state.
type orderState struct {
	order     *market.Order
	remaining int64
	traded    int64
}

// MatchNote runs one matching pass for a note.
//
// Priority rules: buys are worked in arrival order (created_at); for each
// buy, candidate sells are taken cheapest-first with arrival order breaking
// price ties. A buy and a sell cross when either side is a market order or
// the buy limit is at or above the sell limit. The trade prints at the sell
// limit when present, else the buy limit, else par.
func (e *MatchingEngine) MatchNote(ctx context.Context, noteID int64) (*MatchResult, error) {
	start := time.Now()
	unlock := e.locks.Lock(noteID)
	defer unlock()

	result, err := e.matchLocked(ctx, noteID)

	if e.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		e.metrics.MatchRuns.WithLabelValues(outcome).Inc()
		e.metrics.EngineRunDuration.WithLabelValues("match").Observe(time.Since(start).Seconds())
		if result != nil {
			e.metrics.TradesExecuted.Add(float64(result.TradesExecuted))
			e.metrics.QuantityTraded.Add(float64(result.QuantityTraded))
		}
	}

	return result, err
}

func (e *MatchingEngine) matchLocked(ctx context.Context, noteID int64) (res *MatchResult, err error) {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin match run: %w", err)
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

	pending, err := tx.ListPendingOrders(ctx, noteID)
	if err != nil {
		return nil, fmt.Errorf("list pending orders: %w", err)
	}

	// Partition into buys and sells, preserving arrival order, with each
	// order's remaining amount derived from its all-time traded quantity.
	var buys, sells []*orderState
	for _, o := range pending {
		traded, terr := tx.TradedQuantity(ctx, o.ID)
		if terr != nil {
			err = fmt.Errorf("traded quantity for order %d: %w", o.ID, terr)
			return nil, err
		}
		st := &orderState{order: o, remaining: o.Amount - traded, traded: traded}
		switch o.Side {
		case market.SideBuy:
			buys = append(buys, st)
		case market.SideSell:
			sells = append(sells, st)
		}
	}

	runTS := e.clock.Now().UTC()
	result := &MatchResult{
		RunID:      uuid.New(),
		Success:    true,
		NoteID:     noteID,
		ExecutedAt: runTS,
	}

	for _, buy := range buys {
		if buy.remaining <= 0 {
			continue
		}

		candidates := eligibleSells(buy.order, sells)
		for _, sell := range candidates {
			if buy.remaining == 0 {
				break
			}
			if sell.remaining <= 0 {
				continue
			}

			qty := min64(buy.remaining, sell.remaining)
			price := tradePrice(buy.order, sell.order)

			trade := &market.Trade{
				NoteID:       noteID,
				BuyerWallet:  buy.order.InvestorWallet,
				SellerWallet: sell.order.InvestorWallet,
				Quantity:     qty,
				Price:        price,
				BuyOrderID:   &buy.order.ID,
				SellOrderID:  &sell.order.ID,
				ExecutedAt:   runTS,
			}
			if err = tx.CreateTrade(ctx, trade); err != nil {
				err = fmt.Errorf("create trade: %w", err)
				return nil, err
			}

			if err = e.debitSellerLots(ctx, tx, sell.order.InvestorWallet, noteID, qty); err != nil {
				return nil, err
			}
			if err = e.creditBuyerLot(ctx, tx, buy.order.InvestorWallet, noteID, qty, price, runTS); err != nil {
				return nil, err
			}

			buy.remaining -= qty
			buy.traded += qty
			sell.remaining -= qty
			sell.traded += qty

			result.Trades = append(result.Trades, TradeSummary{
				TradeID:      trade.ID,
				NoteID:       noteID,
				BuyerWallet:  trade.BuyerWallet,
				SellerWallet: trade.SellerWallet,
				Quantity:     qty,
				Price:        price,
				BuyOrderID:   buy.order.ID,
				SellOrderID:  sell.order.ID,
				ExecutedAt:   runTS,
			})
			result.TradesExecuted++
			result.QuantityTraded += qty
		}
	}

	// An order is FILLED exactly when its cumulative traded quantity equals
	// its original amount; otherwise it stays PENDING with its remaining
	// amount implied.
	for _, st := range append(buys, sells...) {
		if st.traded != st.order.Amount {
			continue
		}
		filledAt := runTS
		st.order.Status = market.OrderFilled
		st.order.FilledAt = &filledAt
		if err = tx.UpdateOrder(ctx, st.order); err != nil {
			err = fmt.Errorf("fill order %d: %w", st.order.ID, err)
			return nil, err
		}
		result.OrdersFilled++
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("commit match run: %w", err)
		return nil, err
	}

	e.logger.Info().
		Int64("note_id", noteID).
		Str("run_id", result.RunID.String()).
		Int("trades", result.TradesExecuted).
		Int("orders_filled", result.OrdersFilled).
		Int64("quantity", result.QuantityTraded).
		Msg("match run committed")

	return result, nil
}

// eligibleSells filters sells that cross with the buy and orders them by
// ascending limit price (market orders sort as zero) with earlier arrival
// breaking ties.
func eligibleSells(buy *market.Order, sells []*orderState) []*orderState {
	candidates := make([]*orderState, 0, len(sells))
	for _, s := range sells {
		if s.remaining <= 0 {
			continue
		}
		if crosses(buy, s.order) {
			candidates = append(candidates, s)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		pi, pj := sortPrice(candidates[i].order), sortPrice(candidates[j].order)
		if pi != pj {
			return pi < pj
		}
		if !candidates[i].order.CreatedAt.Equal(candidates[j].order.CreatedAt) {
			return candidates[i].order.CreatedAt.Before(candidates[j].order.CreatedAt)
		}
		return candidates[i].order.ID < candidates[j].order.ID
	})

	return candidates
}

func crosses(buy, sell *market.Order) bool {
	if buy.Price == nil || sell.Price == nil {
		return true
	}
	return *buy.Price >= *sell.Price
}

func sortPrice(o *market.Order) int64 {
	if o.Price == nil {
		return 0
	}
	return *o.Price
}

func tradePrice(buy, sell *market.Order) int64 {
	if sell.Price != nil {
		return *sell.Price
	}
	if buy.Price != nil {
		return *buy.Price
	}
	return ParUnitPrice
}

// debitSellerLots consumes the seller's lots oldest-first until qty is
// covered, skipping exhausted lots. Lots never go negative: running out of
// quantity mid-trade is a conflict that rolls back the whole run.
func (e *MatchingEngine) debitSellerLots(ctx context.Context, tx Tx, wallet string, noteID, qty int64) error {
	lots, err := tx.ListLots(ctx, wallet, noteID)
	if err != nil {
		return fmt.Errorf("list seller lots: %w", err)
	}

	need := qty
	for _, lot := range lots {
		if need == 0 {
			break
		}
		if lot.QuantityHeld <= 0 {
			continue
		}
		take := min64(lot.QuantityHeld, need)
		lot.QuantityHeld -= take
		if err := tx.UpdateHolding(ctx, lot); err != nil {
			return fmt.Errorf("update seller lot %d: %w", lot.ID, err)
		}
		need -= take
	}

	if need > 0 {
		return fmt.Errorf("seller %s short %d on note %d: %w", wallet, need, noteID, market.ErrInsufficientHoldings)
	}
	return nil
}

// creditBuyerLot tops up the buyer's most recently acquired lot, or opens a
// new lot at the trade price when the buyer has none.
func (e *MatchingEngine) creditBuyerLot(ctx context.Context, tx Tx, wallet string, noteID, qty, price int64, runTS time.Time) error {
	lots, err := tx.ListLots(ctx, wallet, noteID)
	if err != nil {
		return fmt.Errorf("list buyer lots: %w", err)
	}

	if len(lots) > 0 {
		lot := lots[len(lots)-1]
		lot.QuantityHeld += qty
		if err := tx.UpdateHolding(ctx, lot); err != nil {
			return fmt.Errorf("update buyer lot %d: %w", lot.ID, err)
		}
		return nil
	}

	lot := &market.Holding{
		WalletAddress:    wallet,
		NoteID:           noteID,
		QuantityHeld:     qty,
		AcquisitionPrice: price,
		AcquiredAt:       runTS,
	}
	if err := tx.CreateHolding(ctx, lot); err != nil {
		return fmt.Errorf("create buyer lot: %w", err)
	}
	return nil
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
