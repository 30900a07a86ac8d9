package engine_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"MicroPaper/internal/engine"
	"MicroPaper/internal/market"
)

// memStore is an in-memory engine.Store with real transaction semantics:
// each Tx works on a deep copy of the store state, Commit swaps the copy
// in, Rollback discards it. This lets the tests assert that failed runs
// leave the committed state untouched.
type memStore struct {
	mu sync.Mutex

	notes    map[int64]*market.Note
	orders   map[int64]*market.Order
	trades   []*market.Trade
	holdings map[int64]*market.Holding
	wallets  map[string]*market.WalletVerification

	nextOrderID   int64
	nextTradeID   int64
	nextHoldingID int64
}

func newMemStore() *memStore {
	return &memStore{
		notes:    make(map[int64]*market.Note),
		orders:   make(map[int64]*market.Order),
		holdings: make(map[int64]*market.Holding),
		wallets:  make(map[string]*market.WalletVerification),
	}
}

func (s *memStore) Begin(ctx context.Context) (engine.Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &memTx{store: s, staged: s.snapshotLocked()}, nil
}

// GetWallet serves order intake's KYC lookup from committed state.
func (s *memStore) GetWallet(ctx context.Context, walletAddress string) (*market.WalletVerification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[walletAddress]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

type stateSnapshot struct {
	notes    map[int64]*market.Note
	orders   map[int64]*market.Order
	trades   []*market.Trade
	holdings map[int64]*market.Holding

	nextOrderID   int64
	nextTradeID   int64
	nextHoldingID int64
}

func (s *memStore) snapshotLocked() *stateSnapshot {
	snap := &stateSnapshot{
		notes:         make(map[int64]*market.Note, len(s.notes)),
		orders:        make(map[int64]*market.Order, len(s.orders)),
		trades:        make([]*market.Trade, 0, len(s.trades)),
		holdings:      make(map[int64]*market.Holding, len(s.holdings)),
		nextOrderID:   s.nextOrderID,
		nextTradeID:   s.nextTradeID,
		nextHoldingID: s.nextHoldingID,
	}
	for id, n := range s.notes {
		cp := *n
		snap.notes[id] = &cp
	}
	for id, o := range s.orders {
		cp := *o
		snap.orders[id] = &cp
	}
	for _, tr := range s.trades {
		cp := *tr
		snap.trades = append(snap.trades, &cp)
	}
	for id, h := range s.holdings {
		cp := *h
		snap.holdings[id] = &cp
	}
	return snap
}

type memTx struct {
	store  *memStore
	staged *stateSnapshot
	done   bool
}

func (tx *memTx) GetNoteForUpdate(ctx context.Context, noteID int64) (*market.Note, error) {
	n, ok := tx.staged.notes[noteID]
	if !ok {
		return nil, nil
	}
	cp := *n
	return &cp, nil
}

func (tx *memTx) UpdateNote(ctx context.Context, note *market.Note) error {
	cp := *note
	tx.staged.notes[note.ID] = &cp
	return nil
}

func (tx *memTx) ListPendingOrders(ctx context.Context, noteID int64) ([]*market.Order, error) {
	var out []*market.Order
	for _, o := range tx.staged.orders {
		if o.NoteID != noteID || o.Status != market.OrderPending {
			continue
		}
		cp := *o
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (tx *memTx) CreateOrder(ctx context.Context, order *market.Order) error {
	tx.staged.nextOrderID++
	order.ID = tx.staged.nextOrderID
	cp := *order
	tx.staged.orders[order.ID] = &cp
	return nil
}

func (tx *memTx) UpdateOrder(ctx context.Context, order *market.Order) error {
	cp := *order
	tx.staged.orders[order.ID] = &cp
	return nil
}

func (tx *memTx) TradedQuantity(ctx context.Context, orderID int64) (int64, error) {
	var total int64
	for _, tr := range tx.staged.trades {
		if tr.BuyOrderID != nil && *tr.BuyOrderID == orderID {
			total += tr.Quantity
		}
		if tr.SellOrderID != nil && *tr.SellOrderID == orderID {
			total += tr.Quantity
		}
	}
	return total, nil
}

func (tx *memTx) CreateTrade(ctx context.Context, trade *market.Trade) error {
	tx.staged.nextTradeID++
	trade.ID = tx.staged.nextTradeID
	cp := *trade
	tx.staged.trades = append(tx.staged.trades, &cp)
	return nil
}

func (tx *memTx) ListLots(ctx context.Context, walletAddress string, noteID int64) ([]*market.Holding, error) {
	var out []*market.Holding
	for _, h := range tx.staged.holdings {
		if h.WalletAddress != walletAddress || h.NoteID != noteID {
			continue
		}
		cp := *h
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AcquiredAt.Equal(out[j].AcquiredAt) {
			return out[i].AcquiredAt.Before(out[j].AcquiredAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (tx *memTx) CreateHolding(ctx context.Context, lot *market.Holding) error {
	tx.staged.nextHoldingID++
	lot.ID = tx.staged.nextHoldingID
	cp := *lot
	tx.staged.holdings[lot.ID] = &cp
	return nil
}

func (tx *memTx) UpdateHolding(ctx context.Context, lot *market.Holding) error {
	cp := *lot
	tx.staged.holdings[lot.ID] = &cp
	return nil
}

func (tx *memTx) Commit() error {
	if tx.done {
		return nil
	}
	tx.done = true

	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = tx.staged.notes
	s.orders = tx.staged.orders
	s.trades = tx.staged.trades
	s.holdings = tx.staged.holdings
	s.nextOrderID = tx.staged.nextOrderID
	s.nextTradeID = tx.staged.nextTradeID
	s.nextHoldingID = tx.staged.nextHoldingID
	return nil
}

func (tx *memTx) Rollback() error {
	tx.done = true
	return nil
}

// ============================================================================
// Fixture helpers
// ============================================================================

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func (s *memStore) addNote(n market.Note) *market.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := n
	s.notes[cp.ID] = &cp
	return &cp
}

func (s *memStore) addOrder(o market.Order) *market.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == 0 {
		s.nextOrderID++
		o.ID = s.nextOrderID
	} else if o.ID > s.nextOrderID {
		s.nextOrderID = o.ID
	}
	cp := o
	s.orders[cp.ID] = &cp
	return &cp
}

func (s *memStore) addHolding(h market.Holding) *market.Holding {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h.ID == 0 {
		s.nextHoldingID++
		h.ID = s.nextHoldingID
	} else if h.ID > s.nextHoldingID {
		s.nextHoldingID = h.ID
	}
	cp := h
	s.holdings[cp.ID] = &cp
	return &cp
}

func (s *memStore) addWallet(w market.WalletVerification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := w
	s.wallets[cp.WalletAddress] = &cp
}

func (s *memStore) order(id int64) market.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.orders[id]
}

func (s *memStore) note(id int64) market.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.notes[id]
}

func (s *memStore) lots(wallet string, noteID int64) []market.Holding {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []market.Holding
	for _, h := range s.holdings {
		if h.WalletAddress == wallet && h.NoteID == noteID {
			out = append(out, *h)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AcquiredAt.Equal(out[j].AcquiredAt) {
			return out[i].AcquiredAt.Before(out[j].AcquiredAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *memStore) tradeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.trades)
}

func int64Ptr(v int64) *int64 { return &v }
