package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"MicroPaper/internal/engine"
	"MicroPaper/internal/market"
)

func newSettler(store *memStore) *engine.SettlementEngine {
	return engine.NewSettlementEngine(store, fixedClock{testTime}, engine.NewNoteLocks(), nil, zerolog.Nop())
}

func offeringNote(id int64) market.Note {
	n := settledNote(id)
	n.OfferingStatus = market.OfferingOpen
	return n
}

// ============================================================================
// Test: Settle
// ============================================================================

func TestSettle_FullSubscriptionFillsAllOrders(t *testing.T) {
	store := newMemStore()
	store.addNote(offeringNote(1))
	a := store.addOrder(market.Order{NoteID: 1, InvestorWallet: "0xalice", Side: market.SideBuy, Amount: 60_000, Status: market.OrderPending, CreatedAt: testTime.Add(-2 * time.Minute)})
	b := store.addOrder(market.Order{NoteID: 1, InvestorWallet: "0xbob", Side: market.SideBuy, Amount: 40_000, Status: market.OrderPending, CreatedAt: testTime.Add(-time.Minute)})

	res, err := newSettler(store).Settle(context.Background(), 1)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}

	if !res.Success || res.TotalSubscribed != 100_000 || res.TotalOffering != 100_000 {
		t.Errorf("result: got %+v, want success with 100000/100000", res)
	}
	if res.OrdersFilled != 2 || res.HoldingsCreated != 2 {
		t.Errorf("fills: got %d orders %d holdings, want 2/2", res.OrdersFilled, res.HoldingsCreated)
	}

	if got := store.note(1); got.OfferingStatus != market.OfferingSettled {
		t.Errorf("note status: got %s, want settled", got.OfferingStatus)
	}
	for _, id := range []int64{a.ID, b.ID} {
		if got := store.order(id); got.Status != market.OrderFilled || got.FilledAt == nil {
			t.Errorf("order %d: got status %s filledAt %v, want filled at run time", id, got.Status, got.FilledAt)
		}
	}

	aliceLots := store.lots("0xalice", 1)
	if len(aliceLots) != 1 || aliceLots[0].QuantityHeld != 60_000 || aliceLots[0].AcquisitionPrice != engine.ParUnitPrice {
		t.Errorf("alice lots: got %+v, want 60000 units at par", aliceLots)
	}
	bobLots := store.lots("0xbob", 1)
	if len(bobLots) != 1 || bobLots[0].QuantityHeld != 40_000 {
		t.Errorf("bob lots: got %+v, want 40000 units", bobLots)
	}
}

func TestSettle_InsufficientSubscriptionLeavesStateUntouched(t *testing.T) {
	store := newMemStore()
	store.addNote(offeringNote(1))
	o := store.addOrder(market.Order{NoteID: 1, InvestorWallet: "0xalice", Side: market.SideBuy, Amount: 60_000, Status: market.OrderPending, CreatedAt: testTime.Add(-time.Minute)})

	_, err := newSettler(store).Settle(context.Background(), 1)
	if !errors.Is(err, market.ErrInsufficientSubscription) {
		t.Fatalf("got %v, want ErrInsufficientSubscription", err)
	}

	if got := store.note(1); got.OfferingStatus != market.OfferingOpen {
		t.Errorf("note status: got %s, want still open", got.OfferingStatus)
	}
	if got := store.order(o.ID); got.Status != market.OrderPending {
		t.Errorf("order status: got %s, want still pending", got.Status)
	}
	if lots := store.lots("0xalice", 1); len(lots) != 0 {
		t.Errorf("holdings created on failed run: got %d, want 0", len(lots))
	}
}

func TestSettle_OversubscriptionFillsEveryOrderInFull(t *testing.T) {
	store := newMemStore()
	store.addNote(offeringNote(1))
	store.addOrder(market.Order{NoteID: 1, InvestorWallet: "0xalice", Side: market.SideBuy, Amount: 80_000, Status: market.OrderPending, CreatedAt: testTime.Add(-2 * time.Minute)})
	store.addOrder(market.Order{NoteID: 1, InvestorWallet: "0xbob", Side: market.SideBuy, Amount: 40_000, Status: market.OrderPending, CreatedAt: testTime.Add(-time.Minute)})

	res, err := newSettler(store).Settle(context.Background(), 1)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if res.TotalSubscribed != 120_000 {
		t.Errorf("total subscribed: got %d, want 120000", res.TotalSubscribed)
	}
	if res.OrdersFilled != 2 {
		t.Errorf("orders filled: got %d, want all 2 in full", res.OrdersFilled)
	}
	if lots := store.lots("0xbob", 1); len(lots) != 1 || lots[0].QuantityHeld != 40_000 {
		t.Errorf("bob lots: got %+v, want full 40000, never prorated", lots)
	}
}

func TestSettle_SellOrdersDoNotCountTowardSubscription(t *testing.T) {
	store := newMemStore()
	store.addNote(offeringNote(1))
	store.addOrder(market.Order{NoteID: 1, InvestorWallet: "0xalice", Side: market.SideBuy, Amount: 60_000, Status: market.OrderPending, CreatedAt: testTime.Add(-2 * time.Minute)})
	sell := store.addOrder(market.Order{NoteID: 1, InvestorWallet: "0xbob", Side: market.SideSell, Amount: 50_000, Status: market.OrderPending, CreatedAt: testTime.Add(-time.Minute)})

	_, err := newSettler(store).Settle(context.Background(), 1)
	if !errors.Is(err, market.ErrInsufficientSubscription) {
		t.Fatalf("got %v, want ErrInsufficientSubscription", err)
	}
	if got := store.order(sell.ID); got.Status != market.OrderPending {
		t.Errorf("sell order: got %s, want untouched pending", got.Status)
	}
}

func TestSettle_AlreadySettledIsTerminal(t *testing.T) {
	store := newMemStore()
	store.addNote(settledNote(1))

	_, err := newSettler(store).Settle(context.Background(), 1)
	if !errors.Is(err, market.ErrAlreadySettled) {
		t.Fatalf("got %v, want ErrAlreadySettled", err)
	}
}

func TestSettle_SecondRunAfterSuccessFails(t *testing.T) {
	store := newMemStore()
	store.addNote(offeringNote(1))
	store.addOrder(market.Order{NoteID: 1, InvestorWallet: "0xalice", Side: market.SideBuy, Amount: 100_000, Status: market.OrderPending, CreatedAt: testTime.Add(-time.Minute)})

	s := newSettler(store)
	if _, err := s.Settle(context.Background(), 1); err != nil {
		t.Fatalf("first Settle: %v", err)
	}
	if _, err := s.Settle(context.Background(), 1); !errors.Is(err, market.ErrAlreadySettled) {
		t.Fatalf("second Settle: got %v, want ErrAlreadySettled", err)
	}
}

func TestSettle_UnknownNote(t *testing.T) {
	store := newMemStore()
	_, err := newSettler(store).Settle(context.Background(), 42)
	if !errors.Is(err, market.ErrNoteNotFound) {
		t.Fatalf("got %v, want ErrNoteNotFound", err)
	}
}
