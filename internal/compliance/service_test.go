package compliance_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"MicroPaper/internal/compliance"
	"MicroPaper/internal/market"
)

type fakeWalletStore struct {
	wallets map[string]*market.WalletVerification
	audits  []*compliance.AuditEntry
}

func newFakeWalletStore() *fakeWalletStore {
	return &fakeWalletStore{wallets: make(map[string]*market.WalletVerification)}
}

func (s *fakeWalletStore) GetWallet(ctx context.Context, walletAddress string) (*market.WalletVerification, error) {
	w, ok := s.wallets[walletAddress]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (s *fakeWalletStore) UpsertWallet(ctx context.Context, w *market.WalletVerification) error {
	cp := *w
	s.wallets[w.WalletAddress] = &cp
	return nil
}

func (s *fakeWalletStore) AppendAudit(ctx context.Context, e *compliance.AuditEntry) error {
	cp := *e
	s.audits = append(s.audits, &cp)
	return nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newService(store *fakeWalletStore) *compliance.Service {
	return compliance.NewService(store, store, fixedClock{testTime}, zerolog.Nop())
}

func TestVerify_NewWallet(t *testing.T) {
	store := newFakeWalletStore()
	svc := newService(store)

	w, err := svc.Verify(context.Background(), "0xAlice", market.TierAccredited, "us", "officer-1", "req-1")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	if w.WalletAddress != "0xalice" {
		t.Errorf("wallet: got %q, want normalized %q", w.WalletAddress, "0xalice")
	}
	if !w.IsVerified || w.InvestorTier != market.TierAccredited || w.Jurisdiction != "US" {
		t.Errorf("record: got %+v", w)
	}
	if !w.CreatedAt.Equal(testTime) || !w.UpdatedAt.Equal(testTime) {
		t.Errorf("timestamps: got created %v updated %v, want clock time", w.CreatedAt, w.UpdatedAt)
	}

	if len(store.audits) != 1 {
		t.Fatalf("audits: got %d, want 1", len(store.audits))
	}
	a := store.audits[0]
	if a.Action != compliance.ActionVerify || a.WasVerified || !a.NowVerified || a.PerformedBy != "officer-1" {
		t.Errorf("audit: got %+v", a)
	}
}

func TestVerify_InvalidTier(t *testing.T) {
	svc := newService(newFakeWalletStore())
	_, err := svc.Verify(context.Background(), "0xalice", "whale", "", "", "")
	if !errors.Is(err, market.ErrInvalidParameter) {
		t.Fatalf("got %v, want ErrInvalidParameter", err)
	}
}

func TestUnverify_KeepsTierAndJurisdiction(t *testing.T) {
	store := newFakeWalletStore()
	svc := newService(store)

	if _, err := svc.Verify(context.Background(), "0xalice", market.TierInstitutional, "GB", "officer-1", "req-1"); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	w, err := svc.Unverify(context.Background(), "0xalice", "officer-2", "req-2")
	if err != nil {
		t.Fatalf("Unverify: %v", err)
	}

	if w.IsVerified {
		t.Error("wallet should be unverified")
	}
	if w.InvestorTier != market.TierInstitutional || w.Jurisdiction != "GB" {
		t.Errorf("classification should survive revocation, got %+v", w)
	}

	a := store.audits[len(store.audits)-1]
	if a.Action != compliance.ActionUnverify || !a.WasVerified || a.NowVerified {
		t.Errorf("audit: got %+v", a)
	}
}

func TestStatus_UnknownWalletReportsUnverified(t *testing.T) {
	store := newFakeWalletStore()
	svc := newService(store)

	w, err := svc.Status(context.Background(), "0xnobody", "req-1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if w.IsVerified {
		t.Error("unknown wallet should report unverified")
	}
	if len(store.audits) != 1 || store.audits[0].Action != compliance.ActionCheckStatus {
		t.Errorf("audits: got %+v", store.audits)
	}
}

type failingAuditStore struct{}

func (failingAuditStore) AppendAudit(ctx context.Context, e *compliance.AuditEntry) error {
	return errors.New("audit log unavailable")
}

func TestVerify_AuditFailureIsNotFatal(t *testing.T) {
	store := newFakeWalletStore()
	svc := compliance.NewService(store, failingAuditStore{}, fixedClock{testTime}, zerolog.Nop())

	w, err := svc.Verify(context.Background(), "0xalice", market.TierRetail, "CA", "officer-1", "req-1")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !w.IsVerified {
		t.Error("verification should stand despite audit failure")
	}
}

func TestStatus_EmptyWallet(t *testing.T) {
	svc := newService(newFakeWalletStore())
	_, err := svc.Status(context.Background(), "  ", "req-1")
	if !errors.Is(err, market.ErrInvalidParameter) {
		t.Fatalf("got %v, want ErrInvalidParameter", err)
	}
}
