package services

import (
	"context"
	"math/big"
	"testing"

	"github.com/google/uuid"

	"github.com/u2kpay/backend/internal/errs"
)

func newWalletFixture() (*WalletRegistry, *memWalletStore, *fakeLedger) {
	wallets := newMemWalletStore()
	ledger := newFakeLedger()
	rec := NewReconciler(wallets, ledger, nil, testLogger())
	return NewWalletRegistry(wallets, &memAuditStore{}, rec, testLogger()), wallets, ledger
}

func TestWalletBind(t *testing.T) {
	reg, _, ledger := newWalletFixture()
	participant := uuid.New()
	ledger.balances[testSponsor] = big.NewInt(3e18)

	// Lowercase in, checksummed out.
	w, err := reg.Bind(context.Background(), participant, "0x70997970c51812dc3a010c7d01b50e0d17dc79c8")
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if w.Address != testSponsor {
		t.Errorf("address = %q, want checksummed %q", w.Address, testSponsor)
	}

	got, err := reg.Get(context.Background(), participant)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.CachedBalance != "3" {
		t.Errorf("cached balance = %q, want 3 from initial reconcile", got.CachedBalance)
	}
}

func TestWalletBindConflicts(t *testing.T) {
	reg, _, _ := newWalletFixture()
	participant := uuid.New()
	if _, err := reg.Bind(context.Background(), participant, testSponsor); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if _, err := reg.Bind(context.Background(), participant, testBeneficiary); !errs.IsConflict(err) {
		t.Errorf("second bind for participant err = %v, want conflict", err)
	}
	if _, err := reg.Bind(context.Background(), uuid.New(), testSponsor); !errs.IsConflict(err) {
		t.Errorf("rebinding address err = %v, want conflict", err)
	}
}

func TestWalletBindRejectsBadAddress(t *testing.T) {
	reg, _, _ := newWalletFixture()
	if _, err := reg.Bind(context.Background(), uuid.New(), "0xnope"); !errs.IsValidation(err) {
		t.Errorf("err = %v, want validation", err)
	}
}

func TestWalletBalanceRefresh(t *testing.T) {
	reg, _, ledger := newWalletFixture()
	participant := uuid.New()
	if _, err := reg.Bind(context.Background(), participant, testSponsor); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	ledger.balances[testSponsor] = big.NewInt(5e18)
	w, err := reg.Balance(context.Background(), participant, false)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if w.CachedBalance != "0" {
		t.Errorf("unrefreshed balance = %q, want cached 0", w.CachedBalance)
	}

	w, err = reg.Balance(context.Background(), participant, true)
	if err != nil {
		t.Fatalf("Balance refresh: %v", err)
	}
	if w.CachedBalance != "5" {
		t.Errorf("refreshed balance = %q, want 5", w.CachedBalance)
	}

	// Chain failure serves the last cached value.
	ledger.balanceErrs[testSponsor] = errs.Unavailablef("rpc down")
	w, err = reg.Balance(context.Background(), participant, true)
	if err != nil {
		t.Fatalf("Balance with chain down: %v", err)
	}
	if w.CachedBalance != "5" {
		t.Errorf("fallback balance = %q, want cached 5", w.CachedBalance)
	}
}
