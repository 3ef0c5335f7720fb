package services

import (
	"context"
	"math/big"
	"testing"

	"github.com/google/uuid"

	"github.com/u2kpay/backend/internal/errs"
	"github.com/u2kpay/backend/internal/models"
)

func bindWallet(t *testing.T, store *memWalletStore, address string) {
	t.Helper()
	err := store.Create(context.Background(), &models.WalletBinding{
		ID:            uuid.New(),
		ParticipantID: uuid.New(),
		Address:       address,
		CachedBalance: "0",
	})
	if err != nil {
		t.Fatalf("bind %s: %v", address, err)
	}
}

func TestReconcileOne(t *testing.T) {
	ledger := newFakeLedger()
	wallets := newMemWalletStore()
	pub := &memPublisher{}
	rec := NewReconciler(wallets, ledger, pub, testLogger())

	bindWallet(t, wallets, testSponsor)
	// 7.25 tokens at 18 decimals.
	units, _ := new(big.Int).SetString("7250000000000000000", 10)
	ledger.balances[testSponsor] = units

	if err := rec.ReconcileOne(context.Background(), testSponsor); err != nil {
		t.Fatalf("ReconcileOne: %v", err)
	}
	w, err := wallets.GetByAddress(context.Background(), testSponsor)
	if err != nil {
		t.Fatalf("GetByAddress: %v", err)
	}
	if w.CachedBalance != "7.25" {
		t.Errorf("cached balance = %q, want 7.25", w.CachedBalance)
	}
	if len(pub.events) != 1 {
		t.Errorf("published %d events, want 1", len(pub.events))
	}
}

func TestReconcileAllContinuesPastFailures(t *testing.T) {
	ledger := newFakeLedger()
	wallets := newMemWalletStore()
	rec := NewReconciler(wallets, ledger, nil, testLogger())

	addrs := []string{
		"0x5FbDB2315678afecb367f032d93F642f64180aa3",
		"0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
		"0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC",
	}
	for i, a := range addrs {
		bindWallet(t, wallets, a)
		ledger.balances[a] = big.NewInt(int64(i+1) * 1e18)
	}
	ledger.balanceErrs[addrs[1]] = errs.Unavailablef("rpc timeout")

	failed, err := rec.ReconcileAll(context.Background())
	if err != nil {
		t.Fatalf("ReconcileAll: %v", err)
	}
	if failed != 1 {
		t.Errorf("failed = %d, want 1", failed)
	}

	for i, a := range addrs {
		w, _ := wallets.GetByAddress(context.Background(), a)
		if i == 1 {
			if w.CachedBalance != "0" {
				t.Errorf("failed wallet balance = %q, want untouched 0", w.CachedBalance)
			}
			continue
		}
		if w.CachedBalance == "0" {
			t.Errorf("wallet %s not reconciled", a)
		}
	}
}

func TestReconcileAllStopsOnCancel(t *testing.T) {
	ledger := newFakeLedger()
	wallets := newMemWalletStore()
	rec := NewReconciler(wallets, ledger, nil, testLogger())
	bindWallet(t, wallets, testSponsor)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := rec.ReconcileAll(ctx); err == nil {
		t.Error("expected context error")
	}
}
