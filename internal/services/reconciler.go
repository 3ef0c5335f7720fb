package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/u2kpay/backend/internal/chain"
	"github.com/u2kpay/backend/internal/events"
)

// Reconciler keeps the cached token balances of bound wallets in line with
// the chain. It runs on a timer and is also poked after each confirmed
// payment.
type Reconciler struct {
	wallets   WalletStore
	ledger    Ledger
	publisher events.Publisher
	log       *zap.Logger
}

func NewReconciler(wallets WalletStore, ledger Ledger, publisher events.Publisher, log *zap.Logger) *Reconciler {
	return &Reconciler{wallets: wallets, ledger: ledger, publisher: publisher, log: log}
}

// ReconcileOne reads the on-chain token balance of one address and overwrites
// the cached value.
func (r *Reconciler) ReconcileOne(ctx context.Context, address string) error {
	units, err := r.ledger.TokenBalance(ctx, address)
	if err != nil {
		return err
	}
	balance := chain.FromTokenUnits(units, r.ledger.Decimals())
	if err := r.wallets.UpdateCachedBalance(ctx, address, balance); err != nil {
		return err
	}
	if r.publisher != nil {
		_ = r.publisher.Publish(ctx, events.StreamEscrow, events.Event{
			Type: events.EventBalanceReconciled,
			Payload: map[string]any{
				"address": address,
				"balance": balance,
			},
		})
	}
	return nil
}

// ReconcileAll sweeps every bound wallet. A failing wallet is logged and
// skipped; the sweep continues. The count of failures is returned so callers
// can alert without aborting.
func (r *Reconciler) ReconcileAll(ctx context.Context) (failed int, err error) {
	bindings, err := r.wallets.List(ctx)
	if err != nil {
		return 0, err
	}
	for _, b := range bindings {
		if err := ctx.Err(); err != nil {
			return failed, err
		}
		if err := r.ReconcileOne(ctx, b.Address); err != nil {
			failed++
			r.log.Warn("wallet reconcile failed",
				zap.String("address", b.Address), zap.Error(err))
		}
	}
	return failed, nil
}

// Run sweeps on the given interval until the context is cancelled.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.log.Info("reconciler started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			r.log.Info("reconciler stopped")
			return
		case <-ticker.C:
			if failed, err := r.ReconcileAll(ctx); err != nil {
				r.log.Error("reconcile sweep aborted", zap.Error(err))
			} else if failed > 0 {
				r.log.Warn("reconcile sweep finished with failures", zap.Int("failed", failed))
			}
		}
	}
}
