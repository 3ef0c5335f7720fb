package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/u2kpay/backend/internal/chain"
	"github.com/u2kpay/backend/internal/config"
	"github.com/u2kpay/backend/internal/db"
	"github.com/u2kpay/backend/internal/events"
	"github.com/u2kpay/backend/internal/repositories"
	"github.com/u2kpay/backend/internal/services"
)

// The reconciler sweeps cached wallet balances against the chain on a timer
// and immediately after each confirmed payment.
func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	dialCtx, dialCancel := context.WithTimeout(ctx, 15*time.Second)
	chainClient, err := chain.New(dialCtx, chain.Config{
		RPCURL:         cfg.RPCURL,
		ChainID:        cfg.ChainID,
		TokenContract:  cfg.TokenContract,
		BillContract:   cfg.BillContract,
		TokenDecimals:  cfg.TokenDecimals,
		ConfirmTimeout: cfg.ConfirmTimeout,
	}, log)
	dialCancel()
	if err != nil {
		log.Fatal("failed to connect to chain", zap.Error(err))
	}
	defer chainClient.Close()

	walletRepo := repositories.NewWalletRepo(pool)
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	reconciler := services.NewReconciler(walletRepo, chainClient, publisher, log)

	// A confirmed payment pokes the sponsor's wallet right away instead of
	// waiting for the next sweep.
	err = subscriber.Subscribe(ctx, events.StreamEscrow, func(event events.Event) {
		if event.Type != events.EventPaymentConfirmed {
			return
		}
		address, _ := event.Payload["sponsor_address"].(string)
		if address == "" {
			return
		}
		if err := reconciler.ReconcileOne(ctx, address); err != nil {
			log.Warn("payment-triggered reconcile failed",
				zap.String("address", address), zap.Error(err))
		}
	})
	if err != nil {
		log.Fatal("failed to subscribe to escrow events", zap.Error(err))
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
	}()

	reconciler.Run(ctx, cfg.ReconcileInterval)
}
