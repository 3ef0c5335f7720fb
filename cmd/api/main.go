package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/u2kpay/backend/internal/chain"
	"github.com/u2kpay/backend/internal/config"
	"github.com/u2kpay/backend/internal/db"
	"github.com/u2kpay/backend/internal/events"
	apphttp "github.com/u2kpay/backend/internal/http"
	"github.com/u2kpay/backend/internal/http/handlers"
	"github.com/u2kpay/backend/internal/repositories"
	"github.com/u2kpay/backend/internal/services"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, pool, "migrations", log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Chain
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

	signer := chain.NewRemoteSigner(cfg.SignerInternalURL, cfg.ChainID, log)

	// Repositories
	userRepo := repositories.NewUserRepo(pool)
	billRepo := repositories.NewBillRepo(pool)
	escrowRepo := repositories.NewEscrowRepo(pool)
	walletRepo := repositories.NewWalletRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Services
	idmap := services.NewIdentifierMapper(escrowRepo)
	reconciler := services.NewReconciler(walletRepo, chainClient, publisher, log)
	escrowService := services.NewEscrowService(escrowRepo, billRepo, auditRepo, chainClient, signer, idmap, reconciler, publisher, log)
	walletRegistry := services.NewWalletRegistry(walletRepo, auditRepo, reconciler, log)

	// Handlers
	authHandler := handlers.NewAuthHandler(userRepo, cfg, log)
	walletHandler := handlers.NewWalletHandler(walletRegistry, log)
	billHandler := handlers.NewBillHandler(billRepo, log)
	escrowHandler := handlers.NewEscrowHandler(escrowService, auditRepo, log)
	wsHub := handlers.NewWSHub(cfg, subscriber, log)

	// Start WS hub
	wsHub.Start(ctx)

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, authHandler, walletHandler, billHandler, escrowHandler, wsHub)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
