package http

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/u2kpay/backend/internal/config"
	"github.com/u2kpay/backend/internal/http/handlers"
	"github.com/u2kpay/backend/internal/middleware"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	authHandler *handlers.AuthHandler,
	walletHandler *handlers.WalletHandler,
	billHandler *handlers.BillHandler,
	escrowHandler *handlers.EscrowHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")

	// Auth (public)
	api.Post("/auth/register", authHandler.Register)
	api.Post("/auth/login", authHandler.Login)

	api.Use(middleware.RateLimitMiddleware(rdb, 100, time.Minute))

	// Protected endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg, log))

	// User
	protected.Get("/me", authHandler.GetMe)

	// Wallet
	protected.Post("/me/wallet", walletHandler.Bind)
	protected.Get("/me/wallet", walletHandler.GetWallet)
	protected.Get("/me/wallet/balance", walletHandler.Balance)

	// Bills
	protected.Post("/bills", billHandler.Create)
	protected.Get("/bills", billHandler.ListMine)
	protected.Get("/bills/:id", billHandler.Get)

	// Escrows
	protected.Post("/escrows", escrowHandler.Create)
	protected.Get("/escrows/by-bill/:billId", escrowHandler.GetByBill)
	protected.Get("/escrows/:id", escrowHandler.Get)
	protected.Post("/escrows/:id/pay/native", escrowHandler.PayNative)
	protected.Post("/escrows/:id/pay/token", escrowHandler.PayToken)
	protected.Post("/escrows/:id/reject", escrowHandler.Reject)
	protected.Get("/escrows/:id/events", escrowHandler.Events)

	// Chain reads
	protected.Get("/chain/bills", escrowHandler.BillsByAddress)
	protected.Get("/chain/bills/:chainBillId", escrowHandler.ChainBill)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
