package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/u2kpay/backend/internal/http/dto"
	"github.com/u2kpay/backend/internal/middleware"
	"github.com/u2kpay/backend/internal/services"
)

type WalletHandler struct {
	registry *services.WalletRegistry
	log      *zap.Logger
}

func NewWalletHandler(registry *services.WalletRegistry, log *zap.Logger) *WalletHandler {
	return &WalletHandler{registry: registry, log: log}
}

// POST /me/wallet
func (h *WalletHandler) Bind(c *fiber.Ctx) error {
	var req dto.BindWalletRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.Address == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "address is required"})
	}

	binding, err := h.registry.Bind(c.Context(), middleware.GetUserID(c), req.Address)
	if err != nil {
		return respondErr(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: binding})
}

// GET /me/wallet
func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	binding, err := h.registry.Get(c.Context(), middleware.GetUserID(c))
	if err != nil {
		return respondErr(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: binding})
}

// GET /me/wallet/balance?refresh=true
func (h *WalletHandler) Balance(c *fiber.Ctx) error {
	refresh := c.QueryBool("refresh")
	binding, err := h.registry.Balance(c.Context(), middleware.GetUserID(c), refresh)
	if err != nil {
		return respondErr(c, h.log, err)
	}
	return c.JSON(dto.BalanceResponse{
		Address:       binding.Address,
		Balance:       binding.CachedBalance,
		RefreshedAtMS: binding.UpdatedAt.UnixMilli(),
	})
}
