package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/u2kpay/backend/internal/chain"
	"github.com/u2kpay/backend/internal/http/dto"
	"github.com/u2kpay/backend/internal/middleware"
	"github.com/u2kpay/backend/internal/models"
	"github.com/u2kpay/backend/internal/repositories"
)

type BillHandler struct {
	billRepo *repositories.BillRepo
	log      *zap.Logger
}

func NewBillHandler(billRepo *repositories.BillRepo, log *zap.Logger) *BillHandler {
	return &BillHandler{billRepo: billRepo, log: log}
}

// POST /bills
func (h *BillHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateBillRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	units, err := chain.ToTokenUnits(req.Amount, chain.DefaultDecimals)
	if err != nil || units.Sign() <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "amount must be a positive decimal"})
	}

	bill := &models.Bill{
		ID:          uuid.New(),
		OwnerUserID: middleware.GetUserID(c),
		Amount:      req.Amount,
		Description: req.Description,
		Status:      models.BillStatusUnpaid,
	}
	if err := h.billRepo.Create(c.Context(), bill); err != nil {
		return respondErr(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: bill})
}

// GET /bills/:id
func (h *BillHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid bill id"})
	}
	bill, err := h.billRepo.Find(c.Context(), id)
	if err != nil {
		return respondErr(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: bill})
}

// GET /bills
func (h *BillHandler) ListMine(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)
	bills, err := h.billRepo.ListByOwner(c.Context(), middleware.GetUserID(c), limit, offset)
	if err != nil {
		return respondErr(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: bills})
}
