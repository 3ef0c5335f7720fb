package handlers

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/u2kpay/backend/internal/http/dto"
	"github.com/u2kpay/backend/internal/middleware"
	"github.com/u2kpay/backend/internal/models"
	"github.com/u2kpay/backend/internal/services"
)

type EscrowHandler struct {
	escrowService *services.EscrowService
	audit         services.AuditStore
	log           *zap.Logger
}

func NewEscrowHandler(escrowService *services.EscrowService, audit services.AuditStore, log *zap.Logger) *EscrowHandler {
	return &EscrowHandler{escrowService: escrowService, audit: audit, log: log}
}

// POST /escrows
func (h *EscrowHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateEscrowRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	userID := middleware.GetUserID(c)
	escrow, err := h.escrowService.CreateEscrow(c.Context(), services.CreateEscrowParams{
		BillID:             req.BillID,
		BeneficiaryAddress: req.BeneficiaryAddress,
		SponsorAddress:     req.SponsorAddress,
		PaymentDestination: req.PaymentDestination,
		Amount:             req.Amount,
		Description:        req.Description,
		ActorUserID:        &userID,
	})
	if err != nil {
		return respondErr(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: escrow})
}

// GET /escrows/:id
func (h *EscrowHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid escrow id"})
	}
	details, err := h.escrowService.GetDetails(c.Context(), id)
	if err != nil {
		return respondErr(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: details})
}

// GET /escrows/by-bill/:billId
func (h *EscrowHandler) GetByBill(c *fiber.Ctx) error {
	escrow, err := h.escrowService.GetByBillID(c.Context(), c.Params("billId"))
	if err != nil {
		return respondErr(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: escrow})
}

// POST /escrows/:id/pay/native
func (h *EscrowHandler) PayNative(c *fiber.Ctx) error {
	return h.pay(c, h.escrowService.PayNative)
}

// POST /escrows/:id/pay/token
func (h *EscrowHandler) PayToken(c *fiber.Ctx) error {
	return h.pay(c, h.escrowService.PayToken)
}

func (h *EscrowHandler) pay(c *fiber.Ctx, settle func(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (*models.EscrowRequest, error)) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid escrow id"})
	}
	userID := middleware.GetUserID(c)
	escrow, err := settle(c.Context(), id, &userID)
	if err != nil {
		return respondErr(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: escrow})
}

// POST /escrows/:id/reject
func (h *EscrowHandler) Reject(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid escrow id"})
	}
	userID := middleware.GetUserID(c)
	escrow, err := h.escrowService.Reject(c.Context(), id, &userID)
	if err != nil {
		return respondErr(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: escrow})
}

// GET /escrows/:id/events
func (h *EscrowHandler) Events(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid escrow id"})
	}
	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)
	logs, err := h.audit.GetByEntity(c.Context(), "escrow_request", id, limit, offset)
	if err != nil {
		return respondErr(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: logs})
}

// GET /chain/bills/:chainBillId
func (h *EscrowHandler) ChainBill(c *fiber.Ctx) error {
	chainBillID, err := strconv.ParseInt(c.Params("chainBillId"), 10, 64)
	if err != nil || chainBillID < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid chain bill id"})
	}
	bill, err := h.escrowService.ChainBill(c.Context(), chainBillID)
	if err != nil {
		return respondErr(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: bill})
}

// GET /chain/bills?address=0x..&role=sponsor
func (h *EscrowHandler) BillsByAddress(c *fiber.Ctx) error {
	address := c.Query("address")
	role := c.Query("role", "beneficiary")
	ids, err := h.escrowService.BillsFor(c.Context(), address, role)
	if err != nil {
		return respondErr(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: ids})
}
