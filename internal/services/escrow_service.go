package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/u2kpay/backend/internal/chain"
	"github.com/u2kpay/backend/internal/errs"
	"github.com/u2kpay/backend/internal/events"
	"github.com/u2kpay/backend/internal/models"
)

// EscrowService drives the bill-escrow lifecycle: it submits transactions
// through the ledger, keeps the escrow rows in sync with what the chain
// reported, and fans lifecycle events out over the publisher.
type EscrowService struct {
	escrows    EscrowStore
	bills      BillStore
	audit      AuditStore
	ledger     Ledger
	signer     chain.AuthorizationProvider
	idmap      *IdentifierMapper
	reconciler *Reconciler
	publisher  events.Publisher
	log        *zap.Logger
}

func NewEscrowService(
	escrows EscrowStore,
	bills BillStore,
	audit AuditStore,
	ledger Ledger,
	signer chain.AuthorizationProvider,
	idmap *IdentifierMapper,
	reconciler *Reconciler,
	publisher events.Publisher,
	log *zap.Logger,
) *EscrowService {
	return &EscrowService{
		escrows:    escrows,
		bills:      bills,
		audit:      audit,
		ledger:     ledger,
		signer:     signer,
		idmap:      idmap,
		reconciler: reconciler,
		publisher:  publisher,
		log:        log,
	}
}

type CreateEscrowParams struct {
	BillID             string
	BeneficiaryAddress string
	SponsorAddress     string
	PaymentDestination string
	Amount             string
	Description        string
	ActorUserID        *uuid.UUID
}

// CreateEscrow submits createBill on-chain on behalf of the beneficiary and
// records the resulting escrow as pending. The on-chain bill ID extracted
// from the BillCreated event is stored on the row; creation without that
// event is treated as failed.
func (s *EscrowService) CreateEscrow(ctx context.Context, p CreateEscrowParams) (*models.EscrowRequest, error) {
	if p.BillID == "" {
		return nil, errs.Validationf("bill id is required")
	}
	beneficiary, err := chain.ChecksumAddress(p.BeneficiaryAddress)
	if err != nil {
		return nil, errs.Validationf("invalid beneficiary address: %s", p.BeneficiaryAddress)
	}
	sponsor, err := chain.ChecksumAddress(p.SponsorAddress)
	if err != nil {
		return nil, errs.Validationf("invalid sponsor address: %s", p.SponsorAddress)
	}
	destination := beneficiary
	if p.PaymentDestination != "" {
		destination, err = chain.ChecksumAddress(p.PaymentDestination)
		if err != nil {
			return nil, errs.Validationf("invalid payment destination: %s", p.PaymentDestination)
		}
	}
	units, err := chain.ToTokenUnits(p.Amount, s.ledger.Decimals())
	if err != nil {
		return nil, err
	}
	if units.Sign() <= 0 {
		return nil, errs.Validationf("amount must be positive")
	}

	if existing, err := s.escrows.GetByBillID(ctx, p.BillID); err == nil {
		return existing, errs.Conflictf("escrow request already exists for bill %s", p.BillID)
	} else if !errs.IsNotFound(err) {
		return nil, err
	}

	auth, err := s.signer.AuthorizationFor(ctx, beneficiary)
	if err != nil {
		return nil, err
	}
	txHash, chainBillID, err := s.ledger.CreateBill(ctx, auth, sponsor, destination, units, p.Description)
	if err != nil {
		return nil, fmt.Errorf("create bill on chain: %w", err)
	}

	escrow := &models.EscrowRequest{
		ID:                 uuid.New(),
		BillID:             p.BillID,
		BeneficiaryAddress: beneficiary,
		SponsorAddress:     sponsor,
		PaymentDestination: destination,
		Amount:             chain.FromTokenUnits(units, s.ledger.Decimals()),
		Description:        p.Description,
		Status:             models.EscrowStatusPending,
		TxHash:             &txHash,
	}
	if err := s.escrows.Create(ctx, escrow); err != nil {
		// The chain transaction already landed; surface the row conflict but
		// log the orphaned on-chain bill so it can be rejected manually.
		s.log.Error("escrow row insert failed after on-chain create",
			zap.String("bill_id", p.BillID),
			zap.Int64("chain_bill_id", chainBillID),
			zap.String("tx_hash", txHash),
			zap.Error(err))
		return nil, err
	}
	if err := s.idmap.Record(ctx, escrow.ID, chainBillID); err != nil {
		return nil, err
	}
	escrow.ChainBillID = &chainBillID

	s.auditLog(ctx, p.ActorUserID, "user", "escrow.created", escrow.ID, map[string]any{
		"bill_id":       p.BillID,
		"chain_bill_id": chainBillID,
		"tx_hash":       txHash,
	})
	s.publish(ctx, events.EventEscrowStatusChanged, map[string]any{
		"escrow_id": escrow.ID.String(),
		"bill_id":   p.BillID,
		"status":    escrow.Status,
	})
	return escrow, nil
}

// PayNative settles a pending escrow with the chain's native coin. The value
// attached to the transaction is the escrow amount; the contract forwards it
// to the payment destination and flips the bill to paid.
func (s *EscrowService) PayNative(ctx context.Context, escrowID uuid.UUID, actorUserID *uuid.UUID) (*models.EscrowRequest, error) {
	return s.pay(ctx, escrowID, models.PaymentTypeNative, actorUserID)
}

// PayToken settles a pending escrow with the U2K token. The sponsor's
// allowance is raised first when it does not cover the bill amount; an
// approval that lands followed by a payment revert leaves the escrow pending
// and retryable.
func (s *EscrowService) PayToken(ctx context.Context, escrowID uuid.UUID, actorUserID *uuid.UUID) (*models.EscrowRequest, error) {
	return s.pay(ctx, escrowID, models.PaymentTypeToken, actorUserID)
}

func (s *EscrowService) pay(ctx context.Context, escrowID uuid.UUID, paymentType string, actorUserID *uuid.UUID) (*models.EscrowRequest, error) {
	escrow, err := s.escrows.GetByID(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	if escrow.Status != models.EscrowStatusPending {
		return nil, errs.Conflictf("escrow %s is %s, not pending", escrowID, escrow.Status)
	}
	chainBillID, err := s.idmap.Resolve(ctx, escrowID)
	if err != nil {
		return nil, err
	}

	auth, err := s.signer.AuthorizationFor(ctx, escrow.SponsorAddress)
	if err != nil {
		return nil, err
	}

	// Read the amount from the contract rather than trusting the stored
	// string: the chain is the source of truth for what payBill will charge.
	onChain, err := s.ledger.GetBill(ctx, chainBillID)
	if err != nil {
		return nil, err
	}
	if onChain.Status != "pending" {
		return nil, errs.Conflictf("on-chain bill %d is already %s", chainBillID, onChain.Status)
	}

	var txHash string
	switch paymentType {
	case models.PaymentTypeNative:
		txHash, err = s.ledger.PayBillWithNative(ctx, auth, chainBillID, onChain.AmountUnits)
	case models.PaymentTypeToken:
		if err := s.ensureAllowance(ctx, auth, escrow.SponsorAddress, onChain); err != nil {
			return nil, err
		}
		txHash, err = s.ledger.PayBillWithToken(ctx, auth, chainBillID)
	default:
		return nil, errs.Validationf("unknown payment type %q", paymentType)
	}
	if err != nil {
		return nil, err
	}

	if err := s.escrows.UpdateStatus(ctx, escrowID, models.EscrowStatusPending, models.EscrowStatusConfirmed, &txHash, &paymentType); err != nil {
		// The payment landed on-chain but another writer already moved the
		// row. Do not hide the successful payment behind the row conflict.
		s.log.Error("escrow row left behind confirmed payment",
			zap.String("escrow_id", escrowID.String()),
			zap.String("tx_hash", txHash),
			zap.Error(err))
		return nil, err
	}
	escrow.Status = models.EscrowStatusConfirmed
	escrow.TxHash = &txHash
	escrow.PaymentType = &paymentType

	s.markBillPaid(ctx, escrow)
	s.auditLog(ctx, actorUserID, "user", "escrow.paid", escrowID, map[string]any{
		"payment_type":  paymentType,
		"chain_bill_id": chainBillID,
		"tx_hash":       txHash,
	})
	s.publish(ctx, events.EventPaymentConfirmed, map[string]any{
		"escrow_id":       escrowID.String(),
		"bill_id":         escrow.BillID,
		"sponsor_address": escrow.SponsorAddress,
		"payment_type":    paymentType,
		"tx_hash":         txHash,
	})

	// Best effort: refresh the sponsor's cached token balance right away so
	// the next balance read reflects the payment without waiting a tick.
	if s.reconciler != nil {
		if err := s.reconciler.ReconcileOne(ctx, escrow.SponsorAddress); err != nil {
			s.log.Warn("post-payment balance refresh failed",
				zap.String("address", escrow.SponsorAddress), zap.Error(err))
		}
	}
	return escrow, nil
}

// ensureAllowance raises the sponsor's allowance to the bill amount when the
// current allowance does not cover it.
func (s *EscrowService) ensureAllowance(ctx context.Context, auth chain.Authorization, sponsor string, onChain *chain.Bill) error {
	allowance, err := s.ledger.Allowance(ctx, sponsor)
	if err != nil {
		return err
	}
	if allowance.Cmp(onChain.AmountUnits) >= 0 {
		return nil
	}
	if _, err := s.ledger.Approve(ctx, auth, onChain.AmountUnits); err != nil {
		return fmt.Errorf("approve token spend: %w", err)
	}
	return nil
}

// Reject cancels a pending escrow. Only the sponsor side can reject; the
// contract enforces the same rule, so a mismatched caller surfaces as a
// revert.
func (s *EscrowService) Reject(ctx context.Context, escrowID uuid.UUID, actorUserID *uuid.UUID) (*models.EscrowRequest, error) {
	escrow, err := s.escrows.GetByID(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	if escrow.Status != models.EscrowStatusPending {
		return nil, errs.Conflictf("escrow %s is %s, not pending", escrowID, escrow.Status)
	}
	chainBillID, err := s.idmap.Resolve(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	auth, err := s.signer.AuthorizationFor(ctx, escrow.SponsorAddress)
	if err != nil {
		return nil, err
	}
	txHash, err := s.ledger.RejectBill(ctx, auth, chainBillID)
	if err != nil {
		return nil, err
	}
	if err := s.escrows.UpdateStatus(ctx, escrowID, models.EscrowStatusPending, models.EscrowStatusRejected, &txHash, nil); err != nil {
		return nil, err
	}
	escrow.Status = models.EscrowStatusRejected
	escrow.TxHash = &txHash

	s.markBillFailed(ctx, escrow)
	s.auditLog(ctx, actorUserID, "user", "escrow.rejected", escrowID, map[string]any{
		"chain_bill_id": chainBillID,
		"tx_hash":       txHash,
	})
	s.publish(ctx, events.EventEscrowStatusChanged, map[string]any{
		"escrow_id": escrowID.String(),
		"bill_id":   escrow.BillID,
		"status":    models.EscrowStatusRejected,
	})
	return escrow, nil
}

// EscrowDetails pairs the stored escrow row with the live contract state.
type EscrowDetails struct {
	Escrow *models.EscrowRequest `json:"escrow"`
	Chain  *chain.Bill           `json:"chain,omitempty"`
}

// GetDetails returns the escrow row together with the on-chain bill state
// when the mapping exists. Chain unavailability degrades to row-only details
// rather than failing the read.
func (s *EscrowService) GetDetails(ctx context.Context, escrowID uuid.UUID) (*EscrowDetails, error) {
	escrow, err := s.escrows.GetByID(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	details := &EscrowDetails{Escrow: escrow}
	if escrow.ChainBillID != nil {
		onChain, err := s.ledger.GetBill(ctx, *escrow.ChainBillID)
		if err != nil {
			s.log.Warn("chain state unavailable for escrow details",
				zap.String("escrow_id", escrowID.String()), zap.Error(err))
		} else {
			details.Chain = onChain
		}
	}
	return details, nil
}

// GetByBillID looks an escrow up by its application bill ID.
func (s *EscrowService) GetByBillID(ctx context.Context, billID string) (*models.EscrowRequest, error) {
	return s.escrows.GetByBillID(ctx, billID)
}

// ChainBill reads a bill straight from the contract by its numeric ID.
func (s *EscrowService) ChainBill(ctx context.Context, chainBillID int64) (*chain.Bill, error) {
	return s.ledger.GetBill(ctx, chainBillID)
}

// BillsFor lists the on-chain bill IDs an address participates in, either as
// "beneficiary" or as "sponsor".
func (s *EscrowService) BillsFor(ctx context.Context, address, role string) ([]int64, error) {
	addr, err := chain.ChecksumAddress(address)
	if err != nil {
		return nil, errs.Validationf("invalid address: %s", address)
	}
	switch role {
	case "beneficiary":
		return s.ledger.BeneficiaryBills(ctx, addr)
	case "sponsor":
		return s.ledger.SponsorBills(ctx, addr)
	default:
		return nil, errs.Validationf("role must be beneficiary or sponsor, got %q", role)
	}
}

// markBillPaid moves the application bill record to paid when one exists for
// this escrow. The escrow row is authoritative; a missing bill record is not
// an error.
func (s *EscrowService) markBillPaid(ctx context.Context, escrow *models.EscrowRequest) {
	id, err := uuid.Parse(escrow.BillID)
	if err != nil {
		return
	}
	if err := s.bills.MarkPaid(ctx, id); err != nil && !errs.IsNotFound(err) {
		s.log.Warn("bill record update failed", zap.String("bill_id", escrow.BillID), zap.Error(err))
	}
}

func (s *EscrowService) markBillFailed(ctx context.Context, escrow *models.EscrowRequest) {
	id, err := uuid.Parse(escrow.BillID)
	if err != nil {
		return
	}
	if err := s.bills.MarkFailed(ctx, id); err != nil && !errs.IsNotFound(err) {
		s.log.Warn("bill record update failed", zap.String("bill_id", escrow.BillID), zap.Error(err))
	}
}

func (s *EscrowService) auditLog(ctx context.Context, actorUserID *uuid.UUID, actorType, action string, entityID uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	entry := models.AuditLog{
		ActorUserID: actorUserID,
		ActorType:   actorType,
		Action:      action,
		EntityType:  "escrow_request",
		EntityID:    &entityID,
		Meta:        meta,
	}
	if err := s.audit.Log(ctx, entry); err != nil {
		s.log.Warn("audit log write failed", zap.String("action", action), zap.Error(err))
	}
}

func (s *EscrowService) publish(ctx context.Context, eventType string, payload map[string]any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.StreamEscrow, events.Event{Type: eventType, Payload: payload}); err != nil {
		s.log.Warn("event publish failed", zap.String("type", eventType), zap.Error(err))
	}
}
