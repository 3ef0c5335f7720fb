package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/u2kpay/backend/internal/errs"
)

// IdentifierMapper maintains the correspondence between application bill IDs
// and the numeric bill IDs assigned by the contract. The mapping is stored on
// the escrow row itself; there is no fallback identifier, so an escrow whose
// chain ID was never recorded cannot be paid or rejected.
type IdentifierMapper struct {
	escrows EscrowStore
}

func NewIdentifierMapper(escrows EscrowStore) *IdentifierMapper {
	return &IdentifierMapper{escrows: escrows}
}

// Record stores the on-chain bill ID for an escrow. Recording the same value
// twice is a no-op; recording a different value fails with a conflict.
func (m *IdentifierMapper) Record(ctx context.Context, escrowID uuid.UUID, chainBillID int64) error {
	return m.escrows.SetChainBillID(ctx, escrowID, chainBillID)
}

// Resolve returns the on-chain bill ID for an escrow.
func (m *IdentifierMapper) Resolve(ctx context.Context, escrowID uuid.UUID) (int64, error) {
	e, err := m.escrows.GetByID(ctx, escrowID)
	if err != nil {
		return 0, err
	}
	if e.ChainBillID == nil {
		return 0, errs.NotFoundf("escrow %s has no on-chain bill id", escrowID)
	}
	return *e.ChainBillID, nil
}

// ResolveBill is Resolve keyed by the application bill ID.
func (m *IdentifierMapper) ResolveBill(ctx context.Context, billID string) (int64, error) {
	e, err := m.escrows.GetByBillID(ctx, billID)
	if err != nil {
		return 0, err
	}
	if e.ChainBillID == nil {
		return 0, errs.NotFoundf("bill %s has no on-chain bill id", billID)
	}
	return *e.ChainBillID, nil
}
