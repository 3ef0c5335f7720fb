package services

import (
	"context"
	"math/big"

	"github.com/google/uuid"

	"github.com/u2kpay/backend/internal/chain"
	"github.com/u2kpay/backend/internal/models"
)

// The services consume their collaborators through interfaces so the chain
// and the persistence layer can be substituted in tests. The pgx repos and
// chain.Client are the production implementations.

// Ledger is the contract surface of the deployed bill-escrow and token
// contracts. Every method takes a context and blocks at most until the
// configured confirmation timeout.
type Ledger interface {
	CreateBill(ctx context.Context, auth chain.Authorization, sponsor, destination string, amount *big.Int, description string) (txHash string, onChainID int64, err error)
	PayBillWithNative(ctx context.Context, auth chain.Authorization, billID int64, value *big.Int) (string, error)
	PayBillWithToken(ctx context.Context, auth chain.Authorization, billID int64) (string, error)
	Approve(ctx context.Context, auth chain.Authorization, amount *big.Int) (string, error)
	RejectBill(ctx context.Context, auth chain.Authorization, billID int64) (string, error)
	GetBill(ctx context.Context, billID int64) (*chain.Bill, error)
	BeneficiaryBills(ctx context.Context, addr string) ([]int64, error)
	SponsorBills(ctx context.Context, addr string) ([]int64, error)
	TokenBalance(ctx context.Context, addr string) (*big.Int, error)
	NativeBalance(ctx context.Context, addr string) (*big.Int, error)
	Allowance(ctx context.Context, owner string) (*big.Int, error)
	Decimals() int
}

type EscrowStore interface {
	Create(ctx context.Context, e *models.EscrowRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.EscrowRequest, error)
	GetByBillID(ctx context.Context, billID string) (*models.EscrowRequest, error)
	SetChainBillID(ctx context.Context, id uuid.UUID, chainBillID int64) error
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to string, txHash, paymentType *string) error
}

type WalletStore interface {
	Create(ctx context.Context, w *models.WalletBinding) error
	GetByParticipant(ctx context.Context, participantID uuid.UUID) (*models.WalletBinding, error)
	GetByAddress(ctx context.Context, address string) (*models.WalletBinding, error)
	List(ctx context.Context) ([]models.WalletBinding, error)
	UpdateCachedBalance(ctx context.Context, address, balance string) error
}

type BillStore interface {
	Find(ctx context.Context, id uuid.UUID) (*models.Bill, error)
	MarkPaid(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID) error
}

type AuditStore interface {
	Log(ctx context.Context, entry models.AuditLog) error
	GetByEntity(ctx context.Context, entityType string, entityID uuid.UUID, limit, offset int) ([]models.AuditLog, error)
}
