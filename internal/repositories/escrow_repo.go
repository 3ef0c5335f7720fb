package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/u2kpay/backend/internal/errs"
	"github.com/u2kpay/backend/internal/models"
)

type EscrowRepo struct {
	pool *pgxpool.Pool
}

func NewEscrowRepo(pool *pgxpool.Pool) *EscrowRepo {
	return &EscrowRepo{pool: pool}
}

// amount reads back as text so NUMERIC precision survives the round trip.
const escrowColumns = `
	id, bill_id, chain_bill_id, beneficiary_address, sponsor_address,
	payment_destination, amount::text, description, status, payment_type, tx_hash,
	created_at, updated_at`

func (r *EscrowRepo) Create(ctx context.Context, e *models.EscrowRequest) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO escrow_requests (
			bill_id, chain_bill_id, beneficiary_address, sponsor_address,
			payment_destination, amount, description, status, tx_hash
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`, e.BillID, e.ChainBillID, e.BeneficiaryAddress, e.SponsorAddress,
		e.PaymentDestination, e.Amount, e.Description, e.Status, e.TxHash,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if isUniqueViolation(err) {
		return errs.Conflictf("escrow request already exists for bill %s", e.BillID)
	}
	return err
}

func (r *EscrowRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.EscrowRequest, error) {
	return r.scanOne(r.pool.QueryRow(ctx, `
		SELECT `+escrowColumns+`
		FROM escrow_requests WHERE id = $1
	`, id), "escrow request "+id.String())
}

func (r *EscrowRepo) GetByBillID(ctx context.Context, billID string) (*models.EscrowRequest, error) {
	return r.scanOne(r.pool.QueryRow(ctx, `
		SELECT `+escrowColumns+`
		FROM escrow_requests WHERE bill_id = $1
	`, billID), "escrow request for bill "+billID)
}

// SetChainBillID records the on-chain identifier for a bill. The update is an
// idempotent no-op when the identical id is already stored, and refuses to
// overwrite a different one.
func (r *EscrowRepo) SetChainBillID(ctx context.Context, id uuid.UUID, chainBillID int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE escrow_requests SET chain_bill_id = $1, updated_at = now()
		WHERE id = $2 AND (chain_bill_id IS NULL OR chain_bill_id = $1)
	`, chainBillID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.Conflictf("escrow request %s already mapped to a different on-chain bill id", id)
	}
	return nil
}

// UpdateStatus performs the atomic check-and-set transition guard: the row
// only changes if it is still in the expected prior status, closing the
// read-then-write race between concurrent pay/reject attempts.
func (r *EscrowRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string, txHash, paymentType *string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE escrow_requests
		SET status = $1,
		    tx_hash = COALESCE($2, tx_hash),
		    payment_type = COALESCE($3, payment_type),
		    updated_at = now()
		WHERE id = $4 AND status = $5
	`, to, txHash, paymentType, id, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.Conflictf("escrow request %s is no longer %s", id, from)
	}
	return nil
}

func (r *EscrowRepo) ListByStatus(ctx context.Context, status string, limit int) ([]models.EscrowRequest, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+escrowColumns+`
		FROM escrow_requests WHERE status = $1
		ORDER BY created_at ASC LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.EscrowRequest
	for rows.Next() {
		var e models.EscrowRequest
		if err := scanEscrow(rows, &e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *EscrowRepo) scanOne(row pgx.Row, what string) (*models.EscrowRequest, error) {
	var e models.EscrowRequest
	if err := scanEscrow(row, &e); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NotFoundf("%s not found", what)
		}
		return nil, err
	}
	return &e, nil
}

func scanEscrow(row pgx.Row, e *models.EscrowRequest) error {
	return row.Scan(
		&e.ID, &e.BillID, &e.ChainBillID, &e.BeneficiaryAddress, &e.SponsorAddress,
		&e.PaymentDestination, &e.Amount, &e.Description, &e.Status, &e.PaymentType,
		&e.TxHash, &e.CreatedAt, &e.UpdatedAt,
	)
}
