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

// BillRepo is the bill record store. Escrow lifecycle is authoritative on its
// own; bill status here is an informational cross-link.
type BillRepo struct {
	pool *pgxpool.Pool
}

func NewBillRepo(pool *pgxpool.Pool) *BillRepo {
	return &BillRepo{pool: pool}
}

func (r *BillRepo) Create(ctx context.Context, b *models.Bill) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO bills (owner_user_id, amount, description, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, b.OwnerUserID, b.Amount, b.Description, b.Status).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

func (r *BillRepo) Find(ctx context.Context, id uuid.UUID) (*models.Bill, error) {
	var b models.Bill
	err := r.pool.QueryRow(ctx, `
		SELECT id, owner_user_id, amount::text, description, status, created_at, updated_at
		FROM bills WHERE id = $1
	`, id).Scan(&b.ID, &b.OwnerUserID, &b.Amount, &b.Description, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NotFoundf("bill %s not found", id)
		}
		return nil, err
	}
	return &b, nil
}

func (r *BillRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]models.Bill, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, owner_user_id, amount::text, description, status, created_at, updated_at
		FROM bills WHERE owner_user_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Bill
	for rows.Next() {
		var b models.Bill
		if err := rows.Scan(&b.ID, &b.OwnerUserID, &b.Amount, &b.Description, &b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *BillRepo) MarkPaid(ctx context.Context, id uuid.UUID) error {
	return r.setStatus(ctx, id, models.BillStatusPaid)
}

func (r *BillRepo) MarkFailed(ctx context.Context, id uuid.UUID) error {
	return r.setStatus(ctx, id, models.BillStatusFailed)
}

func (r *BillRepo) setStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE bills SET status = $1, updated_at = now() WHERE id = $2
	`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFoundf("bill %s not found", id)
	}
	return nil
}
