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

type WalletRepo struct {
	pool *pgxpool.Pool
}

func NewWalletRepo(pool *pgxpool.Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// Create inserts a new binding. Unique constraints enforce the 1:1 pairing
// in both directions; violations surface as conflicts naming the side that
// collided.
func (r *WalletRepo) Create(ctx context.Context, w *models.WalletBinding) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO wallet_bindings (participant_id, address, cached_balance)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, w.ParticipantID, w.Address, w.CachedBalance).Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
	switch violatedConstraint(err) {
	case "wallet_bindings_participant_id_key":
		return errs.Conflictf("participant %s already has a wallet binding", w.ParticipantID)
	case "wallet_bindings_address_key":
		return errs.Conflictf("address %s is already bound to another participant", w.Address)
	}
	if isUniqueViolation(err) {
		return errs.Conflictf("wallet binding already exists")
	}
	return err
}

func (r *WalletRepo) GetByParticipant(ctx context.Context, participantID uuid.UUID) (*models.WalletBinding, error) {
	return r.scanOne(r.pool.QueryRow(ctx, `
		SELECT id, participant_id, address, cached_balance::text, created_at, updated_at
		FROM wallet_bindings WHERE participant_id = $1
	`, participantID), "wallet binding for participant "+participantID.String())
}

func (r *WalletRepo) GetByAddress(ctx context.Context, address string) (*models.WalletBinding, error) {
	return r.scanOne(r.pool.QueryRow(ctx, `
		SELECT id, participant_id, address, cached_balance::text, created_at, updated_at
		FROM wallet_bindings WHERE address = $1
	`, address), "wallet binding for address "+address)
}

func (r *WalletRepo) List(ctx context.Context) ([]models.WalletBinding, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, participant_id, address, cached_balance::text, created_at, updated_at
		FROM wallet_bindings ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.WalletBinding
	for rows.Next() {
		var w models.WalletBinding
		if err := rows.Scan(&w.ID, &w.ParticipantID, &w.Address, &w.CachedBalance, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// UpdateCachedBalance overwrites the cached balance unconditionally; the
// on-chain value is the single source of truth, so last-write-wins is
// correct and no merge logic is needed.
func (r *WalletRepo) UpdateCachedBalance(ctx context.Context, address, balance string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE wallet_bindings SET cached_balance = $1, updated_at = now()
		WHERE address = $2
	`, balance, address)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFoundf("wallet binding for address %s not found", address)
	}
	return nil
}

func (r *WalletRepo) scanOne(row pgx.Row, what string) (*models.WalletBinding, error) {
	var w models.WalletBinding
	err := row.Scan(&w.ID, &w.ParticipantID, &w.Address, &w.CachedBalance, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NotFoundf("%s not found", what)
		}
		return nil, err
	}
	return &w, nil
}
