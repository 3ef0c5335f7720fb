package models

import (
	"time"

	"github.com/google/uuid"
)

// Bill record statuses. The escrow lifecycle is authoritative; these are
// informational cross-links maintained alongside it.
const (
	BillStatusUnpaid = "unpaid"
	BillStatusPaid   = "paid"
	BillStatusFailed = "failed"
)

type Bill struct {
	ID          uuid.UUID `json:"id"`
	OwnerUserID uuid.UUID `json:"owner_user_id"`
	Amount      string    `json:"amount"` // numeric as string
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
