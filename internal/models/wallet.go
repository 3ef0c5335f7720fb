package models

import (
	"time"

	"github.com/google/uuid"
)

// WalletBinding associates a participant with exactly one ledger address.
// The pairing is 1:1 both ways, enforced by unique constraints on both
// columns. CachedBalance is a read-model cache only; the authoritative value
// always comes from the chain at reconciliation time.
type WalletBinding struct {
	ID            uuid.UUID `json:"id"`
	ParticipantID uuid.UUID `json:"participant_id"`
	Address       string    `json:"address"` // EIP-55 checksummed
	CachedBalance string    `json:"cached_balance"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
