package models

import (
	"time"

	"github.com/google/uuid"
)

// Escrow statuses. Pending is the only non-terminal state: once an escrow
// is confirmed or rejected it never transitions again.
const (
	EscrowStatusPending   = "pending"
	EscrowStatusConfirmed = "confirmed"
	EscrowStatusRejected  = "rejected"
)

// Payment types
const (
	PaymentTypeNative = "native"
	PaymentTypeToken  = "token"
)

// Valid state transitions: from -> []to
var ValidEscrowTransitions = map[string][]string{
	EscrowStatusPending:   {EscrowStatusConfirmed, EscrowStatusRejected},
	EscrowStatusConfirmed: {},
	EscrowStatusRejected:  {},
}

func IsValidEscrowTransition(from, to string) bool {
	allowed, ok := ValidEscrowTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

func IsTerminalEscrowStatus(status string) bool {
	allowed, ok := ValidEscrowTransitions[status]
	return ok && len(allowed) == 0
}

func IsValidPaymentType(t string) bool {
	return t == PaymentTypeNative || t == PaymentTypeToken
}

// EscrowRequest tracks one bill's on-chain payment lifecycle. The row is
// append-only from the caller's perspective: status moves pending ->
// confirmed/rejected exactly once, and ChainBillID is assigned exactly once
// at creation time and never changes afterwards.
type EscrowRequest struct {
	ID                 uuid.UUID `json:"id"`
	BillID             string    `json:"bill_id"`
	ChainBillID        *int64    `json:"chain_bill_id,omitempty"`
	BeneficiaryAddress string    `json:"beneficiary_address"`
	SponsorAddress     string    `json:"sponsor_address"`
	PaymentDestination string    `json:"payment_destination"`
	Amount             string    `json:"amount"` // numeric as string, human units
	Description        string    `json:"description"`
	Status             string    `json:"status"`
	PaymentType        *string   `json:"payment_type,omitempty"`
	TxHash             *string   `json:"tx_hash,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
