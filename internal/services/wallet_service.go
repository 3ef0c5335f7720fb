package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/u2kpay/backend/internal/chain"
	"github.com/u2kpay/backend/internal/errs"
	"github.com/u2kpay/backend/internal/models"
)

// WalletRegistry binds participants to chain addresses, one address per
// participant and one participant per address.
type WalletRegistry struct {
	wallets    WalletStore
	audit      AuditStore
	reconciler *Reconciler
	log        *zap.Logger
}

func NewWalletRegistry(wallets WalletStore, audit AuditStore, reconciler *Reconciler, log *zap.Logger) *WalletRegistry {
	return &WalletRegistry{wallets: wallets, audit: audit, reconciler: reconciler, log: log}
}

// Bind registers an address for a participant. The address is normalized to
// its checksum form before storage; the cached balance starts at zero and is
// populated by the first reconcile.
func (s *WalletRegistry) Bind(ctx context.Context, participantID uuid.UUID, address string) (*models.WalletBinding, error) {
	checksummed, err := chain.ChecksumAddress(address)
	if err != nil {
		return nil, errs.Validationf("invalid address: %s", address)
	}
	binding := &models.WalletBinding{
		ID:            uuid.New(),
		ParticipantID: participantID,
		Address:       checksummed,
		CachedBalance: "0",
	}
	if err := s.wallets.Create(ctx, binding); err != nil {
		return nil, err
	}
	if s.audit != nil {
		entry := models.AuditLog{
			ActorUserID: &participantID,
			ActorType:   "user",
			Action:      "wallet.bound",
			EntityType:  "wallet_binding",
			EntityID:    &binding.ID,
			Meta:        map[string]any{"address": checksummed},
		}
		if err := s.audit.Log(ctx, entry); err != nil {
			s.log.Warn("audit log write failed", zap.Error(err))
		}
	}
	if s.reconciler != nil {
		if err := s.reconciler.ReconcileOne(ctx, checksummed); err != nil {
			s.log.Warn("initial balance fetch failed",
				zap.String("address", checksummed), zap.Error(err))
		}
	}
	return binding, nil
}

func (s *WalletRegistry) Get(ctx context.Context, participantID uuid.UUID) (*models.WalletBinding, error) {
	return s.wallets.GetByParticipant(ctx, participantID)
}

func (s *WalletRegistry) GetByAddress(ctx context.Context, address string) (*models.WalletBinding, error) {
	checksummed, err := chain.ChecksumAddress(address)
	if err != nil {
		return nil, errs.Validationf("invalid address: %s", address)
	}
	return s.wallets.GetByAddress(ctx, checksummed)
}

// Balance returns the cached token balance for a participant's wallet. With
// refresh set, the chain is read first; a chain failure falls back to the
// cached value.
func (s *WalletRegistry) Balance(ctx context.Context, participantID uuid.UUID, refresh bool) (*models.WalletBinding, error) {
	binding, err := s.wallets.GetByParticipant(ctx, participantID)
	if err != nil {
		return nil, err
	}
	if refresh && s.reconciler != nil {
		if err := s.reconciler.ReconcileOne(ctx, binding.Address); err != nil {
			s.log.Warn("balance refresh failed, serving cached value",
				zap.String("address", binding.Address), zap.Error(err))
			return binding, nil
		}
		return s.wallets.GetByParticipant(ctx, participantID)
	}
	return binding, nil
}
