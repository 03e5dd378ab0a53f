package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/kortix-auth-service/internal/model"
	"github.com/kortix-auth-service/internal/store"
)

// CreditService is the read-only view over an account's credit row.
type CreditService struct {
	store store.CreditStore
}

func NewCreditService(s store.CreditStore) *CreditService {
	return &CreditService{store: s}
}

// GetBalance returns the account's balance snapshot. Accounts without a
// credit row read as zero balance with tier "none" rather than failing.
func (s *CreditService) GetBalance(ctx context.Context, accountID string) (*model.CreditBalance, error) {
	balance, err := s.store.GetBalance(ctx, accountID)
	if err != nil {
		log.Error().Err(err).Msg("failed to read credit balance")
		return nil, NewInternal("internal_error", "Failed to read credit balance")
	}
	return balance, nil
}
