package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kortix-auth-service/internal/model"
)

// GetBalance reads the single credit row for the account. A missing row is
// not an error: new accounts read as zero balance with tier "none".
func (p *Postgres) GetBalance(ctx context.Context, accountID string) (*model.CreditBalance, error) {
	var (
		balance             *float64
		expiringCredits     *float64
		nonExpiringCredits  *float64
		dailyCreditsBalance *float64
		tier                *string
	)

	err := p.pool.QueryRow(ctx, `
		SELECT balance, expiring_credits, non_expiring_credits, daily_credits_balance, tier
		FROM credit_accounts WHERE account_id = $1
	`, accountID).Scan(&balance, &expiringCredits, &nonExpiringCredits, &dailyCreditsBalance, &tier)
	if err == pgx.ErrNoRows {
		return model.ZeroBalance(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("query credit_account: %w", err)
	}

	out := model.ZeroBalance()
	if balance != nil {
		out.Balance = *balance
	}
	if expiringCredits != nil {
		out.ExpiringCredits = *expiringCredits
	}
	if nonExpiringCredits != nil {
		out.NonExpiringCredits = *nonExpiringCredits
	}
	if dailyCreditsBalance != nil {
		out.DailyCreditsBalance = *dailyCreditsBalance
	}
	if tier != nil && *tier != "" {
		out.Tier = *tier
	}
	return out, nil
}

// SetTier upserts the account's tier. Used by the webhook receiver when the
// billing provider reports a subscription change; credit amounts stay owned
// by the billing backend.
func (p *Postgres) SetTier(ctx context.Context, accountID, tier string) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO credit_accounts (account_id, tier)
		VALUES ($1, $2)
		ON CONFLICT (account_id) DO UPDATE SET tier = EXCLUDED.tier, updated_at = NOW()
	`, accountID, tier)
	if err != nil {
		return fmt.Errorf("set tier: %w", err)
	}
	return nil
}
