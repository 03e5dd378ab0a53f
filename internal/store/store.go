package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kortix-auth-service/internal/model"
)

// APIKeyStore defines operations for API key management. Mutations that take
// an accountID match only rows owned by that account, so a foreign key id
// behaves exactly like a missing one.
type APIKeyStore interface {
	CreateAPIKey(ctx context.Context, key *model.APIKey) error
	GetAPIKeyByPublicKey(ctx context.Context, publicKey string) (*model.APIKey, error)
	ListAPIKeys(ctx context.Context, accountID string) ([]*model.APIKey, error)
	RevokeAPIKey(ctx context.Context, accountID string, keyID uuid.UUID) error
	DeleteAPIKey(ctx context.Context, accountID string, keyID uuid.UUID) error
	TouchAPIKey(ctx context.Context, keyID uuid.UUID, usedAt time.Time) error
}

// CreditStore defines the read-only credit balance accessor.
type CreditStore interface {
	GetBalance(ctx context.Context, accountID string) (*model.CreditBalance, error)
	SetTier(ctx context.Context, accountID, tier string) error
}

// WebhookEventStore records processed provider events for idempotency.
type WebhookEventStore interface {
	// RecordWebhookEvent inserts the event and reports whether it was new.
	// A duplicate event id returns (false, nil).
	RecordWebhookEvent(ctx context.Context, event *model.WebhookEvent) (bool, error)
}

// Store combines all persistence interfaces served by Postgres.
type Store interface {
	APIKeyStore
	CreditStore
	WebhookEventStore
}
