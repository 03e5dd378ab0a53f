package model

import (
	"time"

	"github.com/google/uuid"
)

type APIKeyStatus string

const (
	StatusActive  APIKeyStatus = "active"
	StatusRevoked APIKeyStatus = "revoked"
)

// APIKey is a stored credential record. The secret key itself is never
// persisted; SecretKeyHash holds the HMAC-SHA256 digest computed at creation.
type APIKey struct {
	KeyID         uuid.UUID    `json:"key_id"`
	AccountID     string       `json:"-"`
	PublicKey     string       `json:"public_key"`
	SecretKeyHash string       `json:"-"`
	Title         string       `json:"title"`
	Description   string       `json:"description,omitempty"`
	Status        APIKeyStatus `json:"status"`
	ExpiresAt     *time.Time   `json:"expires_at,omitempty"`
	LastUsedAt    *time.Time   `json:"last_used_at,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"-"`
}

// Expired reports whether the key carries an expiry that has already passed.
func (k *APIKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && now.After(*k.ExpiresAt)
}
