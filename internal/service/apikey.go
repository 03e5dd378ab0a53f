package service

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kortix-auth-service/internal/model"
	"github.com/kortix-auth-service/internal/store"
	"github.com/kortix-auth-service/internal/validation"
)

const (
	publicKeyPrefix = "pk_"
	secretKeyPrefix = "sk_"
	keyRandomBytes  = 32
)

// APIKeyService handles API key business logic. The secret key is returned
// to the caller exactly once at creation; only its HMAC digest is persisted.
type APIKeyService struct {
	store  store.APIKeyStore
	secret []byte
}

// NewAPIKeyService creates a new API key service. secret is the server-held
// HMAC pepper used for hashing secret keys at rest.
func NewAPIKeyService(s store.APIKeyStore, secret string) *APIKeyService {
	return &APIKeyService{store: s, secret: []byte(secret)}
}

// CreateAPIKeyInput contains the parameters for creating a new API key.
type CreateAPIKeyInput struct {
	Title         string
	Description   string
	ExpiresInDays *int
}

// CreateAPIKeyResult contains the output of a successful key creation.
// SecretKey is the only copy of the plaintext secret that will ever exist.
type CreateAPIKeyResult struct {
	APIKey    *model.APIKey
	SecretKey string
}

// Create validates input, generates a pk_/sk_ key pair, and persists the
// record with the secret's HMAC digest.
func (s *APIKeyService) Create(ctx context.Context, accountID string, input CreateAPIKeyInput) (*CreateAPIKeyResult, error) {
	if err := validation.Title(input.Title); err != nil {
		return nil, NewBadRequest("invalid_request", err.Error())
	}
	if err := validation.Description(input.Description); err != nil {
		return nil, NewBadRequest("invalid_request", err.Error())
	}
	if err := validation.ExpiresInDays(input.ExpiresInDays); err != nil {
		return nil, NewBadRequest("invalid_request", err.Error())
	}

	publicKey, err := generateKey(publicKeyPrefix)
	if err != nil {
		log.Error().Err(err).Msg("failed to generate public key")
		return nil, NewInternal("internal_error", "Failed to create API key")
	}
	secretKey, err := generateKey(secretKeyPrefix)
	if err != nil {
		log.Error().Err(err).Msg("failed to generate secret key")
		return nil, NewInternal("internal_error", "Failed to create API key")
	}

	var expiresAt *time.Time
	if input.ExpiresInDays != nil {
		t := time.Now().UTC().AddDate(0, 0, *input.ExpiresInDays)
		expiresAt = &t
	}

	apiKey := &model.APIKey{
		AccountID:     accountID,
		PublicKey:     publicKey,
		SecretKeyHash: s.HashSecretKey(secretKey),
		Title:         strings.TrimSpace(input.Title),
		Description:   input.Description,
		Status:        model.StatusActive,
		ExpiresAt:     expiresAt,
	}

	if err := s.store.CreateAPIKey(ctx, apiKey); err != nil {
		log.Error().Err(err).Msg("failed to create API key")
		return nil, NewInternal("internal_error", "Failed to create API key")
	}

	return &CreateAPIKeyResult{APIKey: apiKey, SecretKey: secretKey}, nil
}

// List returns all key records for the account, newest first. Neither the
// secret key nor its hash is ever part of the result's JSON form.
func (s *APIKeyService) List(ctx context.Context, accountID string) ([]*model.APIKey, error) {
	keys, err := s.store.ListAPIKeys(ctx, accountID)
	if err != nil {
		log.Error().Err(err).Msg("failed to list API keys")
		return nil, NewInternal("internal_error", "Failed to list API keys")
	}
	return keys, nil
}

// Revoke transitions an owned, active key to revoked.
func (s *APIKeyService) Revoke(ctx context.Context, accountID string, keyID uuid.UUID) error {
	err := s.store.RevokeAPIKey(ctx, accountID, keyID)
	if err != nil {
		if store.IsNotFound(err) {
			return NewNotFound("not_found", "API key not found")
		}
		log.Error().Err(err).Str("key_id", keyID.String()).Msg("failed to revoke API key")
		return NewInternal("internal_error", "Failed to revoke API key")
	}
	return nil
}

// Delete hard-removes an owned key record.
func (s *APIKeyService) Delete(ctx context.Context, accountID string, keyID uuid.UUID) error {
	err := s.store.DeleteAPIKey(ctx, accountID, keyID)
	if err != nil {
		if store.IsNotFound(err) {
			return NewNotFound("not_found", "API key not found")
		}
		log.Error().Err(err).Str("key_id", keyID.String()).Msg("failed to delete API key")
		return NewInternal("internal_error", "Failed to delete API key")
	}
	return nil
}

// Verify authenticates a pk/sk pair for resource servers. It recomputes the
// HMAC, compares in constant time, rejects revoked and expired keys, and
// stamps last_used_at.
func (s *APIKeyService) Verify(ctx context.Context, publicKey, secretKey string) (*model.APIKey, error) {
	if !strings.HasPrefix(publicKey, publicKeyPrefix) || !strings.HasPrefix(secretKey, secretKeyPrefix) {
		return nil, NewUnauthorized("invalid_api_key", "Invalid API key")
	}

	apiKey, err := s.store.GetAPIKeyByPublicKey(ctx, publicKey)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, NewUnauthorized("invalid_api_key", "Invalid API key")
		}
		log.Error().Err(err).Msg("failed to look up API key")
		return nil, NewInternal("internal_error", "Failed to verify API key")
	}

	digest := s.HashSecretKey(secretKey)
	if subtle.ConstantTimeCompare([]byte(digest), []byte(apiKey.SecretKeyHash)) != 1 {
		return nil, NewUnauthorized("invalid_api_key", "Invalid API key")
	}

	if apiKey.Status != model.StatusActive {
		return nil, NewUnauthorized("invalid_api_key", "API key has been revoked")
	}
	if apiKey.Expired(time.Now().UTC()) {
		return nil, NewUnauthorized("invalid_api_key", "API key has expired")
	}

	now := time.Now().UTC()
	if err := s.store.TouchAPIKey(ctx, apiKey.KeyID, now); err != nil {
		// A failed usage stamp must not fail an otherwise valid check.
		log.Error().Err(err).Str("key_id", apiKey.KeyID.String()).Msg("failed to stamp last_used_at")
	} else {
		apiKey.LastUsedAt = &now
	}

	return apiKey, nil
}

// HashSecretKey returns the hex HMAC-SHA256 digest of the secret key under
// the server pepper. Deterministic for a fixed pepper.
func (s *APIKeyService) HashSecretKey(secretKey string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(secretKey))
	return hex.EncodeToString(mac.Sum(nil))
}

func generateKey(prefix string) (string, error) {
	b := make([]byte, keyRandomBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("crypto/rand failed: %w", err)
	}
	return prefix + hex.EncodeToString(b), nil
}
