package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kortix-auth-service/internal/model"
	"github.com/kortix-auth-service/internal/store"
)

type fakeAPIKeyStore struct {
	keys map[uuid.UUID]*model.APIKey
}

func newFakeAPIKeyStore() *fakeAPIKeyStore {
	return &fakeAPIKeyStore{keys: make(map[uuid.UUID]*model.APIKey)}
}

func (f *fakeAPIKeyStore) CreateAPIKey(_ context.Context, key *model.APIKey) error {
	key.KeyID = uuid.New()
	key.CreatedAt = time.Now().UTC()
	key.UpdatedAt = key.CreatedAt
	f.keys[key.KeyID] = key
	return nil
}

func (f *fakeAPIKeyStore) GetAPIKeyByPublicKey(_ context.Context, publicKey string) (*model.APIKey, error) {
	for _, key := range f.keys {
		if key.PublicKey == publicKey {
			return key, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeAPIKeyStore) ListAPIKeys(_ context.Context, accountID string) ([]*model.APIKey, error) {
	var out []*model.APIKey
	for _, key := range f.keys {
		if key.AccountID == accountID {
			out = append(out, key)
		}
	}
	return out, nil
}

func (f *fakeAPIKeyStore) RevokeAPIKey(_ context.Context, accountID string, keyID uuid.UUID) error {
	key, ok := f.keys[keyID]
	if !ok || key.AccountID != accountID || key.Status != model.StatusActive {
		return store.ErrNotFound
	}
	key.Status = model.StatusRevoked
	return nil
}

func (f *fakeAPIKeyStore) DeleteAPIKey(_ context.Context, accountID string, keyID uuid.UUID) error {
	key, ok := f.keys[keyID]
	if !ok || key.AccountID != accountID {
		return store.ErrNotFound
	}
	delete(f.keys, keyID)
	return nil
}

func (f *fakeAPIKeyStore) TouchAPIKey(_ context.Context, keyID uuid.UUID, usedAt time.Time) error {
	key, ok := f.keys[keyID]
	if !ok {
		return store.ErrNotFound
	}
	key.LastUsedAt = &usedAt
	return nil
}

const testPepper = "unit-test-hashing-pepper"

func expectServiceError(t *testing.T, err error, kind ErrorKind) *Error {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	svcErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *service.Error, got %T: %v", err, err)
	}
	if svcErr.Kind != kind {
		t.Fatalf("unexpected error kind: got %v want %v (%v)", svcErr.Kind, kind, err)
	}
	return svcErr
}

func TestHashSecretKeyDeterministic(t *testing.T) {
	svc := NewAPIKeyService(newFakeAPIKeyStore(), testPepper)

	a := svc.HashSecretKey("sk_deadbeef")
	b := svc.HashSecretKey("sk_deadbeef")
	if a != b {
		t.Fatalf("expected deterministic hash, got %q and %q", a, b)
	}

	other := NewAPIKeyService(newFakeAPIKeyStore(), "another-pepper-entirely")
	if other.HashSecretKey("sk_deadbeef") == a {
		t.Fatal("expected a different pepper to change the digest")
	}

	if svc.HashSecretKey("sk_cafebabe") == a {
		t.Fatal("expected different inputs to produce different digests")
	}
}

func TestCreateAPIKey(t *testing.T) {
	fs := newFakeAPIKeyStore()
	svc := NewAPIKeyService(fs, testPepper)
	ctx := context.Background()

	t.Run("generates prefixed fixed-length keys", func(t *testing.T) {
		days := 30
		result, err := svc.Create(ctx, "acct-1", CreateAPIKeyInput{
			Title:         "CI key",
			ExpiresInDays: &days,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if !strings.HasPrefix(result.SecretKey, "sk_") {
			t.Fatalf("unexpected secret key prefix: %s", result.SecretKey)
		}
		if !strings.HasPrefix(result.APIKey.PublicKey, "pk_") {
			t.Fatalf("unexpected public key prefix: %s", result.APIKey.PublicKey)
		}
		if len(result.SecretKey) != len("sk_")+2*keyRandomBytes {
			t.Fatalf("unexpected secret key length: %d", len(result.SecretKey))
		}
		if len(result.APIKey.PublicKey) != len("pk_")+2*keyRandomBytes {
			t.Fatalf("unexpected public key length: %d", len(result.APIKey.PublicKey))
		}
		if result.APIKey.Status != model.StatusActive {
			t.Fatalf("unexpected status: %s", result.APIKey.Status)
		}
		if result.APIKey.ExpiresAt == nil {
			t.Fatal("expected expires_at to be set")
		}
	})

	t.Run("persists only the digest", func(t *testing.T) {
		result, err := svc.Create(ctx, "acct-1", CreateAPIKeyInput{Title: "digest key"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		stored := fs.keys[result.APIKey.KeyID]
		if stored.SecretKeyHash == result.SecretKey {
			t.Fatal("secret key was stored in plaintext")
		}
		if stored.SecretKeyHash != svc.HashSecretKey(result.SecretKey) {
			t.Fatal("stored digest does not match the secret's HMAC")
		}
	})

	t.Run("rejects missing title", func(t *testing.T) {
		_, err := svc.Create(ctx, "acct-1", CreateAPIKeyInput{Title: "  "})
		expectServiceError(t, err, ErrBadRequest)
	})

	t.Run("rejects out-of-range expiry", func(t *testing.T) {
		days := 400
		_, err := svc.Create(ctx, "acct-1", CreateAPIKeyInput{Title: "k", ExpiresInDays: &days})
		expectServiceError(t, err, ErrBadRequest)
	})
}

func TestListNeverExposesSecretMaterial(t *testing.T) {
	fs := newFakeAPIKeyStore()
	svc := NewAPIKeyService(fs, testPepper)
	ctx := context.Background()

	result, err := svc.Create(ctx, "acct-1", CreateAPIKeyInput{Title: "CI key"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	keys, err := svc.List(ctx, "acct-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("unexpected key count: %d", len(keys))
	}

	serialized, err := json.Marshal(keys)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(serialized)
	if strings.Contains(body, result.SecretKey) {
		t.Fatal("list output contains the plaintext secret")
	}
	if strings.Contains(body, keys[0].SecretKeyHash) {
		t.Fatal("list output contains the secret hash")
	}
	if !strings.Contains(body, result.APIKey.PublicKey) {
		t.Fatal("list output is missing the public key")
	}
	if !strings.Contains(body, `"title":"CI key"`) {
		t.Fatal("list output is missing the title")
	}
}

func TestRevokeAPIKey(t *testing.T) {
	fs := newFakeAPIKeyStore()
	svc := NewAPIKeyService(fs, testPepper)
	ctx := context.Background()

	result, err := svc.Create(ctx, "acct-1", CreateAPIKeyInput{Title: "to revoke"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	keyID := result.APIKey.KeyID

	t.Run("revokes an owned active key", func(t *testing.T) {
		if err := svc.Revoke(ctx, "acct-1", keyID); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if fs.keys[keyID].Status != model.StatusRevoked {
			t.Fatalf("unexpected status: %s", fs.keys[keyID].Status)
		}
	})

	t.Run("second revoke reports not found", func(t *testing.T) {
		err := svc.Revoke(ctx, "acct-1", keyID)
		expectServiceError(t, err, ErrNotFound)
	})

	t.Run("foreign key reports not found", func(t *testing.T) {
		other, err := svc.Create(ctx, "acct-2", CreateAPIKeyInput{Title: "other account"})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		err = svc.Revoke(ctx, "acct-1", other.APIKey.KeyID)
		expectServiceError(t, err, ErrNotFound)
	})

	t.Run("absent key reports not found", func(t *testing.T) {
		err := svc.Revoke(ctx, "acct-1", uuid.New())
		expectServiceError(t, err, ErrNotFound)
	})
}

func TestDeleteAPIKey(t *testing.T) {
	fs := newFakeAPIKeyStore()
	svc := NewAPIKeyService(fs, testPepper)
	ctx := context.Background()

	result, err := svc.Create(ctx, "acct-1", CreateAPIKeyInput{Title: "to delete"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(ctx, "acct-1", result.APIKey.KeyID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, ok := fs.keys[result.APIKey.KeyID]; ok {
		t.Fatal("expected record to be removed")
	}

	err = svc.Delete(ctx, "acct-1", result.APIKey.KeyID)
	expectServiceError(t, err, ErrNotFound)
}

func TestVerifyAPIKey(t *testing.T) {
	fs := newFakeAPIKeyStore()
	svc := NewAPIKeyService(fs, testPepper)
	ctx := context.Background()

	result, err := svc.Create(ctx, "acct-1", CreateAPIKeyInput{Title: "service key"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	t.Run("accepts the correct pair and stamps usage", func(t *testing.T) {
		key, err := svc.Verify(ctx, result.APIKey.PublicKey, result.SecretKey)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if key.LastUsedAt == nil {
			t.Fatal("expected last_used_at to be stamped")
		}
		if key.AccountID != "acct-1" {
			t.Fatalf("unexpected account: %s", key.AccountID)
		}
	})

	t.Run("rejects a wrong secret", func(t *testing.T) {
		_, err := svc.Verify(ctx, result.APIKey.PublicKey, "sk_"+strings.Repeat("0", 64))
		expectServiceError(t, err, ErrUnauthorized)
	})

	t.Run("rejects an unknown public key", func(t *testing.T) {
		_, err := svc.Verify(ctx, "pk_"+strings.Repeat("0", 64), result.SecretKey)
		expectServiceError(t, err, ErrUnauthorized)
	})

	t.Run("rejects an expired key", func(t *testing.T) {
		days := 1
		expired, err := svc.Create(ctx, "acct-1", CreateAPIKeyInput{Title: "expired", ExpiresInDays: &days})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		past := time.Now().UTC().Add(-time.Hour)
		fs.keys[expired.APIKey.KeyID].ExpiresAt = &past

		_, err = svc.Verify(ctx, expired.APIKey.PublicKey, expired.SecretKey)
		expectServiceError(t, err, ErrUnauthorized)
	})

	t.Run("rejects a revoked key", func(t *testing.T) {
		revoked, err := svc.Create(ctx, "acct-1", CreateAPIKeyInput{Title: "revoked"})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := svc.Revoke(ctx, "acct-1", revoked.APIKey.KeyID); err != nil {
			t.Fatalf("revoke: %v", err)
		}

		_, err = svc.Verify(ctx, revoked.APIKey.PublicKey, revoked.SecretKey)
		expectServiceError(t, err, ErrUnauthorized)
	})
}
