package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kortix-auth-service/internal/identity"
)

type fakeVerifier struct {
	claims *identity.Claims
	err    error
}

func (f *fakeVerifier) VerifyClaims(_ context.Context, _ string) (*identity.Claims, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.claims, nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetUser(r.Context())
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"id":%q,"email":%q}`, user.ID, user.Email)
	})
}

func parseErrorResponse(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp.Error
}

func TestAuthenticateValidToken(t *testing.T) {
	verifier := &fakeVerifier{
		claims: &identity.Claims{UserID: "user-1", Email: "user@example.com"},
	}
	handler := Authenticate(verifier, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/account", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.ID != "user-1" || body.Email != "user@example.com" {
		t.Fatalf("expected user identity in context, got %+v", body)
	}
}

func TestAuthenticateMissingHeader(t *testing.T) {
	handler := Authenticate(&fakeVerifier{}, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/account", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if code := parseErrorResponse(t, rec); code != "unauthorized" {
		t.Fatalf("expected 'unauthorized' error code, got %q", code)
	}
}

func TestAuthenticateMalformedHeader(t *testing.T) {
	handler := Authenticate(&fakeVerifier{}, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/account", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthenticateInvalidToken(t *testing.T) {
	verifier := &fakeVerifier{err: fmt.Errorf("signature mismatch")}
	handler := Authenticate(verifier, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/account", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthenticateEmptyUser(t *testing.T) {
	verifier := &fakeVerifier{claims: &identity.Claims{UserID: ""}}
	handler := Authenticate(verifier, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/account", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthenticateLimiterBlocksRepeatedFailures(t *testing.T) {
	verifier := &fakeVerifier{err: fmt.Errorf("bad token")}
	limiter := NewAuthAttemptLimiter(2, time.Minute, time.Minute)
	handler := Authenticate(verifier, limiter)(okHandler())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/v1/account", nil)
		req.RemoteAddr = "198.51.100.7:4242"
		req.Header.Set("Authorization", "Bearer bad")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/account", nil)
	req.RemoteAddr = "198.51.100.7:4242"
	req.Header.Set("Authorization", "Bearer bad")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after limiter block, got %d", rec.Code)
	}
}
