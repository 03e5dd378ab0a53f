// Package identity validates bearer tokens against the external identity
// provider. Tokens are verified either locally (shared HS256 secret) or by a
// single synchronous call to the provider's session-validation endpoint.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the verified identity attached to a bearer token.
type Claims struct {
	UserID string
	Email  string
}

// TokenVerifier verifies a bearer token and returns the session's identity.
type TokenVerifier interface {
	VerifyClaims(ctx context.Context, rawToken string) (*Claims, error)
}

// JWTVerifier validates HS256 session tokens locally using the secret shared
// with the identity provider.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (v *JWTVerifier) VerifyClaims(_ context.Context, rawToken string) (*Claims, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(rawToken, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	return &Claims{UserID: claims.Subject, Email: claims.Email}, nil
}

// HTTPVerifier validates tokens with a single synchronous call to the
// identity provider's user endpoint. No retries; transient provider failures
// surface to the caller as verification errors.
type HTTPVerifier struct {
	baseURL    string
	serviceKey string
	client     *http.Client
}

func NewHTTPVerifier(baseURL, serviceKey string, timeout time.Duration) *HTTPVerifier {
	return &HTTPVerifier{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		client:     &http.Client{Timeout: timeout},
	}
}

func (v *HTTPVerifier) VerifyClaims(ctx context.Context, rawToken string) (*Claims, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("build user request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+rawToken)
	req.Header.Set("apikey", v.serviceKey)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call identity provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity provider rejected token: status %d", resp.StatusCode)
	}

	var user struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("decode user response: %w", err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("identity provider returned empty user")
	}

	return &Claims{UserID: user.ID, Email: user.Email}, nil
}
