package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/kortix-auth-service/internal/identity"
)

type userContextKey struct{}

// User is the authenticated identity attached to a request.
type User struct {
	ID    string
	Email string
}

// GetUser extracts the authenticated user from the request context.
func GetUser(ctx context.Context) *User {
	user, _ := ctx.Value(userContextKey{}).(*User)
	return user
}

// Authenticate returns middleware that validates Bearer tokens against the
// identity provider and attaches the user identity to the request context.
func Authenticate(verifier identity.TokenVerifier, limiter *AuthAttemptLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attemptKey := clientIPKey(r, "bearer")
			if limiter != nil && !limiter.allow(attemptKey) {
				respondError(w, http.StatusTooManyRequests, "rate_limited", "Too many authentication failures")
				return
			}

			token := extractBearerToken(r)
			if token == "" {
				if limiter != nil {
					limiter.registerFailure(attemptKey)
				}
				respondError(w, http.StatusUnauthorized, "unauthorized", "Missing authorization token")
				return
			}

			claims, err := verifier.VerifyClaims(r.Context(), token)
			if err != nil {
				if limiter != nil {
					limiter.registerFailure(attemptKey)
				}
				respondError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			if claims.UserID == "" {
				if limiter != nil {
					limiter.registerFailure(attemptKey)
				}
				respondError(w, http.StatusUnauthorized, "unauthorized", "Session has no user")
				return
			}

			if limiter != nil {
				limiter.registerSuccess(attemptKey)
			}
			user := &User{ID: claims.UserID, Email: claims.Email}
			ctx := context.WithValue(r.Context(), userContextKey{}, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(auth, "Bearer ")
}
