package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimiter implements per-account fixed-window rate limiting for
// authenticated routes. Limits are uniform across accounts and come from
// service configuration.
type RateLimiter struct {
	mu          sync.Mutex
	counters    map[string]*window
	max         int
	window      time.Duration
	lastCleanup time.Time
}

type window struct {
	count       int
	windowStart time.Time
	resetAt     time.Time
	lastSeen    time.Time
}

const (
	cleanupInterval    = 5 * time.Minute
	expiredWindowGrace = 10 * time.Minute
	staleEntryTTL      = 24 * time.Hour
)

// NewRateLimiter creates a new in-memory rate limiter allowing max requests
// per windowSeconds for each account.
func NewRateLimiter(max, windowSeconds int) *RateLimiter {
	return &RateLimiter{
		counters:    make(map[string]*window),
		max:         max,
		window:      time.Duration(windowSeconds) * time.Second,
		lastCleanup: time.Now(),
	}
}

// Allow checks if the account is within its rate limit.
// Returns (allowed, remaining, resetAt).
func (rl *RateLimiter) Allow(accountID string) (bool, int, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	w, exists := rl.counters[accountID]
	if !exists || now.After(w.resetAt) {
		rl.counters[accountID] = &window{
			count:       1,
			windowStart: now,
			resetAt:     now.Add(rl.window),
			lastSeen:    now,
		}
		rl.cleanupLocked(now)
		return true, rl.max - 1, now.Add(rl.window)
	}

	w.lastSeen = now
	resetAt := w.resetAt

	if w.count >= rl.max {
		rl.cleanupLocked(now)
		return false, 0, resetAt
	}

	w.count++
	rl.cleanupLocked(now)
	return true, rl.max - w.count, resetAt
}

// RateLimitMiddleware returns middleware that enforces per-account limits.
// Unauthenticated requests pass through; the auth middleware in front of it
// already rejected them or the route is public.
func RateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r.Context())
			if user == nil {
				next.ServeHTTP(w, r)
				return
			}

			allowed, remaining, resetAt := rl.Allow(user.ID)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.max))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			if !allowed {
				respondError(w, http.StatusTooManyRequests, "rate_limited", "Rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) cleanupLocked(now time.Time) {
	if now.Sub(rl.lastCleanup) < cleanupInterval {
		return
	}

	for accountID, w := range rl.counters {
		if now.Sub(w.lastSeen) > staleEntryTTL || now.After(w.resetAt.Add(expiredWindowGrace)) {
			delete(rl.counters, accountID)
		}
	}

	rl.lastCleanup = now
}
