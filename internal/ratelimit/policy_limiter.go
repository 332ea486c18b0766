package ratelimit

import (
	"context"
	"fmt"
)

// LimitExceeded contains information about which limit was exceeded.
type LimitExceeded struct {
	Scope  Scope
	Config LimitConfig
	Count  int64
}

// Status reports the outcome of the most specific limit evaluated during an
// Allow call, used to populate X-RateLimit-* response headers on every
// response, not just denied ones (spec §4.1).
type Status struct {
	Scope     Scope
	Limit     int64
	Remaining int64
	ResetSecs int
}

// PolicyLimiter enforces rate limits based on a policy and resolved scopes.
type PolicyLimiter struct {
	store  Store
	policy *Policy
}

// NewPolicyLimiter creates a new policy-based rate limiter.
func NewPolicyLimiter(store Store, policy *Policy) *PolicyLimiter {
	return &PolicyLimiter{
		store:  store,
		policy: policy,
	}
}

// Allow checks if a request should be allowed based on the client key and applicable scopes.
// It returns true if the request is allowed, false if any limit is exceeded.
// The LimitExceeded return value provides details about which limit was hit (nil if allowed).
// status reports the most specific limit's remaining-count for header reporting, regardless
// of the allow/deny outcome.
func (l *PolicyLimiter) Allow(ctx context.Context, clientKey string, scopes []Scope) (bool, *LimitExceeded, *Status, error) {
	var last *Status

	for _, scope := range scopes {
		limits, ok := l.policy.Limits[scope]
		if !ok {
			continue
		}

		for _, limit := range limits {
			key := l.buildKey(clientKey, scope, limit)

			count, err := l.store.Record(ctx, key, limit.Window)
			if err != nil {
				return false, nil, nil, err
			}

			remaining := limit.Max - count
			if remaining < 0 {
				remaining = 0
			}

			last = &Status{
				Scope:     scope,
				Limit:     limit.Max,
				Remaining: remaining,
				ResetSecs: int(limit.Window.Seconds()),
			}

			if count > limit.Max {
				return false, &LimitExceeded{
					Scope:  scope,
					Config: limit,
					Count:  count,
				}, last, nil
			}
		}
	}

	return true, nil, last, nil
}

// buildKey creates a unique rate limit key for the client, scope, and window combination.
func (l *PolicyLimiter) buildKey(clientKey string, scope Scope, limit LimitConfig) string {
	return fmt.Sprintf("%s:%s:%d", clientKey, scope, limit.Window.Milliseconds())
}

// Store returns the underlying rate limit store.
func (l *PolicyLimiter) Store() Store {
	return l.store
}
