package ratelimit

import "time"

// LimitConfig is one (max requests, window) rule.
type LimitConfig struct {
	Max    int64
	Window time.Duration
}

// Policy groups the LimitConfig rules applicable to each Scope.
type Policy struct {
	Limits map[Scope][]LimitConfig
}

// PolicyBuilder assembles a Policy fluently, mirroring the construction
// style used at the HTTP package's wiring site.
type PolicyBuilder struct {
	limits map[Scope][]LimitConfig
}

func NewPolicyBuilder() *PolicyBuilder {
	return &PolicyBuilder{limits: make(map[Scope][]LimitConfig)}
}

func (b *PolicyBuilder) AddLimit(scope Scope, max int64, window time.Duration) *PolicyBuilder {
	b.limits[scope] = append(b.limits[scope], LimitConfig{Max: max, Window: window})

	return b
}

func (b *PolicyBuilder) Build() *Policy {
	return &Policy{Limits: b.limits}
}
