package product

import (
	"errors"
	"sync"
	"time"
)

// ErrInsufficientCapital is returned by ReserveCapital when a payout would
// push total_capital_usd negative. Callers must leave the policy Active and
// the pool untouched when they see it (spec §4.4 step 6).
var ErrInsufficientCapital = errors.New("insufficient capital")

// UnifiedPool holds the capital and coverage bookkeeping shared across the
// whole platform. It is the single writer for total_capital_usd and
// total_coverage_sold; every mutation goes through a method that enforces
// the pool invariants under one mutex, matching the "check-then-mutate
// under a mutual-exclusion discipline" requirement of spec §5.
type UnifiedPool struct {
	mu                sync.Mutex
	totalCapitalCents int64
	totalCoverageSoldCents int64
	activePolicies    map[int64]*Policy
}

// NewUnifiedPool creates a pool seeded with the given starting capital.
func NewUnifiedPool(startingCapitalCents int64) *UnifiedPool {
	return &UnifiedPool{
		totalCapitalCents: startingCapitalCents,
		activePolicies:    make(map[int64]*Policy),
	}
}

// Snapshot is a point-in-time, read-only view of the pool, safe to hand to
// readers (monitoring loops, hedge orchestrator) without further locking.
type Snapshot struct {
	TotalCapitalCents      int64
	TotalCoverageSoldCents int64
	ActivePolicies         []*Policy
}

// Snapshot returns a consistent copy of the pool state.
func (p *UnifiedPool) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	policies := make([]*Policy, 0, len(p.activePolicies))
	for _, pol := range p.activePolicies {
		policies = append(policies, pol)
	}

	return Snapshot{
		TotalCapitalCents:      p.totalCapitalCents,
		TotalCoverageSoldCents: p.totalCoverageSoldCents,
		ActivePolicies:         policies,
	}
}

// AddPolicy registers a newly-purchased policy as active, increasing
// total_coverage_sold by its coverage amount.
func (p *UnifiedPool) AddPolicy(pol *Policy) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pol.Status = PolicyActive
	p.activePolicies[pol.ID] = pol
	p.totalCoverageSoldCents += pol.CoverageAmountCents
}

// ReservePayout atomically checks that payoutCents does not exceed the
// pool's remaining capital, then decrements total_capital_usd and
// total_coverage_sold and removes the policy from the active set. Returns
// ErrInsufficientCapital, leaving the pool and policy untouched, when the
// check fails. now is stamped onto the policy's PayoutTime, the same
// snapshot the caller's cycle used to evaluate the trigger, so the
// recorded payout time doesn't drift from whatever "now" produced it.
func (p *UnifiedPool) ReservePayout(policyID int64, payoutCents int64, now time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	pol, ok := p.activePolicies[policyID]
	if !ok {
		return errors.New("policy not active")
	}

	if payoutCents > p.totalCapitalCents {
		return ErrInsufficientCapital
	}

	p.totalCapitalCents -= payoutCents
	p.totalCoverageSoldCents -= pol.CoverageAmountCents
	delete(p.activePolicies, policyID)

	pol.Status = PolicyClaimed
	pol.PayoutAmountCents = payoutCents
	pol.PayoutTime = now

	return nil
}

// ExpirePolicy removes a policy from the active set without a payout,
// decrementing total_coverage_sold only.
func (p *UnifiedPool) ExpirePolicy(policyID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pol, ok := p.activePolicies[policyID]
	if !ok {
		return
	}

	p.totalCoverageSoldCents -= pol.CoverageAmountCents
	delete(p.activePolicies, policyID)
	pol.Status = PolicyExpired
}

// ActivePoliciesForKey returns the active policies matching a ProductKey,
// used by the hedge orchestrator's exposure aggregation.
func (p *UnifiedPool) ActivePoliciesForKey(key Key) []*Policy {
	p.mu.Lock()
	defer p.mu.Unlock()

	var matches []*Policy

	for _, pol := range p.activePolicies {
		if pol.Key == key {
			matches = append(matches, pol)
		}
	}

	return matches
}
