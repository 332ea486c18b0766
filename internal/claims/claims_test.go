package claims_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tonsurance/hedgeplane/internal/claims"
	"github.com/tonsurance/hedgeplane/internal/events"
	"github.com/tonsurance/hedgeplane/internal/product"
	"go.uber.org/zap"
)

type fakePolicyRepo struct {
	policies []*product.Policy
	pool     *product.UnifiedPool
}

func (f *fakePolicyRepo) ActivePolicies(_ context.Context) ([]*product.Policy, error) {
	return f.policies, nil
}

func (f *fakePolicyRepo) Pool(_ context.Context) (*product.UnifiedPool, error) {
	return f.pool, nil
}

type fakeTriggerRepo struct {
	states map[int64]*product.TriggerState
}

func newFakeTriggerRepo() *fakeTriggerRepo {
	return &fakeTriggerRepo{states: make(map[int64]*product.TriggerState)}
}

func (f *fakeTriggerRepo) Load(_ context.Context, policyID int64) (*product.TriggerState, error) {
	return f.states[policyID], nil
}

func (f *fakeTriggerRepo) Save(_ context.Context, state *product.TriggerState) error {
	f.states[state.PolicyID] = state

	return nil
}

type fakeOracle struct {
	prices map[string]float64
}

func (f *fakeOracle) FetchPrices(_ context.Context, _ []string) (map[string]float64, error) {
	return f.prices, nil
}

func TestMonitor_PaysOutBelowFloor(t *testing.T) {
	pool := product.NewUnifiedPool(1_000_00)
	policy := &product.Policy{
		ID:                  1,
		Holder:              "0xholder",
		Key:                 product.Key{Coverage: product.CoverageDepeg, Chain: product.ChainEthereum, Stablecoin: product.StablecoinUSDC},
		CoverageAmountCents: 500_00,
		TriggerPrice:        0.98,
		FloorPrice:          0.90,
		Status:              product.PolicyActive,
	}
	pool.AddPolicy(policy)

	repo := &fakePolicyRepo{policies: []*product.Policy{policy}, pool: pool}
	triggers := newFakeTriggerRepo()
	oracle := &fakeOracle{prices: map[string]float64{"USDC": 0.85}}

	var captured []*events.ClaimPaid
	publish := func(e *events.ClaimPaid) error {
		captured = append(captured, e)

		return nil
	}

	mon := claims.NewMonitor(repo, triggers, oracle, publish, claims.DefaultOptions(), zap.NewNop())

	require.NoError(t, mon.RunCycle(context.Background()))

	require.Len(t, captured, 1)
	assert.Equal(t, int64(500_00), captured[0].PayoutCents)
	assert.Equal(t, product.PolicyClaimed, policy.Status)

	snap := pool.Snapshot()
	assert.Equal(t, int64(500_00), snap.TotalCapitalCents)
}

func TestMonitor_NoPayoutAboveTrigger(t *testing.T) {
	pool := product.NewUnifiedPool(1_000_00)
	policy := &product.Policy{
		ID:                  2,
		Key:                 product.Key{Coverage: product.CoverageDepeg, Chain: product.ChainEthereum, Stablecoin: product.StablecoinUSDC},
		CoverageAmountCents: 500_00,
		TriggerPrice:        0.98,
		FloorPrice:          0.90,
		Status:              product.PolicyActive,
	}
	pool.AddPolicy(policy)

	repo := &fakePolicyRepo{policies: []*product.Policy{policy}, pool: pool}
	triggers := newFakeTriggerRepo()
	oracle := &fakeOracle{prices: map[string]float64{"USDC": 0.99}}

	var captured []*events.ClaimPaid
	publish := func(e *events.ClaimPaid) error {
		captured = append(captured, e)

		return nil
	}

	mon := claims.NewMonitor(repo, triggers, oracle, publish, claims.DefaultOptions(), zap.NewNop())

	require.NoError(t, mon.RunCycle(context.Background()))
	assert.Empty(t, captured)
	assert.Equal(t, product.PolicyActive, policy.Status)
}

func TestMonitor_RequiresConfirmationSamples(t *testing.T) {
	pool := product.NewUnifiedPool(1_000_00)
	policy := &product.Policy{
		ID:                  3,
		Key:                 product.Key{Coverage: product.CoverageDepeg, Chain: product.ChainEthereum, Stablecoin: product.StablecoinUSDC},
		CoverageAmountCents: 500_00,
		TriggerPrice:        0.98,
		FloorPrice:          0.90,
		Status:              product.PolicyActive,
	}
	pool.AddPolicy(policy)

	repo := &fakePolicyRepo{policies: []*product.Policy{policy}, pool: pool}
	triggers := newFakeTriggerRepo()
	oracle := &fakeOracle{prices: map[string]float64{"USDC": 0.85}}

	var captured []*events.ClaimPaid
	publish := func(e *events.ClaimPaid) error {
		captured = append(captured, e)

		return nil
	}

	opts := claims.DefaultOptions()
	opts.ConfirmationSamplesRequired = 2

	mon := claims.NewMonitor(repo, triggers, oracle, publish, opts, zap.NewNop())

	require.NoError(t, mon.RunCycle(context.Background()))
	assert.Empty(t, captured, "first sub-trigger sample should not yet be eligible")

	require.NoError(t, mon.RunCycle(context.Background()))
	assert.Len(t, captured, 1, "second consecutive sub-trigger sample should trigger payout")
}

func TestMonitor_InsufficientCapitalLeavesPolicyActive(t *testing.T) {
	pool := product.NewUnifiedPool(100_00) // less than coverage amount
	policy := &product.Policy{
		ID:                  4,
		Key:                 product.Key{Coverage: product.CoverageDepeg, Chain: product.ChainEthereum, Stablecoin: product.StablecoinUSDC},
		CoverageAmountCents: 500_00,
		TriggerPrice:        0.98,
		FloorPrice:          0.90,
		Status:              product.PolicyActive,
	}
	pool.AddPolicy(policy)

	repo := &fakePolicyRepo{policies: []*product.Policy{policy}, pool: pool}
	triggers := newFakeTriggerRepo()
	oracle := &fakeOracle{prices: map[string]float64{"USDC": 0.80}}

	var captured []*events.ClaimPaid
	publish := func(e *events.ClaimPaid) error {
		captured = append(captured, e)

		return nil
	}

	mon := claims.NewMonitor(repo, triggers, oracle, publish, claims.DefaultOptions(), zap.NewNop())

	require.NoError(t, mon.RunCycle(context.Background()))
	assert.Empty(t, captured)
	assert.Equal(t, product.PolicyActive, policy.Status, "policy should remain active when capital is insufficient")
}

func TestMonitor_EmptyPolicySetIsNoop(t *testing.T) {
	pool := product.NewUnifiedPool(1_000_00)
	repo := &fakePolicyRepo{policies: nil, pool: pool}
	triggers := newFakeTriggerRepo()
	oracle := &fakeOracle{}

	publish := func(*events.ClaimPaid) error {
		t.Fatal("publish should not be called")

		return nil
	}

	mon := claims.NewMonitor(repo, triggers, oracle, publish, claims.DefaultOptions(), zap.NewNop())
	require.NoError(t, mon.RunCycle(context.Background()))
}
