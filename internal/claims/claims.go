// Package claims implements the claims monitor of spec §4.4: per-cycle
// oracle sampling, TriggerState confirmation bookkeeping, piecewise-linear
// payout interpolation, and serialized capital reservation against the pool.
package claims

import (
	"context"
	"errors"
	"time"

	"github.com/tonsurance/hedgeplane/internal/events"
	"github.com/tonsurance/hedgeplane/internal/messaging"
	"github.com/tonsurance/hedgeplane/internal/product"
	"go.uber.org/zap"
)

// PolicyRepository provides the active policies a claims cycle must sample,
// and the single mutable pool those payouts are reserved against.
type PolicyRepository interface {
	ActivePolicies(ctx context.Context) ([]*product.Policy, error)
	Pool(ctx context.Context) (*product.UnifiedPool, error)
}

// TriggerStateRepository loads-or-creates and persists per-policy trigger
// bookkeeping (spec §4.4 step 2-3).
type TriggerStateRepository interface {
	Load(ctx context.Context, policyID int64) (*product.TriggerState, error)
	Save(ctx context.Context, state *product.TriggerState) error
}

// PayoutRecord is emitted for every successful payout in a cycle
// (spec §4.4 step 6).
type PayoutRecord struct {
	PolicyID           int64
	PayoutCents        int64
	Beneficiary        string
	TriggerPrice       float64
	FloorPrice         float64
	CurrentPrice       float64
	InterpolationFactor float64
}

// Options configures a claims monitor cycle.
type Options struct {
	SampleInterval              time.Duration
	ConfirmationSamplesRequired int
}

// DefaultOptions mirrors spec §4.4's stated defaults.
func DefaultOptions() Options {
	return Options{
		SampleInterval:              60 * time.Second,
		ConfirmationSamplesRequired: 1,
	}
}

// Monitor runs the claims cycle.
type Monitor struct {
	policies PolicyRepository
	triggers TriggerStateRepository
	oracle   product.OracleAdapter
	publish  messaging.Publish[events.ClaimPaid]
	opts     Options
	logger   *zap.Logger
}

// NewMonitor constructs a claims Monitor.
func NewMonitor(
	policies PolicyRepository,
	triggers TriggerStateRepository,
	oracle product.OracleAdapter,
	publish messaging.Publish[events.ClaimPaid],
	opts Options,
	logger *zap.Logger,
) *Monitor {
	return &Monitor{
		policies: policies,
		triggers: triggers,
		oracle:   oracle,
		publish:  publish,
		opts:     opts,
		logger:   logger,
	}
}

// RunCycle executes one full claims cycle: sample, update trigger state,
// interpolate payouts, and reserve capital sequentially (spec §4.4).
func (m *Monitor) RunCycle(ctx context.Context) error {
	active, err := m.policies.ActivePolicies(ctx)
	if err != nil {
		return err
	}

	if len(active) == 0 {
		return nil
	}

	assets := assetsFor(active)

	prices, err := m.oracle.FetchPrices(ctx, assets)
	if err != nil {
		return err
	}

	pool, err := m.policies.Pool(ctx)
	if err != nil {
		return err
	}

	now := time.Now()

	// Sequential so capital reservation sees a serialized pool view
	// (spec §4.4 "Ordering").
	for _, policy := range active {
		m.processPolicy(ctx, policy, prices, pool, now)
	}

	return nil
}

func (m *Monitor) processPolicy(ctx context.Context, policy *product.Policy, prices map[string]float64, pool *product.UnifiedPool, now time.Time) {
	currentPrice, ok := prices[assetSymbol(policy)]
	if !ok {
		return
	}

	state, err := m.triggers.Load(ctx, policy.ID)
	if err != nil {
		m.logger.Error("trigger state load failed", zap.Int64("policy_id", policy.ID), zap.Error(err))

		return
	}

	if state == nil {
		state = &product.TriggerState{PolicyID: policy.ID}
	}

	subTrigger := currentPrice < policy.TriggerPrice
	state.Observe(now, subTrigger)

	if err := m.triggers.Save(ctx, state); err != nil {
		m.logger.Error("trigger state save failed", zap.Int64("policy_id", policy.ID), zap.Error(err))

		return
	}

	if !state.Eligible(m.opts.ConfirmationSamplesRequired) {
		return
	}

	if !policy.Active() {
		return
	}

	m.processPayout(ctx, policy, pool, currentPrice, now)
}

func (m *Monitor) processPayout(ctx context.Context, policy *product.Policy, pool *product.UnifiedPool, currentPrice float64, now time.Time) {
	payoutCents, factor := product.InterpolatePayout(
		policy.CoverageAmountCents, policy.TriggerPrice, policy.FloorPrice, currentPrice)

	if payoutCents == 0 {
		return
	}

	if err := pool.ReservePayout(policy.ID, payoutCents, now); err != nil {
		if errors.Is(err, product.ErrInsufficientCapital) {
			m.logger.Warn("insufficient capital for payout",
				zap.Int64("policy_id", policy.ID), zap.Int64("payout_cents", payoutCents))

			return
		}

		m.logger.Error("payout reservation failed", zap.Int64("policy_id", policy.ID), zap.Error(err))

		return
	}

	record := PayoutRecord{
		PolicyID:            policy.ID,
		PayoutCents:         payoutCents,
		Beneficiary:         policy.BeneficiaryAddress(),
		TriggerPrice:        policy.TriggerPrice,
		FloorPrice:          policy.FloorPrice,
		CurrentPrice:        currentPrice,
		InterpolationFactor: factor,
	}

	m.logger.Info("claim paid",
		zap.Int64("policy_id", record.PolicyID),
		zap.Int64("payout_cents", record.PayoutCents),
		zap.String("beneficiary", record.Beneficiary))

	evt := &events.ClaimPaid{
		PolicyID:     policy.ID,
		PayoutCents:  payoutCents,
		PayoutFactor: factor,
		Timestamp:    now,
	}

	if err := m.publish(evt); err != nil {
		m.logger.Error("publish claim paid failed", zap.Int64("policy_id", policy.ID), zap.Error(err))
	}
}

func assetsFor(policies []*product.Policy) []string {
	seen := make(map[string]struct{})

	out := make([]string, 0, len(policies))

	for _, p := range policies {
		sym := assetSymbol(p)
		if _, ok := seen[sym]; ok {
			continue
		}

		seen[sym] = struct{}{}
		out = append(out, sym)
	}

	return out
}

// assetSymbol maps a policy's product key to the oracle asset symbol it
// tracks: the stablecoin itself for Depeg coverage, else the chain's
// native asset.
func assetSymbol(p *product.Policy) string {
	if p.Key.Coverage == product.CoverageDepeg {
		return string(p.Key.Stablecoin)
	}

	return string(p.Key.Chain)
}
