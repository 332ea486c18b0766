// Package hedge implements the hedge orchestrator of spec §4.5: exposure
// aggregation, venue allocation, execution & bookkeeping, and the
// claim-triggered close path, plus the read-side Hedge-Cost Fetcher of
// §4.6.
package hedge

import (
	"context"
	"sync"
	"time"

	"github.com/tonsurance/hedgeplane/internal/events"
	"github.com/tonsurance/hedgeplane/internal/messaging"
	"github.com/tonsurance/hedgeplane/internal/product"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PositionRepository persists HedgePosition lifecycle state.
type PositionRepository interface {
	Save(ctx context.Context, position *product.HedgePosition) error
	OpenPositionsForPolicy(ctx context.Context, policyID int64) ([]*product.HedgePosition, error)
}

// VenueWeights maps each venue to its allocation share; must sum to 1.0
// (spec §4.5 step B defaults: Polymarket 0.30, CEX 0.30, DeFi 0.30, Allianz 0.10).
type VenueWeights map[product.Venue]float64

// DefaultVenueWeights returns spec §4.5's stated default split.
func DefaultVenueWeights() VenueWeights {
	return VenueWeights{
		product.VenuePolymarket:        0.30,
		product.VenueBinanceFutures:    0.30,
		product.VenueDefiPerps:         0.30,
		product.VenueAllianzParametric: 0.10,
	}
}

// Options configures a hedge orchestrator cycle.
type Options struct {
	CheckInterval       time.Duration
	MinHedgeAmountCents int64
	TotalHedgeRatio     float64
	RebalanceThreshold  float64
	RebalanceEnabled    bool
	Weights             VenueWeights
}

// DefaultOptions mirrors spec §4.5's stated defaults.
func DefaultOptions() Options {
	return Options{
		CheckInterval:       300 * time.Second,
		MinHedgeAmountCents: 100_00,
		TotalHedgeRatio:     0.20,
		RebalanceThreshold:  0.10,
		RebalanceEnabled:    false, // deferred, per DESIGN.md's Open Question decision
		Weights:             DefaultVenueWeights(),
	}
}

// Orchestrator runs hedge cycles and the policy-triggered close path.
type Orchestrator struct {
	pool        product.PoolRepository
	venues      map[product.Venue]product.VenueAdapter
	positions   PositionRepository
	costFetcher *CostFetcher
	opened      messaging.Publish[events.HedgeOpened]
	closed      messaging.Publish[events.HedgeClosed]
	idGen       func() string
	opts        Options
	logger      *zap.Logger
}

// NewOrchestrator constructs an Orchestrator. idGen produces position_id
// values (a nanoid generator, following the teacher's short-code
// convention — see internal/container for the shared pattern). costFetcher
// is queried once per product per cycle to populate Allocation.TotalCostCents
// (spec §4.5 step B).
func NewOrchestrator(
	pool product.PoolRepository,
	venues map[product.Venue]product.VenueAdapter,
	positions PositionRepository,
	costFetcher *CostFetcher,
	opened messaging.Publish[events.HedgeOpened],
	closed messaging.Publish[events.HedgeClosed],
	idGen func() string,
	opts Options,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		pool:        pool,
		venues:      venues,
		positions:   positions,
		costFetcher: costFetcher,
		opened:      opened,
		closed:      closed,
		idGen:       idGen,
		opts:        opts,
		logger:      logger,
	}
}

// RunCycle executes steps A through E of spec §4.5 once. Each hedged
// product's allocation and execution runs on its own errgroup goroutine:
// the per-venue open calls in execute are independent network round trips
// against distinct adapters, so serializing them across products would pay
// their latency once per product instead of once per cycle.
func (o *Orchestrator) RunCycle(ctx context.Context) error {
	pool, err := o.pool.GetPool(ctx)
	if err != nil {
		return err
	}

	exposures := aggregateExposures(pool.Snapshot(), o.opts.TotalHedgeRatio)

	var (
		mu     sync.Mutex
		totals = make(map[product.Venue]int64)
	)

	group, gctx := errgroup.WithContext(ctx)

	for _, exp := range exposures {
		exp := exp

		if exp.HedgeRequiredCents < o.opts.MinHedgeAmountCents {
			continue
		}

		group.Go(func() error {
			alloc := o.allocate(gctx, exp)
			o.execute(gctx, exp.Key, alloc, &mu, totals)

			return nil
		})
	}

	_ = group.Wait()

	o.logger.Info("hedge cycle complete",
		zap.Int("products_hedged", len(exposures)),
		zap.Any("totals_by_venue_cents", totals))

	return nil
}

// aggregateExposures implements spec §4.5 step A.
func aggregateExposures(snap product.Snapshot, hedgeRatio float64) []product.Exposure {
	byKey := make(map[product.Key]*product.Exposure)

	for _, p := range snap.ActivePolicies {
		exp, ok := byKey[p.Key]
		if !ok {
			exp = &product.Exposure{Key: p.Key}
			byKey[p.Key] = exp
		}

		exp.ActivePolicies++
		exp.TotalCoverageCents += p.CoverageAmountCents
		exp.TotalPremiumCents += p.PremiumPaidCents
	}

	out := make([]product.Exposure, 0, len(byKey))

	for _, exp := range byKey {
		ts, ok := product.TriggerSeverityByKind[exp.Key.Coverage]
		if !ok {
			continue
		}

		exp.ExpectedPayoutCents = int64(float64(exp.TotalCoverageCents) * ts.TriggerRate * ts.SeverityPct)
		exp.HedgeRequiredCents = int64(float64(exp.ExpectedPayoutCents) * hedgeRatio)

		out = append(out, *exp)
	}

	return out
}

// allocate implements spec §4.5 step B: split the hedge requirement across
// venue weights, then query the Hedge-Cost Fetcher for what that split
// would cost and sum the per-venue quotes into TotalCostCents.
func (o *Orchestrator) allocate(ctx context.Context, exp product.Exposure) product.Allocation {
	alloc := product.Allocation{
		Key:             exp.Key,
		PolymarketCents: int64(float64(exp.HedgeRequiredCents) * o.opts.Weights[product.VenuePolymarket]),
		PerpetualsCents: int64(float64(exp.HedgeRequiredCents) * o.opts.Weights[product.VenueBinanceFutures]),
		DefiPerpsCents:  int64(float64(exp.HedgeRequiredCents) * o.opts.Weights[product.VenueDefiPerps]),
		AllianzCents:    int64(float64(exp.HedgeRequiredCents) * o.opts.Weights[product.VenueAllianzParametric]),
	}

	if o.costFetcher != nil {
		breakdown := o.costFetcher.Fetch(ctx, exp.Key, exp.TotalCoverageCents)
		alloc.TotalCostCents = breakdown.TotalHedgeCostCents
	}

	return alloc
}

// execute implements spec §4.5 step D: call each adapter, persist an Open
// position on success or a Closed sentinel on failure, never aborting or
// retrying within the cycle. The four venue legs run concurrently since
// each is an independent round trip to a distinct adapter; totals is
// shared across every product's errgroup goroutine in RunCycle, so writes
// to it go through mu.
func (o *Orchestrator) execute(ctx context.Context, key product.Key, alloc product.Allocation, mu *sync.Mutex, totals map[product.Venue]int64) {
	slices := map[product.Venue]int64{
		product.VenuePolymarket:        alloc.PolymarketCents,
		product.VenueBinanceFutures:    alloc.PerpetualsCents,
		product.VenueDefiPerps:         alloc.DefiPerpsCents,
		product.VenueAllianzParametric: alloc.AllianzCents,
	}

	now := time.Now()

	group, gctx := errgroup.WithContext(ctx)

	for v, amount := range slices {
		v, amount := v, amount

		if amount <= 0 {
			continue
		}

		adapter, ok := o.venues[v]
		if !ok {
			continue
		}

		group.Go(func() error {
			position := &product.HedgePosition{
				PositionID:       o.idGen(),
				Key:              key,
				Venue:            v,
				HedgeAmountCents: amount,
				EntryTime:        now,
			}

			fill, err := adapter.OpenPosition(gctx, key, amount, "short", 0)
			if err != nil {
				o.logger.Warn("hedge venue open failed, recording sentinel closed position",
					zap.String("venue", string(v)), zap.String("product", key.String()), zap.Error(err))

				position.Status = product.PositionClosed

				if serr := o.positions.Save(gctx, position); serr != nil {
					o.logger.Error("failed to persist sentinel hedge position", zap.Error(serr))
				}

				return nil
			}

			position.ExternalOrderID = fill.OrderID
			position.EntryPrice = fill.Price
			position.Status = product.PositionOpen

			if err := o.positions.Save(gctx, position); err != nil {
				o.logger.Error("failed to persist hedge position", zap.Error(err))

				return nil
			}

			mu.Lock()
			totals[v] += amount
			mu.Unlock()

			evt := &events.HedgeOpened{
				PositionID:       position.PositionID,
				CoverageKind:     string(key.Coverage),
				Chain:            string(key.Chain),
				Stablecoin:       string(key.Stablecoin),
				Venue:            string(v),
				HedgeAmountCents: amount,
				EntryPrice:       fill.Price,
				Timestamp:        now,
			}

			if err := o.opened(evt); err != nil {
				o.logger.Error("publish hedge opened failed", zap.Error(err))
			}

			return nil
		})
	}

	_ = group.Wait()
}

// ClosePositionsForPolicy implements spec §4.5's "Close path": it closes
// every Open HedgePosition for policyID. No code path in this module calls
// it when a claim pays out; ClaimPaid events are not consumed by anything
// that invokes it.
func (o *Orchestrator) ClosePositionsForPolicy(ctx context.Context, policyID int64) {
	positions, err := o.positions.OpenPositionsForPolicy(ctx, policyID)
	if err != nil {
		o.logger.Error("failed to load open hedge positions", zap.Int64("policy_id", policyID), zap.Error(err))

		return
	}

	now := time.Now()

	var (
		mu       sync.Mutex
		totalPnL int64
	)

	group, gctx := errgroup.WithContext(ctx)

	for _, pos := range positions {
		pos := pos

		adapter, ok := o.venues[pos.Venue]
		if !ok {
			continue
		}

		group.Go(func() error {
			result, err := adapter.ClosePosition(gctx, pos.ExternalOrderID)
			if err != nil {
				o.logger.Error("hedge venue close failed",
					zap.String("venue", string(pos.Venue)), zap.String("position_id", pos.PositionID), zap.Error(err))

				return nil
			}

			pos.Close(now, result.NetPnLCents)

			mu.Lock()
			totalPnL += result.NetPnLCents
			mu.Unlock()

			if err := o.positions.Save(gctx, pos); err != nil {
				o.logger.Error("failed to persist closed hedge position", zap.Error(err))
			}

			evt := &events.HedgeClosed{
				PositionID:       pos.PositionID,
				Venue:            string(pos.Venue),
				RealizedPnLCents: result.NetPnLCents,
				Timestamp:        now,
			}

			if err := o.closed(evt); err != nil {
				o.logger.Error("publish hedge closed failed", zap.Error(err))
			}

			return nil
		})
	}

	_ = group.Wait()

	o.logger.Info("hedge positions closed for claim",
		zap.Int64("policy_id", policyID), zap.Int("count", len(positions)), zap.Int64("total_realized_pnl_cents", totalPnL))
}
