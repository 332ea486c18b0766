package hedge

import (
	"context"
	"time"

	"github.com/tonsurance/hedgeplane/internal/product"
	"go.uber.org/zap"
)

// estimatedAllianzRateByKind is the per-kind estimated premium rate used as
// a fallback when the Allianz venue is unreachable (spec §4.6).
var estimatedAllianzRateByKind = map[product.CoverageKind]float64{
	product.CoverageDepeg:          0.015,
	product.CoverageSmartContract:  0.035,
	product.CoverageBridge:         0.045,
	product.CoverageOracle:         0.020,
	product.CoverageCexLiquidation: 0.010,
}

// CostBreakdown is the Hedge-Cost Fetcher's response (spec §4.6). Venue
// fields are nil when that venue has no routing or its liquidity/expiry
// filters reject every candidate market.
type CostBreakdown struct {
	PolymarketCostCents *int64    `json:"polymarket_cost_cents,omitempty"`
	HyperliquidCostCents *int64   `json:"hyperliquid_cost_cents,omitempty"`
	BinanceCostCents    *int64    `json:"binance_cost_cents,omitempty"`
	AllianzCostCents    *int64    `json:"allianz_cost_cents,omitempty"`
	TotalHedgeCostCents int64     `json:"total_hedge_cost_cents"`
	HedgeRatio          float64   `json:"hedge_ratio"`
	EffectivePremiumAdditionBps float64 `json:"effective_premium_addition_bps"`
	Timestamp           time.Time `json:"timestamp"`
}

// CostFetcher is the read-side hedge-cost estimator of spec §4.6: given a
// product and its coverage amount, it asks each venue for a quote on the
// slice that venue's weight would allocate, without touching the pool or
// opening any position.
type CostFetcher struct {
	polymarket product.VenueAdapter
	binance    product.VenueAdapter
	defiPerps  product.VenueAdapter
	allianz    product.VenueAdapter
	weights    VenueWeights
	hedgeRatio float64
	logger     *zap.Logger
}

// NewCostFetcher builds a CostFetcher. Any adapter may be nil, in which
// case that venue always contributes 0 to the breakdown.
func NewCostFetcher(polymarket, binance, defiPerps, allianz product.VenueAdapter, weights VenueWeights, hedgeRatio float64, logger *zap.Logger) *CostFetcher {
	return &CostFetcher{
		polymarket: polymarket,
		binance:    binance,
		defiPerps:  defiPerps,
		allianz:    allianz,
		weights:    weights,
		hedgeRatio: hedgeRatio,
		logger:     logger,
	}
}

// Fetch computes the cost breakdown for hedging coverageAmountCents of a
// given product, per spec §4.6's per-venue formulae.
func (f *CostFetcher) Fetch(ctx context.Context, key product.Key, coverageAmountCents int64) CostBreakdown {
	out := CostBreakdown{
		HedgeRatio: f.hedgeRatio,
		Timestamp:  time.Now(),
	}

	if f.polymarket != nil {
		if cost, ok := f.quoteVenue(ctx, f.polymarket, key, coverageAmountCents, f.weights[product.VenuePolymarket]); ok {
			out.PolymarketCostCents = &cost
			out.TotalHedgeCostCents += cost
		}
	}

	if f.binance != nil {
		if cost, ok := f.quoteVenue(ctx, f.binance, key, coverageAmountCents, f.weights[product.VenueBinanceFutures]); ok {
			out.BinanceCostCents = &cost
			out.TotalHedgeCostCents += cost
		}
	}

	if f.defiPerps != nil {
		if cost, ok := f.quoteVenue(ctx, f.defiPerps, key, coverageAmountCents, f.weights[product.VenueDefiPerps]); ok {
			out.HyperliquidCostCents = &cost
			out.TotalHedgeCostCents += cost
		}
	}

	if f.allianz != nil {
		if cost, ok := f.quoteVenue(ctx, f.allianz, key, coverageAmountCents, f.weights[product.VenueAllianzParametric]); ok {
			out.AllianzCostCents = &cost
		} else {
			estimated := int64(float64(coverageAmountCents) * f.weights[product.VenueAllianzParametric] * estimatedAllianzRateByKind[key.Coverage])
			out.AllianzCostCents = &estimated
			f.logger.Warn("allianz unreachable, using estimated rate",
				zap.String("product", key.String()), zap.Int64("estimated_cost_cents", estimated))
		}

		out.TotalHedgeCostCents += *out.AllianzCostCents
	}

	if coverageAmountCents > 0 {
		out.EffectivePremiumAdditionBps = float64(out.TotalHedgeCostCents) / float64(coverageAmountCents) * 10_000
	}

	return out
}

// quoteVenue asks a venue for the cost of hedging its allocated slice of
// coverageAmountCents. The slice itself is hedgeRatio × weight ×
// coverage_amount, mirroring step B's allocation math (spec §4.5, §4.6).
func (f *CostFetcher) quoteVenue(ctx context.Context, adapter product.VenueAdapter, key product.Key, coverageAmountCents int64, weight float64) (int64, bool) {
	allocated := int64(float64(coverageAmountCents) * f.hedgeRatio * weight)
	if allocated <= 0 {
		return 0, false
	}

	quote, err := adapter.Quote(ctx, key, allocated)
	if err != nil {
		f.logger.Warn("venue quote failed", zap.String("venue", string(adapter.Venue())), zap.String("product", key.String()), zap.Error(err))

		return 0, false
	}

	return quote.CostCents, true
}
