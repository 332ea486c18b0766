package product

// BaseRates are the annualized percentage rates per coverage kind, per
// spec §6's public premium contract.
var BaseRates = map[CoverageKind]float64{
	CoverageDepeg:          0.008,
	CoverageSmartContract:  0.015,
	CoverageOracle:         0.012,
	CoverageBridge:         0.020,
	CoverageCexLiquidation: 0.025,
}

// ChainMultipliers scale the base rate per chain.
var ChainMultipliers = map[Chain]float64{
	ChainEthereum:  1.0,
	ChainTON:       1.0,
	ChainBitcoin:   0.9,
	ChainArbitrum:  1.1,
	ChainBase:      1.1,
	ChainOptimism:  1.1,
	ChainPolygon:   1.2,
	ChainLightning: 1.3,
	ChainSolana:    1.4,
}

// StablecoinAdjustments are additive rate adjustments per stablecoin.
var StablecoinAdjustments = map[Stablecoin]float64{
	StablecoinUSDC:   0,
	StablecoinUSDT:   0.0005,
	StablecoinDAI:    0.0002,
	StablecoinFRAX:   0.0003,
	StablecoinUSDP:   0.0001,
	StablecoinBUSD:   0.001,
	StablecoinUSDe:   0.0015,
	StablecoinSUSDe:  0.002,
	StablecoinUSDY:   0.0008,
	StablecoinPYUSD:  0.0005,
	StablecoinGHO:    0.0004,
	StablecoinLUSD:   0.0003,
	StablecoinCrvUSD: 0.0006,
	StablecoinMkUSD:  0.0007,
}

// PremiumBreakdown is the component-by-component result of ComputePremium.
type PremiumBreakdown struct {
	BaseRate            float64
	ChainMultiplier     float64
	StablecoinAdjustment float64
	TotalRate           float64
	CoverageAmountCents int64
	DurationDays        int
	PremiumCents        int64
}

// ComputePremium applies the public premium formula:
//
//	total_rate = base_rate * chain_multiplier + stablecoin_adjustment
//	premium = coverage_amount * total_rate * duration_days / 365
func ComputePremium(key Key, coverageAmountCents int64, durationDays int) PremiumBreakdown {
	base := BaseRates[key.Coverage]
	mult := ChainMultipliers[key.Chain]
	adj := StablecoinAdjustments[key.Stablecoin]
	totalRate := base*mult + adj

	premium := float64(coverageAmountCents) * totalRate * float64(durationDays) / 365.0

	return PremiumBreakdown{
		BaseRate:             base,
		ChainMultiplier:      mult,
		StablecoinAdjustment: adj,
		TotalRate:            totalRate,
		CoverageAmountCents:  coverageAmountCents,
		DurationDays:         durationDays,
		PremiumCents:         int64(premium + 0.5),
	}
}

// TriggerSeverity holds the expected-loss parameters used by the hedge
// orchestrator's exposure aggregation (spec §4.5 step A).
type TriggerSeverity struct {
	TriggerRate  float64
	SeverityPct  float64
}

// TriggerSeverityByKind is the fixed per-coverage-kind table feeding
// expected_payout = total_coverage * trigger_rate * severity_pct.
var TriggerSeverityByKind = map[CoverageKind]TriggerSeverity{
	CoverageDepeg:          {TriggerRate: 0.05, SeverityPct: 0.30},
	CoverageSmartContract:  {TriggerRate: 0.08, SeverityPct: 0.60},
	CoverageBridge:         {TriggerRate: 0.12, SeverityPct: 0.80},
	CoverageOracle:         {TriggerRate: 0.03, SeverityPct: 0.40},
	CoverageCexLiquidation: {TriggerRate: 0.02, SeverityPct: 0.90},
}

// InterpolatePayout computes the piecewise-linear payout of spec §4.4 step 5.
// Returns the payout in cents and the interpolation factor used (0 when at
// or above trigger, 1 when at or below floor).
func InterpolatePayout(coverageAmountCents int64, triggerPrice, floorPrice, currentPrice float64) (payoutCents int64, factor float64) {
	switch {
	case currentPrice >= triggerPrice:
		return 0, 0
	case currentPrice <= floorPrice:
		return coverageAmountCents, 1
	default:
		factor = (triggerPrice - currentPrice) / (triggerPrice - floorPrice)
		payout := float64(coverageAmountCents) * factor

		return int64(payout + 0.5), factor
	}
}
