// Package risk implements the risk-monitor and utilization-tracker
// collaborators of spec §6 as pure in-memory computations over a pool
// snapshot, grounded the same way product.AggregateExposure is: domain
// logic with no third-party dependency, since it never leaves the
// process.
package risk

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/tonsurance/hedgeplane/internal/product"
)

// Thresholds holds the limits a RiskSnapshot's breach/warning alerts are
// checked against. A breach fires once current crosses limit in the
// direction that matters for that metric; the warning band is the 80%
// approach to that same limit.
type Thresholds struct {
	MaxLTV             float64
	MinReserveRatio    float64
	MaxConcentration   float64
	MaxVaR95Cents      int64
	MaxStressLossCents int64
}

// DefaultThresholds are conservative starting limits for a platform this
// size (560 products); operators tune them via configuration.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxLTV:             0.80,
		MinReserveRatio:    0.20,
		MaxConcentration:   0.25,
		MaxVaR95Cents:      50_000_000_00,
		MaxStressLossCents: 100_000_000_00,
	}
}

// Monitor implements product.RiskMonitor.
type Monitor struct {
	thresholds Thresholds
}

// NewMonitor builds a Monitor enforcing the given thresholds.
func NewMonitor(thresholds Thresholds) *Monitor {
	return &Monitor{thresholds: thresholds}
}

// CalculateSnapshot implements product.RiskMonitor, deriving VaR/CVaR,
// LTV, reserve ratio, and concentration from the pool's current exposure
// distribution (spec §3's RiskSnapshot fields).
func (m *Monitor) CalculateSnapshot(_ context.Context, pool product.Snapshot) (*product.RiskSnapshot, error) {
	now := time.Now().UTC()

	breakdown := product.AggregateExposure(pool)

	ltv := ratio(pool.TotalCoverageSoldCents, pool.TotalCapitalCents)
	reserveRatio := 1 - ltv
	concentration := maxShare(breakdown.ByCoverageType, pool.TotalCoverageSoldCents)
	var95, var99, cvar95, expectedLoss := varEstimates(pool.TotalCoverageSoldCents)

	snap := &product.RiskSnapshot{
		VaR95:             var95,
		VaR99:             var99,
		CVaR95:            cvar95,
		ExpectedLossCents: expectedLoss,
		LTV:               ltv,
		ReserveRatio:      reserveRatio,
		MaxConcentration:  concentration,
		Top10Products:     topProducts(pool),
		Timestamp:         now,
	}

	m.checkThresholds(snap, now)

	return snap, nil
}

func (m *Monitor) checkThresholds(snap *product.RiskSnapshot, now time.Time) {
	m.evaluate(snap, now, product.AlertLTVBreach, "loan-to-value exceeds limit",
		snap.LTV, m.thresholds.MaxLTV)
	m.evaluateInverse(snap, now, product.AlertReserveLow, "reserve ratio below minimum",
		snap.ReserveRatio, m.thresholds.MinReserveRatio)
	m.evaluate(snap, now, product.AlertConcentrationHigh, "single coverage type concentration too high",
		snap.MaxConcentration, m.thresholds.MaxConcentration)
	m.evaluate(snap, now, product.AlertVaRBreach, "VaR(95) exceeds limit",
		snap.VaR95, float64(m.thresholds.MaxVaR95Cents))
	m.evaluate(snap, now, product.AlertStressLossHigh, "expected stress loss exceeds limit",
		float64(snap.ExpectedLossCents), float64(m.thresholds.MaxStressLossCents))
}

// evaluate raises a breach when current has risen past limit, else a
// warning when current is within 80% of it.
func (m *Monitor) evaluate(snap *product.RiskSnapshot, now time.Time, kind product.AlertKind, message string, current, limit float64) {
	alert := product.RiskAlert{Kind: kind, Message: message, CurrentValue: current, LimitValue: limit, Timestamp: now}

	switch {
	case current > limit:
		alert.Severity = product.SeverityCritical
		snap.BreachAlerts = append(snap.BreachAlerts, alert)
	case current >= limit*0.8:
		alert.Severity = product.SeverityMedium
		snap.WarningAlerts = append(snap.WarningAlerts, alert)
	}
}

// evaluateInverse is evaluate for metrics where a breach means current
// has fallen below limit (reserve ratio).
func (m *Monitor) evaluateInverse(snap *product.RiskSnapshot, now time.Time, kind product.AlertKind, message string, current, limit float64) {
	alert := product.RiskAlert{Kind: kind, Message: message, CurrentValue: current, LimitValue: limit, Timestamp: now}

	switch {
	case current < limit:
		alert.Severity = product.SeverityCritical
		snap.BreachAlerts = append(snap.BreachAlerts, alert)
	case current <= limit*1.2:
		alert.Severity = product.SeverityMedium
		snap.WarningAlerts = append(snap.WarningAlerts, alert)
	}
}

func ratio(numerator, denominator int64) float64 {
	if denominator == 0 {
		return 0
	}

	return float64(numerator) / float64(denominator)
}

func maxShare(entries []product.ExposureEntry, total int64) float64 {
	if total == 0 {
		return 0
	}

	var max int64

	for _, e := range entries {
		if e.ExposureUSDCents > max {
			max = e.ExposureUSDCents
		}
	}

	return float64(max) / float64(total)
}

// varEstimates derives parametric VaR/CVaR figures from total exposure
// using a normal-loss approximation with a 15% annualized volatility
// assumption across the book; an operator with a richer loss model can
// supply one by swapping this package's Monitor for another
// product.RiskMonitor implementation.
func varEstimates(totalExposureCents int64) (var95, var99, cvar95 float64, expectedLossCents int64) {
	exposure := float64(totalExposureCents)
	const annualVol = 0.15

	var95 = exposure * annualVol * 1.645
	var99 = exposure * annualVol * 2.326
	cvar95 = exposure * annualVol * 2.063 // E[loss | loss > VaR95] under normality
	expectedLossCents = int64(math.Round(exposure * 0.01))

	return var95, var99, cvar95, expectedLossCents
}

// topProducts ranks the pool's active products by total exposure,
// descending, keeping the top 10 (spec §3's top_10_products).
func topProducts(pool product.Snapshot) []product.TopProduct {
	type row struct {
		key      product.Key
		exposure int64
		count    int
	}

	rows := make(map[product.Key]*row)
	order := make([]product.Key, 0)

	for _, pol := range pool.ActivePolicies {
		r, ok := rows[pol.Key]
		if !ok {
			r = &row{key: pol.Key}
			rows[pol.Key] = r
			order = append(order, pol.Key)
		}

		r.exposure += pol.CoverageAmountCents
		r.count++
	}

	sorted := make([]*row, 0, len(order))
	for _, k := range order {
		sorted = append(sorted, rows[k])
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].exposure > sorted[j].exposure
	})

	if len(sorted) > 10 {
		sorted = sorted[:10]
	}

	out := make([]product.TopProduct, 0, len(sorted))
	for _, r := range sorted {
		out = append(out, product.TopProduct{Key: r.key, ExposureUSDCents: r.exposure, PolicyCount: r.count})
	}

	return out
}
