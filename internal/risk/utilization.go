package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/tonsurance/hedgeplane/internal/product"
)

// Tranche names one capital class within the unified pool (spec's
// glossary: "a capital class within the unified pool with its own
// utilization and APY"). This implementation splits capital by coverage
// kind, one tranche per kind, since that is the only segmentation axis
// the pool's policy data already carries.
type Tranche struct {
	TrancheID      string
	Coverage       product.CoverageKind
	CapitalShare   float64 // fraction of total pool capital allocated to this tranche
	BaseAPY        float64
	UtilizationAPY float64 // additional APY paid per unit of utilization, 0..1
}

// DefaultTranches splits capital evenly across the five coverage kinds,
// with base APY scaled to each kind's relative risk (mirroring the base
// premium rate ordering: Depeg cheapest, CexLiquidation priciest).
func DefaultTranches() []Tranche {
	kinds := []product.CoverageKind{
		product.CoverageDepeg,
		product.CoverageSmartContract,
		product.CoverageOracle,
		product.CoverageBridge,
		product.CoverageCexLiquidation,
	}

	baseAPY := map[product.CoverageKind]float64{
		product.CoverageDepeg:          0.04,
		product.CoverageSmartContract:  0.07,
		product.CoverageOracle:         0.06,
		product.CoverageBridge:         0.10,
		product.CoverageCexLiquidation: 0.12,
	}

	out := make([]Tranche, 0, len(kinds))

	for _, k := range kinds {
		out = append(out, Tranche{
			TrancheID:      fmt.Sprintf("tranche-%s", k),
			Coverage:       k,
			CapitalShare:   1.0 / float64(len(kinds)),
			BaseAPY:        baseAPY[k],
			UtilizationAPY: 0.05,
		})
	}

	return out
}

// UtilizationTracker implements product.UtilizationTracker by splitting
// pool capital across configured tranches and reading coverage sold per
// tranche straight from a live pool snapshot.
type UtilizationTracker struct {
	pool     product.PoolRepository
	tranches []Tranche
}

// NewUtilizationTracker builds a UtilizationTracker over pool, tracking
// the given tranches.
func NewUtilizationTracker(pool product.PoolRepository, tranches []Tranche) *UtilizationTracker {
	return &UtilizationTracker{pool: pool, tranches: tranches}
}

// GetAllUtilizations implements product.UtilizationTracker.
func (t *UtilizationTracker) GetAllUtilizations(ctx context.Context) ([]product.TrancheInfo, error) {
	pool, err := t.pool.GetPool(ctx)
	if err != nil {
		return nil, err
	}

	snap := pool.Snapshot()
	coverageSold := make(map[product.CoverageKind]int64)

	for _, pol := range snap.ActivePolicies {
		coverageSold[pol.Key.Coverage] += pol.CoverageAmountCents
	}

	now := time.Now().UTC()
	out := make([]product.TrancheInfo, 0, len(t.tranches))

	for _, tr := range t.tranches {
		capital := int64(float64(snap.TotalCapitalCents) * tr.CapitalShare)
		sold := coverageSold[tr.Coverage]

		util := 0.0
		if capital > 0 {
			util = float64(sold) / float64(capital)
		}

		out = append(out, product.TrancheInfo{
			TrancheID:         tr.TrancheID,
			APY:               tr.BaseAPY + tr.UtilizationAPY*util,
			Utilization:       util,
			TotalCapitalCents: capital,
			CoverageSoldCents: sold,
			LastUpdated:       now,
		})
	}

	return out, nil
}

// GetAvailableCapacity implements product.UtilizationTracker.
func (t *UtilizationTracker) GetAvailableCapacity(ctx context.Context, trancheID string) (int64, error) {
	all, err := t.GetAllUtilizations(ctx)
	if err != nil {
		return 0, err
	}

	for _, tr := range all {
		if tr.TrancheID == trancheID {
			available := tr.TotalCapitalCents - tr.CoverageSoldCents
			if available < 0 {
				return 0, nil
			}

			return available, nil
		}
	}

	return 0, fmt.Errorf("unknown tranche %q", trancheID)
}
