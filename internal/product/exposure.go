package product

// ExposureEntry is one grouping row of an exposure breakdown: total active
// coverage and policy count for a single value of a grouping dimension
// (coverage kind, chain, or stablecoin).
type ExposureEntry struct {
	Key              string
	ExposureUSDCents int64
	PolicyCount      int
}

// ExposureBreakdown groups a pool snapshot's active policies along the three
// product dimensions, for the risk-exposure read surface of spec §6.
type ExposureBreakdown struct {
	ByCoverageType []ExposureEntry
	ByChain        []ExposureEntry
	ByStablecoin   []ExposureEntry
	TotalPolicies  int
}

// AggregateExposure computes an ExposureBreakdown from a point-in-time pool
// snapshot. Grouping order within each dimension follows first-seen order,
// which is stable for a given snapshot since ActivePolicies iteration order
// is fixed once captured.
func AggregateExposure(snap Snapshot) ExposureBreakdown {
	byCoverage := newExposureAccumulator()
	byChain := newExposureAccumulator()
	byStablecoin := newExposureAccumulator()

	for _, pol := range snap.ActivePolicies {
		byCoverage.add(string(pol.Key.Coverage), pol.CoverageAmountCents)
		byChain.add(string(pol.Key.Chain), pol.CoverageAmountCents)
		byStablecoin.add(string(pol.Key.Stablecoin), pol.CoverageAmountCents)
	}

	return ExposureBreakdown{
		ByCoverageType: byCoverage.entries(),
		ByChain:        byChain.entries(),
		ByStablecoin:   byStablecoin.entries(),
		TotalPolicies:  len(snap.ActivePolicies),
	}
}

type exposureAccumulator struct {
	order []string
	rows  map[string]*ExposureEntry
}

func newExposureAccumulator() *exposureAccumulator {
	return &exposureAccumulator{rows: make(map[string]*ExposureEntry)}
}

func (a *exposureAccumulator) add(key string, amountCents int64) {
	row, ok := a.rows[key]
	if !ok {
		row = &ExposureEntry{Key: key}
		a.rows[key] = row
		a.order = append(a.order, key)
	}

	row.ExposureUSDCents += amountCents
	row.PolicyCount++
}

func (a *exposureAccumulator) entries() []ExposureEntry {
	out := make([]ExposureEntry, 0, len(a.order))
	for _, k := range a.order {
		out = append(out, *a.rows[k])
	}

	return out
}
