package product

import "context"

// OracleAdapter fetches current spot prices for a set of asset symbols.
// Implementations carry their own ≤10 s timeout and may return a partial
// map when some feeds fail (spec §6).
type OracleAdapter interface {
	FetchPrices(ctx context.Context, assets []string) (map[string]float64, error)
}

// BridgeMonitor recomputes bridge health from the previous tick's state,
// keyed by bridge_id (spec §6).
type BridgeMonitor interface {
	MonitorAll(ctx context.Context, previous map[string]*BridgeHealth) ([]*BridgeHealth, error)
}

// RiskMonitor recomputes a RiskSnapshot from a point-in-time pool view
// (spec §6).
type RiskMonitor interface {
	CalculateSnapshot(ctx context.Context, pool Snapshot) (*RiskSnapshot, error)
}

// UtilizationTracker reports per-tranche utilization and available
// capacity (spec §6).
type UtilizationTracker interface {
	GetAllUtilizations(ctx context.Context) ([]TrancheInfo, error)
	GetAvailableCapacity(ctx context.Context, trancheID string) (int64, error)
}

// PoolRepository is the persistence-backed view of the UnifiedPool used by
// code that must not hold the in-process pool lock across an I/O call
// (spec §6).
type PoolRepository interface {
	GetPool(ctx context.Context) (*UnifiedPool, error)
}

// ReadModelStore persists the monitoring loops' latest computed state so
// the HTTP process — a separate OS process from the monitoring loops, per
// spec §5's process split — can serve the read-oriented REST surface of
// spec §6 without recomputing a snapshot per request.
type ReadModelStore interface {
	SaveBridgeHealth(ctx context.Context, all []*BridgeHealth) error
	BridgeHealth(ctx context.Context, bridgeID string) (*BridgeHealth, error)

	SaveRiskSnapshot(ctx context.Context, snap *RiskSnapshot) error
	LatestRiskSnapshot(ctx context.Context) (*RiskSnapshot, error)

	SaveTranches(ctx context.Context, tranches []TrancheInfo) error
	Tranches(ctx context.Context) ([]TrancheInfo, error)
}

// VenueQuote is the result of a venue's cost quote for hedging a given
// notional.
type VenueQuote struct {
	CostCents int64
}

// VenueFill is the result of opening a position at a venue.
type VenueFill struct {
	OrderID   string
	FilledCents int64
	Price     float64
}

// VenueClose is the result of closing a venue position.
type VenueClose struct {
	NetPnLCents int64
}

// VenueAdapter is the contract for one external hedge venue (spec §6).
// Side mirrors the direction of the underlying policy risk being hedged
// ("short" for depeg/price-drop exposure in the common case).
type VenueAdapter interface {
	Venue() Venue
	Quote(ctx context.Context, key Key, amountCents int64) (VenueQuote, error)
	OpenPosition(ctx context.Context, key Key, amountCents int64, side string, leverage float64) (VenueFill, error)
	ClosePosition(ctx context.Context, orderID string) (VenueClose, error)
}
