package product

import "time"

// Exposure is the derived, per-cycle aggregate for one ProductKey, computed
// fresh each hedge cycle and never stored (spec §3).
type Exposure struct {
	Key               Key
	ActivePolicies    int
	TotalCoverageCents int64
	TotalPremiumCents int64
	ExpectedPayoutCents int64
	HedgeRequiredCents int64
}

// Venue is the closed set of external hedge venues.
type Venue string

const (
	VenuePolymarket      Venue = "Polymarket"
	VenueBinanceFutures  Venue = "BinanceFutures"
	VenueAllianzParametric Venue = "AllianzParametric"
	VenueDefiPerps       Venue = "DefiPerps"
)

// Allocation is the per-venue split of one product's hedge requirement
// (spec §3, §4.5 step B). The four cent fields must sum to HedgeRequired
// within a one-cent rounding tolerance.
type Allocation struct {
	Key              Key
	PolymarketCents  int64
	PerpetualsCents  int64
	DefiPerpsCents   int64
	AllianzCents     int64
	TotalCostCents   int64
}

// PositionStatus is the lifecycle state of a HedgePosition.
type PositionStatus string

const (
	PositionOpen   PositionStatus = "Open"
	PositionClosed PositionStatus = "Closed"
)

// HedgePosition tracks one venue execution against a product's hedge
// requirement, from open through close and realized P&L (spec §3, §4.5
// steps D and "Close path").
type HedgePosition struct {
	PositionID      string
	PolicyID        int64
	Key             Key
	Venue           Venue
	ExternalOrderID string
	HedgeAmountCents int64
	EntryPrice      float64
	EntryTime       time.Time
	Status          PositionStatus
	RealizedPnLCents *int64
	CloseTime       *time.Time
}

// Close marks the position Closed with the given realized P&L, idempotently:
// a position already Closed is left unchanged (spec §8 "double-close of a
// HedgePosition is idempotent").
func (h *HedgePosition) Close(now time.Time, realizedPnLCents int64) {
	if h.Status == PositionClosed {
		return
	}

	h.Status = PositionClosed
	h.RealizedPnLCents = &realizedPnLCents
	h.CloseTime = &now
}
