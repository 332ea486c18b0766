// Package events defines the internal event-bus payloads published by the
// monitoring, claims, and hedge packages (running in cmd/consumer) and
// consumed by cmd/server to fan them out over the WebSocket hub, using the
// same typed watermill wrapper the rest of the module uses for pub/sub
// (internal/messaging).
package events

import "time"

// Topic names for the internal event bus. The five signal topics share
// their name with the WebSocket channel they ultimately fan out to
// (spec §4.2, §4.3), so the server process's consumer can forward the
// decoded payload straight to Hub.Broadcast(topic, payload).
const (
	TopicBridgeHealth       = "bridge_health"
	TopicRiskAlerts         = "risk_alerts"
	TopicTopProducts        = "top_products"
	TopicTrancheAPY         = "tranche_apy"
	TopicBridgeTransactions = "bridge_transactions"

	TopicPolicyTriggered = "policy.triggered"
	TopicClaimPaid       = "claim.paid"
	TopicHedgeOpened     = "hedge.opened"
	TopicHedgeClosed     = "hedge.closed"
)

// BridgeHealthChanged is published when a bridge's health score moves by
// more than 0.05 between ticks (spec §4.3).
type BridgeHealthChanged struct {
	Channel         string    `json:"channel"`
	Type            string    `json:"type"`
	BridgeID        string    `json:"bridge_id"`
	PreviousScore   float64   `json:"previous_score"`
	CurrentScore    float64   `json:"current_score"`
	ExploitDetected bool      `json:"exploit_detected"`
	Timestamp       time.Time `json:"timestamp"`
}

// BridgeCriticalAlert is published for each new unresolved Critical bridge
// alert (spec §4.3).
type BridgeCriticalAlert struct {
	Type      string    `json:"type"`
	BridgeID  string    `json:"bridge_id"`
	AlertID   string    `json:"alert_id"`
	Message   string    `json:"message"`
	Severity  string    `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
}

// RiskAlertNew is published for a breach alert absent from the previous
// snapshot (spec §4.3).
type RiskAlertNew struct {
	Channel      string    `json:"channel"`
	Type         string    `json:"type"`
	AlertType    string    `json:"alert_type"`
	Severity     string    `json:"severity"`
	Message      string    `json:"message"`
	CurrentValue float64   `json:"current_value"`
	LimitValue   float64   `json:"limit_value"`
	Timestamp    time.Time `json:"timestamp"`
}

// TopProductEntry is one row of a TopProductsUpdate ranking.
type TopProductEntry struct {
	CoverageKind string `json:"coverage_type"`
	Chain        string `json:"chain"`
	Stablecoin   string `json:"stablecoin"`
	ExposureUSD  int64  `json:"exposure_usd"`
	PolicyCount  int    `json:"policy_count"`
}

// TopProductsUpdate is published when the ordered top-10 key sequence
// changes between ticks (spec §4.3).
type TopProductsUpdate struct {
	Channel   string             `json:"channel"`
	Type      string             `json:"type"`
	Products  []TopProductEntry  `json:"products"`
	Timestamp time.Time          `json:"timestamp"`
}

// TrancheAPYEntry is one tranche's utilization reading.
type TrancheAPYEntry struct {
	TrancheID   string    `json:"tranche_id"`
	APY         float64   `json:"apy"`
	Utilization float64   `json:"utilization"`
	LastUpdated time.Time `json:"last_updated"`
}

// TrancheAPYUpdate is published unconditionally every tick (spec §4.3).
type TrancheAPYUpdate struct {
	Channel   string            `json:"channel"`
	Type      string            `json:"type"`
	Tranches  []TrancheAPYEntry `json:"tranches"`
	Timestamp time.Time         `json:"timestamp"`
}

// BridgeTransactionUpdate is published for a pending bridge transaction
// whose status changed, or is new, since the previous tick (spec §4.3).
type BridgeTransactionUpdate struct {
	Channel       string    `json:"channel"`
	Type          string    `json:"type"`
	TransactionID string    `json:"transaction_id"`
	BridgeID      string    `json:"bridge_id"`
	Status        string    `json:"status"`
	AmountCents   int64     `json:"amount_cents"`
	Timestamp     time.Time `json:"timestamp"`
}

// PolicyTriggered describes a policy whose TriggerState has become
// eligible for payout processing (spec §4.4). No package in this module
// publishes it; the claims monitor publishes only ClaimPaid.
type PolicyTriggered struct {
	PolicyID     int64     `json:"policy_id"`
	CoverageKind string    `json:"coverage_kind"`
	Chain        string    `json:"chain"`
	Stablecoin   string    `json:"stablecoin"`
	TriggerPrice float64   `json:"trigger_price"`
	CurrentPrice float64   `json:"current_price"`
	Timestamp    time.Time `json:"timestamp"`
}

// ClaimPaid is published once a payout has been reserved against the pool
// and the policy transitioned to Claimed (spec §4.4 step 6).
type ClaimPaid struct {
	PolicyID     int64     `json:"policy_id"`
	PayoutCents  int64     `json:"payout_amount_cents"`
	PayoutFactor float64   `json:"payout_factor"`
	Timestamp    time.Time `json:"timestamp"`
}

// HedgeOpened is published after a hedge orchestrator cycle opens a venue
// position (spec §4.5 step D).
type HedgeOpened struct {
	PositionID       string    `json:"position_id"`
	CoverageKind     string    `json:"coverage_kind"`
	Chain            string    `json:"chain"`
	Stablecoin       string    `json:"stablecoin"`
	Venue            string    `json:"venue"`
	HedgeAmountCents int64     `json:"hedge_amount_cents"`
	EntryPrice       float64   `json:"entry_price"`
	Timestamp        time.Time `json:"timestamp"`
}

// HedgeClosed is published when a hedge orchestrator cycle closes a venue
// position, carrying the realized P&L (spec §4.5 "Close path").
type HedgeClosed struct {
	PositionID       string    `json:"position_id"`
	Venue            string    `json:"venue"`
	RealizedPnLCents int64     `json:"realized_pnl_cents"`
	Timestamp        time.Time `json:"timestamp"`
}
