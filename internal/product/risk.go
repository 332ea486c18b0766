package product

import "time"

// AlertSeverity is the closed severity scale shared by bridge and risk alerts.
type AlertSeverity string

const (
	SeverityCritical AlertSeverity = "Critical"
	SeverityHigh     AlertSeverity = "High"
	SeverityMedium   AlertSeverity = "Medium"
	SeverityLow      AlertSeverity = "Low"
)

// BridgeAlert is one alert raised against a bridge.
type BridgeAlert struct {
	AlertID   string
	Severity  AlertSeverity
	Message   string
	Timestamp time.Time
	Resolved  bool
}

// BridgeHealth is the per-bridge record maintained by the bridge health
// monitoring loop. HealthScore is in [0,1]; TVL amounts are in cents.
type BridgeHealth struct {
	BridgeID        string
	SourceChain     Chain
	DestChain       Chain
	HealthScore     float64
	CurrentTVLCents int64
	PreviousTVLCents int64
	ExploitDetected bool
	Alerts          []BridgeAlert
}

// TVLChangePct computes the TVL delta percentage. First-seen bridges (no
// previous reading) report 0, per the decision recorded in DESIGN.md for
// spec §9's open question on first-seen tvl_change_pct.
func (b *BridgeHealth) TVLChangePct() float64 {
	if b.PreviousTVLCents == 0 {
		return 0
	}

	return float64(b.CurrentTVLCents-b.PreviousTVLCents) / float64(b.PreviousTVLCents)
}

// HealthStatus classifies HealthScore per the thresholds of spec §6.
func (b *BridgeHealth) HealthStatus() string {
	switch {
	case b.HealthScore >= 0.9:
		return "Healthy"
	case b.HealthScore >= 0.7:
		return "Caution"
	case b.HealthScore >= 0.5:
		return "Warning"
	default:
		return "Critical"
	}
}

// AlertKind is the closed tagged variant for risk-snapshot alerts, per the
// design note in spec §9 ("a closed tagged variant with exhaustive match").
type AlertKind string

const (
	AlertLTVBreach        AlertKind = "LTVBreach"
	AlertReserveLow       AlertKind = "ReserveLow"
	AlertConcentrationHigh AlertKind = "ConcentrationHigh"
	AlertCorrelationSpike AlertKind = "CorrelationSpike"
	AlertStressLossHigh   AlertKind = "StressLossHigh"
	AlertVaRBreach        AlertKind = "VaRBreach"
)

// RiskAlert is one breach or warning entry in a RiskSnapshot.
type RiskAlert struct {
	Kind        AlertKind
	Severity    AlertSeverity
	Message     string
	CurrentValue float64
	LimitValue  float64
	Timestamp   time.Time
}

// TopProduct is one entry of a RiskSnapshot's top_10_products ranking.
type TopProduct struct {
	Key              Key
	ExposureUSDCents int64
	PolicyCount      int
}

// RiskSnapshot is produced once per risk-monitor cycle (spec §3, §4.3).
type RiskSnapshot struct {
	VaR95            float64
	VaR99            float64
	CVaR95           float64
	ExpectedLossCents int64
	LTV              float64
	ReserveRatio     float64
	MaxConcentration float64
	BreachAlerts     []RiskAlert
	WarningAlerts    []RiskAlert
	Top10Products    []TopProduct
	Timestamp        time.Time
}

// TrancheInfo is one capital tranche's utilization reading (spec §3, §4.3).
type TrancheInfo struct {
	TrancheID     string
	APY           float64
	Utilization   float64
	TotalCapitalCents int64
	CoverageSoldCents int64
	LastUpdated   time.Time
}
