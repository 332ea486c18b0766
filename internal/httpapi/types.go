package httpapi

import "time"

// QuoteRequest is the body of POST /api/v2/quote/multi-dimensional.
type QuoteRequest struct {
	Body struct {
		CoverageType        string `doc:"Coverage kind" enum:"depeg,smart_contract,oracle,bridge,cex_liquidation" json:"coverage_type"`
		Chain               string `doc:"Blockchain identifier"                                                   json:"chain"`
		Stablecoin          string `doc:"Stablecoin identifier"                                                   json:"stablecoin"`
		CoverageAmountCents int64  `doc:"Coverage amount in cents"                                  minimum:"1"   json:"coverage_amount"`
		DurationDays        int    `doc:"Policy duration in days"                                   minimum:"1"   json:"duration_days"`
	}
}

// QuoteBreakdown mirrors product.PremiumBreakdown's public JSON shape.
type QuoteBreakdown struct {
	BaseRate             float64 `json:"base_rate"`
	ChainMultiplier      float64 `json:"chain_multiplier"`
	StablecoinAdjustment float64 `json:"stablecoin_adjustment"`
	TotalRate            float64 `json:"total_rate"`
	CoverageAmountCents  int64   `json:"coverage_amount"`
	DurationDays         int     `json:"duration_days"`
}

// QuoteResponse is the response of POST /api/v2/quote/multi-dimensional.
type QuoteResponse struct {
	Body struct {
		PremiumCents int64          `json:"premium"`
		Breakdown    QuoteBreakdown `json:"breakdown"`
		ProductHash  string         `json:"product_hash"`
		Timestamp    time.Time      `json:"timestamp"`
	}
}

// ExposureEntry is one grouping row of GET /api/v2/risk/exposure.
type ExposureEntry struct {
	Key              string `json:"key"`
	ExposureUSDCents int64  `json:"exposure_usd"`
	PolicyCount      int    `json:"policy_count"`
}

// ExposureResponse is the response of GET /api/v2/risk/exposure.
type ExposureResponse struct {
	Body struct {
		ByCoverageType []ExposureEntry `json:"by_coverage_type"`
		ByChain        []ExposureEntry `json:"by_chain"`
		ByStablecoin   []ExposureEntry `json:"by_stablecoin"`
		Top10Products  []ExposureEntry `json:"top_10_products"`
		TotalPolicies  int             `json:"total_policies"`
		Timestamp      time.Time       `json:"timestamp"`
	}
}

// BridgeHealthRequest is the request for GET /api/v2/bridge-health/:bridge_id.
type BridgeHealthRequest struct {
	BridgeID string `doc:"Bridge identifier" example:"wormhole" path:"bridge_id"`
}

// BridgeHealthResponse is the response of GET /api/v2/bridge-health/:bridge_id.
type BridgeHealthResponse struct {
	Body struct {
		BridgeID        string    `json:"bridge_id"`
		SourceChain      string    `json:"source_chain"`
		DestChain        string    `json:"dest_chain"`
		HealthScore      float64   `json:"health_score"`
		HealthStatus     string    `json:"health_status"`
		TVLUSDCents      int64     `json:"tvl_usd"`
		TVLChangePct     float64   `json:"tvl_change_pct"`
		ExploitDetected  bool      `json:"exploit_detected"`
		ActiveAlerts     int       `json:"active_alerts"`
		LastUpdated      time.Time `json:"last_updated"`
		Timestamp        time.Time `json:"timestamp"`
	}
}

// RiskAlertsRequest is the query for GET /api/v2/risk/alerts.
type RiskAlertsRequest struct {
	Severity  string `doc:"Filter by severity" query:"severity"`
	AlertType string `doc:"Filter by alert type" query:"alert_type"`
}

// RiskAlertEntry is one row of RiskAlertsResponse.
type RiskAlertEntry struct {
	Kind         string    `json:"alert_type"`
	Severity     string    `json:"severity"`
	Message      string    `json:"message"`
	CurrentValue float64   `json:"current_value"`
	LimitValue   float64   `json:"limit_value"`
	Timestamp    time.Time `json:"timestamp"`
}

// RiskAlertsResponse is the response of GET /api/v2/risk/alerts.
type RiskAlertsResponse struct {
	Body struct {
		Alerts        []RiskAlertEntry `json:"alerts"`
		TotalAlerts   int              `json:"total_alerts"`
		CriticalCount int              `json:"critical_count"`
		Timestamp     time.Time        `json:"timestamp"`
	}
}

// TrancheEntry is one row of TranchesResponse.
type TrancheEntry struct {
	TrancheID             string    `json:"tranche_id"`
	APY                    float64   `json:"apy"`
	Utilization            float64   `json:"utilization"`
	TotalCapitalCents      int64     `json:"total_capital_ton"`
	CoverageSoldCents      int64     `json:"coverage_sold_ton"`
	AvailableCapacityCents int64     `json:"available_capacity_ton"`
	LastUpdated            time.Time `json:"last_updated"`
}

// TranchesResponse is the response of GET /api/v2/tranches/apy.
type TranchesResponse struct {
	Body struct {
		Tranches  []TrancheEntry `json:"tranches"`
		Timestamp time.Time      `json:"timestamp"`
	}
}
