// Package httpapi implements the read-oriented REST surface of spec §6:
// multi-dimensional quoting, risk exposure, bridge health, risk alerts, and
// tranche APY. Handlers are thin — they translate between huma request/
// response structs and the product/monitoring read model — and never hold a
// lock across an I/O call, following the same discipline as the monitoring
// loops they read from.
package httpapi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"time"

	"github.com/tonsurance/hedgeplane/internal/apperr"
	"github.com/tonsurance/hedgeplane/internal/product"
	"go.uber.org/zap"
)

// Handler bundles the read-model dependencies behind the REST surface.
type Handler struct {
	pool      product.PoolRepository
	readModel product.ReadModelStore
	logger    *zap.Logger
}

// NewHandler builds a Handler.
func NewHandler(pool product.PoolRepository, readModel product.ReadModelStore, logger *zap.Logger) *Handler {
	return &Handler{pool: pool, readModel: readModel, logger: logger}
}

// Quote computes a premium for a single product dimension via the public
// premium formula (spec §6).
func (h *Handler) Quote(_ context.Context, req *QuoteRequest) (*QuoteResponse, error) {
	key := product.Key{
		Coverage:   product.CoverageKind(req.Body.CoverageType),
		Chain:      product.Chain(req.Body.Chain),
		Stablecoin: product.Stablecoin(req.Body.Stablecoin),
	}

	if !key.Coverage.Valid() {
		return nil, translate(apperr.New(apperr.Validation, "unknown coverage_type: "+req.Body.CoverageType))
	}

	if _, ok := product.ChainMultipliers[key.Chain]; !ok {
		return nil, translate(apperr.New(apperr.Validation, "unknown chain: "+req.Body.Chain))
	}

	if _, ok := product.StablecoinAdjustments[key.Stablecoin]; !ok {
		return nil, translate(apperr.New(apperr.Validation, "unknown stablecoin: "+req.Body.Stablecoin))
	}

	breakdown := product.ComputePremium(key, req.Body.CoverageAmountCents, req.Body.DurationDays)

	resp := &QuoteResponse{}
	resp.Body.PremiumCents = breakdown.PremiumCents
	resp.Body.Breakdown = QuoteBreakdown{
		BaseRate:             breakdown.BaseRate,
		ChainMultiplier:      breakdown.ChainMultiplier,
		StablecoinAdjustment: breakdown.StablecoinAdjustment,
		TotalRate:            breakdown.TotalRate,
		CoverageAmountCents:  breakdown.CoverageAmountCents,
		DurationDays:         breakdown.DurationDays,
	}
	resp.Body.ProductHash = productHash(key)
	resp.Body.Timestamp = time.Now()

	return resp, nil
}

// productHash derives a stable, opaque identifier for a product dimension so
// clients can cache or reference a quote without re-encoding its three
// fields.
func productHash(key product.Key) string {
	sum := sha256.Sum256([]byte(key.String()))

	return hex.EncodeToString(sum[:])[:16]
}

// Exposure reports live active-coverage totals grouped by coverage kind,
// chain, and stablecoin, plus the cached top-10 concentration ranking from
// the most recent risk snapshot (spec §6).
func (h *Handler) Exposure(ctx context.Context, _ *struct{}) (*ExposureResponse, error) {
	pool, err := h.pool.GetPool(ctx)
	if err != nil {
		return nil, translate(apperr.Wrap(apperr.Internal, "failed to load pool", err))
	}

	breakdown := product.AggregateExposure(pool.Snapshot())

	resp := &ExposureResponse{}
	resp.Body.ByCoverageType = toExposureEntries(breakdown.ByCoverageType)
	resp.Body.ByChain = toExposureEntries(breakdown.ByChain)
	resp.Body.ByStablecoin = toExposureEntries(breakdown.ByStablecoin)
	resp.Body.TotalPolicies = breakdown.TotalPolicies
	resp.Body.Timestamp = time.Now()

	snap, err := h.readModel.LatestRiskSnapshot(ctx)
	if err != nil {
		h.logger.Warn("risk snapshot read-model lookup failed", zap.Error(err))
	} else if snap != nil {
		top := make([]ExposureEntry, len(snap.Top10Products))
		for i, p := range snap.Top10Products {
			top[i] = ExposureEntry{
				Key:              p.Key.String(),
				ExposureUSDCents: p.ExposureUSDCents,
				PolicyCount:      p.PolicyCount,
			}
		}

		resp.Body.Top10Products = top
	}

	return resp, nil
}

func toExposureEntries(src []product.ExposureEntry) []ExposureEntry {
	out := make([]ExposureEntry, len(src))
	for i, e := range src {
		out[i] = ExposureEntry{Key: e.Key, ExposureUSDCents: e.ExposureUSDCents, PolicyCount: e.PolicyCount}
	}

	return out
}

// BridgeHealth reads the latest health record for a single bridge from the
// read model (spec §6).
func (h *Handler) BridgeHealth(ctx context.Context, req *BridgeHealthRequest) (*BridgeHealthResponse, error) {
	bh, err := h.readModel.BridgeHealth(ctx, req.BridgeID)
	if err != nil {
		return nil, translate(apperr.Wrap(apperr.Internal, "failed to load bridge health", err))
	}

	if bh == nil {
		return nil, translate(apperr.New(apperr.NotFound, "bridge not found: "+req.BridgeID))
	}

	resp := &BridgeHealthResponse{}
	resp.Body.BridgeID = bh.BridgeID
	resp.Body.SourceChain = string(bh.SourceChain)
	resp.Body.DestChain = string(bh.DestChain)
	resp.Body.HealthScore = bh.HealthScore
	resp.Body.HealthStatus = bh.HealthStatus()
	resp.Body.TVLUSDCents = bh.CurrentTVLCents
	resp.Body.TVLChangePct = bh.TVLChangePct()
	resp.Body.ExploitDetected = bh.ExploitDetected
	resp.Body.ActiveAlerts = countUnresolved(bh.Alerts)

	if len(bh.Alerts) > 0 {
		resp.Body.LastUpdated = bh.Alerts[len(bh.Alerts)-1].Timestamp
	}

	resp.Body.Timestamp = time.Now()

	return resp, nil
}

func countUnresolved(alerts []product.BridgeAlert) int {
	n := 0

	for _, a := range alerts {
		if !a.Resolved {
			n++
		}
	}

	return n
}

// RiskAlerts reports the current breach and warning alerts from the most
// recent risk snapshot, optionally filtered by severity and/or alert type
// (spec §6).
func (h *Handler) RiskAlerts(ctx context.Context, req *RiskAlertsRequest) (*RiskAlertsResponse, error) {
	snap, err := h.readModel.LatestRiskSnapshot(ctx)
	if err != nil {
		return nil, translate(apperr.Wrap(apperr.Internal, "failed to load risk snapshot", err))
	}

	resp := &RiskAlertsResponse{}
	resp.Body.Timestamp = time.Now()

	if snap == nil {
		return resp, nil
	}

	all := make([]product.RiskAlert, 0, len(snap.BreachAlerts)+len(snap.WarningAlerts))
	all = append(all, snap.BreachAlerts...)
	all = append(all, snap.WarningAlerts...)

	critical := 0

	for _, a := range all {
		if req.Severity != "" && string(a.Severity) != req.Severity {
			continue
		}

		if req.AlertType != "" && string(a.Kind) != req.AlertType {
			continue
		}

		resp.Body.Alerts = append(resp.Body.Alerts, RiskAlertEntry{
			Kind:         string(a.Kind),
			Severity:     string(a.Severity),
			Message:      a.Message,
			CurrentValue: a.CurrentValue,
			LimitValue:   a.LimitValue,
			Timestamp:    a.Timestamp,
		})

		if a.Severity == product.SeverityCritical {
			critical++
		}
	}

	resp.Body.TotalAlerts = len(resp.Body.Alerts)
	resp.Body.CriticalCount = critical

	return resp, nil
}

// Tranches reports per-tranche APY, utilization, and capacity from the read
// model (spec §6).
func (h *Handler) Tranches(ctx context.Context, _ *struct{}) (*TranchesResponse, error) {
	tranches, err := h.readModel.Tranches(ctx)
	if err != nil {
		return nil, translate(apperr.Wrap(apperr.Internal, "failed to load tranches", err))
	}

	sort.Slice(tranches, func(i, j int) bool { return tranches[i].TrancheID < tranches[j].TrancheID })

	resp := &TranchesResponse{}
	resp.Body.Timestamp = time.Now()

	for _, t := range tranches {
		available := t.TotalCapitalCents - t.CoverageSoldCents
		if available < 0 {
			available = 0
		}

		resp.Body.Tranches = append(resp.Body.Tranches, TrancheEntry{
			TrancheID:              t.TrancheID,
			APY:                    t.APY,
			Utilization:            t.Utilization,
			TotalCapitalCents:      t.TotalCapitalCents,
			CoverageSoldCents:      t.CoverageSoldCents,
			AvailableCapacityCents: available,
			LastUpdated:            t.LastUpdated,
		})
	}

	return resp, nil
}
