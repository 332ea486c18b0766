package httpapi_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tonsurance/hedgeplane/internal/httpapi"
	"github.com/tonsurance/hedgeplane/internal/product"
	"go.uber.org/zap"
)

var errMock = errors.New("mock failure")

type fakePoolRepo struct {
	pool *product.UnifiedPool
	err  error
}

func (f *fakePoolRepo) GetPool(_ context.Context) (*product.UnifiedPool, error) {
	if f.err != nil {
		return nil, f.err
	}

	return f.pool, nil
}

type fakeReadModel struct {
	bridges  map[string]*product.BridgeHealth
	snapshot *product.RiskSnapshot
	tranches []product.TrancheInfo
	err      error
}

func newFakeReadModel() *fakeReadModel {
	return &fakeReadModel{bridges: make(map[string]*product.BridgeHealth)}
}

func (f *fakeReadModel) SaveBridgeHealth(_ context.Context, all []*product.BridgeHealth) error {
	for _, bh := range all {
		f.bridges[bh.BridgeID] = bh
	}

	return nil
}

func (f *fakeReadModel) BridgeHealth(_ context.Context, bridgeID string) (*product.BridgeHealth, error) {
	if f.err != nil {
		return nil, f.err
	}

	return f.bridges[bridgeID], nil
}

func (f *fakeReadModel) SaveRiskSnapshot(_ context.Context, snap *product.RiskSnapshot) error {
	f.snapshot = snap

	return nil
}

func (f *fakeReadModel) LatestRiskSnapshot(_ context.Context) (*product.RiskSnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}

	return f.snapshot, nil
}

func (f *fakeReadModel) SaveTranches(_ context.Context, tranches []product.TrancheInfo) error {
	f.tranches = tranches

	return nil
}

func (f *fakeReadModel) Tranches(_ context.Context) ([]product.TrancheInfo, error) {
	if f.err != nil {
		return nil, f.err
	}

	return f.tranches, nil
}

func depegKey() product.Key {
	return product.Key{Coverage: product.CoverageDepeg, Chain: product.ChainEthereum, Stablecoin: product.StablecoinUSDC}
}

func TestQuote(t *testing.T) {
	t.Run("computes premium for a valid dimension", func(t *testing.T) {
		h := httpapi.NewHandler(&fakePoolRepo{}, newFakeReadModel(), zap.NewNop())

		req := &httpapi.QuoteRequest{}
		req.Body.CoverageType = string(product.CoverageDepeg)
		req.Body.Chain = string(product.ChainEthereum)
		req.Body.Stablecoin = string(product.StablecoinUSDC)
		req.Body.CoverageAmountCents = 100_000_00
		req.Body.DurationDays = 30

		resp, err := h.Quote(context.Background(), req)

		require.NoError(t, err)
		assert.Greater(t, resp.Body.PremiumCents, int64(0))
		assert.NotEmpty(t, resp.Body.ProductHash)
		assert.Equal(t, 0.008, resp.Body.Breakdown.BaseRate)
	})

	t.Run("rejects unknown coverage type", func(t *testing.T) {
		h := httpapi.NewHandler(&fakePoolRepo{}, newFakeReadModel(), zap.NewNop())

		req := &httpapi.QuoteRequest{}
		req.Body.CoverageType = "not_a_kind"
		req.Body.Chain = string(product.ChainEthereum)
		req.Body.Stablecoin = string(product.StablecoinUSDC)
		req.Body.CoverageAmountCents = 1000
		req.Body.DurationDays = 30

		resp, err := h.Quote(context.Background(), req)

		assert.Nil(t, resp)
		assert.Error(t, err)
	})

	t.Run("same dimension always hashes to the same product_hash", func(t *testing.T) {
		h := httpapi.NewHandler(&fakePoolRepo{}, newFakeReadModel(), zap.NewNop())

		req := &httpapi.QuoteRequest{}
		req.Body.CoverageType = string(product.CoverageBridge)
		req.Body.Chain = string(product.ChainSolana)
		req.Body.Stablecoin = string(product.StablecoinUSDT)
		req.Body.CoverageAmountCents = 5000
		req.Body.DurationDays = 7

		resp1, err1 := h.Quote(context.Background(), req)
		resp2, err2 := h.Quote(context.Background(), req)

		require.NoError(t, err1)
		require.NoError(t, err2)
		assert.Equal(t, resp1.Body.ProductHash, resp2.Body.ProductHash)
	})
}

func TestExposure(t *testing.T) {
	t.Run("aggregates active policies and includes cached top-10 ranking", func(t *testing.T) {
		pool := product.NewUnifiedPool(10_000_000_00)
		pool.AddPolicy(&product.Policy{ID: 1, Key: depegKey(), CoverageAmountCents: 1000_00})
		pool.AddPolicy(&product.Policy{ID: 2, Key: depegKey(), CoverageAmountCents: 2000_00})

		rm := newFakeReadModel()
		rm.snapshot = &product.RiskSnapshot{
			Top10Products: []product.TopProduct{{Key: depegKey(), ExposureUSDCents: 3000_00, PolicyCount: 2}},
		}

		h := httpapi.NewHandler(&fakePoolRepo{pool: pool}, rm, zap.NewNop())

		resp, err := h.Exposure(context.Background(), nil)

		require.NoError(t, err)
		assert.Equal(t, 2, resp.Body.TotalPolicies)
		require.Len(t, resp.Body.ByCoverageType, 1)
		assert.Equal(t, int64(3000_00), resp.Body.ByCoverageType[0].ExposureUSDCents)
		require.Len(t, resp.Body.Top10Products, 1)
		assert.Equal(t, depegKey().String(), resp.Body.Top10Products[0].Key)
	})

	t.Run("tolerates a missing risk snapshot", func(t *testing.T) {
		pool := product.NewUnifiedPool(0)
		h := httpapi.NewHandler(&fakePoolRepo{pool: pool}, newFakeReadModel(), zap.NewNop())

		resp, err := h.Exposure(context.Background(), nil)

		require.NoError(t, err)
		assert.Empty(t, resp.Body.Top10Products)
	})

	t.Run("returns error when pool lookup fails", func(t *testing.T) {
		h := httpapi.NewHandler(&fakePoolRepo{err: errMock}, newFakeReadModel(), zap.NewNop())

		resp, err := h.Exposure(context.Background(), nil)

		assert.Nil(t, resp)
		assert.Error(t, err)
	})
}

func TestBridgeHealth(t *testing.T) {
	t.Run("reports health status and tvl change", func(t *testing.T) {
		rm := newFakeReadModel()
		rm.bridges["wormhole"] = &product.BridgeHealth{
			BridgeID:         "wormhole",
			SourceChain:      product.ChainEthereum,
			DestChain:        product.ChainSolana,
			HealthScore:      0.95,
			CurrentTVLCents:  1_100_00,
			PreviousTVLCents: 1_000_00,
			Alerts:           []product.BridgeAlert{{AlertID: "a1", Timestamp: time.Unix(1000, 0), Resolved: true}},
		}

		h := httpapi.NewHandler(&fakePoolRepo{}, rm, zap.NewNop())

		resp, err := h.BridgeHealth(context.Background(), &httpapi.BridgeHealthRequest{BridgeID: "wormhole"})

		require.NoError(t, err)
		assert.Equal(t, "Healthy", resp.Body.HealthStatus)
		assert.InDelta(t, 0.1, resp.Body.TVLChangePct, 0.0001)
		assert.Equal(t, 0, resp.Body.ActiveAlerts)
	})

	t.Run("returns 404 for an unknown bridge", func(t *testing.T) {
		h := httpapi.NewHandler(&fakePoolRepo{}, newFakeReadModel(), zap.NewNop())

		resp, err := h.BridgeHealth(context.Background(), &httpapi.BridgeHealthRequest{BridgeID: "unknown"})

		assert.Nil(t, resp)
		assert.Error(t, err)
	})
}

func TestRiskAlerts(t *testing.T) {
	t.Run("filters by severity and counts criticals", func(t *testing.T) {
		rm := newFakeReadModel()
		rm.snapshot = &product.RiskSnapshot{
			BreachAlerts: []product.RiskAlert{
				{Kind: product.AlertVaRBreach, Severity: product.SeverityCritical, Message: "var breach"},
			},
			WarningAlerts: []product.RiskAlert{
				{Kind: product.AlertReserveLow, Severity: product.SeverityMedium, Message: "reserve low"},
			},
		}

		h := httpapi.NewHandler(&fakePoolRepo{}, rm, zap.NewNop())

		resp, err := h.RiskAlerts(context.Background(), &httpapi.RiskAlertsRequest{Severity: "Critical"})

		require.NoError(t, err)
		require.Len(t, resp.Body.Alerts, 1)
		assert.Equal(t, 1, resp.Body.CriticalCount)
		assert.Equal(t, 1, resp.Body.TotalAlerts)
	})

	t.Run("returns empty alerts when no snapshot exists yet", func(t *testing.T) {
		h := httpapi.NewHandler(&fakePoolRepo{}, newFakeReadModel(), zap.NewNop())

		resp, err := h.RiskAlerts(context.Background(), &httpapi.RiskAlertsRequest{})

		require.NoError(t, err)
		assert.Empty(t, resp.Body.Alerts)
	})
}

func TestTranches(t *testing.T) {
	t.Run("computes available capacity and sorts by tranche id", func(t *testing.T) {
		rm := newFakeReadModel()
		rm.tranches = []product.TrancheInfo{
			{TrancheID: "senior", TotalCapitalCents: 1_000_00, CoverageSoldCents: 400_00},
			{TrancheID: "junior", TotalCapitalCents: 500_00, CoverageSoldCents: 600_00},
		}

		h := httpapi.NewHandler(&fakePoolRepo{}, rm, zap.NewNop())

		resp, err := h.Tranches(context.Background(), nil)

		require.NoError(t, err)
		require.Len(t, resp.Body.Tranches, 2)
		assert.Equal(t, "junior", resp.Body.Tranches[0].TrancheID)
		assert.Equal(t, int64(0), resp.Body.Tranches[0].AvailableCapacityCents)
		assert.Equal(t, int64(600_00), resp.Body.Tranches[1].AvailableCapacityCents)
	})
}
