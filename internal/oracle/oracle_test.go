package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tonsurance/hedgeplane/internal/product"
	"go.uber.org/zap"
)

func TestPriceFeed_FetchPrices(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "USDC,USDT", r.URL.Query().Get("assets"))
		_ = json.NewEncoder(w).Encode(priceFeedResponse{Prices: map[string]float64{"USDC": 0.995, "USDT": 1.001}})
	}))
	defer srv.Close()

	f := NewPriceFeed(srv.URL, zap.NewNop())

	prices, err := f.FetchPrices(context.Background(), []string{"USDC", "USDT"})
	require.NoError(t, err)
	assert.Equal(t, 0.995, prices["USDC"])
	assert.Equal(t, 1.001, prices["USDT"])
}

func TestPriceFeed_FetchPrices_ToleratesTransportFailure(t *testing.T) {
	t.Parallel()

	f := NewPriceFeed("http://127.0.0.1:1", zap.NewNop())

	prices, err := f.FetchPrices(context.Background(), []string{"USDC"})
	require.NoError(t, err)
	assert.Empty(t, prices)
}

func TestBridgeDataSource_MonitorAll(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(bridgeTVLResponse{TVLCents: 900_000_00, ExploitDetected: false})
	}))
	defer srv.Close()

	cfgs := []BridgeConfig{{BridgeID: "wormhole", SourceChain: product.ChainEthereum, DestChain: product.ChainSolana}}
	s := NewBridgeDataSource(srv.URL, cfgs, zap.NewNop())

	previous := map[string]*product.BridgeHealth{
		"wormhole": {BridgeID: "wormhole", CurrentTVLCents: 1_000_000_00},
	}

	out, err := s.MonitorAll(context.Background(), previous)
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.Equal(t, int64(900_000_00), out[0].CurrentTVLCents)
	assert.Equal(t, int64(1_000_000_00), out[0].PreviousTVLCents)
	assert.Less(t, out[0].HealthScore, 1.0)
}

func TestBridgeDataSource_MonitorAll_ExploitFloorsScore(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(bridgeTVLResponse{TVLCents: 500_000_00, ExploitDetected: true})
	}))
	defer srv.Close()

	cfgs := []BridgeConfig{{BridgeID: "wormhole"}}
	s := NewBridgeDataSource(srv.URL, cfgs, zap.NewNop())

	out, err := s.MonitorAll(context.Background(), map[string]*product.BridgeHealth{})
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.Equal(t, 0.1, out[0].HealthScore)
	require.Len(t, out[0].Alerts, 1)
	assert.Equal(t, product.SeverityCritical, out[0].Alerts[0].Severity)
}

func TestBridgeDataSource_MonitorAll_CarriesForwardOnFailure(t *testing.T) {
	t.Parallel()

	s := NewBridgeDataSource("http://127.0.0.1:1", []BridgeConfig{{BridgeID: "wormhole"}}, zap.NewNop())

	previous := map[string]*product.BridgeHealth{"wormhole": {BridgeID: "wormhole", HealthScore: 0.95}}

	out, err := s.MonitorAll(context.Background(), previous)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 0.95, out[0].HealthScore)
}
