package hedge_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tonsurance/hedgeplane/internal/hedge"
	"github.com/tonsurance/hedgeplane/internal/product"
	"go.uber.org/zap"
)

func TestCostFetcher_SumsAvailableVenues(t *testing.T) {
	polymarket := &fakeVenue{venue: product.VenuePolymarket}
	binance := &fakeVenue{venue: product.VenueBinanceFutures}

	fetcher := hedge.NewCostFetcher(polymarket, binance, nil, nil, hedge.DefaultVenueWeights(), 0.20, zap.NewNop())

	breakdown := fetcher.Fetch(context.Background(), depegKey(), 1_000_000_00)

	require := assert.New(t)
	require.NotNil(breakdown.PolymarketCostCents)
	require.NotNil(breakdown.BinanceCostCents)
	require.Nil(breakdown.HyperliquidCostCents)
	require.Nil(breakdown.AllianzCostCents)
	require.Equal(*breakdown.PolymarketCostCents+*breakdown.BinanceCostCents, breakdown.TotalHedgeCostCents)
	require.Greater(breakdown.EffectivePremiumAdditionBps, 0.0)
}

func TestCostFetcher_MissingVenueContributesZero(t *testing.T) {
	fetcher := hedge.NewCostFetcher(nil, nil, nil, nil, hedge.DefaultVenueWeights(), 0.20, zap.NewNop())

	breakdown := fetcher.Fetch(context.Background(), depegKey(), 1_000_000_00)

	assert.Equal(t, int64(0), breakdown.TotalHedgeCostCents)
	assert.Nil(t, breakdown.PolymarketCostCents)
}

func TestCostFetcher_AllianzFallsBackToEstimatedRateWhenUnreachable(t *testing.T) {
	allianz := &fakeVenue{venue: product.VenueAllianzParametric, quoteErr: errors.New("unreachable")}

	fetcher := hedge.NewCostFetcher(nil, nil, nil, allianz, hedge.DefaultVenueWeights(), 0.20, zap.NewNop())

	breakdown := fetcher.Fetch(context.Background(), depegKey(), 1_000_000_00)

	require := assert.New(t)
	require.NotNil(breakdown.AllianzCostCents)
	require.Greater(*breakdown.AllianzCostCents, int64(0))
}
