package venue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllianz_Quote(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(allianzQuoteResponse{QuotedPremiumUSD: 150.25})
	}))
	defer srv.Close()

	a := NewAllianz(srv.URL)

	quote, err := a.Quote(context.Background(), depegKey(), 1_000_00)
	require.NoError(t, err)
	assert.Equal(t, int64(15025), quote.CostCents)
}

func TestAllianz_ClosePosition_QualifyingClaim(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(allianzClaimResponse{Qualifies: true, PaidAmount: 500})
	}))
	defer srv.Close()

	a := NewAllianz(srv.URL)

	result, err := a.ClosePosition(context.Background(), "az-1")
	require.NoError(t, err)
	assert.Equal(t, int64(50000), result.NetPnLCents)
}

func TestAllianz_ClosePosition_NonQualifyingClaimPaysZero(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(allianzClaimResponse{Qualifies: false})
	}))
	defer srv.Close()

	a := NewAllianz(srv.URL)

	result, err := a.ClosePosition(context.Background(), "az-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.NetPnLCents)
}

func TestAllianz_OpenPosition(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(allianzBindResponse{PolicyRef: "az-bind-1", BoundAmount: 1000, Premium: 15.02})
	}))
	defer srv.Close()

	a := NewAllianz(srv.URL)

	fill, err := a.OpenPosition(context.Background(), depegKey(), 1_000_00, "", 0)
	require.NoError(t, err)
	assert.Equal(t, "az-bind-1", fill.OrderID)
	assert.Equal(t, 15.02, fill.Price)
}

func TestAllianz_VenueUnreachablePropagatesError(t *testing.T) {
	t.Parallel()

	a := NewAllianz("http://127.0.0.1:1")

	_, err := a.Quote(context.Background(), depegKey(), 1_000_00)
	assert.Error(t, err)
}
