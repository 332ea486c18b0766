package venue

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/tonsurance/hedgeplane/internal/product"
)

// Allianz requests a parametric quote and, on open, binds a policy of
// matching notional, treating the quoted premium as the hedge cost
// (spec §4.5 step C).
type Allianz struct {
	http *resty.Client
}

// NewAllianz builds the Allianz parametric venue adapter.
func NewAllianz(baseURL string) *Allianz {
	return &Allianz{http: newHTTPClient(baseURL)}
}

func (a *Allianz) Venue() product.Venue { return product.VenueAllianzParametric }

type allianzQuoteRequest struct {
	CoverageKind string `json:"coverage_kind"`
	Chain        string `json:"chain"`
	Stablecoin   string `json:"stablecoin"`
	NotionalUSD  string `json:"notional_usd"`
}

type allianzQuoteResponse struct {
	QuotedPremiumUSD float64 `json:"quoted_premium_usd"`
}

func (a *Allianz) Quote(ctx context.Context, key product.Key, amountCents int64) (product.VenueQuote, error) {
	req := allianzQuoteRequest{
		CoverageKind: string(key.Coverage),
		Chain:        string(key.Chain),
		Stablecoin:   string(key.Stablecoin),
		NotionalUSD:  centsToDecimal(amountCents).String(),
	}

	var out allianzQuoteResponse

	resp, err := a.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/quotes")
	if err != nil {
		return product.VenueQuote{}, fmt.Errorf("allianz quote unreachable: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return product.VenueQuote{}, fmt.Errorf("allianz quote: status %d", resp.StatusCode())
	}

	return product.VenueQuote{CostCents: decimalToCents(decimal.NewFromFloat(out.QuotedPremiumUSD))}, nil
}

type allianzBindRequest struct {
	CoverageKind string `json:"coverage_kind"`
	Chain        string `json:"chain"`
	Stablecoin   string `json:"stablecoin"`
	NotionalUSD  string `json:"notional_usd"`
}

type allianzBindResponse struct {
	PolicyRef   string  `json:"policy_ref"`
	BoundAmount float64 `json:"bound_amount_usd"`
	Premium     float64 `json:"premium_usd"`
}

func (a *Allianz) OpenPosition(ctx context.Context, key product.Key, amountCents int64, _ string, _ float64) (product.VenueFill, error) {
	req := allianzBindRequest{
		CoverageKind: string(key.Coverage),
		Chain:        string(key.Chain),
		Stablecoin:   string(key.Stablecoin),
		NotionalUSD:  centsToDecimal(amountCents).String(),
	}

	var out allianzBindResponse

	resp, err := a.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/policies")
	if err != nil {
		return product.VenueFill{}, fmt.Errorf("allianz bind: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return product.VenueFill{}, fmt.Errorf("allianz bind: status %d", resp.StatusCode())
	}

	return product.VenueFill{
		OrderID:     out.PolicyRef,
		FilledCents: decimalToCents(decimal.NewFromFloat(out.BoundAmount)),
		Price:       out.Premium,
	}, nil
}

type allianzClaimResponse struct {
	Qualifies   bool    `json:"qualifies"`
	PaidAmount  float64 `json:"paid_amount_usd"`
}

// ClosePosition files the bound policy's claim. realized_pnl is the venue's
// reported paid_amount_usd if the claim qualifies, else 0; it is not
// derived from the position's hedge amount.
func (a *Allianz) ClosePosition(ctx context.Context, orderID string) (product.VenueClose, error) {
	var out allianzClaimResponse

	resp, err := a.http.R().
		SetContext(ctx).
		SetResult(&out).
		Post("/policies/" + orderID + "/claim")
	if err != nil {
		return product.VenueClose{}, fmt.Errorf("allianz claim: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return product.VenueClose{}, fmt.Errorf("allianz claim: status %d", resp.StatusCode())
	}

	if !out.Qualifies {
		return product.VenueClose{NetPnLCents: 0}, nil
	}

	return product.VenueClose{NetPnLCents: decimalToCents(decimal.NewFromFloat(out.PaidAmount))}, nil
}
