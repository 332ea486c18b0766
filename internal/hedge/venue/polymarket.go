package venue

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/tonsurance/hedgeplane/internal/product"
)

// Polymarket hedges via a binary "YES-share" market per product, bought at
// market order size equal to the allocated USD notional.
type Polymarket struct {
	http *resty.Client
}

// NewPolymarket builds the Polymarket venue adapter.
func NewPolymarket(baseURL string) *Polymarket {
	return &Polymarket{http: newHTTPClient(baseURL)}
}

func (p *Polymarket) Venue() product.Venue { return product.VenuePolymarket }

type polymarketMarket struct {
	MarketID string  `json:"market_id"`
	YesPrice float64 `json:"yes_price"`
}

// marketID selects the binary market for a product, per spec §4.5 step C's
// naming scheme (e.g. "<asset>-depeg-q?-<year>" for Depeg).
func marketID(key product.Key) (string, error) {
	year := time.Now().Year()

	switch key.Coverage {
	case product.CoverageDepeg:
		return fmt.Sprintf("%s-depeg-q%d-%d", key.Stablecoin, quarter(), year), nil
	case product.CoverageSmartContract:
		return fmt.Sprintf("%s-smart-contract-exploit-%d", key.Chain, year), nil
	case product.CoverageBridge:
		return fmt.Sprintf("%s-bridge-exploit-%d", key.Chain, year), nil
	case product.CoverageOracle:
		return fmt.Sprintf("%s-oracle-failure-%d", key.Chain, year), nil
	case product.CoverageCexLiquidation:
		return fmt.Sprintf("%s-cex-liquidation-cascade-%d", key.Chain, year), nil
	default:
		return "", errNoRouting(product.VenuePolymarket, key)
	}
}

func quarter() int {
	return (int(time.Now().Month())-1)/3 + 1
}

func (p *Polymarket) Quote(ctx context.Context, key product.Key, amountCents int64) (product.VenueQuote, error) {
	id, err := marketID(key)
	if err != nil {
		return product.VenueQuote{}, err
	}

	var market polymarketMarket

	resp, err := p.http.R().
		SetContext(ctx).
		SetResult(&market).
		Get("/markets/" + id)
	if err != nil {
		return product.VenueQuote{}, fmt.Errorf("polymarket quote: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return product.VenueQuote{}, fmt.Errorf("polymarket quote: status %d", resp.StatusCode())
	}

	notional := centsToDecimal(amountCents)
	cost := notional.Mul(decimal.NewFromFloat(market.YesPrice))

	return product.VenueQuote{CostCents: decimalToCents(cost)}, nil
}

type polymarketOrderRequest struct {
	MarketID string `json:"market_id"`
	Side     string `json:"side"`
	SizeUSD  string `json:"size_usd"`
}

type polymarketOrderResponse struct {
	OrderID  string  `json:"order_id"`
	FillSize float64 `json:"fill_size_usd"`
	Price    float64 `json:"price"`
}

func (p *Polymarket) OpenPosition(ctx context.Context, key product.Key, amountCents int64, _ string, _ float64) (product.VenueFill, error) {
	id, err := marketID(key)
	if err != nil {
		return product.VenueFill{}, err
	}

	req := polymarketOrderRequest{
		MarketID: id,
		Side:     "BUY_YES",
		SizeUSD:  centsToDecimal(amountCents).String(),
	}

	var out polymarketOrderResponse

	resp, err := p.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/orders")
	if err != nil {
		return product.VenueFill{}, fmt.Errorf("polymarket open position: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return product.VenueFill{}, fmt.Errorf("polymarket open position: status %d", resp.StatusCode())
	}

	return product.VenueFill{
		OrderID:     out.OrderID,
		FilledCents: decimalToCents(decimal.NewFromFloat(out.FillSize)),
		Price:       out.Price,
	}, nil
}

type polymarketCloseResponse struct {
	ExitYesPrice float64 `json:"exit_yes_price"`
	SizeShares   float64 `json:"size_shares"`
	EntryPrice   float64 `json:"entry_price"`
}

func (p *Polymarket) ClosePosition(ctx context.Context, orderID string) (product.VenueClose, error) {
	var out polymarketCloseResponse

	resp, err := p.http.R().
		SetContext(ctx).
		SetResult(&out).
		Delete("/orders/" + orderID)
	if err != nil {
		return product.VenueClose{}, fmt.Errorf("polymarket close position: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return product.VenueClose{}, fmt.Errorf("polymarket close position: status %d", resp.StatusCode())
	}

	// realized_pnl = (exit_yes_price - entry_price) * size_in_shares, per
	// spec §4.5 "Close path".
	pnl := decimal.NewFromFloat(out.ExitYesPrice).
		Sub(decimal.NewFromFloat(out.EntryPrice)).
		Mul(decimal.NewFromFloat(out.SizeShares))

	return product.VenueClose{NetPnLCents: decimalToCents(pnl)}, nil
}
