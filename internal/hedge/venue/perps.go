package venue

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/tonsurance/hedgeplane/internal/product"
)

const perpLeverage = 5.0 // 5x, spec §4.5 step C

// Perpetuals implements both the CEX-perpetuals and DeFi-perpetuals venue
// adapters: same sizing rule (open SHORT at 5x leverage, notional equal to
// the allocated USD), different symbol-selection tables and base URLs.
type Perpetuals struct {
	venue  product.Venue
	http   *resty.Client
	symbol func(product.Key) (string, error)
}

// NewCEXPerpetuals builds the Binance-style CEX perpetuals adapter.
func NewCEXPerpetuals(baseURL string) *Perpetuals {
	return &Perpetuals{
		venue:  product.VenueBinanceFutures,
		http:   newHTTPClient(baseURL),
		symbol: cexSymbol,
	}
}

// NewDefiPerpetuals builds the DeFi perpetuals adapter (chain-native or
// protocol-token short, same sizing rule as CEX).
func NewDefiPerpetuals(baseURL string) *Perpetuals {
	return &Perpetuals{
		venue:  product.VenueDefiPerps,
		http:   newHTTPClient(baseURL),
		symbol: defiSymbol,
	}
}

func (p *Perpetuals) Venue() product.Venue { return p.venue }

// cexSymbol implements spec §4.5 step C's CEX routing table.
func cexSymbol(key product.Key) (string, error) {
	switch {
	case key.Coverage == product.CoverageDepeg && key.Stablecoin == product.StablecoinUSDC:
		return "USDCUSDT", nil
	case key.Coverage == product.CoverageDepeg && key.Stablecoin == product.StablecoinUSDT:
		return "BTCUSDT", nil // USDT itself cannot be shorted
	case key.Coverage == product.CoverageDepeg:
		return string(key.Stablecoin) + "USDT", nil
	case key.Coverage == product.CoverageSmartContract || key.Coverage == product.CoverageBridge:
		return chainNativeSymbol(key.Chain) + "USDT", nil
	case key.Coverage == product.CoverageOracle:
		return "LINKUSDT", nil
	case key.Coverage == product.CoverageCexLiquidation:
		return "BTCUSDT", nil
	default:
		return "", errNoRouting(product.VenueBinanceFutures, key)
	}
}

// defiSymbol routes depeg products to the stablecoin's own perp and every
// other coverage kind to the chain-native token's perp; unlike cexSymbol it
// never returns a routing error.
func defiSymbol(key product.Key) (string, error) {
	if key.Coverage == product.CoverageDepeg {
		return string(key.Stablecoin) + "-PERP", nil
	}

	return chainNativeSymbol(key.Chain) + "-PERP", nil
}

func chainNativeSymbol(chain product.Chain) string {
	switch chain {
	case product.ChainEthereum, product.ChainArbitrum, product.ChainBase, product.ChainOptimism:
		return "ETH"
	case product.ChainBitcoin, product.ChainLightning:
		return "BTC"
	case product.ChainSolana:
		return "SOL"
	case product.ChainPolygon:
		return "MATIC"
	case product.ChainTON:
		return "TON"
	default:
		return string(chain)
	}
}

type perpFundingRate struct {
	HourlyRate float64 `json:"hourly_funding_rate"`
}

func (p *Perpetuals) Quote(ctx context.Context, key product.Key, amountCents int64) (product.VenueQuote, error) {
	symbol, err := p.symbol(key)
	if err != nil {
		return product.VenueQuote{}, err
	}

	var funding perpFundingRate

	resp, err := p.http.R().
		SetContext(ctx).
		SetResult(&funding).
		Get("/funding-rate/" + symbol)
	if err != nil {
		return product.VenueQuote{}, fmt.Errorf("%s quote: %w", p.venue, err)
	}

	if resp.StatusCode() != http.StatusOK {
		return product.VenueQuote{}, fmt.Errorf("%s quote: status %d", p.venue, resp.StatusCode())
	}

	const (
		defaultDurationHours = 30 * 24
		defaultSlippageBps   = 8
	)

	hedged := centsToDecimal(amountCents)
	fundingCost := hedged.Mul(decimal.NewFromFloat(funding.HourlyRate)).Mul(decimal.NewFromInt(defaultDurationHours))
	slippageCost := hedged.Mul(decimal.NewFromInt(defaultSlippageBps)).Div(decimal.NewFromInt(10_000))

	return product.VenueQuote{CostCents: decimalToCents(fundingCost.Add(slippageCost))}, nil
}

type perpOrderRequest struct {
	Symbol   string `json:"symbol"`
	Side     string `json:"side"`
	Leverage float64 `json:"leverage"`
	NotionalUSD string `json:"notional_usd"`
}

type perpOrderResponse struct {
	OrderID     string  `json:"order_id"`
	FilledUSD   float64 `json:"filled_usd"`
	EntryPrice  float64 `json:"entry_price"`
}

func (p *Perpetuals) OpenPosition(ctx context.Context, key product.Key, amountCents int64, side string, leverage float64) (product.VenueFill, error) {
	symbol, err := p.symbol(key)
	if err != nil {
		return product.VenueFill{}, err
	}

	if side == "" {
		side = "SHORT"
	}

	if leverage == 0 {
		leverage = perpLeverage
	}

	req := perpOrderRequest{
		Symbol:      symbol,
		Side:        side,
		Leverage:    leverage,
		NotionalUSD: centsToDecimal(amountCents).String(),
	}

	var out perpOrderResponse

	resp, err := p.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/orders")
	if err != nil {
		return product.VenueFill{}, fmt.Errorf("%s open position: %w", p.venue, err)
	}

	if resp.StatusCode() != http.StatusOK {
		return product.VenueFill{}, fmt.Errorf("%s open position: status %d", p.venue, resp.StatusCode())
	}

	return product.VenueFill{
		OrderID:     out.OrderID,
		FilledCents: decimalToCents(decimal.NewFromFloat(out.FilledUSD)),
		Price:       out.EntryPrice,
	}, nil
}

type perpCloseResponse struct {
	NetPnLUSD float64 `json:"net_pnl_usd"`
}

// ClosePosition relies on the venue to net out fees and funding directly,
// per spec §4.5 "Close path" ("Perpetuals: venue returns net_pnl directly
// after fees+funding").
func (p *Perpetuals) ClosePosition(ctx context.Context, orderID string) (product.VenueClose, error) {
	var out perpCloseResponse

	resp, err := p.http.R().
		SetContext(ctx).
		SetResult(&out).
		Delete("/orders/" + orderID)
	if err != nil {
		return product.VenueClose{}, fmt.Errorf("%s close position: %w", p.venue, err)
	}

	if resp.StatusCode() != http.StatusOK {
		return product.VenueClose{}, fmt.Errorf("%s close position: status %d", p.venue, resp.StatusCode())
	}

	return product.VenueClose{NetPnLCents: decimalToCents(decimal.NewFromFloat(out.NetPnLUSD))}, nil
}
