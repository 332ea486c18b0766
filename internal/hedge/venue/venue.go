// Package venue implements the four hedge-venue adapters of spec §4.5
// step C: Polymarket, CEX perpetuals, DeFi perpetuals, and Allianz
// parametric, each a thin resty-backed REST client behind the
// product.VenueAdapter contract.
package venue

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/tonsurance/hedgeplane/internal/product"
)

const defaultTimeout = 10 * time.Second

func newHTTPClient(baseURL string) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(defaultTimeout).
		SetRetryCount(2).
		SetRetryWaitTime(250 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}

			return r.StatusCode() >= http.StatusInternalServerError
		}).
		SetHeader("Content-Type", "application/json")
}

// withinSlippage returns true if the quoted price is within a tolerance
// fraction of the reference price.
func withinSlippage(quoted, reference, toleranceFraction decimal.Decimal) bool {
	diff := quoted.Sub(reference).Abs()
	limit := reference.Mul(toleranceFraction)

	return diff.LessThanOrEqual(limit)
}

func centsToDecimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

func decimalToCents(d decimal.Decimal) int64 {
	return d.Mul(decimal.New(100, 0)).Round(0).IntPart()
}

func errNoRouting(v product.Venue, key product.Key) error {
	return fmt.Errorf("venue %s has no routing for product %s", v, key)
}
