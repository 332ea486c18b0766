package venue

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/tonsurance/hedgeplane/internal/product"
)

func TestCentsDecimalRoundtrip(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(123456), decimalToCents(centsToDecimal(123456)))
	assert.Equal(t, "1234.56", centsToDecimal(123456).String())
}

func TestWithinSlippage(t *testing.T) {
	t.Parallel()

	reference := decimal.NewFromFloat(0.50)
	tolerance := decimal.NewFromFloat(0.015)

	assert.True(t, withinSlippage(decimal.NewFromFloat(0.5075), reference, tolerance))
	assert.False(t, withinSlippage(decimal.NewFromFloat(0.52), reference, tolerance))
}

func TestErrNoRouting(t *testing.T) {
	t.Parallel()

	key := product.Key{Coverage: product.CoverageDepeg, Chain: product.ChainEthereum, Stablecoin: product.StablecoinUSDC}
	err := errNoRouting(product.VenuePolymarket, key)

	assert.ErrorContains(t, err, "Polymarket")
}
