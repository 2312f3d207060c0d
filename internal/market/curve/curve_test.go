package curve

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundmint-labs/trackmint/internal/market"
)

func TestUnitPriceLinear(t *testing.T) {
	// initialPrice + s*delta
	assert.Equal(t, uint64(10_000_000), UnitPrice(market.CurveLinear, 10_000_000, 1_000_000, 0))
	assert.Equal(t, uint64(11_000_000), UnitPrice(market.CurveLinear, 10_000_000, 1_000_000, 1))
	assert.Equal(t, uint64(12_000_000), UnitPrice(market.CurveLinear, 10_000_000, 1_000_000, 2))
}

func TestUnitPriceExponentialIgnoresDelta(t *testing.T) {
	// The exponential curve is fixed at 10% growth per unit; delta must not
	// change the result.
	for s := uint64(0); s < 20; s++ {
		withDelta := UnitPrice(market.CurveExponential, 1_000_000, 123_456, s)
		withoutDelta := UnitPrice(market.CurveExponential, 1_000_000, 0, s)
		require.Equal(t, withoutDelta, withDelta, "supply %d", s)
	}
	assert.Equal(t, uint64(1_000_000), UnitPrice(market.CurveExponential, 1_000_000, 0, 0))
	assert.Equal(t, uint64(1_100_000), UnitPrice(market.CurveExponential, 1_000_000, 0, 1))
}

func TestUnitPriceLogarithmicAtZeroSupply(t *testing.T) {
	// ln(1) == 0, so the first unit always sells at the initial price.
	assert.Equal(t, uint64(5_000_000), UnitPrice(market.CurveLogarithmic, 5_000_000, 0, 0))
}

func TestUnitPriceSigmoidMidpoint(t *testing.T) {
	// At the midpoint supply the sigmoid evaluates to 0.5, so the unit price
	// is initialPrice * 5.5.
	initial := uint64(10_000_000)
	got := UnitPrice(market.CurveSigmoid, initial, 0, 50)
	assert.Equal(t, uint64(55_000_000), got)
}

func TestUnitPriceMonotonic(t *testing.T) {
	initial := uint64(10_000_000)
	delta := uint64(250_000)

	cases := []struct {
		name   string
		curve  market.CurveType
		strict bool
		limit  uint64
	}{
		{"linear", market.CurveLinear, false, 500},
		{"exponential", market.CurveExponential, true, 120},
		{"logarithmic", market.CurveLogarithmic, false, 500},
		{"sigmoid", market.CurveSigmoid, false, 500},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			prev := UnitPrice(tc.curve, initial, delta, 0)
			for s := uint64(1); s < tc.limit; s++ {
				cur := UnitPrice(tc.curve, initial, delta, s)
				if tc.strict {
					require.Greater(t, cur, prev, "supply %d", s)
				} else {
					require.GreaterOrEqual(t, cur, prev, "supply %d", s)
				}
				prev = cur
			}
		})
	}
}

func TestTotalCostSumsPerUnit(t *testing.T) {
	// Worked example: linear curve, initial 10 SOL-millis, delta 1, 3 units
	// from zero supply -> 10 + 11 + 12.
	total := TotalCost(market.CurveLinear, 10_000_000, 1_000_000, 0, 3)
	assert.Equal(t, uint64(33_000_000), total)

	// Buying after supply has moved must price against the new supply.
	assert.Equal(t, uint64(13_000_000), TotalCost(market.CurveLinear, 10_000_000, 1_000_000, 3, 1))
}

func TestTotalCostZeroAmount(t *testing.T) {
	assert.Zero(t, TotalCost(market.CurveLinear, 10_000_000, 1_000_000, 0, 0))
}

func TestUnitPriceSaturates(t *testing.T) {
	// Once a curve escapes the uint64 range the price pins at MaxUint64
	// instead of wrapping or hitting unspecified float conversion.
	assert.Equal(t, uint64(math.MaxUint64), UnitPrice(market.CurveExponential, 10_000_000, 0, 1_000))
	assert.Equal(t, uint64(math.MaxUint64), UnitPrice(market.CurveLinear, 1, math.MaxUint64, 2))
	assert.Equal(t, uint64(math.MaxUint64), UnitPrice(market.CurveLinear, math.MaxUint64, 1, 1))
	assert.Equal(t, uint64(math.MaxUint64), UnitPrice(market.CurveSigmoid, math.MaxUint64/2, 0, 100))

	// Saturation keeps the curve non-decreasing across the boundary.
	prev := uint64(0)
	for s := uint64(280); s <= 320; s++ {
		cur := UnitPrice(market.CurveExponential, 10_000_000, 0, s)
		require.GreaterOrEqual(t, cur, prev, "supply %d", s)
		prev = cur
	}
	assert.Equal(t, uint64(math.MaxUint64), prev)
}

func TestTotalCostSaturates(t *testing.T) {
	// The running sum pins at MaxUint64 rather than wrapping.
	total := TotalCost(market.CurveLinear, math.MaxUint64/2, 0, 0, 3)
	assert.Equal(t, uint64(math.MaxUint64), total)

	total = TotalCost(market.CurveExponential, 10_000_000, 0, 280, 50)
	assert.Equal(t, uint64(math.MaxUint64), total)
}
