// Package curve implements the bonding curve pricing engine. Every function
// is pure: a price depends only on the curve parameters and the supply at the
// time the unit is minted, which keeps settlement deterministic and
// replayable.
package curve

import (
	"math"
	"math/bits"

	"github.com/soundmint-labs/trackmint/internal/market"
)

const (
	// exponentialBase fixes the per-unit growth of the exponential curve at
	// 10%. The factory's delta parameter is accepted and stored for this
	// curve but does not participate in the formula.
	exponentialBase = 1.1

	// logDivisor dampens the logarithmic curve: price grows by
	// initialPrice/10 per natural-log unit of supply.
	logDivisor = 10.0

	// Sigmoid constants are protocol-level, not artist-configurable. The
	// curve ramps from initialPrice towards 10x initialPrice with its
	// midpoint at a supply of 50 units.
	sigmoidMidpoint  = 50.0
	sigmoidSteepness = 0.2
	sigmoidGain      = 9.0
)

// toLamports converts a computed float price to lamports, saturating at
// MaxUint64 once the curve escapes the representable range. Without the cap
// the float-to-uint conversion is unspecified past MaxUint64.
func toLamports(price float64) uint64 {
	if price >= math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(price)
}

// satAdd adds two lamport amounts, saturating at MaxUint64.
func satAdd(a, b uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return sum
}

// UnitPrice returns the lamport price of the unit minted when the factory
// supply equals supply. Non-negative for all non-negative inputs and
// non-decreasing in supply for every curve type (strictly increasing for the
// exponential curve until it saturates at MaxUint64).
func UnitPrice(curveType market.CurveType, initialPrice, delta, supply uint64) uint64 {
	switch curveType {
	case market.CurveLinear:
		hi, step := bits.Mul64(supply, delta)
		if hi != 0 {
			return math.MaxUint64
		}
		return satAdd(initialPrice, step)

	case market.CurveExponential:
		return toLamports(float64(initialPrice) * math.Pow(exponentialBase, float64(supply)))

	case market.CurveLogarithmic:
		return toLamports(float64(initialPrice) * (1.0 + math.Log(float64(supply)+1.0)/logDivisor))

	case market.CurveSigmoid:
		sig := 1.0 / (1.0 + math.Exp(-sigmoidSteepness*(float64(supply)-sigmoidMidpoint)))
		return satAdd(initialPrice, toLamports(float64(initialPrice)*sigmoidGain*sig))

	default:
		return 0
	}
}

// TotalCost returns the cost of buying amount units starting at supply. The
// curve prices each unit individually as supply walks forward, so the total
// is the sum of UnitPrice over supply..supply+amount-1, not a multiple of the
// starting price. The sum saturates at MaxUint64.
func TotalCost(curveType market.CurveType, initialPrice, delta, supply, amount uint64) uint64 {
	var total uint64
	for i := uint64(0); i < amount; i++ {
		total = satAdd(total, UnitPrice(curveType, initialPrice, delta, supply+i))
		if total == math.MaxUint64 {
			return total
		}
	}
	return total
}
