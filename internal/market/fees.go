package market

import "math/bits"

// FeeAmount returns total × bps / 10_000 rounded down, using a 128-bit
// intermediate product so the split cannot wrap for any uint64 total. bps
// must not exceed MaxFeeBps; callers validate fee rates at creation time.
func FeeAmount(total uint64, bps uint16) uint64 {
	hi, lo := bits.Mul64(total, uint64(bps))
	quo, _ := bits.Div64(hi, lo, MaxFeeBps)
	return quo
}
