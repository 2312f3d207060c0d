// Package market defines the records and error kinds shared by every part of
// the token market engine: the protocol registry, per-track token factories
// and the settlement results derived from them.
package market

import (
	"fmt"
	"strings"
	"time"
)

// MaxFeeBps is the whole fee space in basis points (100%).
const MaxFeeBps = 10_000

// LamportsPerSOL is the number of base currency units in one SOL.
const LamportsPerSOL = 1_000_000_000

// CurveType selects the bonding curve shape of a token factory.
// The numeric values match the on-chain account encoding and must not change.
type CurveType uint8

const (
	CurveLinear CurveType = iota
	CurveExponential
	CurveLogarithmic
	CurveSigmoid
)

// ParseCurveType converts a user supplied curve name into a CurveType.
func ParseCurveType(s string) (CurveType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "linear":
		return CurveLinear, nil
	case "exponential":
		return CurveExponential, nil
	case "logarithmic":
		return CurveLogarithmic, nil
	case "sigmoid":
		return CurveSigmoid, nil
	default:
		return 0, fmt.Errorf("unsupported curve type: %q", s)
	}
}

func (c CurveType) String() string {
	switch c {
	case CurveLinear:
		return "linear"
	case CurveExponential:
		return "exponential"
	case CurveLogarithmic:
		return "logarithmic"
	case CurveSigmoid:
		return "sigmoid"
	default:
		return fmt.Sprintf("curve(%d)", uint8(c))
	}
}

// Valid reports whether the curve type is one of the four supported shapes.
func (c CurveType) Valid() bool {
	return c <= CurveSigmoid
}

// ProtocolRegistry is the singleton configuration record of a deployment.
// It is created once and read-only afterwards.
type ProtocolRegistry struct {
	Admin          string
	Treasury       string
	PlatformFeeBps uint16
	CreatedAt      time.Time
}

// TokenFactory is the per-track market record. CurveType, InitialPrice, Delta
// and ArtistFeeBps are immutable after creation; CurrentSupply is the single
// source of truth for pricing and only moves through settlement.
type TokenFactory struct {
	Mint          string
	Artist        string
	Name          string
	Symbol        string
	MetadataURI   string
	CurveType     CurveType
	InitialPrice  uint64 // lamports, price of the very first unit
	Delta         uint64 // curve shape parameter, meaning depends on CurveType
	CurrentSupply uint64
	ArtistFeeBps  uint16
	LiquidityPool string
	IsActive      bool
	CreatedAt     time.Time
}

// Clone returns a deep copy so stores can hand out records without aliasing
// their internal state.
func (f *TokenFactory) Clone() *TokenFactory {
	cp := *f
	return &cp
}

// CreateTokenParams carries the artist supplied inputs of a createToken call.
type CreateTokenParams struct {
	Artist       string
	Name         string
	Symbol       string
	MetadataURI  string
	InitialPrice uint64
	Delta        uint64
	CurveType    CurveType
	ArtistFeeBps uint16
}

// PurchaseResult describes a settled purchase. It is derived from factory and
// registry state at settlement time and never stored as independent state;
// purchase logs keep copies for accounting only.
type PurchaseResult struct {
	OperationID       string
	Mint              string
	Buyer             string
	Amount            uint64
	TotalCost         uint64
	ArtistFeeAmount   uint64
	PlatformFeeAmount uint64
	NetToPool         uint64
	NewSupply         uint64
	NewUnitPrice      uint64
	SettledAt         time.Time
}

// TokenInfo is the read model returned by getTokenInfo: the factory record
// plus the price of the next unit. Stale marks results served from the
// last-known-good cache after a transient store failure.
type TokenInfo struct {
	Factory       TokenFactory
	NextUnitPrice uint64
	Stale         bool
}
