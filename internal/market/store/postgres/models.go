package postgres

import (
	"time"

	"github.com/soundmint-labs/trackmint/internal/market"
)

// registryRow is the single-row table holding the protocol registry.
type registryRow struct {
	ID             uint   `gorm:"primaryKey"`
	Admin          string `gorm:"type:varchar(64);not null"`
	Treasury       string `gorm:"type:varchar(64);not null"`
	PlatformFeeBps uint16 `gorm:"not null"`
	CreatedAt      time.Time
}

func (registryRow) TableName() string { return "protocol_registry" }

// factoryRow mirrors market.TokenFactory. Mint is the natural key; the
// immutable columns are never updated after insert.
type factoryRow struct {
	Mint          string `gorm:"primaryKey;type:varchar(64)"`
	Artist        string `gorm:"type:varchar(64);not null;index"`
	Name          string `gorm:"type:varchar(128);not null"`
	Symbol        string `gorm:"type:varchar(16);not null"`
	MetadataURI   string `gorm:"type:text;not null"`
	CurveType     uint8  `gorm:"not null"`
	InitialPrice  uint64 `gorm:"not null"`
	Delta         uint64 `gorm:"not null"`
	CurrentSupply uint64 `gorm:"not null;default:0"`
	ArtistFeeBps  uint16 `gorm:"not null"`
	LiquidityPool string `gorm:"type:varchar(64);not null"`
	IsActive      bool   `gorm:"not null;default:true"`
	CreatedAt     time.Time
}

func (factoryRow) TableName() string { return "token_factories" }

func (r *factoryRow) toDomain() *market.TokenFactory {
	return &market.TokenFactory{
		Mint:          r.Mint,
		Artist:        r.Artist,
		Name:          r.Name,
		Symbol:        r.Symbol,
		MetadataURI:   r.MetadataURI,
		CurveType:     market.CurveType(r.CurveType),
		InitialPrice:  r.InitialPrice,
		Delta:         r.Delta,
		CurrentSupply: r.CurrentSupply,
		ArtistFeeBps:  r.ArtistFeeBps,
		LiquidityPool: r.LiquidityPool,
		IsActive:      r.IsActive,
		CreatedAt:     r.CreatedAt,
	}
}

func factoryRowFrom(f *market.TokenFactory) *factoryRow {
	return &factoryRow{
		Mint:          f.Mint,
		Artist:        f.Artist,
		Name:          f.Name,
		Symbol:        f.Symbol,
		MetadataURI:   f.MetadataURI,
		CurveType:     uint8(f.CurveType),
		InitialPrice:  f.InitialPrice,
		Delta:         f.Delta,
		CurrentSupply: f.CurrentSupply,
		ArtistFeeBps:  f.ArtistFeeBps,
		LiquidityPool: f.LiquidityPool,
		IsActive:      f.IsActive,
		CreatedAt:     f.CreatedAt,
	}
}

// purchaseRow is the append-only accounting log of settled purchases.
type purchaseRow struct {
	ID                uint   `gorm:"primaryKey;autoIncrement"`
	OperationID       string `gorm:"type:varchar(96);uniqueIndex;not null"`
	Mint              string `gorm:"type:varchar(64);not null;index"`
	Buyer             string `gorm:"type:varchar(64);not null;index"`
	Amount            uint64 `gorm:"not null"`
	TotalCost         uint64 `gorm:"not null"`
	ArtistFeeAmount   uint64 `gorm:"not null"`
	PlatformFeeAmount uint64 `gorm:"not null"`
	NetToPool         uint64 `gorm:"not null"`
	NewSupply         uint64 `gorm:"not null"`
	NewUnitPrice      uint64 `gorm:"not null"`
	SettledAt         time.Time
}

func (purchaseRow) TableName() string { return "purchases" }

func (r *purchaseRow) toDomain() *market.PurchaseResult {
	return &market.PurchaseResult{
		OperationID:       r.OperationID,
		Mint:              r.Mint,
		Buyer:             r.Buyer,
		Amount:            r.Amount,
		TotalCost:         r.TotalCost,
		ArtistFeeAmount:   r.ArtistFeeAmount,
		PlatformFeeAmount: r.PlatformFeeAmount,
		NetToPool:         r.NetToPool,
		NewSupply:         r.NewSupply,
		NewUnitPrice:      r.NewUnitPrice,
		SettledAt:         r.SettledAt,
	}
}
