package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundmint-labs/trackmint/internal/market"
)

func testFactory(mint string) *market.TokenFactory {
	return &market.TokenFactory{
		Mint:          mint,
		Artist:        "artist-1",
		Name:          "Midnight Drive",
		Symbol:        "DRIVE",
		MetadataURI:   "ipfs://QmTrackMeta",
		CurveType:     market.CurveLinear,
		InitialPrice:  10_000_000,
		Delta:         1_000_000,
		ArtistFeeBps:  500,
		LiquidityPool: "pool:" + mint,
		IsActive:      true,
		CreatedAt:     time.Now().UTC(),
	}
}

func TestMemoryRegistrySingleton(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.GetRegistry(ctx)
	assert.ErrorIs(t, err, market.ErrNotInitialized)

	reg := &market.ProtocolRegistry{Admin: "admin", Treasury: "treasury", PlatformFeeBps: 100}
	require.NoError(t, m.InitializeRegistry(ctx, reg))

	err = m.InitializeRegistry(ctx, reg)
	assert.ErrorIs(t, err, market.ErrAlreadyInitialized)

	got, err := m.GetRegistry(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint16(100), got.PlatformFeeBps)
}

func TestMemoryCreateFactoryDuplicate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.CreateFactory(ctx, testFactory("mint-1")))
	err := m.CreateFactory(ctx, testFactory("mint-1"))
	assert.ErrorIs(t, err, market.ErrAlreadyExists)
}

func TestMemoryGetFactoryCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.CreateFactory(ctx, testFactory("mint-1")))

	a, err := m.GetFactory(ctx, "mint-1")
	require.NoError(t, err)
	a.CurrentSupply = 999

	b, err := m.GetFactory(ctx, "mint-1")
	require.NoError(t, err)
	assert.Zero(t, b.CurrentSupply, "mutating a returned record must not leak into the store")
}

func TestMemoryUpdateSupplyCAS(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.CreateFactory(ctx, testFactory("mint-1")))

	require.NoError(t, m.UpdateSupply(ctx, "mint-1", 0, 3))

	err := m.UpdateSupply(ctx, "mint-1", 0, 5)
	assert.ErrorIs(t, err, market.ErrConcurrentModification)

	err = m.UpdateSupply(ctx, "missing", 0, 1)
	assert.ErrorIs(t, err, market.ErrNotFound)

	f, err := m.GetFactory(ctx, "mint-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), f.CurrentSupply)
}

func TestMemorySetActive(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.CreateFactory(ctx, testFactory("mint-1")))

	require.NoError(t, m.SetActive(ctx, "mint-1", false))
	f, err := m.GetFactory(ctx, "mint-1")
	require.NoError(t, err)
	assert.False(t, f.IsActive)

	assert.ErrorIs(t, m.SetActive(ctx, "missing", false), market.ErrNotFound)
}

func TestMemoryPurchaseLogBounded(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	for i := 0; i < maxPurchasesPerMint+10; i++ {
		require.NoError(t, m.AppendPurchase(ctx, &market.PurchaseResult{
			Mint:   "mint-1",
			Amount: uint64(i),
		}))
	}

	all, err := m.RecentPurchases(ctx, "mint-1", 0)
	require.NoError(t, err)
	assert.Len(t, all, maxPurchasesPerMint)

	last, err := m.RecentPurchases(ctx, "mint-1", 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, uint64(maxPurchasesPerMint+9), last[1].Amount)
}
