package chain

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundmint-labs/trackmint/internal/market"
)

var testProgramID = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")

func TestDerivedAddressesAreDeterministic(t *testing.T) {
	mint := solana.NewWallet().PublicKey()

	r1, err := registryAddress(testProgramID)
	require.NoError(t, err)
	r2, err := registryAddress(testProgramID)
	require.NoError(t, err)
	assert.Equal(t, r1, r2)

	f1, err := factoryAddress(testProgramID, mint)
	require.NoError(t, err)
	f2, err := factoryAddress(testProgramID, mint)
	require.NoError(t, err)
	assert.Equal(t, f1, f2)

	p1, err := poolAddress(testProgramID, mint)
	require.NoError(t, err)
	assert.NotEqual(t, f1, p1)

	// A different mint must map to a different factory.
	other, err := factoryAddress(testProgramID, solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.NotEqual(t, f1, other)
}

func TestBuildCreateTokenInstructionLayout(t *testing.T) {
	artist := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	ix, err := buildCreateTokenInstruction(testProgramID, artist, mint, createTokenArgs{
		Name:         "Midnight Drive",
		Symbol:       "DRIVE",
		MetadataURI:  "ipfs://QmTrack",
		InitialPrice: 10_000_000,
		Delta:        1_000_000,
		CurveType:    0,
		ArtistFeeBps: 500,
	})
	require.NoError(t, err)
	assert.Equal(t, testProgramID, ix.ProgramID())

	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, createTokenDiscriminator[:], data[:8])

	// name: u32 length prefix then bytes.
	off := 8
	nameLen := binary.LittleEndian.Uint32(data[off:])
	assert.Equal(t, uint32(len("Midnight Drive")), nameLen)
	off += 4
	assert.Equal(t, "Midnight Drive", string(data[off:off+int(nameLen)]))
	off += int(nameLen)

	symLen := binary.LittleEndian.Uint32(data[off:])
	off += 4
	assert.Equal(t, "DRIVE", string(data[off:off+int(symLen)]))
	off += int(symLen)

	uriLen := binary.LittleEndian.Uint32(data[off:])
	off += 4 + int(uriLen)

	assert.Equal(t, uint64(10_000_000), binary.LittleEndian.Uint64(data[off:]))
	off += 8
	assert.Equal(t, uint64(1_000_000), binary.LittleEndian.Uint64(data[off:]))
	off += 8
	assert.Equal(t, uint8(0), data[off])
	off++
	assert.Equal(t, uint16(500), binary.LittleEndian.Uint16(data[off:]))
	assert.Equal(t, off+2, len(data))

	accounts := ix.Accounts()
	require.Len(t, accounts, 8)
	assert.Equal(t, artist, accounts[1].PublicKey)
	assert.True(t, accounts[1].IsSigner)
	assert.Equal(t, mint, accounts[2].PublicKey)
	assert.True(t, accounts[2].IsSigner)
	assert.Equal(t, solana.SystemProgramID, accounts[5].PublicKey)
}

func TestBuildCreateTokenInstructionRejectsLongStrings(t *testing.T) {
	long := make([]byte, maxStringLen+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err := buildCreateTokenInstruction(testProgramID, solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), createTokenArgs{
		Name:         string(long),
		Symbol:       "S",
		MetadataURI:  "ipfs://x",
		InitialPrice: 1,
	})
	assert.Error(t, err)
}

func TestBuildBuyInstructionLayout(t *testing.T) {
	buyer := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	ata := solana.NewWallet().PublicKey()
	artist := solana.NewWallet().PublicKey()
	treasury := solana.NewWallet().PublicKey()

	ix, err := buildBuyInstruction(testProgramID, buyer, ata, mint, artist, treasury, 3, 33_330_000)
	require.NoError(t, err)

	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 8+8+8)
	assert.Equal(t, buyDiscriminator[:], data[:8])
	assert.Equal(t, uint64(3), binary.LittleEndian.Uint64(data[8:]))
	assert.Equal(t, uint64(33_330_000), binary.LittleEndian.Uint64(data[16:]))

	accounts := ix.Accounts()
	require.Len(t, accounts, 10)
	assert.Equal(t, treasury, accounts[1].PublicKey)
	assert.Equal(t, artist, accounts[2].PublicKey)
	assert.Equal(t, ata, accounts[6].PublicKey)
	assert.Equal(t, buyer, accounts[7].PublicKey)
	assert.True(t, accounts[7].IsSigner)
}

// encodeFactory builds account data in the program's layout for decode tests.
func encodeFactory(artist solana.PublicKey, name, symbol, uri string, curveType uint8, initialPrice, delta, supply uint64, feeBps uint16, pool solana.PublicKey, active bool, createdAt int64) []byte {
	data := make([]byte, accountDiscriminatorLen)
	data = append(data, artist[:]...)
	for _, s := range []string{name, symbol, uri} {
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(s)))
		data = append(data, lenBuf[:]...)
		data = append(data, s...)
	}
	data = append(data, curveType)
	data = appendU64(data, initialPrice)
	data = appendU64(data, delta)
	data = appendU64(data, supply)
	data = appendU16(data, feeBps)
	data = append(data, pool[:]...)
	if active {
		data = append(data, 1)
	} else {
		data = append(data, 0)
	}
	var ts [8]byte
	binary.LittleEndian.PutUint64(ts[:], uint64(createdAt))
	return append(data, ts[:]...)
}

func TestDecodeFactory(t *testing.T) {
	artist := solana.NewWallet().PublicKey()
	pool := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	createdAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	data := encodeFactory(artist, "Midnight Drive", "DRIVE", "ipfs://QmTrack",
		uint8(market.CurveSigmoid), 10_000_000, 1_000_000, 42, 500, pool, true, createdAt.Unix())

	factory, err := decodeFactory(mint, data)
	require.NoError(t, err)
	assert.Equal(t, mint.String(), factory.Mint)
	assert.Equal(t, artist.String(), factory.Artist)
	assert.Equal(t, "Midnight Drive", factory.Name)
	assert.Equal(t, "DRIVE", factory.Symbol)
	assert.Equal(t, "ipfs://QmTrack", factory.MetadataURI)
	assert.Equal(t, market.CurveSigmoid, factory.CurveType)
	assert.Equal(t, uint64(10_000_000), factory.InitialPrice)
	assert.Equal(t, uint64(1_000_000), factory.Delta)
	assert.Equal(t, uint64(42), factory.CurrentSupply)
	assert.Equal(t, uint16(500), factory.ArtistFeeBps)
	assert.Equal(t, pool.String(), factory.LiquidityPool)
	assert.True(t, factory.IsActive)
	assert.Equal(t, createdAt, factory.CreatedAt)
}

func TestDecodeFactoryRejectsBadData(t *testing.T) {
	mint := solana.NewWallet().PublicKey()

	_, err := decodeFactory(mint, nil)
	assert.Error(t, err)

	_, err = decodeFactory(mint, make([]byte, 16))
	assert.Error(t, err)

	// Unknown curve discriminant.
	data := encodeFactory(solana.NewWallet().PublicKey(), "n", "s", "u",
		99, 1, 0, 0, 0, solana.NewWallet().PublicKey(), true, 0)
	_, err = decodeFactory(mint, data)
	assert.Error(t, err)
}

func TestDecodeRegistry(t *testing.T) {
	admin := solana.NewWallet().PublicKey()
	treasury := solana.NewWallet().PublicKey()
	createdAt := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	data := make([]byte, accountDiscriminatorLen)
	data = append(data, admin[:]...)
	data = append(data, treasury[:]...)
	data = appendU16(data, 100)
	var ts [8]byte
	binary.LittleEndian.PutUint64(ts[:], uint64(createdAt.Unix()))
	data = append(data, ts[:]...)

	registry, err := decodeRegistry(data)
	require.NoError(t, err)
	assert.Equal(t, admin.String(), registry.Admin)
	assert.Equal(t, treasury.String(), registry.Treasury)
	assert.Equal(t, uint16(100), registry.PlatformFeeBps)
	assert.Equal(t, createdAt, registry.CreatedAt)

	_, err = decodeRegistry(data[:20])
	assert.Error(t, err)
}

func TestNewRejectsBadProgramID(t *testing.T) {
	_, err := New(nil, nil, "not-a-key", 100, nil)
	assert.Error(t, err)
}

func TestPurchaseQuote(t *testing.T) {
	factory := &market.TokenFactory{
		CurveType:    market.CurveLinear,
		InitialPrice: 10_000_000,
		Delta:        1_000_000,
	}

	// 3 units from zero supply: 10 + 11 + 12, plus a 1% slippage allowance.
	totalCost, maxCost := purchaseQuote(factory, 100, 3)
	assert.Equal(t, uint64(33_000_000), totalCost)
	assert.Equal(t, uint64(33_330_000), maxCost)

	// Zero slippage collapses the cap onto the quote.
	totalCost, maxCost = purchaseQuote(factory, 0, 3)
	assert.Equal(t, totalCost, maxCost)

	// The quote follows the fetched supply.
	factory.CurrentSupply = 3
	totalCost, _ = purchaseQuote(factory, 100, 1)
	assert.Equal(t, uint64(13_000_000), totalCost)
}

func TestCheckBuyerFundsGatesOnQuote(t *testing.T) {
	require.NoError(t, checkBuyerFunds("buyer", 33_000_000, 33_000_000))

	// The requirement reported is the quoted cost, not the slippage cap.
	err := checkBuyerFunds("buyer", 20_000_000, 33_000_000)
	require.Error(t, err)
	assert.ErrorIs(t, err, market.ErrInsufficientFunds)

	var ife *market.InsufficientFundsError
	require.ErrorAs(t, err, &ife)
	assert.Equal(t, "buyer", ife.Account)
	assert.Equal(t, uint64(20_000_000), ife.Balance)
	assert.Equal(t, uint64(33_000_000), ife.Required)
}
