package chain

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/soundmint-labs/trackmint/internal/market"
)

const accountDiscriminatorLen = 8

// reader walks an account data buffer with bounds checks.
type reader struct {
	data []byte
	off  int
}

func (r *reader) need(n int) error {
	if r.off+n > len(r.data) {
		return fmt.Errorf("account data truncated at offset %d (need %d bytes of %d)", r.off, n, len(r.data))
	}
	return nil
}

func (r *reader) skip(n int) error {
	if err := r.need(n); err != nil {
		return err
	}
	r.off += n
	return nil
}

func (r *reader) u8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.data[r.off]
	r.off++
	return v, nil
}

func (r *reader) u16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v, nil
}

func (r *reader) u64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.data[r.off:])
	r.off += 8
	return v, nil
}

func (r *reader) i64() (int64, error) {
	v, err := r.u64()
	return int64(v), err
}

func (r *reader) pubkey() (solana.PublicKey, error) {
	if err := r.need(solana.PublicKeyLength); err != nil {
		return solana.PublicKey{}, err
	}
	var pk solana.PublicKey
	copy(pk[:], r.data[r.off:])
	r.off += solana.PublicKeyLength
	return pk, nil
}

// str reads a borsh string: u32 little-endian length + bytes.
func (r *reader) str() (string, error) {
	if err := r.need(4); err != nil {
		return "", err
	}
	n := int(binary.LittleEndian.Uint32(r.data[r.off:]))
	r.off += 4
	if n > maxStringLen {
		return "", fmt.Errorf("string length %d exceeds %d", n, maxStringLen)
	}
	if err := r.need(n); err != nil {
		return "", err
	}
	s := string(r.data[r.off : r.off+n])
	r.off += n
	return s, nil
}

// decodeFactory parses the on-chain token factory account into the shared
// record. Layout (after the 8-byte account discriminator, all integers
// little-endian): artist pubkey, name/symbol/uri borsh strings, curve u8,
// initial price u64, delta u64, current supply u64, artist fee u16, pool
// pubkey, is_active u8, created_at unix i64.
func decodeFactory(mint solana.PublicKey, data []byte) (*market.TokenFactory, error) {
	r := &reader{data: data}
	if err := r.skip(accountDiscriminatorLen); err != nil {
		return nil, err
	}

	artist, err := r.pubkey()
	if err != nil {
		return nil, err
	}
	name, err := r.str()
	if err != nil {
		return nil, err
	}
	symbol, err := r.str()
	if err != nil {
		return nil, err
	}
	uri, err := r.str()
	if err != nil {
		return nil, err
	}
	curveType, err := r.u8()
	if err != nil {
		return nil, err
	}
	initialPrice, err := r.u64()
	if err != nil {
		return nil, err
	}
	delta, err := r.u64()
	if err != nil {
		return nil, err
	}
	supply, err := r.u64()
	if err != nil {
		return nil, err
	}
	artistFeeBps, err := r.u16()
	if err != nil {
		return nil, err
	}
	pool, err := r.pubkey()
	if err != nil {
		return nil, err
	}
	isActive, err := r.u8()
	if err != nil {
		return nil, err
	}
	createdAt, err := r.i64()
	if err != nil {
		return nil, err
	}

	factory := &market.TokenFactory{
		Mint:          mint.String(),
		Artist:        artist.String(),
		Name:          name,
		Symbol:        symbol,
		MetadataURI:   uri,
		CurveType:     market.CurveType(curveType),
		InitialPrice:  initialPrice,
		Delta:         delta,
		CurrentSupply: supply,
		ArtistFeeBps:  artistFeeBps,
		LiquidityPool: pool.String(),
		IsActive:      isActive != 0,
		CreatedAt:     time.Unix(createdAt, 0).UTC(),
	}
	if !factory.CurveType.Valid() {
		return nil, fmt.Errorf("factory for %s has unknown curve type %d", mint, curveType)
	}
	return factory, nil
}

// decodeRegistry parses the protocol registry account: admin pubkey,
// treasury pubkey, platform fee u16, created_at i64.
func decodeRegistry(data []byte) (*market.ProtocolRegistry, error) {
	r := &reader{data: data}
	if err := r.skip(accountDiscriminatorLen); err != nil {
		return nil, err
	}

	admin, err := r.pubkey()
	if err != nil {
		return nil, err
	}
	treasury, err := r.pubkey()
	if err != nil {
		return nil, err
	}
	feeBps, err := r.u16()
	if err != nil {
		return nil, err
	}
	createdAt, err := r.i64()
	if err != nil {
		return nil, err
	}

	return &market.ProtocolRegistry{
		Admin:          admin.String(),
		Treasury:       treasury.String(),
		PlatformFeeBps: feeBps,
		CreatedAt:      time.Unix(createdAt, 0).UTC(),
	}, nil
}
