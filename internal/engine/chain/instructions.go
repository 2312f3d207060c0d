package chain

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Anchor-style instruction discriminators (first 8 bytes of
// sha256("global:<name>")). They identify the program entrypoints and must
// track program upgrades.
var (
	createTokenDiscriminator = [8]byte{0x54, 0xe5, 0x3f, 0x5a, 0x93, 0x71, 0x09, 0xfa}
	buyDiscriminator         = [8]byte{0x66, 0x06, 0x3d, 0x12, 0x01, 0xda, 0xeb, 0xea}
)

// maxStringLen bounds the variable-length fields so a malformed call cannot
// blow up the instruction size.
const maxStringLen = 200

func appendU64(data []byte, v uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return append(data, buf[:]...)
}

func appendU16(data []byte, v uint16) []byte {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	return append(data, buf[:]...)
}

// appendString encodes a borsh string: u32 little-endian length + bytes.
func appendString(data []byte, s string) ([]byte, error) {
	if len(s) > maxStringLen {
		return nil, fmt.Errorf("string field exceeds %d bytes", maxStringLen)
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(len(s)))
	data = append(data, buf[:]...)
	return append(data, s...), nil
}

// createTokenArgs carries the artist inputs of a create_token instruction.
type createTokenArgs struct {
	Name         string
	Symbol       string
	MetadataURI  string
	InitialPrice uint64
	Delta        uint64
	CurveType    uint8
	ArtistFeeBps uint16
}

// buildCreateTokenInstruction assembles the create_token call. The artist
// pays for and signs the creation; the mint keypair co-signs because the
// program initializes the mint account in the same transaction.
func buildCreateTokenInstruction(
	programID solana.PublicKey,
	artist solana.PublicKey,
	mint solana.PublicKey,
	args createTokenArgs,
) (solana.Instruction, error) {
	registry, err := registryAddress(programID)
	if err != nil {
		return nil, err
	}
	factory, err := factoryAddress(programID, mint)
	if err != nil {
		return nil, err
	}
	pool, err := poolAddress(programID, mint)
	if err != nil {
		return nil, err
	}

	data := append([]byte{}, createTokenDiscriminator[:]...)
	if data, err = appendString(data, args.Name); err != nil {
		return nil, err
	}
	if data, err = appendString(data, args.Symbol); err != nil {
		return nil, err
	}
	if data, err = appendString(data, args.MetadataURI); err != nil {
		return nil, err
	}
	data = appendU64(data, args.InitialPrice)
	data = appendU64(data, args.Delta)
	data = append(data, args.CurveType)
	data = appendU16(data, args.ArtistFeeBps)

	// Account order is fixed by the program.
	accounts := []*solana.AccountMeta{
		{PublicKey: registry, IsSigner: false, IsWritable: false},
		{PublicKey: artist, IsSigner: true, IsWritable: true},
		{PublicKey: mint, IsSigner: true, IsWritable: true},
		{PublicKey: factory, IsSigner: false, IsWritable: true},
		{PublicKey: pool, IsSigner: false, IsWritable: true},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SysVarRentPubkey, IsSigner: false, IsWritable: false},
	}

	return solana.NewInstruction(programID, accounts, data), nil
}

// buildBuyInstruction assembles the buy call. maxCost caps what the buyer is
// willing to pay so a settlement racing another purchase cannot overcharge
// beyond the configured slippage.
func buildBuyInstruction(
	programID solana.PublicKey,
	buyer solana.PublicKey,
	buyerATA solana.PublicKey,
	mint solana.PublicKey,
	artist solana.PublicKey,
	treasury solana.PublicKey,
	amount uint64,
	maxCost uint64,
) (solana.Instruction, error) {
	registry, err := registryAddress(programID)
	if err != nil {
		return nil, err
	}
	factory, err := factoryAddress(programID, mint)
	if err != nil {
		return nil, err
	}
	pool, err := poolAddress(programID, mint)
	if err != nil {
		return nil, err
	}

	data := append([]byte{}, buyDiscriminator[:]...)
	data = appendU64(data, amount)
	data = appendU64(data, maxCost)

	accounts := []*solana.AccountMeta{
		{PublicKey: registry, IsSigner: false, IsWritable: false},
		{PublicKey: treasury, IsSigner: false, IsWritable: true},
		{PublicKey: artist, IsSigner: false, IsWritable: true},
		{PublicKey: mint, IsSigner: false, IsWritable: true},
		{PublicKey: factory, IsSigner: false, IsWritable: true},
		{PublicKey: pool, IsSigner: false, IsWritable: true},
		{PublicKey: buyerATA, IsSigner: false, IsWritable: true},
		{PublicKey: buyer, IsSigner: true, IsWritable: true},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
	}

	return solana.NewInstruction(programID, accounts, data), nil
}
