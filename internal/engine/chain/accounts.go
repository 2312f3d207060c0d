package chain

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// PDA seeds used by the market program. These must match the on-chain
// program exactly; the factory address is derived from the mint, which is
// what makes factory lookup deterministic and creation idempotent to check.
var (
	seedRegistry = []byte("protocol")
	seedFactory  = []byte("token_factory")
	seedPool     = []byte("liquidity_pool")
)

// registryAddress derives the protocol registry PDA.
func registryAddress(programID solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{seedRegistry}, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive registry address: %w", err)
	}
	return addr, nil
}

// factoryAddress derives the token factory PDA for a mint.
func factoryAddress(programID, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{seedFactory, mint.Bytes()}, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive factory address: %w", err)
	}
	return addr, nil
}

// poolAddress derives the liquidity pool PDA for a mint.
func poolAddress(programID, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{seedPool, mint.Bytes()}, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive pool address: %w", err)
	}
	return addr, nil
}
