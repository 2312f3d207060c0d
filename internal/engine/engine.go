// Package engine defines the capability interface the rest of the
// application programs against. Two backends implement it: the in-memory
// simulator and the Solana program client. The backend is chosen once at
// startup from configuration; nothing downstream inspects the environment.
package engine

import (
	"context"

	"github.com/soundmint-labs/trackmint/internal/market"
)

// TokenMarketEngine is the full market surface exposed to callers: create a
// track token, buy units, and the two read-only queries. Both backends honor
// the same contract, including error kinds.
type TokenMarketEngine interface {
	// Name identifies the backend for logs.
	Name() string

	// CreateToken mints a new track token and creates its factory. The mint
	// identifier is allocated by the backend and returned inside the factory
	// record.
	CreateToken(ctx context.Context, params market.CreateTokenParams) (*market.TokenFactory, error)

	// BuyTokens settles a purchase of amount units for buyer and returns the
	// purchase receipt.
	BuyTokens(ctx context.Context, buyer, mint string, amount uint64) (*market.PurchaseResult, error)

	// GetTokenInfo returns the factory record plus the next unit price.
	GetTokenInfo(ctx context.Context, mint string) (*market.TokenInfo, error)

	// CheckOwnership returns the holding balance of account for mint.
	CheckOwnership(ctx context.Context, mint, account string) (uint64, error)
}

// Funder is implemented by backends that can seed account balances. Only the
// simulator does; the chain backend's balances live on the chain.
type Funder interface {
	Fund(ctx context.Context, account string, amount uint64) error
}
