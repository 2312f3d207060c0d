// Package sim is the in-memory backend of the token market engine. It runs
// the same settlement service a real deployment would, against an in-memory
// ledger and whichever store the caller wires in, which makes it suitable
// both for local development and for exercising the engine in tests.
package sim

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/soundmint-labs/trackmint/internal/engine"
	"github.com/soundmint-labs/trackmint/internal/market"
	"github.com/soundmint-labs/trackmint/internal/market/ledger"
	"github.com/soundmint-labs/trackmint/internal/market/settlement"
	"github.com/soundmint-labs/trackmint/internal/market/store"
	"github.com/soundmint-labs/trackmint/internal/metadata"
)

// Engine implements engine.TokenMarketEngine against local state.
type Engine struct {
	svc    *settlement.Service
	ledger ledger.Ledger
	logger *zap.Logger
}

var (
	_ engine.TokenMarketEngine = (*Engine)(nil)
	_ engine.Funder            = (*Engine)(nil)
)

// New wires a simulator engine over the given store. The ledger is always
// in-memory; the store may be the in-memory one or Postgres.
func New(st store.Store, lg ledger.Ledger, logger *zap.Logger) *Engine {
	return &Engine{
		svc:    settlement.New(st, lg, logger),
		ledger: lg,
		logger: logger.Named("sim-engine"),
	}
}

// InitializeRegistry creates the protocol registry. Exposed on the simulator
// because there is no separate operator tooling against local state.
func (e *Engine) InitializeRegistry(ctx context.Context, admin, treasury string, platformFeeBps uint16) error {
	_, err := e.svc.InitializeRegistry(ctx, admin, treasury, platformFeeBps)
	return err
}

func (e *Engine) Name() string { return "Simulator" }

func (e *Engine) CreateToken(ctx context.Context, params market.CreateTokenParams) (*market.TokenFactory, error) {
	if err := metadata.ValidateURI(params.MetadataURI); err != nil {
		return nil, fmt.Errorf("invalid metadata URI: %w", err)
	}

	// Mint allocation mirrors the chain: a fresh ed25519 keypair, base58
	// encoded. The factory identifier then derives from the mint.
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate mint keypair: %w", err)
	}
	mint := key.PublicKey().String()

	factory, err := e.svc.CreateToken(ctx, mint, params)
	if err != nil {
		return nil, err
	}

	e.logger.Info("Simulated track token created",
		zap.String("mint", mint),
		zap.String("symbol", params.Symbol))
	return factory, nil
}

func (e *Engine) BuyTokens(ctx context.Context, buyer, mint string, amount uint64) (*market.PurchaseResult, error) {
	return e.svc.Buy(ctx, buyer, mint, amount)
}

func (e *Engine) GetTokenInfo(ctx context.Context, mint string) (*market.TokenInfo, error) {
	return e.svc.TokenInfo(ctx, mint)
}

func (e *Engine) CheckOwnership(ctx context.Context, mint, account string) (uint64, error) {
	return e.svc.Ownership(ctx, mint, account)
}

// Deactivate closes a factory for purchases.
func (e *Engine) Deactivate(ctx context.Context, mint string) error {
	return e.svc.Deactivate(ctx, mint)
}

// Fund seeds an account balance so scripted scenarios can buy.
func (e *Engine) Fund(ctx context.Context, account string, amount uint64) error {
	funder, ok := e.ledger.(ledger.Funder)
	if !ok {
		return fmt.Errorf("ledger does not support funding")
	}
	return funder.Fund(ctx, account, amount)
}
