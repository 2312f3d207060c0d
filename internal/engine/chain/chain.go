// Package chain is the Solana-backed implementation of the token market
// engine. Pricing and settlement are executed by the on-chain program; this
// client assembles and signs the instructions, quotes costs from fetched
// account state with the same curve math, and decodes results.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/bits"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/soundmint-labs/trackmint/internal/engine"
	"github.com/soundmint-labs/trackmint/internal/market"
	"github.com/soundmint-labs/trackmint/internal/market/curve"
	"github.com/soundmint-labs/trackmint/internal/metadata"
	solclient "github.com/soundmint-labs/trackmint/internal/solana"
	"github.com/soundmint-labs/trackmint/internal/wallet"
)

const submitMaxElapsed = 30 * time.Second

// Engine implements engine.TokenMarketEngine against the deployed market
// program.
type Engine struct {
	client      *solclient.Client
	wallet      *wallet.Wallet
	programID   solana.PublicKey
	slippageBps uint16
	logger      *zap.Logger

	// infoCache keeps the last-known-good TokenInfo per mint for the stale
	// fallback of GetTokenInfo.
	infoCache sync.Map // mint -> market.TokenInfo
}

var _ engine.TokenMarketEngine = (*Engine)(nil)

// New builds a chain engine for the given program.
func New(client *solclient.Client, w *wallet.Wallet, programID string, slippageBps uint16, logger *zap.Logger) (*Engine, error) {
	pid, err := solana.PublicKeyFromBase58(programID)
	if err != nil {
		return nil, fmt.Errorf("invalid program id %q: %w", programID, err)
	}
	return &Engine{
		client:      client,
		wallet:      w,
		programID:   pid,
		slippageBps: slippageBps,
		logger:      logger.Named("chain-engine"),
	}, nil
}

func (e *Engine) Name() string { return "Solana" }

// submit builds, signs and sends a transaction, retrying transient failures
// with exponential backoff. Build and signing failures are permanent.
func (e *Engine) submit(ctx context.Context, instructions []solana.Instruction, extraSigners ...solana.PrivateKey) (solana.Signature, error) {
	op := func() (solana.Signature, error) {
		blockhash, err := e.client.GetLatestBlockhash(ctx)
		if err != nil {
			return solana.Signature{}, err
		}

		tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(e.wallet.PublicKey))
		if err != nil {
			return solana.Signature{}, backoff.Permanent(fmt.Errorf("failed to build transaction: %w", err))
		}
		if err := e.wallet.Sign(tx, extraSigners...); err != nil {
			return solana.Signature{}, backoff.Permanent(fmt.Errorf("failed to sign transaction: %w", err))
		}

		sig, err := e.client.SendTransaction(ctx, tx)
		if err != nil {
			return solana.Signature{}, err
		}
		if err := e.client.WaitForConfirmation(ctx, sig); err != nil {
			return sig, backoff.Permanent(err)
		}
		return sig, nil
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(submitMaxElapsed),
	)
}

// purchaseQuote prices amount units from the factory's fetched supply and
// derives the maximum charge the buyer authorizes once the configured
// slippage allowance is added on top. The cap saturates at MaxUint64.
func purchaseQuote(factory *market.TokenFactory, slippageBps uint16, amount uint64) (totalCost, maxCost uint64) {
	totalCost = curve.TotalCost(factory.CurveType, factory.InitialPrice, factory.Delta, factory.CurrentSupply, amount)
	slip := market.FeeAmount(totalCost, slippageBps)
	maxCost, carry := bits.Add64(totalCost, slip, 0)
	if carry != 0 {
		maxCost = math.MaxUint64
	}
	return totalCost, maxCost
}

// checkBuyerFunds gates submission on the quoted cost. The requirement
// reported is the quote itself; the slippage cap only bounds drift inside
// the program and is not a funding precondition.
func checkBuyerFunds(buyer string, balance, totalCost uint64) error {
	if balance < totalCost {
		return &market.InsufficientFundsError{
			Account:  buyer,
			Balance:  balance,
			Required: totalCost,
		}
	}
	return nil
}

// fetchFactory loads and decodes the factory account for a mint.
func (e *Engine) fetchFactory(ctx context.Context, mint solana.PublicKey) (*market.TokenFactory, error) {
	addr, err := factoryAddress(e.programID, mint)
	if err != nil {
		return nil, err
	}
	info, err := e.client.GetAccountInfo(ctx, addr)
	if err != nil {
		if errors.Is(err, solclient.ErrAccountNotFound) {
			return nil, market.ErrNotFound
		}
		return nil, err
	}
	return decodeFactory(mint, info.Value.Data.GetBinary())
}

// fetchRegistry loads and decodes the protocol registry account.
func (e *Engine) fetchRegistry(ctx context.Context) (*market.ProtocolRegistry, error) {
	addr, err := registryAddress(e.programID)
	if err != nil {
		return nil, err
	}
	info, err := e.client.GetAccountInfo(ctx, addr)
	if err != nil {
		if errors.Is(err, solclient.ErrAccountNotFound) {
			return nil, market.ErrNotInitialized
		}
		return nil, err
	}
	return decodeRegistry(info.Value.Data.GetBinary())
}

func (e *Engine) CreateToken(ctx context.Context, params market.CreateTokenParams) (*market.TokenFactory, error) {
	if params.Artist != e.wallet.PublicKey.String() {
		return nil, fmt.Errorf("artist %s is not the configured signing wallet", params.Artist)
	}
	if err := metadata.ValidateURI(params.MetadataURI); err != nil {
		return nil, fmt.Errorf("invalid metadata URI: %w", err)
	}
	if params.InitialPrice == 0 {
		return nil, fmt.Errorf("initial price must be positive")
	}
	if !params.CurveType.Valid() {
		return nil, fmt.Errorf("unsupported curve type %d", params.CurveType)
	}

	// The mint signs its own creation.
	mintKey, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate mint keypair: %w", err)
	}
	mint := mintKey.PublicKey()

	ix, err := buildCreateTokenInstruction(e.programID, e.wallet.PublicKey, mint, createTokenArgs{
		Name:         params.Name,
		Symbol:       params.Symbol,
		MetadataURI:  params.MetadataURI,
		InitialPrice: params.InitialPrice,
		Delta:        params.Delta,
		CurveType:    uint8(params.CurveType),
		ArtistFeeBps: params.ArtistFeeBps,
	})
	if err != nil {
		return nil, err
	}

	sig, err := e.submit(ctx, []solana.Instruction{ix}, mintKey)
	if err != nil {
		return nil, fmt.Errorf("create_token transaction failed: %w", err)
	}

	e.logger.Info("Track token created on chain",
		zap.String("mint", mint.String()),
		zap.String("symbol", params.Symbol),
		zap.String("signature", sig.String()))

	// Read back the state the program wrote rather than assuming it.
	factory, err := e.fetchFactory(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("factory created but could not be read back: %w", err)
	}
	return factory, nil
}

func (e *Engine) BuyTokens(ctx context.Context, buyer, mintStr string, amount uint64) (*market.PurchaseResult, error) {
	if amount < 1 {
		return nil, market.ErrInvalidAmount
	}
	if buyer != e.wallet.PublicKey.String() {
		return nil, fmt.Errorf("buyer %s is not the configured signing wallet", buyer)
	}
	mint, err := solana.PublicKeyFromBase58(mintStr)
	if err != nil {
		return nil, fmt.Errorf("invalid mint %q: %w", mintStr, err)
	}

	factory, err := e.fetchFactory(ctx, mint)
	if err != nil {
		return nil, err
	}
	if !factory.IsActive {
		return nil, market.ErrInactive
	}
	registry, err := e.fetchRegistry(ctx)
	if err != nil {
		return nil, err
	}

	// Quote with the program's own curve math against the fetched supply.
	// The program recomputes on chain; maxCost bounds the drift if another
	// purchase lands first.
	supplyBefore := factory.CurrentSupply
	totalCost, maxCost := purchaseQuote(factory, e.slippageBps, amount)

	balance, err := e.client.GetBalance(ctx, e.wallet.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read buyer balance: %w", err)
	}
	if err := checkBuyerFunds(buyer, balance, totalCost); err != nil {
		return nil, err
	}

	buyerATA, err := e.wallet.ATA(mint)
	if err != nil {
		return nil, err
	}
	artist, err := solana.PublicKeyFromBase58(factory.Artist)
	if err != nil {
		return nil, fmt.Errorf("factory has invalid artist account: %w", err)
	}
	treasury, err := solana.PublicKeyFromBase58(registry.Treasury)
	if err != nil {
		return nil, fmt.Errorf("registry has invalid treasury account: %w", err)
	}

	ix, err := buildBuyInstruction(e.programID, e.wallet.PublicKey, buyerATA, mint, artist, treasury, amount, maxCost)
	if err != nil {
		return nil, err
	}

	sig, err := e.submit(ctx, []solana.Instruction{ix})
	if err != nil {
		return nil, fmt.Errorf("buy transaction failed: %w", err)
	}

	artistFee := market.FeeAmount(totalCost, factory.ArtistFeeBps)
	platformFee := market.FeeAmount(totalCost, registry.PlatformFeeBps)
	newSupply := supplyBefore + amount

	result := &market.PurchaseResult{
		OperationID:       sig.String(),
		Mint:              mintStr,
		Buyer:             buyer,
		Amount:            amount,
		TotalCost:         totalCost,
		ArtistFeeAmount:   artistFee,
		PlatformFeeAmount: platformFee,
		NetToPool:         totalCost - artistFee - platformFee,
		NewSupply:         newSupply,
		NewUnitPrice:      curve.UnitPrice(factory.CurveType, factory.InitialPrice, factory.Delta, newSupply),
		SettledAt:         time.Now().UTC(),
	}

	e.logger.Info("Purchase settled on chain",
		zap.String("signature", sig.String()),
		zap.String("mint", mintStr),
		zap.Uint64("amount", amount),
		zap.Uint64("total_cost", totalCost),
		zap.Uint64("new_supply", newSupply))
	return result, nil
}

func (e *Engine) GetTokenInfo(ctx context.Context, mintStr string) (*market.TokenInfo, error) {
	mint, err := solana.PublicKeyFromBase58(mintStr)
	if err != nil {
		return nil, fmt.Errorf("invalid mint %q: %w", mintStr, err)
	}

	factory, err := e.fetchFactory(ctx, mint)
	if err != nil {
		if errors.Is(err, market.ErrNotFound) {
			return nil, err
		}
		// Transient RPC failure: serve the last snapshot, clearly flagged.
		if cached, ok := e.infoCache.Load(mintStr); ok {
			info := cached.(market.TokenInfo)
			info.Stale = true
			e.logger.Warn("Serving stale token info after RPC failure",
				zap.String("mint", mintStr),
				zap.Error(err))
			return &info, nil
		}
		return nil, err
	}

	info := market.TokenInfo{
		Factory:       *factory,
		NextUnitPrice: curve.UnitPrice(factory.CurveType, factory.InitialPrice, factory.Delta, factory.CurrentSupply),
	}
	e.infoCache.Store(mintStr, info)
	cp := info
	return &cp, nil
}

func (e *Engine) CheckOwnership(ctx context.Context, mintStr, account string) (uint64, error) {
	mint, err := solana.PublicKeyFromBase58(mintStr)
	if err != nil {
		return 0, fmt.Errorf("invalid mint %q: %w", mintStr, err)
	}
	owner, err := solana.PublicKeyFromBase58(account)
	if err != nil {
		return 0, fmt.Errorf("invalid account %q: %w", account, err)
	}

	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return 0, fmt.Errorf("failed to derive token account: %w", err)
	}

	result, err := e.client.GetTokenAccountBalance(ctx, ata)
	if err != nil {
		// No token account means no holdings.
		if errors.Is(err, solclient.ErrAccountNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if result == nil || result.Value == nil || result.Value.Amount == "" {
		return 0, nil
	}

	balance, err := strconv.ParseUint(result.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token balance: %w", err)
	}
	return balance, nil
}
