// Package settlement orchestrates the token market: factory creation, the
// atomic buy path (pricing, fee split, value transfer, supply update) and the
// read-only queries. It owns the concurrency model: all writes to a mint's
// factory record are serialized behind a per-mint lock.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/soundmint-labs/trackmint/internal/market"
	"github.com/soundmint-labs/trackmint/internal/market/curve"
	"github.com/soundmint-labs/trackmint/internal/market/ledger"
	"github.com/soundmint-labs/trackmint/internal/market/store"
)

// Service is the settlement engine. One instance serves all mints; purchases
// against different mints proceed in parallel, purchases against the same
// mint serialize.
type Service struct {
	store  store.Store
	ledger ledger.Ledger
	logger *zap.Logger

	// locks stripes one mutex per mint. Entries are never removed; the
	// working set is bounded by the number of tracks.
	locks sync.Map // mint -> *sync.Mutex

	// infoCache holds the last-known-good TokenInfo per mint, served with
	// the Stale flag when the store is transiently unavailable. The buy path
	// never reads it.
	infoCache sync.Map // mint -> market.TokenInfo
}

// New constructs a settlement service over the given store and ledger.
func New(st store.Store, lg ledger.Ledger, logger *zap.Logger) *Service {
	return &Service{
		store:  st,
		ledger: lg,
		logger: logger.Named("settlement"),
	}
}

func (s *Service) lockFor(mint string) *sync.Mutex {
	if mu, ok := s.locks.Load(mint); ok {
		return mu.(*sync.Mutex)
	}
	mu, _ := s.locks.LoadOrStore(mint, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// PoolAccount derives the deterministic liquidity pool account for a mint.
func PoolAccount(mint string) string {
	return "pool:" + mint
}

// InitializeRegistry creates the protocol registry singleton. It fails with
// market.ErrAlreadyInitialized once a registry exists.
func (s *Service) InitializeRegistry(ctx context.Context, admin, treasury string, platformFeeBps uint16) (*market.ProtocolRegistry, error) {
	if admin == "" || treasury == "" {
		return nil, fmt.Errorf("admin and treasury accounts are required")
	}
	if platformFeeBps > market.MaxFeeBps {
		return nil, fmt.Errorf("platform fee %d bps exceeds %d", platformFeeBps, market.MaxFeeBps)
	}

	registry := &market.ProtocolRegistry{
		Admin:          admin,
		Treasury:       treasury,
		PlatformFeeBps: platformFeeBps,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.store.InitializeRegistry(ctx, registry); err != nil {
		return nil, err
	}

	s.logger.Info("Protocol registry initialized",
		zap.String("admin", admin),
		zap.String("treasury", treasury),
		zap.Uint16("platform_fee_bps", platformFeeBps))
	return registry, nil
}

// CreateToken creates the factory record for a new track token. The factory
// identifier is the mint itself, so a second create for the same mint fails
// with market.ErrAlreadyExists and leaves the original untouched.
func (s *Service) CreateToken(ctx context.Context, mint string, params market.CreateTokenParams) (*market.TokenFactory, error) {
	registry, err := s.store.GetRegistry(ctx)
	if err != nil {
		return nil, err
	}

	if mint == "" {
		return nil, fmt.Errorf("mint identifier is required")
	}
	if params.Artist == "" {
		return nil, fmt.Errorf("artist account is required")
	}
	if params.Name == "" || params.Symbol == "" || params.MetadataURI == "" {
		return nil, fmt.Errorf("name, symbol and metadata URI must be non-empty")
	}
	if params.InitialPrice == 0 {
		return nil, fmt.Errorf("initial price must be positive")
	}
	if !params.CurveType.Valid() {
		return nil, fmt.Errorf("unsupported curve type %d", params.CurveType)
	}
	maxArtistFee := market.MaxFeeBps - registry.PlatformFeeBps
	if params.ArtistFeeBps > maxArtistFee {
		return nil, fmt.Errorf("artist fee %d bps exceeds maximum %d", params.ArtistFeeBps, maxArtistFee)
	}

	factory := &market.TokenFactory{
		Mint:          mint,
		Artist:        params.Artist,
		Name:          params.Name,
		Symbol:        params.Symbol,
		MetadataURI:   params.MetadataURI,
		CurveType:     params.CurveType,
		InitialPrice:  params.InitialPrice,
		Delta:         params.Delta,
		CurrentSupply: 0,
		ArtistFeeBps:  params.ArtistFeeBps,
		LiquidityPool: PoolAccount(mint),
		IsActive:      true,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.store.CreateFactory(ctx, factory); err != nil {
		return nil, err
	}

	s.logger.Info("Token factory created",
		zap.String("mint", mint),
		zap.String("artist", params.Artist),
		zap.String("symbol", params.Symbol),
		zap.String("curve", params.CurveType.String()),
		zap.Uint64("initial_price", params.InitialPrice),
		zap.Uint64("delta", params.Delta),
		zap.Uint16("artist_fee_bps", params.ArtistFeeBps))
	return factory.Clone(), nil
}

// Buy settles a purchase of amount units for buyer. The whole operation is
// all-or-nothing: any failure before the supply update leaves no persisted
// mutation, and the supply update itself is retried until durable because
// applied transfers without a supply update would break the pricing
// invariant.
func (s *Service) Buy(ctx context.Context, buyer, mint string, amount uint64) (*market.PurchaseResult, error) {
	if amount < 1 {
		return nil, market.ErrInvalidAmount
	}
	if buyer == "" {
		return nil, fmt.Errorf("buyer account is required")
	}

	mu := s.lockFor(mint)
	mu.Lock()
	defer mu.Unlock()

	// Always a fresh read: the cost computation below must see the supply
	// left behind by the previous settlement of this mint.
	factory, err := s.store.GetFactory(ctx, mint)
	if err != nil {
		return nil, err
	}
	if !factory.IsActive {
		return nil, market.ErrInactive
	}

	registry, err := s.store.GetRegistry(ctx)
	if err != nil {
		return nil, err
	}

	supplyBefore := factory.CurrentSupply
	totalCost := curve.TotalCost(factory.CurveType, factory.InitialPrice, factory.Delta, supplyBefore, amount)

	artistFee := market.FeeAmount(totalCost, factory.ArtistFeeBps)
	platformFee := market.FeeAmount(totalCost, registry.PlatformFeeBps)
	netToPool := totalCost - artistFee - platformFee

	balance, err := s.ledger.Balance(ctx, buyer)
	if err != nil {
		return nil, fmt.Errorf("failed to read buyer balance: %w", err)
	}
	if balance < totalCost {
		return nil, &market.InsufficientFundsError{
			Account:  buyer,
			Balance:  balance,
			Required: totalCost,
		}
	}

	// Fee split, pool deposit and unit credit land together or not at all.
	// The ledger settles them as one atomic step, so a failure can never
	// leave fees transferred without the buyer holding the units.
	transfers := []ledger.Transfer{
		{From: buyer, To: factory.Artist, Amount: artistFee},
		{From: buyer, To: registry.Treasury, Amount: platformFee},
		{From: buyer, To: factory.LiquidityPool, Amount: netToPool},
	}
	if err := s.ledger.Settle(ctx, transfers, mint, buyer, amount); err != nil {
		return nil, err
	}

	newSupply := supplyBefore + amount
	if err := s.persistSupply(ctx, mint, supplyBefore, newSupply); err != nil {
		return nil, err
	}

	result := &market.PurchaseResult{
		OperationID:       uuid.New().String(),
		Mint:              mint,
		Buyer:             buyer,
		Amount:            amount,
		TotalCost:         totalCost,
		ArtistFeeAmount:   artistFee,
		PlatformFeeAmount: platformFee,
		NetToPool:         netToPool,
		NewSupply:         newSupply,
		NewUnitPrice:      curve.UnitPrice(factory.CurveType, factory.InitialPrice, factory.Delta, newSupply),
		SettledAt:         time.Now().UTC(),
	}

	// Accounting log only; a failure here must not fail the purchase.
	if err := s.store.AppendPurchase(ctx, result); err != nil {
		s.logger.Warn("Failed to append purchase log",
			zap.String("mint", mint),
			zap.String("operation_id", result.OperationID),
			zap.Error(err))
	}

	factory.CurrentSupply = newSupply
	s.infoCache.Store(mint, market.TokenInfo{
		Factory:       *factory,
		NextUnitPrice: result.NewUnitPrice,
	})

	s.logger.Info("Purchase settled",
		zap.String("operation_id", result.OperationID),
		zap.String("mint", mint),
		zap.String("buyer", buyer),
		zap.Uint64("amount", amount),
		zap.Uint64("total_cost", totalCost),
		zap.Uint64("artist_fee", artistFee),
		zap.Uint64("platform_fee", platformFee),
		zap.Uint64("net_to_pool", netToPool),
		zap.Uint64("new_supply", newSupply))
	return result, nil
}

// persistSupply writes the supply update, retrying transient store failures
// until the write is durable. At this point the transfers have already been
// applied, so giving up would leave the factory priced against a stale
// supply; only ctx cancellation or a definitive store answer stops the loop.
func (s *Service) persistSupply(ctx context.Context, mint string, prevSupply, newSupply uint64) error {
	op := func() (struct{}, error) {
		err := s.store.UpdateSupply(ctx, mint, prevSupply, newSupply)
		if err == nil {
			return struct{}{}, nil
		}
		if errors.Is(err, market.ErrNotFound) || errors.Is(err, market.ErrConcurrentModification) {
			// Not transient: the record vanished or another writer slipped
			// past the per-mint lock (multi-process deployment misconfig).
			return struct{}{}, backoff.Permanent(err)
		}
		s.logger.Warn("Retrying supply persistence",
			zap.String("mint", mint),
			zap.Uint64("new_supply", newSupply),
			zap.Error(err))
		return struct{}{}, err
	}

	_, err := backoff.Retry(ctx, op, backoff.WithBackOff(backoff.NewExponentialBackOff()))
	if err != nil {
		return fmt.Errorf("failed to persist supply for %s: %w", mint, err)
	}
	return nil
}

// TokenInfo returns the factory record plus the price of the next unit. On a
// transient store failure it falls back to the last-known-good snapshot,
// clearly flagged as stale. Unknown mints never fall back.
func (s *Service) TokenInfo(ctx context.Context, mint string) (*market.TokenInfo, error) {
	factory, err := s.store.GetFactory(ctx, mint)
	if err != nil {
		if errors.Is(err, market.ErrNotFound) {
			return nil, err
		}
		if cached, ok := s.infoCache.Load(mint); ok {
			info := cached.(market.TokenInfo)
			info.Stale = true
			s.logger.Warn("Serving stale token info after store failure",
				zap.String("mint", mint),
				zap.Error(err))
			return &info, nil
		}
		return nil, err
	}

	info := market.TokenInfo{
		Factory:       *factory,
		NextUnitPrice: curve.UnitPrice(factory.CurveType, factory.InitialPrice, factory.Delta, factory.CurrentSupply),
	}
	s.infoCache.Store(mint, info)
	cp := info
	return &cp, nil
}

// Ownership returns the buyer's holding balance for mint.
func (s *Service) Ownership(ctx context.Context, mint, account string) (uint64, error) {
	if _, err := s.store.GetFactory(ctx, mint); err != nil {
		return 0, err
	}
	return s.ledger.Holding(ctx, mint, account)
}

// Deactivate closes a factory for purchases. The record is kept; supply and
// holdings remain queryable.
func (s *Service) Deactivate(ctx context.Context, mint string) error {
	mu := s.lockFor(mint)
	mu.Lock()
	defer mu.Unlock()

	if err := s.store.SetActive(ctx, mint, false); err != nil {
		return err
	}
	s.logger.Info("Token factory deactivated", zap.String("mint", mint))
	return nil
}
