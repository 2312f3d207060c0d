// Package store defines the persistence abstraction behind the token market
// engine. The settlement service only ever talks to these interfaces, so
// tests and deployments can swap the in-memory implementation for the
// Postgres one without touching engine logic.
package store

import (
	"context"

	"github.com/soundmint-labs/trackmint/internal/market"
)

// FactoryStore persists TokenFactory records keyed by mint.
type FactoryStore interface {
	// CreateFactory persists a new factory. Returns market.ErrAlreadyExists
	// when a record for the same mint is already present.
	CreateFactory(ctx context.Context, factory *market.TokenFactory) error

	// GetFactory returns the factory for mint or market.ErrNotFound.
	GetFactory(ctx context.Context, mint string) (*market.TokenFactory, error)

	// UpdateSupply replaces the current supply using compare-and-swap
	// semantics: it fails with market.ErrConcurrentModification when the
	// stored supply no longer equals prevSupply.
	UpdateSupply(ctx context.Context, mint string, prevSupply, newSupply uint64) error

	// SetActive flips the purchase gate. Factories are never deleted.
	SetActive(ctx context.Context, mint string, active bool) error

	// ListFactories returns all known factories.
	ListFactories(ctx context.Context) ([]*market.TokenFactory, error)
}

// RegistryStore persists the protocol registry singleton.
type RegistryStore interface {
	// InitializeRegistry creates the singleton. Returns
	// market.ErrAlreadyInitialized on a second call.
	InitializeRegistry(ctx context.Context, registry *market.ProtocolRegistry) error

	// GetRegistry returns the singleton or market.ErrNotInitialized.
	GetRegistry(ctx context.Context) (*market.ProtocolRegistry, error)
}

// PurchaseLog records settled purchases for operator accounting. The log is
// write-behind: settlement correctness never depends on it.
type PurchaseLog interface {
	AppendPurchase(ctx context.Context, result *market.PurchaseResult) error
	RecentPurchases(ctx context.Context, mint string, limit int) ([]*market.PurchaseResult, error)
}

// Store is the full persistence surface required by the settlement service.
type Store interface {
	FactoryStore
	RegistryStore
	PurchaseLog
}
