package store

import (
	"context"
	"sync"

	"github.com/soundmint-labs/trackmint/internal/market"
)

// maxPurchasesPerMint bounds the in-memory purchase log.
const maxPurchasesPerMint = 256

// Memory is a mutex-guarded in-memory Store. It is the backing store of the
// simulator engine and of tests; all records are copied on the way in and
// out so callers never alias internal state.
type Memory struct {
	mu        sync.RWMutex
	registry  *market.ProtocolRegistry
	factories map[string]*market.TokenFactory
	purchases map[string][]*market.PurchaseResult
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		factories: make(map[string]*market.TokenFactory),
		purchases: make(map[string][]*market.PurchaseResult),
	}
}

func (m *Memory) InitializeRegistry(_ context.Context, registry *market.ProtocolRegistry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registry != nil {
		return market.ErrAlreadyInitialized
	}
	cp := *registry
	m.registry = &cp
	return nil
}

func (m *Memory) GetRegistry(_ context.Context) (*market.ProtocolRegistry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.registry == nil {
		return nil, market.ErrNotInitialized
	}
	cp := *m.registry
	return &cp, nil
}

func (m *Memory) CreateFactory(_ context.Context, factory *market.TokenFactory) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.factories[factory.Mint]; ok {
		return market.ErrAlreadyExists
	}
	m.factories[factory.Mint] = factory.Clone()
	return nil
}

func (m *Memory) GetFactory(_ context.Context, mint string) (*market.TokenFactory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	factory, ok := m.factories[mint]
	if !ok {
		return nil, market.ErrNotFound
	}
	return factory.Clone(), nil
}

func (m *Memory) UpdateSupply(_ context.Context, mint string, prevSupply, newSupply uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	factory, ok := m.factories[mint]
	if !ok {
		return market.ErrNotFound
	}
	if factory.CurrentSupply != prevSupply {
		return market.ErrConcurrentModification
	}
	factory.CurrentSupply = newSupply
	return nil
}

func (m *Memory) SetActive(_ context.Context, mint string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	factory, ok := m.factories[mint]
	if !ok {
		return market.ErrNotFound
	}
	factory.IsActive = active
	return nil
}

func (m *Memory) ListFactories(_ context.Context) ([]*market.TokenFactory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*market.TokenFactory, 0, len(m.factories))
	for _, factory := range m.factories {
		out = append(out, factory.Clone())
	}
	return out, nil
}

func (m *Memory) AppendPurchase(_ context.Context, result *market.PurchaseResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *result
	log := append(m.purchases[result.Mint], &cp)
	if len(log) > maxPurchasesPerMint {
		log = log[len(log)-maxPurchasesPerMint:]
	}
	m.purchases[result.Mint] = log
	return nil
}

func (m *Memory) RecentPurchases(_ context.Context, mint string, limit int) ([]*market.PurchaseResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	log := m.purchases[mint]
	if limit <= 0 || limit > len(log) {
		limit = len(log)
	}
	out := make([]*market.PurchaseResult, 0, limit)
	for i := len(log) - limit; i < len(log); i++ {
		cp := *log[i]
		out = append(out, &cp)
	}
	return out, nil
}
