// Package ledger defines the value-transfer port used by settlement. On a
// chain deployment the ledger is the chain itself; the in-memory
// implementation backs the simulator engine and tests.
package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/soundmint-labs/trackmint/internal/market"
)

// Transfer moves lamports between two accounts.
type Transfer struct {
	From   string
	To     string
	Amount uint64
}

// Ledger is the settlement value-transfer port.
type Ledger interface {
	// Balance returns the lamport balance of an account. Unknown accounts
	// hold zero.
	Balance(ctx context.Context, account string) (uint64, error)

	// Settle applies the transfer batch and credits units of the track token
	// to recipient as one atomic step. A debit below the payer's balance
	// fails with *market.InsufficientFundsError; any failure leaves every
	// balance and holding untouched.
	Settle(ctx context.Context, transfers []Transfer, mint, recipient string, units uint64) error

	// Holding returns the token units an account holds for mint.
	Holding(ctx context.Context, mint, account string) (uint64, error)
}

// Funder is implemented by ledgers that can create lamports out of thin air.
// Only the simulator ledger does; it is how test and demo wallets get seeded.
type Funder interface {
	Fund(ctx context.Context, account string, amount uint64) error
}

// Memory is a mutex-guarded in-memory ledger.
type Memory struct {
	mu       sync.RWMutex
	balances map[string]uint64
	holdings map[string]map[string]uint64 // mint -> account -> units
}

var (
	_ Ledger = (*Memory)(nil)
	_ Funder = (*Memory)(nil)
)

// NewMemory returns an empty ledger.
func NewMemory() *Memory {
	return &Memory{
		balances: make(map[string]uint64),
		holdings: make(map[string]map[string]uint64),
	}
}

func (m *Memory) Balance(_ context.Context, account string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balances[account], nil
}

// stage walks the batch against a scratch copy of the touched accounts so a
// failure mid-batch leaves the real balances untouched. Caller holds the lock.
func (m *Memory) stage(transfers []Transfer) (map[string]uint64, error) {
	staged := make(map[string]uint64, len(transfers)*2)
	get := func(account string) uint64 {
		if v, ok := staged[account]; ok {
			return v
		}
		return m.balances[account]
	}

	for _, tr := range transfers {
		from := get(tr.From)
		if from < tr.Amount {
			return nil, &market.InsufficientFundsError{
				Account:  tr.From,
				Balance:  from,
				Required: tr.Amount,
			}
		}
		staged[tr.From] = from - tr.Amount
		staged[tr.To] = get(tr.To) + tr.Amount
	}
	return staged, nil
}

// Apply executes a plain transfer batch atomically.
func (m *Memory) Apply(_ context.Context, transfers []Transfer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	staged, err := m.stage(transfers)
	if err != nil {
		return err
	}
	for account, balance := range staged {
		m.balances[account] = balance
	}
	return nil
}

func (m *Memory) Settle(_ context.Context, transfers []Transfer, mint, recipient string, units uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	staged, err := m.stage(transfers)
	if err != nil {
		return err
	}

	// Commit only after the whole batch staged cleanly; the unit credit
	// cannot fail past this point, so transfers and holdings move together.
	for account, balance := range staged {
		m.balances[account] = balance
	}
	accounts, ok := m.holdings[mint]
	if !ok {
		accounts = make(map[string]uint64)
		m.holdings[mint] = accounts
	}
	accounts[recipient] += units
	return nil
}

func (m *Memory) Holding(_ context.Context, mint, account string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.holdings[mint][account], nil
}

// Fund credits freshly created lamports to an account.
func (m *Memory) Fund(_ context.Context, account string, amount uint64) error {
	if account == "" {
		return fmt.Errorf("account cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[account] += amount
	return nil
}
