// Package task loads the declarative work list the runner executes: token
// creations, purchases and queries described in a YAML file.
package task

import (
	"fmt"
	"time"

	"github.com/soundmint-labs/trackmint/internal/market"
)

// OperationType identifies what a task asks the engine to do.
type OperationType string

const (
	OperationCreate    OperationType = "create"
	OperationBuy       OperationType = "buy"
	OperationInfo      OperationType = "info"
	OperationOwnership OperationType = "ownership"
)

// Task is a single validated unit of work.
type Task struct {
	ID         int
	TaskName   string
	WalletName string
	Operation  OperationType

	// Purchase and query fields. Mint may name an earlier create task
	// instead of a base58 address; the runner resolves it after that task
	// completes.
	Mint    string
	Amount  uint64
	Account string

	// Creation fields.
	TokenName    string
	Symbol       string
	MetadataURI  string
	CurveType    market.CurveType
	InitialPrice uint64
	Delta        uint64
	ArtistFeeBps uint16

	CreatedAt time.Time
}

func parseOperation(s string) (OperationType, error) {
	op := OperationType(s)
	switch op {
	case OperationCreate, OperationBuy, OperationInfo, OperationOwnership:
		return op, nil
	default:
		return "", fmt.Errorf("unsupported operation: %q", s)
	}
}

// Validate checks the per-operation required fields.
func (t *Task) Validate() error {
	if t.TaskName == "" {
		return fmt.Errorf("missing task_name")
	}
	if t.WalletName == "" {
		return fmt.Errorf("missing wallet")
	}
	switch t.Operation {
	case OperationCreate:
		if t.TokenName == "" || t.Symbol == "" {
			return fmt.Errorf("create task needs name and symbol")
		}
		if t.MetadataURI == "" {
			return fmt.Errorf("create task needs metadata_uri")
		}
		if t.InitialPrice == 0 {
			return fmt.Errorf("create task needs a positive initial_price")
		}
	case OperationBuy:
		if t.Mint == "" {
			return fmt.Errorf("buy task needs mint")
		}
		if t.Amount < 1 {
			return fmt.Errorf("buy task needs a positive amount")
		}
	case OperationInfo:
		if t.Mint == "" {
			return fmt.Errorf("info task needs mint")
		}
	case OperationOwnership:
		if t.Mint == "" {
			return fmt.Errorf("ownership task needs mint")
		}
	}
	return nil
}
