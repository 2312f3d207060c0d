// Package solana is a thin adapter over the solana-go RPC client used by the
// chain backend. It keeps a list of endpoints and rotates to the next one
// when a call fails, which is enough resilience for a client-side engine.
package solana

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// ErrAccountNotFound is returned when an account does not exist on chain.
var ErrAccountNotFound = errors.New("account not found")

const (
	confirmPollInterval = 500 * time.Millisecond
	confirmTimeout      = 30 * time.Second
)

// Client wraps one or more RPC endpoints behind a rotating cursor.
type Client struct {
	clients []*rpc.Client
	cursor  atomic.Uint32
	logger  *zap.Logger
}

// NewClient builds a client over the given endpoint list.
func NewClient(rpcList []string, logger *zap.Logger) (*Client, error) {
	if len(rpcList) == 0 {
		return nil, errors.New("empty RPC list")
	}

	clients := make([]*rpc.Client, 0, len(rpcList))
	for _, rpcURL := range rpcList {
		parsed, err := url.Parse(rpcURL)
		if err != nil || !strings.HasPrefix(parsed.Scheme, "http") {
			return nil, fmt.Errorf("invalid RPC URL: %s", rpcURL)
		}
		clients = append(clients, rpc.New(rpcURL))
	}

	return &Client{
		clients: clients,
		logger:  logger.Named("solana-client"),
	}, nil
}

func (c *Client) current() *rpc.Client {
	return c.clients[c.cursor.Load()%uint32(len(c.clients))]
}

// rotate advances to the next endpoint after a failure.
func (c *Client) rotate() {
	next := c.cursor.Add(1) % uint32(len(c.clients))
	c.logger.Warn("Rotating RPC endpoint", zap.Uint32("index", next))
}

// GetLatestBlockhash returns a recent blockhash for transaction assembly.
func (c *Client) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	result, err := c.current().GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		c.rotate()
		return solana.Hash{}, fmt.Errorf("failed to get latest blockhash: %w", err)
	}
	return result.Value.Blockhash, nil
}

// SendTransaction submits a signed transaction.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := c.current().SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		c.rotate()
		return solana.Signature{}, err
	}
	return sig, nil
}

// GetAccountInfo fetches raw account state.
func (c *Client) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	info, err := c.current().GetAccountInfo(ctx, pubkey)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, ErrAccountNotFound
		}
		c.rotate()
		return nil, err
	}
	if info == nil || info.Value == nil {
		return nil, ErrAccountNotFound
	}
	return info, nil
}

// GetBalance returns the lamport balance of an account.
func (c *Client) GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error) {
	result, err := c.current().GetBalance(ctx, pubkey, rpc.CommitmentConfirmed)
	if err != nil {
		c.rotate()
		return 0, err
	}
	return result.Value, nil
}

// GetTokenAccountBalance returns the raw unit balance of a token account.
func (c *Client) GetTokenAccountBalance(ctx context.Context, account solana.PublicKey) (*rpc.GetTokenAccountBalanceResult, error) {
	result, err := c.current().GetTokenAccountBalance(ctx, account, rpc.CommitmentConfirmed)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not find") ||
			strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, ErrAccountNotFound
		}
		c.rotate()
		return nil, err
	}
	return result, nil
}

// WaitForConfirmation polls signature status until the transaction is
// confirmed or the timeout elapses.
func (c *Client) WaitForConfirmation(ctx context.Context, signature solana.Signature) error {
	ticker := time.NewTicker(confirmPollInterval)
	defer ticker.Stop()
	timeout := time.After(confirmTimeout)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout:
			return fmt.Errorf("confirmation timeout for %s", signature)
		case <-ticker.C:
			statuses, err := c.current().GetSignatureStatuses(ctx, true, signature)
			if err != nil {
				c.logger.Warn("Error getting signature statuses", zap.Error(err))
				continue
			}
			if statuses == nil || len(statuses.Value) == 0 || statuses.Value[0] == nil {
				continue
			}
			status := statuses.Value[0]
			if status.Err != nil {
				return fmt.Errorf("transaction %s failed: %v", signature, status.Err)
			}
			if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
				status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return nil
			}
		}
	}
}
