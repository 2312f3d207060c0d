// Package runner wires the configured engine backend to the task list and
// executes the tasks with a bounded worker pool.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/soundmint-labs/trackmint/internal/config"
	"github.com/soundmint-labs/trackmint/internal/engine"
	"github.com/soundmint-labs/trackmint/internal/engine/chain"
	"github.com/soundmint-labs/trackmint/internal/engine/sim"
	"github.com/soundmint-labs/trackmint/internal/market"
	"github.com/soundmint-labs/trackmint/internal/market/ledger"
	"github.com/soundmint-labs/trackmint/internal/market/store"
	"github.com/soundmint-labs/trackmint/internal/market/store/postgres"
	solclient "github.com/soundmint-labs/trackmint/internal/solana"
	"github.com/soundmint-labs/trackmint/internal/task"
	"github.com/soundmint-labs/trackmint/internal/wallet"
)

// Runner owns the engine backends and drives the task list to completion.
type Runner struct {
	cfg     *config.Config
	logger  *zap.Logger
	wallets map[string]*wallet.Wallet

	// One engine per wallet: the chain backend can only sign for its own
	// wallet, so each wallet gets its own engine instance. In simulator
	// mode every name maps to the same shared engine.
	engines map[string]engine.TokenMarketEngine
	simEng  *sim.Engine

	taskManager *task.Manager

	// mints maps create-task names to the mint addresses those tasks
	// produced, so later tasks can reference tokens by task name.
	mintsMu sync.RWMutex
	mints   map[string]string
}

// New loads wallets and constructs the configured engine backends.
func New(cfg *config.Config, logger *zap.Logger) (*Runner, error) {
	wallets, err := wallet.LoadWallets(cfg.WalletsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallets: %w", err)
	}

	r := &Runner{
		cfg:         cfg,
		logger:      logger.Named("runner"),
		wallets:     wallets,
		engines:     make(map[string]engine.TokenMarketEngine, len(wallets)),
		taskManager: task.NewManager(logger),
		mints:       make(map[string]string),
	}

	switch cfg.EngineMode {
	case config.ModeChain:
		err = r.buildChainEngines()
	default:
		err = r.buildSimEngine()
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Runner) buildChainEngines() error {
	client, err := solclient.NewClient(r.cfg.RPCList, r.logger)
	if err != nil {
		return err
	}
	for name, w := range r.wallets {
		eng, err := chain.New(client, w, r.cfg.ProgramID, r.cfg.SlippageBps, r.logger)
		if err != nil {
			return err
		}
		r.engines[name] = eng
	}
	return nil
}

func (r *Runner) buildSimEngine() error {
	var st store.Store
	if r.cfg.PostgresURL != "" {
		pg, err := postgres.New(r.cfg.PostgresURL, r.logger)
		if err != nil {
			return fmt.Errorf("failed to open postgres store: %w", err)
		}
		if err := pg.RunMigrations(); err != nil {
			return fmt.Errorf("failed to migrate postgres store: %w", err)
		}
		st = pg
	} else {
		st = store.NewMemory()
	}

	r.simEng = sim.New(st, ledger.NewMemory(), r.logger)
	for name := range r.wallets {
		r.engines[name] = r.simEng
	}
	return nil
}

// bootstrapSim initializes the registry and funds the wallets so scripted
// scenarios can run against empty local state.
func (r *Runner) bootstrapSim(ctx context.Context) error {
	admin := r.resolveAccount(r.cfg.Admin)
	treasury := r.resolveAccount(r.cfg.Treasury)
	if admin == "" || treasury == "" {
		return errors.New("simulator mode needs admin and treasury (wallet name or address) in config")
	}

	err := r.simEng.InitializeRegistry(ctx, admin, treasury, r.cfg.PlatformFeeBps)
	if err != nil && !errors.Is(err, market.ErrAlreadyInitialized) {
		return err
	}

	for name, w := range r.wallets {
		if err := r.simEng.Fund(ctx, w.PublicKey.String(), r.cfg.SimFunding); err != nil {
			return fmt.Errorf("failed to fund wallet %s: %w", name, err)
		}
	}
	return nil
}

// resolveAccount maps a wallet name to its public key, or passes an address
// through untouched.
func (r *Runner) resolveAccount(nameOrAddress string) string {
	if w, ok := r.wallets[nameOrAddress]; ok {
		return w.PublicKey.String()
	}
	return nameOrAddress
}

// resolveMint maps a create-task name to the mint it produced, or passes an
// address through untouched.
func (r *Runner) resolveMint(nameOrMint string) string {
	r.mintsMu.RLock()
	defer r.mintsMu.RUnlock()
	if mint, ok := r.mints[nameOrMint]; ok {
		return mint
	}
	return nameOrMint
}

func (r *Runner) registerMint(taskName, mint string) {
	r.mintsMu.Lock()
	defer r.mintsMu.Unlock()
	r.mints[taskName] = mint
}

// Run executes the configured task file. Creations run first and in order so
// later tasks can reference their mints; the rest run concurrently under the
// configured worker limit. SIGINT/SIGTERM cancel the run.
func (r *Runner) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if r.simEng != nil {
		if err := r.bootstrapSim(ctx); err != nil {
			return err
		}
	}

	tasks, err := r.taskManager.LoadTasksYAML(r.cfg.TasksFile)
	if err != nil {
		return err
	}

	var creates, rest []*task.Task
	for _, t := range tasks {
		if t.Operation == task.OperationCreate {
			creates = append(creates, t)
		} else {
			rest = append(rest, t)
		}
	}

	for _, t := range creates {
		if err := r.execute(ctx, t); err != nil {
			return fmt.Errorf("task %q failed: %w", t.TaskName, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for _, t := range rest {
		g.Go(func() error {
			if err := r.execute(gctx, t); err != nil {
				return fmt.Errorf("task %q failed: %w", t.TaskName, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	r.logger.Info("All tasks finished", zap.Int("count", len(tasks)))
	return nil
}

func (r *Runner) execute(ctx context.Context, t *task.Task) error {
	w, ok := r.wallets[t.WalletName]
	if !ok {
		return fmt.Errorf("unknown wallet %q", t.WalletName)
	}
	eng := r.engines[t.WalletName]
	logger := r.logger.With(
		zap.String("task", t.TaskName),
		zap.String("engine", eng.Name()),
		zap.String("wallet", t.WalletName))

	switch t.Operation {
	case task.OperationCreate:
		factory, err := eng.CreateToken(ctx, market.CreateTokenParams{
			Artist:       w.PublicKey.String(),
			Name:         t.TokenName,
			Symbol:       t.Symbol,
			MetadataURI:  t.MetadataURI,
			CurveType:    t.CurveType,
			InitialPrice: t.InitialPrice,
			Delta:        t.Delta,
			ArtistFeeBps: t.ArtistFeeBps,
		})
		if err != nil {
			return err
		}
		r.registerMint(t.TaskName, factory.Mint)
		logger.Info("Token created",
			zap.String("mint", factory.Mint),
			zap.String("symbol", factory.Symbol))

	case task.OperationBuy:
		result, err := eng.BuyTokens(ctx, w.PublicKey.String(), r.resolveMint(t.Mint), t.Amount)
		if err != nil {
			return err
		}
		logger.Info("Purchase settled",
			zap.String("operation_id", result.OperationID),
			zap.Uint64("amount", result.Amount),
			zap.Uint64("total_cost", result.TotalCost),
			zap.Uint64("new_supply", result.NewSupply))

	case task.OperationInfo:
		info, err := eng.GetTokenInfo(ctx, r.resolveMint(t.Mint))
		if err != nil {
			return err
		}
		logger.Info("Token info",
			zap.String("mint", info.Factory.Mint),
			zap.String("curve", info.Factory.CurveType.String()),
			zap.Uint64("supply", info.Factory.CurrentSupply),
			zap.Uint64("next_unit_price", info.NextUnitPrice),
			zap.Bool("stale", info.Stale))

	case task.OperationOwnership:
		account := t.Account
		if account == "" {
			account = w.PublicKey.String()
		}
		balance, err := eng.CheckOwnership(ctx, r.resolveMint(t.Mint), r.resolveAccount(account))
		if err != nil {
			return err
		}
		logger.Info("Ownership checked",
			zap.String("account", r.resolveAccount(account)),
			zap.Uint64("balance", balance))

	default:
		return fmt.Errorf("unsupported operation %q", t.Operation)
	}
	return nil
}

// Shutdown flushes the logger.
func (r *Runner) Shutdown() {
	if err := r.logger.Sync(); err != nil && !os.IsNotExist(err) &&
		err.Error() != "sync /dev/stdout: invalid argument" &&
		err.Error() != "sync /dev/stderr: inappropriate ioctl for device" {
		fmt.Fprintf(os.Stderr, "failed to sync logger during shutdown: %v\n", err)
	}
}
