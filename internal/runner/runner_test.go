package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/soundmint-labs/trackmint/internal/config"
	"github.com/soundmint-labs/trackmint/internal/wallet"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func simConfig(t *testing.T, tasks string) *config.Config {
	t.Helper()
	dir := t.TempDir()

	artist, err := wallet.Generate("artist")
	require.NoError(t, err)
	listener, err := wallet.Generate("listener")
	require.NoError(t, err)
	treasury, err := wallet.Generate("treasury")
	require.NoError(t, err)

	walletsPath := writeFile(t, dir, "wallets.csv",
		"name,private_key\n"+
			"artist,"+artist.PrivateKey.String()+"\n"+
			"listener,"+listener.PrivateKey.String()+"\n"+
			"treasury,"+treasury.PrivateKey.String()+"\n")
	tasksPath := writeFile(t, dir, "tasks.yml", tasks)

	return &config.Config{
		EngineMode:     config.ModeSimulator,
		WalletsFile:    walletsPath,
		TasksFile:      tasksPath,
		Admin:          "artist",
		Treasury:       "treasury",
		PlatformFeeBps: 100,
		Workers:        4,
		SimFunding:     10_000_000_000,
	}
}

func TestRunEndToEnd(t *testing.T) {
	cfg := simConfig(t, `tasks:
  - task_name: launch-track
    wallet: artist
    operation: create
    name: Midnight Drive
    symbol: DRIVE
    metadata_uri: ipfs://QmTrack
    curve: linear
    initial_price: 10000000
    delta: 1000000
    artist_fee_bps: 500
  - task_name: first-buy
    wallet: listener
    operation: buy
    mint: launch-track
    amount: 3
  - task_name: check-info
    wallet: listener
    operation: info
    mint: launch-track
  - task_name: check-holdings
    wallet: listener
    operation: ownership
    mint: launch-track
`)

	r, err := New(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, r.Run(context.Background()))

	// The create task registered its mint under the task name.
	mint := r.resolveMint("launch-track")
	assert.NotEqual(t, "launch-track", mint)

	info, err := r.simEng.GetTokenInfo(context.Background(), mint)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), info.Factory.CurrentSupply)
	assert.Equal(t, uint64(13_000_000), info.NextUnitPrice)
}

func TestRunFailsOnUnknownWallet(t *testing.T) {
	cfg := simConfig(t, `tasks:
  - task_name: launch
    wallet: nobody
    operation: create
    name: Track
    symbol: TRK
    metadata_uri: ipfs://x
    initial_price: 1
`)

	r, err := New(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Error(t, r.Run(context.Background()))
}

func TestRunFailsOnUnknownMint(t *testing.T) {
	cfg := simConfig(t, `tasks:
  - task_name: buy-nothing
    wallet: listener
    operation: buy
    mint: not-registered
    amount: 1
`)

	r, err := New(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Error(t, r.Run(context.Background()))
}

func TestResolveAccount(t *testing.T) {
	cfg := simConfig(t, "tasks:\n  - task_name: t\n    wallet: artist\n    operation: info\n    mint: m\n")
	r, err := New(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Equal(t, r.wallets["artist"].PublicKey.String(), r.resolveAccount("artist"))
	assert.Equal(t, "SomeRawAddress", r.resolveAccount("SomeRawAddress"))
}
