package wallet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadKeys(t *testing.T) {
	_, err := New("w", "not-base58-!!!")
	assert.Error(t, err)

	// Valid base58 but wrong length.
	_, err = New("w", "3mJr7AoUXx2Wqd")
	assert.Error(t, err)
}

func TestGenerateRoundTrip(t *testing.T) {
	w, err := Generate("demo")
	require.NoError(t, err)
	assert.Equal(t, w.PrivateKey.PublicKey(), w.PublicKey)
	assert.Equal(t, w.PublicKey.String(), w.String())

	// Re-importing the exported key yields the same public key.
	again, err := New("demo", w.PrivateKey.String())
	require.NoError(t, err)
	assert.Equal(t, w.PublicKey, again.PublicKey)
}

func TestATACached(t *testing.T) {
	w, err := Generate("demo")
	require.NoError(t, err)

	mint := solana.NewWallet().PublicKey()
	a, err := w.ATA(mint)
	require.NoError(t, err)
	b, err := w.ATA(mint)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestLoadWallets(t *testing.T) {
	w1, err := Generate("artist")
	require.NoError(t, err)
	w2, err := Generate("listener")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "wallets.csv")
	content := "name,private_key\n" +
		"artist," + w1.PrivateKey.String() + "\n" +
		"listener," + w2.PrivateKey.String() + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	wallets, err := LoadWallets(path)
	require.NoError(t, err)
	require.Len(t, wallets, 2)
	assert.Equal(t, w1.PublicKey, wallets["artist"].PublicKey)
	assert.Equal(t, w2.PublicKey, wallets["listener"].PublicKey)
}

func TestLoadWalletsErrors(t *testing.T) {
	_, err := LoadWallets(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,private_key\n"), 0o600))
	_, err = LoadWallets(path)
	assert.Error(t, err)
}
