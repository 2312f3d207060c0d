// Package wallet manages the Solana keypairs the engine signs with. Keys are
// loaded from a CSV file of named base58 private keys; the engine never
// handles keys beyond signing locally assembled transactions.
package wallet

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// Wallet is a named Solana keypair with a derived-address cache.
type Wallet struct {
	Name       string
	PrivateKey solana.PrivateKey
	PublicKey  solana.PublicKey

	mu       sync.Mutex
	ataCache map[string]solana.PublicKey
}

// New builds a wallet from a base58 encoded 64-byte private key.
func New(name, privateKeyBase58 string) (*Wallet, error) {
	raw, err := base58.Decode(privateKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	if len(raw) != 64 {
		return nil, fmt.Errorf("invalid private key length: expected 64 bytes, got %d", len(raw))
	}

	privateKey := solana.PrivateKey(raw)
	return &Wallet{
		Name:       name,
		PrivateKey: privateKey,
		PublicKey:  privateKey.PublicKey(),
		ataCache:   make(map[string]solana.PublicKey),
	}, nil
}

// Generate creates a wallet with a fresh random keypair.
func Generate(name string) (*Wallet, error) {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate keypair: %w", err)
	}
	return &Wallet{
		Name:       name,
		PrivateKey: key,
		PublicKey:  key.PublicKey(),
		ataCache:   make(map[string]solana.PublicKey),
	}, nil
}

// LoadWallets reads a CSV file with header and rows of [name, private_key].
func LoadWallets(path string) (map[string]*Wallet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open wallets file: %w", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read wallets CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("wallets file has no entries")
	}

	wallets := make(map[string]*Wallet)
	for i, record := range records[1:] {
		if len(record) != 2 {
			return nil, fmt.Errorf("wallets row %d: expected 2 columns, got %d", i+2, len(record))
		}
		w, err := New(record[0], record[1])
		if err != nil {
			return nil, fmt.Errorf("wallets row %d (%s): %w", i+2, record[0], err)
		}
		wallets[w.Name] = w
	}
	return wallets, nil
}

// Sign signs a transaction with this wallet's key and any extra signers.
func (w *Wallet) Sign(tx *solana.Transaction, extra ...solana.PrivateKey) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.PublicKey) {
			return &w.PrivateKey
		}
		for i := range extra {
			if key.Equals(extra[i].PublicKey()) {
				return &extra[i]
			}
		}
		return nil
	})
	return err
}

// ATA returns the associated token account for mint, memoizing the
// derivation.
func (w *Wallet) ATA(mint solana.PublicKey) (solana.PublicKey, error) {
	key := mint.String()

	w.mu.Lock()
	defer w.mu.Unlock()
	if ata, ok := w.ataCache[key]; ok {
		return ata, nil
	}

	ata, _, err := solana.FindAssociatedTokenAddress(w.PublicKey, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive ATA for %s: %w", key, err)
	}
	w.ataCache[key] = ata
	return ata, nil
}

func (w *Wallet) String() string {
	return w.PublicKey.String()
}
