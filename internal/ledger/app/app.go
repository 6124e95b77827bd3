// Package app composes a ledger service from environment configuration.
//
// Whether off-chain payloads are encrypted at rest is decided here, once,
// at wiring time. A data key selects the encrypted vault; the plaintext
// opt-out must be explicit. Configuring neither, or both, fails startup.
package app

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/louisbranch/chainlog/internal/ledger/encryption"
	"github.com/louisbranch/chainlog/internal/ledger/integrity"
	"github.com/louisbranch/chainlog/internal/ledger/offchain"
	"github.com/louisbranch/chainlog/internal/ledger/service"
	"github.com/louisbranch/chainlog/internal/ledger/storage/sqlite"
	"github.com/louisbranch/chainlog/internal/platform/config"
)

// Env captures startup configuration for a ledger process.
type Env struct {
	// DBPath locates the sqlite database file.
	DBPath string `env:"CHAINLOG_DB_PATH" envDefault:"data/ledger.db"`
	// SigningKeyPath optionally points at a PKCS#8 PEM file; empty means
	// blocks are appended unsigned.
	SigningKeyPath string `env:"CHAINLOG_SIGNING_KEY_PATH"`
	// DataKeyHex is the hex-encoded 32-byte key sealing off-chain payloads.
	DataKeyHex string `env:"CHAINLOG_OFFCHAIN_DATA_KEY"`
	// OffchainPlaintext opts out of payload encryption. It is rejected when
	// a data key is also configured.
	OffchainPlaintext bool `env:"CHAINLOG_OFFCHAIN_PLAINTEXT"`
}

// LoadEnv reads the ledger configuration from environment variables.
func LoadEnv() (Env, error) {
	var cfg Env
	if err := config.ParseEnv(&cfg); err != nil {
		return Env{}, err
	}
	return cfg, nil
}

// App holds a wired ledger service and the store backing it.
type App struct {
	Service *service.Service
	Store   *sqlite.Store
	Keys    *integrity.KeyPair
}

// Build opens the store, loads keys, selects the vault variant, and wires
// the service.
func Build(cfg Env) (*App, error) {
	vaultFrom, err := vaultBuilder(cfg)
	if err != nil {
		return nil, err
	}

	var keys *integrity.KeyPair
	if cfg.SigningKeyPath != "" {
		pemBytes, err := os.ReadFile(cfg.SigningKeyPath)
		if err != nil {
			return nil, fmt.Errorf("read signing key: %w", err)
		}
		keys, err = integrity.ParseKeyPairPEM(pemBytes)
		if err != nil {
			return nil, fmt.Errorf("parse signing key: %w", err)
		}
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open ledger store: %w", err)
	}

	vault, err := vaultFrom(store)
	if err != nil {
		store.Close()
		return nil, err
	}

	svc, err := service.New(store, keys, vault)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &App{Service: svc, Store: store, Keys: keys}, nil
}

// Close releases the store.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	return a.Store.Close()
}

// vaultBuilder validates the off-chain configuration before any resource is
// opened, so misconfiguration fails fast.
func vaultBuilder(cfg Env) (func(*sqlite.Store) (offchain.Vault, error), error) {
	switch {
	case cfg.DataKeyHex != "" && cfg.OffchainPlaintext:
		return nil, fmt.Errorf("CHAINLOG_OFFCHAIN_DATA_KEY and CHAINLOG_OFFCHAIN_PLAINTEXT are mutually exclusive")
	case cfg.DataKeyHex != "":
		key, err := hex.DecodeString(cfg.DataKeyHex)
		if err != nil {
			return nil, fmt.Errorf("decode data key: %w", err)
		}
		encryptor, err := encryption.NewEncryptor(key)
		if err != nil {
			return nil, err
		}
		return func(store *sqlite.Store) (offchain.Vault, error) {
			return offchain.NewEncryptedVault(store, encryptor)
		}, nil
	case cfg.OffchainPlaintext:
		return func(store *sqlite.Store) (offchain.Vault, error) {
			return offchain.NewPlaintextVault(store)
		}, nil
	default:
		return nil, fmt.Errorf("offchain payload storage must be configured: set CHAINLOG_OFFCHAIN_DATA_KEY or opt out with CHAINLOG_OFFCHAIN_PLAINTEXT")
	}
}
