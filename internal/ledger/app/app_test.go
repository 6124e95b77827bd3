package app

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/louisbranch/chainlog/internal/ledger/encryption"
	"github.com/louisbranch/chainlog/internal/ledger/integrity"
)

func TestLoadEnv(t *testing.T) {
	t.Setenv("CHAINLOG_DB_PATH", "/var/lib/chainlog/audit.db")
	t.Setenv("CHAINLOG_OFFCHAIN_DATA_KEY", "aa")
	t.Setenv("CHAINLOG_OFFCHAIN_PLAINTEXT", "false")

	cfg, err := LoadEnv()
	if err != nil {
		t.Fatalf("LoadEnv returned error: %v", err)
	}
	if cfg.DBPath != "/var/lib/chainlog/audit.db" {
		t.Fatalf("DBPath = %q", cfg.DBPath)
	}
	if cfg.DataKeyHex != "aa" {
		t.Fatalf("DataKeyHex = %q", cfg.DataKeyHex)
	}
	if cfg.OffchainPlaintext {
		t.Fatal("OffchainPlaintext should be false")
	}
}

func TestLoadEnvDefaultDBPath(t *testing.T) {
	t.Setenv("CHAINLOG_DB_PATH", "")
	os.Unsetenv("CHAINLOG_DB_PATH")

	cfg, err := LoadEnv()
	if err != nil {
		t.Fatalf("LoadEnv returned error: %v", err)
	}
	if cfg.DBPath != filepath.Join("data", "ledger.db") {
		t.Fatalf("DBPath = %q, want default", cfg.DBPath)
	}
}

func testDataKeyHex(t *testing.T) string {
	t.Helper()
	key, err := encryption.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return hex.EncodeToString(key)
}

func TestBuildRejectsAmbiguousOffchainConfig(t *testing.T) {
	cfg := Env{
		DBPath:            filepath.Join(t.TempDir(), "ledger.db"),
		DataKeyHex:        testDataKeyHex(t),
		OffchainPlaintext: true,
	}
	if _, err := Build(cfg); err == nil {
		t.Fatal("expected error when data key and plaintext opt-out are both set")
	}
}

func TestBuildRequiresOffchainChoice(t *testing.T) {
	cfg := Env{DBPath: filepath.Join(t.TempDir(), "ledger.db")}
	if _, err := Build(cfg); err == nil {
		t.Fatal("expected error when neither data key nor plaintext opt-out is set")
	}
}

func TestBuildRejectsBadDataKey(t *testing.T) {
	cases := map[string]string{
		"not hex":   "zz",
		"too short": "aabb",
	}
	for name, keyHex := range cases {
		cfg := Env{DBPath: filepath.Join(t.TempDir(), "ledger.db"), DataKeyHex: keyHex}
		if _, err := Build(cfg); err == nil {
			t.Fatalf("%s: expected error for data key %q", name, keyHex)
		}
	}
}

func TestBuildRejectsMissingSigningKey(t *testing.T) {
	cfg := Env{
		DBPath:         filepath.Join(t.TempDir(), "ledger.db"),
		SigningKeyPath: filepath.Join(t.TempDir(), "absent.pem"),
		DataKeyHex:     testDataKeyHex(t),
	}
	if _, err := Build(cfg); err == nil {
		t.Fatal("expected error for missing signing key file")
	}
}

func TestBuildEncryptedEndToEnd(t *testing.T) {
	dir := t.TempDir()

	keys, err := integrity.GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate key pair: %v", err)
	}
	privPEM, err := integrity.EncodePrivateKeyPEM(keys.Private)
	if err != nil {
		t.Fatalf("encode private key: %v", err)
	}
	keyPath := filepath.Join(dir, "signing.key.pem")
	if err := os.WriteFile(keyPath, privPEM, 0o600); err != nil {
		t.Fatalf("write signing key: %v", err)
	}

	cfg := Env{
		DBPath:         filepath.Join(dir, "ledger.db"),
		SigningKeyPath: keyPath,
		DataKeyHex:     testDataKeyHex(t),
	}
	a, err := Build(cfg)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	defer a.Close()

	if a.Keys == nil {
		t.Fatal("expected signing keys to be loaded")
	}

	ctx := context.Background()
	record, err := a.Service.CreateChain(ctx, "orders", "")
	if err != nil {
		t.Fatalf("create chain: %v", err)
	}
	if _, err := a.Service.InitChain(ctx, record.ID, []byte(`{"event":"init"}`)); err != nil {
		t.Fatalf("init chain: %v", err)
	}
	b, err := a.Service.AppendBlock(ctx, record.ID, []byte(`{"order_id":42}`), "order", nil)
	if err != nil {
		t.Fatalf("append block: %v", err)
	}
	if b.Signature == "" {
		t.Fatal("expected appended block to be signed")
	}

	entries, err := a.Service.OffchainData(ctx, b.ID)
	if err != nil {
		t.Fatalf("offchain data: %v", err)
	}
	if len(entries) != 1 || string(entries[0].Payload) != `{"order_id":42}` {
		t.Fatalf("unexpected offchain entries: %+v", entries)
	}
	if !entries[0].Record.Encrypted {
		t.Fatal("expected payload to be stored encrypted")
	}

	report, err := a.Service.ValidateChain(ctx, record.ID)
	if err != nil {
		t.Fatalf("validate chain: %v", err)
	}
	if !report.Valid {
		t.Fatalf("expected valid chain, errors: %v", report.Errors)
	}
}

func TestBuildPlaintextOptOut(t *testing.T) {
	cfg := Env{
		DBPath:            filepath.Join(t.TempDir(), "ledger.db"),
		OffchainPlaintext: true,
	}
	a, err := Build(cfg)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	defer a.Close()

	ctx := context.Background()
	record, err := a.Service.CreateChain(ctx, "orders", "")
	if err != nil {
		t.Fatalf("create chain: %v", err)
	}
	b, err := a.Service.InitChain(ctx, record.ID, []byte(`{"event":"init"}`))
	if err != nil {
		t.Fatalf("init chain: %v", err)
	}

	entries, err := a.Service.OffchainData(ctx, b.ID)
	if err != nil {
		t.Fatalf("offchain data: %v", err)
	}
	if len(entries) != 1 || entries[0].Record.Encrypted {
		t.Fatalf("expected one plaintext entry, got: %+v", entries)
	}
}
