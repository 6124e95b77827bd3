package chainverify

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"flag"
	"path/filepath"
	"strings"
	"testing"

	"github.com/louisbranch/chainlog/internal/ledger/chain"
	"github.com/louisbranch/chainlog/internal/ledger/storage"
	"github.com/louisbranch/chainlog/internal/ledger/storage/sqlite"
)

func TestParseConfigRequiresDBAndChain(t *testing.T) {
	cases := [][]string{
		{},
		{"-db", "ledger.db"},
		{"-chain", "orders"},
	}
	for _, args := range cases {
		fs := flag.NewFlagSet("chain-verify", flag.ContinueOnError)
		if _, err := ParseConfig(fs, args); err == nil {
			t.Fatalf("ParseConfig(%v) expected error", args)
		}
	}

	fs := flag.NewFlagSet("chain-verify", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-db", "ledger.db", "-chain", "orders", "-skip-signatures"})
	if err != nil {
		t.Fatalf("ParseConfig returned error: %v", err)
	}
	if !cfg.SkipSignatures {
		t.Fatal("expected SkipSignatures to be set")
	}
}

// seedChain persists an unsigned three-block chain and returns the db path
// and the id of the middle block.
func seedChain(t *testing.T, chainID string) (string, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	store, err := sqlite.Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if _, err := store.CreateChain(ctx, storage.ChainRecord{ID: chainID, Name: "orders", Active: true}); err != nil {
		t.Fatalf("create chain: %v", err)
	}

	c, err := chain.New(chainID, "orders", "", nil)
	if err != nil {
		t.Fatalf("new chain: %v", err)
	}
	if _, err := c.CreateGenesis(nil); err != nil {
		t.Fatalf("create genesis: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := c.AddBlock([]byte(`{"event":"order"}`), nil); err != nil {
			t.Fatalf("add block: %v", err)
		}
	}
	for _, b := range c.Blocks() {
		record := storage.BlockRecord{
			ID:             b.ID,
			ChainID:        chainID,
			Height:         b.Height,
			Timestamp:      b.Timestamp,
			PreviousDigest: b.PreviousDigest,
			CurrentDigest:  b.CurrentDigest,
			Signature:      b.Signature,
			Nonce:          b.Nonce,
			PayloadDigest:  b.PayloadDigest,
			Metadata:       b.Metadata,
		}
		if _, err := store.AppendBlock(ctx, record); err != nil {
			t.Fatalf("append block: %v", err)
		}
	}
	return path, c.Blocks()[1].ID
}

func TestRunValidChain(t *testing.T) {
	path, _ := seedChain(t, "orders-main")

	var out bytes.Buffer
	cfg := Config{DBPath: path, ChainID: "orders-main", SkipSignatures: true}
	if err := Run(context.Background(), cfg, &out); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !strings.Contains(out.String(), "VALID") {
		t.Fatalf("report %q missing VALID status", out.String())
	}
	if !strings.Contains(out.String(), "3 blocks") {
		t.Fatalf("report %q missing block count", out.String())
	}
}

func TestRunTamperedChain(t *testing.T) {
	path, blockID := seedChain(t, "orders-main")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec(`UPDATE blocks SET payload_digest = ? WHERE id = ?`, "arbitrary", blockID); err != nil {
		t.Fatalf("tamper block: %v", err)
	}
	db.Close()

	var out bytes.Buffer
	cfg := Config{DBPath: path, ChainID: "orders-main", SkipSignatures: true}
	err = Run(context.Background(), cfg, &out)
	if !errors.Is(err, ErrInvalidChain) {
		t.Fatalf("Run error = %v, want ErrInvalidChain", err)
	}
	if !strings.Contains(out.String(), "digest mismatch") {
		t.Fatalf("report %q missing digest mismatch error", out.String())
	}
	if !strings.Contains(out.String(), blockID) {
		t.Fatalf("report %q missing tampered block id", out.String())
	}
}

func TestRunUnknownChain(t *testing.T) {
	path, _ := seedChain(t, "orders-main")

	var out bytes.Buffer
	cfg := Config{DBPath: path, ChainID: "missing", SkipSignatures: true}
	if err := Run(context.Background(), cfg, &out); err == nil {
		t.Fatal("expected error for unknown chain")
	}
}
