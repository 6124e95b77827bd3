package ledgerctl

import (
	"bytes"
	"context"
	"flag"
	"path/filepath"
	"strings"
	"testing"
)

func testEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CHAINLOG_DB_PATH", filepath.Join(t.TempDir(), "ledger.db"))
	t.Setenv("CHAINLOG_SIGNING_KEY_PATH", "")
	t.Setenv("CHAINLOG_OFFCHAIN_DATA_KEY", "")
	t.Setenv("CHAINLOG_OFFCHAIN_PLAINTEXT", "true")
}

func parseArgs(t *testing.T, args ...string) Config {
	t.Helper()
	fs := flag.NewFlagSet("ledgerctl", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, args)
	if err != nil {
		t.Fatalf("ParseConfig(%v) returned error: %v", args, err)
	}
	return cfg
}

func TestParseConfigBlendsEnvAndFlags(t *testing.T) {
	testEnv(t)

	cfg := parseArgs(t, "-op", "list")
	if cfg.Env.DBPath == "" {
		t.Fatal("expected DBPath from env")
	}
	if !cfg.Env.OffchainPlaintext {
		t.Fatal("expected plaintext opt-out from env")
	}

	override := parseArgs(t, "-op", "list", "-db", "other.db")
	if override.Env.DBPath != "other.db" {
		t.Fatalf("DBPath = %q, want flag override", override.Env.DBPath)
	}
}

func TestParseConfigRequiresOp(t *testing.T) {
	testEnv(t)
	fs := flag.NewFlagSet("ledgerctl", flag.ContinueOnError)
	if _, err := ParseConfig(fs, nil); err == nil {
		t.Fatal("expected error for missing -op")
	}
}

func TestRunUnknownOp(t *testing.T) {
	testEnv(t)
	var out bytes.Buffer
	cfg := parseArgs(t, "-op", "compact")
	if err := Run(context.Background(), cfg, &out); err == nil {
		t.Fatal("expected error for unknown op")
	}
}

func TestRunChainLifecycle(t *testing.T) {
	testEnv(t)
	ctx := context.Background()

	var out bytes.Buffer
	if err := Run(ctx, parseArgs(t, "-op", "create", "-name", "orders"), &out); err != nil {
		t.Fatalf("create: %v", err)
	}
	fields := strings.Fields(out.String())
	if len(fields) < 3 {
		t.Fatalf("unexpected create output %q", out.String())
	}
	chainID := fields[2]

	out.Reset()
	if err := Run(ctx, parseArgs(t, "-op", "init", "-chain", chainID, "-payload", `{"event":"init"}`), &out); err != nil {
		t.Fatalf("init: %v", err)
	}
	if !strings.Contains(out.String(), "height 0") {
		t.Fatalf("init output %q missing genesis height", out.String())
	}

	out.Reset()
	if err := Run(ctx, parseArgs(t, "-op", "append", "-chain", chainID, "-payload", `{"order_id":42}`, "-data-type", "order"), &out); err != nil {
		t.Fatalf("append: %v", err)
	}
	if !strings.Contains(out.String(), "height 1") {
		t.Fatalf("append output %q missing height", out.String())
	}

	out.Reset()
	if err := Run(ctx, parseArgs(t, "-op", "validate", "-chain", chainID), &out); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out.String(), "VALID") || !strings.Contains(out.String(), "2 blocks") {
		t.Fatalf("unexpected validate output %q", out.String())
	}

	out.Reset()
	if err := Run(ctx, parseArgs(t, "-op", "list"), &out); err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out.String(), chainID) || !strings.Contains(out.String(), "orders") {
		t.Fatalf("unexpected list output %q", out.String())
	}
}

func TestRunAppendRequiresPayload(t *testing.T) {
	testEnv(t)
	var out bytes.Buffer
	cfg := parseArgs(t, "-op", "append", "-chain", "whatever")
	if err := Run(context.Background(), cfg, &out); err == nil {
		t.Fatal("expected error for missing payload")
	}
}
