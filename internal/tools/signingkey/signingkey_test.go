package signingkey

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/louisbranch/chainlog/internal/ledger/integrity"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("signing-key", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("ParseConfig returned error: %v", err)
	}
	if cfg.Dir != "" {
		t.Fatalf("Dir = %q, want empty", cfg.Dir)
	}
	if cfg.Name != "chainlog" {
		t.Fatalf("Name = %q, want chainlog", cfg.Name)
	}
}

func TestRunWritesStdout(t *testing.T) {
	var out bytes.Buffer
	if err := Run(Config{Name: "chainlog"}, &out); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	pair, err := integrity.ParseKeyPairPEM(out.Bytes())
	if err != nil {
		t.Fatalf("output is not a parsable key pair: %v", err)
	}
	if pair.Private == nil || pair.Public == nil {
		t.Fatal("expected both keys in output")
	}
}

func TestRunWritesFiles(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	if err := Run(Config{Dir: dir, Name: "audit"}, &out); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	priv, err := os.ReadFile(filepath.Join(dir, "audit.key.pem"))
	if err != nil {
		t.Fatalf("read private key: %v", err)
	}
	pub, err := os.ReadFile(filepath.Join(dir, "audit.pub.pem"))
	if err != nil {
		t.Fatalf("read public key: %v", err)
	}
	if _, err := integrity.ParseKeyPairPEM(priv); err != nil {
		t.Fatalf("private PEM is not parsable: %v", err)
	}
	if _, err := integrity.ParsePublicKeyPEM(pub); err != nil {
		t.Fatalf("public PEM is not parsable: %v", err)
	}
}

func TestRunRequiresName(t *testing.T) {
	var out bytes.Buffer
	if err := Run(Config{}, &out); err == nil {
		t.Fatal("expected error for empty name")
	}
}
