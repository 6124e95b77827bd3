// Package chainverify rehydrates a persisted chain and runs integrity
// validation against it.
package chainverify

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/louisbranch/chainlog/internal/ledger/block"
	"github.com/louisbranch/chainlog/internal/ledger/chain"
	"github.com/louisbranch/chainlog/internal/ledger/integrity"
	"github.com/louisbranch/chainlog/internal/ledger/storage"
	"github.com/louisbranch/chainlog/internal/ledger/storage/sqlite"
)

// ErrInvalidChain is returned by Run when validation finds failures. Callers
// map it to a non-zero exit without treating it as an operational error.
var ErrInvalidChain = errors.New("chain validation failed")

// Config holds configuration for a verification run.
type Config struct {
	// DBPath is the sqlite database file holding the ledger.
	DBPath string
	// ChainID selects the chain to verify.
	ChainID string
	// PublicKeyPath optionally points at a PKIX PEM file used to check
	// block signatures.
	PublicKeyPath string
	// SkipSignatures runs structural checks only.
	SkipSignatures bool
	// Parallelism bounds concurrent block checks. Zero means sequential.
	Parallelism int
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "path to the ledger sqlite database")
	fs.StringVar(&cfg.ChainID, "chain", cfg.ChainID, "id of the chain to verify")
	fs.StringVar(&cfg.PublicKeyPath, "pubkey", cfg.PublicKeyPath, "PEM file with the signing public key")
	fs.BoolVar(&cfg.SkipSignatures, "skip-signatures", cfg.SkipSignatures, "skip signature verification")
	fs.IntVar(&cfg.Parallelism, "parallelism", cfg.Parallelism, "concurrent block checks (0 = sequential)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if cfg.DBPath == "" {
		return Config{}, errors.New("-db is required")
	}
	if cfg.ChainID == "" {
		return Config{}, errors.New("-chain is required")
	}
	return cfg, nil
}

// Run loads the chain from storage, validates it, and writes a report to
// out. A structurally broken chain returns ErrInvalidChain.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open ledger store: %w", err)
	}
	defer store.Close()

	var keys *integrity.KeyPair
	if cfg.PublicKeyPath != "" {
		pemBytes, err := os.ReadFile(cfg.PublicKeyPath)
		if err != nil {
			return fmt.Errorf("read public key: %w", err)
		}
		public, err := integrity.ParsePublicKeyPEM(pemBytes)
		if err != nil {
			return fmt.Errorf("parse public key: %w", err)
		}
		keys = &integrity.KeyPair{Public: public}
	}

	c, err := loadChain(ctx, store, cfg.ChainID, keys)
	if err != nil {
		return err
	}

	opts := []chain.ValidateOption{}
	if cfg.SkipSignatures || keys == nil {
		opts = append(opts, chain.WithSkipSignatures())
	}
	if cfg.Parallelism > 0 {
		opts = append(opts, chain.WithParallelism(cfg.Parallelism))
	}
	report := c.Validate(ctx, opts...)

	writeReport(out, report)
	if !report.Valid {
		return ErrInvalidChain
	}
	return nil
}

func loadChain(ctx context.Context, store storage.Store, chainID string, keys *integrity.KeyPair) (*chain.Chain, error) {
	record, err := store.GetChain(ctx, chainID)
	if err != nil {
		return nil, fmt.Errorf("load chain %s: %w", chainID, err)
	}
	rows, err := store.ListBlocks(ctx, chainID)
	if err != nil {
		return nil, fmt.Errorf("load blocks for chain %s: %w", chainID, err)
	}
	blocks := make([]*block.Block, 0, len(rows))
	for _, row := range rows {
		blocks = append(blocks, block.FromStored(row.ID, row.Height, row.Timestamp,
			row.PreviousDigest, row.CurrentDigest, row.Signature, row.Nonce,
			row.PayloadDigest, row.Metadata))
	}
	return chain.FromStored(record.ID, record.Name, record.Description, record.Active, keys, blocks), nil
}

func writeReport(out io.Writer, report *chain.Report) {
	status := "VALID"
	if !report.Valid {
		status = "INVALID"
	}
	fmt.Fprintf(out, "chain %s (%s): %s, %d blocks\n", report.ChainID, report.ChainName, status, report.TotalBlocks)
	for _, msg := range report.Errors {
		fmt.Fprintf(out, "  error: %s\n", msg)
	}
	if len(report.InvalidBlockIDs) > 0 {
		fmt.Fprintf(out, "  invalid blocks: %s\n", strings.Join(report.InvalidBlockIDs, ", "))
	}
}
