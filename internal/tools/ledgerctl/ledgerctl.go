// Package ledgerctl operates a ledger from the command line: chain
// creation, genesis, appends, and validation against an env-configured
// store.
package ledgerctl

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/louisbranch/chainlog/internal/ledger/app"
	"github.com/louisbranch/chainlog/internal/ledger/chain"
)

// ErrInvalidChain is returned by Run when a validate op finds failures.
// Callers map it to a non-zero exit without treating it as an operational
// error.
var ErrInvalidChain = errors.New("chain validation failed")

// Config holds one ledgerctl invocation.
type Config struct {
	// Env carries the store, signing key, and vault wiring.
	Env app.Env

	// Op selects the operation: create, init, append, validate, or list.
	Op             string
	ChainID        string
	Name           string
	Description    string
	Payload        string
	DataType       string
	SkipSignatures bool
}

// ParseConfig loads environment defaults and parses flags over them.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	envCfg, err := app.LoadEnv()
	if err != nil {
		return Config{}, err
	}
	cfg := Config{Env: envCfg}

	fs.StringVar(&cfg.Op, "op", "", "operation: create | init | append | validate | list")
	fs.StringVar(&cfg.Env.DBPath, "db", cfg.Env.DBPath, "path to the ledger sqlite database (default: CHAINLOG_DB_PATH)")
	fs.StringVar(&cfg.ChainID, "chain", "", "chain id (init, append, validate)")
	fs.StringVar(&cfg.Name, "name", "", "chain name (create)")
	fs.StringVar(&cfg.Description, "description", "", "chain description (create)")
	fs.StringVar(&cfg.Payload, "payload", "", "JSON payload (init, append)")
	fs.StringVar(&cfg.DataType, "data-type", "", "off-chain payload type (append)")
	fs.BoolVar(&cfg.SkipSignatures, "skip-signatures", false, "skip signature verification (validate)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if cfg.Op == "" {
		return Config{}, errors.New("-op is required")
	}
	return cfg, nil
}

// Run wires the ledger from cfg.Env and executes the selected operation.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	a, err := app.Build(cfg.Env)
	if err != nil {
		return err
	}
	defer a.Close()

	switch cfg.Op {
	case "create":
		return runCreate(ctx, a, cfg, out)
	case "init":
		return runInit(ctx, a, cfg, out)
	case "append":
		return runAppend(ctx, a, cfg, out)
	case "validate":
		return runValidate(ctx, a, cfg, out)
	case "list":
		return runList(ctx, a, out)
	default:
		return fmt.Errorf("unknown op %q", cfg.Op)
	}
}

func runCreate(ctx context.Context, a *app.App, cfg Config, out io.Writer) error {
	if cfg.Name == "" {
		return errors.New("-name is required for create")
	}
	record, err := a.Service.CreateChain(ctx, cfg.Name, cfg.Description)
	if err != nil {
		return fmt.Errorf("create chain: %w", err)
	}
	fmt.Fprintf(out, "created chain %s (%s)\n", record.ID, record.Name)
	return nil
}

func runInit(ctx context.Context, a *app.App, cfg Config, out io.Writer) error {
	if cfg.ChainID == "" {
		return errors.New("-chain is required for init")
	}
	b, err := a.Service.InitChain(ctx, cfg.ChainID, payloadBytes(cfg))
	if err != nil {
		return fmt.Errorf("init chain: %w", err)
	}
	fmt.Fprintf(out, "genesis block %s at height %d\n", b.ID, b.Height)
	return nil
}

func runAppend(ctx context.Context, a *app.App, cfg Config, out io.Writer) error {
	if cfg.ChainID == "" {
		return errors.New("-chain is required for append")
	}
	if cfg.Payload == "" {
		return errors.New("-payload is required for append")
	}
	b, err := a.Service.AppendBlock(ctx, cfg.ChainID, payloadBytes(cfg), cfg.DataType, nil)
	if err != nil {
		return fmt.Errorf("append block: %w", err)
	}
	fmt.Fprintf(out, "block %s at height %d\n", b.ID, b.Height)
	return nil
}

func runValidate(ctx context.Context, a *app.App, cfg Config, out io.Writer) error {
	if cfg.ChainID == "" {
		return errors.New("-chain is required for validate")
	}
	opts := []chain.ValidateOption{}
	if cfg.SkipSignatures || a.Keys == nil {
		opts = append(opts, chain.WithSkipSignatures())
	}
	report, err := a.Service.ValidateChain(ctx, cfg.ChainID, opts...)
	if err != nil {
		return fmt.Errorf("validate chain: %w", err)
	}

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
	if !report.Valid {
		return ErrInvalidChain
	}
	return nil
}

func runList(ctx context.Context, a *app.App, out io.Writer) error {
	records, err := a.Service.ListChains(ctx)
	if err != nil {
		return fmt.Errorf("list chains: %w", err)
	}
	for _, record := range records {
		state := "active"
		if !record.Active {
			state = "inactive"
		}
		fmt.Fprintf(out, "%s\t%s\t%s\n", record.ID, record.Name, state)
	}
	return nil
}

func payloadBytes(cfg Config) []byte {
	if cfg.Payload == "" {
		return nil
	}
	return []byte(cfg.Payload)
}
