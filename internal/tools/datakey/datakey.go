// Package datakey generates the symmetric key used to seal off-chain
// payloads.
package datakey

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/louisbranch/chainlog/internal/ledger/encryption"
)

// Config holds configuration for data key generation.
type Config struct {
	Bytes int
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{Bytes: encryption.KeySize}
	fs.IntVar(&cfg.Bytes, "bytes", cfg.Bytes, "number of random bytes (default: 32)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run generates the key and writes it to out as an env-var line.
func Run(cfg Config, out io.Writer, reader io.Reader) error {
	if cfg.Bytes != encryption.KeySize {
		return fmt.Errorf("data keys must be %d bytes", encryption.KeySize)
	}
	if out == nil {
		return errors.New("output is required")
	}
	if reader == nil {
		reader = rand.Reader
	}

	buf := make([]byte, cfg.Bytes)
	if _, err := io.ReadFull(reader, buf); err != nil {
		return fmt.Errorf("generate random bytes: %w", err)
	}
	_, err := fmt.Fprintf(out, "CHAINLOG_OFFCHAIN_DATA_KEY=%s\n", hex.EncodeToString(buf))
	return err
}
