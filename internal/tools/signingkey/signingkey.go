// Package signingkey generates RSA key pairs for block signing.
package signingkey

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/louisbranch/chainlog/internal/ledger/integrity"
)

// Config holds configuration for signing key generation.
type Config struct {
	// Dir is where the PEM files are written. Empty means stdout.
	Dir string
	// Name is the base file name for the key pair.
	Name string
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{Name: "chainlog"}
	fs.StringVar(&cfg.Dir, "dir", cfg.Dir, "directory to write PEM files (default: stdout)")
	fs.StringVar(&cfg.Name, "name", cfg.Name, "base file name for the key pair")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run generates a key pair and writes it out as PEM.
func Run(cfg Config, out io.Writer) error {
	if cfg.Name == "" {
		return errors.New("key name is required")
	}
	if cfg.Dir == "" && out == nil {
		return errors.New("output is required")
	}

	keys, err := integrity.GenerateKeyPair()
	if err != nil {
		return fmt.Errorf("generate key pair: %w", err)
	}
	privPEM, err := integrity.EncodePrivateKeyPEM(keys.Private)
	if err != nil {
		return fmt.Errorf("encode private key: %w", err)
	}
	pubPEM, err := integrity.EncodePublicKeyPEM(keys.Public)
	if err != nil {
		return fmt.Errorf("encode public key: %w", err)
	}

	if cfg.Dir == "" {
		if _, err := out.Write(privPEM); err != nil {
			return err
		}
		_, err := out.Write(pubPEM)
		return err
	}

	privPath := filepath.Join(cfg.Dir, cfg.Name+".key.pem")
	pubPath := filepath.Join(cfg.Dir, cfg.Name+".pub.pem")
	if err := os.WriteFile(privPath, privPEM, 0o600); err != nil {
		return fmt.Errorf("write private key: %w", err)
	}
	if err := os.WriteFile(pubPath, pubPEM, 0o644); err != nil {
		return fmt.Errorf("write public key: %w", err)
	}
	if out != nil {
		fmt.Fprintf(out, "wrote %s\nwrote %s\n", privPath, pubPath)
	}
	return nil
}
