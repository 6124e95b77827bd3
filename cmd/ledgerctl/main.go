package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"github.com/louisbranch/chainlog/internal/platform/config"
	"github.com/louisbranch/chainlog/internal/tools/ledgerctl"
)

func main() {
	cfg, err := ledgerctl.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	err = ledgerctl.Run(context.Background(), cfg, os.Stdout)
	if errors.Is(err, ledgerctl.ErrInvalidChain) {
		os.Exit(1)
	}
	if err != nil {
		config.Exitf("run %s: %v", cfg.Op, err)
	}
}
