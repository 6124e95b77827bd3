package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"github.com/louisbranch/chainlog/internal/platform/config"
	"github.com/louisbranch/chainlog/internal/tools/chainverify"
)

func main() {
	cfg, err := chainverify.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	err = chainverify.Run(context.Background(), cfg, os.Stdout)
	if errors.Is(err, chainverify.ErrInvalidChain) {
		os.Exit(1)
	}
	if err != nil {
		config.Exitf("verify chain: %v", err)
	}
}
