package main

import (
	"flag"
	"os"

	"github.com/louisbranch/chainlog/internal/platform/config"
	"github.com/louisbranch/chainlog/internal/tools/signingkey"
)

func main() {
	cfg, err := signingkey.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	if err := signingkey.Run(cfg, os.Stdout); err != nil {
		config.Exitf("generate key pair: %v", err)
	}
}
