package main

import (
	"flag"
	"os"

	"github.com/louisbranch/chainlog/internal/platform/config"
	"github.com/louisbranch/chainlog/internal/tools/datakey"
)

func main() {
	cfg, err := datakey.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	if err := datakey.Run(cfg, os.Stdout, nil); err != nil {
		config.Exitf("generate key: %v", err)
	}
}
