package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/example/firefly-kresus-sync/internal/cli"
)

func main() {
	_ = godotenv.Load()

	flags := cli.ParseExportFlags()
	cfg, err := cli.LoadConfig(flags.ConfigFile)
	if err != nil {
		log.Fatalf("ledger-export: %v", err)
	}

	if err := cli.RunExport(cfg, flags); err != nil {
		log.Fatalf("ledger-export: %v", err)
	}
}
