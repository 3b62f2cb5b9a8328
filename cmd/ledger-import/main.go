package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/example/firefly-kresus-sync/internal/cli"
)

func main() {
	_ = godotenv.Load()

	flags := cli.ParseImportFlags()
	cfg, err := cli.LoadConfig(flags.ConfigFile)
	if err != nil {
		log.Fatalf("ledger-import: %v", err)
	}

	if err := cli.RunImport(cfg, flags); err != nil {
		log.Fatalf("ledger-import: %v", err)
	}
}
