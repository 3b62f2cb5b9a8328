package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/example/firefly-kresus-sync/internal/cli"
)

func main() {
	_ = godotenv.Load()

	flags := cli.ParseOneShotFlags()
	cfg, err := cli.LoadConfig(flags.ConfigFile)
	if err != nil {
		log.Fatalf("sync: %v", err)
	}

	if err := cli.RunOneShot(cfg, flags); err != nil {
		log.Fatalf("sync: %v", err)
	}
}
