package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/example/firefly-kresus-sync/internal/cli"
)

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	flags := cli.ParseDaemonFlags()
	cfg, err := cli.LoadConfig(flags.ConfigFile)
	if err != nil {
		log.Fatalf("syncd: %v", err)
	}

	gin.SetMode(gin.ReleaseMode)

	if err := cli.RunDaemon(cfg, flags); err != nil {
		log.Fatalf("syncd: %v", err)
	}
}
