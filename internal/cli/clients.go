package cli

import (
	"log/slog"

	"github.com/example/firefly-kresus-sync/internal/adapters/firefly"
	"github.com/example/firefly-kresus-sync/internal/adapters/kresus"
	"github.com/example/firefly-kresus-sync/internal/infrastructure/config"
	"github.com/example/firefly-kresus-sync/internal/infrastructure/logging"
	"github.com/example/firefly-kresus-sync/internal/notify/discord"
)

// NewKresusClient creates the aggregator client from configuration.
func NewKresusClient(cfg *config.Config, logger *slog.Logger) (*kresus.Client, error) {
	return kresus.New(kresus.Config{
		APIURL:   cfg.Kresus.APIURL,
		Accounts: cfg.Kresus.Accounts,
	}, logging.ForSystem(logger, "kresus"))
}

// NewFireflyClient creates the ledger client from configuration.
func NewFireflyClient(cfg *config.Config, logger *slog.Logger) (*firefly.Client, error) {
	return firefly.New(firefly.Config{
		APIURL:   cfg.Firefly.APIURL,
		APIToken: cfg.GetAPIKey(cfg.Firefly.APIToken, "FIREFLY_API_TOKEN"),
	}, logging.ForSystem(logger, "firefly"))
}

// NewDiscordNotifier creates the approval channel from configuration. The
// caller owns the session and must Open and Close it.
func NewDiscordNotifier(cfg *config.Config, logger *slog.Logger) (*discord.Notifier, error) {
	return discord.New(discord.Config{
		Token:        cfg.GetAPIKey(cfg.Discord.Token, "DISCORD_TOKEN", "DISCORD_BOT_TOKEN"),
		ChannelID:    cfg.Discord.ChannelID,
		HistoryLimit: cfg.Discord.HistoryLimit,
	}, logging.ForSystem(logger, "discord"))
}
