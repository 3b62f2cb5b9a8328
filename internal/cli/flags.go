package cli

import (
	"flag"

	"github.com/example/firefly-kresus-sync/internal/infrastructure/config"
)

// DaemonFlags holds the CLI flags for the syncd daemon.
type DaemonFlags struct {
	ConfigFile string
	Verbose    bool
}

// ParseDaemonFlags parses command line flags for the daemon.
func ParseDaemonFlags() *DaemonFlags {
	flags := &DaemonFlags{}
	flag.StringVar(&flags.ConfigFile, "config", "", "Configuration file path")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Verbose output")
	flag.Parse()
	return flags
}

// OneShotFlags holds the CLI flags for the one-shot sync command.
type OneShotFlags struct {
	ConfigFile string
	Apply      bool
	Yes        bool
	Verbose    bool
}

// ParseOneShotFlags parses command line flags for the one-shot sync.
func ParseOneShotFlags() *OneShotFlags {
	flags := &OneShotFlags{}
	flag.StringVar(&flags.ConfigFile, "config", "", "Configuration file path")
	flag.BoolVar(&flags.Apply, "apply", false, "Write missing records to the ledger")
	flag.BoolVar(&flags.Yes, "yes", false, "Skip confirmation prompts")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Verbose output")
	flag.Parse()
	return flags
}

// ExportFlags holds the CLI flags for the ledger-export command.
type ExportFlags struct {
	ConfigFile   string
	Transactions string
	Accounts     string
}

// ParseExportFlags parses command line flags for the CSV export.
func ParseExportFlags() *ExportFlags {
	flags := &ExportFlags{}
	flag.StringVar(&flags.ConfigFile, "config", "", "Configuration file path")
	flag.StringVar(&flags.Transactions, "transactions", "transactions.csv", "Transaction sheet output path")
	flag.StringVar(&flags.Accounts, "accounts", "", "Account sheet output path (empty = skip)")
	flag.Parse()
	return flags
}

// ImportFlags holds the CLI flags for the ledger-import command.
type ImportFlags struct {
	ConfigFile   string
	Transactions string
	Accounts     string
	Apply        bool
	Yes          bool
}

// ParseImportFlags parses command line flags for the spreadsheet import.
func ParseImportFlags() *ImportFlags {
	flags := &ImportFlags{}
	flag.StringVar(&flags.ConfigFile, "config", "", "Configuration file path")
	flag.StringVar(&flags.Transactions, "transactions", "transactions.csv", "Transaction sheet path")
	flag.StringVar(&flags.Accounts, "accounts", "accounts.csv", "Account sheet path")
	flag.BoolVar(&flags.Apply, "apply", false, "Write the plan to the ledger")
	flag.BoolVar(&flags.Yes, "yes", false, "Skip confirmation prompts")
	flag.Parse()
	return flags
}

// LoadConfig loads the given config file, or falls back to config.yaml and
// the environment when no file is specified.
func LoadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadOrEnv(), nil
}
