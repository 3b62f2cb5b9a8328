package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/example/firefly-kresus-sync/internal/adapters/csvfile"
	"github.com/example/firefly-kresus-sync/internal/infrastructure/config"
	"github.com/example/firefly-kresus-sync/internal/infrastructure/logging"
)

// RunExport dumps the ledger to CSV sheets readable by ledger-import.
func RunExport(cfg *config.Config, flags *ExportFlags) error {
	logger := logging.NewLogger(cfg.Observability.Logging)

	since, err := cfg.Sync.StartTime()
	if err != nil {
		return err
	}
	ledgerClient, err := NewFireflyClient(cfg, logger)
	if err != nil {
		return err
	}

	ctx := context.Background()

	transactions, err := ledgerClient.ListTransactions(ctx, since, time.Time{})
	if err != nil {
		return err
	}
	if err := writeSheet(flags.Transactions, func(w io.Writer) error {
		return csvfile.WriteTransactions(w, transactions)
	}); err != nil {
		return err
	}
	fmt.Printf("Wrote %d transactions to %s\n", len(transactions), flags.Transactions)

	if flags.Accounts == "" {
		return nil
	}
	accounts, err := ledgerClient.ListAccounts(ctx)
	if err != nil {
		return err
	}
	if err := writeSheet(flags.Accounts, func(w io.Writer) error {
		return csvfile.WriteAccounts(w, accounts)
	}); err != nil {
		return err
	}
	fmt.Printf("Wrote %d accounts to %s\n", len(accounts), flags.Accounts)
	return nil
}

func writeSheet(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
