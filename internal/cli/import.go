package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/example/firefly-kresus-sync/internal/adapters/csvfile"
	"github.com/example/firefly-kresus-sync/internal/application/sync"
	"github.com/example/firefly-kresus-sync/internal/domain/ledger"
	"github.com/example/firefly-kresus-sync/internal/infrastructure/config"
	"github.com/example/firefly-kresus-sync/internal/infrastructure/logging"
)

// RunImport reconciles a transaction sheet against the ledger. Rows the
// ledger has never seen are added; rows that drifted from their ledger
// record are repaired. With -apply the plan is written after one batch
// confirmation; -yes skips the prompt.
func RunImport(cfg *config.Config, flags *ImportFlags) error {
	logger := logging.NewLogger(cfg.Observability.Logging)

	since, err := cfg.Sync.StartTime()
	if err != nil {
		return err
	}
	ledgerClient, err := NewFireflyClient(cfg, logger)
	if err != nil {
		return err
	}

	PrintHeader("ledger-import", flags.Apply)

	accounts, err := readAccountSheet(flags.Accounts)
	if err != nil {
		return err
	}
	local, err := readTransactionSheet(flags.Transactions, accounts)
	if err != nil {
		return err
	}
	fmt.Printf("Sheet: %d rows, %d accounts\n", len(local.Transactions), len(accounts))
	for _, rowErr := range local.RecordErrors {
		fmt.Printf("  bad row: %v\n", rowErr)
	}

	ctx := context.Background()
	remote, err := ledgerClient.ListTransactions(ctx, since, time.Time{})
	if err != nil {
		return err
	}

	importer := sync.NewImporter(ledgerClient, logger)
	plan := importer.Plan(local.Transactions, remote)

	PrintTransactions("Missing from the ledger", plan.Missing)
	PrintTransactions("Drifted, update in place", plan.Updates)
	PrintTransactions("Drifted across types, recreate", plan.Recreates)

	if plan.Empty() {
		fmt.Println("\nLedger matches the sheet.")
		return nil
	}
	if !flags.Apply {
		fmt.Println("\nRe-run with -apply to write this plan.")
		return nil
	}

	prompt := fmt.Sprintf("\nApply %d adds, %d updates, %d recreates?",
		len(plan.Missing), len(plan.Updates), len(plan.Recreates))
	if !flags.Yes && !Confirm(prompt) {
		fmt.Println("Skipped.")
		return nil
	}

	result := importer.Apply(ctx, plan)
	fmt.Printf("\nApplied: Added=%d Updated=%d Recreated=%d Errors=%d\n",
		len(result.Added), result.Updated, len(result.Recreated), len(result.Errors))
	for _, applyErr := range result.Errors {
		fmt.Printf("  error: %v\n", applyErr)
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("import finished with %d errors", len(result.Errors))
	}
	return nil
}

func readAccountSheet(path string) ([]ledger.Account, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return csvfile.ReadAccounts(f)
}

func readTransactionSheet(path string, accounts []ledger.Account) (*csvfile.Import, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return csvfile.ReadTransactions(f, accounts)
}
