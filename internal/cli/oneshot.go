package cli

import (
	"context"
	"fmt"

	"github.com/example/firefly-kresus-sync/internal/application/sync"
	"github.com/example/firefly-kresus-sync/internal/domain/ledger"
	"github.com/example/firefly-kresus-sync/internal/infrastructure/config"
	"github.com/example/firefly-kresus-sync/internal/infrastructure/logging"
)

// RunOneShot fetches both sides once, reconciles, and reports what the
// ledger is missing. With -apply the records are written after one batch
// confirmation; -yes skips the prompt.
func RunOneShot(cfg *config.Config, flags *OneShotFlags) error {
	loggingCfg := cfg.Observability.Logging
	if flags.Verbose {
		loggingCfg.Level = "debug"
	}
	logger := logging.NewLogger(loggingCfg)

	since, err := cfg.Sync.StartTime()
	if err != nil {
		return err
	}

	aggregator, err := NewKresusClient(cfg, logger)
	if err != nil {
		return err
	}
	ledgerClient, err := NewFireflyClient(cfg, logger)
	if err != nil {
		return err
	}

	PrintHeader("sync", flags.Apply)

	ctx := context.Background()
	orchestrator := sync.NewOrchestrator(aggregator, ledgerClient, nil, nil, sync.Options{Since: since}, logger)
	result, err := orchestrator.RunCycle(ctx)
	if err != nil {
		return err
	}

	missing := pendingTransactions(orchestrator.Snapshot())
	PrintTransactions("Missing from the ledger", missing)
	PrintCycleSummary(result, nil)

	if len(missing) == 0 {
		fmt.Println("\nLedger is up to date.")
		return nil
	}
	if !flags.Apply {
		fmt.Println("\nRe-run with -apply to write these records.")
		return nil
	}

	prompt := fmt.Sprintf("\nAdd %d missing records to the ledger?", len(missing))
	if !flags.Yes && !Confirm(prompt) {
		fmt.Println("Skipped.")
		return nil
	}

	added := 0
	for _, tx := range missing {
		stored, err := ledgerClient.StoreTransaction(ctx, tx)
		if err != nil {
			fmt.Printf("  failed %s: %v\n", tx.String(), err)
			continue
		}
		fmt.Printf("  added %s as id %s\n", tx.String(), stored.ID)
		added++
	}
	fmt.Printf("\nAdded %d of %d missing records.\n", added, len(missing))
	return nil
}

// pendingTransactions flattens a snapshot into its date-ordered records.
func pendingTransactions(snap *sync.Snapshot) []ledger.Transaction {
	if snap == nil {
		return nil
	}
	out := make([]ledger.Transaction, 0, len(snap.Pending))
	for _, fp := range snap.Fingerprints() {
		out = append(out, snap.Pending[fp])
	}
	return out
}
