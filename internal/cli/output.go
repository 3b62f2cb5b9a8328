package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/example/firefly-kresus-sync/internal/application/sync"
	"github.com/example/firefly-kresus-sync/internal/domain/ledger"
	"github.com/example/firefly-kresus-sync/internal/infrastructure/storage"
)

// PrintHeader prints the command header.
func PrintHeader(command string, apply bool) {
	mode := "REPORT ONLY"
	if apply {
		mode = "APPLY"
	}
	fmt.Printf("firefly-kresus-sync: %s (%s mode)\n", command, mode)
	fmt.Println(strings.Repeat("=", 60))
}

// PrintTransactions prints a numbered transaction list under a header.
// Nothing is printed for an empty list.
func PrintTransactions(header string, transactions []ledger.Transaction) {
	if len(transactions) == 0 {
		return
	}
	fmt.Printf("\n%s (%d):\n", header, len(transactions))
	for i, tx := range transactions {
		fmt.Printf("  [%d] %s\n", i+1, tx.String())
	}
}

// PrintCycleSummary prints the cycle result summary and, when run history is
// enabled, the all-time stats.
func PrintCycleSummary(result *sync.CycleResult, store storage.Repository) {
	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("Summary: Local=%d Remote=%d Transfers=%d Missing=%d Errors=%d\n",
		result.LocalCount,
		result.RemoteCount,
		result.TransfersCreated,
		result.MissingFound,
		result.RecordErrors)

	if store == nil {
		return
	}
	stats, err := store.GetStats()
	if err != nil || stats == nil || stats.TotalRuns == 0 {
		return
	}
	fmt.Printf("\nAll-Time: Runs=%d Completed=%d Failed=%d Committed=%d Amount=%.2f\n",
		stats.TotalRuns,
		stats.CompletedRuns,
		stats.FailedRuns,
		stats.TotalCommitted,
		stats.CommittedAmount)
}

// Confirm asks a yes/no question on stdin. Empty input and EOF count as no;
// anything else that is not an answer re-prompts.
func Confirm(prompt string) bool {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("%s [y/N]: ", prompt)
		if !scanner.Scan() {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "y", "yes":
			return true
		case "n", "no", "":
			return false
		}
	}
}
