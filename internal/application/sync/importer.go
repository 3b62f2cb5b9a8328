package sync

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/example/firefly-kresus-sync/internal/domain/ledger"
)

// Importer pushes a spreadsheet-origin transaction list into the ledger.
// Rows without a ledger id are candidates for creation when no remote
// record approximately matches them; rows with an id are compared exactly
// against the same-id remote record and repaired on drift.
type Importer struct {
	ledger Ledger
	logger *slog.Logger
}

// NewImporter creates an importer writing through ledgerClient.
func NewImporter(ledgerClient Ledger, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Importer{ledger: ledgerClient, logger: logger}
}

// ImportPlan is the set of writes an import would perform.
type ImportPlan struct {
	// Missing are id-less rows with no approximate ledger counterpart.
	Missing []ledger.Transaction

	// Updates are id-bearing rows that drifted from their ledger record
	// without changing type. Repaired in place.
	Updates []ledger.Transaction

	// Recreates are id-bearing rows whose type changed. The ledger rejects
	// cross-type updates, so the record is deleted and created anew.
	Recreates []ledger.Transaction
}

// Empty reports whether the plan would write nothing.
func (p *ImportPlan) Empty() bool {
	return len(p.Missing) == 0 && len(p.Updates) == 0 && len(p.Recreates) == 0
}

// ImportResult summarizes the writes an Apply performed.
type ImportResult struct {
	Added     []ledger.Transaction
	Updated   int
	Recreated []ledger.Transaction
	Errors    []error
}

// Plan compares the spreadsheet rows against the ledger and returns what
// would change. Pure; nothing is written.
func (i *Importer) Plan(local, remote []ledger.Transaction) *ImportPlan {
	plan := &ImportPlan{}

	remoteByID := make(map[string]ledger.Transaction, len(remote))
	for _, r := range remote {
		if r.Persisted() {
			remoteByID[r.ID] = r
		}
	}

	for _, l := range local {
		if !l.Persisted() {
			if !hasApproximateMatch(l, remote) {
				plan.Missing = append(plan.Missing, l)
			}
			continue
		}

		r, ok := remoteByID[l.ID]
		if !ok {
			i.logger.Warn("Row references an unknown ledger id, skipping",
				"ledger_id", l.ID,
				"date", l.DateString(),
				"description", l.Description,
			)
			continue
		}

		if l.Equal(r) {
			continue
		}

		i.logger.Info("Detected drift on ledger record",
			"ledger_id", l.ID,
			"date", l.DateString(),
			"type_changed", l.Type != r.Type,
		)

		if l.Type == r.Type {
			plan.Updates = append(plan.Updates, l)
		} else {
			plan.Recreates = append(plan.Recreates, l)
		}
	}

	return plan
}

// Apply performs the plan's writes. Per-record failures are collected and
// the rest of the batch continues.
func (i *Importer) Apply(ctx context.Context, plan *ImportPlan) *ImportResult {
	result := &ImportResult{}

	for _, tx := range plan.Missing {
		stored, err := i.ledger.StoreTransaction(ctx, tx)
		if err != nil {
			i.logger.Error("Failed to add transaction",
				"date", tx.DateString(), "amount", tx.Amount, "error", err)
			result.Errors = append(result.Errors, fmt.Errorf("add %s %.2f: %w", tx.DateString(), tx.Amount, err))
			continue
		}
		result.Added = append(result.Added, stored)
	}

	for _, tx := range plan.Updates {
		stored, err := i.ledger.UpdateTransaction(ctx, tx)
		if err != nil {
			i.logger.Error("Failed to update transaction",
				"ledger_id", tx.ID, "error", err)
			result.Errors = append(result.Errors, fmt.Errorf("update %s: %w", tx.ID, err))
			continue
		}
		if !stored.Equal(tx) {
			i.logger.Error("Ledger record differs after update",
				"ledger_id", tx.ID, "stored", stored.String(), "wanted", tx.String())
		}
		result.Updated++
	}

	for _, tx := range plan.Recreates {
		if err := i.ledger.DeleteTransaction(ctx, tx.ID); err != nil {
			i.logger.Error("Failed to delete transaction for recreation",
				"ledger_id", tx.ID, "error", err)
			result.Errors = append(result.Errors, fmt.Errorf("delete %s: %w", tx.ID, err))
			continue
		}

		replacement := tx
		replacement.ID = ""
		stored, err := i.ledger.StoreTransaction(ctx, replacement)
		if err != nil {
			i.logger.Error("Failed to recreate transaction after delete",
				"old_ledger_id", tx.ID, "date", tx.DateString(), "error", err)
			result.Errors = append(result.Errors, fmt.Errorf("recreate %s: %w", tx.ID, err))
			continue
		}

		i.logger.Info("Recreated transaction under new id",
			"old_ledger_id", tx.ID, "new_ledger_id", stored.ID)
		result.Recreated = append(result.Recreated, stored)
	}

	return result
}

func hasApproximateMatch(l ledger.Transaction, remote []ledger.Transaction) bool {
	for _, r := range remote {
		if l.Matches(r) {
			return true
		}
	}
	return false
}
