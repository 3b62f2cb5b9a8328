package sync

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/firefly-kresus-sync/internal/domain/fingerprint"
	"github.com/example/firefly-kresus-sync/internal/domain/ledger"
	"github.com/example/firefly-kresus-sync/internal/infrastructure/storage"
)

// RunCycle executes one fetch-and-match cycle: pull both sides, pair
// transfer legs on the aggregator side, find what the ledger is missing,
// and publish the result as the new pending snapshot. A failure anywhere
// leaves the previous snapshot untouched.
func (o *Orchestrator) RunCycle(ctx context.Context) (*CycleResult, error) {
	cycleID := uuid.New().String()
	logger := o.logger.With("cycle_id", cycleID)

	logger.Info("Starting sync cycle")

	runID := o.startRun(cycleID, logger)

	local, err := o.fetchLocal(ctx)
	if err != nil {
		o.failRun(runID, err, logger)
		return nil, err
	}

	remote, err := o.fetchRemote(ctx)
	if err != nil {
		o.failRun(runID, err, logger)
		return nil, err
	}

	o.checkBalances(ctx, local.Accounts)

	reconciled := o.reconciler.Reconcile(local.Transactions)
	transfers := countTransfers(reconciled)

	missing := o.matcher.FindMissing(reconciled, remote)

	pending := make(map[string]ledger.Transaction, len(missing))
	for _, tx := range missing {
		fp := fingerprint.Sum(tx)
		if o.retired.has(fp) {
			logger.Debug("Skipping committed candidate", "fingerprint", fp)
			continue
		}
		if o.store != nil && o.store.IsCommitted(fp) {
			logger.Debug("Skipping candidate committed in a previous run", "fingerprint", fp)
			continue
		}
		pending[fp] = tx
	}

	o.pending.publish(&Snapshot{
		CycleID: cycleID,
		TakenAt: time.Now(),
		Pending: pending,
	})

	result := &CycleResult{
		CycleID:          cycleID,
		LocalCount:       len(local.Transactions),
		RemoteCount:      len(remote),
		TransfersCreated: transfers,
		MissingFound:     len(pending),
		RecordErrors:     len(local.MappingErrors),
	}

	o.completeRun(runID, result, logger)

	logger.Info("Sync cycle complete",
		"local", result.LocalCount,
		"remote", result.RemoteCount,
		"transfers", result.TransfersCreated,
		"missing", result.MissingFound,
		"record_errors", result.RecordErrors,
	)

	return result, nil
}

// countTransfers counts synthesized transfer records. The aggregator feed
// only ever carries withdrawals and deposits, so every transfer in the
// reconciled list came out of leg pairing.
func countTransfers(txns []ledger.Transaction) int {
	count := 0
	for _, tx := range txns {
		if tx.Type == ledger.TypeTransfer {
			count++
		}
	}
	return count
}

// startRun opens a run-history row. Tracking failures never block the
// cycle.
func (o *Orchestrator) startRun(cycleID string, logger *slog.Logger) int64 {
	if o.store == nil {
		return 0
	}
	runID, err := o.store.StartSyncRun(cycleID)
	if err != nil {
		logger.Warn("Failed to start sync run tracking", "error", err)
		return 0
	}
	return runID
}

func (o *Orchestrator) completeRun(runID int64, result *CycleResult, logger *slog.Logger) {
	if o.store == nil || runID == 0 {
		return
	}
	err := o.store.CompleteSyncRun(runID, storage.RunCounts{
		LocalCount:       result.LocalCount,
		RemoteCount:      result.RemoteCount,
		TransfersCreated: result.TransfersCreated,
		MissingFound:     result.MissingFound,
		RecordErrors:     result.RecordErrors,
	})
	if err != nil {
		logger.Warn("Failed to record sync run completion", "error", err)
	}
}

func (o *Orchestrator) failRun(runID int64, cause error, logger *slog.Logger) {
	if o.store == nil || runID == 0 {
		return
	}
	if err := o.store.FailSyncRun(runID, cause); err != nil {
		logger.Warn("Failed to record sync run failure", "error", err)
	}
}
