package sync

import (
	"context"

	"github.com/example/firefly-kresus-sync/internal/domain/ledger"
	"github.com/example/firefly-kresus-sync/internal/infrastructure/storage"
	"github.com/example/firefly-kresus-sync/internal/notify"
)

// PresentPending announces the current snapshot's candidates. Announce is
// idempotent per fingerprint, so re-presenting the same snapshot is safe;
// per-candidate failures are logged and the rest of the batch continues.
func (o *Orchestrator) PresentPending(ctx context.Context) error {
	snap := o.Snapshot()
	if snap == nil || o.channel == nil {
		return nil
	}

	for _, fp := range snap.Fingerprints() {
		if o.retired.has(fp) {
			continue
		}
		candidate := notify.Candidate{Fingerprint: fp, Transaction: snap.Pending[fp]}
		if err := o.channel.Announce(ctx, candidate); err != nil {
			o.logger.Error("Failed to announce candidate",
				"fingerprint", fp,
				"date", candidate.Transaction.DateString(),
				"error", err,
			)
		}
	}

	return nil
}

// PollApprovals drains the channel's approvals and commits each one
// against the snapshot it was approved under. An approval whose ledger
// write fails is marked on the channel and stays pending; re-approving it
// retries the write.
func (o *Orchestrator) PollApprovals(ctx context.Context) error {
	if o.channel == nil {
		return nil
	}

	approvals, err := o.channel.Approvals(ctx)
	if err != nil {
		return err
	}
	if len(approvals) == 0 {
		return nil
	}

	snap := o.Snapshot()

	for _, approval := range approvals {
		fp := approval.Fingerprint

		if o.retired.has(fp) {
			o.logger.Debug("Ignoring approval for committed candidate", "fingerprint", fp)
			continue
		}

		var tx ledger.Transaction
		ok := false
		if snap != nil {
			tx, ok = snap.Pending[fp]
		}
		if !ok {
			o.logger.Warn("Approval does not match any pending candidate", "fingerprint", fp)
			continue
		}

		o.commit(ctx, fp, tx)
	}

	return nil
}

// commit writes one approved candidate to the ledger and settles its
// announcement either way.
func (o *Orchestrator) commit(ctx context.Context, fp string, tx ledger.Transaction) {
	stored, err := o.ledger.StoreTransaction(ctx, tx)
	if err != nil {
		o.logger.Error("Failed to write approved transaction",
			"fingerprint", fp,
			"date", tx.DateString(),
			"amount", tx.Amount,
			"error", err,
		)
		if markErr := o.channel.MarkFailed(ctx, fp, err); markErr != nil {
			o.logger.Warn("Failed to flag announcement", "fingerprint", fp, "error", markErr)
		}
		return
	}

	o.retired.add(fp)

	o.logger.Info("Committed approved transaction",
		"fingerprint", fp,
		"ledger_id", stored.ID,
		"date", tx.DateString(),
		"amount", tx.Amount,
	)

	if o.store != nil {
		record := &storage.CommittedTransaction{
			Fingerprint: fp,
			LedgerID:    stored.ID,
			Amount:      tx.Amount,
			Date:        tx.DateString(),
			Description: tx.Description,
		}
		if err := o.store.RecordCommitted(record); err != nil {
			o.logger.Warn("Failed to record committed transaction", "fingerprint", fp, "error", err)
		}
	}

	if err := o.channel.MarkCommitted(ctx, fp); err != nil {
		o.logger.Warn("Failed to mark announcement committed", "fingerprint", fp, "error", err)
	}
}
