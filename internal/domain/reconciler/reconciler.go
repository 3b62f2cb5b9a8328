// Package reconciler folds withdrawal/deposit pairs that are really the two
// legs of one transfer into a single synthesized transfer record.
//
// The aggregation source records a transfer between two of its accounts as
// two unrelated entries: a withdrawal on one account and a deposit on the
// other, same day, same amount. Writing both to the budgeting ledger would
// double-count the movement; this package pairs them up first.
package reconciler

import (
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/example/firefly-kresus-sync/internal/domain/ledger"
)

// Reconciler pairs transfer legs inside one date-sorted, single-source
// transaction list.
type Reconciler struct {
	logger *slog.Logger
}

// New creates a reconciler. A nil logger disables diagnostics.
func New(logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Reconciler{logger: logger}
}

// Reconcile returns a new list in which each matched withdrawal/deposit
// pair is replaced by one synthesized transfer. The input is not mutated.
//
// Pairing is first-fit: each withdrawal scans forward for the earliest
// unconsumed deposit with the same amount and date whose endpoints both
// differ, and every record participates in at most one pairing. When the
// withdrawal's source equals the deposit's destination the pair cannot be
// told apart from money bouncing back the same day; both legs are dropped
// with a warning and nothing is synthesized.
//
// The result is re-sorted by date ascending. Order among same-date entries
// is not guaranteed.
func (r *Reconciler) Reconcile(txns []ledger.Transaction) []ledger.Transaction {
	consumed := make([]bool, len(txns))
	var transfers []ledger.Transaction

	for i, w := range txns {
		if consumed[i] || w.Type != ledger.TypeWithdrawal {
			continue
		}
		for j := i + 1; j < len(txns); j++ {
			d := txns[j]
			if consumed[j] || d.Type != ledger.TypeDeposit {
				continue
			}
			if w.Amount != d.Amount || !w.Date.Equal(d.Date) {
				continue
			}
			if w.SourceName == d.SourceName || w.DestinationName == d.DestinationName {
				continue
			}

			if w.SourceName == d.DestinationName {
				r.logger.Warn("dropping ambiguous same-day round trip",
					"date", w.DateString(),
					"amount", w.Amount,
					"account", w.SourceName,
					"withdrawal", w.Description,
					"deposit", d.Description)
				consumed[i] = true
				consumed[j] = true
				break
			}

			transfer := ledger.Transaction{
				Date:            w.Date,
				Amount:          w.Amount,
				Type:            ledger.TypeTransfer,
				Description:     fmt.Sprintf("Transfer from %s to %s", w.SourceName, d.DestinationName),
				SourceName:      w.SourceName,
				DestinationName: d.DestinationName,
			}
			r.logger.Info("paired transfer legs",
				"date", w.DateString(),
				"amount", w.Amount,
				"source", w.SourceName,
				"destination", d.DestinationName,
				"withdrawal", w.Description,
				"deposit", d.Description)
			consumed[i] = true
			consumed[j] = true
			transfers = append(transfers, transfer)
			break
		}
	}

	out := make([]ledger.Transaction, 0, len(txns))
	for i, t := range txns {
		if !consumed[i] {
			out = append(out, t)
		}
	}
	out = append(out, transfers...)

	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}
