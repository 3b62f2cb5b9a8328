package sync

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/example/firefly-kresus-sync/internal/adapters/kresus"
	"github.com/example/firefly-kresus-sync/internal/domain/ledger"
)

// Data fetching for the sync orchestrator. Both sides are pulled over the
// same window so the matcher compares like with like.

// fetchLocal pulls the aggregator export. Per-record mapping failures ride
// along in Data.MappingErrors; the affected records are simply absent.
func (o *Orchestrator) fetchLocal(ctx context.Context) (*kresus.Data, error) {
	o.logger.Debug("Fetching aggregator export", "since", dateOrNone(o.opts.Since))

	data, err := o.aggregator.Fetch(ctx, o.opts.Since)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch aggregator export: %w", err)
	}

	for _, mapErr := range data.MappingErrors {
		o.logger.Warn("Skipped malformed aggregator record", "error", mapErr)
	}

	o.logger.Debug("Fetched aggregator export",
		"transactions", len(data.Transactions),
		"accounts", len(data.Accounts),
		"record_errors", len(data.MappingErrors),
	)

	return data, nil
}

// fetchRemote pulls the ledger transactions over the sync window.
func (o *Orchestrator) fetchRemote(ctx context.Context) ([]ledger.Transaction, error) {
	o.logger.Debug("Fetching ledger transactions", "since", dateOrNone(o.opts.Since))

	remote, err := o.ledger.ListTransactions(ctx, o.opts.Since, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ledger transactions: %w", err)
	}

	o.logger.Debug("Fetched ledger transactions", "count", len(remote))

	return remote, nil
}

// checkBalances compares per-account balances between the two systems and
// logs mismatches. Accounts are matched by name: the two systems classify
// account types differently, names are what the operator configured to
// line up. Advisory only, never fails the cycle.
func (o *Orchestrator) checkBalances(ctx context.Context, local []ledger.Account) {
	remote, err := o.ledger.ListAccounts(ctx)
	if err != nil {
		o.logger.Warn("Balance check skipped, ledger accounts unavailable", "error", err)
		return
	}

	remoteByName := make(map[string]ledger.Account, len(remote))
	for _, a := range remote {
		remoteByName[a.Name] = a
	}

	for _, l := range local {
		r, ok := remoteByName[l.Name]
		if !ok {
			o.logger.Debug("Account has no ledger counterpart", "account", l.Name)
			continue
		}
		if math.Abs(l.CurrentBalance-r.CurrentBalance) >= 0.01 {
			o.logger.Warn("Balance mismatch",
				"account", l.Name,
				"aggregator_balance", l.CurrentBalance,
				"ledger_balance", r.CurrentBalance,
			)
		}
	}
}

func dateOrNone(t time.Time) string {
	if t.IsZero() {
		return "none"
	}
	return t.Format(ledger.DateLayout)
}
