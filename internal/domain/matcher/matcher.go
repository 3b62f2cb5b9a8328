// Package matcher decides which aggregation-side transactions are absent
// from the budgeting ledger.
//
// The predicate here is looser than ledger.Matches: a record
// counts as already recorded when the ledger holds a transaction on the
// same date, with the same amount within tolerance, sharing at least one
// endpoint name. Description and type are ignored because the two systems
// label them inconsistently; they appear in debug logs only.
//
// Example usage:
//
//	m := matcher.New(matcher.DefaultConfig(), logger)
//	missing := m.FindMissing(local, remote)
package matcher

import (
	"io"
	"log/slog"
	"math"

	"github.com/example/firefly-kresus-sync/internal/domain/ledger"
)

// Matcher finds local records with no remote counterpart.
type Matcher struct {
	config Config
	logger *slog.Logger
}

// New creates a matcher. A nil logger disables diagnostics.
func New(config Config, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Matcher{
		config: config,
		logger: logger,
	}
}

// FindMissing returns, in local order, every local transaction for which no
// remote transaction matches. Neither input is mutated.
//
// Remote records are bucketed by date before scanning; within a bucket the
// first match wins, in remote order. There is no best-match search: when
// several candidates would do, iteration order decides, and callers must
// not rely on which one wins.
func (m *Matcher) FindMissing(local, remote []ledger.Transaction) []ledger.Transaction {
	remoteByDate := make(map[string][]ledger.Transaction, len(remote))
	for _, r := range remote {
		key := r.DateString()
		remoteByDate[key] = append(remoteByDate[key], r)
	}

	var missing []ledger.Transaction
	for _, l := range local {
		if m.hasCounterpart(l, remoteByDate[l.DateString()]) {
			continue
		}
		m.logger.Info("transaction missing from ledger",
			"date", l.DateString(),
			"type", l.Type,
			"amount", l.Amount,
			"source", l.SourceName,
			"destination", l.DestinationName,
			"description", l.Description)
		missing = append(missing, l)
	}
	return missing
}

// hasCounterpart reports whether any same-date candidate matches l.
func (m *Matcher) hasCounterpart(l ledger.Transaction, candidates []ledger.Transaction) bool {
	for _, r := range candidates {
		amountClose := math.Abs(l.Amount-r.Amount) < m.config.AmountTolerance
		endpointShared := l.SourceName == r.SourceName || l.DestinationName == r.DestinationName

		m.logger.Debug("comparing against ledger record",
			"date", l.DateString(),
			"local_amount", l.Amount,
			"remote_amount", r.Amount,
			"amount_close", amountClose,
			"local_source", l.SourceName,
			"remote_source", r.SourceName,
			"local_destination", l.DestinationName,
			"remote_destination", r.DestinationName,
			"endpoint_shared", endpointShared,
			"local_type", l.Type,
			"remote_type", r.Type)

		if amountClose && endpointShared {
			return true
		}
	}
	return false
}
