// Package notify defines the human-approval boundary of the sync engine.
//
// The engine announces candidate discrepancies into a Channel and consumes
// approvals back; it has no concept of the message transport behind the
// interface. The Discord implementation lives in notify/discord, and the
// in-memory implementation in this package keeps orchestrator tests off
// the network.
package notify

import (
	"context"

	"github.com/example/firefly-kresus-sync/internal/domain/ledger"
)

// Candidate is one discrepancy waiting for human review.
type Candidate struct {
	Fingerprint string
	Transaction ledger.Transaction
}

// Approval is a human decision referencing a previously announced
// candidate by its fingerprint.
type Approval struct {
	Fingerprint string
}

// Channel is the announcement/approval transport.
//
// Announce must be idempotent per fingerprint across the channel's visible
// history window: announcing a candidate that is already visible is a
// no-op. Delivery is at-least-once; the fingerprint is what keeps humans
// from seeing duplicates.
type Channel interface {
	// Announce surfaces a candidate for review.
	Announce(ctx context.Context, c Candidate) error

	// Approvals drains the approval actions observed since the previous
	// call, in observation order.
	Approvals(ctx context.Context) ([]Approval, error)

	// MarkCommitted marks an announced candidate as written to the ledger.
	MarkCommitted(ctx context.Context, fingerprint string) error

	// MarkFailed flags an announced candidate whose ledger write failed.
	// The candidate stays visibly pending; it must not disappear.
	MarkFailed(ctx context.Context, fingerprint string, cause error) error
}
