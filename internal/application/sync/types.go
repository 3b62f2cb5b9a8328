package sync

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/example/firefly-kresus-sync/internal/adapters/kresus"
	"github.com/example/firefly-kresus-sync/internal/domain/ledger"
	"github.com/example/firefly-kresus-sync/internal/domain/matcher"
	"github.com/example/firefly-kresus-sync/internal/domain/reconciler"
	"github.com/example/firefly-kresus-sync/internal/infrastructure/storage"
	"github.com/example/firefly-kresus-sync/internal/notify"
)

// Aggregator is the bank-aggregation side. It is the source of truth for
// what actually happened on the accounts.
type Aggregator interface {
	Fetch(ctx context.Context, since time.Time) (*kresus.Data, error)
}

// Ledger is the budgeting side. It is the system being kept in sync.
type Ledger interface {
	ListTransactions(ctx context.Context, start, end time.Time) ([]ledger.Transaction, error)
	ListAccounts(ctx context.Context) ([]ledger.Account, error)
	StoreTransaction(ctx context.Context, tx ledger.Transaction) (ledger.Transaction, error)
	UpdateTransaction(ctx context.Context, tx ledger.Transaction) (ledger.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
}

// Intervals holds the periods of the three background loops.
type Intervals struct {
	Fetch    time.Duration
	Present  time.Duration
	Approval time.Duration
}

// Options holds orchestrator configuration.
type Options struct {
	// Since is the lower bound of the sync window. Zero means no bound.
	Since time.Time

	Intervals Intervals
}

// CycleResult summarizes one completed fetch-and-match cycle.
type CycleResult struct {
	CycleID          string
	LocalCount       int
	RemoteCount      int
	TransfersCreated int
	MissingFound     int
	RecordErrors     int
}

// Orchestrator drives the sync: fetch both sides, reconcile transfers,
// find missing records, announce them, and commit approvals back to the
// ledger. Cycles are independent; a failed cycle leaves the previous
// pending snapshot in place.
type Orchestrator struct {
	aggregator Aggregator
	ledger     Ledger
	channel    notify.Channel
	store      storage.Repository
	matcher    *matcher.Matcher
	reconciler *reconciler.Reconciler
	opts       Options
	logger     *slog.Logger

	pending snapshotSlot
	retired retiredSet
}

// NewOrchestrator creates a sync orchestrator. channel and store may be
// nil: without a channel discrepancies are only logged and exposed through
// Snapshot, without a store no run history is recorded.
func NewOrchestrator(
	aggregator Aggregator,
	ledgerClient Ledger,
	channel notify.Channel,
	store storage.Repository,
	opts Options,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Orchestrator{
		aggregator: aggregator,
		ledger:     ledgerClient,
		channel:    channel,
		store:      store,
		matcher:    matcher.New(matcher.DefaultConfig(), logger),
		reconciler: reconciler.New(logger),
		opts:       opts,
		logger:     logger,
		retired:    newRetiredSet(),
	}
}
