package storage

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, PostgreSQL, etc.)
// and makes testing with mocks straightforward.
type Repository interface {
	RunRepository
	CommitRepository
	Close() error
}

// RunRepository tracks fetch/reconcile/match cycles
type RunRepository interface {
	// StartSyncRun records the start of a cycle and returns the run ID
	StartSyncRun(cycleID string) (int64, error)

	// CompleteSyncRun records the completion of a cycle with its counts
	CompleteSyncRun(runID int64, counts RunCounts) error

	// FailSyncRun records a cycle that aborted before completing
	FailSyncRun(runID int64, cause error) error

	// ListSyncRuns returns recent runs, newest first
	ListSyncRuns(limit int) ([]SyncRun, error)

	// GetSyncRun retrieves a run by ID
	GetSyncRun(runID int64) (*SyncRun, error)
}

// RunCounts carries the per-cycle counters written on completion
type RunCounts struct {
	LocalCount       int
	RemoteCount      int
	TransfersCreated int
	MissingFound     int
	RecordErrors     int
}

// SyncRun represents one recorded cycle
type SyncRun struct {
	ID               int64  `json:"id"`
	CycleID          string `json:"cycle_id"`
	StartedAt        string `json:"started_at"`
	CompletedAt      string `json:"completed_at,omitempty"`
	LocalCount       int    `json:"local_count"`
	RemoteCount      int    `json:"remote_count"`
	TransfersCreated int    `json:"transfers_created"`
	MissingFound     int    `json:"missing_found"`
	RecordErrors     int    `json:"record_errors"`
	Status           string `json:"status"`
	Error            string `json:"error,omitempty"`
}

// CommitRepository is the audit log of ledger writes
type CommitRepository interface {
	// RecordCommitted saves a committed transaction, keyed by fingerprint
	RecordCommitted(record *CommittedTransaction) error

	// IsCommitted checks whether a fingerprint has been written already
	IsCommitted(fingerprint string) bool

	// ListCommitted returns recent commits, newest first
	ListCommitted(limit int) ([]CommittedTransaction, error)

	// GetStats returns aggregate statistics
	GetStats() (*Stats, error)
}

// CommittedTransaction is one audited ledger write
type CommittedTransaction struct {
	ID          int64   `json:"id"`
	Fingerprint string  `json:"fingerprint"`
	LedgerID    string  `json:"ledger_id,omitempty"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
	Description string  `json:"description,omitempty"`
	CommittedAt string  `json:"committed_at"`
}

// Stats contains aggregate statistics over the last 30 days
type Stats struct {
	TotalRuns       int     `json:"total_runs"`
	CompletedRuns   int     `json:"completed_runs"`
	FailedRuns      int     `json:"failed_runs"`
	RunsWithErrors  int     `json:"runs_with_errors"`
	TotalCommitted  int     `json:"total_committed"`
	CommittedAmount float64 `json:"committed_amount"`
	LastRunAt       string  `json:"last_run_at,omitempty"`
}
