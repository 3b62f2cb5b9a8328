package storage

import (
	"fmt"
	"sort"
	"time"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps and slices, making tests fast and isolated.
type MockRepository struct {
	runs      map[int64]*SyncRun
	committed map[string]*CommittedTransaction
	nextRunID int64
	nextID    int64

	// Hooks for test assertions
	StartSyncRunCalled    bool
	CompleteSyncRunCalled bool
	FailSyncRunCalled     bool
	RecordCommittedCalled bool
	LastCompletedCounts   RunCounts
	LastCommitted         *CommittedTransaction

	// Error injection for testing error paths
	StartSyncRunErr    error
	CompleteSyncRunErr error
	RecordCommittedErr error
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		runs:      make(map[int64]*SyncRun),
		committed: make(map[string]*CommittedTransaction),
		nextRunID: 1,
		nextID:    1,
	}
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// StartSyncRun records the start of a cycle and returns the run ID
func (m *MockRepository) StartSyncRun(cycleID string) (int64, error) {
	m.StartSyncRunCalled = true
	if m.StartSyncRunErr != nil {
		return 0, m.StartSyncRunErr
	}

	id := m.nextRunID
	m.nextRunID++
	m.runs[id] = &SyncRun{
		ID:        id,
		CycleID:   cycleID,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
		Status:    "running",
	}
	return id, nil
}

// CompleteSyncRun records the completion of a cycle with its counts
func (m *MockRepository) CompleteSyncRun(runID int64, counts RunCounts) error {
	m.CompleteSyncRunCalled = true
	m.LastCompletedCounts = counts
	if m.CompleteSyncRunErr != nil {
		return m.CompleteSyncRunErr
	}

	run, ok := m.runs[runID]
	if !ok {
		return fmt.Errorf("sync run %d not found", runID)
	}
	run.CompletedAt = time.Now().UTC().Format(time.RFC3339)
	run.LocalCount = counts.LocalCount
	run.RemoteCount = counts.RemoteCount
	run.TransfersCreated = counts.TransfersCreated
	run.MissingFound = counts.MissingFound
	run.RecordErrors = counts.RecordErrors
	if counts.RecordErrors > 0 {
		run.Status = "completed_with_errors"
	} else {
		run.Status = "completed"
	}
	return nil
}

// FailSyncRun records a cycle that aborted before completing
func (m *MockRepository) FailSyncRun(runID int64, cause error) error {
	m.FailSyncRunCalled = true

	run, ok := m.runs[runID]
	if !ok {
		return fmt.Errorf("sync run %d not found", runID)
	}
	run.CompletedAt = time.Now().UTC().Format(time.RFC3339)
	run.Status = "failed"
	run.Error = cause.Error()
	return nil
}

// ListSyncRuns returns recent runs, newest first
func (m *MockRepository) ListSyncRuns(limit int) ([]SyncRun, error) {
	if limit <= 0 {
		limit = 50
	}

	runs := make([]SyncRun, 0, len(m.runs))
	for _, run := range m.runs {
		runs = append(runs, *run)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].ID > runs[j].ID })

	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// GetSyncRun retrieves a run by ID
func (m *MockRepository) GetSyncRun(runID int64) (*SyncRun, error) {
	run, ok := m.runs[runID]
	if !ok {
		return nil, fmt.Errorf("sync run %d not found", runID)
	}
	copied := *run
	return &copied, nil
}

// RecordCommitted saves a committed transaction, keyed by fingerprint
func (m *MockRepository) RecordCommitted(record *CommittedTransaction) error {
	m.RecordCommittedCalled = true
	m.LastCommitted = record
	if m.RecordCommittedErr != nil {
		return m.RecordCommittedErr
	}

	copied := *record
	if existing, ok := m.committed[record.Fingerprint]; ok {
		copied.ID = existing.ID
	} else {
		copied.ID = m.nextID
		m.nextID++
	}
	copied.CommittedAt = time.Now().UTC().Format(time.RFC3339)
	m.committed[record.Fingerprint] = &copied
	return nil
}

// IsCommitted checks whether a fingerprint has been written already
func (m *MockRepository) IsCommitted(fingerprint string) bool {
	_, ok := m.committed[fingerprint]
	return ok
}

// ListCommitted returns recent commits, newest first
func (m *MockRepository) ListCommitted(limit int) ([]CommittedTransaction, error) {
	if limit <= 0 {
		limit = 50
	}

	records := make([]CommittedTransaction, 0, len(m.committed))
	for _, record := range m.committed {
		records = append(records, *record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID > records[j].ID })

	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// GetStats returns aggregate statistics
func (m *MockRepository) GetStats() (*Stats, error) {
	stats := &Stats{}
	for _, run := range m.runs {
		stats.TotalRuns++
		switch run.Status {
		case "completed":
			stats.CompletedRuns++
		case "completed_with_errors":
			stats.CompletedRuns++
			stats.RunsWithErrors++
		case "failed":
			stats.FailedRuns++
		}
		if run.StartedAt > stats.LastRunAt {
			stats.LastRunAt = run.StartedAt
		}
	}
	for _, record := range m.committed {
		stats.TotalCommitted++
		stats.CommittedAmount += record.Amount
	}
	return stats, nil
}

// Close is a no-op for the mock
func (m *MockRepository) Close() error {
	return nil
}
