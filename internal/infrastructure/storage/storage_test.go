package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStorage(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSyncRunLifecycle(t *testing.T) {
	// Arrange
	s := newTestStorage(t)

	// Act
	runID, err := s.StartSyncRun("cycle-123")
	require.NoError(t, err)

	// Assert
	run, err := s.GetSyncRun(runID)
	require.NoError(t, err)
	assert.Equal(t, "cycle-123", run.CycleID)
	assert.Equal(t, "running", run.Status)
	assert.NotEmpty(t, run.StartedAt)
	assert.Empty(t, run.CompletedAt)

	// Act
	err = s.CompleteSyncRun(runID, RunCounts{
		LocalCount:       42,
		RemoteCount:      40,
		TransfersCreated: 3,
		MissingFound:     2,
	})
	require.NoError(t, err)

	// Assert
	run, err = s.GetSyncRun(runID)
	require.NoError(t, err)
	assert.Equal(t, "completed", run.Status)
	assert.Equal(t, 42, run.LocalCount)
	assert.Equal(t, 40, run.RemoteCount)
	assert.Equal(t, 3, run.TransfersCreated)
	assert.Equal(t, 2, run.MissingFound)
	assert.NotEmpty(t, run.CompletedAt)
}

func TestCompleteSyncRun_FlagsRecordErrors(t *testing.T) {
	// Arrange
	s := newTestStorage(t)
	runID, err := s.StartSyncRun("cycle-errs")
	require.NoError(t, err)

	// Act
	err = s.CompleteSyncRun(runID, RunCounts{LocalCount: 10, RecordErrors: 2})
	require.NoError(t, err)

	// Assert
	run, err := s.GetSyncRun(runID)
	require.NoError(t, err)
	assert.Equal(t, "completed_with_errors", run.Status)
	assert.Equal(t, 2, run.RecordErrors)
}

func TestFailSyncRun(t *testing.T) {
	// Arrange
	s := newTestStorage(t)
	runID, err := s.StartSyncRun("cycle-fail")
	require.NoError(t, err)

	// Act
	err = s.FailSyncRun(runID, errors.New("aggregator unreachable"))
	require.NoError(t, err)

	// Assert
	run, err := s.GetSyncRun(runID)
	require.NoError(t, err)
	assert.Equal(t, "failed", run.Status)
	assert.Equal(t, "aggregator unreachable", run.Error)
}

func TestListSyncRuns_NewestFirst(t *testing.T) {
	// Arrange
	s := newTestStorage(t)
	for _, cycle := range []string{"first", "second", "third"} {
		_, err := s.StartSyncRun(cycle)
		require.NoError(t, err)
	}

	// Act
	runs, err := s.ListSyncRuns(2)

	// Assert
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "third", runs[0].CycleID)
	assert.Equal(t, "second", runs[1].CycleID)
}

func TestRecordCommitted_UpsertsByFingerprint(t *testing.T) {
	// Arrange
	s := newTestStorage(t)
	record := &CommittedTransaction{
		Fingerprint: "abc123",
		LedgerID:    "42",
		Amount:      12.5,
		Date:        "2024-01-06",
		Description: "Groceries",
	}

	// Act
	require.NoError(t, s.RecordCommitted(record))
	record.LedgerID = "43"
	require.NoError(t, s.RecordCommitted(record))

	// Assert
	committed, err := s.ListCommitted(10)
	require.NoError(t, err)
	require.Len(t, committed, 1)
	assert.Equal(t, "43", committed[0].LedgerID)
	assert.Equal(t, "abc123", committed[0].Fingerprint)
	assert.NotEmpty(t, committed[0].CommittedAt)
}

func TestIsCommitted(t *testing.T) {
	// Arrange
	s := newTestStorage(t)

	// Assert
	assert.False(t, s.IsCommitted("abc123"))

	// Act
	err := s.RecordCommitted(&CommittedTransaction{
		Fingerprint: "abc123",
		Amount:      12.5,
		Date:        "2024-01-06",
	})
	require.NoError(t, err)

	// Assert
	assert.True(t, s.IsCommitted("abc123"))
	assert.False(t, s.IsCommitted("other"))
}

func TestGetStats(t *testing.T) {
	// Arrange
	s := newTestStorage(t)

	okRun, err := s.StartSyncRun("cycle-ok")
	require.NoError(t, err)
	require.NoError(t, s.CompleteSyncRun(okRun, RunCounts{LocalCount: 5}))

	errRun, err := s.StartSyncRun("cycle-errs")
	require.NoError(t, err)
	require.NoError(t, s.CompleteSyncRun(errRun, RunCounts{LocalCount: 5, RecordErrors: 1}))

	badRun, err := s.StartSyncRun("cycle-bad")
	require.NoError(t, err)
	require.NoError(t, s.FailSyncRun(badRun, errors.New("boom")))

	require.NoError(t, s.RecordCommitted(&CommittedTransaction{
		Fingerprint: "fp-1", Amount: 10, Date: "2024-01-06",
	}))
	require.NoError(t, s.RecordCommitted(&CommittedTransaction{
		Fingerprint: "fp-2", Amount: 2.5, Date: "2024-01-07",
	}))

	// Act
	stats, err := s.GetStats()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalRuns)
	assert.Equal(t, 2, stats.CompletedRuns)
	assert.Equal(t, 1, stats.FailedRuns)
	assert.Equal(t, 1, stats.RunsWithErrors)
	assert.Equal(t, 2, stats.TotalCommitted)
	assert.InDelta(t, 12.5, stats.CommittedAmount, 0.0001)
	assert.NotEmpty(t, stats.LastRunAt)
}

func TestMigrations_RecordedOnce(t *testing.T) {
	// Arrange
	dbPath := filepath.Join(t.TempDir(), "migrate.db")

	s, err := NewStorage(dbPath)
	require.NoError(t, err)

	var count int
	err = s.db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(allMigrations), count)
	require.NoError(t, s.Close())

	// Act, reopening must not re-run migrations
	s, err = NewStorage(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	// Assert
	err = s.db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(allMigrations), count)
}
