package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Storage provides SQLite database access for the sync audit trail.
// It implements the Repository interface.
type Storage struct {
	db *sql.DB
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage creates a new storage instance with SQLite database
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints (SQLite-specific)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Storage{db: db}

	// Run all pending migrations
	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// StartSyncRun records the start of a cycle and returns the run ID
func (s *Storage) StartSyncRun(cycleID string) (int64, error) {
	query := `
		INSERT INTO sync_runs (cycle_id, status)
		VALUES (?, 'running')
	`

	result, err := s.db.Exec(query, cycleID)
	if err != nil {
		return 0, err
	}

	return result.LastInsertId()
}

// CompleteSyncRun records the completion of a cycle with its counts
func (s *Storage) CompleteSyncRun(runID int64, counts RunCounts) error {
	query := `
		UPDATE sync_runs
		SET completed_at = CURRENT_TIMESTAMP,
		    local_count = ?,
		    remote_count = ?,
		    transfers_created = ?,
		    missing_found = ?,
		    record_errors = ?,
		    status = CASE WHEN ? > 0 THEN 'completed_with_errors' ELSE 'completed' END
		WHERE id = ?
	`

	_, err := s.db.Exec(query,
		counts.LocalCount,
		counts.RemoteCount,
		counts.TransfersCreated,
		counts.MissingFound,
		counts.RecordErrors,
		counts.RecordErrors,
		runID,
	)
	return err
}

// FailSyncRun records a cycle that aborted before completing
func (s *Storage) FailSyncRun(runID int64, cause error) error {
	query := `
		UPDATE sync_runs
		SET completed_at = CURRENT_TIMESTAMP,
		    status = 'failed',
		    error = ?
		WHERE id = ?
	`

	_, err := s.db.Exec(query, cause.Error(), runID)
	return err
}

// ListSyncRuns returns recent runs, newest first
func (s *Storage) ListSyncRuns(limit int) ([]SyncRun, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, cycle_id, started_at, completed_at,
		       local_count, remote_count, transfers_created, missing_found, record_errors,
		       status, error
		FROM sync_runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []SyncRun
	for rows.Next() {
		run, err := scanSyncRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// GetSyncRun retrieves a run by ID
func (s *Storage) GetSyncRun(runID int64) (*SyncRun, error) {
	query := `
		SELECT id, cycle_id, started_at, completed_at,
		       local_count, remote_count, transfers_created, missing_found, record_errors,
		       status, error
		FROM sync_runs
		WHERE id = ?
	`

	run, err := scanSyncRun(s.db.QueryRow(query, runID))
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanSyncRun(row scanner) (SyncRun, error) {
	var (
		run         SyncRun
		completedAt sql.NullString
		errMessage  sql.NullString
	)
	err := row.Scan(
		&run.ID,
		&run.CycleID,
		&run.StartedAt,
		&completedAt,
		&run.LocalCount,
		&run.RemoteCount,
		&run.TransfersCreated,
		&run.MissingFound,
		&run.RecordErrors,
		&run.Status,
		&errMessage,
	)
	if err != nil {
		return SyncRun{}, err
	}

	if completedAt.Valid {
		run.CompletedAt = completedAt.String
	}
	if errMessage.Valid {
		run.Error = errMessage.String
	}
	return run, nil
}

// RecordCommitted saves a committed transaction, keyed by fingerprint
func (s *Storage) RecordCommitted(record *CommittedTransaction) error {
	query := `
		INSERT OR REPLACE INTO committed_transactions
		(fingerprint, ledger_id, amount, date, description)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		record.Fingerprint,
		record.LedgerID,
		record.Amount,
		record.Date,
		record.Description,
	)
	return err
}

// IsCommitted checks whether a fingerprint has been written already
func (s *Storage) IsCommitted(fingerprint string) bool {
	var count int
	query := `SELECT COUNT(*) FROM committed_transactions WHERE fingerprint = ?`
	err := s.db.QueryRow(query, fingerprint).Scan(&count)
	return err == nil && count > 0
}

// ListCommitted returns recent commits, newest first
func (s *Storage) ListCommitted(limit int) ([]CommittedTransaction, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, fingerprint, ledger_id, amount, date, description, committed_at
		FROM committed_transactions
		ORDER BY committed_at DESC, id DESC
		LIMIT ?
	`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []CommittedTransaction
	for rows.Next() {
		var (
			record      CommittedTransaction
			ledgerID    sql.NullString
			description sql.NullString
		)
		err := rows.Scan(
			&record.ID,
			&record.Fingerprint,
			&ledgerID,
			&record.Amount,
			&record.Date,
			&description,
			&record.CommittedAt,
		)
		if err != nil {
			return nil, err
		}
		if ledgerID.Valid {
			record.LedgerID = ledgerID.String
		}
		if description.Valid {
			record.Description = description.String
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// GetStats returns aggregate statistics over the last 30 days
func (s *Storage) GetStats() (*Stats, error) {
	stats := &Stats{}

	runQuery := `
	SELECT
		COUNT(*) as total,
		COUNT(CASE WHEN status IN ('completed', 'completed_with_errors') THEN 1 END) as completed,
		COUNT(CASE WHEN status = 'failed' THEN 1 END) as failed,
		COUNT(CASE WHEN status = 'completed_with_errors' THEN 1 END) as with_errors,
		COALESCE(MAX(started_at), '') as last_run
	FROM sync_runs
	WHERE started_at > datetime('now', '-30 days')
	`

	err := s.db.QueryRow(runQuery).Scan(
		&stats.TotalRuns,
		&stats.CompletedRuns,
		&stats.FailedRuns,
		&stats.RunsWithErrors,
		&stats.LastRunAt,
	)
	if err != nil {
		return nil, err
	}

	commitQuery := `
	SELECT
		COUNT(*) as total,
		COALESCE(SUM(amount), 0) as amount
	FROM committed_transactions
	WHERE committed_at > datetime('now', '-30 days')
	`

	err = s.db.QueryRow(commitQuery).Scan(
		&stats.TotalCommitted,
		&stats.CommittedAmount,
	)
	if err != nil {
		return nil, err
	}

	return stats, nil
}
