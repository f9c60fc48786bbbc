// Package sqlite implements the engine's storage interface on SQLite.
//
// Group mutations run inside BEGIN IMMEDIATE transactions so that two
// concurrent detection runs touching the same tasks serialize at the
// database instead of racing: the second writer observes the first's
// committed state and either becomes an idempotent no-op or surfaces
// ErrTaskAlreadyGrouped / ErrConcurrentModification for re-classification.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Sentinel errors. The storage package re-exports these.
var (
	ErrNotFound               = errors.New("not found")
	ErrTaskAlreadyGrouped     = errors.New("task already grouped")
	ErrConcurrentModification = errors.New("concurrent modification")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// New creates a new SQLite storage backend
func New(path string) (*SQLiteStorage, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// WAL mode for better concurrency between the detection workers and the
	// read-only query surface
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// immediateTx acquires a dedicated connection and starts a BEGIN IMMEDIATE
// transaction on it. IMMEDIATE takes the write lock up front, serializing
// concurrent group mutations across workers and processes. database/sql's
// BeginTx cannot express the mode, so the BEGIN/COMMIT run as raw SQL on
// one pinned connection.
//
// Callers must invoke done(nil-error-from-commit) exactly once; it commits
// when commit is true and rolls back otherwise, then releases the connection.
func (s *SQLiteStorage) immediateTx(ctx context.Context) (*sql.Conn, func(commit bool) error, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to acquire connection: %w", err)
	}

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to begin immediate transaction: %w", err)
	}

	done := func(commit bool) error {
		defer conn.Close()
		if commit {
			if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
				return fmt.Errorf("failed to commit transaction: %w", err)
			}
			return nil
		}
		// Rollback with a background context so cleanup survives cancellation
		_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		return nil
	}

	return conn, done, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Statistics provides aggregate engine metrics
type Statistics struct {
	TotalTasks         int `json:"total_tasks"`
	GroupedTasks       int `json:"grouped_tasks"`
	TotalGroups        int `json:"total_groups"`
	TotalDetections    int `json:"total_detections"`
	PendingDetections  int `json:"pending_detections"`
	GroupedDetections  int `json:"grouped_detections"`
	DismissedDetections int `json:"dismissed_detections"`
	FailedDetections   int `json:"failed_detections"`
}

// GetStatistics returns aggregate counts for the status surface
func (s *SQLiteStorage) GetStatistics(ctx context.Context) (*Statistics, error) {
	var stats Statistics

	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM tasks WHERE deleted_at IS NULL),
			(SELECT COUNT(*) FROM tasks WHERE deleted_at IS NULL AND group_id IS NOT NULL),
			(SELECT COUNT(*) FROM task_groups),
			(SELECT COUNT(*) FROM detections),
			(SELECT COUNT(*) FROM detections WHERE state IN ('created', 'embedding', 'matching', 'resolving', 'auto_resolved', 'pending_review')),
			(SELECT COUNT(*) FROM detections WHERE state = 'grouped'),
			(SELECT COUNT(*) FROM detections WHERE state IN ('dismissed', 'no_duplicates')),
			(SELECT COUNT(*) FROM detections WHERE state = 'failed')
	`).Scan(
		&stats.TotalTasks, &stats.GroupedTasks, &stats.TotalGroups,
		&stats.TotalDetections, &stats.PendingDetections, &stats.GroupedDetections,
		&stats.DismissedDetections, &stats.FailedDetections,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get statistics: %w", err)
	}

	return &stats, nil
}
