package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/groupthink/groupthink/internal/types"
)

// CreateTask inserts a new task row
func (s *SQLiteStorage) CreateTask(ctx context.Context, task *types.Task) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now

	var groupID sql.NullString
	if task.GroupID != nil {
		groupID = sql.NullString{String: *task.GroupID, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, owner_id, description, group_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, task.ID, task.OwnerID, task.Description, groupID, task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

// GetTask retrieves a task by ID. Deleted tasks return ErrNotFound so that
// in-flight detection runs observe the deletion.
func (s *SQLiteStorage) GetTask(ctx context.Context, id string) (*types.Task, error) {
	task, err := s.getTask(ctx, s.db.QueryRowContext, id)
	if err != nil {
		return nil, err
	}
	if task.DeletedAt != nil {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return task, nil
}

type rowQuerier func(ctx context.Context, query string, args ...interface{}) *sql.Row

// getTask scans one task row through any querier (pool or pinned connection)
func (s *SQLiteStorage) getTask(ctx context.Context, queryRow rowQuerier, id string) (*types.Task, error) {
	var task types.Task
	var groupID sql.NullString
	var deletedAt sql.NullTime

	err := queryRow(ctx, `
		SELECT id, owner_id, description, group_id, created_at, updated_at, deleted_at
		FROM tasks
		WHERE id = ?
	`, id).Scan(
		&task.ID, &task.OwnerID, &task.Description, &groupID,
		&task.CreatedAt, &task.UpdatedAt, &deletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	if groupID.Valid {
		task.GroupID = &groupID.String
	}
	if deletedAt.Valid {
		task.DeletedAt = &deletedAt.Time
	}
	return &task, nil
}

// UpdateTaskDescription replaces the description and invalidates the cached
// embedding in the same transaction: any edit makes the vector stale.
func (s *SQLiteStorage) UpdateTaskDescription(ctx context.Context, id, description string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE tasks SET description = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, description, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM embeddings WHERE task_id = ?`, id); err != nil {
		return fmt.Errorf("failed to invalidate embedding: %w", err)
	}

	return tx.Commit()
}

// DeleteTask soft-deletes a task. The row stays behind so audit trails and
// in-flight detection runs keep a consistent view; the task also leaves its
// group, deleting the group when it becomes empty.
func (s *SQLiteStorage) DeleteTask(ctx context.Context, id string) error {
	conn, done, err := s.immediateTx(ctx)
	if err != nil {
		return err
	}
	commit := false
	defer func() {
		if !commit {
			_ = done(false)
		}
	}()

	task, err := s.getTask(ctx, conn.QueryRowContext, id)
	if err != nil {
		return err
	}
	if task.DeletedAt != nil {
		// Deleting twice is a no-op
		commit = true
		return done(true)
	}

	now := time.Now()
	_, err = conn.ExecContext(ctx, `
		UPDATE tasks SET deleted_at = ?, group_id = NULL, updated_at = ?
		WHERE id = ?
	`, now, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	if task.GroupID != nil {
		if err := s.deleteGroupIfEmpty(ctx, conn, *task.GroupID, "engine"); err != nil {
			return err
		}
	}

	commit = true
	return done(true)
}

// ListOwnerTasks returns all live tasks for one owner, newest first
func (s *SQLiteStorage) ListOwnerTasks(ctx context.Context, ownerID string) ([]*types.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, description, group_id, created_at, updated_at, deleted_at
		FROM tasks
		WHERE owner_id = ? AND deleted_at IS NULL
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*types.Task
	for rows.Next() {
		var task types.Task
		var groupID sql.NullString
		var deletedAt sql.NullTime

		if err := rows.Scan(&task.ID, &task.OwnerID, &task.Description, &groupID,
			&task.CreatedAt, &task.UpdatedAt, &deletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		if groupID.Valid {
			task.GroupID = &groupID.String
		}
		tasks = append(tasks, &task)
	}
	return tasks, rows.Err()
}
