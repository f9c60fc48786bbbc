package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/groupthink/groupthink/internal/types"
)

// execer covers both *sql.Conn and *sql.Tx for the audit helper
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// recordEvent appends one audit trail row inside the caller's transaction
func recordEvent(ctx context.Context, ex execer, subjectID string, eventType types.EventType, actor string, oldValue, newValue, edgeID string) error {
	var oldV, newV, edge sql.NullString
	if oldValue != "" {
		oldV = sql.NullString{String: oldValue, Valid: true}
	}
	if newValue != "" {
		newV = sql.NullString{String: newValue, Valid: true}
	}
	if edgeID != "" {
		edge = sql.NullString{String: edgeID, Valid: true}
	}

	_, err := ex.ExecContext(ctx, `
		INSERT INTO events (subject_id, event_type, actor, old_value, new_value, edge_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`, subjectID, eventType, actor, oldV, newV, edge)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

// CreateGroup atomically creates a group and assigns every listed task to it.
// A task already in a different group fails the whole call with
// ErrTaskAlreadyGrouped (the caller must merge instead); a task already in
// this group is a no-op for that task, which makes a retried call after a
// timeout safe.
func (s *SQLiteStorage) CreateGroup(ctx context.Context, group *types.TaskGroup, taskIDs []string, edgeID, actor string) error {
	if err := group.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if len(taskIDs) == 0 {
		return fmt.Errorf("at least one task is required to form a group")
	}

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

	now := time.Now()
	if group.CreatedAt.IsZero() {
		group.CreatedAt = now
	}
	group.UpdatedAt = now

	// INSERT OR IGNORE makes a retried create (same group id) idempotent:
	// the surviving row wins, membership assignment below reconciles.
	_, err = conn.ExecContext(ctx, `
		INSERT OR IGNORE INTO task_groups (id, name, owner_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, group.ID, group.Name, group.OwnerID, group.CreatedAt, group.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	if err := s.assignTasks(ctx, conn, group.ID, taskIDs, edgeID, actor); err != nil {
		return err
	}

	if err := recordEvent(ctx, conn, group.ID, types.EventGroupCreated, actor, "", group.Name, edgeID); err != nil {
		return err
	}

	commit = true
	return done(true)
}

// AddToGroup atomically assigns the listed tasks to an existing group, with
// the same already-grouped and idempotency semantics as CreateGroup.
func (s *SQLiteStorage) AddToGroup(ctx context.Context, groupID string, taskIDs []string, edgeID, actor string) error {
	if len(taskIDs) == 0 {
		return fmt.Errorf("at least one task is required")
	}

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

	var exists int
	err = conn.QueryRowContext(ctx, `SELECT 1 FROM task_groups WHERE id = ?`, groupID).Scan(&exists)
	if err == sql.ErrNoRows {
		return fmt.Errorf("group %s: %w", groupID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check group: %w", err)
	}

	if err := s.assignTasks(ctx, conn, groupID, taskIDs, edgeID, actor); err != nil {
		return err
	}

	commit = true
	return done(true)
}

// assignTasks moves each task's group reference to groupID inside the
// caller's transaction. Enforces the single-group-per-task invariant.
func (s *SQLiteStorage) assignTasks(ctx context.Context, conn *sql.Conn, groupID string, taskIDs []string, edgeID, actor string) error {
	now := time.Now()
	for _, taskID := range taskIDs {
		task, err := s.getTask(ctx, conn.QueryRowContext, taskID)
		if err != nil {
			return err
		}
		if task.DeletedAt != nil {
			return fmt.Errorf("task %s: %w", taskID, ErrNotFound)
		}
		if task.GroupID != nil {
			if *task.GroupID == groupID {
				// Already a member: idempotent no-op for this task
				continue
			}
			return fmt.Errorf("task %s already belongs to group %s: %w",
				taskID, *task.GroupID, ErrTaskAlreadyGrouped)
		}

		// Guarded update: the WHERE clause re-checks the group reference we
		// just read, so a move committed between read and write inside
		// another connection surfaces instead of being overwritten.
		result, err := conn.ExecContext(ctx, `
			UPDATE tasks SET group_id = ?, updated_at = ?
			WHERE id = ? AND group_id IS NULL AND deleted_at IS NULL
		`, groupID, now, taskID)
		if err != nil {
			return fmt.Errorf("failed to assign task %s: %w", taskID, err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("task %s group reference changed underneath the write: %w",
				taskID, ErrConcurrentModification)
		}

		if err := recordEvent(ctx, conn, taskID, types.EventMemberAdded, actor, "", groupID, edgeID); err != nil {
			return err
		}
	}
	return nil
}

// RemoveFromGroup clears a task's group reference and deletes the source
// group if it becomes empty. Removing an ungrouped task is a no-op.
func (s *SQLiteStorage) RemoveFromGroup(ctx context.Context, taskID, actor string) error {
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

	task, err := s.getTask(ctx, conn.QueryRowContext, taskID)
	if err != nil {
		return err
	}
	if task.GroupID == nil {
		commit = true
		return done(true)
	}
	sourceGroup := *task.GroupID

	_, err = conn.ExecContext(ctx, `
		UPDATE tasks SET group_id = NULL, updated_at = ? WHERE id = ?
	`, time.Now(), taskID)
	if err != nil {
		return fmt.Errorf("failed to remove task from group: %w", err)
	}

	if err := recordEvent(ctx, conn, taskID, types.EventMemberRemoved, actor, sourceGroup, "", ""); err != nil {
		return err
	}

	if err := s.deleteGroupIfEmpty(ctx, conn, sourceGroup, actor); err != nil {
		return err
	}

	commit = true
	return done(true)
}

// deleteGroupIfEmpty enforces the zero-members-means-deleted invariant
// inside the caller's transaction.
func (s *SQLiteStorage) deleteGroupIfEmpty(ctx context.Context, conn *sql.Conn, groupID, actor string) error {
	var members int
	err := conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM tasks WHERE group_id = ? AND deleted_at IS NULL
	`, groupID).Scan(&members)
	if err != nil {
		return fmt.Errorf("failed to count group members: %w", err)
	}
	if members > 0 {
		return nil
	}

	if _, err := conn.ExecContext(ctx, `DELETE FROM task_groups WHERE id = ?`, groupID); err != nil {
		return fmt.Errorf("failed to delete empty group: %w", err)
	}
	return recordEvent(ctx, conn, groupID, types.EventGroupDeleted, actor, "", "", "")
}

// MergeGroups reassigns every member of the non-target groups into the
// target and deletes the emptied sources, all in one transaction. A partial
// merge is the worst user-visible failure this layer exists to prevent.
// A source group that no longer exists is treated as already merged, which
// makes a retried merge idempotent.
func (s *SQLiteStorage) MergeGroups(ctx context.Context, groupIDs []string, targetID, actor string) error {
	if len(groupIDs) < 2 {
		return fmt.Errorf("merge requires at least two groups")
	}
	found := false
	for _, id := range groupIDs {
		if id == targetID {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("target group %s must be one of the merged groups", targetID)
	}

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

	var exists int
	err = conn.QueryRowContext(ctx, `SELECT 1 FROM task_groups WHERE id = ?`, targetID).Scan(&exists)
	if err == sql.ErrNoRows {
		return fmt.Errorf("target group %s: %w", targetID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check target group: %w", err)
	}

	now := time.Now()
	for _, sourceID := range groupIDs {
		if sourceID == targetID {
			continue
		}

		err = conn.QueryRowContext(ctx, `SELECT 1 FROM task_groups WHERE id = ?`, sourceID).Scan(&exists)
		if err == sql.ErrNoRows {
			// Already merged away by an earlier attempt
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to check group %s: %w", sourceID, err)
		}

		_, err = conn.ExecContext(ctx, `
			UPDATE tasks SET group_id = ?, updated_at = ?
			WHERE group_id = ?
		`, targetID, now, sourceID)
		if err != nil {
			return fmt.Errorf("failed to move members of %s: %w", sourceID, err)
		}

		if _, err := conn.ExecContext(ctx, `DELETE FROM task_groups WHERE id = ?`, sourceID); err != nil {
			return fmt.Errorf("failed to delete merged group %s: %w", sourceID, err)
		}

		if err := recordEvent(ctx, conn, targetID, types.EventGroupMerged, actor, sourceID, targetID, ""); err != nil {
			return err
		}
	}

	if _, err := conn.ExecContext(ctx, `
		UPDATE task_groups SET updated_at = ? WHERE id = ?
	`, now, targetID); err != nil {
		return fmt.Errorf("failed to touch target group: %w", err)
	}

	commit = true
	return done(true)
}

// RenameGroup sets the display name of a group
func (s *SQLiteStorage) RenameGroup(ctx context.Context, groupID, name, actor string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name is required")
	}
	if len(name) > 500 {
		return fmt.Errorf("name must be 500 characters or less (got %d)", len(name))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var oldName string
	err = tx.QueryRowContext(ctx, `SELECT name FROM task_groups WHERE id = ?`, groupID).Scan(&oldName)
	if err == sql.ErrNoRows {
		return fmt.Errorf("group %s: %w", groupID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to get group: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE task_groups SET name = ?, updated_at = ? WHERE id = ?
	`, name, time.Now(), groupID); err != nil {
		return fmt.Errorf("failed to rename group: %w", err)
	}

	if err := recordEvent(ctx, tx, groupID, types.EventGroupRenamed, actor, oldName, name, ""); err != nil {
		return err
	}

	return tx.Commit()
}

// GetGroup retrieves a group by ID
func (s *SQLiteStorage) GetGroup(ctx context.Context, id string) (*types.TaskGroup, error) {
	var group types.TaskGroup
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, owner_id, created_at, updated_at
		FROM task_groups
		WHERE id = ?
	`, id).Scan(&group.ID, &group.Name, &group.OwnerID, &group.CreatedAt, &group.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("group %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return &group, nil
}

// GetGroupMembers returns the live tasks whose group reference points at
// the group, oldest first.
func (s *SQLiteStorage) GetGroupMembers(ctx context.Context, groupID string) ([]*types.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, description, group_id, created_at, updated_at, deleted_at
		FROM tasks
		WHERE group_id = ? AND deleted_at IS NULL
		ORDER BY created_at ASC
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query group members: %w", err)
	}
	defer rows.Close()

	var tasks []*types.Task
	for rows.Next() {
		var task types.Task
		var gid sql.NullString
		var deletedAt sql.NullTime

		if err := rows.Scan(&task.ID, &task.OwnerID, &task.Description, &gid,
			&task.CreatedAt, &task.UpdatedAt, &deletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		if gid.Valid {
			task.GroupID = &gid.String
		}
		tasks = append(tasks, &task)
	}
	return tasks, rows.Err()
}

// ListOwnerGroups returns all groups for one owner, newest first
func (s *SQLiteStorage) ListOwnerGroups(ctx context.Context, ownerID string) ([]*types.TaskGroup, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, owner_id, created_at, updated_at
		FROM task_groups
		WHERE owner_id = ?
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*types.TaskGroup
	for rows.Next() {
		var group types.TaskGroup
		if err := rows.Scan(&group.ID, &group.Name, &group.OwnerID, &group.CreatedAt, &group.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, &group)
	}
	return groups, rows.Err()
}
