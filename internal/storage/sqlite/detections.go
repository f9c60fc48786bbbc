package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/groupthink/groupthink/internal/types"
)

// CreateDetection persists the durable checkpoint for a new run, before any
// external call happens.
func (s *SQLiteStorage) CreateDetection(ctx context.Context, d *types.DuplicateDetection) error {
	if err := d.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	candidates, err := json.Marshal(d.Candidates)
	if err != nil {
		return fmt.Errorf("failed to marshal candidates: %w", err)
	}
	touched, err := json.Marshal(d.TouchedGroups)
	if err != nil {
		return fmt.Errorf("failed to marshal touched groups: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO detections (id, task_id, owner_id, state, candidates, touched_groups, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, d.ID, d.TaskID, d.OwnerID, d.State, string(candidates), string(touched), d.Error, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert detection: %w", err)
	}
	return nil
}

// scanDetection decodes one detection row
func scanDetection(scan func(dest ...interface{}) error) (*types.DuplicateDetection, error) {
	var d types.DuplicateDetection
	var candidates, touched string
	var decision sql.NullString
	var resolvedAt sql.NullTime

	err := scan(&d.ID, &d.TaskID, &d.OwnerID, &d.State, &candidates, &touched,
		&decision, &d.Error, &d.CreatedAt, &d.UpdatedAt, &resolvedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(candidates), &d.Candidates); err != nil {
		return nil, fmt.Errorf("failed to decode candidates: %w", err)
	}
	if err := json.Unmarshal([]byte(touched), &d.TouchedGroups); err != nil {
		return nil, fmt.Errorf("failed to decode touched groups: %w", err)
	}
	if resolvedAt.Valid {
		d.ResolvedAt = &resolvedAt.Time
	}
	return &d, nil
}

const detectionColumns = `id, task_id, owner_id, state, candidates, touched_groups, decision, error, created_at, updated_at, resolved_at`

// GetDetection retrieves a detection run by ID
func (s *SQLiteStorage) GetDetection(ctx context.Context, id string) (*types.DuplicateDetection, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+detectionColumns+` FROM detections WHERE id = ?
	`, id)

	d, err := scanDetection(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("detection %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get detection: %w", err)
	}
	return d, nil
}

// GetDetectionByTask retrieves the most recent detection run for a task
func (s *SQLiteStorage) GetDetectionByTask(ctx context.Context, taskID string) (*types.DuplicateDetection, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+detectionColumns+` FROM detections
		WHERE task_id = ?
		ORDER BY created_at DESC
		LIMIT 1
	`, taskID)

	d, err := scanDetection(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("detection for task %s: %w", taskID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get detection: %w", err)
	}
	return d, nil
}

// TransitionDetection moves a run from one state to another. The WHERE
// clause re-checks the expected current state so a transition raced by
// another writer surfaces as ErrConcurrentModification instead of being
// overwritten.
func (s *SQLiteStorage) TransitionDetection(ctx context.Context, id string, from, to types.DetectionState) error {
	if !to.IsValid() {
		return fmt.Errorf("invalid detection state: %s", to)
	}
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("invalid state transition from %s to %s", from, to)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE detections SET state = ?, updated_at = ?
		WHERE id = ? AND state = ?
	`, to, time.Now(), id, from)
	if err != nil {
		return fmt.Errorf("failed to transition detection: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		current, err := s.GetDetection(ctx, id)
		if err != nil {
			return err
		}
		return fmt.Errorf("detection %s state is %s, expected %s: %w",
			id, current.State, from, ErrConcurrentModification)
	}
	return nil
}

// SetDetectionCandidates stores the ranked match set and the touched groups
// observed at matching time.
func (s *SQLiteStorage) SetDetectionCandidates(ctx context.Context, id string, candidates []types.Candidate, touchedGroups []string) error {
	if candidates == nil {
		candidates = []types.Candidate{}
	}
	if touchedGroups == nil {
		touchedGroups = []string{}
	}

	candJSON, err := json.Marshal(candidates)
	if err != nil {
		return fmt.Errorf("failed to marshal candidates: %w", err)
	}
	touchedJSON, err := json.Marshal(touchedGroups)
	if err != nil {
		return fmt.Errorf("failed to marshal touched groups: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE detections SET candidates = ?, touched_groups = ?, updated_at = ?
		WHERE id = ?
	`, string(candJSON), string(touchedJSON), time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set candidates: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("detection %s: %w", id, ErrNotFound)
	}
	return nil
}

// FailDetection moves a run to the terminal failed state from whatever
// non-terminal state it is in, recording the reason. Failing an already
// terminal run is a no-op so crash-recovery sweeps can call it blindly.
func (s *SQLiteStorage) FailDetection(ctx context.Context, id, reason string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE detections SET state = ?, error = ?, updated_at = ?
		WHERE id = ? AND state NOT IN ('grouped', 'dismissed', 'no_duplicates', 'failed')
	`, types.DetectionStateFailed, reason, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to fail detection: %w", err)
	}
	return nil
}

// ResolveDetection applies the final grouped/dismissed outcome together with
// the decision that produced it. Only runs awaiting an outcome can resolve;
// anything else surfaces as ErrConcurrentModification for the caller's
// idempotence check.
func (s *SQLiteStorage) ResolveDetection(ctx context.Context, id string, to types.DetectionState, decision types.Decision) error {
	if to != types.DetectionStateGrouped && to != types.DetectionStateDismissed {
		return fmt.Errorf("resolution state must be grouped or dismissed (got %s)", to)
	}
	if err := decision.Validate(); err != nil {
		return fmt.Errorf("invalid decision: %w", err)
	}

	decJSON, err := json.Marshal(decision)
	if err != nil {
		return fmt.Errorf("failed to marshal decision: %w", err)
	}

	now := time.Now()
	result, err := s.db.ExecContext(ctx, `
		UPDATE detections SET state = ?, decision = ?, updated_at = ?, resolved_at = ?
		WHERE id = ? AND state IN ('auto_resolved', 'pending_review')
	`, to, string(decJSON), now, now, id)
	if err != nil {
		return fmt.Errorf("failed to resolve detection: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		current, err := s.GetDetection(ctx, id)
		if err != nil {
			return err
		}
		return fmt.Errorf("detection %s is %s, not awaiting resolution: %w",
			id, current.State, ErrConcurrentModification)
	}
	return nil
}

// GetAppliedDecision returns the decision recorded at resolution time, or
// nil when the run has not resolved yet.
func (s *SQLiteStorage) GetAppliedDecision(ctx context.Context, id string) (*types.Decision, error) {
	var decision sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT decision FROM detections WHERE id = ?`, id).Scan(&decision)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("detection %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get decision: %w", err)
	}
	if !decision.Valid {
		return nil, nil
	}

	var d types.Decision
	if err := json.Unmarshal([]byte(decision.String), &d); err != nil {
		return nil, fmt.Errorf("failed to decode decision: %w", err)
	}
	return &d, nil
}

// GetPendingDetections returns runs awaiting a user decision for one owner,
// oldest first. This is the polling source for the notification surface.
func (s *SQLiteStorage) GetPendingDetections(ctx context.Context, ownerID string) ([]*types.DuplicateDetection, error) {
	return s.queryDetections(ctx, `
		SELECT `+detectionColumns+` FROM detections
		WHERE owner_id = ? AND state = 'pending_review'
		ORDER BY created_at ASC
	`, ownerID)
}

// GetUnfinishedDetections returns runs whose state machine still has work
// to do after a restart: anything before a decision point, plus
// auto-resolutions whose group write never landed. Runs pending a user
// review are excluded; they are not the workers' to finish.
func (s *SQLiteStorage) GetUnfinishedDetections(ctx context.Context) ([]*types.DuplicateDetection, error) {
	return s.queryDetections(ctx, `
		SELECT `+detectionColumns+` FROM detections
		WHERE state IN ('created', 'embedding', 'matching', 'resolving', 'auto_resolved')
		ORDER BY created_at ASC
	`)
}

func (s *SQLiteStorage) queryDetections(ctx context.Context, query string, args ...interface{}) ([]*types.DuplicateDetection, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	defer rows.Close()

	var detections []*types.DuplicateDetection
	for rows.Next() {
		d, err := scanDetection(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}
		detections = append(detections, d)
	}
	return detections, rows.Err()
}
