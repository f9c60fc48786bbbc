package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/groupthink/groupthink/internal/types"
)

// GetEvents returns the audit trail for one subject (a task or a group),
// newest first, capped at limit (0 means no cap).
func (s *SQLiteStorage) GetEvents(ctx context.Context, subjectID string, limit int) ([]*types.Event, error) {
	query := `
		SELECT id, subject_id, event_type, actor, old_value, new_value, edge_id, created_at
		FROM events
		WHERE subject_id = ?
		ORDER BY created_at DESC, id DESC
	`
	args := []interface{}{subjectID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*types.Event
	for rows.Next() {
		var e types.Event
		var oldValue, newValue, edgeID sql.NullString
		if err := rows.Scan(&e.ID, &e.SubjectID, &e.EventType, &e.Actor,
			&oldValue, &newValue, &edgeID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if oldValue.Valid {
			e.OldValue = &oldValue.String
		}
		if newValue.Valid {
			e.NewValue = &newValue.String
		}
		if edgeID.Valid {
			e.EdgeID = &edgeID.String
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}
