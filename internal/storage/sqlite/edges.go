package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/groupthink/groupthink/internal/types"
)

// AddSimilarityEdges appends edge records in one transaction. Edges are
// never updated or deleted: a later detection run supersedes them with
// fresh rows.
func (s *SQLiteStorage) AddSimilarityEdges(ctx context.Context, edges []*types.SimilarityEdge) error {
	if len(edges) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, edge := range edges {
		if err := edge.Validate(); err != nil {
			return fmt.Errorf("invalid edge at index %d: %w", i, err)
		}
		if edge.CreatedAt.IsZero() {
			edge.CreatedAt = time.Now()
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO similarity_edges (id, task_id, matched_task_id, score, detection_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, edge.ID, edge.TaskID, edge.MatchedTaskID, edge.Score, edge.DetectionID, edge.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert edge: %w", err)
		}
	}

	return tx.Commit()
}

// GetSimilarityEdges returns every edge recorded for a task in either
// direction, newest first.
func (s *SQLiteStorage) GetSimilarityEdges(ctx context.Context, taskID string) ([]*types.SimilarityEdge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, matched_task_id, score, detection_id, created_at
		FROM similarity_edges
		WHERE task_id = ? OR matched_task_id = ?
		ORDER BY created_at DESC
	`, taskID, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	var edges []*types.SimilarityEdge
	for rows.Next() {
		var edge types.SimilarityEdge
		if err := rows.Scan(&edge.ID, &edge.TaskID, &edge.MatchedTaskID,
			&edge.Score, &edge.DetectionID, &edge.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		edges = append(edges, &edge)
	}
	return edges, rows.Err()
}
