package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/groupthink/groupthink/internal/matcher"
	"github.com/groupthink/groupthink/internal/types"
)

// PutEmbedding stores or replaces the vector for a task. Vectors are stored
// as JSON float arrays; pool sizes are per-owner and modest, so the decode
// cost on read is acceptable.
func (s *SQLiteStorage) PutEmbedding(ctx context.Context, emb *types.Embedding) error {
	if err := emb.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	vector, err := json.Marshal(emb.Vector)
	if err != nil {
		return fmt.Errorf("failed to marshal vector: %w", err)
	}

	if emb.CreatedAt.IsZero() {
		emb.CreatedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO embeddings (task_id, vector, model, content_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(task_id) DO UPDATE SET
			vector = excluded.vector,
			model = excluded.model,
			content_hash = excluded.content_hash,
			created_at = excluded.created_at
	`, emb.TaskID, string(vector), emb.Model, emb.ContentHash, emb.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to store embedding: %w", err)
	}
	return nil
}

// GetEmbedding retrieves the cached vector for a task
func (s *SQLiteStorage) GetEmbedding(ctx context.Context, taskID string) (*types.Embedding, error) {
	var emb types.Embedding
	var vector string

	err := s.db.QueryRowContext(ctx, `
		SELECT task_id, vector, model, content_hash, created_at
		FROM embeddings
		WHERE task_id = ?
	`, taskID).Scan(&emb.TaskID, &vector, &emb.Model, &emb.ContentHash, &emb.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("embedding for task %s: %w", taskID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get embedding: %w", err)
	}

	if err := json.Unmarshal([]byte(vector), &emb.Vector); err != nil {
		return nil, fmt.Errorf("failed to decode vector for task %s: %w", taskID, err)
	}
	return &emb, nil
}

// GetEmbeddingPool returns the candidate pool for one owner: every live
// task's vector joined with the metadata the matcher needs for ranking and
// the resolver needs for classification.
func (s *SQLiteStorage) GetEmbeddingPool(ctx context.Context, ownerID string) ([]matcher.PoolEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, e.vector, t.description, COALESCE(t.group_id, ''), t.created_at
		FROM tasks t
		JOIN embeddings e ON e.task_id = t.id
		WHERE t.owner_id = ? AND t.deleted_at IS NULL
		ORDER BY t.created_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query embedding pool: %w", err)
	}
	defer rows.Close()

	var pool []matcher.PoolEntry
	for rows.Next() {
		var entry matcher.PoolEntry
		var vector string

		if err := rows.Scan(&entry.TaskID, &vector, &entry.Description, &entry.GroupID, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pool entry: %w", err)
		}
		if err := json.Unmarshal([]byte(vector), &entry.Vector); err != nil {
			return nil, fmt.Errorf("failed to decode vector for task %s: %w", entry.TaskID, err)
		}
		pool = append(pool, entry)
	}
	return pool, rows.Err()
}

// FindEmbeddingByHash returns a vector computed from identical text for the
// same owner, if one exists. Lets the detector reuse a vector instead of
// calling the provider when a task is an exact re-submission.
func (s *SQLiteStorage) FindEmbeddingByHash(ctx context.Context, ownerID, contentHash string) (*types.Embedding, error) {
	var emb types.Embedding
	var vector string

	err := s.db.QueryRowContext(ctx, `
		SELECT e.task_id, e.vector, e.model, e.content_hash, e.created_at
		FROM embeddings e
		JOIN tasks t ON t.id = e.task_id
		WHERE t.owner_id = ? AND e.content_hash = ? AND t.deleted_at IS NULL
		ORDER BY e.created_at DESC
		LIMIT 1
	`, ownerID, contentHash).Scan(&emb.TaskID, &vector, &emb.Model, &emb.ContentHash, &emb.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("embedding with hash %s: %w", contentHash, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find embedding by hash: %w", err)
	}

	if err := json.Unmarshal([]byte(vector), &emb.Vector); err != nil {
		return nil, fmt.Errorf("failed to decode vector for task %s: %w", emb.TaskID, err)
	}
	return &emb, nil
}
