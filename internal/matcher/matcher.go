// Package matcher scores a query embedding against a pool of existing task
// embeddings and returns the ranked candidates above the similarity floor.
//
// The scan is a deliberate O(pool) brute force: pools are scoped to a single
// owner and stay small. An ANN index could replace it behind the same
// FindCandidates contract if pools ever grow, as long as recall above the
// floor is preserved.
package matcher

import (
	"math"
	"sort"
	"time"

	"github.com/groupthink/groupthink/internal/types"
)

// PoolEntry is one existing task's embedding plus the metadata the ranking
// and the downstream classification need.
type PoolEntry struct {
	TaskID      string
	Vector      []float32
	Description string
	GroupID     string // empty when the task is ungrouped
	CreatedAt   time.Time
}

// CosineSimilarity computes the cosine similarity of two vectors.
// Mismatched or zero-norm vectors score 0 rather than erroring: a malformed
// pool entry should never sink a whole detection run.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// FindCandidates scores the query vector against every pool entry and
// returns the top K entries at or above the floor, sorted descending by
// score. Ties break toward the more recently created task. The entry for
// excludeTaskID (the subject itself) is skipped.
func FindCandidates(query []float32, excludeTaskID string, pool []PoolEntry, floor float64, topK int) []types.Candidate {
	type scored struct {
		entry PoolEntry
		score float64
	}

	var hits []scored
	for _, entry := range pool {
		if entry.TaskID == excludeTaskID {
			continue
		}
		score := CosineSimilarity(query, entry.Vector)
		if score < floor {
			continue
		}
		// Floating point can nudge a perfect match past 1.0.
		if score > 1.0 {
			score = 1.0
		}
		hits = append(hits, scored{entry: entry, score: score})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].entry.CreatedAt.After(hits[j].entry.CreatedAt)
	})

	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}

	candidates := make([]types.Candidate, 0, len(hits))
	for _, h := range hits {
		candidates = append(candidates, types.Candidate{
			TaskID:      h.entry.TaskID,
			Score:       h.score,
			Description: h.entry.Description,
			GroupID:     h.entry.GroupID,
		})
	}
	return candidates
}
