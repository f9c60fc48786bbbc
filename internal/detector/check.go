package detector

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/groupthink/groupthink/internal/embedding"
	"github.com/groupthink/groupthink/internal/matcher"
	"github.com/groupthink/groupthink/internal/resolver"
	"github.com/groupthink/groupthink/internal/storage"
	"github.com/groupthink/groupthink/internal/types"
)

// Preview is the result of a read-only duplicate check: the computed
// embedding, the ranked candidates, and their classification, with nothing
// persisted. The embedding is returned so a check-then-add caller can reuse
// the vector instead of paying for a second provider call.
type Preview struct {
	Embedding  []float32
	Candidates []types.Candidate
	Resolution resolver.Resolution
}

// CheckDuplicates scores a hypothetical description against the owner's
// pool without creating a task or a detection record. Identical existing
// text reuses its stored vector; otherwise the provider is called, and
// provider errors surface directly since there is no record to fail open on.
func (d *Detector) CheckDuplicates(ctx context.Context, ownerID, description string) (*Preview, error) {
	description = strings.TrimSpace(description)
	if d.descriptionTooShort(description) {
		return &Preview{Resolution: resolver.Resolution{Kind: resolver.NoDuplicates}}, nil
	}

	var vector []float32
	hash := embedding.ContentHash(description)
	if existing, err := d.store.FindEmbeddingByHash(ctx, ownerID, hash); err == nil &&
		existing.Model == d.gen.Model() {
		vector = existing.Vector
	} else if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	} else {
		vector, err = d.gen.Embed(ctx, description)
		if err != nil {
			return nil, fmt.Errorf("embedding failed: %w", err)
		}
	}

	pool, err := d.store.GetEmbeddingPool(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate pool: %w", err)
	}

	candidates := matcher.FindCandidates(vector, "", pool, d.cfg.SimilarityFloor, d.cfg.TopK)
	return &Preview{
		Embedding:  vector,
		Candidates: candidates,
		Resolution: resolver.Classify(candidates),
	}, nil
}

// PendingDetections lists this owner's runs awaiting a decision, oldest
// first.
func (d *Detector) PendingDetections(ctx context.Context, ownerID string) ([]*types.DuplicateDetection, error) {
	return d.store.GetPendingDetections(ctx, ownerID)
}
