package detector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/groupthink/groupthink/internal/embedding"
	"github.com/groupthink/groupthink/internal/matcher"
	"github.com/groupthink/groupthink/internal/resolver"
	"github.com/groupthink/groupthink/internal/storage"
	"github.com/groupthink/groupthink/internal/types"
)

// errSubjectDeleted aborts a run whose task was deleted mid-flight
var errSubjectDeleted = errors.New("subject task deleted")

// process rolls one detection run forward from whatever state it is in.
// Safe to call twice for the same run: every transition is guarded, so a
// duplicate enqueue (submit plus resume scan) makes one worker a no-op.
func (d *Detector) process(ctx context.Context, id string) error {
	det, err := d.store.GetDetection(ctx, id)
	if err != nil {
		return err
	}

	state := det.State
	for {
		switch state {
		case types.DetectionStateCreated:
			if done := d.advance(ctx, det.ID, state, types.DetectionStateEmbedding); done {
				return nil
			}
			state = types.DetectionStateEmbedding

		case types.DetectionStateEmbedding:
			if err := d.stageEmbed(ctx, det); err != nil {
				return d.failRun(ctx, det.ID, err)
			}
			if done := d.advance(ctx, det.ID, state, types.DetectionStateMatching); done {
				return nil
			}
			state = types.DetectionStateMatching

		case types.DetectionStateMatching:
			if err := d.stageMatch(ctx, det); err != nil {
				return d.failRun(ctx, det.ID, err)
			}
			if done := d.advance(ctx, det.ID, state, types.DetectionStateResolving); done {
				return nil
			}
			state = types.DetectionStateResolving

		case types.DetectionStateResolving:
			return d.stageResolve(ctx, det.ID)

		case types.DetectionStateAutoResolved:
			return d.applyAutoResolution(ctx, det.ID)

		default:
			// Terminal, or pending_review (which belongs to the user now)
			return nil
		}
	}
}

// advance performs one guarded transition. Returns true when the run is no
// longer this worker's to drive (another worker raced us past this state).
func (d *Detector) advance(ctx context.Context, id string, from, to types.DetectionState) bool {
	err := d.store.TransitionDetection(ctx, id, from, to)
	if err == nil {
		return false
	}
	if errors.Is(err, storage.ErrConcurrentModification) {
		log.Printf("[DETECT] detection %s already past %s, yielding", id, from)
		return true
	}
	log.Printf("[DETECT] detection %s transition %s -> %s: %v", id, from, to, err)
	return true
}

// stageEmbed ensures the subject task has a stored vector. Exact
// re-submissions reuse an existing vector instead of calling the provider.
func (d *Detector) stageEmbed(ctx context.Context, det *types.DuplicateDetection) error {
	task, err := d.store.GetTask(ctx, det.TaskID)
	if errors.Is(err, storage.ErrNotFound) {
		return errSubjectDeleted
	}
	if err != nil {
		return err
	}

	if d.descriptionTooShort(task.Description) {
		return errDescriptionTooShort
	}

	hash := embedding.ContentHash(task.Description)

	var vector []float32
	if existing, err := d.store.FindEmbeddingByHash(ctx, det.OwnerID, hash); err == nil &&
		existing.TaskID != task.ID && existing.Model == d.gen.Model() {
		vector = existing.Vector
		log.Printf("[DETECT] detection %s reusing vector from identical task %s", det.ID, existing.TaskID)
	} else {
		vector, err = d.gen.Embed(ctx, task.Description)
		if err != nil {
			// Fail open: the run fails, the task stands alone untouched
			return fmt.Errorf("embedding failed: %w", err)
		}
	}

	return d.store.PutEmbedding(ctx, &types.Embedding{
		TaskID:      task.ID,
		Vector:      vector,
		Model:       d.gen.Model(),
		ContentHash: hash,
		CreatedAt:   time.Now(),
	})
}

// errDescriptionTooShort is an internal signal, not a failure: the run
// concludes no_duplicates because the text is too short to compare.
var errDescriptionTooShort = errors.New("description below minimum length")

// stageMatch scores the subject against the owner's pool and records the
// ranked candidates plus the similarity edges that justify them.
func (d *Detector) stageMatch(ctx context.Context, det *types.DuplicateDetection) error {
	emb, err := d.store.GetEmbedding(ctx, det.TaskID)
	if err != nil {
		return fmt.Errorf("vector missing at matching stage: %w", err)
	}

	pool, err := d.store.GetEmbeddingPool(ctx, det.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to load candidate pool: %w", err)
	}

	candidates := matcher.FindCandidates(emb.Vector, det.TaskID, pool, d.cfg.SimilarityFloor, d.cfg.TopK)

	if len(candidates) > 0 {
		edges := make([]*types.SimilarityEdge, 0, len(candidates))
		for _, c := range candidates {
			edges = append(edges, &types.SimilarityEdge{
				ID:            uuid.New().String(),
				TaskID:        det.TaskID,
				MatchedTaskID: c.TaskID,
				Score:         c.Score,
				DetectionID:   det.ID,
				CreatedAt:     time.Now(),
			})
		}
		if err := d.store.AddSimilarityEdges(ctx, edges); err != nil {
			return fmt.Errorf("failed to record similarity edges: %w", err)
		}
	}

	touched := resolver.Classify(candidates).TouchedGroupIDs
	return d.store.SetDetectionCandidates(ctx, det.ID, candidates, touched)
}

// stageResolve classifies the recorded candidates and routes the run to its
// outcome: no_duplicates, auto resolution, or a review request.
func (d *Detector) stageResolve(ctx context.Context, id string) error {
	det, err := d.store.GetDetection(ctx, id)
	if err != nil {
		return err
	}
	if det.State != types.DetectionStateResolving {
		return nil
	}

	res := resolver.Classify(det.Candidates)

	switch {
	case res.Kind == resolver.NoDuplicates:
		d.advance(ctx, id, types.DetectionStateResolving, types.DetectionStateNoDuplicates)
		return nil

	case res.AutoResolvable(d.cfg.AutoGroupThreshold):
		if done := d.advance(ctx, id, types.DetectionStateResolving, types.DetectionStateAutoResolved); done {
			return nil
		}
		return d.applyAutoResolution(ctx, id)

	default:
		if done := d.advance(ctx, id, types.DetectionStateResolving, types.DetectionStatePendingReview); done {
			return nil
		}
		det.State = types.DetectionStatePendingReview
		d.notifier.DetectionPending(det)
		return nil
	}
}

// failRun moves the run to failed with a reason. The short-description
// signal is not a failure; it concludes the run as no_duplicates instead.
func (d *Detector) failRun(ctx context.Context, id string, cause error) error {
	if errors.Is(cause, errDescriptionTooShort) {
		return d.concludeNoDuplicates(ctx, id)
	}
	if err := d.store.FailDetection(ctx, id, cause.Error()); err != nil {
		return fmt.Errorf("failed to record failure (%v): %w", cause, err)
	}
	log.Printf("[DETECT] detection %s failed: %v", id, cause)
	return nil
}

// concludeNoDuplicates walks a run that has nothing to compare through the
// remaining states to no_duplicates.
func (d *Detector) concludeNoDuplicates(ctx context.Context, id string) error {
	steps := []struct{ from, to types.DetectionState }{
		{types.DetectionStateEmbedding, types.DetectionStateMatching},
		{types.DetectionStateMatching, types.DetectionStateResolving},
		{types.DetectionStateResolving, types.DetectionStateNoDuplicates},
	}
	for _, step := range steps {
		if done := d.advance(ctx, id, step.from, step.to); done {
			return nil
		}
	}
	return nil
}
