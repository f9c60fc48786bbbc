package detector

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/groupthink/groupthink/internal/resolver"
	"github.com/groupthink/groupthink/internal/storage"
	"github.com/groupthink/groupthink/internal/types"
)

// actor names recorded on audit events
const (
	actorDetector = "detector"
	actorUser     = "user"
)

// applyAutoResolution executes the group write for a run in auto_resolved
// state. Group memberships may have changed since classification, so the
// write runs in a bounded re-classification loop: each lost race re-reads
// the candidates' current groups and reclassifies before trying again. A
// race that produces a conflict, or exhausting the retries, demotes the run
// to pending_review rather than guessing.
func (d *Detector) applyAutoResolution(ctx context.Context, id string) error {
	det, err := d.store.GetDetection(ctx, id)
	if err != nil {
		return err
	}
	if det.State != types.DetectionStateAutoResolved {
		return nil
	}

	for attempt := 0; attempt <= d.cfg.MaxResolveRetries; attempt++ {
		task, err := d.store.GetTask(ctx, det.TaskID)
		if errors.Is(err, storage.ErrNotFound) {
			return d.failRun(ctx, id, errSubjectDeleted)
		}
		if err != nil {
			return err
		}

		// A competing run may have already pulled the subject into a group
		// (two mutually-similar tasks detect each other simultaneously).
		// That IS the desired outcome; just record it.
		if task.Grouped() {
			return d.markResolved(ctx, det, types.DetectionStateGrouped, types.JoinGroup(*task.GroupID), *task.GroupID)
		}

		fresh, err := d.refreshCandidates(ctx, det.Candidates)
		if err != nil {
			return err
		}
		res := resolver.Classify(fresh)

		switch {
		case res.Kind == resolver.NoDuplicates:
			// Every candidate was deleted out from under us
			return d.markResolved(ctx, det, types.DetectionStateDismissed, types.CreateStandalone(), "")

		case res.Kind == resolver.Conflict:
			return d.demoteToReview(ctx, det)

		case !res.AutoResolvable(d.cfg.AutoGroupThreshold):
			// Memberships moved and the score justifying the new target no
			// longer clears the threshold
			return d.demoteToReview(ctx, det)
		}

		edgeID, err := d.bestEdgeID(ctx, det)
		if err != nil {
			return err
		}

		var decision types.Decision
		var groupID string

		if res.TargetGroupID != "" {
			err = d.groups.JoinGroup(ctx, res.TargetGroupID, []string{det.TaskID}, edgeID, actorDetector)
			decision = types.JoinGroup(res.TargetGroupID)
			groupID = res.TargetGroupID
		} else {
			members := d.autoGroupMembers(det.TaskID, fresh)
			if len(members) < 2 {
				return d.demoteToReview(ctx, det)
			}
			group, formErr := d.groups.FormGroup(ctx, det.OwnerID, members, edgeID, actorDetector)
			err = formErr
			if formErr == nil {
				decision = types.FormGroup(members[1:])
				groupID = group.ID
			}
		}

		if err != nil {
			if errors.Is(err, storage.ErrTaskAlreadyGrouped) ||
				errors.Is(err, storage.ErrConcurrentModification) ||
				errors.Is(err, storage.ErrNotFound) {
				log.Printf("[DETECT] detection %s lost grouping race (attempt %d/%d), reclassifying: %v",
					id, attempt+1, d.cfg.MaxResolveRetries+1, err)
				continue
			}
			return err
		}

		return d.markResolved(ctx, det, types.DetectionStateGrouped, decision, groupID)
	}

	log.Printf("[DETECT] detection %s exhausted grouping retries, demoting to review", id)
	return d.demoteToReview(ctx, det)
}

// autoGroupMembers returns the subject plus every ungrouped candidate whose
// score clears the auto threshold, subject first.
func (d *Detector) autoGroupMembers(subjectID string, candidates []types.Candidate) []string {
	members := []string{subjectID}
	for _, c := range candidates {
		if c.GroupID == "" && c.Score >= d.cfg.AutoGroupThreshold {
			members = append(members, c.TaskID)
		}
	}
	return members
}

// refreshCandidates re-reads each candidate's current group membership,
// dropping candidates whose task was deleted. Scores are kept as recorded;
// only memberships go stale.
func (d *Detector) refreshCandidates(ctx context.Context, candidates []types.Candidate) ([]types.Candidate, error) {
	fresh := make([]types.Candidate, 0, len(candidates))
	for _, c := range candidates {
		task, err := d.store.GetTask(ctx, c.TaskID)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		c.GroupID = ""
		if task.GroupID != nil {
			c.GroupID = *task.GroupID
		}
		fresh = append(fresh, c)
	}
	return fresh, nil
}

// bestEdgeID returns the highest-scoring similarity edge this run recorded,
// for attribution on the membership events it causes.
func (d *Detector) bestEdgeID(ctx context.Context, det *types.DuplicateDetection) (string, error) {
	edges, err := d.store.GetSimilarityEdges(ctx, det.TaskID)
	if err != nil {
		return "", fmt.Errorf("failed to load similarity edges: %w", err)
	}
	var best *types.SimilarityEdge
	for _, e := range edges {
		if e.DetectionID != det.ID {
			continue
		}
		if best == nil || e.Score > best.Score {
			best = e
		}
	}
	if best == nil {
		return "", nil
	}
	return best.ID, nil
}

func (d *Detector) demoteToReview(ctx context.Context, det *types.DuplicateDetection) error {
	if done := d.advance(ctx, det.ID, types.DetectionStateAutoResolved, types.DetectionStatePendingReview); done {
		return nil
	}
	det.State = types.DetectionStatePendingReview
	d.notifier.DetectionPending(det)
	return nil
}

// markResolved records the final outcome and decision. A concurrent
// identical resolution is treated as success.
func (d *Detector) markResolved(ctx context.Context, det *types.DuplicateDetection, to types.DetectionState, decision types.Decision, groupID string) error {
	err := d.store.ResolveDetection(ctx, det.ID, to, decision)
	if errors.Is(err, storage.ErrConcurrentModification) {
		applied, appliedErr := d.store.GetAppliedDecision(ctx, det.ID)
		if appliedErr == nil && applied != nil && applied.Equal(decision) {
			err = nil
		}
	}
	if err != nil {
		return fmt.Errorf("failed to mark detection resolved: %w", err)
	}
	if to == types.DetectionStateGrouped && groupID != "" {
		d.notifier.DetectionAutoResolved(det, groupID)
	}
	return nil
}

// Resolve applies a user decision to a detection awaiting review. Repeating
// the same decision is a no-op; a different decision on an already-resolved
// detection is an error.
func (d *Detector) Resolve(ctx context.Context, detectionID string, decision types.Decision) (*types.DuplicateDetection, error) {
	if err := decision.Validate(); err != nil {
		return nil, fmt.Errorf("invalid decision: %w", err)
	}

	det, err := d.store.GetDetection(ctx, detectionID)
	if err != nil {
		return nil, err
	}

	if det.Resolved() {
		applied, err := d.store.GetAppliedDecision(ctx, detectionID)
		if err != nil {
			return nil, err
		}
		if applied != nil && applied.Equal(decision) {
			return det, nil
		}
		return nil, fmt.Errorf("detection %s already resolved with a different decision", detectionID)
	}

	switch det.State {
	case types.DetectionStatePendingReview, types.DetectionStateAutoResolved:
		// resolvable
	case types.DetectionStateNoDuplicates, types.DetectionStateFailed:
		return nil, fmt.Errorf("detection %s concluded %s and cannot be resolved", detectionID, det.State)
	default:
		return nil, fmt.Errorf("detection %s is still running (state %s)", detectionID, det.State)
	}

	task, err := d.store.GetTask(ctx, det.TaskID)
	if errors.Is(err, storage.ErrNotFound) {
		_ = d.failRun(ctx, detectionID, errSubjectDeleted)
		return nil, fmt.Errorf("subject task %s was deleted", det.TaskID)
	}
	if err != nil {
		return nil, err
	}

	edgeID, err := d.bestEdgeID(ctx, det)
	if err != nil {
		return nil, err
	}

	switch decision.Kind {
	case types.DecisionCreateStandalone, types.DecisionDismiss:
		if err := d.markResolved(ctx, det, types.DetectionStateDismissed, decision, ""); err != nil {
			return nil, err
		}

	case types.DecisionJoinGroup:
		group, err := d.store.GetGroup(ctx, decision.GroupID)
		if err != nil {
			return nil, fmt.Errorf("target group: %w", err)
		}
		if group.OwnerID != det.OwnerID {
			return nil, fmt.Errorf("group %s belongs to a different owner", decision.GroupID)
		}
		if !task.Grouped() || *task.GroupID != group.ID {
			if err := d.groups.JoinGroup(ctx, group.ID, []string{det.TaskID}, edgeID, actorUser); err != nil {
				return nil, err
			}
		}
		if err := d.markResolved(ctx, det, types.DetectionStateGrouped, decision, ""); err != nil {
			return nil, err
		}

	case types.DecisionFormGroup:
		for _, taskID := range decision.TaskIDs {
			if taskID == det.TaskID {
				return nil, fmt.Errorf("form_group task list must not include the subject task")
			}
			member, err := d.store.GetTask(ctx, taskID)
			if err != nil {
				return nil, fmt.Errorf("group member %s: %w", taskID, err)
			}
			if member.OwnerID != det.OwnerID {
				return nil, fmt.Errorf("task %s belongs to a different owner", taskID)
			}
		}
		members := append([]string{det.TaskID}, decision.TaskIDs...)
		if _, err := d.groups.FormGroup(ctx, det.OwnerID, members, edgeID, actorUser); err != nil {
			return nil, err
		}
		if err := d.markResolved(ctx, det, types.DetectionStateGrouped, decision, ""); err != nil {
			return nil, err
		}
	}

	return d.store.GetDetection(ctx, detectionID)
}
