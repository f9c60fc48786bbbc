// Package resolver classifies a detection run's candidate set against
// current group memberships. It is a pure function of its inputs and
// performs no writes, which keeps the conflict logic testable in isolation
// from the group manager's transactional concerns.
package resolver

import (
	"github.com/groupthink/groupthink/internal/types"
)

// Kind is the classification outcome for one candidate set
type Kind string

const (
	// NoDuplicates means nothing scored at or above the floor.
	NoDuplicates Kind = "no_duplicates"
	// SingleTarget means every grouped candidate points at the same group,
	// or no candidate is grouped at all.
	SingleTarget Kind = "single_target"
	// Conflict means candidates span two or more distinct groups. The engine
	// never silently picks one; all touched groups are surfaced.
	Conflict Kind = "conflict"
)

// Resolution is the classifier's verdict for one detection run.
type Resolution struct {
	Kind Kind

	// TargetGroupID is set for SingleTarget when the candidates already
	// belong to an existing group the subject should join.
	TargetGroupID string

	// TouchedGroupIDs lists every distinct group the candidates belong to,
	// in first-seen (score-descending) order. Len >= 2 implies Conflict.
	TouchedGroupIDs []string

	// UngroupedTaskIDs lists candidates with no group, in score order.
	// For a SingleTarget with no TargetGroupID these are the tasks a new
	// group would be formed from.
	UngroupedTaskIDs []string

	// TopScore is the best candidate score, 0 when there are no candidates.
	TopScore float64

	// TargetScore is the best score among candidates in TargetGroupID, or
	// TopScore when no candidate is grouped. A high-scoring ungrouped
	// candidate must not lend its confidence to joining an existing group
	// whose own best match is weaker.
	TargetScore float64
}

// AutoResolvable reports whether the resolution may be applied without a
// user decision: a single target justified by a score that clears the auto
// threshold. Conflicts are never auto-resolved.
func (r Resolution) AutoResolvable(autoThreshold float64) bool {
	return r.Kind == SingleTarget && r.TargetScore >= autoThreshold
}

// Classify interprets the ranked candidate list. Candidates carry the group
// membership observed at matching time; callers re-run Classify with fresh
// memberships after losing an optimistic-concurrency race.
//
// Classification:
//  1. Empty candidate list → NoDuplicates.
//  2. All grouped candidates share one group, or none are grouped → SingleTarget.
//  3. Candidates span two or more groups → Conflict, naming every touched group.
func Classify(candidates []types.Candidate) Resolution {
	if len(candidates) == 0 {
		return Resolution{Kind: NoDuplicates}
	}

	res := Resolution{TopScore: candidates[0].Score}
	seen := make(map[string]bool)
	bestPerGroup := make(map[string]float64)
	for _, c := range candidates {
		if c.Score > res.TopScore {
			res.TopScore = c.Score
		}
		if c.GroupID == "" {
			res.UngroupedTaskIDs = append(res.UngroupedTaskIDs, c.TaskID)
			continue
		}
		if c.Score > bestPerGroup[c.GroupID] {
			bestPerGroup[c.GroupID] = c.Score
		}
		if !seen[c.GroupID] {
			seen[c.GroupID] = true
			res.TouchedGroupIDs = append(res.TouchedGroupIDs, c.GroupID)
		}
	}

	switch len(res.TouchedGroupIDs) {
	case 0:
		res.Kind = SingleTarget
		res.TargetScore = res.TopScore
	case 1:
		res.Kind = SingleTarget
		res.TargetGroupID = res.TouchedGroupIDs[0]
		res.TargetScore = bestPerGroup[res.TargetGroupID]
	default:
		res.Kind = Conflict
	}
	return res
}
