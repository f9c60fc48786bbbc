package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/groupthink/groupthink/internal/types"
)

func TestClassifyNoDuplicates(t *testing.T) {
	res := Classify(nil)
	assert.Equal(t, NoDuplicates, res.Kind)
	assert.Zero(t, res.TopScore)
	assert.False(t, res.AutoResolvable(0.95))
}

func TestClassifySingleTargetExistingGroup(t *testing.T) {
	res := Classify([]types.Candidate{
		{TaskID: "a", Score: 0.97, GroupID: "g-1"},
		{TaskID: "b", Score: 0.91, GroupID: "g-1"},
		{TaskID: "c", Score: 0.85},
	})

	assert.Equal(t, SingleTarget, res.Kind)
	assert.Equal(t, "g-1", res.TargetGroupID)
	assert.Equal(t, []string{"g-1"}, res.TouchedGroupIDs)
	assert.Equal(t, []string{"c"}, res.UngroupedTaskIDs)
	assert.InDelta(t, 0.97, res.TopScore, 1e-9)
}

func TestClassifySingleTargetAllUngrouped(t *testing.T) {
	res := Classify([]types.Candidate{
		{TaskID: "a", Score: 0.96},
		{TaskID: "b", Score: 0.88},
	})

	assert.Equal(t, SingleTarget, res.Kind)
	assert.Empty(t, res.TargetGroupID)
	assert.Empty(t, res.TouchedGroupIDs)
	assert.Equal(t, []string{"a", "b"}, res.UngroupedTaskIDs)
}

func TestClassifyConflict(t *testing.T) {
	res := Classify([]types.Candidate{
		{TaskID: "a", Score: 0.99, GroupID: "g-2"},
		{TaskID: "b", Score: 0.97, GroupID: "g-1"},
		{TaskID: "c", Score: 0.96, GroupID: "g-2"},
		{TaskID: "d", Score: 0.90},
	})

	assert.Equal(t, Conflict, res.Kind)
	assert.Empty(t, res.TargetGroupID)
	// Every touched group is surfaced, in score order, without duplicates
	assert.Equal(t, []string{"g-2", "g-1"}, res.TouchedGroupIDs)
	assert.Equal(t, []string{"d"}, res.UngroupedTaskIDs)

	// Conflicts are never auto-resolved, no matter the score
	assert.False(t, res.AutoResolvable(0.95))
}

func TestAutoResolvable(t *testing.T) {
	single := Classify([]types.Candidate{{TaskID: "a", Score: 0.97, GroupID: "g-1"}})
	assert.True(t, single.AutoResolvable(0.95))
	assert.False(t, single.AutoResolvable(0.98), "below the auto threshold needs review")

	// Boundary: the threshold itself qualifies
	exact := Classify([]types.Candidate{{TaskID: "a", Score: 0.95}})
	assert.True(t, exact.AutoResolvable(0.95))
}

func TestAutoResolvableUsesTargetGroupScore(t *testing.T) {
	// A strong ungrouped candidate must not lend its confidence to joining
	// a group whose own best match is weak.
	res := Classify([]types.Candidate{
		{TaskID: "a", Score: 0.96},
		{TaskID: "b", Score: 0.85, GroupID: "g-1"},
	})

	assert.Equal(t, SingleTarget, res.Kind)
	assert.Equal(t, "g-1", res.TargetGroupID)
	assert.InDelta(t, 0.96, res.TopScore, 1e-9)
	assert.InDelta(t, 0.85, res.TargetScore, 1e-9)
	assert.False(t, res.AutoResolvable(0.95))

	// Without any grouped candidate the top score is the justification
	ungrouped := Classify([]types.Candidate{{TaskID: "a", Score: 0.96}})
	assert.InDelta(t, 0.96, ungrouped.TargetScore, 1e-9)
	assert.True(t, ungrouped.AutoResolvable(0.95))
}
