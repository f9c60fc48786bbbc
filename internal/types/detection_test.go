package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectionStateIsValid(t *testing.T) {
	valid := []DetectionState{
		DetectionStateCreated, DetectionStateEmbedding, DetectionStateMatching,
		DetectionStateResolving, DetectionStateAutoResolved, DetectionStatePendingReview,
		DetectionStateNoDuplicates, DetectionStateGrouped, DetectionStateDismissed,
		DetectionStateFailed,
	}
	for _, s := range valid {
		assert.True(t, s.IsValid(), "state %s should be valid", s)
	}
	assert.False(t, DetectionState("").IsValid())
	assert.False(t, DetectionState("embedding ").IsValid())
	assert.False(t, DetectionState("done").IsValid())
}

func TestDetectionStateTransitions(t *testing.T) {
	tests := []struct {
		from    DetectionState
		to      DetectionState
		allowed bool
	}{
		{DetectionStateCreated, DetectionStateEmbedding, true},
		{DetectionStateCreated, DetectionStateFailed, true},
		{DetectionStateCreated, DetectionStateMatching, false},
		{DetectionStateEmbedding, DetectionStateMatching, true},
		{DetectionStateEmbedding, DetectionStateResolving, false},
		{DetectionStateMatching, DetectionStateResolving, true},
		{DetectionStateResolving, DetectionStateAutoResolved, true},
		{DetectionStateResolving, DetectionStatePendingReview, true},
		{DetectionStateResolving, DetectionStateNoDuplicates, true},
		{DetectionStateResolving, DetectionStateGrouped, false},
		{DetectionStateAutoResolved, DetectionStateGrouped, true},
		{DetectionStateAutoResolved, DetectionStateDismissed, true},
		{DetectionStateAutoResolved, DetectionStatePendingReview, true},
		{DetectionStatePendingReview, DetectionStateGrouped, true},
		{DetectionStatePendingReview, DetectionStateDismissed, true},
		{DetectionStatePendingReview, DetectionStateAutoResolved, false},
		// Terminal states go nowhere
		{DetectionStateGrouped, DetectionStateDismissed, false},
		{DetectionStateDismissed, DetectionStateGrouped, false},
		{DetectionStateNoDuplicates, DetectionStateEmbedding, false},
		{DetectionStateFailed, DetectionStateCreated, false},
	}

	for _, tt := range tests {
		got := tt.from.CanTransitionTo(tt.to)
		assert.Equal(t, tt.allowed, got, "%s -> %s", tt.from, tt.to)
	}
}

func TestDetectionStateIsTerminal(t *testing.T) {
	terminal := []DetectionState{
		DetectionStateNoDuplicates, DetectionStateGrouped,
		DetectionStateDismissed, DetectionStateFailed,
	}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), "state %s should be terminal", s)
		assert.Empty(t, s.ValidTransitions())
	}

	// pending_review and auto_resolved still owe an outcome
	assert.False(t, DetectionStatePendingReview.IsTerminal())
	assert.False(t, DetectionStateAutoResolved.IsTerminal())
	assert.False(t, DetectionStateCreated.IsTerminal())
}

func TestDetectionStateStatus(t *testing.T) {
	assert.Equal(t, DetectionStatusGrouped, DetectionStateGrouped.Status())
	assert.Equal(t, DetectionStatusDismissed, DetectionStateDismissed.Status())
	assert.Equal(t, DetectionStatusDismissed, DetectionStateNoDuplicates.Status())
	assert.Equal(t, DetectionStatusFailed, DetectionStateFailed.Status())
	assert.Equal(t, DetectionStatusPending, DetectionStateCreated.Status())
	assert.Equal(t, DetectionStatusPending, DetectionStatePendingReview.Status())
	assert.Equal(t, DetectionStatusPending, DetectionStateAutoResolved.Status())
}

func TestDuplicateDetectionValidate(t *testing.T) {
	det := &DuplicateDetection{
		ID:      "det-1",
		TaskID:  "task-1",
		OwnerID: "owner-1",
		State:   DetectionStateCreated,
	}
	assert.NoError(t, det.Validate())

	missing := *det
	missing.TaskID = ""
	assert.Error(t, missing.Validate())

	badState := *det
	badState.State = "running"
	assert.Error(t, badState.Validate())

	badCandidate := *det
	badCandidate.Candidates = []Candidate{{TaskID: "t", Score: 1.2}}
	assert.Error(t, badCandidate.Validate())
}
