package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecisionValidate(t *testing.T) {
	tests := []struct {
		name     string
		decision Decision
		wantErr  bool
	}{
		{"standalone", CreateStandalone(), false},
		{"dismiss", Dismiss(), false},
		{"join", JoinGroup("g-1"), false},
		{"form", FormGroup([]string{"t-1", "t-2"}), false},
		{"join without group", Decision{Kind: DecisionJoinGroup}, true},
		{"form without tasks", Decision{Kind: DecisionFormGroup}, true},
		{"standalone with group", Decision{Kind: DecisionCreateStandalone, GroupID: "g-1"}, true},
		{"dismiss with tasks", Decision{Kind: DecisionDismiss, TaskIDs: []string{"t-1"}}, true},
		{"join with tasks", Decision{Kind: DecisionJoinGroup, GroupID: "g-1", TaskIDs: []string{"t-1"}}, true},
		{"form with group", Decision{Kind: DecisionFormGroup, TaskIDs: []string{"t-1"}, GroupID: "g-1"}, true},
		{"unknown kind", Decision{Kind: "merge"}, true},
		{"empty", Decision{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.decision.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDecisionEqual(t *testing.T) {
	assert.True(t, CreateStandalone().Equal(CreateStandalone()))
	assert.True(t, JoinGroup("g-1").Equal(JoinGroup("g-1")))
	assert.True(t, FormGroup([]string{"a", "b"}).Equal(FormGroup([]string{"a", "b"})))

	assert.False(t, CreateStandalone().Equal(Dismiss()))
	assert.False(t, JoinGroup("g-1").Equal(JoinGroup("g-2")))
	assert.False(t, FormGroup([]string{"a", "b"}).Equal(FormGroup([]string{"b", "a"})))
	assert.False(t, FormGroup([]string{"a"}).Equal(FormGroup([]string{"a", "b"})))
}
