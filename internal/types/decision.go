package types

import "fmt"

// DecisionKind enumerates the four shapes a resolve decision can take
type DecisionKind string

const (
	// DecisionCreateStandalone leaves the subject task ungrouped.
	DecisionCreateStandalone DecisionKind = "create_standalone"
	// DecisionJoinGroup adds the subject task to an existing group.
	DecisionJoinGroup DecisionKind = "join_group"
	// DecisionFormGroup forms a new group from the subject task and the
	// listed ungrouped candidates.
	DecisionFormGroup DecisionKind = "form_group"
	// DecisionDismiss marks the suggestion as unrelated.
	DecisionDismiss DecisionKind = "dismiss"
)

// Decision is the tagged union passed to ResolveDetection. Exactly one
// variant applies, and each variant carries only the fields it needs:
// JoinGroup carries GroupID, FormGroup carries TaskIDs.
type Decision struct {
	Kind    DecisionKind `json:"kind"`
	GroupID string       `json:"group_id,omitempty"`
	TaskIDs []string     `json:"task_ids,omitempty"`
}

// CreateStandalone returns a decision that leaves the task ungrouped.
func CreateStandalone() Decision {
	return Decision{Kind: DecisionCreateStandalone}
}

// JoinGroup returns a decision that joins the given existing group.
func JoinGroup(groupID string) Decision {
	return Decision{Kind: DecisionJoinGroup, GroupID: groupID}
}

// FormGroup returns a decision that forms a new group from the subject and
// the given candidate tasks.
func FormGroup(taskIDs []string) Decision {
	return Decision{Kind: DecisionFormGroup, TaskIDs: taskIDs}
}

// Dismiss returns a decision that treats the suggestion as unrelated.
func Dismiss() Decision {
	return Decision{Kind: DecisionDismiss}
}

// Validate checks that the decision carries exactly the fields its variant
// requires and nothing else.
func (d Decision) Validate() error {
	switch d.Kind {
	case DecisionCreateStandalone, DecisionDismiss:
		if d.GroupID != "" || len(d.TaskIDs) > 0 {
			return fmt.Errorf("%s decision must not carry a group or task list", d.Kind)
		}
	case DecisionJoinGroup:
		if d.GroupID == "" {
			return fmt.Errorf("join_group decision requires a group id")
		}
		if len(d.TaskIDs) > 0 {
			return fmt.Errorf("join_group decision must not carry a task list")
		}
	case DecisionFormGroup:
		if len(d.TaskIDs) == 0 {
			return fmt.Errorf("form_group decision requires at least one task id")
		}
		if d.GroupID != "" {
			return fmt.Errorf("form_group decision must not carry a group id")
		}
	default:
		return fmt.Errorf("invalid decision kind: %q", d.Kind)
	}
	return nil
}

// Equal reports whether two decisions are identical. Used to make repeated
// resolve calls idempotent: the same decision twice is a no-op, a different
// decision on a resolved detection is an error.
func (d Decision) Equal(other Decision) bool {
	if d.Kind != other.Kind || d.GroupID != other.GroupID {
		return false
	}
	if len(d.TaskIDs) != len(other.TaskIDs) {
		return false
	}
	for i := range d.TaskIDs {
		if d.TaskIDs[i] != other.TaskIDs[i] {
			return false
		}
	}
	return true
}
