package types

import (
	"fmt"
	"time"
)

// DetectionState represents the phase of one detection run's state machine
type DetectionState string

const (
	DetectionStateCreated      DetectionState = "created"        // Record persisted, nothing run yet
	DetectionStateEmbedding    DetectionState = "embedding"      // Waiting on the embedding provider
	DetectionStateMatching     DetectionState = "matching"       // Scoring against the owner's pool
	DetectionStateResolving    DetectionState = "resolving"      // Applying conflict classification
	DetectionStateAutoResolved DetectionState = "auto_resolved"  // Grouped without asking
	DetectionStatePendingReview DetectionState = "pending_review" // Waiting on a user decision
	DetectionStateNoDuplicates DetectionState = "no_duplicates"  // Nothing above the floor
	DetectionStateGrouped      DetectionState = "grouped"        // Decision applied, subject grouped
	DetectionStateDismissed    DetectionState = "dismissed"      // Decision applied, left standalone
	DetectionStateFailed       DetectionState = "failed"         // Embedding or matching failed (terminal)
)

// IsValid checks if the detection state value is valid
func (s DetectionState) IsValid() bool {
	switch s {
	case DetectionStateCreated, DetectionStateEmbedding, DetectionStateMatching,
		DetectionStateResolving, DetectionStateAutoResolved, DetectionStatePendingReview,
		DetectionStateNoDuplicates, DetectionStateGrouped, DetectionStateDismissed,
		DetectionStateFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the state machine is done for this run.
// AutoResolved and PendingReview are not terminal: both still owe a
// grouped/dismissed outcome once the decision (automatic or human) lands.
func (s DetectionState) IsTerminal() bool {
	switch s {
	case DetectionStateNoDuplicates, DetectionStateGrouped, DetectionStateDismissed, DetectionStateFailed:
		return true
	}
	return false
}

// ValidTransitions defines the detection run state machine.
//
//	created → embedding → matching → resolving → auto_resolved → grouped
//	    ↓         ↓           ↓          ↓      ↘ pending_review → grouped | dismissed
//	  failed    failed      failed     failed  ↘ no_duplicates
//
// Any pre-resolution state may fail; failed, no_duplicates, grouped and
// dismissed are terminal.
func (s DetectionState) ValidTransitions() []DetectionState {
	switch s {
	case DetectionStateCreated:
		return []DetectionState{DetectionStateEmbedding, DetectionStateFailed}
	case DetectionStateEmbedding:
		return []DetectionState{DetectionStateMatching, DetectionStateFailed}
	case DetectionStateMatching:
		return []DetectionState{DetectionStateResolving, DetectionStateFailed}
	case DetectionStateResolving:
		return []DetectionState{DetectionStateAutoResolved, DetectionStatePendingReview,
			DetectionStateNoDuplicates, DetectionStateFailed}
	case DetectionStateAutoResolved:
		// pending_review is reachable here too: losing a concurrency race
		// during the group write can turn a clean auto-resolution into a
		// conflict that needs a human.
		return []DetectionState{DetectionStateGrouped, DetectionStateDismissed,
			DetectionStatePendingReview, DetectionStateFailed}
	case DetectionStatePendingReview:
		return []DetectionState{DetectionStateGrouped, DetectionStateDismissed, DetectionStateFailed}
	default:
		return []DetectionState{} // Terminal states
	}
}

// CanTransitionTo checks if a transition from this state to the target state is valid
func (s DetectionState) CanTransitionTo(target DetectionState) bool {
	for _, valid := range s.ValidTransitions() {
		if valid == target {
			return true
		}
	}
	return false
}

// DetectionStatus is the coarse user-facing status of a detection run
type DetectionStatus string

const (
	DetectionStatusPending   DetectionStatus = "pending"
	DetectionStatusGrouped   DetectionStatus = "grouped"
	DetectionStatusDismissed DetectionStatus = "dismissed"
	DetectionStatusFailed    DetectionStatus = "failed"
)

// Status maps the fine-grained machine state to the coarse status surfaced
// to collaborators. An auto-terminal no_duplicates run reads as dismissed.
func (s DetectionState) Status() DetectionStatus {
	switch s {
	case DetectionStateGrouped:
		return DetectionStatusGrouped
	case DetectionStateDismissed, DetectionStateNoDuplicates:
		return DetectionStatusDismissed
	case DetectionStateFailed:
		return DetectionStatusFailed
	default:
		return DetectionStatusPending
	}
}

// DuplicateDetection is the durable checkpoint record for one detection run.
// It is created with state=created before any external call, mutated only by
// the orchestrator and by the user's resolve decision, and never deleted.
type DuplicateDetection struct {
	ID           string         `json:"id"`
	TaskID       string         `json:"task_id"`
	OwnerID      string         `json:"owner_id"`
	State        DetectionState `json:"state"`
	Candidates   []Candidate    `json:"candidates,omitempty"`
	TouchedGroups []string      `json:"touched_groups,omitempty"`
	Error        string         `json:"error,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	ResolvedAt   *time.Time     `json:"resolved_at,omitempty"`
}

// Validate checks if the detection has valid field values
func (d *DuplicateDetection) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("id is required")
	}
	if d.TaskID == "" {
		return fmt.Errorf("task_id is required")
	}
	if d.OwnerID == "" {
		return fmt.Errorf("owner_id is required")
	}
	if !d.State.IsValid() {
		return fmt.Errorf("invalid state: %s", d.State)
	}
	for i := range d.Candidates {
		if err := d.Candidates[i].Validate(); err != nil {
			return fmt.Errorf("invalid candidate at index %d: %w", i, err)
		}
	}
	return nil
}

// Status returns the coarse status of the run.
func (d *DuplicateDetection) Status() DetectionStatus {
	return d.State.Status()
}

// Resolved reports whether a grouped/dismissed outcome has been applied.
func (d *DuplicateDetection) Resolved() bool {
	return d.State == DetectionStateGrouped || d.State == DetectionStateDismissed
}
