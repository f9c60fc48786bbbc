package types

import (
	"fmt"
	"strings"
	"time"
)

// Task represents one free-text task or feedback item submitted by a user.
// The group reference is the only field this engine mutates; everything else
// belongs to the intake collaborator.
type Task struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	Description string     `json:"description"`
	GroupID     *string    `json:"group_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// Validate checks if the task has valid field values
func (t *Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("id is required")
	}
	if t.OwnerID == "" {
		return fmt.Errorf("owner_id is required")
	}
	if strings.TrimSpace(t.Description) == "" {
		return fmt.Errorf("description is required")
	}
	if len(t.Description) > 10000 {
		return fmt.Errorf("description must be 10000 characters or less (got %d)", len(t.Description))
	}
	return nil
}

// Grouped reports whether the task currently belongs to a group.
func (t *Task) Grouped() bool {
	return t.GroupID != nil && *t.GroupID != ""
}

// TaskGroup is a named cluster of tasks considered duplicates or variants
// of one another. Membership is derived from tasks' group references and
// is never stored redundantly on the group row.
type TaskGroup struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks if the group has valid field values
func (g *TaskGroup) Validate() error {
	if g.ID == "" {
		return fmt.Errorf("id is required")
	}
	if g.OwnerID == "" {
		return fmt.Errorf("owner_id is required")
	}
	if len(g.Name) > 500 {
		return fmt.Errorf("name must be 500 characters or less (got %d)", len(g.Name))
	}
	return nil
}

// DefaultGroupName builds the fallback display name for a group formed
// without an explicit name.
func DefaultGroupName(memberCount int, at time.Time) string {
	return fmt.Sprintf("Group of %d tasks - %s", memberCount, at.Format("2006-01-02 15:04"))
}

// Embedding is the fixed-dimension vector computed from a task's description.
// ContentHash is the hash of the description at compute time; a mismatch
// means the description was edited and the vector is stale.
type Embedding struct {
	TaskID      string    `json:"task_id"`
	Vector      []float32 `json:"vector"`
	Model       string    `json:"model"`
	ContentHash string    `json:"content_hash"`
	CreatedAt   time.Time `json:"created_at"`
}

// Validate checks if the embedding has valid field values
func (e *Embedding) Validate() error {
	if e.TaskID == "" {
		return fmt.Errorf("task_id is required")
	}
	if len(e.Vector) == 0 {
		return fmt.Errorf("vector is required")
	}
	if e.Model == "" {
		return fmt.Errorf("model is required")
	}
	return nil
}

// SimilarityEdge records the historical fact that MatchedTaskID was found
// Score-similar to TaskID by one detection run. Edges are audit records:
// they are superseded by newer runs, never deleted.
type SimilarityEdge struct {
	ID            string    `json:"id"`
	TaskID        string    `json:"task_id"`
	MatchedTaskID string    `json:"matched_task_id"`
	Score         float64   `json:"score"`
	DetectionID   string    `json:"detection_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// Validate checks if the similarity edge has valid field values
func (e *SimilarityEdge) Validate() error {
	if e.TaskID == "" {
		return fmt.Errorf("task_id is required")
	}
	if e.MatchedTaskID == "" {
		return fmt.Errorf("matched_task_id is required")
	}
	if e.TaskID == e.MatchedTaskID {
		return fmt.Errorf("a task cannot be similar to itself")
	}
	if e.Score < 0.0 || e.Score > 1.0 {
		return fmt.Errorf("score must be between 0.0 and 1.0 (got %.4f)", e.Score)
	}
	return nil
}

// Candidate is one ranked match surfaced by the similarity matcher.
// GroupID is the matched task's group at detection time, empty when the
// matched task is ungrouped.
type Candidate struct {
	TaskID      string  `json:"task_id"`
	Score       float64 `json:"score"`
	Description string  `json:"description,omitempty"`
	GroupID     string  `json:"group_id,omitempty"`
}

// Validate checks if the candidate has valid field values
func (c *Candidate) Validate() error {
	if c.TaskID == "" {
		return fmt.Errorf("task_id is required")
	}
	if c.Score < 0.0 || c.Score > 1.0 {
		return fmt.Errorf("score must be between 0.0 and 1.0 (got %.4f)", c.Score)
	}
	return nil
}

// EventType categorizes audit trail events
type EventType string

const (
	EventGroupCreated      EventType = "group_created"
	EventGroupDeleted      EventType = "group_deleted"
	EventGroupMerged       EventType = "group_merged"
	EventGroupRenamed      EventType = "group_renamed"
	EventMemberAdded       EventType = "member_added"
	EventMemberRemoved     EventType = "member_removed"
	EventDetectionStarted  EventType = "detection_started"
	EventDetectionResolved EventType = "detection_resolved"
	EventDetectionFailed   EventType = "detection_failed"
)

// Event is one audit trail entry. Group membership changes always carry the
// similarity edge id that justified them.
type Event struct {
	ID        int64     `json:"id"`
	SubjectID string    `json:"subject_id"` // task id or group id
	EventType EventType `json:"event_type"`
	Actor     string    `json:"actor"`
	OldValue  *string   `json:"old_value,omitempty"`
	NewValue  *string   `json:"new_value,omitempty"`
	EdgeID    *string   `json:"edge_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
