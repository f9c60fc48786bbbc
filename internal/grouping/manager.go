// Package grouping manages duplicate-task groups on top of storage.
//
// Storage guarantees the hard invariants (one group per task, atomic
// membership mutations, auto-deletion of empty groups); this package adds
// identity, naming, and the conveniences the detector and the review surface
// share.
package grouping

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/groupthink/groupthink/internal/ai"
	"github.com/groupthink/groupthink/internal/storage"
	"github.com/groupthink/groupthink/internal/types"
)

// Manager performs group operations
type Manager struct {
	store storage.Storage
	namer *ai.Namer
}

// NewManager creates a group manager. namer may be nil.
func NewManager(store storage.Storage, namer *ai.Namer) *Manager {
	return &Manager{store: store, namer: namer}
}

// FormGroup creates a new group containing the given tasks. At least two
// tasks are required; a one-member group cannot exist. edgeID references the
// similarity edge that justified the grouping (empty for manual grouping).
func (m *Manager) FormGroup(ctx context.Context, ownerID string, taskIDs []string, edgeID, actor string) (*types.TaskGroup, error) {
	if len(taskIDs) < 2 {
		return nil, fmt.Errorf("a group needs at least 2 tasks (got %d)", len(taskIDs))
	}

	now := time.Now()
	group := &types.TaskGroup{
		ID:        uuid.New().String(),
		Name:      types.DefaultGroupName(len(taskIDs), now),
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := m.store.CreateGroup(ctx, group, taskIDs, edgeID, actor); err != nil {
		return nil, fmt.Errorf("failed to form group: %w", err)
	}

	m.maybeSuggestTitle(ctx, group.ID)
	return group, nil
}

// JoinGroup adds tasks to an existing group
func (m *Manager) JoinGroup(ctx context.Context, groupID string, taskIDs []string, edgeID, actor string) error {
	if len(taskIDs) == 0 {
		return fmt.Errorf("no tasks to add")
	}
	if err := m.store.AddToGroup(ctx, groupID, taskIDs, edgeID, actor); err != nil {
		return fmt.Errorf("failed to join group %s: %w", groupID, err)
	}
	return nil
}

// Remove takes a task out of its group. The group is deleted automatically
// when the removal leaves it with fewer than two members' worth of meaning
// (storage deletes it at zero; a one-member group is still a valid holding
// state the user can see and dissolve).
func (m *Manager) Remove(ctx context.Context, taskID, actor string) error {
	if err := m.store.RemoveFromGroup(ctx, taskID, actor); err != nil {
		return fmt.Errorf("failed to remove task %s from group: %w", taskID, err)
	}
	return nil
}

// Merge collapses several groups into the target group. All members move to
// the target; the source groups are deleted. Sources that no longer exist
// are skipped, so a retried merge converges instead of failing.
func (m *Manager) Merge(ctx context.Context, groupIDs []string, targetID, actor string) error {
	if err := m.store.MergeGroups(ctx, groupIDs, targetID, actor); err != nil {
		return fmt.Errorf("failed to merge groups into %s: %w", targetID, err)
	}
	m.maybeSuggestTitle(ctx, targetID)
	return nil
}

// Rename sets a user-chosen group name
func (m *Manager) Rename(ctx context.Context, groupID, name, actor string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("group name cannot be empty")
	}
	if len(name) > 500 {
		return fmt.Errorf("group name too long (got %d chars, max 500)", len(name))
	}
	if err := m.store.RenameGroup(ctx, groupID, name, actor); err != nil {
		return fmt.Errorf("failed to rename group %s: %w", groupID, err)
	}
	return nil
}

// maybeSuggestTitle replaces the default timestamp name with an AI-suggested
// title. Best-effort: failures are logged and the default name stands.
func (m *Manager) maybeSuggestTitle(ctx context.Context, groupID string) {
	if !m.namer.Available() {
		return
	}

	members, err := m.store.GetGroupMembers(ctx, groupID)
	if err != nil || len(members) == 0 {
		return
	}
	descriptions := make([]string, 0, len(members))
	for _, t := range members {
		descriptions = append(descriptions, t.Description)
	}

	title, err := m.namer.SuggestTitle(ctx, descriptions)
	if err != nil {
		log.Printf("[GROUP] title suggestion for %s failed, keeping default name: %v", groupID, err)
		return
	}

	if err := m.store.RenameGroup(ctx, groupID, title, "namer"); err != nil {
		log.Printf("[GROUP] failed to apply suggested title for %s: %v", groupID, err)
	}
}
