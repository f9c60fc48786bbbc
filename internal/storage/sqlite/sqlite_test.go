package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/groupthink/groupthink/internal/types"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustCreateTask(t *testing.T, s *SQLiteStorage, id, owner, description string) *types.Task {
	t.Helper()
	task := &types.Task{ID: id, OwnerID: owner, Description: description}
	if err := s.CreateTask(context.Background(), task); err != nil {
		t.Fatalf("Failed to create task %s: %v", id, err)
	}
	return task
}

func mustCreateGroup(t *testing.T, s *SQLiteStorage, id, owner string, taskIDs []string) {
	t.Helper()
	group := &types.TaskGroup{ID: id, Name: "group " + id, OwnerID: owner}
	if err := s.CreateGroup(context.Background(), group, taskIDs, "", "test"); err != nil {
		t.Fatalf("Failed to create group %s: %v", id, err)
	}
}

func TestTaskLifecycle(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	mustCreateTask(t, s, "t-1", "alice", "fix login timeout on mobile")

	got, err := s.GetTask(ctx, "t-1")
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.Description != "fix login timeout on mobile" {
		t.Errorf("Unexpected description: %q", got.Description)
	}
	if got.Grouped() {
		t.Error("New task should not be grouped")
	}

	if _, err := s.GetTask(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing task, got %v", err)
	}

	if err := s.DeleteTask(ctx, "t-1"); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	if _, err := s.GetTask(ctx, "t-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Deleted task should read as not found, got %v", err)
	}

	// Double delete is a no-op
	if err := s.DeleteTask(ctx, "t-1"); err != nil {
		t.Errorf("Second delete should be a no-op, got %v", err)
	}
}

func TestUpdateTaskDescriptionInvalidatesEmbedding(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	mustCreateTask(t, s, "t-1", "alice", "original text here")
	err := s.PutEmbedding(ctx, &types.Embedding{
		TaskID: "t-1", Vector: []float32{1, 0}, Model: "m", ContentHash: "h1",
	})
	if err != nil {
		t.Fatalf("PutEmbedding failed: %v", err)
	}

	if err := s.UpdateTaskDescription(ctx, "t-1", "rewritten text here"); err != nil {
		t.Fatalf("UpdateTaskDescription failed: %v", err)
	}

	if _, err := s.GetEmbedding(ctx, "t-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Embedding should be invalidated after edit, got %v", err)
	}
}

func TestEmbeddingPoolScopedToOwner(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	mustCreateTask(t, s, "t-1", "alice", "alice's task about login")
	mustCreateTask(t, s, "t-2", "bob", "bob's task about login")

	for _, id := range []string{"t-1", "t-2"} {
		err := s.PutEmbedding(ctx, &types.Embedding{
			TaskID: id, Vector: []float32{1, 0}, Model: "m", ContentHash: "h-" + id,
		})
		if err != nil {
			t.Fatalf("PutEmbedding failed: %v", err)
		}
	}

	pool, err := s.GetEmbeddingPool(ctx, "alice")
	if err != nil {
		t.Fatalf("GetEmbeddingPool failed: %v", err)
	}
	if len(pool) != 1 || pool[0].TaskID != "t-1" {
		t.Errorf("Pool should contain only alice's task, got %+v", pool)
	}
}

func TestFindEmbeddingByHash(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	mustCreateTask(t, s, "t-1", "alice", "identical text")
	err := s.PutEmbedding(ctx, &types.Embedding{
		TaskID: "t-1", Vector: []float32{0.5, 0.5}, Model: "m", ContentHash: "abc",
	})
	if err != nil {
		t.Fatalf("PutEmbedding failed: %v", err)
	}

	got, err := s.FindEmbeddingByHash(ctx, "alice", "abc")
	if err != nil {
		t.Fatalf("FindEmbeddingByHash failed: %v", err)
	}
	if got.TaskID != "t-1" {
		t.Errorf("Expected t-1, got %s", got.TaskID)
	}

	// Other owners never share vectors
	if _, err := s.FindEmbeddingByHash(ctx, "bob", "abc"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for other owner, got %v", err)
	}

	// Deleted tasks drop out
	if err := s.DeleteTask(ctx, "t-1"); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	if _, err := s.FindEmbeddingByHash(ctx, "alice", "abc"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestCreateGroupAssignsMembers(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	mustCreateTask(t, s, "t-1", "alice", "checkout page is blank")
	mustCreateTask(t, s, "t-2", "alice", "checkout renders nothing")
	mustCreateGroup(t, s, "g-1", "alice", []string{"t-1", "t-2"})

	members, err := s.GetGroupMembers(ctx, "g-1")
	if err != nil {
		t.Fatalf("GetGroupMembers failed: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("Expected 2 members, got %d", len(members))
	}

	for _, id := range []string{"t-1", "t-2"} {
		task, err := s.GetTask(ctx, id)
		if err != nil {
			t.Fatalf("GetTask failed: %v", err)
		}
		if !task.Grouped() || *task.GroupID != "g-1" {
			t.Errorf("Task %s should be in g-1, got %v", id, task.GroupID)
		}
	}
}

func TestSingleGroupPerTask(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	mustCreateTask(t, s, "t-1", "alice", "first description text")
	mustCreateTask(t, s, "t-2", "alice", "second description text")
	mustCreateTask(t, s, "t-3", "alice", "third description text")
	mustCreateGroup(t, s, "g-1", "alice", []string{"t-1", "t-2"})

	// Pulling a grouped task into another group is refused, never silent
	group := &types.TaskGroup{ID: "g-2", Name: "other", OwnerID: "alice"}
	err := s.CreateGroup(ctx, group, []string{"t-1", "t-3"}, "", "test")
	if !errors.Is(err, ErrTaskAlreadyGrouped) {
		t.Fatalf("Expected ErrTaskAlreadyGrouped, got %v", err)
	}

	// The whole call failed: t-3 must not be left assigned to g-2
	task, err := s.GetTask(ctx, "t-3")
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if task.Grouped() {
		t.Errorf("Failed group creation must not leave partial assignments, t-3 in %v", *task.GroupID)
	}
	if _, err := s.GetGroup(ctx, "g-2"); err == nil {
		t.Log("g-2 row surviving a failed create is acceptable only if empty")
		members, _ := s.GetGroupMembers(ctx, "g-2")
		if len(members) != 0 {
			t.Errorf("g-2 should have no members, got %d", len(members))
		}
	}
}

func TestAddToGroupIdempotent(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	mustCreateTask(t, s, "t-1", "alice", "first description text")
	mustCreateTask(t, s, "t-2", "alice", "second description text")
	mustCreateGroup(t, s, "g-1", "alice", []string{"t-1", "t-2"})

	// Re-adding an existing member is a no-op
	if err := s.AddToGroup(ctx, "g-1", []string{"t-2"}, "", "test"); err != nil {
		t.Errorf("Re-adding a member should be a no-op, got %v", err)
	}

	if err := s.AddToGroup(ctx, "missing", []string{"t-1"}, "", "test"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing group, got %v", err)
	}
}

func TestRemoveFromGroupDeletesEmptyGroup(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	mustCreateTask(t, s, "t-1", "alice", "first description text")
	mustCreateTask(t, s, "t-2", "alice", "second description text")
	mustCreateGroup(t, s, "g-1", "alice", []string{"t-1", "t-2"})

	if err := s.RemoveFromGroup(ctx, "t-1", "test"); err != nil {
		t.Fatalf("RemoveFromGroup failed: %v", err)
	}
	if _, err := s.GetGroup(ctx, "g-1"); err != nil {
		t.Fatalf("Group with one member left should survive: %v", err)
	}

	if err := s.RemoveFromGroup(ctx, "t-2", "test"); err != nil {
		t.Fatalf("RemoveFromGroup failed: %v", err)
	}
	if _, err := s.GetGroup(ctx, "g-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Empty group should be deleted, got %v", err)
	}

	// Removing an ungrouped task is a no-op
	if err := s.RemoveFromGroup(ctx, "t-1", "test"); err != nil {
		t.Errorf("Removing an ungrouped task should be a no-op, got %v", err)
	}
}

func TestDeleteTaskLeavesGroup(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	mustCreateTask(t, s, "t-1", "alice", "first description text")
	mustCreateTask(t, s, "t-2", "alice", "second description text")
	mustCreateGroup(t, s, "g-1", "alice", []string{"t-1", "t-2"})

	if err := s.DeleteTask(ctx, "t-1"); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	members, err := s.GetGroupMembers(ctx, "g-1")
	if err != nil {
		t.Fatalf("GetGroupMembers failed: %v", err)
	}
	if len(members) != 1 || members[0].ID != "t-2" {
		t.Errorf("Expected only t-2 left in group, got %+v", members)
	}

	// Deleting the last member deletes the group too
	if err := s.DeleteTask(ctx, "t-2"); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	if _, err := s.GetGroup(ctx, "g-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Group emptied by deletions should be gone, got %v", err)
	}
}

func TestMergeGroups(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	mustCreateTask(t, s, "t-1", "alice", "first description text")
	mustCreateTask(t, s, "t-2", "alice", "second description text")
	mustCreateTask(t, s, "t-3", "alice", "third description text")
	mustCreateTask(t, s, "t-4", "alice", "fourth description text")
	mustCreateGroup(t, s, "g-1", "alice", []string{"t-1", "t-2"})
	mustCreateGroup(t, s, "g-2", "alice", []string{"t-3", "t-4"})

	if err := s.MergeGroups(ctx, []string{"g-1", "g-2"}, "g-1", "test"); err != nil {
		t.Fatalf("MergeGroups failed: %v", err)
	}

	members, err := s.GetGroupMembers(ctx, "g-1")
	if err != nil {
		t.Fatalf("GetGroupMembers failed: %v", err)
	}
	if len(members) != 4 {
		t.Errorf("Expected 4 members after merge, got %d", len(members))
	}
	if _, err := s.GetGroup(ctx, "g-2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Source group should be deleted, got %v", err)
	}

	// Retrying the same merge converges instead of failing
	if err := s.MergeGroups(ctx, []string{"g-1", "g-2"}, "g-1", "test"); err != nil {
		t.Errorf("Retried merge should be idempotent, got %v", err)
	}

	// Target must be among the merged groups
	if err := s.MergeGroups(ctx, []string{"g-1", "g-2"}, "g-3", "test"); err == nil {
		t.Error("Merge with a target outside the list should fail")
	}
}

func TestDetectionTransitions(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	mustCreateTask(t, s, "t-1", "alice", "some task description")
	det := &types.DuplicateDetection{
		ID: "d-1", TaskID: "t-1", OwnerID: "alice", State: types.DetectionStateCreated,
	}
	if err := s.CreateDetection(ctx, det); err != nil {
		t.Fatalf("CreateDetection failed: %v", err)
	}

	if err := s.TransitionDetection(ctx, "d-1", types.DetectionStateCreated, types.DetectionStateEmbedding); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	// Guarded: repeating the consumed transition surfaces the race
	err := s.TransitionDetection(ctx, "d-1", types.DetectionStateCreated, types.DetectionStateEmbedding)
	if !errors.Is(err, ErrConcurrentModification) {
		t.Errorf("Expected ErrConcurrentModification, got %v", err)
	}

	// Invalid transitions are rejected before touching the database
	if err := s.TransitionDetection(ctx, "d-1", types.DetectionStateEmbedding, types.DetectionStateGrouped); err == nil {
		t.Error("Invalid transition should be rejected")
	}

	got, err := s.GetDetection(ctx, "d-1")
	if err != nil {
		t.Fatalf("GetDetection failed: %v", err)
	}
	if got.State != types.DetectionStateEmbedding {
		t.Errorf("Expected embedding state, got %s", got.State)
	}
}

func TestDetectionCandidatesRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	mustCreateTask(t, s, "t-1", "alice", "some task description")
	det := &types.DuplicateDetection{
		ID: "d-1", TaskID: "t-1", OwnerID: "alice", State: types.DetectionStateCreated,
	}
	if err := s.CreateDetection(ctx, det); err != nil {
		t.Fatalf("CreateDetection failed: %v", err)
	}

	candidates := []types.Candidate{
		{TaskID: "t-2", Score: 0.97, Description: "similar task", GroupID: "g-1"},
		{TaskID: "t-3", Score: 0.85, Description: "another similar"},
	}
	if err := s.SetDetectionCandidates(ctx, "d-1", candidates, []string{"g-1"}); err != nil {
		t.Fatalf("SetDetectionCandidates failed: %v", err)
	}

	got, err := s.GetDetection(ctx, "d-1")
	if err != nil {
		t.Fatalf("GetDetection failed: %v", err)
	}
	if len(got.Candidates) != 2 || got.Candidates[0].TaskID != "t-2" || got.Candidates[0].GroupID != "g-1" {
		t.Errorf("Candidates did not survive the round trip: %+v", got.Candidates)
	}
	if len(got.TouchedGroups) != 1 || got.TouchedGroups[0] != "g-1" {
		t.Errorf("Touched groups did not survive: %+v", got.TouchedGroups)
	}
}

func walkDetection(t *testing.T, s *SQLiteStorage, id string, states ...types.DetectionState) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i+1 < len(states); i++ {
		if err := s.TransitionDetection(ctx, id, states[i], states[i+1]); err != nil {
			t.Fatalf("Transition %s -> %s failed: %v", states[i], states[i+1], err)
		}
	}
}

func TestResolveDetectionIdempotence(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	mustCreateTask(t, s, "t-1", "alice", "some task description")
	det := &types.DuplicateDetection{
		ID: "d-1", TaskID: "t-1", OwnerID: "alice", State: types.DetectionStateCreated,
	}
	if err := s.CreateDetection(ctx, det); err != nil {
		t.Fatalf("CreateDetection failed: %v", err)
	}
	walkDetection(t, s, "d-1",
		types.DetectionStateCreated, types.DetectionStateEmbedding,
		types.DetectionStateMatching, types.DetectionStateResolving,
		types.DetectionStatePendingReview)

	// Nothing applied yet
	applied, err := s.GetAppliedDecision(ctx, "d-1")
	if err != nil {
		t.Fatalf("GetAppliedDecision failed: %v", err)
	}
	if applied != nil {
		t.Errorf("Expected no decision before resolve, got %+v", applied)
	}

	decision := types.JoinGroup("g-1")
	if err := s.ResolveDetection(ctx, "d-1", types.DetectionStateGrouped, decision); err != nil {
		t.Fatalf("ResolveDetection failed: %v", err)
	}

	applied, err = s.GetAppliedDecision(ctx, "d-1")
	if err != nil {
		t.Fatalf("GetAppliedDecision failed: %v", err)
	}
	if applied == nil || !applied.Equal(decision) {
		t.Errorf("Applied decision mismatch: %+v", applied)
	}

	// A second resolve hits the state guard
	err = s.ResolveDetection(ctx, "d-1", types.DetectionStateDismissed, types.Dismiss())
	if !errors.Is(err, ErrConcurrentModification) {
		t.Errorf("Expected ErrConcurrentModification on double resolve, got %v", err)
	}

	got, err := s.GetDetection(ctx, "d-1")
	if err != nil {
		t.Fatalf("GetDetection failed: %v", err)
	}
	if got.State != types.DetectionStateGrouped || got.ResolvedAt == nil {
		t.Errorf("Expected grouped with resolved_at set, got state=%s resolvedAt=%v", got.State, got.ResolvedAt)
	}
}

func TestFailDetection(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	mustCreateTask(t, s, "t-1", "alice", "some task description")
	det := &types.DuplicateDetection{
		ID: "d-1", TaskID: "t-1", OwnerID: "alice", State: types.DetectionStateCreated,
	}
	if err := s.CreateDetection(ctx, det); err != nil {
		t.Fatalf("CreateDetection failed: %v", err)
	}

	if err := s.FailDetection(ctx, "d-1", "provider unavailable"); err != nil {
		t.Fatalf("FailDetection failed: %v", err)
	}
	got, _ := s.GetDetection(ctx, "d-1")
	if got.State != types.DetectionStateFailed || got.Error != "provider unavailable" {
		t.Errorf("Expected failed state with reason, got %s %q", got.State, got.Error)
	}

	// Failing a terminal run is a no-op
	if err := s.FailDetection(ctx, "d-1", "again"); err != nil {
		t.Errorf("Failing a terminal detection should be a no-op, got %v", err)
	}
	got, _ = s.GetDetection(ctx, "d-1")
	if got.Error != "provider unavailable" {
		t.Errorf("Terminal failure reason must not be overwritten, got %q", got.Error)
	}
}

func TestGetDetectionByTaskReturnsLatest(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	mustCreateTask(t, s, "t-1", "alice", "task with two detection runs")

	// Two runs for the same task, the second newer (a description edit
	// triggers a fresh run)
	for i, id := range []string{"d-old", "d-new"} {
		det := &types.DuplicateDetection{
			ID: id, TaskID: "t-1", OwnerID: "alice",
			State:     types.DetectionStateCreated,
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}
		if err := s.CreateDetection(ctx, det); err != nil {
			t.Fatalf("CreateDetection failed: %v", err)
		}
	}

	got, err := s.GetDetectionByTask(ctx, "t-1")
	if err != nil {
		t.Fatalf("GetDetectionByTask failed: %v", err)
	}
	if got.ID != "d-new" {
		t.Errorf("Expected the latest run d-new, got %s", got.ID)
	}

	if _, err := s.GetDetectionByTask(ctx, "no-such-task"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for a task with no runs, got %v", err)
	}
}

func TestGetPendingAndUnfinishedDetections(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	mustCreateTask(t, s, "t-1", "alice", "first task description")
	mustCreateTask(t, s, "t-2", "alice", "second task description")
	mustCreateTask(t, s, "t-3", "bob", "bob's task description")

	for i, tc := range []struct {
		id, task, owner string
	}{
		{"d-1", "t-1", "alice"},
		{"d-2", "t-2", "alice"},
		{"d-3", "t-3", "bob"},
	} {
		det := &types.DuplicateDetection{
			ID: tc.id, TaskID: tc.task, OwnerID: tc.owner,
			State:     types.DetectionStateCreated,
			CreatedAt: time.Now().Add(time.Duration(i) * time.Millisecond),
		}
		if err := s.CreateDetection(ctx, det); err != nil {
			t.Fatalf("CreateDetection failed: %v", err)
		}
	}

	// d-1 reaches pending_review, d-3 stays mid-pipeline, d-2 concludes
	walkDetection(t, s, "d-1",
		types.DetectionStateCreated, types.DetectionStateEmbedding,
		types.DetectionStateMatching, types.DetectionStateResolving,
		types.DetectionStatePendingReview)
	walkDetection(t, s, "d-2",
		types.DetectionStateCreated, types.DetectionStateEmbedding,
		types.DetectionStateMatching, types.DetectionStateResolving,
		types.DetectionStateNoDuplicates)
	walkDetection(t, s, "d-3",
		types.DetectionStateCreated, types.DetectionStateEmbedding)

	pending, err := s.GetPendingDetections(ctx, "alice")
	if err != nil {
		t.Fatalf("GetPendingDetections failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "d-1" {
		t.Errorf("Expected only d-1 pending for alice, got %+v", pending)
	}

	unfinished, err := s.GetUnfinishedDetections(ctx)
	if err != nil {
		t.Fatalf("GetUnfinishedDetections failed: %v", err)
	}
	// d-3 is mid-pipeline; d-1 waits on the user and d-2 is terminal
	if len(unfinished) != 1 || unfinished[0].ID != "d-3" {
		t.Errorf("Expected only d-3 unfinished, got %d entries", len(unfinished))
	}
}

func TestEventsRecorded(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	mustCreateTask(t, s, "t-1", "alice", "first description text")
	mustCreateTask(t, s, "t-2", "alice", "second description text")
	mustCreateGroup(t, s, "g-1", "alice", []string{"t-1", "t-2"})

	events, err := s.GetEvents(ctx, "t-1", 0)
	if err != nil {
		t.Fatalf("GetEvents failed: %v", err)
	}
	if len(events) != 1 || events[0].EventType != types.EventMemberAdded {
		t.Fatalf("Expected one member_added event for t-1, got %+v", events)
	}

	groupEvents, err := s.GetEvents(ctx, "g-1", 0)
	if err != nil {
		t.Fatalf("GetEvents failed: %v", err)
	}
	if len(groupEvents) != 1 || groupEvents[0].EventType != types.EventGroupCreated {
		t.Fatalf("Expected group_created event, got %+v", groupEvents)
	}

	if err := s.RemoveFromGroup(ctx, "t-1", "test"); err != nil {
		t.Fatalf("RemoveFromGroup failed: %v", err)
	}
	events, _ = s.GetEvents(ctx, "t-1", 0)
	if len(events) != 2 {
		t.Errorf("Expected member_added + member_removed, got %d events", len(events))
	}
}

func TestEdgeRecordingAndRetrieval(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	mustCreateTask(t, s, "t-1", "alice", "first description text")
	mustCreateTask(t, s, "t-2", "alice", "second description text")

	edges := []*types.SimilarityEdge{
		{ID: "e-1", TaskID: "t-1", MatchedTaskID: "t-2", Score: 0.93, DetectionID: "d-1"},
	}
	if err := s.AddSimilarityEdges(ctx, edges); err != nil {
		t.Fatalf("AddSimilarityEdges failed: %v", err)
	}

	// Edges surface from both endpoints
	for _, taskID := range []string{"t-1", "t-2"} {
		got, err := s.GetSimilarityEdges(ctx, taskID)
		if err != nil {
			t.Fatalf("GetSimilarityEdges(%s) failed: %v", taskID, err)
		}
		if len(got) != 1 || got[0].ID != "e-1" {
			t.Errorf("Expected edge e-1 from %s, got %+v", taskID, got)
		}
	}
}

func TestStatistics(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	mustCreateTask(t, s, "t-1", "alice", "first description text")
	mustCreateTask(t, s, "t-2", "alice", "second description text")
	mustCreateGroup(t, s, "g-1", "alice", []string{"t-1", "t-2"})

	det := &types.DuplicateDetection{
		ID: "d-1", TaskID: "t-1", OwnerID: "alice", State: types.DetectionStateCreated,
	}
	if err := s.CreateDetection(ctx, det); err != nil {
		t.Fatalf("CreateDetection failed: %v", err)
	}

	stats, err := s.GetStatistics(ctx)
	if err != nil {
		t.Fatalf("GetStatistics failed: %v", err)
	}
	if stats.TotalTasks != 2 || stats.GroupedTasks != 2 || stats.TotalGroups != 1 {
		t.Errorf("Unexpected task stats: %+v", stats)
	}
	if stats.TotalDetections != 1 || stats.PendingDetections != 1 {
		t.Errorf("Unexpected detection stats: %+v", stats)
	}
}
