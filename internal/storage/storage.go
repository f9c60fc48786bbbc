package storage

import (
	"context"

	"github.com/groupthink/groupthink/internal/matcher"
	"github.com/groupthink/groupthink/internal/storage/sqlite"
	"github.com/groupthink/groupthink/internal/types"
)

// Sentinel errors surfaced by storage implementations, re-exported from the
// sqlite backend so callers classify with errors.Is against one package.
var (
	// ErrNotFound means the referenced row does not exist (or was deleted
	// mid-flight, for tasks).
	ErrNotFound = sqlite.ErrNotFound

	// ErrTaskAlreadyGrouped means a task in a group mutation already belongs
	// to a different group. Never silently overridden; the caller must merge
	// or re-classify.
	ErrTaskAlreadyGrouped = sqlite.ErrTaskAlreadyGrouped

	// ErrConcurrentModification means the row changed underneath an
	// optimistic write. The caller should re-read and re-classify.
	ErrConcurrentModification = sqlite.ErrConcurrentModification
)

// Storage defines the persistence interface for the detection engine
type Storage interface {
	// Tasks
	CreateTask(ctx context.Context, task *types.Task) error
	GetTask(ctx context.Context, id string) (*types.Task, error)
	UpdateTaskDescription(ctx context.Context, id, description string) error
	DeleteTask(ctx context.Context, id string) error
	ListOwnerTasks(ctx context.Context, ownerID string) ([]*types.Task, error)

	// Embeddings
	PutEmbedding(ctx context.Context, emb *types.Embedding) error
	GetEmbedding(ctx context.Context, taskID string) (*types.Embedding, error)
	GetEmbeddingPool(ctx context.Context, ownerID string) ([]matcher.PoolEntry, error)
	FindEmbeddingByHash(ctx context.Context, ownerID, contentHash string) (*types.Embedding, error)

	// Groups: every mutation is a single transaction and records audit
	// events; membership changes carry the similarity edge that explains them
	CreateGroup(ctx context.Context, group *types.TaskGroup, taskIDs []string, edgeID, actor string) error
	AddToGroup(ctx context.Context, groupID string, taskIDs []string, edgeID, actor string) error
	RemoveFromGroup(ctx context.Context, taskID, actor string) error
	MergeGroups(ctx context.Context, groupIDs []string, targetID, actor string) error
	RenameGroup(ctx context.Context, groupID, name, actor string) error
	GetGroup(ctx context.Context, id string) (*types.TaskGroup, error)
	GetGroupMembers(ctx context.Context, groupID string) ([]*types.Task, error)
	ListOwnerGroups(ctx context.Context, ownerID string) ([]*types.TaskGroup, error)

	// Similarity edges: append-only audit records
	AddSimilarityEdges(ctx context.Context, edges []*types.SimilarityEdge) error
	GetSimilarityEdges(ctx context.Context, taskID string) ([]*types.SimilarityEdge, error)

	// Detections: the durable checkpoint per run
	CreateDetection(ctx context.Context, d *types.DuplicateDetection) error
	GetDetection(ctx context.Context, id string) (*types.DuplicateDetection, error)
	GetDetectionByTask(ctx context.Context, taskID string) (*types.DuplicateDetection, error)
	TransitionDetection(ctx context.Context, id string, from, to types.DetectionState) error
	SetDetectionCandidates(ctx context.Context, id string, candidates []types.Candidate, touchedGroups []string) error
	FailDetection(ctx context.Context, id, reason string) error
	ResolveDetection(ctx context.Context, id string, to types.DetectionState, decision types.Decision) error
	GetAppliedDecision(ctx context.Context, id string) (*types.Decision, error)
	GetPendingDetections(ctx context.Context, ownerID string) ([]*types.DuplicateDetection, error)
	GetUnfinishedDetections(ctx context.Context) ([]*types.DuplicateDetection, error)

	// Audit trail
	GetEvents(ctx context.Context, subjectID string, limit int) ([]*types.Event, error)

	// Statistics
	GetStatistics(ctx context.Context) (*sqlite.Statistics, error)

	// Lifecycle
	Close() error
}

// Config holds database configuration
type Config struct {
	// Path is the SQLite database file path
	// Default: ".groupthink/engine.db"
	// Special value ":memory:" creates an in-memory database (useful for tests)
	Path string
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Path: ".groupthink/engine.db",
	}
}

// New creates a new SQLite storage backend
func New(ctx context.Context, cfg *Config) (Storage, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Path == "" {
		cfg.Path = ".groupthink/engine.db"
	}
	return sqlite.New(cfg.Path)
}
