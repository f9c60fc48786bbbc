package sqlite

const schema = `
-- Tasks table
-- group_id is the single mutable field this engine owns. Deleted tasks keep
-- their row (deleted_at set) so in-flight detection runs can observe the
-- deletion and abort instead of writing groups for ghosts.
CREATE TABLE IF NOT EXISTS tasks (
    id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    description TEXT NOT NULL CHECK(length(description) <= 10000),
    group_id TEXT REFERENCES task_groups(id),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_tasks_owner ON tasks(owner_id);
CREATE INDEX IF NOT EXISTS idx_tasks_group ON tasks(group_id);
CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks(created_at);

-- Task groups table
-- Membership is derived from tasks.group_id, never stored here.
CREATE TABLE IF NOT EXISTS task_groups (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL CHECK(length(name) <= 500),
    owner_id TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_task_groups_owner ON task_groups(owner_id);

-- Embeddings table
-- One vector per task, stored as a JSON float array. content_hash is the
-- description hash at compute time; a mismatch marks the vector stale.
CREATE TABLE IF NOT EXISTS embeddings (
    task_id TEXT PRIMARY KEY REFERENCES tasks(id) ON DELETE CASCADE,
    vector TEXT NOT NULL,
    model TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Similarity edges table (append-only audit trail)
-- Edges are historical facts recorded at detection time. They are
-- superseded by newer runs, never deleted when grouping changes.
CREATE TABLE IF NOT EXISTS similarity_edges (
    id TEXT PRIMARY KEY,
    task_id TEXT NOT NULL,
    matched_task_id TEXT NOT NULL,
    score REAL NOT NULL CHECK(score >= 0.0 AND score <= 1.0),
    detection_id TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_similarity_edges_task ON similarity_edges(task_id);
CREATE INDEX IF NOT EXISTS idx_similarity_edges_matched ON similarity_edges(matched_task_id);
CREATE INDEX IF NOT EXISTS idx_similarity_edges_detection ON similarity_edges(detection_id);

-- Detections table
-- The durable checkpoint for one detection run. Created with state
-- 'created' before any external call; mutated only via guarded state
-- transitions; never deleted (retained for audit/undo).
CREATE TABLE IF NOT EXISTS detections (
    id TEXT PRIMARY KEY,
    task_id TEXT NOT NULL,
    owner_id TEXT NOT NULL,
    state TEXT NOT NULL DEFAULT 'created' CHECK(state IN (
        'created', 'embedding', 'matching', 'resolving', 'auto_resolved',
        'pending_review', 'no_duplicates', 'grouped', 'dismissed', 'failed')),
    candidates TEXT NOT NULL DEFAULT '[]',
    touched_groups TEXT NOT NULL DEFAULT '[]',
    decision TEXT,
    error TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    resolved_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_detections_task ON detections(task_id);
CREATE INDEX IF NOT EXISTS idx_detections_owner ON detections(owner_id);
CREATE INDEX IF NOT EXISTS idx_detections_state ON detections(state);

-- Events table (audit trail)
-- Group membership changes always reference the similarity edge that
-- justified them.
CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    subject_id TEXT NOT NULL,
    event_type TEXT NOT NULL,
    actor TEXT NOT NULL,
    old_value TEXT,
    new_value TEXT,
    edge_id TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_events_subject ON events(subject_id);
CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at);
`
