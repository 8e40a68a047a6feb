package store

// Schema is the bundled SQLite schema. Statements are idempotent so the
// schema can be applied on every open.
const Schema = `
CREATE TABLE IF NOT EXISTS agents (
	id TEXT PRIMARY KEY,
	workspace_id TEXT NOT NULL,
	name TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	maturity TEXT NOT NULL DEFAULT 'student',
	confidence REAL NOT NULL DEFAULT 0.5,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(workspace_id, category, name)
);

CREATE TABLE IF NOT EXISTS episodes (
	id TEXT PRIMARY KEY,
	agent_id TEXT NOT NULL,
	constitutional_score REAL NOT NULL,
	intervention_count INTEGER NOT NULL DEFAULT 0,
	intervention_types TEXT NOT NULL DEFAULT '[]',
	skill_id TEXT,
	occurred_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_episodes_agent_time ON episodes(agent_id, occurred_at);

CREATE TABLE IF NOT EXISTS graduation_events (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	event_id TEXT UNIQUE NOT NULL,
	agent_id TEXT NOT NULL,
	from_state TEXT NOT NULL,
	to_state TEXT NOT NULL,
	score REAL NOT NULL,
	rationale TEXT NOT NULL DEFAULT '',
	timestamp TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_graduation_agent ON graduation_events(agent_id, seq);

CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	metadata TEXT NOT NULL DEFAULT '{}',
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS workspaces (
	id TEXT PRIMARY KEY,
	metadata TEXT NOT NULL DEFAULT '{}',
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS approval_requests (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	approval_id TEXT UNIQUE NOT NULL,
	agent_id TEXT NOT NULL,
	action_type TEXT NOT NULL,
	complexity INTEGER NOT NULL,
	requester TEXT,
	status TEXT NOT NULL DEFAULT 'pending',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_approval_status ON approval_requests(status);
`
