// Package store provides the bundled SQLite persistence layer: agents,
// episodes, graduation audit events, session/workspace metadata, and
// pending approvals. All methods take a context so callers control
// timeouts; none of the governance logic lives here.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/AgentWarden/AgentWarden/internal/maturity"
)

// ErrNotFound is returned when an agent, session, or workspace is absent.
var ErrNotFound = errors.New("not found")

// System default agent identity, created lazily per workspace.
const (
	SystemAgentName     = "Chat Assistant"
	SystemAgentCategory = "system"

	systemAgentConfidence = 0.5
)

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and applies the schema.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open warden db: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	// Best-effort migration for dbs created before the requester column.
	_, _ = db.Exec(`ALTER TABLE approval_requests ADD COLUMN requester TEXT`)
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// Agents
// ---------------------------------------------------------------------------

// GetAgent returns the agent with the given id, or ErrNotFound.
func (s *Store) GetAgent(ctx context.Context, id string) (Agent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, name, category, maturity, confidence, created_at, updated_at
		FROM agents WHERE id = ?`, id)
	return scanAgent(row)
}

// UpsertAgent inserts or replaces an agent row.
func (s *Store) UpsertAgent(ctx context.Context, a Agent) error {
	if a.ID == "" {
		return errors.New("agent id required")
	}
	if !a.Maturity.Valid() {
		return fmt.Errorf("invalid maturity level: %q", a.Maturity)
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agents (id, workspace_id, name, category, maturity, confidence, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			workspace_id = excluded.workspace_id,
			name = excluded.name,
			category = excluded.category,
			maturity = excluded.maturity,
			confidence = excluded.confidence,
			updated_at = excluded.updated_at`,
		a.ID, a.WorkspaceID, a.Name, a.Category, string(a.Maturity), a.Confidence, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert agent: %w", err)
	}
	return nil
}

// EnsureSystemAgent returns the workspace's system default agent, creating
// it on first call. Creation is idempotent: concurrent callers race on the
// UNIQUE(workspace_id, category, name) constraint and both read the winner.
func (s *Store) EnsureSystemAgent(ctx context.Context, workspaceID string) (Agent, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agents (id, workspace_id, name, category, maturity, confidence, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(workspace_id, category, name) DO NOTHING`,
		uuid.NewString(), workspaceID, SystemAgentName, SystemAgentCategory,
		string(maturity.Student), systemAgentConfidence, now, now)
	if err != nil {
		return Agent{}, fmt.Errorf("create system agent: %w", err)
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, name, category, maturity, confidence, created_at, updated_at
		FROM agents WHERE workspace_id = ? AND category = ? AND name = ?`,
		workspaceID, SystemAgentCategory, SystemAgentName)
	return scanAgent(row)
}

// ListAgents returns all agents ordered by workspace then name.
func (s *Store) ListAgents(ctx context.Context) ([]Agent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workspace_id, name, category, maturity, confidence, created_at, updated_at
		FROM agents ORDER BY workspace_id, name`)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// ActiveAgentIDs returns agents with at least one episode in the window.
// The graduation tick evaluates exactly this set.
func (s *Store) ActiveAgentIDs(ctx context.Context, windowDays int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT agent_id FROM episodes WHERE occurred_at >= ?`,
		windowStart(windowDays))
	if err != nil {
		return nil, fmt.Errorf("active agents: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (Agent, error) {
	var a Agent
	var level string
	err := row.Scan(&a.ID, &a.WorkspaceID, &a.Name, &a.Category, &level, &a.Confidence, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Agent{}, ErrNotFound
	}
	if err != nil {
		return Agent{}, fmt.Errorf("scan agent: %w", err)
	}
	a.Maturity, err = maturity.ParseLevel(level)
	if err != nil {
		return Agent{}, err
	}
	return a, nil
}

// ---------------------------------------------------------------------------
// Episodes
// ---------------------------------------------------------------------------

// AppendEpisode records one immutable episode.
func (s *Store) AppendEpisode(ctx context.Context, e Episode) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	types, err := json.Marshal(e.InterventionTypes)
	if err != nil {
		return fmt.Errorf("marshal intervention types: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO episodes (id, agent_id, constitutional_score, intervention_count, intervention_types, skill_id, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.AgentID, e.ConstitutionalScore, e.InterventionCount, string(types), nullable(e.SkillID), e.OccurredAt)
	if err != nil {
		return fmt.Errorf("append episode: %w", err)
	}
	return nil
}

// QueryEpisodes returns the agent's episodes in the trailing window,
// oldest first.
func (s *Store) QueryEpisodes(ctx context.Context, agentID string, windowDays int) ([]Episode, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, agent_id, constitutional_score, intervention_count, intervention_types, COALESCE(skill_id, ''), occurred_at
		FROM episodes
		WHERE agent_id = ? AND occurred_at >= ?
		ORDER BY occurred_at ASC`,
		agentID, windowStart(windowDays))
	if err != nil {
		return nil, fmt.Errorf("query episodes: %w", err)
	}
	defer rows.Close()

	var eps []Episode
	for rows.Next() {
		var e Episode
		var types string
		if err := rows.Scan(&e.ID, &e.AgentID, &e.ConstitutionalScore, &e.InterventionCount, &types, &e.SkillID, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		if types != "" {
			_ = json.Unmarshal([]byte(types), &e.InterventionTypes)
		}
		eps = append(eps, e)
	}
	return eps, rows.Err()
}

// ---------------------------------------------------------------------------
// Graduation audit trail
// ---------------------------------------------------------------------------

// ApplyTransition commits an agent's new maturity state and its audit
// event in one transaction. Either both land or neither does.
func (s *Store) ApplyTransition(ctx context.Context, a Agent, ev GraduationEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE agents SET maturity = ?, confidence = ?, updated_at = ? WHERE id = ?`,
		string(a.Maturity), a.Confidence, time.Now().UTC(), a.ID)
	if err != nil {
		return fmt.Errorf("update agent state: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO graduation_events (event_id, agent_id, from_state, to_state, score, rationale, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.AgentID, string(ev.FromState), string(ev.ToState), ev.Score, ev.Rationale, ev.Timestamp)
	if err != nil {
		return fmt.Errorf("append graduation event: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transition: %w", err)
	}
	return nil
}

// GraduationEvents returns the agent's audit trail in insertion order.
func (s *Store) GraduationEvents(ctx context.Context, agentID string) ([]GraduationEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, agent_id, from_state, to_state, score, rationale, timestamp
		FROM graduation_events WHERE agent_id = ? ORDER BY seq ASC`, agentID)
	if err != nil {
		return nil, fmt.Errorf("query graduation events: %w", err)
	}
	defer rows.Close()

	var events []GraduationEvent
	for rows.Next() {
		var ev GraduationEvent
		var from, to string
		if err := rows.Scan(&ev.ID, &ev.AgentID, &from, &to, &ev.Score, &ev.Rationale, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("scan graduation event: %w", err)
		}
		ev.FromState, ev.ToState = maturity.Level(from), maturity.Level(to)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// ---------------------------------------------------------------------------
// Session and workspace metadata
// ---------------------------------------------------------------------------

// Metadata keys read by the resolver. The blobs themselves are opaque;
// the store only guarantees these keys round-trip.
const (
	sessionAgentKey     = "agent_id"
	workspaceDefaultKey = "default_agent_id"
)

// SessionAgent returns the agent_id recorded in the session's metadata.
// ErrNotFound covers both a missing session and a missing key.
func (s *Store) SessionAgent(ctx context.Context, sessionID string) (string, error) {
	return s.metadataField(ctx, "sessions", sessionID, sessionAgentKey)
}

// SetSessionAgent persists a sticky session→agent association.
func (s *Store) SetSessionAgent(ctx context.Context, sessionID, agentID string) error {
	return s.setMetadataField(ctx, "sessions", sessionID, sessionAgentKey, agentID)
}

// WorkspaceDefaultAgent returns the workspace's default_agent_id.
func (s *Store) WorkspaceDefaultAgent(ctx context.Context, workspaceID string) (string, error) {
	return s.metadataField(ctx, "workspaces", workspaceID, workspaceDefaultKey)
}

// SetWorkspaceDefaultAgent persists the workspace default agent.
func (s *Store) SetWorkspaceDefaultAgent(ctx context.Context, workspaceID, agentID string) error {
	return s.setMetadataField(ctx, "workspaces", workspaceID, workspaceDefaultKey, agentID)
}

func (s *Store) metadataField(ctx context.Context, table, id, key string) (string, error) {
	var blob string
	err := s.db.QueryRowContext(ctx, `SELECT metadata FROM `+table+` WHERE id = ?`, id).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read %s metadata: %w", table, err)
	}
	var meta map[string]any
	if err := json.Unmarshal([]byte(blob), &meta); err != nil {
		return "", fmt.Errorf("decode %s metadata: %w", table, err)
	}
	v, ok := meta[key].(string)
	if !ok || v == "" {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *Store) setMetadataField(ctx context.Context, table, id, key, value string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin metadata update: %w", err)
	}
	defer tx.Rollback()

	meta := map[string]any{}
	var blob string
	err = tx.QueryRowContext(ctx, `SELECT metadata FROM `+table+` WHERE id = ?`, id).Scan(&blob)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// New row; start from an empty blob.
	case err != nil:
		return fmt.Errorf("read %s metadata: %w", table, err)
	default:
		if err := json.Unmarshal([]byte(blob), &meta); err != nil {
			// Unreadable blob: preserve nothing, the key write wins.
			meta = map[string]any{}
		}
	}
	meta[key] = value
	updated, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode %s metadata: %w", table, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO `+table+` (id, metadata, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET metadata = excluded.metadata, updated_at = excluded.updated_at`,
		id, string(updated), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("write %s metadata: %w", table, err)
	}
	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Approvals
// ---------------------------------------------------------------------------

// InsertApproval persists a new pending approval request.
func (s *Store) InsertApproval(ctx context.Context, r ApprovalRequest) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO approval_requests (approval_id, agent_id, action_type, complexity, requester, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ApprovalID, r.AgentID, r.ActionType, r.Complexity, nullable(r.Requester), r.Status, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert approval: %w", err)
	}
	return nil
}

// UpdateApprovalStatus transitions an approval request's status.
// Returns ErrNotFound for an unknown approval ID.
func (s *Store) UpdateApprovalStatus(ctx context.Context, approvalID, status string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE approval_requests SET status = ? WHERE approval_id = ?`, status, approvalID)
	if err != nil {
		return fmt.Errorf("update approval status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// PendingApprovals returns all requests still in pending state.
func (s *Store) PendingApprovals(ctx context.Context) ([]ApprovalRequest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT approval_id, agent_id, action_type, complexity, COALESCE(requester, ''), status, created_at
		FROM approval_requests WHERE status = 'pending' ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query pending approvals: %w", err)
	}
	defer rows.Close()

	var reqs []ApprovalRequest
	for rows.Next() {
		var r ApprovalRequest
		if err := rows.Scan(&r.ApprovalID, &r.AgentID, &r.ActionType, &r.Complexity, &r.Requester, &r.Status, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan approval: %w", err)
		}
		reqs = append(reqs, r)
	}
	return reqs, rows.Err()
}

func windowStart(windowDays int) time.Time {
	if windowDays <= 0 {
		windowDays = 30
	}
	return time.Now().UTC().AddDate(0, 0, -windowDays)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
