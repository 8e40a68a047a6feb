package store

import (
	"time"

	"github.com/AgentWarden/AgentWarden/internal/maturity"
)

// Agent is a governed autonomous agent. Maturity and confidence are
// mutated only by the graduation engine; the resolver may create the
// per-workspace system default but never deletes anything.
type Agent struct {
	ID          string         `json:"id"`
	WorkspaceID string         `json:"workspace_id"`
	Name        string         `json:"name"`
	Category    string         `json:"category"`
	Maturity    maturity.Level `json:"maturity"`
	Confidence  float64        `json:"confidence"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Episode is one recorded unit of agent activity. Immutable once written;
// produced by collaborators and only read here.
type Episode struct {
	ID                  string    `json:"id"`
	AgentID             string    `json:"agent_id"`
	ConstitutionalScore float64   `json:"constitutional_score"`
	InterventionCount   int       `json:"intervention_count"`
	InterventionTypes   []string  `json:"intervention_types,omitempty"`
	SkillID             string    `json:"skill_id,omitempty"`
	OccurredAt          time.Time `json:"occurred_at"`
}

// GraduationEvent is one append-only audit record of a maturity transition.
type GraduationEvent struct {
	ID        string         `json:"id"`
	AgentID   string         `json:"agent_id"`
	FromState maturity.Level `json:"from_state"`
	ToState   maturity.Level `json:"to_state"`
	Score     float64        `json:"score"`
	Rationale string         `json:"rationale"`
	Timestamp time.Time      `json:"timestamp"`
}

// ApprovalRequest is a pending human sign-off for a gated action.
type ApprovalRequest struct {
	ApprovalID string    `json:"approval_id"`
	AgentID    string    `json:"agent_id"`
	ActionType string    `json:"action_type"`
	Complexity int       `json:"complexity"`
	Requester  string    `json:"requester,omitempty"`
	Status     string    `json:"status"` // pending, approved, denied, timeout
	CreatedAt  time.Time `json:"created_at"`
}
