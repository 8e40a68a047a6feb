// Package resolver picks the governing agent for an action request.
//
// Resolution walks a fixed fallback chain and stops at the first level
// that produces an agent: explicit agent id, sticky session agent,
// workspace default, then a per-workspace system default created on
// demand. Every attempt is recorded in an ordered trace for audit.
// Lookup failures fail open to the next level; only when every level
// fails does resolution return nil, and callers must then deny.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AgentWarden/AgentWarden/internal/store"
)

// Trace markers, one per attempted level.
const (
	TraceExplicit         = "explicit_agent_id"
	TraceExplicitNotFound = "explicit_agent_id_not_found"
	TraceSession          = "session_agent"
	TraceNoSession        = "no_session_agent"
	TraceWorkspace        = "workspace_default"
	TraceNoWorkspace      = "no_workspace_default"
	TraceSystemDefault    = "system_default"
	TraceFailed           = "resolution_failed"
)

// AgentLookup is the slice of the agent store the resolver needs.
type AgentLookup interface {
	GetAgent(ctx context.Context, id string) (store.Agent, error)
	EnsureSystemAgent(ctx context.Context, workspaceID string) (store.Agent, error)
}

// SessionLookup reads and writes the sticky session→agent association.
type SessionLookup interface {
	SessionAgent(ctx context.Context, sessionID string) (string, error)
	SetSessionAgent(ctx context.Context, sessionID, agentID string) error
}

// WorkspaceLookup reads and writes the workspace default agent.
type WorkspaceLookup interface {
	WorkspaceDefaultAgent(ctx context.Context, workspaceID string) (string, error)
	SetWorkspaceDefaultAgent(ctx context.Context, workspaceID, agentID string) error
}

// Request carries the identity fields of one incoming action.
type Request struct {
	UserID      string
	WorkspaceID string
	SessionID   string
	AgentID     string // explicit override, optional
	ActionType  string
}

// Resolver evaluates the fallback chain.
type Resolver struct {
	agents     AgentLookup
	sessions   SessionLookup
	workspaces WorkspaceLookup
}

// New creates a Resolver over the given stores.
func New(agents AgentLookup, sessions SessionLookup, workspaces WorkspaceLookup) *Resolver {
	return &Resolver{agents: agents, sessions: sessions, workspaces: workspaces}
}

// Resolve returns the governing agent and the ordered attempt trace.
// A nil agent with a trailing "resolution_failed" marker means every
// level failed, including system-default creation.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*store.Agent, []string) {
	var trace []string

	if req.AgentID != "" {
		if a, ok := r.fetchAgent(ctx, req.AgentID); ok {
			return a, append(trace, TraceExplicit)
		}
		trace = append(trace, TraceExplicitNotFound)
	}

	if req.SessionID != "" {
		if a, ok := r.lookupVia(ctx, func() (string, error) {
			return r.sessions.SessionAgent(ctx, req.SessionID)
		}, "session", req.SessionID); ok {
			return a, append(trace, TraceSession)
		}
	}
	trace = append(trace, TraceNoSession)

	if a, ok := r.lookupVia(ctx, func() (string, error) {
		return r.workspaces.WorkspaceDefaultAgent(ctx, req.WorkspaceID)
	}, "workspace", req.WorkspaceID); ok {
		return a, append(trace, TraceWorkspace)
	}
	trace = append(trace, TraceNoWorkspace)

	a, err := r.agents.EnsureSystemAgent(ctx, req.WorkspaceID)
	if err != nil {
		slog.Error("System default agent unavailable", "workspace", req.WorkspaceID, "error", err)
		return nil, append(trace, TraceFailed)
	}
	return &a, append(trace, TraceSystemDefault)
}

// SetSessionAgent persists a session→agent association after verifying
// the agent exists.
func (r *Resolver) SetSessionAgent(ctx context.Context, sessionID, agentID string) error {
	if _, err := r.agents.GetAgent(ctx, agentID); err != nil {
		return fmt.Errorf("session agent %s: %w", agentID, err)
	}
	return r.sessions.SetSessionAgent(ctx, sessionID, agentID)
}

// SetWorkspaceDefaultAgent persists the workspace default after verifying
// the agent exists.
func (r *Resolver) SetWorkspaceDefaultAgent(ctx context.Context, workspaceID, agentID string) error {
	if _, err := r.agents.GetAgent(ctx, agentID); err != nil {
		return fmt.Errorf("workspace default agent %s: %w", agentID, err)
	}
	return r.workspaces.SetWorkspaceDefaultAgent(ctx, workspaceID, agentID)
}

// fetchAgent looks up an agent by id, treating any store error as absent.
func (r *Resolver) fetchAgent(ctx context.Context, id string) (*store.Agent, bool) {
	a, err := r.agents.GetAgent(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.Warn("Agent lookup failed", "agent", id, "error", err)
		}
		return nil, false
	}
	return &a, true
}

// lookupVia resolves an indirection (session or workspace metadata) to an
// agent id and then to the agent itself. Both hops must succeed.
func (r *Resolver) lookupVia(ctx context.Context, lookup func() (string, error), kind, id string) (*store.Agent, bool) {
	agentID, err := lookup()
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.Warn("Metadata lookup failed", "kind", kind, "id", id, "error", err)
		}
		return nil, false
	}
	return r.fetchAgent(ctx, agentID)
}
