// Package authorizer is the per-action facade: resolve the governing
// agent, consult the decision cache, evaluate the maturity policy on a
// miss, and hand back a structured result.
//
// Outcomes are explicit. Unavailable means the governance check itself
// could not run (resolution failed, store timed out) and is distinct from
// Denied so infrastructure failure can never read as a trust decision.
// Callers must treat both as "do not act".
package authorizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AgentWarden/AgentWarden/internal/maturity"
	"github.com/AgentWarden/AgentWarden/internal/permcache"
	"github.com/AgentWarden/AgentWarden/internal/resolver"
	"github.com/AgentWarden/AgentWarden/internal/store"
)

// Outcome classifies an authorization result.
type Outcome string

const (
	OutcomeAllowed     Outcome = "allowed"
	OutcomeDenied      Outcome = "denied"
	OutcomeUnavailable Outcome = "unavailable"
)

// Machine-readable decision reasons.
const (
	ReasonMaturityInsufficient = "maturity_insufficient"
	ReasonUnknownAction        = "unknown_action_type"
	ReasonInvalidComplexity    = "invalid_complexity"
	ReasonResolutionFailed     = "governance_check_failed: agent_resolution_failed"
	ReasonCheckTimeout         = "governance_check_failed: timeout"
)

// DefaultCheckTimeout bounds the whole resolve-and-decide path so a slow
// store can never block the hot path; past it the authorizer fails closed.
const DefaultCheckTimeout = 200 * time.Millisecond

// Request is one action an agent wants to perform. Transient; lives for
// the duration of a single Authorize call.
type Request struct {
	UserID      string              `json:"user_id"`
	WorkspaceID string              `json:"workspace_id"`
	SessionID   string              `json:"session_id,omitempty"`
	AgentID     string              `json:"agent_id,omitempty"`
	ActionType  string              `json:"action_type"`
	Complexity  maturity.Complexity `json:"complexity"`
	Requester   string              `json:"requester,omitempty"`
}

// Result is the outcome of one authorization.
type Result struct {
	Outcome       Outcome        `json:"outcome"`
	Reason        string         `json:"reason"`
	AgentID       string         `json:"agent_id,omitempty"`
	Level         maturity.Level `json:"level,omitempty"`
	NeedsApproval bool           `json:"needs_approval,omitempty"`
	ApprovalID    string         `json:"approval_id,omitempty"`
	CacheHit      bool           `json:"cache_hit"`
	Trace         []string       `json:"trace,omitempty"`
}

// Allowed reports whether the action may proceed.
func (r Result) Allowed() bool {
	return r.Outcome == OutcomeAllowed
}

// Handler evaluates the policy for one action kind on a cache miss.
type Handler func(agent store.Agent, req Request, policy maturity.PolicyTable) permcache.Decision

// AgentResolver is the resolver surface the facade uses.
type AgentResolver interface {
	Resolve(ctx context.Context, req resolver.Request) (*store.Agent, []string)
}

// ApprovalCreator opens a human sign-off request for gated actions.
type ApprovalCreator interface {
	Create(ctx context.Context, req *store.ApprovalRequest) string
}

// LatencyObserver receives per-lookup latency in seconds. Satisfied by
// prometheus histograms.
type LatencyObserver interface {
	Observe(float64)
}

// Authorizer wires the resolver, cache, and policy table together.
// Action kinds dispatch through an explicit registry populated at
// construction; an unregistered kind is denied outright.
type Authorizer struct {
	resolver     AgentResolver
	cache        *permcache.Cache
	policy       maturity.PolicyTable
	approvals    ApprovalCreator
	latency      LatencyObserver
	checkTimeout time.Duration
	handlers     map[string]Handler
}

// Option adjusts authorizer construction.
type Option func(*Authorizer)

// WithApprovals routes approval-gated decisions through the queue.
func WithApprovals(q ApprovalCreator) Option {
	return func(a *Authorizer) { a.approvals = q }
}

// WithLatencyObserver records lookup latency.
func WithLatencyObserver(o LatencyObserver) Option {
	return func(a *Authorizer) { a.latency = o }
}

// WithCheckTimeout overrides the governance check deadline.
func WithCheckTimeout(d time.Duration) Option {
	return func(a *Authorizer) {
		if d > 0 {
			a.checkTimeout = d
		}
	}
}

// New creates an Authorizer.
func New(r AgentResolver, cache *permcache.Cache, policy maturity.PolicyTable, opts ...Option) *Authorizer {
	a := &Authorizer{
		resolver:     r,
		cache:        cache,
		policy:       policy,
		checkTimeout: DefaultCheckTimeout,
		handlers:     make(map[string]Handler),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Register binds an action kind to its policy handler. Registration is
// resolved up front so an unknown kind at request time is an explicit
// denial, never a lookup failure.
func (a *Authorizer) Register(actionType string, h Handler) error {
	if actionType == "" {
		return errors.New("action type required")
	}
	if h == nil {
		return fmt.Errorf("nil handler for action type %q", actionType)
	}
	if _, exists := a.handlers[actionType]; exists {
		return fmt.Errorf("action type already registered: %s", actionType)
	}
	a.handlers[actionType] = h
	return nil
}

// RegisterDefault binds an action kind to the standard maturity check.
func (a *Authorizer) RegisterDefault(actionType string) error {
	return a.Register(actionType, MaturityHandler)
}

// MaturityHandler is the standard policy check: the agent's maturity level
// must permit the requested complexity.
func MaturityHandler(agent store.Agent, req Request, policy maturity.PolicyTable) permcache.Decision {
	allowed, needsApproval := policy.Permits(agent.Maturity, req.Complexity)
	d := permcache.Decision{
		Allowed:       allowed,
		NeedsApproval: needsApproval,
		Level:         string(agent.Maturity),
	}
	switch {
	case allowed:
		d.Reason = fmt.Sprintf("complexity_%d_auto_approved", req.Complexity)
	case needsApproval:
		d.Reason = fmt.Sprintf("complexity_%d_requires_approval", req.Complexity)
	default:
		d.Reason = ReasonMaturityInsufficient
	}
	return d
}

// Authorize runs the full decision path for one request. It never panics
// and never returns an error: every failure mode maps to a Result.
func (a *Authorizer) Authorize(ctx context.Context, req Request) Result {
	start := time.Now()
	defer func() {
		if a.latency != nil {
			a.latency.Observe(time.Since(start).Seconds())
		}
	}()

	if !req.Complexity.Valid() {
		return Result{Outcome: OutcomeDenied, Reason: ReasonInvalidComplexity}
	}
	handler, known := a.handlers[req.ActionType]
	if !known {
		return Result{Outcome: OutcomeDenied, Reason: ReasonUnknownAction}
	}

	ctx, cancel := context.WithTimeout(ctx, a.checkTimeout)
	defer cancel()

	agent, trace := a.resolver.Resolve(ctx, resolver.Request{
		UserID:      req.UserID,
		WorkspaceID: req.WorkspaceID,
		SessionID:   req.SessionID,
		AgentID:     req.AgentID,
		ActionType:  req.ActionType,
	})
	if agent == nil {
		reason := ReasonResolutionFailed
		if ctx.Err() != nil {
			reason = ReasonCheckTimeout
			slog.Warn("Governance check timed out", "action", req.ActionType, "workspace", req.WorkspaceID)
		}
		return Result{Outcome: OutcomeUnavailable, Reason: reason, Trace: trace}
	}

	d, hit := a.cache.Get(agent.ID, req.ActionType)
	if !hit {
		d = handler(*agent, req, a.policy)
		a.cache.Set(agent.ID, req.ActionType, d)
	}
	return a.finish(ctx, *agent, req, d, hit, trace)
}

// finish converts a cached or fresh decision into a Result, opening an
// approval request when the decision calls for one.
func (a *Authorizer) finish(ctx context.Context, agent store.Agent, req Request, d permcache.Decision, hit bool, trace []string) Result {
	res := Result{
		Outcome:       OutcomeDenied,
		Reason:        d.Reason,
		AgentID:       agent.ID,
		Level:         maturity.Level(d.Level),
		NeedsApproval: d.NeedsApproval,
		CacheHit:      hit,
		Trace:         trace,
	}
	if d.Allowed {
		res.Outcome = OutcomeAllowed
		return res
	}
	if d.NeedsApproval && a.approvals != nil {
		res.ApprovalID = a.approvals.Create(ctx, &store.ApprovalRequest{
			AgentID:    agent.ID,
			ActionType: req.ActionType,
			Complexity: int(req.Complexity),
			Requester:  req.Requester,
		})
	}
	return res
}
