// Package graduation moves agents along the maturity ladder.
//
// The engine is threshold-table-driven: promotion criteria live in
// configuration keyed by target level, so tuning thresholds or adding
// levels is a config change. Applying a decision commits the agent's new
// state and its audit event in one store transaction, then invalidates
// the agent's cached decisions best-effort.
package graduation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/AgentWarden/AgentWarden/internal/maturity"
	"github.com/AgentWarden/AgentWarden/internal/readiness"
	"github.com/AgentWarden/AgentWarden/internal/store"
)

// ErrInvalidState rejects an evaluation of an agent whose stored maturity
// is outside the defined ladder. No mutation is performed.
var ErrInvalidState = errors.New("agent maturity outside transition graph")

// Action is the outcome of one evaluation.
type Action string

const (
	Promote Action = "promote"
	Demote  Action = "demote"
	Hold    Action = "hold"
)

// Result reports what an evaluation decided and, for transitions, applied.
type Result struct {
	AgentID   string              `json:"agent_id"`
	Action    Action              `json:"action"`
	FromState maturity.Level      `json:"from_state"`
	ToState   maturity.Level      `json:"to_state"`
	Score     float64             `json:"score"`
	Rationale string              `json:"rationale"`
	Breakdown readiness.Breakdown `json:"breakdown"`
}

// Thresholds gate promotion into one target level.
type Thresholds struct {
	MinEpisodes       int     `json:"minEpisodes"`
	MinConstitutional float64 `json:"minConstitutional"`
	MinReadiness      float64 `json:"minReadiness"`
}

// Config holds the threshold table and window settings.
type Config struct {
	// WindowDays is the trailing episode window evaluated.
	WindowDays int `json:"windowDays" envconfig:"WINDOW_DAYS"`
	// DemotionFloor: a trailing constitutional average below this demotes
	// the agent straight to student, whatever its current level.
	DemotionFloor float64 `json:"demotionFloor" envconfig:"DEMOTION_FLOOR"`
	// Promotion is keyed by target level.
	Promotion map[maturity.Level]Thresholds `json:"promotion"`
}

// DefaultConfig returns the stock threshold table.
func DefaultConfig() Config {
	return Config{
		WindowDays:    30,
		DemotionFloor: 0.70,
		Promotion: map[maturity.Level]Thresholds{
			maturity.Intern:     {MinEpisodes: 10, MinConstitutional: 0.70, MinReadiness: 0.70},
			maturity.Supervised: {MinEpisodes: 25, MinConstitutional: 0.80, MinReadiness: 0.80},
			maturity.Autonomous: {MinEpisodes: 50, MinConstitutional: 0.90, MinReadiness: 0.90},
		},
	}
}

// Store is the persistence surface the engine needs.
type Store interface {
	GetAgent(ctx context.Context, id string) (store.Agent, error)
	QueryEpisodes(ctx context.Context, agentID string, windowDays int) ([]store.Episode, error)
	ApplyTransition(ctx context.Context, a store.Agent, ev store.GraduationEvent) error
	ActiveAgentIDs(ctx context.Context, windowDays int) ([]string, error)
}

// CacheInvalidator drops an agent's cached decisions after a transition.
type CacheInvalidator interface {
	InvalidateAgent(agentID string)
}

// EventMirror receives a copy of each committed graduation event.
// Delivery is best-effort; the store transaction is the source of truth.
type EventMirror interface {
	Publish(ctx context.Context, ev store.GraduationEvent) error
}

// Engine evaluates and applies maturity transitions.
type Engine struct {
	cfg    Config
	store  Store
	cache  CacheInvalidator
	mirror EventMirror

	mu     sync.Mutex
	agents map[string]*sync.Mutex
}

// New creates an Engine. cache and mirror may be nil.
func New(cfg Config, st Store, cache CacheInvalidator, mirror EventMirror) *Engine {
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = 30
	}
	if cfg.DemotionFloor <= 0 {
		cfg.DemotionFloor = 0.70
	}
	return &Engine{
		cfg:    cfg,
		store:  st,
		cache:  cache,
		mirror: mirror,
		agents: make(map[string]*sync.Mutex),
	}
}

// Evaluate scores the agent's trailing window, decides promote/demote/hold,
// and applies any transition atomically. Evaluations are serialized per
// agent so two concurrent calls can never both promote from the same state.
// On a store write failure nothing is applied and the caller may retry.
func (e *Engine) Evaluate(ctx context.Context, agentID string) (Result, error) {
	lock := e.agentLock(agentID)
	lock.Lock()
	defer lock.Unlock()

	agent, err := e.store.GetAgent(ctx, agentID)
	if err != nil {
		return Result{}, fmt.Errorf("load agent: %w", err)
	}
	if !agent.Maturity.Valid() {
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidState, agent.Maturity)
	}

	episodes, err := e.store.QueryEpisodes(ctx, agentID, e.cfg.WindowDays)
	if err != nil {
		return Result{}, fmt.Errorf("load episodes: %w", err)
	}
	b := readiness.Score(episodes)

	res := Result{
		AgentID:   agentID,
		Action:    Hold,
		FromState: agent.Maturity,
		ToState:   agent.Maturity,
		Score:     b.Score,
		Breakdown: b,
		Rationale: "thresholds_not_met",
	}

	switch {
	case e.shouldDemote(agent, b):
		res.Action = Demote
		res.ToState = maturity.Student
		res.Rationale = fmt.Sprintf("constitutional_average_below_floor: %.2f < %.2f", b.AvgConstitutional, e.cfg.DemotionFloor)
	case e.shouldPromote(agent, b):
		res.Action = Promote
		res.ToState = agent.Maturity.Next()
		res.Rationale = "readiness_threshold_met"
	default:
		return res, nil
	}

	agent.Maturity = res.ToState
	agent.Confidence = b.Score
	ev := store.GraduationEvent{
		AgentID:   agentID,
		FromState: res.FromState,
		ToState:   res.ToState,
		Score:     b.Score,
		Rationale: res.Rationale,
	}
	if err := e.store.ApplyTransition(ctx, agent, ev); err != nil {
		return Result{}, fmt.Errorf("apply transition: %w", err)
	}

	// The transition is committed; everything below tolerates failure.
	// Stale cache entries expire within one TTL window regardless.
	if e.cache != nil {
		e.cache.InvalidateAgent(agentID)
	}
	if e.mirror != nil {
		if err := e.mirror.Publish(ctx, ev); err != nil {
			slog.Warn("Graduation event mirror failed", "agent", agentID, "error", err)
		}
	}
	slog.Info("Agent maturity transition",
		"agent", agentID, "action", res.Action,
		"from", res.FromState, "to", res.ToState, "score", b.Score)
	return res, nil
}

// EvaluateAll runs Evaluate for every agent with episodes in the window.
// Errors are logged per agent; the pass continues.
func (e *Engine) EvaluateAll(ctx context.Context) []Result {
	ids, err := e.store.ActiveAgentIDs(ctx, e.cfg.WindowDays)
	if err != nil {
		slog.Error("Active agent listing failed", "error", err)
		return nil
	}
	var results []Result
	for _, id := range ids {
		res, err := e.Evaluate(ctx, id)
		if err != nil {
			slog.Warn("Graduation evaluation failed", "agent", id, "error", err)
			continue
		}
		results = append(results, res)
	}
	return results
}

// shouldDemote applies the constitutional floor. An empty window never
// demotes: there is no average to judge.
func (e *Engine) shouldDemote(a store.Agent, b readiness.Breakdown) bool {
	if b.EpisodeCount == 0 || a.Maturity == maturity.Student {
		return false
	}
	return b.AvgConstitutional < e.cfg.DemotionFloor
}

// shouldPromote checks the threshold table for the next level up.
// A level missing from the table is unreachable.
func (e *Engine) shouldPromote(a store.Agent, b readiness.Breakdown) bool {
	next := a.Maturity.Next()
	if next == a.Maturity {
		return false
	}
	th, ok := e.cfg.Promotion[next]
	if !ok {
		return false
	}
	return b.EpisodeCount >= th.MinEpisodes &&
		b.AvgConstitutional >= th.MinConstitutional &&
		b.Score >= th.MinReadiness
}

func (e *Engine) agentLock(agentID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.agents[agentID]
	if !ok {
		lock = &sync.Mutex{}
		e.agents[agentID] = lock
	}
	return lock
}
