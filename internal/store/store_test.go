package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/AgentWarden/AgentWarden/internal/maturity"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "warden.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAgentRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := Agent{
		ID:          "agent-1",
		WorkspaceID: "ws-1",
		Name:        "Researcher",
		Category:    "research",
		Maturity:    maturity.Intern,
		Confidence:  0.7,
	}
	if err := s.UpsertAgent(ctx, a); err != nil {
		t.Fatalf("upsert agent: %v", err)
	}

	got, err := s.GetAgent(ctx, "agent-1")
	if err != nil {
		t.Fatalf("get agent: %v", err)
	}
	if got.Maturity != maturity.Intern || got.Confidence != 0.7 {
		t.Fatalf("unexpected agent: %+v", got)
	}
}

func TestGetAgentNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetAgent(context.Background(), "ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEnsureSystemAgentIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.EnsureSystemAgent(ctx, "ws-1")
	if err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	if first.Name != SystemAgentName || first.Category != SystemAgentCategory {
		t.Fatalf("unexpected system agent: %+v", first)
	}
	if first.Maturity != maturity.Student || first.Confidence != 0.5 {
		t.Fatalf("system agent should start as student at 0.5 confidence: %+v", first)
	}

	second, err := s.EnsureSystemAgent(ctx, "ws-1")
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("ensure created a duplicate: %s vs %s", first.ID, second.ID)
	}

	other, err := s.EnsureSystemAgent(ctx, "ws-2")
	if err != nil {
		t.Fatalf("other workspace ensure: %v", err)
	}
	if other.ID == first.ID {
		t.Fatal("system agents must be scoped per workspace")
	}
}

func TestEpisodeWindowQuery(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := Episode{AgentID: "a", ConstitutionalScore: 0.9, OccurredAt: time.Now().AddDate(0, 0, -45)}
	recent := Episode{AgentID: "a", ConstitutionalScore: 0.8, InterventionCount: 1, InterventionTypes: []string{"user_correction"}, SkillID: "web_search"}
	if err := s.AppendEpisode(ctx, old); err != nil {
		t.Fatalf("append old: %v", err)
	}
	if err := s.AppendEpisode(ctx, recent); err != nil {
		t.Fatalf("append recent: %v", err)
	}

	eps, err := s.QueryEpisodes(ctx, "a", 30)
	if err != nil {
		t.Fatalf("query episodes: %v", err)
	}
	if len(eps) != 1 {
		t.Fatalf("expected only the recent episode, got %d", len(eps))
	}
	if eps[0].SkillID != "web_search" || eps[0].InterventionCount != 1 {
		t.Fatalf("unexpected episode: %+v", eps[0])
	}
	if len(eps[0].InterventionTypes) != 1 || eps[0].InterventionTypes[0] != "user_correction" {
		t.Fatalf("intervention types did not round-trip: %+v", eps[0].InterventionTypes)
	}
}

func TestApplyTransitionAtomic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := Agent{ID: "agent-1", WorkspaceID: "ws-1", Name: "Researcher", Maturity: maturity.Student, Confidence: 0.5}
	if err := s.UpsertAgent(ctx, a); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	a.Maturity = maturity.Intern
	a.Confidence = 0.9
	ev := GraduationEvent{
		AgentID:   "agent-1",
		FromState: maturity.Student,
		ToState:   maturity.Intern,
		Score:     0.9,
		Rationale: "readiness_threshold_met",
	}
	if err := s.ApplyTransition(ctx, a, ev); err != nil {
		t.Fatalf("apply transition: %v", err)
	}

	got, err := s.GetAgent(ctx, "agent-1")
	if err != nil {
		t.Fatalf("get agent: %v", err)
	}
	if got.Maturity != maturity.Intern {
		t.Fatalf("maturity not updated: %s", got.Maturity)
	}
	events, err := s.GraduationEvents(ctx, "agent-1")
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 1 || events[0].ToState != maturity.Intern {
		t.Fatalf("expected one intern event, got %+v", events)
	}
}

func TestApplyTransitionMissingAgentRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.ApplyTransition(ctx, Agent{ID: "ghost", Maturity: maturity.Intern}, GraduationEvent{AgentID: "ghost", FromState: maturity.Student, ToState: maturity.Intern})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	events, err := s.GraduationEvents(ctx, "ghost")
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 0 {
		t.Fatal("no audit event should exist for a rolled-back transition")
	}
}

func TestGraduationEventsOrdered(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := Agent{ID: "agent-1", WorkspaceID: "ws-1", Name: "Researcher", Maturity: maturity.Student, Confidence: 0.5}
	if err := s.UpsertAgent(ctx, a); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	steps := []maturity.Level{maturity.Intern, maturity.Supervised, maturity.Student}
	from := maturity.Student
	for _, to := range steps {
		a.Maturity = to
		if err := s.ApplyTransition(ctx, a, GraduationEvent{AgentID: a.ID, FromState: from, ToState: to}); err != nil {
			t.Fatalf("transition to %s: %v", to, err)
		}
		from = to
	}

	events, err := s.GraduationEvents(ctx, "agent-1")
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i, to := range steps {
		if events[i].ToState != to {
			t.Fatalf("event %d out of order: %s", i, events[i].ToState)
		}
	}
}

func TestSessionAndWorkspaceMetadata(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.SessionAgent(ctx, "sess-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty session, got %v", err)
	}
	if err := s.SetSessionAgent(ctx, "sess-1", "agent-1"); err != nil {
		t.Fatalf("set session agent: %v", err)
	}
	id, err := s.SessionAgent(ctx, "sess-1")
	if err != nil || id != "agent-1" {
		t.Fatalf("session agent round-trip failed: %q %v", id, err)
	}

	if err := s.SetWorkspaceDefaultAgent(ctx, "ws-1", "agent-2"); err != nil {
		t.Fatalf("set workspace default: %v", err)
	}
	id, err = s.WorkspaceDefaultAgent(ctx, "ws-1")
	if err != nil || id != "agent-2" {
		t.Fatalf("workspace default round-trip failed: %q %v", id, err)
	}
}

func TestApprovalLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := ApprovalRequest{
		ApprovalID: "appr-1",
		AgentID:    "agent-1",
		ActionType: "deploy_service",
		Complexity: 3,
		Status:     "pending",
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.InsertApproval(ctx, r); err != nil {
		t.Fatalf("insert approval: %v", err)
	}
	pending, err := s.PendingApprovals(ctx)
	if err != nil {
		t.Fatalf("pending approvals: %v", err)
	}
	if len(pending) != 1 || pending[0].ApprovalID != "appr-1" {
		t.Fatalf("expected one pending approval, got %+v", pending)
	}

	if err := s.UpdateApprovalStatus(ctx, "appr-1", "approved"); err != nil {
		t.Fatalf("update status: %v", err)
	}
	pending, err = s.PendingApprovals(ctx)
	if err != nil {
		t.Fatalf("pending approvals: %v", err)
	}
	if len(pending) != 0 {
		t.Fatal("approved request should no longer be pending")
	}

	if err := s.UpdateApprovalStatus(ctx, "appr-missing", "approved"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for unknown approval, got %v", err)
	}
}
