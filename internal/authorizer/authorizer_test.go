package authorizer

import (
	"context"
	"testing"
	"time"

	"github.com/AgentWarden/AgentWarden/internal/maturity"
	"github.com/AgentWarden/AgentWarden/internal/permcache"
	"github.com/AgentWarden/AgentWarden/internal/resolver"
	"github.com/AgentWarden/AgentWarden/internal/store"
)

type fixedResolver struct {
	agent *store.Agent
	trace []string
	slow  time.Duration
}

func (f *fixedResolver) Resolve(ctx context.Context, _ resolver.Request) (*store.Agent, []string) {
	if f.slow > 0 {
		select {
		case <-time.After(f.slow):
		case <-ctx.Done():
			return nil, append(f.trace, resolver.TraceFailed)
		}
	}
	return f.agent, f.trace
}

type fakeApprovals struct {
	created []store.ApprovalRequest
}

func (f *fakeApprovals) Create(_ context.Context, req *store.ApprovalRequest) string {
	req.ApprovalID = "appr-test"
	f.created = append(f.created, *req)
	return req.ApprovalID
}

func newTestAuthorizer(agent *store.Agent, opts ...Option) (*Authorizer, *permcache.Cache) {
	cache := permcache.New()
	r := &fixedResolver{agent: agent, trace: []string{resolver.TraceExplicit}}
	a := New(r, cache, maturity.DefaultPolicyTable(), opts...)
	if err := a.RegisterDefault("send_message"); err != nil {
		panic(err)
	}
	if err := a.RegisterDefault("deploy_service"); err != nil {
		panic(err)
	}
	return a, cache
}

func TestInternModerateAllowed(t *testing.T) {
	a, _ := newTestAuthorizer(&store.Agent{ID: "a", Maturity: maturity.Intern})
	res := a.Authorize(context.Background(), Request{
		WorkspaceID: "ws", ActionType: "send_message", Complexity: maturity.ComplexityModerate,
	})
	if !res.Allowed() {
		t.Fatalf("intern should perform moderate actions: %+v", res)
	}
	if res.Reason != "complexity_2_auto_approved" {
		t.Fatalf("unexpected reason: %s", res.Reason)
	}
}

func TestStudentModerateDenied(t *testing.T) {
	a, _ := newTestAuthorizer(&store.Agent{ID: "a", Maturity: maturity.Student})
	res := a.Authorize(context.Background(), Request{
		WorkspaceID: "ws", ActionType: "send_message", Complexity: maturity.ComplexityModerate,
	})
	if res.Outcome != OutcomeDenied {
		t.Fatalf("expected denial, got %+v", res)
	}
	if res.Reason != ReasonMaturityInsufficient {
		t.Fatalf("unexpected reason: %s", res.Reason)
	}
}

func TestSecondCallHitsCache(t *testing.T) {
	a, cache := newTestAuthorizer(&store.Agent{ID: "a", Maturity: maturity.Intern})
	req := Request{WorkspaceID: "ws", ActionType: "send_message", Complexity: maturity.ComplexityLow}

	first := a.Authorize(context.Background(), req)
	if first.CacheHit {
		t.Fatal("first call should miss")
	}
	second := a.Authorize(context.Background(), req)
	if !second.CacheHit {
		t.Fatal("second call should hit the cache")
	}
	if st := cache.Stats(); st.Hits != 1 || st.Misses != 1 {
		t.Fatalf("unexpected cache stats: %+v", st)
	}
}

func TestUnknownActionDenied(t *testing.T) {
	a, _ := newTestAuthorizer(&store.Agent{ID: "a", Maturity: maturity.Autonomous})
	res := a.Authorize(context.Background(), Request{
		WorkspaceID: "ws", ActionType: "launch_rockets", Complexity: maturity.ComplexityLow,
	})
	if res.Outcome != OutcomeDenied || res.Reason != ReasonUnknownAction {
		t.Fatalf("unregistered action should be denied explicitly: %+v", res)
	}
}

func TestInvalidComplexityDenied(t *testing.T) {
	a, _ := newTestAuthorizer(&store.Agent{ID: "a", Maturity: maturity.Autonomous})
	res := a.Authorize(context.Background(), Request{
		WorkspaceID: "ws", ActionType: "send_message", Complexity: 7,
	})
	if res.Outcome != OutcomeDenied || res.Reason != ReasonInvalidComplexity {
		t.Fatalf("out-of-range complexity should be denied: %+v", res)
	}
}

func TestResolutionFailureIsUnavailable(t *testing.T) {
	cache := permcache.New()
	r := &fixedResolver{agent: nil, trace: []string{resolver.TraceFailed}}
	a := New(r, cache, maturity.DefaultPolicyTable())
	_ = a.RegisterDefault("send_message")

	res := a.Authorize(context.Background(), Request{
		WorkspaceID: "ws", ActionType: "send_message", Complexity: maturity.ComplexityLow,
	})
	if res.Outcome != OutcomeUnavailable {
		t.Fatalf("resolution failure must be unavailable, not a trust decision: %+v", res)
	}
	if res.Allowed() {
		t.Fatal("unavailable must never read as allowed")
	}
}

func TestSlowResolverFailsClosed(t *testing.T) {
	cache := permcache.New()
	r := &fixedResolver{agent: &store.Agent{ID: "a", Maturity: maturity.Autonomous}, slow: 500 * time.Millisecond}
	a := New(r, cache, maturity.DefaultPolicyTable(), WithCheckTimeout(30*time.Millisecond))
	_ = a.RegisterDefault("send_message")

	res := a.Authorize(context.Background(), Request{
		WorkspaceID: "ws", ActionType: "send_message", Complexity: maturity.ComplexityLow,
	})
	if res.Outcome != OutcomeUnavailable || res.Reason != ReasonCheckTimeout {
		t.Fatalf("expected timeout fail-closed, got %+v", res)
	}
}

func TestSupervisedHighOpensApproval(t *testing.T) {
	approvals := &fakeApprovals{}
	a, _ := newTestAuthorizer(&store.Agent{ID: "a", Maturity: maturity.Supervised}, WithApprovals(approvals))

	res := a.Authorize(context.Background(), Request{
		WorkspaceID: "ws", ActionType: "deploy_service", Complexity: maturity.ComplexityHigh, Requester: "alice",
	})
	if res.Allowed() {
		t.Fatal("supervised high-complexity should not be auto-approved")
	}
	if !res.NeedsApproval || res.ApprovalID != "appr-test" {
		t.Fatalf("expected an approval request, got %+v", res)
	}
	if len(approvals.created) != 1 || approvals.created[0].Requester != "alice" {
		t.Fatalf("approval request not created correctly: %+v", approvals.created)
	}
}

func TestDuplicateRegistrationRejected(t *testing.T) {
	a, _ := newTestAuthorizer(&store.Agent{ID: "a", Maturity: maturity.Student})
	if err := a.RegisterDefault("send_message"); err == nil {
		t.Fatal("duplicate registration should fail")
	}
	if err := a.Register("", MaturityHandler); err == nil {
		t.Fatal("empty action type should fail")
	}
	if err := a.Register("x", nil); err == nil {
		t.Fatal("nil handler should fail")
	}
}
