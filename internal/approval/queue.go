// Package approval provides the human sign-off queue for gated actions.
// Supervised agents requesting high-complexity actions park here until a
// human responds or the wait deadline passes.
package approval

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/AgentWarden/AgentWarden/internal/store"
)

// Approval statuses persisted alongside the request.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusDenied   = "denied"
	StatusTimeout  = "timeout"
)

// RequestStore persists approval requests. May be nil for in-memory use.
type RequestStore interface {
	InsertApproval(ctx context.Context, r store.ApprovalRequest) error
	UpdateApprovalStatus(ctx context.Context, approvalID, status string) error
	PendingApprovals(ctx context.Context) ([]store.ApprovalRequest, error)
}

// Queue handles the approval lifecycle: create, wait, respond.
// Creation is fire-and-forget; waiter state exists only for the duration
// of a Wait call, so requests nobody waits on hold no memory.
type Queue struct {
	mu      sync.Mutex
	waiters map[string]chan bool
	store   RequestStore
}

// New creates a Queue. Any approvals left pending in the store by a
// previous process are marked as timed out; nothing can resolve them now.
func New(st RequestStore) *Queue {
	q := &Queue{
		waiters: make(map[string]chan bool),
		store:   st,
	}
	q.cleanupStale()
	return q
}

func (q *Queue) cleanupStale() {
	if q.store == nil {
		return
	}
	ctx := context.Background()
	stale, err := q.store.PendingApprovals(ctx)
	if err != nil {
		return
	}
	for _, r := range stale {
		_ = q.store.UpdateApprovalStatus(ctx, r.ApprovalID, StatusTimeout)
	}
}

// Create persists a new approval request and returns its ID. No waiter
// state is registered here; callers that need the answer call Wait.
func (q *Queue) Create(ctx context.Context, req *store.ApprovalRequest) string {
	id := newApprovalID()
	req.ApprovalID = id
	req.Status = StatusPending
	req.CreatedAt = time.Now().UTC()

	if q.store != nil {
		_ = q.store.InsertApproval(ctx, *req)
	}
	return id
}

// Wait blocks until the approval is responded to or the context expires.
// The waiter channel is registered on entry and removed on return.
func (q *Queue) Wait(ctx context.Context, id string) (bool, error) {
	ch := make(chan bool, 1)
	q.mu.Lock()
	if _, exists := q.waiters[id]; exists {
		q.mu.Unlock()
		return false, fmt.Errorf("approval already awaited: %s", id)
	}
	q.waiters[id] = ch
	q.mu.Unlock()
	defer q.cleanup(id)

	select {
	case approved := <-ch:
		status := StatusDenied
		if approved {
			status = StatusApproved
		}
		q.updateStatus(id, status)
		return approved, nil
	case <-ctx.Done():
		q.updateStatus(id, StatusTimeout)
		return false, ctx.Err()
	}
}

// Respond delivers a decision. A live waiter receives it over its channel
// and persists the final status itself; without a waiter the status goes
// straight to the store.
func (q *Queue) Respond(id string, approved bool) error {
	q.mu.Lock()
	ch, waited := q.waiters[id]
	q.mu.Unlock()
	if waited {
		// Non-blocking send; the channel is buffered with size 1.
		select {
		case ch <- approved:
		default:
		}
		return nil
	}

	if q.store == nil {
		return fmt.Errorf("no pending approval: %s", id)
	}
	status := StatusDenied
	if approved {
		status = StatusApproved
	}
	if err := q.store.UpdateApprovalStatus(context.Background(), id, status); err != nil {
		return fmt.Errorf("respond to approval %s: %w", id, err)
	}
	return nil
}

// Pending returns the IDs of requests with a live waiter.
func (q *Queue) Pending() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	ids := make([]string, 0, len(q.waiters))
	for id := range q.waiters {
		ids = append(ids, id)
	}
	return ids
}

func (q *Queue) cleanup(id string) {
	q.mu.Lock()
	delete(q.waiters, id)
	q.mu.Unlock()
}

func (q *Queue) updateStatus(id, status string) {
	if q.store == nil {
		return
	}
	_ = q.store.UpdateApprovalStatus(context.Background(), id, status)
}

func newApprovalID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err == nil {
		return hex.EncodeToString(b[:])
	}
	return fmt.Sprintf("appr-%d", time.Now().UnixNano())
}
