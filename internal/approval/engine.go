// Package approval owns the approval workflow: the engine applies decision
// callbacks to stored requests under a per-id lock, and the router
// dispatches inbound submissions and callbacks to the right component.
package approval

import (
	"context"
	"time"

	"github.com/garyjia/leave-approval/internal/domain/workflow"
	"github.com/garyjia/leave-approval/internal/notify"
	"github.com/garyjia/leave-approval/internal/store"
	"go.uber.org/zap"
)

// Engine applies approve/reject decisions to leave requests
type Engine struct {
	store      *store.RequestStore
	dispatcher *notify.Dispatcher
	locks      *keyedMutex
	now        func() time.Time
	logger     *zap.Logger
}

// NewEngine creates a new approval engine
func NewEngine(requestStore *store.RequestStore, dispatcher *notify.Dispatcher, logger *zap.Logger) *Engine {
	return &Engine{
		store:      requestStore,
		dispatcher: dispatcher,
		locks:      newKeyedMutex(),
		now:        time.Now,
		logger:     logger,
	}
}

// Decide applies action to the request identified by id.
//
// The whole read-compute-write sequence runs under the id's lock: two
// near-simultaneous callbacks for one request apply exactly one transition —
// the second sees the already-advanced state and fails with
// ErrInvalidTransition. The notification fires only after the status write
// read back durably; a failed send after that point is logged and the
// transition stands.
func (e *Engine) Decide(ctx context.Context, action workflow.Action, id string) error {
	unlock := e.locks.Lock(id)
	defer unlock()

	req, err := e.store.FindByID(ctx, id)
	if err != nil {
		return err
	}

	transition, err := workflow.Decide(req.Status, action)
	if err != nil {
		return err
	}

	entry := transition.HistoryEntry(e.now())
	if err := e.store.UpdateStatus(ctx, id, transition.Next, entry); err != nil {
		return err
	}

	e.logger.Info("Leave request transitioned",
		zap.String("id", id),
		zap.String("action", action.String()),
		zap.String("from", req.Status.String()),
		zap.String("to", transition.Next.String()))

	req.Status = transition.Next
	req.ApprovalHistory += entry

	if err := e.dispatcher.Notify(ctx, transition.Notice, req); err != nil {
		// State is already durably committed; the send is best-effort.
		e.logger.Error("Notification failed after committed transition",
			zap.String("id", id),
			zap.String("notice", string(transition.Notice)),
			zap.Error(err))
	}

	return nil
}
