package approval

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/garyjia/leave-approval/internal/domain/entity"
	"github.com/garyjia/leave-approval/internal/domain/workflow"
	"github.com/garyjia/leave-approval/internal/notify"
	"github.com/garyjia/leave-approval/internal/parser"
	"github.com/garyjia/leave-approval/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Router dispatches inbound submission messages and decision callbacks.
//
// Malformed callbacks (bad payload, unknown action, unknown id, decisions
// on terminal requests) are dropped without an external reply, so a spoofed
// payload learns nothing; each drop is still logged as a named outcome.
type Router struct {
	parser     *parser.Parser
	store      *store.RequestStore
	engine     *Engine
	dispatcher *notify.Dispatcher
	newID      func() string
	now        func() time.Time
	logger     *zap.Logger
}

// NewRouter creates a new event router
func NewRouter(
	p *parser.Parser,
	requestStore *store.RequestStore,
	engine *Engine,
	dispatcher *notify.Dispatcher,
	logger *zap.Logger,
) *Router {
	return &Router{
		parser:     p,
		store:      requestStore,
		engine:     engine,
		dispatcher: dispatcher,
		newID:      uuid.NewString,
		now:        time.Now,
		logger:     logger,
	}
}

// OnSubmissionMessage handles an inbound text message. Non-submission text
// is ignored. A well-formed submission creates the request, confirms to the
// sender and notifies the supervisor; a malformed one gets the usage hint
// and creates nothing.
func (r *Router) OnSubmissionMessage(ctx context.Context, senderID, text, replyTo string) error {
	if !r.parser.IsSubmission(text) {
		return nil
	}

	cmd, err := r.parser.Parse(text)
	if err != nil {
		r.logger.Info("Malformed submission",
			zap.String("sender_id", senderID), zap.Error(err))
		if replyErr := r.dispatcher.ReplyUsageHint(ctx, replyTo, parser.UsageHint); replyErr != nil {
			r.logger.Error("Failed to reply usage hint", zap.Error(replyErr))
		}
		return nil
	}

	req := &entity.LeaveRequest{
		ID:          r.newID(),
		RequesterID: senderID,
		LeaveType:   cmd.LeaveType,
		StartDate:   cmd.StartDate,
		EndDate:     cmd.EndDate,
		Status:      workflow.StatePendingSupervisor,
		SubmittedAt: r.now().Format(time.RFC3339),
		Reason:      cmd.Reason,
	}

	if err := r.store.Create(ctx, req); err != nil {
		r.logger.Error("Failed to create leave request",
			zap.String("sender_id", senderID), zap.Error(err))
		return err
	}

	r.logger.Info("Leave request submitted",
		zap.String("id", req.ID),
		zap.String("requester_id", senderID))

	if err := r.dispatcher.ConfirmSubmission(ctx, replyTo, req.ID); err != nil {
		r.logger.Error("Failed to confirm submission",
			zap.String("id", req.ID), zap.Error(err))
	}
	if err := r.dispatcher.Notify(ctx, workflow.NoticeSupervisorReview, req); err != nil {
		r.logger.Error("Failed to notify supervisor",
			zap.String("id", req.ID), zap.Error(err))
	}

	return nil
}

// OnDecisionCallback handles an inbound action:id callback payload
func (r *Router) OnDecisionCallback(ctx context.Context, payload string) error {
	parts := strings.Split(payload, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		r.logger.Warn("Dropping malformed decision callback",
			zap.String("payload", payload))
		return nil
	}

	action, err := workflow.ParseAction(parts[0])
	if err != nil {
		r.logger.Warn("Dropping decision callback with unknown action",
			zap.String("payload", payload), zap.Error(err))
		return nil
	}
	id := parts[1]

	if err := r.engine.Decide(ctx, action, id); err != nil {
		switch {
		case errors.Is(err, store.ErrRequestNotFound):
			r.logger.Warn("Dropping decision callback for unknown request",
				zap.String("id", id))
			return nil
		case errors.Is(err, workflow.ErrInvalidTransition):
			r.logger.Warn("Dropping decision callback for settled request",
				zap.String("id", id), zap.String("action", action.String()))
			return nil
		default:
			r.logger.Error("Decision callback failed",
				zap.String("id", id), zap.Error(err))
			return err
		}
	}

	return nil
}
