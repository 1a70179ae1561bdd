// Package notify builds and sends the outbound messages triggered by
// workflow transitions.
package notify

import (
	"context"
	"fmt"

	"github.com/garyjia/leave-approval/internal/domain/entity"
	"github.com/garyjia/leave-approval/internal/domain/workflow"
	"go.uber.org/zap"
)

// Button is a labeled quick-action carrying an opaque callback payload
type Button struct {
	Label   string
	Payload string
}

// Messenger is the outbound chat boundary. Reply is bound to a single
// in-flight delivery (replyTo is the inbound message handle); Push addresses
// an arbitrary identity. At most two buttons are attached to a message.
type Messenger interface {
	Reply(ctx context.Context, replyTo, text string) error
	Push(ctx context.Context, userID, text string, buttons []Button) error
}

// Recipients holds the two fixed approver identities
type Recipients struct {
	SupervisorID string
	HRID         string
}

// Dispatcher determines which party a transition notifies and with what
// actionable options. Send failures propagate to the caller; no retries.
type Dispatcher struct {
	messenger  Messenger
	recipients Recipients
	logger     *zap.Logger
}

// NewDispatcher creates a new notification dispatcher
func NewDispatcher(messenger Messenger, recipients Recipients, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		messenger:  messenger,
		recipients: recipients,
		logger:     logger,
	}
}

// Notify sends the message for the given notice kind
func (d *Dispatcher) Notify(ctx context.Context, notice workflow.Notice, req *entity.LeaveRequest) error {
	switch notice {
	case workflow.NoticeSupervisorReview:
		text := fmt.Sprintf("新請假申請 ID: %s\n日期: %s 到 %s\n類型: %s\n理由: %s",
			req.ID, req.StartDate, req.EndDate, req.LeaveType, req.Reason)
		return d.push(ctx, d.recipients.SupervisorID, text, DecisionButtons(req.ID))

	case workflow.NoticeHRReview:
		text := fmt.Sprintf("主管批准請假 ID: %s\n日期: %s 到 %s\n類型: %s\n理由: %s",
			req.ID, req.StartDate, req.EndDate, req.LeaveType, req.Reason)
		return d.push(ctx, d.recipients.HRID, text, DecisionButtons(req.ID))

	case workflow.NoticeRequesterApproved:
		return d.push(ctx, req.RequesterID, fmt.Sprintf("請假 ID: %s 已完成", req.ID), nil)

	case workflow.NoticeRequesterRejected:
		return d.push(ctx, req.RequesterID, fmt.Sprintf("請假 ID: %s 被拒絕", req.ID), nil)

	default:
		return fmt.Errorf("unknown notice kind: %q", notice)
	}
}

// ConfirmSubmission replies to the requester with the generated request id
func (d *Dispatcher) ConfirmSubmission(ctx context.Context, replyTo, id string) error {
	return d.messenger.Reply(ctx, replyTo, fmt.Sprintf("申請提交，ID: %s", id))
}

// ReplyUsageHint replies with the expected submission format
func (d *Dispatcher) ReplyUsageHint(ctx context.Context, replyTo, hint string) error {
	return d.messenger.Reply(ctx, replyTo, hint)
}

func (d *Dispatcher) push(ctx context.Context, userID, text string, buttons []Button) error {
	if err := d.messenger.Push(ctx, userID, text, buttons); err != nil {
		d.logger.Error("Failed to push notification",
			zap.String("user_id", userID), zap.Error(err))
		return fmt.Errorf("push notification: %w", err)
	}
	return nil
}

// DecisionButtons returns the approve/reject pair bound to the request id
func DecisionButtons(id string) []Button {
	return []Button{
		{Label: "批准", Payload: fmt.Sprintf("approve:%s", id)},
		{Label: "拒絕", Payload: fmt.Sprintf("reject:%s", id)},
	}
}
