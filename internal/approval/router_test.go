package approval

import (
	"context"
	"testing"
	"time"

	"github.com/garyjia/leave-approval/internal/domain/workflow"
	"github.com/garyjia/leave-approval/internal/notify"
	"github.com/garyjia/leave-approval/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRouterFixture(t *testing.T) (*Router, *fixture) {
	t.Helper()
	f := newFixture(t)
	dispatcher := notify.NewDispatcher(f.messenger, notify.Recipients{SupervisorID: "SUP", HRID: "HR"}, zap.NewNop())
	r := NewRouter(parser.New(zap.NewNop()), f.store, f.engine, dispatcher, zap.NewNop())
	r.newID = func() string { return "fixed-id" }
	r.now = func() time.Time { return time.Date(2025, 11, 9, 8, 0, 0, 0, time.UTC) }
	return r, f
}

func TestRouter_SubmissionCreatesRequestAndNotifies(t *testing.T) {
	r, f := newRouterFixture(t)
	ctx := context.Background()

	err := r.OnSubmissionMessage(ctx, "U123", "請假 2025-11-10 到 2025-11-12 事假 生病", "msg-1")
	require.NoError(t, err)

	got, err := f.store.FindByID(ctx, "fixed-id")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatePendingSupervisor, got.Status)
	assert.Equal(t, "U123", got.RequesterID)
	assert.Equal(t, "事假", got.LeaveType)
	assert.Equal(t, "2025-11-10", got.StartDate)
	assert.Equal(t, "2025-11-12", got.EndDate)
	assert.Equal(t, "生病", got.Reason)
	assert.Equal(t, "2025-11-09T08:00:00Z", got.SubmittedAt)
	assert.Empty(t, got.ApprovalHistory)

	// Requester gets the confirmation containing the id.
	require.Len(t, f.messenger.replies, 1)
	assert.Equal(t, "msg-1", f.messenger.replies[0].replyTo)
	assert.Equal(t, "申請提交，ID: fixed-id", f.messenger.replies[0].text)

	// Supervisor gets the two-button review push.
	require.Equal(t, 1, f.messenger.pushesTo("SUP"))
	p := f.messenger.pushes[0]
	require.Len(t, p.buttons, 2)
	assert.Equal(t, "approve:fixed-id", p.buttons[0].Payload)
	assert.Equal(t, "reject:fixed-id", p.buttons[1].Payload)
}

func TestRouter_MalformedSubmissionRepliesHint(t *testing.T) {
	r, f := newRouterFixture(t)
	ctx := context.Background()

	err := r.OnSubmissionMessage(ctx, "U123", "請假 2025-11-10", "msg-1")
	require.NoError(t, err)

	require.Len(t, f.messenger.replies, 1)
	assert.Equal(t, "格式錯誤，請用: 請假 開始日期 到 結束日期 假別 [理由]", f.messenger.replies[0].text)
	assert.Empty(t, f.messenger.pushes)

	// No record was created.
	rows, err := f.rows.ReadAllRows(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRouter_NonSubmissionTextIgnored(t *testing.T) {
	r, f := newRouterFixture(t)

	require.NoError(t, r.OnSubmissionMessage(context.Background(), "U123", "早安", "msg-1"))
	assert.Empty(t, f.messenger.replies)
	assert.Empty(t, f.messenger.pushes)
}

func TestRouter_DecisionCallbackHappyPath(t *testing.T) {
	r, f := newRouterFixture(t)
	f.seed(t, "id-1", workflow.StatePendingSupervisor)
	ctx := context.Background()

	require.NoError(t, r.OnDecisionCallback(ctx, "approve:id-1"))

	got, err := f.store.FindByID(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatePendingHR, got.Status)
	assert.Equal(t, 1, f.messenger.pushesTo("HR"))
}

func TestRouter_DecisionCallbackUnknownIDDropped(t *testing.T) {
	r, f := newRouterFixture(t)

	// Silently dropped: no error, no mutation, no notification.
	require.NoError(t, r.OnDecisionCallback(context.Background(), "approve:unknown-id"))
	assert.Empty(t, f.messenger.pushes)
}

func TestRouter_DecisionCallbackBadPayloadDropped(t *testing.T) {
	r, f := newRouterFixture(t)
	f.seed(t, "id-1", workflow.StatePendingSupervisor)

	for _, payload := range []string{
		"approve",
		"approve:id-1:extra",
		":id-1",
		"approve:",
		"",
	} {
		require.NoError(t, r.OnDecisionCallback(context.Background(), payload), "payload: %s", payload)
	}

	got, err := f.store.FindByID(context.Background(), "id-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatePendingSupervisor, got.Status)
	assert.Empty(t, f.messenger.pushes)
}

func TestRouter_DecisionCallbackUnknownActionDropped(t *testing.T) {
	r, f := newRouterFixture(t)
	f.seed(t, "id-1", workflow.StatePendingSupervisor)

	require.NoError(t, r.OnDecisionCallback(context.Background(), "escalate:id-1"))

	got, err := f.store.FindByID(context.Background(), "id-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatePendingSupervisor, got.Status)
	assert.Empty(t, f.messenger.pushes)
}

func TestRouter_DecisionCallbackOnSettledRequestDropped(t *testing.T) {
	r, f := newRouterFixture(t)
	f.seed(t, "id-1", workflow.StateRejected)

	require.NoError(t, r.OnDecisionCallback(context.Background(), "approve:id-1"))

	got, err := f.store.FindByID(context.Background(), "id-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.StateRejected, got.Status)
	assert.Empty(t, f.messenger.pushes)
}
