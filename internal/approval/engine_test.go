package approval

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/garyjia/leave-approval/internal/domain/entity"
	"github.com/garyjia/leave-approval/internal/domain/workflow"
	"github.com/garyjia/leave-approval/internal/notify"
	"github.com/garyjia/leave-approval/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memRowStore is an in-memory stand-in for the external sheet
type memRowStore struct {
	mu   sync.Mutex
	rows [][]string
}

func newMemRowStore() *memRowStore {
	return &memRowStore{rows: [][]string{append([]string(nil), entity.Header...)}}
}

func (m *memRowStore) AppendRow(ctx context.Context, cells []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, append([]string(nil), cells...))
	return nil
}

func (m *memRowStore) ReadAllRows(ctx context.Context) ([][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]string, len(m.rows))
	for i, r := range m.rows {
		out[i] = append([]string(nil), r...)
	}
	return out, nil
}

func (m *memRowStore) ReadCell(ctx context.Context, row, col int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row < 1 || row > len(m.rows) || col < 1 || col > len(m.rows[row-1]) {
		return "", nil
	}
	return m.rows[row-1][col-1], nil
}

func (m *memRowStore) WriteCell(ctx context.Context, row, col int, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row < 1 || row > len(m.rows) || col < 1 || col > len(m.rows[row-1]) {
		return nil
	}
	m.rows[row-1][col-1] = value
	return nil
}

// recordingMessenger captures outbound sends, safe for concurrent use
type recordingMessenger struct {
	mu      sync.Mutex
	replies []struct{ replyTo, text string }
	pushes  []struct {
		userID  string
		text    string
		buttons []notify.Button
	}
	pushErr error
}

func (m *recordingMessenger) Reply(ctx context.Context, replyTo, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, struct{ replyTo, text string }{replyTo, text})
	return nil
}

func (m *recordingMessenger) Push(ctx context.Context, userID, text string, buttons []notify.Button) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pushErr != nil {
		return m.pushErr
	}
	m.pushes = append(m.pushes, struct {
		userID  string
		text    string
		buttons []notify.Button
	}{userID, text, buttons})
	return nil
}

func (m *recordingMessenger) pushesTo(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.pushes {
		if p.userID == userID {
			n++
		}
	}
	return n
}

type fixture struct {
	rows      *memRowStore
	store     *store.RequestStore
	messenger *recordingMessenger
	engine    *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	rows := newMemRowStore()
	requestStore := store.NewRequestStore(rows, zap.NewNop())
	messenger := &recordingMessenger{}
	dispatcher := notify.NewDispatcher(messenger, notify.Recipients{SupervisorID: "SUP", HRID: "HR"}, zap.NewNop())
	engine := NewEngine(requestStore, dispatcher, zap.NewNop())
	engine.now = func() time.Time { return time.Date(2025, 11, 10, 9, 0, 0, 0, time.UTC) }
	return &fixture{rows: rows, store: requestStore, messenger: messenger, engine: engine}
}

func (f *fixture) seed(t *testing.T, id string, status workflow.State) {
	t.Helper()
	req := &entity.LeaveRequest{
		ID:          id,
		RequesterID: "U123",
		LeaveType:   "事假",
		StartDate:   "2025-11-10",
		EndDate:     "2025-11-12",
		Status:      status,
		SubmittedAt: "2025-11-09T08:00:00Z",
		Reason:      "生病",
	}
	require.NoError(t, f.store.Create(context.Background(), req))
}

func TestEngine_SupervisorApproveMovesToPendingHR(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "id-1", workflow.StatePendingSupervisor)
	ctx := context.Background()

	require.NoError(t, f.engine.Decide(ctx, workflow.ActionApprove, "id-1"))

	got, err := f.store.FindByID(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatePendingHR, got.Status)
	assert.Equal(t, "Supervisor approved at 2025-11-10T09:00:00Z; ", got.ApprovalHistory)

	// HR is notified with the two-button pattern.
	require.Equal(t, 1, f.messenger.pushesTo("HR"))
	p := f.messenger.pushes[0]
	require.Len(t, p.buttons, 2)
	assert.Equal(t, "approve:id-1", p.buttons[0].Payload)
	assert.Equal(t, "reject:id-1", p.buttons[1].Payload)
}

func TestEngine_HRApproveCompletesRequest(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "id-1", workflow.StatePendingHR)
	ctx := context.Background()

	require.NoError(t, f.engine.Decide(ctx, workflow.ActionApprove, "id-1"))

	got, err := f.store.FindByID(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.StateApproved, got.Status)

	// Requester gets a completion push with no buttons.
	require.Equal(t, 1, f.messenger.pushesTo("U123"))
	assert.Equal(t, "請假 ID: id-1 已完成", f.messenger.pushes[0].text)
	assert.Empty(t, f.messenger.pushes[0].buttons)
}

func TestEngine_RejectFromPendingSupervisor(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "id-1", workflow.StatePendingSupervisor)
	ctx := context.Background()

	require.NoError(t, f.engine.Decide(ctx, workflow.ActionReject, "id-1"))

	got, err := f.store.FindByID(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.StateRejected, got.Status)
	assert.Equal(t, "Rejected at 2025-11-10T09:00:00Z; ", got.ApprovalHistory)
	assert.Equal(t, "請假 ID: id-1 被拒絕", f.messenger.pushes[0].text)
}

func TestEngine_TerminalStateRejectsFurtherDecisions(t *testing.T) {
	for _, status := range []workflow.State{workflow.StateApproved, workflow.StateRejected} {
		t.Run(status.String(), func(t *testing.T) {
			f := newFixture(t)
			f.seed(t, "id-1", status)
			ctx := context.Background()

			err := f.engine.Decide(ctx, workflow.ActionApprove, "id-1")
			assert.ErrorIs(t, err, workflow.ErrInvalidTransition)

			// No mutation, no notification.
			got, findErr := f.store.FindByID(ctx, "id-1")
			require.NoError(t, findErr)
			assert.Equal(t, status, got.Status)
			assert.Empty(t, got.ApprovalHistory)
			assert.Empty(t, f.messenger.pushes)
		})
	}
}

func TestEngine_UnknownIDNoSideEffects(t *testing.T) {
	f := newFixture(t)

	err := f.engine.Decide(context.Background(), workflow.ActionApprove, "unknown-id")
	assert.ErrorIs(t, err, store.ErrRequestNotFound)
	assert.Empty(t, f.messenger.pushes)
}

func TestEngine_NotificationFailureDoesNotRollBack(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "id-1", workflow.StatePendingSupervisor)
	f.messenger.pushErr = assert.AnError
	ctx := context.Background()

	// The transition stands even though the send failed.
	require.NoError(t, f.engine.Decide(ctx, workflow.ActionApprove, "id-1"))

	got, err := f.store.FindByID(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatePendingHR, got.Status)
}

func TestEngine_ConcurrentApprovesApplyAtMostOnce(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "id-1", workflow.StatePendingSupervisor)
	ctx := context.Background()

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			// Errors are acceptable here; duplicated transitions are not.
			_ = f.engine.Decide(ctx, workflow.ActionApprove, "id-1")
		}()
	}
	close(start)
	wg.Wait()

	got, err := f.store.FindByID(ctx, "id-1")
	require.NoError(t, err)

	// Exactly one pending_supervisor→pending_hr transition and one HR
	// notification regardless of interleaving.
	assert.Equal(t, 1, strings.Count(got.ApprovalHistory, "Supervisor approved"))
	assert.Equal(t, 1, f.messenger.pushesTo("HR"))

	// Status never regresses: it is pending_hr or, when the second callback
	// landed after the first, approved.
	assert.Contains(t, []workflow.State{workflow.StatePendingHR, workflow.StateApproved}, got.Status)
}

func TestEngine_StatusNeverRegresses(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "id-1", workflow.StatePendingSupervisor)
	ctx := context.Background()

	decisions := []workflow.Action{
		workflow.ActionApprove, // → pending_hr
		workflow.ActionApprove, // → approved
		workflow.ActionApprove, // invalid
		workflow.ActionReject,  // invalid
	}

	historyLen := 0
	for _, action := range decisions {
		err := f.engine.Decide(ctx, action, "id-1")
		got, findErr := f.store.FindByID(ctx, "id-1")
		require.NoError(t, findErr)

		if err == nil {
			assert.Greater(t, len(got.ApprovalHistory), historyLen, "history grows on accepted transitions")
		} else {
			assert.Equal(t, historyLen, len(got.ApprovalHistory), "history unchanged on rejected transitions")
		}
		historyLen = len(got.ApprovalHistory)
	}

	got, err := f.store.FindByID(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.StateApproved, got.Status)
	assert.Equal(t, 2, strings.Count(got.ApprovalHistory, "; "))
}
