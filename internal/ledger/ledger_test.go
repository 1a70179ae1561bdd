package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/garyjia/leave-approval/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	db, err := database.New(database.Config{
		Path:            filepath.Join(t.TempDir(), "ledger.db"),
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	l, err := New(db, zap.NewNop())
	require.NoError(t, err)
	return l
}

func TestLedger_MarkProcessed(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	first, err := l.MarkProcessed(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, first)

	// Redelivery of the same event id is reported as already processed.
	again, err := l.MarkProcessed(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, again)

	other, err := l.MarkProcessed(ctx, "evt-2")
	require.NoError(t, err)
	assert.True(t, other)
}
