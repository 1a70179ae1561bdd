package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParser_Parse(t *testing.T) {
	p := New(zap.NewNop())

	t.Run("full command with reason", func(t *testing.T) {
		cmd, err := p.Parse("請假 2025-11-10 到 2025-11-12 事假 生病")
		require.NoError(t, err)
		assert.Equal(t, "2025-11-10", cmd.StartDate)
		assert.Equal(t, "2025-11-12", cmd.EndDate)
		assert.Equal(t, "事假", cmd.LeaveType)
		assert.Equal(t, "生病", cmd.Reason)
	})

	t.Run("multi token reason is joined", func(t *testing.T) {
		cmd, err := p.Parse("請假 2025-11-10 到 2025-11-12 事假 家裡 有事")
		require.NoError(t, err)
		assert.Equal(t, "家裡 有事", cmd.Reason)
	})

	t.Run("missing reason defaults to sentinel", func(t *testing.T) {
		cmd, err := p.Parse("請假 2025-11-10 到 2025-11-12 病假")
		require.NoError(t, err)
		assert.Equal(t, "無", cmd.Reason)
	})

	t.Run("too few tokens", func(t *testing.T) {
		for _, text := range []string{
			"請假",
			"請假 2025-11-10",
			"請假 2025-11-10 到",
			"請假 2025-11-10 到 2025-11-12",
		} {
			_, err := p.Parse(text)
			assert.ErrorIs(t, err, ErrMalformedRequest, "text: %s", text)
		}
	})

	t.Run("date tokens are not validated", func(t *testing.T) {
		// Inherited ambiguity: any non-empty token passes as a date, and
		// start after end is accepted.
		cmd, err := p.Parse("請假 明天 到 昨天 事假")
		require.NoError(t, err)
		assert.Equal(t, "明天", cmd.StartDate)
		assert.Equal(t, "昨天", cmd.EndDate)
	})

	t.Run("surrounding whitespace is trimmed", func(t *testing.T) {
		cmd, err := p.Parse("  請假 2025-11-10 到 2025-11-12 事假  ")
		require.NoError(t, err)
		assert.Equal(t, "事假", cmd.LeaveType)
	})
}

func TestParser_IsSubmission(t *testing.T) {
	p := New(zap.NewNop())

	assert.True(t, p.IsSubmission("請假 2025-11-10 到 2025-11-12 事假"))
	assert.True(t, p.IsSubmission("  請假"))
	assert.False(t, p.IsSubmission("你好"))
	assert.False(t, p.IsSubmission(""))
}
