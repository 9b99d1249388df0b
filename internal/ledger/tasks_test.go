package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClaimTask(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("claim awards the task reward", func(t *testing.T) {
		l, _ := newTestLedger(t)
		setClock(l, at)
		_, err := l.EnsureAccount(ctx, "1", "", "")
		assert.NoError(t, err)

		res, err := l.ClaimTask(ctx, "1", "task_yt_watch")
		assert.NoError(t, err)
		assert.Equal(t, 3, res.Reward)
		assert.Equal(t, 3, res.Total)
	})

	t.Run("per-task cooldown is one hour", func(t *testing.T) {
		l, _ := newTestLedger(t)
		setClock(l, at)
		_, err := l.EnsureAccount(ctx, "1", "", "")
		assert.NoError(t, err)

		_, err = l.ClaimTask(ctx, "1", "task_yt_watch")
		assert.NoError(t, err)

		setClock(l, at.Add(30*time.Minute))
		_, err = l.ClaimTask(ctx, "1", "task_yt_watch")
		assert.ErrorIs(t, err, ErrTaskCooldown)

		var cd *CooldownError
		assert.ErrorAs(t, err, &cd)
		assert.Equal(t, 30*time.Minute, cd.Remaining)

		setClock(l, at.Add(61*time.Minute))
		res, err := l.ClaimTask(ctx, "1", "task_yt_watch")
		assert.NoError(t, err)
		assert.Equal(t, 6, res.Total)
	})

	t.Run("cooldowns are independent per task", func(t *testing.T) {
		l, _ := newTestLedger(t)
		setClock(l, at)
		_, err := l.EnsureAccount(ctx, "1", "", "")
		assert.NoError(t, err)

		_, err = l.ClaimTask(ctx, "1", "task_yt_watch")
		assert.NoError(t, err)
		res, err := l.ClaimTask(ctx, "1", "task_visit_site")
		assert.NoError(t, err)
		assert.Equal(t, 5, res.Total)
	})

	t.Run("unknown task", func(t *testing.T) {
		l, _ := newTestLedger(t)
		_, err := l.EnsureAccount(ctx, "1", "", "")
		assert.NoError(t, err)

		_, err = l.ClaimTask(ctx, "1", "task_missing")
		assert.ErrorIs(t, err, ErrTaskNotFound)
	})

	t.Run("catalog lookup", func(t *testing.T) {
		l, _ := newTestLedger(t)
		task, ok := l.TaskByID("task_share_bot")
		assert.True(t, ok)
		assert.Equal(t, 5, task.Reward)

		_, ok = l.TaskByID("nope")
		assert.False(t, ok)
		assert.Len(t, l.Tasks(), 3)
	})
}
