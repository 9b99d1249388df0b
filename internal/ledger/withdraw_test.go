package ledger

import (
	"context"
	"testing"
	"time"

	"TG_rewards_bot/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestCreateWithdraw(t *testing.T) {
	ctx := context.Background()

	t.Run("debits the balance at request time", func(t *testing.T) {
		l, _ := newTestLedger(t)
		_, err := l.EnsureAccount(ctx, "1", "", "")
		assert.NoError(t, err)
		_, err = l.AddPoints(ctx, "1", 250)
		assert.NoError(t, err)

		req, err := l.CreateWithdraw(ctx, "1", "PayPal", "me@example.com", 150)
		assert.NoError(t, err)
		assert.NotEmpty(t, req.ID)
		assert.Equal(t, model.WithdrawPending, req.Status)
		assert.Equal(t, 150, req.Amount)
		assert.Nil(t, req.ProcessedAt)

		balance, err := l.Balance("1")
		assert.NoError(t, err)
		assert.Equal(t, 100, balance)

		pending := l.PendingWithdrawals()
		assert.Len(t, pending, 1)
		assert.Equal(t, req.ID, pending[0].ID)
	})

	t.Run("rejects amounts above the balance", func(t *testing.T) {
		l, _ := newTestLedger(t)
		_, err := l.EnsureAccount(ctx, "1", "", "")
		assert.NoError(t, err)
		_, err = l.AddPoints(ctx, "1", 120)
		assert.NoError(t, err)

		_, err = l.CreateWithdraw(ctx, "1", "PayPal", "me@example.com", 130)
		assert.ErrorIs(t, err, ErrInsufficientBalance)

		balance, err := l.Balance("1")
		assert.NoError(t, err)
		assert.Equal(t, 120, balance)
		assert.Empty(t, l.PendingWithdrawals())
	})

	t.Run("rejects amounts below the minimum", func(t *testing.T) {
		// balance 50, minimum 100, request 60: rejected, balance untouched
		l, _ := newTestLedger(t)
		_, err := l.EnsureAccount(ctx, "1", "", "")
		assert.NoError(t, err)
		_, err = l.AddPoints(ctx, "1", 50)
		assert.NoError(t, err)

		_, err = l.CreateWithdraw(ctx, "1", "PayPal", "me@example.com", 60)
		assert.ErrorIs(t, err, ErrBelowMinWithdraw)

		balance, err := l.Balance("1")
		assert.NoError(t, err)
		assert.Equal(t, 50, balance)
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		l, _ := newTestLedger(t)
		_, err := l.EnsureAccount(ctx, "1", "", "")
		assert.NoError(t, err)

		_, err = l.CreateWithdraw(ctx, "1", "PayPal", "me@example.com", 0)
		assert.ErrorIs(t, err, ErrInvalidAmount)
		_, err = l.CreateWithdraw(ctx, "1", "PayPal", "me@example.com", -10)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("unknown user", func(t *testing.T) {
		l, _ := newTestLedger(t)
		_, err := l.CreateWithdraw(ctx, "404", "PayPal", "me@example.com", 100)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestApproveWithdraw(t *testing.T) {
	ctx := context.Background()

	t.Run("pending transitions to approved exactly once", func(t *testing.T) {
		l, _ := newTestLedger(t)
		at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		setClock(l, at)

		_, err := l.EnsureAccount(ctx, "1", "", "")
		assert.NoError(t, err)
		_, err = l.AddPoints(ctx, "1", 200)
		assert.NoError(t, err)
		req, err := l.CreateWithdraw(ctx, "1", "PayPal", "me@example.com", 150)
		assert.NoError(t, err)

		approved, err := l.ApproveWithdraw(ctx, req.ID)
		assert.NoError(t, err)
		assert.Equal(t, model.WithdrawApproved, approved.Status)
		assert.NotNil(t, approved.ProcessedAt)
		assert.Equal(t, at, *approved.ProcessedAt)

		// re-approving is a no-op reported as not found
		setClock(l, at.Add(time.Hour))
		_, err = l.ApproveWithdraw(ctx, req.ID)
		assert.ErrorIs(t, err, ErrWithdrawNotFound)

		mine := l.UserWithdrawals("1")
		assert.Len(t, mine, 1)
		assert.Equal(t, at, *mine[0].ProcessedAt)
	})

	t.Run("unknown id", func(t *testing.T) {
		l, _ := newTestLedger(t)
		_, err := l.ApproveWithdraw(ctx, "no-such-request")
		assert.ErrorIs(t, err, ErrWithdrawNotFound)
	})

	t.Run("approval does not change the balance again", func(t *testing.T) {
		l, _ := newTestLedger(t)
		_, err := l.EnsureAccount(ctx, "1", "", "")
		assert.NoError(t, err)
		_, err = l.AddPoints(ctx, "1", 200)
		assert.NoError(t, err)
		req, err := l.CreateWithdraw(ctx, "1", "bKash", "01700000000", 120)
		assert.NoError(t, err)

		_, err = l.ApproveWithdraw(ctx, req.ID)
		assert.NoError(t, err)

		balance, err := l.Balance("1")
		assert.NoError(t, err)
		assert.Equal(t, 80, balance)
	})
}
