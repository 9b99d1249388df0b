package ledger

import (
	"context"
	"testing"
	"time"

	"TG_rewards_bot/internal/ledger/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestLedger(t *testing.T) (*Ledger, *mocks.MockStore) {
	t.Helper()
	store := &mocks.MockStore{}
	store.On("SaveUser", mock.Anything, mock.Anything).Return(nil)
	store.On("SaveWithdrawal", mock.Anything, mock.Anything).Return(nil)
	return New(store, Config{}), store
}

func setClock(l *Ledger, at time.Time) {
	l.now = func() time.Time { return at }
}

func TestEnsureAccount(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	u, err := l.EnsureAccount(ctx, "42", "alice", "Alice")
	assert.NoError(t, err)
	assert.Equal(t, "42", u.ID)
	assert.Equal(t, 0, u.Points)
	assert.True(t, u.Active)
	assert.Empty(t, u.ReferredBy)

	// second call returns the same account, not a fresh one
	_, err = l.AddPoints(ctx, "42", 7)
	assert.NoError(t, err)
	again, err := l.EnsureAccount(ctx, "42", "alice", "Alice")
	assert.NoError(t, err)
	assert.Equal(t, 7, again.Points)
}

func TestEnsureAccountPersistsProfileRefresh(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()

	_, err := l.EnsureAccount(ctx, "42", "alice", "Alice")
	assert.NoError(t, err)
	store.AssertNumberOfCalls(t, "SaveUser", 1)

	// a renamed profile is written through immediately
	u, err := l.EnsureAccount(ctx, "42", "alice_new", "Alice")
	assert.NoError(t, err)
	assert.Equal(t, "alice_new", u.Username)
	store.AssertNumberOfCalls(t, "SaveUser", 2)

	// an unchanged profile writes nothing
	_, err = l.EnsureAccount(ctx, "42", "alice_new", "Alice")
	assert.NoError(t, err)
	store.AssertNumberOfCalls(t, "SaveUser", 2)
}

func TestRegisterReferral(t *testing.T) {
	ctx := context.Background()

	t.Run("start with referral payload credits the referrer", func(t *testing.T) {
		l, _ := newTestLedger(t)
		_, err := l.EnsureAccount(ctx, "7", "ref", "Referrer")
		assert.NoError(t, err)
		_, err = l.EnsureAccount(ctx, "42", "new", "Newcomer")
		assert.NoError(t, err)

		ok, err := l.RegisterReferral(ctx, "42", "7")
		assert.NoError(t, err)
		assert.True(t, ok)

		referrer, err := l.Account("7")
		assert.NoError(t, err)
		assert.Equal(t, 1, referrer.ReferralCount)
		assert.Equal(t, l.ReferralBonus(), referrer.Points)

		newcomer, err := l.Account("42")
		assert.NoError(t, err)
		assert.Equal(t, "7", newcomer.ReferredBy)
	})

	t.Run("attribution is write-once", func(t *testing.T) {
		l, _ := newTestLedger(t)
		for _, id := range []string{"7", "8", "42"} {
			_, err := l.EnsureAccount(ctx, id, "", "")
			assert.NoError(t, err)
		}

		ok, err := l.RegisterReferral(ctx, "42", "7")
		assert.NoError(t, err)
		assert.True(t, ok)

		ok, err = l.RegisterReferral(ctx, "42", "8")
		assert.NoError(t, err)
		assert.False(t, ok)

		u, err := l.Account("42")
		assert.NoError(t, err)
		assert.Equal(t, "7", u.ReferredBy)

		other, err := l.Account("8")
		assert.NoError(t, err)
		assert.Equal(t, 0, other.ReferralCount)
		assert.Equal(t, 0, other.Points)
	})

	t.Run("self-referral is rejected", func(t *testing.T) {
		l, _ := newTestLedger(t)
		_, err := l.EnsureAccount(ctx, "42", "", "")
		assert.NoError(t, err)

		ok, err := l.RegisterReferral(ctx, "42", "42")
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unknown referrer fails silently", func(t *testing.T) {
		l, _ := newTestLedger(t)
		_, err := l.EnsureAccount(ctx, "42", "", "")
		assert.NoError(t, err)

		ok, err := l.RegisterReferral(ctx, "42", "999")
		assert.NoError(t, err)
		assert.False(t, ok)

		u, err := l.Account("42")
		assert.NoError(t, err)
		assert.Empty(t, u.ReferredBy)
	})
}

func TestClaimDaily(t *testing.T) {
	ctx := context.Background()
	dayZero := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("first claim starts the streak", func(t *testing.T) {
		l, _ := newTestLedger(t)
		setClock(l, dayZero)
		_, err := l.EnsureAccount(ctx, "1", "", "")
		assert.NoError(t, err)

		res, err := l.ClaimDaily(ctx, "1")
		assert.NoError(t, err)
		assert.Equal(t, 1, res.Streak)
		assert.Equal(t, l.cfg.DailyBonusPoints, res.Total)
	})

	t.Run("second claim on the same day is rejected without mutation", func(t *testing.T) {
		l, _ := newTestLedger(t)
		setClock(l, dayZero)
		_, err := l.EnsureAccount(ctx, "1", "", "")
		assert.NoError(t, err)
		_, err = l.ClaimDaily(ctx, "1")
		assert.NoError(t, err)

		setClock(l, dayZero.Add(6*time.Hour))
		_, err = l.ClaimDaily(ctx, "1")
		assert.ErrorIs(t, err, ErrClaimNotAvailable)

		var cd *CooldownError
		assert.ErrorAs(t, err, &cd)
		assert.Equal(t, 18*time.Hour, cd.Remaining)

		u, err := l.Account("1")
		assert.NoError(t, err)
		assert.Equal(t, l.cfg.DailyBonusPoints, u.Points)
		assert.Equal(t, 1, u.ClaimStreak)
	})

	t.Run("claim on the next day extends the streak", func(t *testing.T) {
		l, _ := newTestLedger(t)
		setClock(l, dayZero)
		_, err := l.EnsureAccount(ctx, "1", "", "")
		assert.NoError(t, err)
		_, err = l.ClaimDaily(ctx, "1")
		assert.NoError(t, err)

		setClock(l, dayZero.Add(25*time.Hour))
		res, err := l.ClaimDaily(ctx, "1")
		assert.NoError(t, err)
		assert.Equal(t, 2, res.Streak)
	})

	t.Run("skipping a day resets the streak to 1", func(t *testing.T) {
		l, _ := newTestLedger(t)
		setClock(l, dayZero)
		_, err := l.EnsureAccount(ctx, "1", "", "")
		assert.NoError(t, err)
		_, err = l.ClaimDaily(ctx, "1")
		assert.NoError(t, err)

		setClock(l, dayZero.Add(25*time.Hour))
		_, err = l.ClaimDaily(ctx, "1")
		assert.NoError(t, err)

		setClock(l, dayZero.Add(25*time.Hour).Add(49*time.Hour))
		res, err := l.ClaimDaily(ctx, "1")
		assert.NoError(t, err)
		assert.Equal(t, 1, res.Streak)
	})

	t.Run("blocked account is refused", func(t *testing.T) {
		l, _ := newTestLedger(t)
		_, err := l.EnsureAccount(ctx, "1", "", "")
		assert.NoError(t, err)
		assert.NoError(t, l.SetBlocked(ctx, "1", true))

		_, err = l.ClaimDaily(ctx, "1")
		assert.ErrorIs(t, err, ErrBlocked)
	})
}

func TestDailyStatus(t *testing.T) {
	ctx := context.Background()
	dayZero := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	l, _ := newTestLedger(t)
	setClock(l, dayZero)
	_, err := l.EnsureAccount(ctx, "1", "", "")
	assert.NoError(t, err)

	available, remaining, streak, err := l.DailyStatus("1")
	assert.NoError(t, err)
	assert.True(t, available)
	assert.Zero(t, remaining)
	assert.Zero(t, streak)

	_, err = l.ClaimDaily(ctx, "1")
	assert.NoError(t, err)

	// the query reports the cooldown without consuming anything
	setClock(l, dayZero.Add(6*time.Hour))
	available, remaining, streak, err = l.DailyStatus("1")
	assert.NoError(t, err)
	assert.False(t, available)
	assert.Equal(t, 18*time.Hour, remaining)
	assert.Equal(t, 1, streak)

	u, err := l.Account("1")
	assert.NoError(t, err)
	assert.Equal(t, l.cfg.DailyBonusPoints, u.Points)

	setClock(l, dayZero.Add(25*time.Hour))
	available, _, streak, err = l.DailyStatus("1")
	assert.NoError(t, err)
	assert.True(t, available)
	assert.Equal(t, 1, streak)

	_, _, _, err = l.DailyStatus("999")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestEarnCooldown(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)
	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	setClock(l, at)

	_, err := l.EnsureAccount(ctx, "1", "", "")
	assert.NoError(t, err)

	allowed, remaining, err := l.EarnAllowed(ctx, "1")
	assert.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, remaining)

	// the query alone must not consume the cooldown
	allowed, _, err = l.EarnAllowed(ctx, "1")
	assert.NoError(t, err)
	assert.True(t, allowed)

	assert.NoError(t, l.MarkEarnUsed(ctx, "1"))

	setClock(l, at.Add(10*time.Hour))
	allowed, remaining, err = l.EarnAllowed(ctx, "1")
	assert.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 14*time.Hour, remaining)

	setClock(l, at.Add(24*time.Hour))
	allowed, _, err = l.EarnAllowed(ctx, "1")
	assert.NoError(t, err)
	assert.True(t, allowed)
}

func TestRecordActionAttempt(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)
	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	setClock(l, at)

	_, err := l.EnsureAccount(ctx, "1", "", "")
	assert.NoError(t, err)

	for i := 1; i <= 3; i++ {
		count, err := l.RecordActionAttempt(ctx, "1")
		assert.NoError(t, err)
		assert.Equal(t, i, count)
	}

	count, err := l.RecordActionAttempt(ctx, "1")
	assert.ErrorIs(t, err, ErrTooManyRequests)
	assert.Equal(t, 4, count)

	// entries older than the window are evicted
	setClock(l, at.Add(11*time.Second))
	count, err = l.RecordActionAttempt(ctx, "1")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCreditChannelJoin(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)

	_, err := l.EnsureAccount(ctx, "1", "", "")
	assert.NoError(t, err)

	credited, reward, err := l.CreditChannelJoin(ctx, "1", "@examplechannel")
	assert.NoError(t, err)
	assert.True(t, credited)
	assert.Equal(t, l.cfg.ChannelJoinPoints, reward)

	credited, reward, err = l.CreditChannelJoin(ctx, "1", "@examplechannel")
	assert.NoError(t, err)
	assert.False(t, credited)
	assert.Zero(t, reward)

	u, err := l.Account("1")
	assert.NoError(t, err)
	assert.Equal(t, l.cfg.ChannelJoinPoints, u.Points)
}

func TestAddPointsNeverNegative(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)

	_, err := l.EnsureAccount(ctx, "1", "", "")
	assert.NoError(t, err)

	total, err := l.AddPoints(ctx, "1", 30)
	assert.NoError(t, err)
	assert.Equal(t, 30, total)

	total, err = l.AddPoints(ctx, "1", -50)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, 30, total)
}

func TestLeaderboardAndStats(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)

	for id, points := range map[string]int{"1": 10, "2": 30, "3": 20} {
		_, err := l.EnsureAccount(ctx, id, "", "")
		assert.NoError(t, err)
		_, err = l.AddPoints(ctx, id, points)
		assert.NoError(t, err)
	}

	top := l.Leaderboard(2)
	assert.Len(t, top, 2)
	assert.Equal(t, "2", top[0].ID)
	assert.Equal(t, "3", top[1].ID)

	s := l.Stats()
	assert.Equal(t, 3, s.TotalUsers)
	assert.Equal(t, 60, s.TotalPoints)
	assert.Equal(t, 0, s.PendingWithdraws)
}

func TestBroadcastTargets(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)

	for _, id := range []string{"1", "2", "3"} {
		_, err := l.EnsureAccount(ctx, id, "", "")
		assert.NoError(t, err)
	}
	l.MarkInactive(ctx, "2")
	assert.NoError(t, l.SetBlocked(ctx, "3", true))

	assert.Equal(t, []string{"1"}, l.BroadcastTargets(true))
	assert.Equal(t, []string{"1", "2"}, l.BroadcastTargets(false))
}
