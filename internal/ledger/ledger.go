package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"TG_rewards_bot/internal/model"
	"TG_rewards_bot/pkg/logger"

	"go.uber.org/zap"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrBlocked             = errors.New("account is blocked")
	ErrTooManyRequests     = errors.New("too many requests")
	ErrClaimNotAvailable   = errors.New("the required time has not yet passed since your last claim")
	ErrEarnNotAvailable    = errors.New("earning links were already requested recently")
	ErrTaskNotFound        = errors.New("task not found")
	ErrTaskCooldown        = errors.New("task was claimed recently")
	ErrInvalidAmount       = errors.New("amount must be a positive number")
	ErrBelowMinWithdraw    = errors.New("amount is below the minimum withdrawal")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrWithdrawNotFound    = errors.New("withdraw not found or already processed")
)

// CooldownError wraps a time-gate rejection with the remaining wait, so the
// transport can tell the user when to retry. errors.Is matches the wrapped
// sentinel.
type CooldownError struct {
	Remaining time.Duration
	err       error
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%v: retry in %s", e.err, e.Remaining.Round(time.Second))
}

func (e *CooldownError) Unwrap() error { return e.err }

// Store is the persistence boundary the ledger writes through. The ledger
// owns the authoritative in-memory state; the store only has to replay it on
// startup and absorb per-record saves.
type Store interface {
	LoadUsers(ctx context.Context) (map[string]*model.UserAccount, error)
	LoadWithdrawals(ctx context.Context) ([]*model.WithdrawRequest, error)
	SaveUser(ctx context.Context, user *model.UserAccount) error
	SaveWithdrawal(ctx context.Context, req *model.WithdrawRequest) error
}

type Config struct {
	DailyBonusPoints    int
	ReferralBonusPoints int
	ChannelJoinPoints   int
	MinWithdrawPoints   int

	// ClaimCooldown gates the daily bonus by elapsed wall-clock time rather
	// than calendar-date identity; StreakGrace is how long a streak survives
	// past the last claim before it resets.
	ClaimCooldown time.Duration
	StreakGrace   time.Duration
	EarnCooldown  time.Duration
	TaskCooldown  time.Duration

	SpamWindow    time.Duration
	SpamThreshold int

	LeaderboardSize int
}

func (c Config) withDefaults() Config {
	if c.DailyBonusPoints == 0 {
		c.DailyBonusPoints = 5
	}
	if c.ReferralBonusPoints == 0 {
		c.ReferralBonusPoints = 10
	}
	if c.ChannelJoinPoints == 0 {
		c.ChannelJoinPoints = 5
	}
	if c.MinWithdrawPoints == 0 {
		c.MinWithdrawPoints = 100
	}
	if c.ClaimCooldown == 0 {
		c.ClaimCooldown = 24 * time.Hour
	}
	if c.StreakGrace == 0 {
		c.StreakGrace = 48 * time.Hour
	}
	if c.EarnCooldown == 0 {
		c.EarnCooldown = 24 * time.Hour
	}
	if c.TaskCooldown == 0 {
		c.TaskCooldown = time.Hour
	}
	if c.SpamWindow == 0 {
		c.SpamWindow = 10 * time.Second
	}
	if c.SpamThreshold == 0 {
		c.SpamThreshold = 3
	}
	if c.LeaderboardSize == 0 {
		c.LeaderboardSize = 10
	}
	return c
}

// Ledger is the single authority over UserAccount and WithdrawRequest state.
// Every mutation happens under one lock against the in-memory table and is
// then written through to the store, which fixes the lost-update race of the
// load-file/mutate/save-file pattern. Read-only queries take the read lock
// and return copies of the committed state.
type Ledger struct {
	mu        sync.RWMutex
	users     map[string]*model.UserAccount
	withdraws []*model.WithdrawRequest

	store  Store
	cfg    Config
	tasks  map[string]model.Task
	events chan model.LedgerEvent

	now func() time.Time
}

func New(store Store, cfg Config) *Ledger {
	tasks := make(map[string]model.Task, len(DefaultTasks))
	for _, t := range DefaultTasks {
		tasks[t.ID] = t
	}
	return &Ledger{
		users:  make(map[string]*model.UserAccount),
		store:  store,
		cfg:    cfg.withDefaults(),
		tasks:  tasks,
		events: make(chan model.LedgerEvent, 64),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Load replays the persisted state into memory. Missing or corrupt state
// comes back as empty collections from the store, never as an error the
// caller has to special-case.
func (l *Ledger) Load(ctx context.Context) error {
	users, err := l.store.LoadUsers(ctx)
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}
	withdraws, err := l.store.LoadWithdrawals(ctx)
	if err != nil {
		return fmt.Errorf("load withdrawals: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.users = users
	l.withdraws = withdraws

	logger.Logger().Info("ledger state loaded",
		zap.Int("users", len(users)),
		zap.Int("withdrawals", len(withdraws)))
	return nil
}

func (l *Ledger) MinWithdrawPoints() int { return l.cfg.MinWithdrawPoints }
func (l *Ledger) ReferralBonus() int     { return l.cfg.ReferralBonusPoints }

// persistUser writes the mutated record through to the store. Persistence is
// best-effort: a storage failure is logged but does not undo the in-memory
// mutation the user already saw.
func (l *Ledger) persistUser(ctx context.Context, u *model.UserAccount) {
	if err := l.store.SaveUser(ctx, u.Clone()); err != nil {
		logger.Logger().Warn("failed to persist user",
			zap.String("user_id", u.ID), zap.Error(err))
	}
}

func (l *Ledger) persistWithdrawal(ctx context.Context, w *model.WithdrawRequest) {
	if err := l.store.SaveWithdrawal(ctx, w.Clone()); err != nil {
		logger.Logger().Warn("failed to persist withdraw request",
			zap.String("request_id", w.ID), zap.Error(err))
	}
}

// EnsureAccount returns the existing account or lazily creates one with
// zeroed fields. Creation is persisted immediately.
func (l *Ledger) EnsureAccount(ctx context.Context, userID, username, firstName string) (*model.UserAccount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	u, ok := l.users[userID]
	if !ok {
		now := l.now()
		u = &model.UserAccount{
			ID:         userID,
			Username:   username,
			FirstName:  firstName,
			FirstSeen:  now,
			LastActive: now,
			Active:     true,
		}
		l.users[userID] = u
		l.persistUser(ctx, u)
		return u.Clone(), nil
	}

	changed := false
	if username != "" && u.Username != username {
		u.Username = username
		changed = true
	}
	if firstName != "" && u.FirstName != firstName {
		u.FirstName = firstName
		changed = true
	}
	if changed {
		l.persistUser(ctx, u)
	}
	return u.Clone(), nil
}

// RecordActivity bumps lastActive and the interaction counter. Any inbound
// message counts, rewarded or not.
func (l *Ledger) RecordActivity(ctx context.Context, userID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	u, ok := l.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.LastActive = l.now()
	u.InteractionCount++
	u.Active = true
	l.persistUser(ctx, u)
	return nil
}

// RecordActionAttempt appends the current instant to the user's sliding spam
// window, evicts expired entries and returns the resulting count. Counts
// above the threshold come back with ErrTooManyRequests.
func (l *Ledger) RecordActionAttempt(ctx context.Context, userID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	u, ok := l.users[userID]
	if !ok {
		return 0, ErrUserNotFound
	}

	now := l.now()
	cutoff := now.Add(-l.cfg.SpamWindow)
	kept := u.RecentRequests[:0]
	for _, ts := range u.RecentRequests {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, now)
	// hard bound so a flood cannot grow the record without limit
	if max := l.cfg.SpamThreshold * 4; len(kept) > max {
		kept = kept[len(kept)-max:]
	}
	u.RecentRequests = kept

	if len(kept) > l.cfg.SpamThreshold {
		return len(kept), ErrTooManyRequests
	}
	return len(kept), nil
}

// EarnAllowed reports whether the earning-link action is off cooldown. It is
// a pure query: consuming the cooldown is MarkEarnUsed, called only after the
// links were actually delivered, so a delivery failure does not burn the slot.
func (l *Ledger) EarnAllowed(ctx context.Context, userID string) (bool, time.Duration, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	u, ok := l.users[userID]
	if !ok {
		return false, 0, ErrUserNotFound
	}
	if u.Blocked {
		return false, 0, ErrBlocked
	}
	if u.LastEarnAt == nil {
		return true, 0, nil
	}
	elapsed := l.now().Sub(*u.LastEarnAt)
	if elapsed >= l.cfg.EarnCooldown {
		return true, 0, nil
	}
	return false, l.cfg.EarnCooldown - elapsed, nil
}

func (l *Ledger) MarkEarnUsed(ctx context.Context, userID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	u, ok := l.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	now := l.now()
	u.LastEarnAt = &now
	l.persistUser(ctx, u)
	return nil
}

type DailyClaimResult struct {
	Streak int
	Reward int
	Total  int
}

// ClaimDaily awards the daily bonus. Availability is gated by elapsed
// wall-clock time since the last claim; a claim within the grace window
// extends the streak, a later one restarts it at 1.
func (l *Ledger) ClaimDaily(ctx context.Context, userID string) (*DailyClaimResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	u, ok := l.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	if u.Blocked {
		return nil, ErrBlocked
	}

	now := l.now()
	streak := 1
	if u.LastClaimAt != nil {
		elapsed := now.Sub(*u.LastClaimAt)
		if elapsed < l.cfg.ClaimCooldown {
			return nil, &CooldownError{
				Remaining: l.cfg.ClaimCooldown - elapsed,
				err:       ErrClaimNotAvailable,
			}
		}
		if elapsed < l.cfg.StreakGrace {
			streak = u.ClaimStreak + 1
		}
	}

	u.Points += l.cfg.DailyBonusPoints
	u.LastClaimAt = &now
	u.ClaimStreak = streak
	l.persistUser(ctx, u)

	l.publish(model.EventDailyClaimed, map[string]any{
		"user_id": userID,
		"streak":  streak,
		"reward":  l.cfg.DailyBonusPoints,
	})

	return &DailyClaimResult{
		Streak: streak,
		Reward: l.cfg.DailyBonusPoints,
		Total:  u.Points,
	}, nil
}

// RegisterReferral attributes a new user to a referrer and pays the bonus.
// Attribution is write-once. Self-referrals, unknown referrers and repeat
// attempts fail silently with false.
func (l *Ledger) RegisterReferral(ctx context.Context, newUserID, referrerID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if newUserID == referrerID {
		return false, nil
	}
	newUser, ok := l.users[newUserID]
	if !ok {
		return false, nil
	}
	if newUser.ReferredBy != "" {
		return false, nil
	}
	referrer, ok := l.users[referrerID]
	if !ok || referrer.Blocked {
		return false, nil
	}

	newUser.ReferredBy = referrerID
	referrer.ReferralCount++
	referrer.Points += l.cfg.ReferralBonusPoints
	l.persistUser(ctx, newUser)
	l.persistUser(ctx, referrer)

	l.publish(model.EventReferralRegistered, map[string]any{
		"user_id":     newUserID,
		"referrer_id": referrerID,
		"reward":      l.cfg.ReferralBonusPoints,
	})
	return true, nil
}

// AddPoints applies an unconditional balance delta, except that it refuses to
// drive the balance negative.
func (l *Ledger) AddPoints(ctx context.Context, userID string, delta int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	u, ok := l.users[userID]
	if !ok {
		return 0, ErrUserNotFound
	}
	if u.Points+delta < 0 {
		return u.Points, ErrInsufficientBalance
	}
	u.Points += delta
	l.persistUser(ctx, u)
	return u.Points, nil
}

// CreditChannelJoin awards points once per distinct channel per user.
// Repeats are reported as credited=false without error.
func (l *Ledger) CreditChannelJoin(ctx context.Context, userID, channel string) (bool, int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	u, ok := l.users[userID]
	if !ok {
		return false, 0, ErrUserNotFound
	}
	if u.Blocked {
		return false, 0, ErrBlocked
	}
	if u.HasJoined(channel) {
		return false, 0, nil
	}

	u.JoinedChannels = append(u.JoinedChannels, channel)
	u.Points += l.cfg.ChannelJoinPoints
	l.persistUser(ctx, u)

	l.publish(model.EventChannelJoined, map[string]any{
		"user_id": userID,
		"channel": channel,
		"reward":  l.cfg.ChannelJoinPoints,
	})
	return true, l.cfg.ChannelJoinPoints, nil
}

func (l *Ledger) SetBlocked(ctx context.Context, userID string, blocked bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	u, ok := l.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.Blocked = blocked
	l.persistUser(ctx, u)
	return nil
}

// MarkInactive flips the active flag after a failed broadcast delivery, so
// future broadcasts skip the unreachable account.
func (l *Ledger) MarkInactive(ctx context.Context, userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	u, ok := l.users[userID]
	if !ok {
		return
	}
	u.Active = false
	l.persistUser(ctx, u)
}
