package ledger

import (
	"sort"
	"time"

	"TG_rewards_bot/internal/model"
)

func (l *Ledger) Account(userID string) (*model.UserAccount, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	u, ok := l.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u.Clone(), nil
}

func (l *Ledger) Balance(userID string) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	u, ok := l.users[userID]
	if !ok {
		return 0, ErrUserNotFound
	}
	return u.Points, nil
}

// DailyStatus reports whether the daily bonus is claimable, how long until it
// is otherwise, and the current streak. It never consumes the claim.
func (l *Ledger) DailyStatus(userID string) (bool, time.Duration, int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	u, ok := l.users[userID]
	if !ok {
		return false, 0, 0, ErrUserNotFound
	}
	if u.Blocked {
		return false, 0, 0, ErrBlocked
	}
	if u.LastClaimAt == nil {
		return true, 0, 0, nil
	}
	elapsed := l.now().Sub(*u.LastClaimAt)
	if elapsed >= l.cfg.ClaimCooldown {
		return true, 0, u.ClaimStreak, nil
	}
	return false, l.cfg.ClaimCooldown - elapsed, u.ClaimStreak, nil
}

func (l *Ledger) Stats() model.Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var s model.Stats
	s.TotalUsers = len(l.users)
	for _, u := range l.users {
		s.TotalPoints += u.Points
		s.TotalReferrals += u.ReferralCount
		if u.Active {
			s.ActiveUsers++
		}
		if u.Blocked {
			s.BlockedUsers++
		}
	}
	for _, w := range l.withdraws {
		if w.Status == model.WithdrawPending {
			s.PendingWithdraws++
		}
	}
	return s
}

// Leaderboard returns the top accounts by points. A zero limit falls back to
// the configured size.
func (l *Ledger) Leaderboard(limit int) []*model.UserAccount {
	if limit <= 0 {
		limit = l.cfg.LeaderboardSize
	}

	l.mu.RLock()
	ranked := make([]*model.UserAccount, 0, len(l.users))
	for _, u := range l.users {
		ranked = append(ranked, u.Clone())
	}
	l.mu.RUnlock()

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Points != ranked[j].Points {
			return ranked[i].Points > ranked[j].Points
		}
		return ranked[i].ID < ranked[j].ID
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// BroadcastTargets lists user ids eligible for a mass message. Blocked
// accounts are always skipped; activeOnly additionally skips accounts that
// failed a previous delivery.
func (l *Ledger) BroadcastTargets(activeOnly bool) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	targets := make([]string, 0, len(l.users))
	for id, u := range l.users {
		if u.Blocked {
			continue
		}
		if activeOnly && !u.Active {
			continue
		}
		targets = append(targets, id)
	}
	sort.Strings(targets)
	return targets
}
