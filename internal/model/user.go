package model

import "time"

// UserAccount is the per-user reward state. Accounts are created lazily on
// first interaction and never deleted. The map key in the users collection is
// the decimal Telegram user id, mirrored in ID.
type UserAccount struct {
	ID               string               `json:"-"`
	Username         string               `json:"username,omitempty"`
	FirstName        string               `json:"first_name,omitempty"`
	FirstSeen        time.Time            `json:"first_seen"`
	LastActive       time.Time            `json:"last_active"`
	Points           int                  `json:"points"`
	ReferredBy       string               `json:"referred_by,omitempty"`
	ReferralCount    int                  `json:"referrals"`
	LastClaimAt      *time.Time           `json:"last_claim,omitempty"`
	ClaimStreak      int                  `json:"claim_streak,omitempty"`
	LastEarnAt       *time.Time           `json:"last_earn,omitempty"`
	RecentRequests   []time.Time          `json:"recent_requests,omitempty"`
	TaskClaims       map[string]time.Time `json:"task_claims,omitempty"`
	JoinedChannels   []string             `json:"joins,omitempty"`
	Blocked          bool                 `json:"blocked,omitempty"`
	Active           bool                 `json:"active"`
	InteractionCount int                  `json:"interaction_count,omitempty"`
}

func (u *UserAccount) HasJoined(channel string) bool {
	for _, ch := range u.JoinedChannels {
		if ch == channel {
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe to hand out past the ledger lock.
func (u *UserAccount) Clone() *UserAccount {
	c := *u
	if u.RecentRequests != nil {
		c.RecentRequests = append([]time.Time(nil), u.RecentRequests...)
	}
	if u.JoinedChannels != nil {
		c.JoinedChannels = append([]string(nil), u.JoinedChannels...)
	}
	if u.TaskClaims != nil {
		c.TaskClaims = make(map[string]time.Time, len(u.TaskClaims))
		for k, v := range u.TaskClaims {
			c.TaskClaims[k] = v
		}
	}
	if u.LastClaimAt != nil {
		t := *u.LastClaimAt
		c.LastClaimAt = &t
	}
	if u.LastEarnAt != nil {
		t := *u.LastEarnAt
		c.LastEarnAt = &t
	}
	return &c
}

// Stats is the aggregate view the admin /stats command reports.
type Stats struct {
	TotalUsers       int
	ActiveUsers      int
	BlockedUsers     int
	TotalPoints      int
	TotalReferrals   int
	PendingWithdraws int
}
