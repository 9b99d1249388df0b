package model

import "time"

// LedgerEvent is pushed to the admin event feed after a successful mutation.
// Delivery is fire-and-forget and never blocks the mutation path.
type LedgerEvent struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
	At      time.Time      `json:"at"`
}

const (
	EventWithdrawCreated    = "withdraw_created"
	EventWithdrawApproved   = "withdraw_approved"
	EventReferralRegistered = "referral_registered"
	EventDailyClaimed       = "daily_claimed"
	EventChannelJoined      = "channel_joined"
)
