package model

import "time"

type WithdrawStatus string

const (
	WithdrawPending  WithdrawStatus = "pending"
	WithdrawApproved WithdrawStatus = "approved"
)

// WithdrawRequest is created by /withdraw and mutated only by admin approval.
// The balance is debited at creation time, not at approval time.
type WithdrawRequest struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	Method      string         `json:"method"`
	Account     string         `json:"account"`
	Amount      int            `json:"amount"`
	Status      WithdrawStatus `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	ProcessedAt *time.Time     `json:"processed_at,omitempty"`
}

func (w *WithdrawRequest) Clone() *WithdrawRequest {
	c := *w
	if w.ProcessedAt != nil {
		t := *w.ProcessedAt
		c.ProcessedAt = &t
	}
	return &c
}
