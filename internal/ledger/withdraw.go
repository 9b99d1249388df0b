package ledger

import (
	"context"

	"TG_rewards_bot/internal/model"

	"github.com/google/uuid"
)

// CreateWithdraw validates the request against the minimum and the current
// balance, debits the balance immediately and appends a pending request.
// Either everything happens or nothing does.
func (l *Ledger) CreateWithdraw(ctx context.Context, userID, method, account string, amount int) (*model.WithdrawRequest, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	u, ok := l.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	if u.Blocked {
		return nil, ErrBlocked
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if amount < l.cfg.MinWithdrawPoints {
		return nil, ErrBelowMinWithdraw
	}
	if amount > u.Points {
		return nil, ErrInsufficientBalance
	}

	u.Points -= amount
	req := &model.WithdrawRequest{
		ID:        uuid.NewString(),
		UserID:    userID,
		Method:    method,
		Account:   account,
		Amount:    amount,
		Status:    model.WithdrawPending,
		CreatedAt: l.now(),
	}
	l.withdraws = append(l.withdraws, req)

	l.persistUser(ctx, u)
	l.persistWithdrawal(ctx, req)

	l.publish(model.EventWithdrawCreated, map[string]any{
		"request_id": req.ID,
		"user_id":    userID,
		"amount":     amount,
		"method":     method,
	})
	return req.Clone(), nil
}

// ApproveWithdraw transitions a pending request to approved exactly once.
// Re-approving, or approving an unknown id, reports ErrWithdrawNotFound and
// mutates nothing.
func (l *Ledger) ApproveWithdraw(ctx context.Context, requestID string) (*model.WithdrawRequest, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, w := range l.withdraws {
		if w.ID != requestID || w.Status != model.WithdrawPending {
			continue
		}
		now := l.now()
		w.Status = model.WithdrawApproved
		w.ProcessedAt = &now
		l.persistWithdrawal(ctx, w)

		l.publish(model.EventWithdrawApproved, map[string]any{
			"request_id": w.ID,
			"user_id":    w.UserID,
			"amount":     w.Amount,
		})
		return w.Clone(), nil
	}
	return nil, ErrWithdrawNotFound
}

func (l *Ledger) UserWithdrawals(userID string) []*model.WithdrawRequest {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []*model.WithdrawRequest
	for _, w := range l.withdraws {
		if w.UserID == userID {
			out = append(out, w.Clone())
		}
	}
	return out
}

func (l *Ledger) PendingWithdrawals() []*model.WithdrawRequest {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []*model.WithdrawRequest
	for _, w := range l.withdraws {
		if w.Status == model.WithdrawPending {
			out = append(out, w.Clone())
		}
	}
	return out
}
