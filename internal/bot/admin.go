package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"TG_rewards_bot/internal/ledger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleStats(msg *tgbotapi.Message) {
	s := b.ledger.Stats()
	b.reply(msg.Chat.ID, fmt.Sprintf(
		"Users: %d (active: %d, blocked: %d)\nPoints: %d\nReferrals: %d\nPending withdraws: %d",
		s.TotalUsers, s.ActiveUsers, s.BlockedUsers,
		s.TotalPoints, s.TotalReferrals, s.PendingWithdraws))
}

func (b *Bot) handleBroadcast(ctx context.Context, msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.CommandArguments())
	if text == "" {
		b.reply(msg.Chat.ID, "Use: /broadcast <message>")
		return
	}

	sent, failed := b.broadcast(ctx, func(chatID int64) tgbotapi.Chattable {
		return tgbotapi.NewMessage(chatID, text)
	})
	b.reply(msg.Chat.ID, fmt.Sprintf("Broadcast done. Delivered: %d, failed: %d.", sent, failed))
}

func (b *Bot) handleSetBlocked(ctx context.Context, msg *tgbotapi.Message, blocked bool) {
	arg := strings.TrimSpace(msg.CommandArguments())
	if _, err := strconv.ParseInt(arg, 10, 64); err != nil {
		b.reply(msg.Chat.ID, fmt.Sprintf("Use: /%s <numeric user id>", msg.Command()))
		return
	}

	if err := b.ledger.SetBlocked(ctx, arg, blocked); err != nil {
		if errors.Is(err, ledger.ErrUserNotFound) {
			b.reply(msg.Chat.ID, "User not found.")
			return
		}
		b.reply(msg.Chat.ID, "Failed to update the user.")
		return
	}

	if blocked {
		b.reply(msg.Chat.ID, fmt.Sprintf("User %s blocked.", arg))
	} else {
		b.reply(msg.Chat.ID, fmt.Sprintf("User %s unblocked.", arg))
	}
}

func (b *Bot) handleWithdraws(msg *tgbotapi.Message) {
	pending := b.ledger.PendingWithdrawals()
	if len(pending) == 0 {
		b.reply(msg.Chat.ID, "No pending withdraws.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Pending withdraws:\n\n")
	for _, w := range pending {
		fmt.Fprintf(&sb, "ID: %s\nUser: %s\nAmount: %d\nMethod: %s\nAccount: %s\n\n",
			w.ID, w.UserID, w.Amount, w.Method, w.Account)
	}
	b.reply(msg.Chat.ID, sb.String())
}

func (b *Bot) handleApproveWithdraw(ctx context.Context, msg *tgbotapi.Message) {
	requestID := strings.TrimSpace(msg.CommandArguments())
	if requestID == "" {
		b.reply(msg.Chat.ID, "Use: /approve_withdraw <withdraw_id>")
		return
	}

	req, err := b.ledger.ApproveWithdraw(ctx, requestID)
	if err != nil {
		if errors.Is(err, ledger.ErrWithdrawNotFound) {
			b.reply(msg.Chat.ID, "Withdraw not found or already processed.")
			return
		}
		b.reply(msg.Chat.ID, "Failed to approve the withdraw.")
		return
	}

	b.reply(msg.Chat.ID, "Withdraw approved.")
	b.notifyUser(req.UserID, fmt.Sprintf(
		"Your withdraw %s for %d %s has been approved by admin.",
		req.ID, req.Amount, b.cfg.Currency))
}
