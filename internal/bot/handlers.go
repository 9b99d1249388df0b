package bot

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"TG_rewards_bot/internal/ledger"
	"TG_rewards_bot/internal/model"
	"TG_rewards_bot/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message, userID string) {
	if referrerID, ok := parseReferralPayload(msg.CommandArguments()); ok {
		registered, err := b.ledger.RegisterReferral(ctx, userID, referrerID)
		if err != nil {
			logger.Logger().Warn("failed to register referral",
				zap.String("user_id", userID), zap.Error(err))
		}
		if registered {
			b.notifyUser(referrerID, fmt.Sprintf(
				"🎉 You earned %d points! New referral: @%s",
				b.ledger.ReferralBonus(), msg.From.UserName))
		}
	}

	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("👤 Profile"),
			tgbotapi.NewKeyboardButton("ℹ️ Help"),
		),
	)
	keyboard.ResizeKeyboard = true

	welcome := tgbotapi.NewMessage(msg.Chat.ID,
		"🤖 *Welcome!*\n\nEarn points with /earn, /claim, /tasks and referrals (/refer). Check /balance anytime.")
	welcome.ParseMode = tgbotapi.ModeMarkdown
	welcome.ReplyMarkup = keyboard
	if _, err := b.api.Send(welcome); err != nil {
		logger.Logger().Debug("failed to send welcome", zap.Error(err))
	}
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) {
	b.replyMarkdown(msg.Chat.ID, strings.Join([]string{
		"📘 *Commands*",
		"/earn — get earning links (once per day)",
		"/claim — claim the daily bonus",
		"/refer — your referral link",
		"/share — share the bot with friends",
		"/tasks — tasks with point rewards",
		"/joinearn — earn by joining channels",
		"/balance — your point balance",
		"/leaderboard — top earners",
		"/withdraw — request a payout",
		"/mywithdraws — your withdraw requests",
	}, "\n"))
}

func (b *Bot) handleText(msg *tgbotapi.Message) {
	switch msg.Text {
	case "👤 Profile":
		b.replyMarkdown(msg.Chat.ID, fmt.Sprintf(
			"👤 *Your Profile*\nName: %s\nUsername: @%s\nUser ID: `%d`",
			msg.From.FirstName, msg.From.UserName, msg.From.ID))
	case "ℹ️ Help":
		b.handleHelp(msg)
	default:
		b.reply(msg.Chat.ID, "☑️ Use /help to see the available commands.")
	}
}

func (b *Bot) handleEarn(ctx context.Context, msg *tgbotapi.Message, userID string) {
	if len(b.cfg.EarnLinks) == 0 {
		b.reply(msg.Chat.ID, "Links not configured yet. Contact admin.")
		return
	}

	allowed, remaining, err := b.ledger.EarnAllowed(ctx, userID)
	if err != nil {
		b.replyLedgerError(msg.Chat.ID, err)
		return
	}
	if !allowed {
		b.reply(msg.Chat.ID, fmt.Sprintf(
			"⏳ You already got your links. Try again after %s.", formatWait(remaining)))
		return
	}

	links := pickLinks(b.cfg.EarnLinks, 4)
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(links))
	for i, link := range links {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(fmt.Sprintf("Open Link #%d", i+1), link)))
	}

	out := tgbotapi.NewMessage(msg.Chat.ID, "👇 Get your earning links — click any:")
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := b.api.Send(out); err != nil {
		// the links never reached the user, keep the cooldown unconsumed
		logger.Logger().Debug("failed to send earn links", zap.Error(err))
		return
	}
	if err := b.ledger.MarkEarnUsed(ctx, userID); err != nil {
		logger.Logger().Warn("failed to mark earn used",
			zap.String("user_id", userID), zap.Error(err))
	}
}

func (b *Bot) handleClaim(ctx context.Context, msg *tgbotapi.Message, userID string) {
	res, err := b.ledger.ClaimDaily(ctx, userID)
	if err != nil {
		var cd *ledger.CooldownError
		if errors.As(err, &cd) {
			b.reply(msg.Chat.ID, fmt.Sprintf(
				"⏳ You already claimed. Try again after %s.", formatWait(cd.Remaining)))
			return
		}
		b.replyLedgerError(msg.Chat.ID, err)
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf(
		"✅ You claimed %d points! Streak: %d day(s). Your total: %d points.",
		res.Reward, res.Streak, res.Total))
}

func (b *Bot) handleRefer(msg *tgbotapi.Message, userID string) {
	link := b.referralLink(userID)
	b.reply(msg.Chat.ID, fmt.Sprintf(
		"Share this referral link and earn %d points when someone joins using it:\n\n%s",
		b.ledger.ReferralBonus(), link))

	png, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		logger.Logger().Warn("failed to encode referral qr", zap.Error(err))
		return
	}
	photo := tgbotapi.NewPhoto(msg.Chat.ID, tgbotapi.FileBytes{Name: "referral.png", Bytes: png})
	photo.Caption = "Scan to open your referral link"
	if _, err := b.api.Send(photo); err != nil {
		logger.Logger().Debug("failed to send referral qr", zap.Error(err))
	}
}

func (b *Bot) handleShare(msg *tgbotapi.Message, userID string) {
	link := b.referralLink(userID)
	out := tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf(
		"Share this message with your friends:\n\nI'm earning points with this bot — try it out: %s", link))
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("Open Bot", link)))
	if _, err := b.api.Send(out); err != nil {
		logger.Logger().Debug("failed to send share message", zap.Error(err))
	}
}

func (b *Bot) handleBalance(msg *tgbotapi.Message, userID string) {
	balance, err := b.ledger.Balance(userID)
	if err != nil {
		b.replyLedgerError(msg.Chat.ID, err)
		return
	}
	daily := "Daily bonus: ready — /claim"
	if available, remaining, _, err := b.ledger.DailyStatus(userID); err == nil && !available {
		daily = fmt.Sprintf("Daily bonus: in %s", formatWait(remaining))
	}
	b.reply(msg.Chat.ID, fmt.Sprintf(
		"💰 Your balance: %d points.\nMinimum withdraw: %d points.\n%s",
		balance, b.ledger.MinWithdrawPoints(), daily))
}

func (b *Bot) handleLeaderboard(msg *tgbotapi.Message) {
	top := b.ledger.Leaderboard(0)
	if len(top) == 0 {
		b.reply(msg.Chat.ID, "No earners yet — be the first!")
		return
	}

	var sb strings.Builder
	sb.WriteString("🏆 Top Earners:\n\n")
	for i, u := range top {
		name := u.Username
		if name == "" {
			name = u.FirstName
		}
		if name == "" {
			name = "User"
		}
		fmt.Fprintf(&sb, "%d. @%s — %d pts\n", i+1, name, u.Points)
	}
	b.reply(msg.Chat.ID, sb.String())
}

func (b *Bot) handleTasks(msg *tgbotapi.Message) {
	var sb strings.Builder
	sb.WriteString("📋 Available Tasks:\n")
	for _, t := range b.ledger.Tasks() {
		fmt.Fprintf(&sb, "\n*%s* — %s\nReward: %d points\nCommand: /task_%s\n",
			t.Title, t.Description, t.Reward, t.ID)
	}
	b.replyMarkdown(msg.Chat.ID, sb.String())
}

func (b *Bot) handleTaskInfo(msg *tgbotapi.Message, userID, cmd string) {
	task, ok := b.ledger.TaskByID(strings.TrimPrefix(cmd, "task_"))
	if !ok {
		b.reply(msg.Chat.ID, "Task not found.")
		return
	}

	switch task.Type {
	case model.TaskVisit:
		out := tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf(
			"🔎 *%s*\n\n%s\n\nAfter visiting, execute /claimtask_%s to get your reward.",
			task.Title, task.Description, task.ID))
		out.ParseMode = tgbotapi.ModeMarkdown
		out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("Open Link", task.URL)))
		if _, err := b.api.Send(out); err != nil {
			logger.Logger().Debug("failed to send task info", zap.Error(err))
		}
	case model.TaskShare:
		b.reply(msg.Chat.ID, fmt.Sprintf(
			"Share this link with your friends:\n\n%s\n\nWhen someone joins using your link you'll get points automatically.",
			b.referralLink(userID)))
	default:
		b.reply(msg.Chat.ID, "Task started. Follow instructions to claim reward.")
	}
}

func (b *Bot) handleClaimTask(ctx context.Context, msg *tgbotapi.Message, userID, taskID string) {
	res, err := b.ledger.ClaimTask(ctx, userID, taskID)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrTaskNotFound):
			b.reply(msg.Chat.ID, "Task not found.")
		case errors.Is(err, ledger.ErrTaskCooldown):
			b.reply(msg.Chat.ID, "⏳ You can claim this task again after 1 hour.")
		default:
			b.replyLedgerError(msg.Chat.ID, err)
		}
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf(
		"✅ Task claimed! You earned %d points. Total: %d pts.", res.Reward, res.Total))
}

func (b *Bot) handleJoinEarn(msg *tgbotapi.Message) {
	b.reply(msg.Chat.ID,
		"To earn by joining our channels, use /joincheck <channel_username_without_@>\nExample: /joincheck examplechannel")
}

func (b *Bot) handleJoinCheck(ctx context.Context, msg *tgbotapi.Message, userID string) {
	arg := strings.TrimSpace(msg.CommandArguments())
	if arg == "" {
		b.reply(msg.Chat.ID, "Use: /joincheck channelusername")
		return
	}
	channel := arg
	if !strings.HasPrefix(channel, "@") {
		channel = "@" + channel
	}

	member, err := b.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			SuperGroupUsername: channel,
			UserID:             msg.From.ID,
		},
	})
	if err != nil {
		b.reply(msg.Chat.ID,
			"Could not verify membership. Make sure the channel username is correct and the bot can see its members.")
		return
	}

	switch member.Status {
	case "member", "creator", "administrator":
		credited, reward, err := b.ledger.CreditChannelJoin(ctx, userID, channel)
		if err != nil {
			b.replyLedgerError(msg.Chat.ID, err)
			return
		}
		if credited {
			b.reply(msg.Chat.ID, fmt.Sprintf("✅ Verified join. You've been awarded %d points.", reward))
		} else {
			b.reply(msg.Chat.ID, "You have already been credited for joining this channel.")
		}
	default:
		b.reply(msg.Chat.ID, "❌ You are not a member of that channel. Please join first.")
	}
}

func (b *Bot) handleWithdraw(msg *tgbotapi.Message, userID string) {
	balance, err := b.ledger.Balance(userID)
	if err != nil {
		b.replyLedgerError(msg.Chat.ID, err)
		return
	}
	min := b.ledger.MinWithdrawPoints()
	if balance < min {
		b.reply(msg.Chat.ID, fmt.Sprintf(
			"Minimum withdraw is %d points. Your balance: %d pts.", min, balance))
		return
	}

	b.setAwaitingWithdraw(userID, true)
	b.reply(msg.Chat.ID,
		"Send withdrawal details in one message in this format:\n\nMETHOD|ACCOUNT|AMOUNT\n\nExample:\nPayPal|me@example.com|100")
}

func (b *Bot) handleWithdrawDetails(ctx context.Context, msg *tgbotapi.Message, userID string) {
	method, account, amount, err := parseWithdrawLine(msg.Text)
	if err != nil {
		b.setAwaitingWithdraw(userID, false)
		b.reply(msg.Chat.ID, "Invalid format. Try /withdraw again.")
		return
	}

	req, err := b.ledger.CreateWithdraw(ctx, userID, method, account, amount)
	if err != nil {
		b.setAwaitingWithdraw(userID, false)
		switch {
		case errors.Is(err, ledger.ErrInsufficientBalance):
			balance, _ := b.ledger.Balance(userID)
			b.reply(msg.Chat.ID, fmt.Sprintf("You don't have enough points. Your balance: %d", balance))
		case errors.Is(err, ledger.ErrBelowMinWithdraw):
			b.reply(msg.Chat.ID, fmt.Sprintf("Minimum withdraw is %d points.", b.ledger.MinWithdrawPoints()))
		case errors.Is(err, ledger.ErrInvalidAmount):
			b.reply(msg.Chat.ID, "Invalid amount. Try /withdraw again.")
		default:
			b.replyLedgerError(msg.Chat.ID, err)
		}
		return
	}

	b.setAwaitingWithdraw(userID, false)
	b.reply(msg.Chat.ID, "✅ Withdraw request created. Admin will review and process it.")
	b.notifyAdmin(fmt.Sprintf(
		"New withdraw request\nID: %s\nUser: %s\nAmount: %d %s\nMethod: %s\nAccount: %s",
		req.ID, req.UserID, req.Amount, b.cfg.Currency, req.Method, req.Account))
}

func (b *Bot) handleMyWithdraws(msg *tgbotapi.Message, userID string) {
	mine := b.ledger.UserWithdrawals(userID)
	if len(mine) == 0 {
		b.reply(msg.Chat.ID, "No withdraw requests found.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Your withdraw requests:\n\n")
	for _, w := range mine {
		fmt.Fprintf(&sb, "ID: %s\nAmount: %d\nMethod: %s\nStatus: %s\n\n",
			w.ID, w.Amount, w.Method, w.Status)
	}
	b.reply(msg.Chat.ID, sb.String())
}

func (b *Bot) replyLedgerError(chatID int64, err error) {
	switch {
	case errors.Is(err, ledger.ErrBlocked):
		b.reply(chatID, "🚫 Your account is blocked.")
	case errors.Is(err, ledger.ErrUserNotFound):
		b.reply(chatID, "Please send /start first.")
	default:
		b.reply(chatID, "Something went wrong. Please try again later.")
	}
}

// pickLinks returns up to n links in random order without mutating the
// configured slice.
func pickLinks(links []string, n int) []string {
	shuffled := append([]string(nil), links...)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	if len(shuffled) > n {
		shuffled = shuffled[:n]
	}
	return shuffled
}

func formatWait(d time.Duration) string {
	d = d.Round(time.Minute)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", h, m)
}
