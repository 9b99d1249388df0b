package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"TG_rewards_bot/internal/ledger"
	"TG_rewards_bot/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type Config struct {
	AdminID             int64
	Currency            string
	EarnLinks           []string
	BroadcastInterval   time.Duration
	BroadcastActiveOnly bool
	Debug               bool
}

// Bot drives the chat transport: long-polling, a static command dispatch
// table, and the scheduled earning-link broadcast. All reward decisions are
// delegated to the ledger.
type Bot struct {
	api    *tgbotapi.BotAPI
	ledger *ledger.Ledger
	cfg    Config

	// per-user withdraw dialogue state, checked by the single stable
	// message handler instead of registering a handler per attempt
	mu               sync.Mutex
	awaitingWithdraw map[string]bool
}

func New(token string, l *ledger.Ledger, cfg Config) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize bot: %w", err)
	}
	api.Debug = cfg.Debug

	return &Bot{
		api:              api,
		ledger:           l,
		cfg:              cfg,
		awaitingWithdraw: make(map[string]bool),
	}, nil
}

func (b *Bot) Username() string { return b.api.Self.UserName }

func (b *Bot) referralLink(userID string) string {
	return fmt.Sprintf("https://t.me/%s?start=ref%s", b.Username(), userID)
}

// Run consumes updates until the context is cancelled. One update is handled
// at a time; a failure in one handler never takes down the loop.
func (b *Bot) Run(ctx context.Context) {
	log := logger.Logger()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	log.Info("bot started", zap.String("username", b.Username()))

	for {
		select {
		case update := <-updates:
			b.handleUpdate(ctx, update)
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	log := logger.Logger()
	defer func() {
		if r := recover(); r != nil {
			log.Error("handler panic recovered", zap.Any("panic", r))
		}
	}()

	msg := update.Message
	if msg == nil || msg.From == nil || msg.Text == "" {
		return
	}

	userID := strconv.FormatInt(msg.From.ID, 10)
	if _, err := b.ledger.EnsureAccount(ctx, userID, msg.From.UserName, msg.From.FirstName); err != nil {
		log.Error("failed to ensure account", zap.String("user_id", userID), zap.Error(err))
		return
	}
	if err := b.ledger.RecordActivity(ctx, userID); err != nil {
		log.Warn("failed to record activity", zap.String("user_id", userID), zap.Error(err))
	}

	if _, err := b.ledger.RecordActionAttempt(ctx, userID); errors.Is(err, ledger.ErrTooManyRequests) {
		b.reply(msg.Chat.ID, "⏳ Too many requests. Please slow down and try again in a few seconds.")
		return
	}

	if b.isAwaitingWithdraw(userID) && strings.Contains(msg.Text, "|") {
		b.handleWithdrawDetails(ctx, msg, userID)
		return
	}

	if !msg.IsCommand() {
		b.handleText(msg)
		return
	}

	cmd := msg.Command()
	switch {
	case cmd == "start":
		b.handleStart(ctx, msg, userID)
	case cmd == "help":
		b.handleHelp(msg)
	case cmd == "earn":
		b.handleEarn(ctx, msg, userID)
	case cmd == "claim":
		b.handleClaim(ctx, msg, userID)
	case cmd == "refer":
		b.handleRefer(msg, userID)
	case cmd == "share":
		b.handleShare(msg, userID)
	case cmd == "balance":
		b.handleBalance(msg, userID)
	case cmd == "leaderboard":
		b.handleLeaderboard(msg)
	case cmd == "tasks":
		b.handleTasks(msg)
	case strings.HasPrefix(cmd, "task_"):
		b.handleTaskInfo(msg, userID, cmd)
	case strings.HasPrefix(cmd, "claimtask_"):
		b.handleClaimTask(ctx, msg, userID, strings.TrimPrefix(cmd, "claimtask_"))
	case cmd == "joinearn":
		b.handleJoinEarn(msg)
	case cmd == "joincheck":
		b.handleJoinCheck(ctx, msg, userID)
	case cmd == "withdraw":
		b.handleWithdraw(msg, userID)
	case cmd == "mywithdraws":
		b.handleMyWithdraws(msg, userID)
	case cmd == "stats":
		b.adminOnly(msg, func() { b.handleStats(msg) })
	case cmd == "broadcast":
		b.adminOnly(msg, func() { b.handleBroadcast(ctx, msg) })
	case cmd == "block":
		b.adminOnly(msg, func() { b.handleSetBlocked(ctx, msg, true) })
	case cmd == "unblock":
		b.adminOnly(msg, func() { b.handleSetBlocked(ctx, msg, false) })
	case cmd == "withdraws":
		b.adminOnly(msg, func() { b.handleWithdraws(msg) })
	case cmd == "approve_withdraw":
		b.adminOnly(msg, func() { b.handleApproveWithdraw(ctx, msg) })
	default:
		b.reply(msg.Chat.ID, "Unknown command. Use /help to see what I can do.")
	}
}

func (b *Bot) isAdmin(userID int64) bool {
	return b.cfg.AdminID != 0 && userID == b.cfg.AdminID
}

// adminOnly silently ignores admin commands from anyone else, the same way
// the admin surface does not advertise itself.
func (b *Bot) adminOnly(msg *tgbotapi.Message, fn func()) {
	if !b.isAdmin(msg.From.ID) {
		return
	}
	fn()
}

func (b *Bot) isAwaitingWithdraw(userID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.awaitingWithdraw[userID]
}

func (b *Bot) setAwaitingWithdraw(userID string, awaiting bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if awaiting {
		b.awaitingWithdraw[userID] = true
	} else {
		delete(b.awaitingWithdraw, userID)
	}
}

// reply sends best-effort; a delivery failure never propagates back into the
// action that triggered it.
func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		logger.Logger().Debug("failed to send message",
			zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) replyMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(msg); err != nil {
		logger.Logger().Debug("failed to send message",
			zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// notifyAdmin is fire-and-forget, used for withdraw alerts.
func (b *Bot) notifyAdmin(text string) {
	if b.cfg.AdminID == 0 {
		return
	}
	b.reply(b.cfg.AdminID, text)
}

func (b *Bot) notifyUser(userID string, text string) {
	chatID, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return
	}
	b.reply(chatID, text)
}
