package bot

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"TG_rewards_bot/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// sendPacing keeps mass sends under the Telegram flood limits.
const sendPacing = 80 * time.Millisecond

// StartAutoBroadcast periodically pushes fresh earning links to every
// eligible user until the context is cancelled.
func (b *Bot) StartAutoBroadcast(ctx context.Context) {
	if b.cfg.BroadcastInterval <= 0 || len(b.cfg.EarnLinks) == 0 {
		return
	}

	ticker := time.NewTicker(b.cfg.BroadcastInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.broadcastEarnLinks(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (b *Bot) broadcastEarnLinks(ctx context.Context) {
	links := pickLinks(b.cfg.EarnLinks, 3)
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(links))
	for i, link := range links {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(fmt.Sprintf("Earn #%d", i+1), link)))
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)

	sent, failed := b.broadcast(ctx, func(chatID int64) tgbotapi.Chattable {
		msg := tgbotapi.NewMessage(chatID, "🔥 New earning links — click any to earn now!")
		msg.ReplyMarkup = keyboard
		return msg
	})
	logger.Logger().Info("earning-link broadcast finished",
		zap.Int("delivered", sent), zap.Int("failed", failed))
}

// broadcast delivers one message per target against the committed snapshot of
// eligible users. A delivery failure flips the target's active flag so future
// rounds skip it; it never affects any other delivery.
func (b *Bot) broadcast(ctx context.Context, makeMsg func(chatID int64) tgbotapi.Chattable) (sent, failed int) {
	targets := b.ledger.BroadcastTargets(b.cfg.BroadcastActiveOnly)

	for _, userID := range targets {
		select {
		case <-ctx.Done():
			return sent, failed
		default:
		}

		chatID, err := strconv.ParseInt(userID, 10, 64)
		if err != nil {
			continue
		}
		if _, err := b.api.Send(makeMsg(chatID)); err != nil {
			failed++
			b.ledger.MarkInactive(ctx, userID)
			continue
		}
		sent++
		time.Sleep(sendPacing)
	}
	return sent, failed
}
