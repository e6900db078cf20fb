package notify

// Telegram epoch reports.
// Account loops hand reports to ReportEpoch, which only enqueues; a single
// worker drains the queue at a throttled rate. A full queue drops the report.

import (
	"context"
	"fmt"
	"html"

	"depined-bot/internal/features/heartbeat"
	"depined-bot/internal/infra/log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const queueSize = 64

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Telegram struct {
	bot     sender
	chatID  int64
	queue   chan string
	limiter *rate.Limiter
}

// NewTelegram authorizes the bot (one getMe call) and returns an idle notifier.
func NewTelegram(botToken string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to authorize telegram bot: %w", err)
	}
	log.LogSuccess("Telegram bot authorized", zap.String("username", bot.Self.UserName))
	return newTelegram(bot, chatID), nil
}

func newTelegram(bot sender, chatID int64) *Telegram {
	return &Telegram{
		bot:     bot,
		chatID:  chatID,
		queue:   make(chan string, queueSize),
		limiter: rate.NewLimiter(rate.Limit(1), 3), // stay well under Telegram's per-chat limit
	}
}

// Run sends queued reports until ctx is cancelled.
func (t *Telegram) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case text := <-t.queue:
			if err := t.limiter.Wait(ctx); err != nil {
				return
			}
			msg := tgbotapi.NewMessage(t.chatID, text)
			msg.ParseMode = tgbotapi.ModeHTML
			msg.DisableWebPagePreview = true
			if _, err := t.bot.Send(msg); err != nil {
				log.LogWarn("Failed to send telegram report", zap.Error(err))
			}
		}
	}
}

// ReportEpoch implements heartbeat.Reporter.
func (t *Telegram) ReportEpoch(account string, closedEpoch int64, earnings float64, newEpoch int64) {
	text := FormatEpochReport(account, closedEpoch, earnings, newEpoch)
	select {
	case t.queue <- text:
	default:
		log.LogWarn("Telegram queue full, report dropped", zap.String("account", account), zap.Int64("epoch", closedEpoch))
	}
}

func FormatEpochReport(account string, closedEpoch int64, earnings float64, newEpoch int64) string {
	return fmt.Sprintf("<b>%s</b>\nEpoch %d closed: <b>%s</b> earned\nNow farming epoch %d",
		html.EscapeString(account), closedEpoch, heartbeat.FormatNumber(earnings), newEpoch)
}
