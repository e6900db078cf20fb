package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"depined-bot/internal/features/heartbeat"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

var _ heartbeat.Reporter = (*Telegram)(nil)

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, f.err
}

func (f *fakeSender) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.MessageConfig(nil), f.sent...)
}

func TestFormatEpochReport(t *testing.T) {
	text := FormatEpochReport("<alice>", 7, 2500, 8)
	assert.Equal(t, "<b>&lt;alice&gt;</b>\nEpoch 7 closed: <b>2.50K</b> earned\nNow farming epoch 8", text)
}

func TestTelegram_SendsQueuedReports(t *testing.T) {
	bot := &fakeSender{}
	tg := newTelegram(bot, 42)
	tg.limiter = rate.NewLimiter(rate.Inf, 1)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go tg.Run(ctx)

	tg.ReportEpoch("alice", 7, 1000, 8)
	tg.ReportEpoch("bob", 7, 2_000_000, 8)

	require.Eventually(t, func() bool { return len(bot.messages()) == 2 }, 2*time.Second, 5*time.Millisecond)

	msgs := bot.messages()
	assert.Equal(t, int64(42), msgs[0].ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, msgs[0].ParseMode)
	assert.Contains(t, msgs[0].Text, "alice")
	assert.Contains(t, msgs[1].Text, "2.00M")
}

func TestTelegram_SendErrorDoesNotStopWorker(t *testing.T) {
	bot := &fakeSender{err: errors.New("telegram down")}
	tg := newTelegram(bot, 1)
	tg.limiter = rate.NewLimiter(rate.Inf, 1)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go tg.Run(ctx)

	tg.ReportEpoch("alice", 1, 1, 2)
	tg.ReportEpoch("alice", 2, 1, 3)

	require.Eventually(t, func() bool { return len(bot.messages()) == 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestTelegram_ReportNeverBlocks(t *testing.T) {
	tg := newTelegram(&fakeSender{}, 1) // no worker running

	done := make(chan struct{})
	go func() {
		for i := 0; i < queueSize*2; i++ {
			tg.ReportEpoch("alice", int64(i), 1, int64(i+1))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ReportEpoch blocked on a full queue")
	}
	assert.Len(t, tg.queue, queueSize)
}
