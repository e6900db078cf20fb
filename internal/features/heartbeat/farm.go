package heartbeat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"depined-bot/internal/infra/log"
	"depined-bot/internal/infra/metrics"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

var ErrNoAccounts = errors.New("no accounts configured")

// ClientFactory builds the API client for one token.
type ClientFactory func(token string) API

// Farm runs one supervised account loop per token.
type Farm struct {
	newAPI   ClientFactory
	settings Settings
	clock    clockwork.Clock
}

func NewFarm(newAPI ClientFactory, settings Settings) *Farm {
	if settings.Clock == nil {
		settings.Clock = clockwork.NewRealClock()
	}
	return &Farm{newAPI: newAPI, settings: settings, clock: settings.Clock}
}

// Run starts every account and waits for all of them. Loops only stop when
// ctx is cancelled, so under normal operation Run does not return.
func (f *Farm) Run(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		log.LogError("No tokens found, nothing to run")
		return ErrNoAccounts
	}

	log.LogInfo(fmt.Sprintf("Found %s accounts", log.Info(strconv.Itoa(len(tokens)))), zap.Int("accounts", len(tokens)))

	var wg sync.WaitGroup
	for _, token := range tokens {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			f.supervise(ctx, token)
		}(token)
	}
	wg.Wait()

	return ctx.Err()
}

// supervise restarts an account loop that died from a panic, after the long backoff.
func (f *Farm) supervise(ctx context.Context, token string) {
	metrics.ActiveAccounts.Inc()
	defer metrics.ActiveAccounts.Dec()

	for {
		err := f.runAccount(ctx, token)
		if ctx.Err() != nil {
			return
		}

		log.LogError(fmt.Sprintf("%s %s", log.AccountTag(displayPrefix(token)), log.Failed("Account loop stopped, restarting: "+errString(err))),
			zap.Error(err))

		select {
		case <-f.clock.After(f.settings.MaxInterval):
		case <-ctx.Done():
			return
		}
	}
}

func (f *Farm) runAccount(ctx context.Context, token string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			metrics.PanicsTotal.Inc()
			err = fmt.Errorf("uncaught panic: %v", r)
			log.LogError("Uncaught panic in account loop", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	account := NewAccount(token, f.newAPI(token), f.settings)
	return account.Run(ctx)
}

func errString(err error) string {
	if err == nil {
		return "returned without error"
	}
	return err.Error()
}
