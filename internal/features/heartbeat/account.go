package heartbeat

// Per-account heartbeat loop.
// INITIALIZING fetches the profile until it succeeds (long backoff between tries).
// POLLING then runs sleep -> heartbeat -> earnings -> log forever; a failed
// cycle waits the short backoff and starts over without re-initializing.

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"depined-bot/internal/clients_api/depined"
	"depined-bot/internal/infra/log"
	"depined-bot/internal/infra/metrics"
	"depined-bot/internal/infra/retry"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// API is the subset of the Depined client an account loop needs.
type API interface {
	GetUserDetails(ctx context.Context) (*depined.UserDetails, error)
	ConnectWidget(ctx context.Context) error
	GetEpochEarnings(ctx context.Context) (*depined.EpochEarnings, error)
}

// Reporter receives epoch rollovers. Implementations must not block.
type Reporter interface {
	ReportEpoch(account string, closedEpoch int64, earnings float64, newEpoch int64)
}

type State int

const (
	StateInitializing State = iota
	StatePolling
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StatePolling:
		return "polling"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Settings are shared, read-only inputs for every account loop.
type Settings struct {
	MinInterval time.Duration // poll lower bound and cycle-failure backoff
	MaxInterval time.Duration // poll upper bound and setup-failure backoff
	Clock       clockwork.Clock
	Reporter    Reporter
}

type Account struct {
	api      API
	name     string
	settings Settings
	clock    clockwork.Clock
	rng      *rand.Rand

	lastEpoch    int64
	lastEarnings float64
	seenEpoch    bool
}

// NewAccount derives an account session from a token. The display name starts
// as a token prefix and becomes the username once the profile loads.
func NewAccount(token string, api API, settings Settings) *Account {
	clock := settings.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Account{
		api:      api,
		name:     displayPrefix(token),
		settings: settings,
		clock:    clock,
		rng:      rand.New(rand.NewSource(seedFor(token, clock.Now()))),
	}
}

// SetRand replaces the interval source (tests).
func (a *Account) SetRand(rng *rand.Rand) { a.rng = rng }

// Name is the current display name.
func (a *Account) Name() string { return a.name }

// Run blocks until ctx is cancelled; every API failure is handled inside.
func (a *Account) Run(ctx context.Context) error {
	state := StateInitializing

	for {
		switch state {
		case StateInitializing:
			if err := a.initialize(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				metrics.SetupFailuresTotal.Inc()
				log.LogError(fmt.Sprintf("%s %s", log.AccountTag(a.name), log.Failed("Initial setup failed: "+err.Error())),
					zap.String("account", a.name), zap.Error(err))
				if err := a.sleep(ctx, a.settings.MaxInterval); err != nil {
					return err
				}
				continue
			}
			state = StatePolling

		case StatePolling:
			if err := a.sleep(ctx, retry.Uniform(a.rng, a.settings.MinInterval, a.settings.MaxInterval)); err != nil {
				return err
			}
			if err := a.cycle(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				metrics.HeartbeatsTotal.WithLabelValues("error").Inc()
				log.LogError(fmt.Sprintf("%s %s", log.AccountTag(a.name), log.Failed("Error: "+err.Error())),
					zap.String("account", a.name), zap.Error(err))
				if err := a.sleep(ctx, a.settings.MinInterval); err != nil {
					return err
				}
			}
		}
	}
}

func (a *Account) initialize(ctx context.Context) error {
	details, err := a.api.GetUserDetails(ctx)
	if err != nil {
		return err
	}
	if details.Username != "" {
		a.name = details.Username
	}
	log.LogInfo(fmt.Sprintf("%s Connected", log.AccountTag(a.name)), zap.String("account", a.name))
	return nil
}

// cycle sends one heartbeat and logs current earnings.
func (a *Account) cycle(ctx context.Context) error {
	if err := a.api.ConnectWidget(ctx); err != nil {
		return err
	}

	earnings, err := a.api.GetEpochEarnings(ctx)
	if err != nil {
		return err
	}

	value := float64(earnings.Earnings)
	metrics.HeartbeatsTotal.WithLabelValues("ok").Inc()
	metrics.AccountEarnings.WithLabelValues(a.name).Set(value)
	metrics.AccountEpoch.WithLabelValues(a.name).Set(float64(earnings.Epoch))

	log.LogSuccess(fmt.Sprintf("%s Connected | %s (%s)",
		log.AccountTag(a.name),
		log.Done("Earnings: "+FormatNumber(value)),
		log.Info(fmt.Sprintf("Epoch: %d", earnings.Epoch))),
		zap.String("account", a.name),
		zap.Float64("earnings", value),
		zap.Int64("epoch", earnings.Epoch))

	a.trackEpoch(earnings.Epoch, value)
	return nil
}

func (a *Account) trackEpoch(epoch int64, earnings float64) {
	if a.seenEpoch && epoch != a.lastEpoch && a.settings.Reporter != nil {
		a.settings.Reporter.ReportEpoch(a.name, a.lastEpoch, a.lastEarnings, epoch)
	}
	a.seenEpoch = true
	a.lastEpoch = epoch
	a.lastEarnings = earnings
}

func (a *Account) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-a.clock.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// seedFor mixes the whole token into the clock seed so loops started in the
// same tick still draw different intervals.
func seedFor(token string, now time.Time) int64 {
	h := fnv.New64a()
	h.Write([]byte(token))
	return now.UnixNano() ^ int64(h.Sum64())
}

func displayPrefix(token string) string {
	if len(token) <= 10 {
		return token + "..."
	}
	return token[:10] + "..."
}
