package commands

// Command that runs one heartbeat loop per token until interrupted.
// Optional extras (Telegram reports, status server) start only when configured.
// Implements graceful shutdown for proper termination.

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"depined-bot/internal/clients_api/depined"
	"depined-bot/internal/features/heartbeat"
	"depined-bot/internal/infra/config"
	storage "depined-bot/internal/infra/fs"
	logging "depined-bot/internal/infra/log"
	"depined-bot/internal/infra/notify"
	"depined-bot/internal/infra/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the heartbeat loop for every account (default)",
	Long:  `Load tokens, then keep each account connected and log its epoch earnings until interrupted.`,
	RunE:  runFarm,
}

func runFarm(cmd *cobra.Command, args []string) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logging.Sync()

	printBanner()

	tokens := storage.LoadTokens(cfg.Farm.TokensFile)
	if len(tokens) == 0 {
		logging.LogError("No tokens found in "+cfg.Farm.TokensFile, zap.String("file", cfg.Farm.TokensFile))
		return heartbeat.ErrNoAccounts
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var wg sync.WaitGroup
	settings := heartbeat.Settings{
		MinInterval: cfg.Farm.MinInterval,
		MaxInterval: cfg.Farm.MaxInterval,
	}

	if cfg.Telegram.Enabled() {
		chatID, _ := cfg.Telegram.ParsedChatID()
		tg, err := notify.NewTelegram(cfg.Telegram.BotToken, chatID)
		if err != nil {
			logging.LogWarn("Telegram reports disabled (continuing without them)", zap.Error(err))
		} else {
			settings.Reporter = tg
			wg.Add(1)
			go func() {
				defer wg.Done()
				tg.Run(ctx)
			}()
		}
	}

	if cfg.Metrics.ListenAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := server.Serve(ctx, cfg.Metrics.ListenAddr, server.NewRouter(len(tokens), time.Now())); err != nil {
				logging.LogError("Status server stopped", zap.Error(err))
			}
		}()
	}

	clientOpts := clientOptions(cfg)
	farm := heartbeat.NewFarm(func(token string) heartbeat.API {
		return depined.NewClient(token, clientOpts)
	}, settings)

	wg.Add(1)
	go func() {
		defer wg.Done()
		logFarmExit(farm.Run(ctx, tokens))
	}()

	logging.LogSuccess("Farm is running", zap.Int("accounts", len(tokens)))

	<-ctx.Done()
	logging.LogInfo("Shutdown signal received, gracefully stopping...")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.LogSuccess("All accounts stopped gracefully")
	case <-time.After(10 * time.Second):
		logging.LogWarn("Timeout waiting for accounts to stop")
	}

	return nil
}

// logFarmExit reports a farm that stopped for any reason other than shutdown.
func logFarmExit(err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	logging.LogError("Farm stopped: "+err.Error(), zap.Error(err))
}

// setup loads config and initializes logging; shared by all commands.
func setup(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(cmd.Flags())
	if err != nil {
		logging.LogError("Failed to load config", zap.Error(err))
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logging.Init(logging.Options{
		Dir:         cfg.Log.Dir,
		FileEnabled: cfg.Log.FileEnabled,
		Debug:       cfg.Log.Debug,
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	return cfg, nil
}

func clientOptions(cfg *config.Config) depined.Options {
	return depined.Options{
		BaseURL:         cfg.API.BaseURL,
		Timeout:         cfg.API.RequestTimeout,
		MaxRetries:      cfg.API.MaxRetries,
		RateLimit:       cfg.API.RateLimit,
		RateBurst:       cfg.API.RateBurst,
		BreakerFailures: cfg.API.BreakerFailures,
		BreakerTimeout:  cfg.API.BreakerTimeout,
	}
}
