package commands

// One-shot check of every token: resolves the username and current epoch
// earnings without sending heartbeats. Useful to validate data.txt.

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"depined-bot/internal/clients_api/depined"
	"depined-bot/internal/features/heartbeat"
	storage "depined-bot/internal/infra/fs"
	logging "depined-bot/internal/infra/log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Check every token once and print username and earnings",
	RunE:  runAccounts,
}

func runAccounts(cmd *cobra.Command, args []string) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logging.Sync()

	tokens := storage.LoadTokens(cfg.Farm.TokensFile)
	if len(tokens) == 0 {
		logging.LogError("No tokens found in "+cfg.Farm.TokensFile, zap.String("file", cfg.Farm.TokensFile))
		return heartbeat.ErrNoAccounts
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	clientOpts := clientOptions(cfg)
	failed := 0
	for i, token := range tokens {
		if err := checkAccount(ctx, i+1, depined.NewClient(token, clientOpts)); err != nil {
			failed++
			logging.LogError(fmt.Sprintf("%s %s", logging.AccountTag(fmt.Sprintf("#%d", i+1)), logging.Failed(err.Error())), zap.Error(err))
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	logging.LogInfo(fmt.Sprintf("Checked %d accounts, %d failed", len(tokens), failed),
		zap.Int("accounts", len(tokens)), zap.Int("failed", failed))
	if failed == len(tokens) {
		return fmt.Errorf("all %d accounts failed the check", failed)
	}
	return nil
}

func checkAccount(ctx context.Context, index int, client *depined.Client) error {
	details, err := client.GetUserDetails(ctx)
	if err != nil {
		return err
	}
	earnings, err := client.GetEpochEarnings(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", details.Username, err)
	}

	logging.LogSuccess(fmt.Sprintf("#%d %s %s (%s)",
		index,
		logging.AccountTag(details.Username),
		logging.Done("Earnings: "+heartbeat.FormatNumber(float64(earnings.Earnings))),
		logging.Info(fmt.Sprintf("Epoch: %d", earnings.Epoch))),
		zap.String("account", details.Username),
		zap.Int64("epoch", earnings.Epoch))
	return nil
}
