package commands

// Root command. Running the binary without a subcommand starts the farm.

import (
	"depined-bot/internal/infra/config"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "depined-bot",
	Short: "Depined widget heartbeat bot for multiple accounts",
	Long: `depined-bot keeps every account listed in the token file marked as connected
on Depined and logs its epoch earnings. Each account runs its own loop.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runFarm,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	config.RegisterFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(accountsCmd)
}
