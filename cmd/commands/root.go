package commands

// Root command for Cobra CLI
// Defines the main command structure of the application
// Registers all subcommands (bot, watcher, chart)

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "spyton-bot",
	Short: "SpyTON - Telegram buy bot for TON jettons",
	Long: `SpyTON is a Go-based Telegram bot that watches STON.fi and DeDust pools
for jetton buys and posts real-time notifications with a rolling trending leaderboard.`,
	Version: "1.0.0",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(botCmd)
	rootCmd.AddCommand(watcherCmd)
	rootCmd.AddCommand(chartCmd)
}
