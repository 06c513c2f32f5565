package commands

// Command to render the leaderboard chart from persisted buys
// Useful for checking what the board looked like without a running bot

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"spyton-bot/internal/features/tg_charts"
	"spyton-bot/internal/infra/config"
	logging "spyton-bot/internal/infra/log"
	"spyton-bot/internal/leaderboard"
	"spyton-bot/internal/storage"
)

var chartOutDir string

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Render the current leaderboard as a PNG from the local database",
	RunE:  runChart,
}

func init() {
	chartCmd.Flags().StringVar(&chartOutDir, "out", ".", "directory the chart image is written to")
}

func runChart(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store, err := storage.NewStore(cfg.App.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	since := time.Now().Add(-cfg.App.LeaderboardWindow())
	volumes, err := store.RecentVolumes(since)
	if err != nil {
		return fmt.Errorf("failed to read recent buys: %w", err)
	}
	if len(volumes) == 0 {
		fmt.Println("No buys in the current window.")
		return nil
	}

	entries := make([]leaderboard.Entry, 0, len(volumes))
	for i, v := range volumes {
		entries = append(entries, leaderboard.Entry{
			TokenSymbol:   v.TokenSymbol,
			JettonAddress: v.JettonAddress,
			TONVolume:     v.TONVolume,
			USDVolume:     v.USDVolume,
			BuyCount:      v.BuyCount,
			LastBuy:       v.LastBuy,
			Rank:          i + 1,
		})
	}

	path, err := tg_charts.GenerateLeaderboardChart(entries, chartOutDir)
	if err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}

	logging.LogSuccess("Chart written", zap.String("path", path))
	fmt.Println(path)
	return nil
}
