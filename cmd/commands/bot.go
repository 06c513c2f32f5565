package commands

// Command to run the full bot
// Initializes configuration, storage and API clients
// Starts the pool watcher, leaderboard publisher and command handler
// Implements graceful shutdown for proper termination

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	botmon "spyton-bot/bots_monitor"
	"spyton-bot/internal/clients_api/dexscreener"
	"spyton-bot/internal/clients_api/tonapi"
	"spyton-bot/internal/features/metrics"
	"spyton-bot/internal/infra/config"
	logging "spyton-bot/internal/infra/log"
	"spyton-bot/internal/leaderboard"
	"spyton-bot/internal/storage"
	"spyton-bot/internal/watcher"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the full bot (pool watcher + leaderboard + commands)",
	Long:  `Run the complete bot: poll the configured DEX pools for buys, post notifications, keep the trending leaderboard message updated and serve group setup commands.`,
	RunE:  runBot,
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.LogError("Failed to load config", zap.Error(err))
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := storage.NewStore(cfg.App.DBPath)
	if err != nil {
		logging.LogError("Failed to open database", zap.Error(err))
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logging.LogError("Failed to initialize bot", zap.Error(err))
		return fmt.Errorf("failed to initialize bot: %w", err)
	}
	logging.LogSuccess("Bot authorized", zap.String("username", api.Self.UserName))

	tonClient := tonapi.NewClient(tonapi.Options{
		Base:            cfg.TonAPI.Base,
		APIKey:          cfg.TonAPI.APIKey,
		RequestTimeout:  time.Duration(cfg.TonAPI.RequestTimeout) * time.Second,
		MaxRetries:      cfg.TonAPI.MaxRetries,
		MaxResponseSize: cfg.TonAPI.MaxResponseSize,
	})
	dexClient := dexscreener.NewClient(cfg.DexScreener.Base,
		time.Duration(cfg.DexScreener.RequestTimeout)*time.Second)
	cache := metrics.NewCache(tonClient, dexClient, 0)

	window := cfg.App.LeaderboardWindow()
	engine := leaderboard.NewEngine(window)
	if err := botmon.WarmLeaderboard(store, engine, window); err != nil {
		logging.LogWarn("Failed to warm leaderboard from history", zap.Error(err))
	}
	publisher := leaderboard.NewPublisher(botmon.NewTransport(api))
	if cfg.App.LeaderboardMessageID != 0 {
		publisher.AdoptMessage(cfg.Telegram.TrendingChannelID, cfg.App.LeaderboardMessageID)
		logging.LogInfo("Reusing existing leaderboard message",
			zap.Int("message_id", cfg.App.LeaderboardMessageID))
	}

	dedup := watcher.NewDeduplicator(cfg.App.DedupRetention, 2*window)
	buys := botmon.NewBuysMonitor(api, store, dedup, engine, cache,
		cfg.Telegram.TrendingChannelID,
		cfg.Telegram.BookTrendingURL)

	source := watcher.NewSource(tonClient, store, cfg.App.PoolFetchLimit)
	extractor := watcher.NewExtractor(tonClient)
	scheduler := watcher.NewScheduler(source, extractor, buys, tonClient, buys,
		cfg.App.PollInterval(), cfg.App.PollConcurrency)

	board := botmon.NewLeaderboardMonitor(engine, publisher, store,
		cfg.Telegram.TrendingChannelID,
		cfg.Telegram.TrendingChannelUsername,
		cfg.App.LeaderboardInterval(), window)

	handler := botmon.NewCommandHandler(api, store, cache, engine, board,
		cfg.Telegram.OwnerID, cfg.Telegram.DefaultMinBuyTON)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		scheduler.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		board.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		handler.Run(ctx)
	}()

	logging.LogSuccess("Bot is running", zap.String("status", "active"))

	<-ctx.Done()
	logging.LogInfo("Shutdown signal received, gracefully stopping...")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.LogSuccess("All workers stopped gracefully")
	case <-time.After(10 * time.Second):
		logging.LogWarn("Timeout waiting for workers to stop, forcing shutdown")
	}

	return nil
}
