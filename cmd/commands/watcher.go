package commands

// Command to run the pool watcher alone
// Polls the configured pools and logs detected buys without posting
// Useful for verifying pool setup and API access before going live

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	botmon "spyton-bot/bots_monitor"
	"spyton-bot/internal/clients_api/tonapi"
	"spyton-bot/internal/infra/config"
	logging "spyton-bot/internal/infra/log"
	"spyton-bot/internal/storage"
	"spyton-bot/internal/watcher"
)

var watcherCmd = &cobra.Command{
	Use:   "watcher",
	Short: "Run the pool watcher only, logging buys instead of posting them",
	RunE:  runWatcher,
}

// logSink prints classified buys instead of sending Telegram messages.
type logSink struct {
	dedup *watcher.Deduplicator
}

var _ watcher.Sink = (*logSink)(nil)

func (s *logSink) HandleEvents(_ context.Context, events []watcher.BuyEvent) error {
	for _, ev := range events {
		decision := s.dedup.Admit(ev)
		if decision == watcher.DecisionDuplicate {
			continue
		}
		logging.LogSuccess("buy detected",
			zap.String("decision", decision.String()),
			zap.String("token", ev.Pool.TokenSymbol),
			zap.String("dex", ev.Pool.DEX),
			zap.Float64("ton", ev.TONAmount),
			zap.Float64("usd", ev.USDAmount),
			zap.String("fidelity", ev.Fidelity.String()),
			zap.String("tx", ev.TxID),
			zap.Bool("passes_threshold", watcher.Passes(ev)))
	}
	return nil
}

func runWatcher(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := storage.NewStore(cfg.App.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	tonClient := tonapi.NewClient(tonapi.Options{
		Base:            cfg.TonAPI.Base,
		APIKey:          cfg.TonAPI.APIKey,
		RequestTimeout:  time.Duration(cfg.TonAPI.RequestTimeout) * time.Second,
		MaxRetries:      cfg.TonAPI.MaxRetries,
		MaxResponseSize: cfg.TonAPI.MaxResponseSize,
	})

	dedup := watcher.NewDeduplicator(cfg.App.DedupRetention, 2*cfg.App.LeaderboardWindow())
	registry := botmon.NewBuysMonitor(nil, store, dedup, nil, nil, 0, "")

	source := watcher.NewSource(tonClient, store, cfg.App.PoolFetchLimit)
	extractor := watcher.NewExtractor(tonClient)
	scheduler := watcher.NewScheduler(source, extractor, registry, tonClient,
		&logSink{dedup: dedup}, cfg.App.PollInterval(), cfg.App.PollConcurrency)

	logging.LogInfo("Watcher running, press Ctrl+C to stop")
	scheduler.Run(ctx)
	return nil
}
