package bot

import (
	"context"
	"time"

	"go.uber.org/zap"

	"spyton-bot/internal/infra/log"
	"spyton-bot/internal/leaderboard"
	"spyton-bot/internal/notify"
	"spyton-bot/internal/storage"
	"spyton-bot/internal/watcher"
)

// WarmLeaderboard replays persisted buys from the current window into the
// engine so the board survives restarts.
func WarmLeaderboard(store *storage.Store, engine *leaderboard.Engine, window time.Duration) error {
	buys, err := store.RecentBuys(time.Now().Add(-window))
	if err != nil {
		return err
	}
	for _, b := range buys {
		engine.Record(watcher.BuyEvent{
			Pool: watcher.TrackedPool{
				GroupID:       b.GroupID,
				PoolAddress:   b.PoolAddress,
				DEX:           b.DEX,
				TokenSymbol:   b.TokenSymbol,
				JettonAddress: b.JettonAddress,
			},
			TxID:         b.TxHash,
			TONAmount:    b.TONAmount,
			USDAmount:    b.USDAmount,
			JettonAmount: b.JettonAmount,
			Buyer:        b.BuyerAddress,
			Timestamp:    b.Timestamp,
		})
	}
	if len(buys) > 0 {
		log.LogInfo("leaderboard warmed from history", zap.Int("buys", len(buys)))
	}
	return nil
}

// LeaderboardMonitor keeps the pinned trending message in the channel in
// sync with the rolling-window leaderboard.
type LeaderboardMonitor struct {
	engine    *leaderboard.Engine
	publisher *leaderboard.Publisher
	store     *storage.Store

	channelID       int64
	channelUsername string
	interval        time.Duration
	window          time.Duration
}

func NewLeaderboardMonitor(
	engine *leaderboard.Engine,
	publisher *leaderboard.Publisher,
	store *storage.Store,
	channelID int64,
	channelUsername string,
	interval time.Duration,
	window time.Duration,
) *LeaderboardMonitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &LeaderboardMonitor{
		engine:          engine,
		publisher:       publisher,
		store:           store,
		channelID:       channelID,
		channelUsername: channelUsername,
		interval:        interval,
		window:          window,
	}
}

// Run publishes the leaderboard on every tick until the context is
// cancelled. Publish failures are logged and retried on the next tick.
func (m *LeaderboardMonitor) Run(ctx context.Context) {
	if m.channelID == 0 {
		log.LogWarn("trending channel id is empty, leaderboard monitor not started")
		return
	}

	log.LogInfo("Starting Leaderboard Monitor...",
		zap.Int64("channel_id", m.channelID),
		zap.Duration("interval", m.interval),
		zap.Duration("window", m.window))

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// Prune persisted buys far less often than the board refresh.
	housekeeping := time.NewTicker(10 * m.interval)
	defer housekeeping.Stop()

	m.PublishNow(ctx)

	for {
		select {
		case <-ctx.Done():
			log.LogInfo("Leaderboard monitor stopped")
			return
		case <-ticker.C:
			m.PublishNow(ctx)
		case <-housekeeping.C:
			m.prune()
		}
	}
}

// PublishNow renders the current board and pushes it to the channel.
func (m *LeaderboardMonitor) PublishNow(ctx context.Context) {
	m.engine.Trim(time.Now())
	entries := m.engine.Snapshot()
	text := notify.FormatLeaderboard(entries, m.channelUsername)

	if err := m.publisher.Publish(ctx, m.channelID, text); err != nil {
		log.LogError("failed to publish leaderboard",
			zap.Int64("channel_id", m.channelID),
			zap.Error(err))
		return
	}
	log.LogDebug("leaderboard published",
		zap.Int("entries", len(entries)),
		zap.Int("message_id", m.publisher.MessageID(m.channelID)))
}

// Pin publishes the board and pins the live message.
func (m *LeaderboardMonitor) Pin(ctx context.Context) error {
	m.engine.Trim(time.Now())
	text := notify.FormatLeaderboard(m.engine.Snapshot(), m.channelUsername)
	return m.publisher.PublishAndPin(ctx, m.channelID, text)
}

func (m *LeaderboardMonitor) prune() {
	// Keep one extra window of history for the offline chart command.
	cutoff := time.Now().Add(-2 * m.window)
	removed, err := m.store.PruneBuys(cutoff)
	if err != nil {
		log.LogError("failed to prune old buys", zap.Error(err))
		return
	}
	if removed > 0 {
		log.LogDebug("old buys pruned", zap.Int64("removed", removed))
	}
}
