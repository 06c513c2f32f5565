package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"spyton-bot/internal/features/metrics"
	"spyton-bot/internal/infra/log"
	"spyton-bot/internal/leaderboard"
	"spyton-bot/internal/notify"
	"spyton-bot/internal/storage"
	"spyton-bot/internal/watcher"
)

// channelDedupTTL keeps a cross-post from landing in the trending channel
// twice when two groups track the same pool.
const channelDedupTTL = 2 * time.Minute

var (
	_ watcher.Registry = (*BuysMonitor)(nil)
	_ watcher.Sink     = (*BuysMonitor)(nil)
)

// messageSender is the slice of the Bot API the monitor posts through.
type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// BuysMonitor turns classified buy events into Telegram posts. It is both
// the pool registry the poll scheduler reads and the sink it delivers to.
type BuysMonitor struct {
	api     messageSender
	store   *storage.Store
	dedup   *watcher.Deduplicator
	engine  *leaderboard.Engine
	metrics *metrics.Cache

	channelID       int64
	bookTrendingURL string

	mu          sync.Mutex
	channelSent map[string]time.Time // tx hash -> cross-post time
}

func NewBuysMonitor(
	api messageSender,
	store *storage.Store,
	dedup *watcher.Deduplicator,
	engine *leaderboard.Engine,
	cache *metrics.Cache,
	channelID int64,
	bookTrendingURL string,
) *BuysMonitor {
	return &BuysMonitor{
		api:             api,
		store:           store,
		dedup:           dedup,
		engine:          engine,
		metrics:         cache,
		channelID:       channelID,
		bookTrendingURL: bookTrendingURL,
		channelSent:     make(map[string]time.Time),
	}
}

// TrackedPools lists every pool the scheduler must poll this cycle. A group
// that enabled notifications but never finished pool setup is skipped, not
// failed.
func (m *BuysMonitor) TrackedPools(ctx context.Context) ([]watcher.TrackedPool, error) {
	groups, err := m.store.EnabledGroups()
	if err != nil {
		return nil, fmt.Errorf("list enabled groups: %w", err)
	}

	var pools []watcher.TrackedPool
	for _, g := range groups {
		if g.JettonAddress == "" {
			log.LogWarn("group enabled without a token, skipping",
				zap.Int64("group_id", g.GroupID))
			continue
		}
		if g.StonfiPool != "" {
			pools = append(pools, watcher.TrackedPool{
				GroupID:       g.GroupID,
				PoolAddress:   g.StonfiPool,
				DEX:           "stonfi",
				TokenSymbol:   g.TokenSymbol,
				JettonAddress: g.JettonAddress,
				MinBuyTON:     g.MinBuyTON,
			})
		}
		if g.DedustPool != "" {
			pools = append(pools, watcher.TrackedPool{
				GroupID:       g.GroupID,
				PoolAddress:   g.DedustPool,
				DEX:           "dedust",
				TokenSymbol:   g.TokenSymbol,
				JettonAddress: g.JettonAddress,
				MinBuyTON:     g.MinBuyTON,
			})
		}
	}
	return pools, nil
}

// HandleEvents runs the per-event pipeline: admit, filter, record, persist,
// post. One failing event never blocks the rest of the batch.
func (m *BuysMonitor) HandleEvents(ctx context.Context, events []watcher.BuyEvent) error {
	for _, ev := range events {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		m.handleEvent(ctx, ev)
	}
	return nil
}

func (m *BuysMonitor) handleEvent(ctx context.Context, ev watcher.BuyEvent) {
	switch m.dedup.Admit(ev) {
	case watcher.DecisionDuplicate:
		return

	case watcher.DecisionUpgrade:
		// Better figures for a buy we already announced. Update the
		// leaderboard and the stored row silently, never re-post.
		// An upgrade whose buy was filtered below the threshold stays
		// suppressed: it was never announced or recorded, and engine.Upgrade
		// reports no matching record.
		if m.engine.Upgrade(ev.Pool.JettonAddress, ev.TxID, ev.TONAmount, ev.USDAmount) {
			if err := m.store.UpdateBuyAmounts(ev.TxID, ev.TONAmount, ev.USDAmount, ev.JettonAmount); err != nil {
				log.LogError("failed to persist upgraded amounts",
					zap.String("tx", ev.TxID),
					zap.Error(err))
			}
			log.LogDebug("buy amounts upgraded",
				zap.String("tx", ev.TxID),
				zap.Float64("ton", ev.TONAmount))
		}
		return

	case watcher.DecisionNew:
		if !watcher.Passes(ev) {
			log.LogDebug("buy below group threshold",
				zap.String("tx", ev.TxID),
				zap.Float64("ton", ev.TONAmount),
				zap.Float64("min_buy", ev.Pool.MinBuyTON))
			return
		}
		m.announce(ctx, ev)
	}
}

func (m *BuysMonitor) announce(ctx context.Context, ev watcher.BuyEvent) {
	m.engine.Record(ev)
	rank := m.engine.RankOf(ev.Pool.JettonAddress)

	if err := m.store.AddBuy(storage.Buy{
		Timestamp:     ev.Timestamp,
		GroupID:       ev.Pool.GroupID,
		DEX:           ev.Pool.DEX,
		TokenSymbol:   ev.Pool.TokenSymbol,
		JettonAddress: ev.Pool.JettonAddress,
		PoolAddress:   ev.Pool.PoolAddress,
		BuyerAddress:  ev.Buyer,
		TONAmount:     ev.TONAmount,
		USDAmount:     ev.USDAmount,
		JettonAmount:  ev.JettonAmount,
		TxHash:        ev.TxID,
	}); err != nil {
		log.LogError("failed to persist buy",
			zap.String("tx", ev.TxID),
			zap.Error(err))
	}

	var tm metrics.TokenMetrics
	if m.metrics != nil {
		tm = m.metrics.Fetch(ctx, ev.Pool.JettonAddress)
	}
	post := m.buildPost(ev, tm, rank)

	m.postToGroup(ev.Pool.GroupID, post)
	m.crossPostToChannel(ev, post)

	log.LogSuccess("buy announced",
		zap.String("token", post.TokenSymbol),
		zap.String("dex", ev.Pool.DEX),
		zap.Float64("ton", ev.TONAmount),
		zap.Int("rank", rank),
		zap.String("fidelity", ev.Fidelity.String()))
}

func (m *BuysMonitor) buildPost(ev watcher.BuyEvent, tm metrics.TokenMetrics, rank int) notify.BuyPost {
	sym := ev.Pool.TokenSymbol
	if sym == "" {
		sym = tm.Symbol
	}

	var tonPrice float64
	if ev.TONAmount > 0 && ev.USDAmount > 0 {
		tonPrice = ev.USDAmount / ev.TONAmount
	}

	return notify.BuyPost{
		DEX:          ev.Pool.DEX,
		TokenSymbol:  notify.SafeSymbol(sym),
		TONAmount:    ev.TONAmount,
		USDAmount:    ev.USDAmount,
		JettonAmount: ev.JettonAmount,
		Buyer:        ev.Buyer,
		TxHash:       ev.TxID,
		Rank:         rank,
		Holders:      tm.Holders,
		PriceUSD:     tm.PriceUSD,
		LiquidityUSD: tm.LiquidityUSD,
		McapUSD:      tm.McapUSD,
		TONPriceUSD:  tonPrice,
		Links:        m.buildLinks(ev.Pool.JettonAddress, tm),
	}
}

func (m *BuysMonitor) buildLinks(jettonAddress string, tm metrics.TokenMetrics) map[string]string {
	links := map[string]string{
		"Chart": "https://dexscreener.com/ton/" + jettonAddress,
		"Trade": m.bookTrendingURL,
	}
	if tm.StonfiPool != "" {
		links["STONfi"] = "https://app.ston.fi/swap?ft=TON&tt=" + jettonAddress
	}
	if tm.DedustPool != "" {
		links["DeDust"] = "https://dedust.io/swap/TON/" + jettonAddress
	}
	return links
}

func (m *BuysMonitor) postToGroup(groupID int64, post notify.BuyPost) {
	msg := tgbotapi.NewMessage(groupID, notify.FormatGroupBuy(post, m.bookTrendingURL))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := m.api.Send(msg); err != nil {
		log.LogError("failed to post buy to group",
			zap.Int64("group_id", groupID),
			zap.Error(err))
	}
}

func (m *BuysMonitor) crossPostToChannel(ev watcher.BuyEvent, post notify.BuyPost) {
	if m.channelID == 0 {
		return
	}
	if !m.claimChannelSlot(ev.TxID) {
		log.LogDebug("channel cross-post suppressed, already sent",
			zap.String("tx", ev.TxID))
		return
	}

	msg := tgbotapi.NewMessage(m.channelID, notify.FormatChannelBuy(post))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🔥 Book Trending", m.bookTrendingURL),
		),
	)
	if _, err := m.api.Send(msg); err != nil {
		log.LogError("failed to cross-post buy to channel",
			zap.String("tx", ev.TxID),
			zap.Error(err))
	}
}

// claimChannelSlot reports whether this tx hash may be cross-posted. The
// first caller in the TTL window wins.
func (m *BuysMonitor) claimChannelSlot(txHash string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for hash, sent := range m.channelSent {
		if now.Sub(sent) > channelDedupTTL {
			delete(m.channelSent, hash)
		}
	}
	if _, ok := m.channelSent[txHash]; ok {
		return false
	}
	m.channelSent[txHash] = now
	return true
}
