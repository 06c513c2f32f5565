package metrics

// Token metrics enrichment for buy posts: holder count and metadata from
// TonAPI, price/liquidity/mcap and pool addresses from DexScreener. Both
// upstreams are best effort, a buy post without metrics still goes out.

import (
	"context"
	"strconv"
	"sync"
	"time"

	"spyton-bot/internal/clients_api/dexscreener"
	"spyton-bot/internal/clients_api/tonapi"
	"spyton-bot/internal/infra/log"

	"go.uber.org/zap"
)

// TokenMetrics is the merged upstream view of one jetton.
type TokenMetrics struct {
	Symbol       string
	Decimals     int
	Holders      int64
	PriceUSD     float64
	LiquidityUSD float64
	McapUSD      float64
	StonfiPool   string
	DedustPool   string
}

type JettonAPI interface {
	GetJetton(ctx context.Context, jettonAddress string) (*tonapi.JettonInfo, error)
}

type PairsAPI interface {
	FetchPairs(ctx context.Context, jettonAddress string) ([]dexscreener.Pair, error)
}

type cacheItem struct {
	at  time.Time
	val TokenMetrics
}

// Cache keeps recently fetched metrics so a burst of buys for the same token
// does not hammer the upstreams.
type Cache struct {
	tonapi JettonAPI
	pairs  PairsAPI
	ttl    time.Duration

	mu    sync.Mutex
	items map[string]cacheItem
}

func NewCache(tonAPI JettonAPI, pairs PairsAPI, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 20 * time.Second
	}
	return &Cache{
		tonapi: tonAPI,
		pairs:  pairs,
		ttl:    ttl,
		items:  make(map[string]cacheItem),
	}
}

// Fetch returns the jetton's metrics, served from cache within the TTL.
func (c *Cache) Fetch(ctx context.Context, jettonAddress string) TokenMetrics {
	c.mu.Lock()
	if item, ok := c.items[jettonAddress]; ok && time.Since(item.at) <= c.ttl {
		c.mu.Unlock()
		return item.val
	}
	c.mu.Unlock()

	out := c.fetchFresh(ctx, jettonAddress)

	c.mu.Lock()
	c.items[jettonAddress] = cacheItem{at: time.Now(), val: out}
	c.mu.Unlock()
	return out
}

func (c *Cache) fetchFresh(ctx context.Context, jettonAddress string) TokenMetrics {
	var out TokenMetrics

	if info, err := c.tonapi.GetJetton(ctx, jettonAddress); err == nil {
		out.Holders = info.HoldersCount
		out.Symbol = info.Metadata.Symbol
		if d, err := strconv.Atoi(info.Metadata.Decimals); err == nil {
			out.Decimals = d
		}
	} else {
		log.LogDebug("jetton metadata fetch failed",
			zap.String("jetton", jettonAddress), zap.Error(err))
	}

	pairs, err := c.pairs.FetchPairs(ctx, jettonAddress)
	if err != nil {
		log.LogDebug("pair lookup failed",
			zap.String("jetton", jettonAddress), zap.Error(err))
		return out
	}

	if best := dexscreener.ExtractBestPair(pairs); best != nil {
		if p, err := strconv.ParseFloat(best.PriceUSD, 64); err == nil {
			out.PriceUSD = p
		}
		out.LiquidityUSD = best.Liquidity.USD
		out.McapUSD = best.MarketCap
		if out.McapUSD == 0 {
			out.McapUSD = best.FDV
		}
	}

	pools := dexscreener.FindPoolsForDexes(pairs)
	out.StonfiPool = pools.Stonfi
	out.DedustPool = pools.DeDust
	return out
}
