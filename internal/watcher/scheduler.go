package watcher

import (
	"context"
	"time"

	"spyton-bot/internal/infra/log"
	"spyton-bot/internal/infra/retry"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Registry supplies the pools to poll. Read once per cycle so admin command
// changes take effect on the next tick without restarts.
type Registry interface {
	TrackedPools(ctx context.Context) ([]TrackedPool, error)
}

// Sink receives extracted events. Events of a single pool arrive in the
// order the chain produced them.
type Sink interface {
	HandleEvents(ctx context.Context, events []BuyEvent) error
}

// RateSource supplies the TON/USD rate used to annotate events.
type RateSource interface {
	GetTONRateUSD(ctx context.Context) (float64, error)
}

// Scheduler drives the polling loop across all tracked pools.
type Scheduler struct {
	source    *Source
	extractor *Extractor
	registry  Registry
	rates     RateSource
	sink      Sink

	interval        time.Duration
	concurrency     int
	perPoolTimeout  time.Duration
	lastKnownTONUSD float64
}

func NewScheduler(source *Source, extractor *Extractor, registry Registry, rates RateSource, sink Sink, interval time.Duration, concurrency int) *Scheduler {
	if interval <= 0 {
		interval = time.Second
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Scheduler{
		source:         source,
		extractor:      extractor,
		registry:       registry,
		rates:          rates,
		sink:           sink,
		interval:       interval,
		concurrency:    concurrency,
		perPoolTimeout: 20 * time.Second,
	}
}

// Run polls until the context is cancelled. A failed cycle is logged and the
// next tick proceeds; nothing here is fatal.
func (s *Scheduler) Run(ctx context.Context) {
	log.LogInfo("poll scheduler started",
		zap.Duration("interval", s.interval),
		zap.Int("concurrency", s.concurrency))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.LogInfo("poll scheduler stopped")
			return
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	pools, err := s.registry.TrackedPools(ctx)
	if err != nil {
		log.LogError("failed to list tracked pools", zap.Error(err))
		return
	}
	if len(pools) == 0 {
		return
	}

	tonUSD := s.tonRate(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, pool := range pools {
		pool := pool
		g.Go(func() error {
			s.pollPool(gctx, pool, tonUSD)
			return nil
		})
	}
	g.Wait()

	// Second chance for transactions whose trace fetch failed earlier.
	if upgrades := s.extractor.RetryPending(ctx, tonUSD); len(upgrades) > 0 {
		if err := s.sink.HandleEvents(ctx, upgrades); err != nil {
			log.LogError("sink rejected upgraded events", zap.Error(err))
		}
	}
}

func (s *Scheduler) pollPool(ctx context.Context, pool TrackedPool, tonUSD float64) {
	poolCtx, cancel := context.WithTimeout(ctx, s.perPoolTimeout)
	defer cancel()

	trades, err := s.source.Fetch(poolCtx, pool.PoolAddress)
	if err != nil {
		if retry.IsRateLimited(err) {
			log.LogWarn("upstream rate limited, skipping pool this cycle",
				zap.String("pool", pool.PoolAddress))
		} else {
			log.LogError("pool fetch failed",
				zap.String("pool", pool.PoolAddress), zap.Error(err))
		}
		return
	}
	if len(trades) == 0 {
		return
	}

	events := s.extractor.Extract(poolCtx, pool, trades, tonUSD)
	if len(events) > 0 {
		if err := s.sink.HandleEvents(ctx, events); err != nil {
			log.LogError("sink rejected events",
				zap.String("pool", pool.PoolAddress), zap.Error(err))
		}
	}
}

func (s *Scheduler) tonRate(ctx context.Context) float64 {
	rate, err := s.rates.GetTONRateUSD(ctx)
	if err != nil || rate <= 0 {
		// Stale rate beats no rate; USD values are display only.
		return s.lastKnownTONUSD
	}
	s.lastKnownTONUSD = rate
	return rate
}
