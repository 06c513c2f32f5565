package watcher

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"spyton-bot/internal/infra/log"

	"go.uber.org/zap"
)

// Incoming messages below this carry no meaningful swap, only gas or
// pool payouts to sellers.
const dustTONThreshold = 0.05

const (
	maxPendingTraces   = 256
	maxTraceAttempts   = 3
	pendingTraceMaxAge = 30 * time.Minute
)

// TraceFetcher is the slice of the TonAPI client the extractor needs.
type TraceFetcher interface {
	GetTrace(ctx context.Context, traceID string) (json.RawMessage, error)
}

type pendingTrade struct {
	pool     TrackedPool
	trade    RawTrade
	attempts int
	added    time.Time
}

// Extractor turns raw pool transactions into BuyEvents. It prefers exact
// amounts mined from the transaction trace and falls back to the attached
// TON value of the incoming message. Transactions whose trace fetch failed
// are kept in a bounded pending set and retried on later cycles so their
// heuristic amounts can be upgraded.
type Extractor struct {
	traces TraceFetcher

	mu      sync.Mutex
	pending map[string]*pendingTrade // keyed by tx hash
}

func NewExtractor(traces TraceFetcher) *Extractor {
	return &Extractor{
		traces:  traces,
		pending: make(map[string]*pendingTrade),
	}
}

// Extract classifies each trade, discards sells and produces at most one
// BuyEvent per trade. Order of the input is preserved.
func (e *Extractor) Extract(ctx context.Context, pool TrackedPool, trades []RawTrade, tonUSD float64) []BuyEvent {
	var events []BuyEvent
	for _, trade := range trades {
		ev, ok := e.extractOne(ctx, pool, trade, tonUSD)
		if !ok {
			continue
		}
		events = append(events, ev)
	}
	return events
}

func (e *Extractor) extractOne(ctx context.Context, pool TrackedPool, trade RawTrade, tonUSD float64) (BuyEvent, bool) {
	// A buy pays TON into the pool. Payouts to sellers and bare
	// notifications carry only dust.
	if trade.TONIn < dustTONThreshold {
		return BuyEvent{}, false
	}

	ev := BuyEvent{
		Pool:      pool,
		TxID:      trade.Hash,
		TONAmount: trade.TONIn,
		USDAmount: trade.TONIn * tonUSD,
		Buyer:     trade.Buyer,
		Timestamp: time.Unix(trade.Utime, 0),
		Fidelity:  FidelityHeuristic,
	}

	if trade.TraceID == "" {
		return ev, true
	}

	doc, err := e.traces.GetTrace(ctx, trade.TraceID)
	if err != nil {
		log.LogDebug("trace fetch failed, emitting heuristic event",
			zap.String("tx", trade.Hash), zap.Error(err))
		e.remember(pool, trade)
		return ev, true
	}

	amounts, ok := mineTraceAmounts(doc)
	if !ok {
		return ev, true
	}

	ev.Fidelity = FidelityTrace
	ev.JettonAmount = amounts.jetton
	if amounts.ton > 0 {
		ev.TONAmount = amounts.ton
		ev.USDAmount = amounts.ton * tonUSD
	}
	if amounts.usd > 0 {
		ev.USDAmount = amounts.usd
	}
	return ev, true
}

// RetryPending refetches traces for transactions that were emitted at
// heuristic fidelity. Successful fetches come back as trace-fidelity events
// so the deduplicator can upgrade the stored amounts.
func (e *Extractor) RetryPending(ctx context.Context, tonUSD float64) []BuyEvent {
	e.mu.Lock()
	var batch []*pendingTrade
	now := time.Now()
	for hash, p := range e.pending {
		if now.Sub(p.added) > pendingTraceMaxAge || p.attempts >= maxTraceAttempts {
			delete(e.pending, hash)
			continue
		}
		batch = append(batch, p)
	}
	e.mu.Unlock()

	var events []BuyEvent
	for _, p := range batch {
		doc, err := e.traces.GetTrace(ctx, p.trade.TraceID)
		if err != nil {
			e.mu.Lock()
			p.attempts++
			e.mu.Unlock()
			continue
		}

		e.mu.Lock()
		delete(e.pending, p.trade.Hash)
		e.mu.Unlock()

		amounts, ok := mineTraceAmounts(doc)
		if !ok {
			continue
		}

		ev := BuyEvent{
			Pool:         p.pool,
			TxID:         p.trade.Hash,
			TONAmount:    p.trade.TONIn,
			USDAmount:    p.trade.TONIn * tonUSD,
			JettonAmount: amounts.jetton,
			Buyer:        p.trade.Buyer,
			Timestamp:    time.Unix(p.trade.Utime, 0),
			Fidelity:     FidelityTrace,
		}
		if amounts.ton > 0 {
			ev.TONAmount = amounts.ton
			ev.USDAmount = amounts.ton * tonUSD
		}
		if amounts.usd > 0 {
			ev.USDAmount = amounts.usd
		}
		events = append(events, ev)
	}
	return events
}

// PendingCount reports how many trace upgrades are still outstanding.
func (e *Extractor) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

func (e *Extractor) remember(pool TrackedPool, trade RawTrade) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.pending) >= maxPendingTraces {
		// Evict the oldest entry to stay bounded.
		var oldestHash string
		var oldest time.Time
		for hash, p := range e.pending {
			if oldestHash == "" || p.added.Before(oldest) {
				oldestHash = hash
				oldest = p.added
			}
		}
		delete(e.pending, oldestHash)
	}
	e.pending[trade.Hash] = &pendingTrade{pool: pool, trade: trade, added: time.Now()}
}

type traceAmounts struct {
	jetton float64
	ton    float64
	usd    float64
}

// mineTraceAmounts walks the trace document for amount fields. Trace shapes
// differ per DEX so the walk is key-based rather than schema-based. Values
// above 1e12 are nano units and get scaled down.
func mineTraceAmounts(doc []byte) (traceAmounts, bool) {
	var root interface{}
	if err := json.Unmarshal(doc, &root); err != nil {
		return traceAmounts{}, false
	}

	var out traceAmounts
	var found bool
	walkJSON(root, func(key string, value float64) {
		switch key {
		case "jetton_amount", "jettonAmount":
			if out.jetton == 0 {
				out.jetton = scaleNano(value)
				found = true
			}
		case "ton_amount", "tonAmount":
			if out.ton == 0 {
				out.ton = scaleNano(value)
				found = true
			}
		case "value_usd", "amount_usd", "usd":
			if out.usd == 0 {
				out.usd = value
				found = true
			}
		}
	})
	return out, found
}

func scaleNano(v float64) float64 {
	if v > 1e12 {
		return v / 1e9
	}
	return v
}

func walkJSON(node interface{}, visit func(key string, value float64)) {
	switch n := node.(type) {
	case map[string]interface{}:
		for key, child := range n {
			switch v := child.(type) {
			case float64:
				visit(key, v)
			case string:
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					visit(key, f)
				}
			default:
				walkJSON(child, visit)
			}
		}
	case []interface{}:
		for _, child := range n {
			walkJSON(child, visit)
		}
	}
}
