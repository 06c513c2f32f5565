package leaderboard

// Package leaderboard ranks tracked tokens by recent buy volume and keeps a
// single edit-in-place Telegram message per destination in sync with that
// ranking.

import (
	"sort"
	"sync"
	"time"

	"spyton-bot/internal/watcher"
)

// Entry is one rendered leaderboard row. Rank is derived on every snapshot,
// never stored.
type Entry struct {
	TokenSymbol   string
	JettonAddress string
	TONVolume     float64
	USDVolume     float64
	BuyCount      int
	LastBuy       time.Time
	Rank          int
}

type buyRecord struct {
	txID string
	ton  float64
	usd  float64
	ts   time.Time
}

type tokenAgg struct {
	symbol  string
	jetton  string
	records []buyRecord
}

// Engine maintains rolling-window buy volume per token. Writes come from the
// poll path only; the publisher just reads snapshots.
type Engine struct {
	mu     sync.Mutex
	window time.Duration
	tokens map[string]*tokenAgg // keyed by jetton address
}

func NewEngine(window time.Duration) *Engine {
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &Engine{
		window: window,
		tokens: make(map[string]*tokenAgg),
	}
}

// Record adds the event's TON amount to the token's windowed volume.
func (e *Engine) Record(ev watcher.BuyEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	agg := e.tokens[ev.Pool.JettonAddress]
	if agg == nil {
		agg = &tokenAgg{symbol: ev.Pool.TokenSymbol, jetton: ev.Pool.JettonAddress}
		e.tokens[ev.Pool.JettonAddress] = agg
	}
	if ev.Pool.TokenSymbol != "" {
		agg.symbol = ev.Pool.TokenSymbol
	}
	agg.records = append(agg.records, buyRecord{
		txID: ev.TxID,
		ton:  ev.TONAmount,
		usd:  ev.USDAmount,
		ts:   ev.Timestamp,
	})
}

// Upgrade replaces the stored contribution of a transaction with
// higher-fidelity amounts. Returns false when the transaction has already
// left the window.
func (e *Engine) Upgrade(jettonAddress, txID string, tonAmount, usdAmount float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	agg := e.tokens[jettonAddress]
	if agg == nil {
		return false
	}
	for i := range agg.records {
		if agg.records[i].txID == txID {
			agg.records[i].ton = tonAmount
			agg.records[i].usd = usdAmount
			return true
		}
	}
	return false
}

// Trim discards contributions older than the window. Snapshot and RankOf
// already ignore them; trimming just reclaims memory.
func (e *Engine) Trim(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := now.Add(-e.window)
	for jetton, agg := range e.tokens {
		kept := agg.records[:0]
		for _, r := range agg.records {
			if r.ts.After(cutoff) {
				kept = append(kept, r)
			}
		}
		agg.records = kept
		if len(agg.records) == 0 {
			delete(e.tokens, jetton)
		}
	}
}

// RankOf returns the token's 1-based rank, or 0 when the token has no
// in-window volume. The result reflects every event recorded so far,
// including the caller's own.
func (e *Engine) RankOf(jettonAddress string) int {
	for _, entry := range e.Snapshot() {
		if entry.JettonAddress == jettonAddress {
			return entry.Rank
		}
	}
	return 0
}

// Snapshot returns tokens ordered by in-window TON volume descending, ties
// broken by the more recent last buy, then by symbol for determinism.
func (e *Engine) Snapshot() []Entry {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := time.Now().Add(-e.window)

	var entries []Entry
	for _, agg := range e.tokens {
		entry := Entry{TokenSymbol: agg.symbol, JettonAddress: agg.jetton}
		for _, r := range agg.records {
			if !r.ts.After(cutoff) {
				continue
			}
			entry.TONVolume += r.ton
			entry.USDVolume += r.usd
			entry.BuyCount++
			if r.ts.After(entry.LastBuy) {
				entry.LastBuy = r.ts
			}
		}
		if entry.BuyCount > 0 {
			entries = append(entries, entry)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TONVolume != entries[j].TONVolume {
			return entries[i].TONVolume > entries[j].TONVolume
		}
		if !entries[i].LastBuy.Equal(entries[j].LastBuy) {
			return entries[i].LastBuy.After(entries[j].LastBuy)
		}
		return entries[i].TokenSymbol < entries[j].TokenSymbol
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
