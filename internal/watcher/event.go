package watcher

// Package watcher detects jetton buys on tracked DEX pools.
// Raw pool transactions are normalized into BuyEvent values, deduplicated
// across polling cycles and data sources, and filtered by per-group minimum
// buy size before anything reaches Telegram.

import "time"

// Fidelity is the confidence tier of an event's extracted amounts.
// Trace data overrides heuristic estimates for the same transaction.
type Fidelity int

const (
	FidelityHeuristic Fidelity = iota
	FidelityTrace
)

func (f Fidelity) String() string {
	if f == FidelityTrace {
		return "trace"
	}
	return "heuristic"
}

// TrackedPool is one pool the scheduler polls, tied to the group that
// configured it.
type TrackedPool struct {
	GroupID       int64
	PoolAddress   string
	DEX           string // "stonfi" or "dedust"
	TokenSymbol   string
	JettonAddress string
	MinBuyTON     float64
}

// RawTrade is one pool transaction as the source delivered it, before
// buy/sell classification.
type RawTrade struct {
	LT      uint64
	Hash    string
	TraceID string
	Utime   int64
	TONIn   float64 // attached TON of the incoming message
	Buyer   string
	Raw     []byte // full transaction document for trace mining
}

// BuyEvent is a normalized buy. Immutable once constructed; an upgraded
// report of the same transaction is a new value with the same TxID.
type BuyEvent struct {
	Pool         TrackedPool
	TxID         string
	TONAmount    float64 // quote side, whole TON
	USDAmount    float64
	JettonAmount float64 // base side, whole tokens; 0 when unknown
	Buyer        string
	Timestamp    time.Time
	Fidelity     Fidelity
}
