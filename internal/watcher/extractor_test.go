package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTraceFetcher struct {
	traces map[string]string
	err    error
	calls  int
}

func (f *fakeTraceFetcher) GetTrace(_ context.Context, traceID string) (json.RawMessage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	doc, ok := f.traces[traceID]
	if !ok {
		return nil, errors.New("trace not found")
	}
	return json.RawMessage(doc), nil
}

var testPool = TrackedPool{
	GroupID:       -100,
	PoolAddress:   "EQpool",
	DEX:           "stonfi",
	TokenSymbol:   "TOK",
	JettonAddress: "EQjetton",
	MinBuyTON:     1,
}

func TestExtractDiscardsDust(t *testing.T) {
	e := NewExtractor(&fakeTraceFetcher{})

	events := e.Extract(context.Background(), testPool, []RawTrade{
		{Hash: "tx1", TONIn: 0.001, Utime: 100},
		{Hash: "tx2", TONIn: 0, Utime: 101},
	}, 2.5)

	assert.Empty(t, events)
}

func TestExtractHeuristicWithoutTrace(t *testing.T) {
	e := NewExtractor(&fakeTraceFetcher{})

	events := e.Extract(context.Background(), testPool, []RawTrade{
		{Hash: "tx1", TONIn: 4, Utime: 100, Buyer: "EQbuyer"},
	}, 2.5)

	require.Len(t, events, 1)
	assert.Equal(t, FidelityHeuristic, events[0].Fidelity)
	assert.Equal(t, 4.0, events[0].TONAmount)
	assert.Equal(t, 10.0, events[0].USDAmount)
	assert.Equal(t, "EQbuyer", events[0].Buyer)
}

func TestExtractTraceAmounts(t *testing.T) {
	fetcher := &fakeTraceFetcher{traces: map[string]string{
		"trace1": `{"children":[{"transaction":{"actions":[{"jetton_amount":"5000000000000","ton_amount":4200000000000}]}}]}`,
	}}
	e := NewExtractor(fetcher)

	events := e.Extract(context.Background(), testPool, []RawTrade{
		{Hash: "tx1", TraceID: "trace1", TONIn: 4, Utime: 100},
	}, 2.5)

	require.Len(t, events, 1)
	assert.Equal(t, FidelityTrace, events[0].Fidelity)
	// Nano values scaled to whole units.
	assert.Equal(t, 5000.0, events[0].JettonAmount)
	assert.Equal(t, 4200.0, events[0].TONAmount)
	assert.Equal(t, 10500.0, events[0].USDAmount)
}

func TestExtractFallsBackWhenTraceFails(t *testing.T) {
	e := NewExtractor(&fakeTraceFetcher{err: errors.New("upstream down")})

	events := e.Extract(context.Background(), testPool, []RawTrade{
		{Hash: "tx1", TraceID: "trace1", TONIn: 4, Utime: 100},
	}, 2.5)

	require.Len(t, events, 1)
	assert.Equal(t, FidelityHeuristic, events[0].Fidelity)
	assert.Equal(t, 1, e.PendingCount())
}

func TestRetryPendingUpgrades(t *testing.T) {
	fetcher := &fakeTraceFetcher{err: errors.New("upstream down")}
	e := NewExtractor(fetcher)

	e.Extract(context.Background(), testPool, []RawTrade{
		{Hash: "tx1", TraceID: "trace1", TONIn: 4, Utime: 100},
	}, 2.5)
	require.Equal(t, 1, e.PendingCount())

	// Upstream recovers.
	fetcher.err = nil
	fetcher.traces = map[string]string{
		"trace1": `{"jetton_amount":"123","ton_amount":"4.2"}`,
	}

	upgrades := e.RetryPending(context.Background(), 2.5)
	require.Len(t, upgrades, 1)
	assert.Equal(t, FidelityTrace, upgrades[0].Fidelity)
	assert.Equal(t, "tx1", upgrades[0].TxID)
	assert.Equal(t, 4.2, upgrades[0].TONAmount)
	assert.Equal(t, 0, e.PendingCount())

	// Nothing left to retry.
	assert.Empty(t, e.RetryPending(context.Background(), 2.5))
}

func TestRetryPendingDropsAfterMaxAttempts(t *testing.T) {
	fetcher := &fakeTraceFetcher{err: errors.New("upstream down")}
	e := NewExtractor(fetcher)

	e.Extract(context.Background(), testPool, []RawTrade{
		{Hash: "tx1", TraceID: "trace1", TONIn: 4, Utime: 100},
	}, 2.5)

	for i := 0; i < maxTraceAttempts; i++ {
		assert.Empty(t, e.RetryPending(context.Background(), 2.5))
	}
	// Exhausted entries are discarded on the next sweep.
	assert.Empty(t, e.RetryPending(context.Background(), 2.5))
	assert.Equal(t, 0, e.PendingCount())
}

func TestMineTraceAmountsUSD(t *testing.T) {
	amounts, ok := mineTraceAmounts([]byte(`{"swap":{"amount_usd":12.5}}`))
	require.True(t, ok)
	assert.Equal(t, 12.5, amounts.usd)
}

func TestMineTraceAmountsMalformed(t *testing.T) {
	_, ok := mineTraceAmounts([]byte(`not json`))
	assert.False(t, ok)

	_, ok = mineTraceAmounts([]byte(`{"foo":"bar"}`))
	assert.False(t, ok)
}
