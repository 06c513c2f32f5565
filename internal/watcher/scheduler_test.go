package watcher

import (
	"context"
	"errors"
	"sync"
	"testing"

	"spyton-bot/internal/clients_api/tonapi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticRegistry struct {
	pools []TrackedPool
}

func (r *staticRegistry) TrackedPools(context.Context) ([]TrackedPool, error) {
	return r.pools, nil
}

type staticRates struct {
	rate float64
	err  error
}

func (r *staticRates) GetTONRateUSD(context.Context) (float64, error) { return r.rate, r.err }

type collectSink struct {
	mu     sync.Mutex
	events []BuyEvent
}

func (s *collectSink) HandleEvents(_ context.Context, events []BuyEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

func (s *collectSink) all() []BuyEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]BuyEvent(nil), s.events...)
}

func TestRunCycleDeliversEvents(t *testing.T) {
	fetcher := &fakeTxFetcher{txs: []tonapi.Transaction{tx("t1", 100, 3e9)}}
	cursors := newMemCursors()
	source := NewSource(fetcher, cursors, 25)
	extractor := NewExtractor(&fakeTraceFetcher{})
	sink := &collectSink{}

	sched := NewScheduler(source, extractor, &staticRegistry{pools: []TrackedPool{testPool}},
		&staticRates{rate: 2.0}, sink, 0, 0)

	// First cycle only establishes the cursor.
	sched.runCycle(context.Background())
	assert.Empty(t, sink.all())

	fetcher.txs = []tonapi.Transaction{tx("t2", 200, 5e9)}
	sched.runCycle(context.Background())

	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, "t2", events[0].TxID)
	assert.Equal(t, 5.0, events[0].TONAmount)
	assert.Equal(t, 10.0, events[0].USDAmount)
}

func TestRunCycleSurvivesPoolFailure(t *testing.T) {
	fetcher := &fakeTxFetcher{err: errors.New("upstream down")}
	source := NewSource(fetcher, newMemCursors(), 25)
	extractor := NewExtractor(&fakeTraceFetcher{})
	sink := &collectSink{}

	sched := NewScheduler(source, extractor, &staticRegistry{pools: []TrackedPool{testPool}},
		&staticRates{rate: 2.0}, sink, 0, 0)

	// Must not panic or stall.
	sched.runCycle(context.Background())
	assert.Empty(t, sink.all())
}

func TestTonRateKeepsLastKnownOnFailure(t *testing.T) {
	rates := &staticRates{rate: 3.0}
	sched := NewScheduler(nil, nil, nil, rates, nil, 0, 0)

	assert.Equal(t, 3.0, sched.tonRate(context.Background()))

	rates.err = errors.New("rates down")
	assert.Equal(t, 3.0, sched.tonRate(context.Background()))
}
