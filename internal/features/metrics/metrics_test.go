package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"spyton-bot/internal/clients_api/dexscreener"
	"spyton-bot/internal/clients_api/tonapi"

	"github.com/stretchr/testify/assert"
)

type fakeJettonAPI struct {
	info  *tonapi.JettonInfo
	err   error
	calls int
}

func (f *fakeJettonAPI) GetJetton(context.Context, string) (*tonapi.JettonInfo, error) {
	f.calls++
	return f.info, f.err
}

type fakePairsAPI struct {
	pairs []dexscreener.Pair
	err   error
	calls int
}

func (f *fakePairsAPI) FetchPairs(context.Context, string) ([]dexscreener.Pair, error) {
	f.calls++
	return f.pairs, f.err
}

func TestFetchMergesUpstreams(t *testing.T) {
	jettons := &fakeJettonAPI{info: &tonapi.JettonInfo{
		HoldersCount: 4200,
		Metadata:     tonapi.JettonMetadata{Symbol: "SPY", Decimals: "9"},
	}}
	pairs := &fakePairsAPI{pairs: []dexscreener.Pair{
		{DexID: "stonfi", PairAddress: "EQston", PriceUSD: "0.01", Liquidity: dexscreener.Liquidity{USD: 9000}, FDV: 120000},
		{DexID: "dedust", PairAddress: "EQdedust", PriceUSD: "0.011", Liquidity: dexscreener.Liquidity{USD: 100}},
	}}

	cache := NewCache(jettons, pairs, time.Minute)
	m := cache.Fetch(context.Background(), "EQjetton")

	assert.Equal(t, "SPY", m.Symbol)
	assert.Equal(t, 9, m.Decimals)
	assert.Equal(t, int64(4200), m.Holders)
	assert.Equal(t, 0.01, m.PriceUSD)
	assert.Equal(t, 9000.0, m.LiquidityUSD)
	// FDV stands in when mcap is missing.
	assert.Equal(t, 120000.0, m.McapUSD)
	assert.Equal(t, "EQston", m.StonfiPool)
	assert.Equal(t, "EQdedust", m.DedustPool)
}

func TestFetchCachesWithinTTL(t *testing.T) {
	jettons := &fakeJettonAPI{info: &tonapi.JettonInfo{}}
	pairs := &fakePairsAPI{}
	cache := NewCache(jettons, pairs, time.Minute)

	cache.Fetch(context.Background(), "EQjetton")
	cache.Fetch(context.Background(), "EQjetton")
	cache.Fetch(context.Background(), "EQother")

	assert.Equal(t, 2, jettons.calls)
	assert.Equal(t, 2, pairs.calls)
}

func TestFetchSurvivesUpstreamFailures(t *testing.T) {
	jettons := &fakeJettonAPI{err: errors.New("tonapi down")}
	pairs := &fakePairsAPI{err: errors.New("dexscreener down")}
	cache := NewCache(jettons, pairs, time.Minute)

	m := cache.Fetch(context.Background(), "EQjetton")
	assert.Equal(t, TokenMetrics{}, m)
}
