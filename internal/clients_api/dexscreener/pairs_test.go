package dexscreener

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractBestPair(t *testing.T) {
	pairs := []Pair{
		{PairAddress: "pool-a", Liquidity: Liquidity{USD: 1000}},
		{PairAddress: "pool-b", Liquidity: Liquidity{USD: 50000}},
		{PairAddress: "pool-c", Liquidity: Liquidity{USD: 200}},
	}

	best := ExtractBestPair(pairs)
	require.NotNil(t, best)
	assert.Equal(t, "pool-b", best.PairAddress)
}

func TestExtractBestPairEmpty(t *testing.T) {
	assert.Nil(t, ExtractBestPair(nil))
}

func TestFindPoolsForDexes(t *testing.T) {
	pairs := []Pair{
		{DexID: "stonfi", PairAddress: "ston-small", Liquidity: Liquidity{USD: 100}},
		{DexID: "ston_fi", PairAddress: "ston-big", Liquidity: Liquidity{USD: 9000}},
		{DexID: "dedust", PairAddress: "dedust-pool", Liquidity: Liquidity{USD: 500}},
		{DexID: "uniswap", PairAddress: "other", Liquidity: Liquidity{USD: 99999}},
	}

	pools := FindPoolsForDexes(pairs)
	assert.Equal(t, "ston-big", pools.Stonfi)
	assert.Equal(t, "dedust-pool", pools.DeDust)
}

func TestFetchPairsFallsBackToLatest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/token-pairs/v1/ton/EQjetton":
			w.Write([]byte(`[]`))
		case r.URL.Path == "/latest/dex/tokens/EQjetton":
			w.Write([]byte(`{"pairs":[{"dexId":"dedust","pairAddress":"p1","liquidity":{"usd":42}}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	pairs, err := client.FetchPairs(context.Background(), "EQjetton")
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "p1", pairs[0].PairAddress)
}

func TestGetTokenPairsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	_, err := client.GetTokenPairs(context.Background(), "EQmissing")
	require.Error(t, err)
}
