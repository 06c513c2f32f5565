package dexscreener

import "strings"

// Pair is one trading pair as DexScreener reports it.
type Pair struct {
	ChainID     string    `json:"chainId"`
	DexID       string    `json:"dexId"`
	PairAddress string    `json:"pairAddress"`
	BaseToken   Token     `json:"baseToken"`
	QuoteToken  Token     `json:"quoteToken"`
	PriceUSD    string    `json:"priceUsd"`
	Liquidity   Liquidity `json:"liquidity"`
	Volume      Volume    `json:"volume"`
	FDV         float64   `json:"fdv"`
	MarketCap   float64   `json:"marketCap"`
}

type Token struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

type Liquidity struct {
	USD   float64 `json:"usd"`
	Base  float64 `json:"base"`
	Quote float64 `json:"quote"`
}

type Volume struct {
	H24 float64 `json:"h24"`
	H6  float64 `json:"h6"`
	H1  float64 `json:"h1"`
}

// ExtractBestPair picks the pair with the deepest USD liquidity.
// Returns nil when the list is empty.
func ExtractBestPair(pairs []Pair) *Pair {
	var best *Pair
	for i := range pairs {
		if best == nil || pairs[i].Liquidity.USD > best.Liquidity.USD {
			best = &pairs[i]
		}
	}
	return best
}

// DEXPools holds the pool addresses discovered per supported DEX.
type DEXPools struct {
	Stonfi string
	DeDust string
}

// FindPoolsForDexes picks, per DEX, the deepest pool among the given pairs.
// DEX identity is matched by dexId substring since DexScreener uses several
// variants ("stonfi", "ston_fi").
func FindPoolsForDexes(pairs []Pair) DEXPools {
	var pools DEXPools
	var stonfiLiq, dedustLiq float64

	for _, p := range pairs {
		dexID := strings.ToLower(p.DexID)
		switch {
		case strings.Contains(dexID, "ston"):
			if pools.Stonfi == "" || p.Liquidity.USD > stonfiLiq {
				pools.Stonfi = p.PairAddress
				stonfiLiq = p.Liquidity.USD
			}
		case strings.Contains(dexID, "dedust"):
			if pools.DeDust == "" || p.Liquidity.USD > dedustLiq {
				pools.DeDust = p.PairAddress
				dedustLiq = p.Liquidity.USD
			}
		}
	}
	return pools
}
