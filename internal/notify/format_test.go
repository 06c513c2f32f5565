package notify

import (
	"strings"
	"testing"

	"spyton-bot/internal/leaderboard"

	"github.com/stretchr/testify/assert"
)

func TestStrengthCountTiers(t *testing.T) {
	assert.Equal(t, 8, strengthCount(49))
	assert.Equal(t, 12, strengthCount(50))
	assert.Equal(t, 18, strengthCount(150))
	assert.Equal(t, 24, strengthCount(400))
	assert.Equal(t, 30, strengthCount(1000))
	// Unknown USD value falls back to the middle tier.
	assert.Equal(t, 12, strengthCount(0))
}

func TestGridWraps(t *testing.T) {
	g := grid("x", 18)
	rows := strings.Split(g, "\n")
	assert.Equal(t, []string{strings.Repeat("x", 12), strings.Repeat("x", 6)}, rows)
}

func TestFormatChannelBuy(t *testing.T) {
	text := FormatChannelBuy(BuyPost{
		TokenSymbol:  "SPY",
		TONAmount:    1234.5,
		USDAmount:    3086.25,
		JettonAmount: 99000,
		Buyer:        "EQCabcdefghijklmnop",
		TxHash:       "deadbeef",
		Rank:         2,
		Holders:      1500,
		LiquidityUSD: 52000,
	})

	assert.Contains(t, text, "SpyTON / TON Trending")
	assert.Contains(t, text, "[2] $SPY Buy!")
	assert.Contains(t, text, "💎 1,234.50 TON ($3,086.25)")
	assert.Contains(t, text, "🪙 99,000.00 SPY")
	assert.Contains(t, text, `<a href="https://tonviewer.com/transaction/deadbeef">EQC...nop | Txn</a>`)
	assert.Contains(t, text, "👥 Holders: 1,500")
	assert.Contains(t, text, "💧 Liquidity: $52,000")
	// $1000+ buy gets the full grid.
	assert.Contains(t, text, strings.Repeat("🟢", 12))
}

func TestFormatChannelBuyMinimal(t *testing.T) {
	text := FormatChannelBuy(BuyPost{TONAmount: 5})

	assert.Contains(t, text, "$TOKEN Buy!")
	assert.NotContains(t, text, "[")
	assert.Contains(t, text, "Unknown | Txn")
	assert.NotContains(t, text, "Holders")
}

func TestFormatGroupBuy(t *testing.T) {
	text := FormatGroupBuy(BuyPost{
		TokenSymbol: "SPY",
		TONAmount:   10,
		USDAmount:   25,
		PriceUSD:    0.00012300,
		TONPriceUSD: 2.5,
	}, "https://t.me/SpyTONTrndBot")

	assert.Contains(t, text, "SPY Buy!")
	assert.Contains(t, text, "🔺 10.00 TON ($25.00)")
	assert.Contains(t, text, "💵 Price: $0.000123")
	assert.Contains(t, text, "🟦 TON Price: $2.5000")
	assert.Contains(t, text, `<a href="https://t.me/SpyTONTrndBot">You can book an ad here</a>`)
}

func TestFormatLeaderboardBlocks(t *testing.T) {
	var entries []leaderboard.Entry
	for _, sym := range []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L"} {
		entries = append(entries, leaderboard.Entry{TokenSymbol: sym})
	}

	text := FormatLeaderboard(entries, "@SpyTonTrending")

	assert.Contains(t, text, "🔴 @SpyTonTrending")
	assert.Contains(t, text, "🟥 1 - $A")
	assert.Contains(t, text, "🟥 3 - $C")
	assert.Contains(t, text, "⬛ 4 - $D")
	assert.Contains(t, text, "⬛ 10 - $J")
	assert.Contains(t, text, "🟩 11 - $K")
	assert.Equal(t, 2, strings.Count(text, "──────────────"))
	assert.Contains(t, text, "updated by @SpyTonTrending every 10 seconds")
}

func TestFormatLeaderboardShort(t *testing.T) {
	text := FormatLeaderboard([]leaderboard.Entry{{TokenSymbol: "ONLY"}}, "bot")
	assert.Contains(t, text, "🟥 1 - $ONLY")
	assert.Equal(t, 2, strings.Count(text, "──────────────"))
}

func TestShortAddr(t *testing.T) {
	assert.Equal(t, "Unknown", ShortAddr("", 3))
	assert.Equal(t, "EQshort", ShortAddr("EQshort", 3))
	assert.Equal(t, "EQC...xyz", ShortAddr("EQCabcdefgxyz", 3))
}

func TestSafeSymbol(t *testing.T) {
	assert.Equal(t, "TOKEN", SafeSymbol("  "))
	assert.Equal(t, "SPY_1$", SafeSymbol(" SPY_1$!* "))
	assert.Equal(t, "ABCDEFGHIJKLMNOP", SafeSymbol("ABCDEFGHIJKLMNOPQRS"))
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "0.000123", formatPrice(0.000123))
	assert.Equal(t, "1,234.5", formatPrice(1234.5))
	assert.Equal(t, "2", formatPrice(2.0))
}
