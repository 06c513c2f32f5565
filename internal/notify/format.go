package notify

// Package notify renders buy and leaderboard posts. Output is Telegram HTML.

import (
	"fmt"
	"regexp"
	"strings"

	"spyton-bot/internal/leaderboard"
)

// BuyPost carries everything a buy notification can show. Zero values mean
// "unknown" and the corresponding line is omitted.
type BuyPost struct {
	DEX          string
	TokenSymbol  string
	TONAmount    float64
	USDAmount    float64
	JettonAmount float64
	Buyer        string
	TxHash       string
	Rank         int

	Holders      int64
	PriceUSD     float64
	LiquidityUSD float64
	McapUSD      float64
	TONPriceUSD  float64
	Links        map[string]string // Chart / STONfi / DeDust / Trade
}

// strengthCount maps buy size to the number of dots in the grid.
func strengthCount(usdAmount float64) int {
	switch {
	case usdAmount <= 0:
		return 12
	case usdAmount < 50:
		return 8
	case usdAmount < 150:
		return 12
	case usdAmount < 400:
		return 18
	case usdAmount < 1000:
		return 24
	default:
		return 30
	}
}

func grid(dot string, count int) string {
	const perRow = 12
	var rows []string
	for i := 0; i < count; i += perRow {
		n := perRow
		if count-i < perRow {
			n = count - i
		}
		rows = append(rows, strings.Repeat(dot, n))
	}
	return strings.Join(rows, "\n")
}

// FormatChannelBuy renders the trending-channel variant of a buy post.
func FormatChannelBuy(p BuyPost) string {
	sym := p.TokenSymbol
	if sym == "" {
		sym = "TOKEN"
	}
	rank := ""
	if p.Rank > 0 {
		rank = fmt.Sprintf("[%d] ", p.Rank)
	}

	lines := []string{
		"SpyTON / TON Trending",
		fmt.Sprintf("%s$%s Buy!", rank, sym),
		"",
		grid("🟢", strengthCount(p.USDAmount)),
		"",
		tonLine("💎 ", p),
		jettonLine("🪙 ", p, sym),
		"",
		txLine(p),
	}
	lines = append(lines, metadataLines(p, false)...)

	if links := linkRow(p.Links); links != "" {
		lines = append(lines, "", links)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// FormatGroupBuy renders the in-group variant, with a footer ad link.
func FormatGroupBuy(p BuyPost, bookTrendingURL string) string {
	sym := p.TokenSymbol
	if sym == "" {
		sym = "TOKEN"
	}

	lines := []string{
		fmt.Sprintf("%s Buy!", sym),
		"",
		grid("🔻", strengthCount(p.USDAmount)),
		"",
		tonLine("🔺 ", p),
		jettonLine("💰 ", p, sym),
		"",
		txLine(p),
	}
	lines = append(lines, metadataLines(p, true)...)
	lines = append(lines,
		"──────────────",
		fmt.Sprintf(`<a href="%s">You can book an ad here</a>`, bookTrendingURL),
	)
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// FormatLeaderboard renders the edit-in-place trending message.
// Top 3 get red blocks, places 4 to 10 black, the rest green.
func FormatLeaderboard(entries []leaderboard.Entry, updatedBy string) string {
	updatedBy = strings.TrimPrefix(updatedBy, "@")

	row := func(rank int, symbol string) string {
		block := "🟩"
		switch {
		case rank <= 3:
			block = "🟥"
		case rank <= 10:
			block = "⬛"
		}
		return fmt.Sprintf("%s %d - $%s", block, rank, symbol)
	}

	lines := []string{fmt.Sprintf("🔴 @%s", updatedBy), ""}
	for i, e := range entries {
		if i >= 15 {
			break
		}
		if i == 3 || i == 10 {
			lines = append(lines, "──────────────")
		}
		lines = append(lines, row(i+1, e.TokenSymbol))
	}
	if len(entries) <= 3 {
		lines = append(lines, "──────────────")
	}
	if len(entries) <= 10 {
		lines = append(lines, "──────────────")
	}
	lines = append(lines, "",
		fmt.Sprintf("ℹ️ Trending data is automatically updated by @%s every 10 seconds", updatedBy))
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func tonLine(prefix string, p BuyPost) string {
	if p.TONAmount <= 0 {
		return prefix + "TON buy"
	}
	line := prefix + formatAmount(p.TONAmount) + " TON"
	if p.USDAmount > 0 {
		line += fmt.Sprintf(" ($%s)", formatAmount(p.USDAmount))
	}
	return line
}

func jettonLine(prefix string, p BuyPost, sym string) string {
	if p.JettonAmount <= 0 {
		return prefix + sym
	}
	return fmt.Sprintf("%s%s %s", prefix, formatAmount(p.JettonAmount), sym)
}

func txLine(p BuyPost) string {
	buyer := ShortAddr(p.Buyer, 3)
	link := TonviewerTxLink(p.TxHash)
	if link == "" {
		return fmt.Sprintf("%s | Txn", buyer)
	}
	return fmt.Sprintf(`<a href="%s">%s | Txn</a>`, link, buyer)
}

func metadataLines(p BuyPost, detailed bool) []string {
	var lines []string
	if p.Holders > 0 {
		lines = append(lines, fmt.Sprintf("👥 Holders: %s", groupDigits(fmt.Sprintf("%d", p.Holders))))
	}
	if detailed && p.PriceUSD > 0 {
		lines = append(lines, fmt.Sprintf("💵 Price: $%s", formatPrice(p.PriceUSD)))
	}
	if p.LiquidityUSD > 0 {
		lines = append(lines, fmt.Sprintf("💧 Liquidity: $%s", formatAmount0(p.LiquidityUSD)))
	}
	if p.McapUSD > 0 {
		lines = append(lines, fmt.Sprintf("🏦 MCap: $%s", formatAmount0(p.McapUSD)))
	}
	if detailed && p.TONPriceUSD > 0 {
		lines = append(lines, fmt.Sprintf("🟦 TON Price: $%.4f", p.TONPriceUSD))
	}
	return lines
}

func linkRow(links map[string]string) string {
	var parts []string
	for _, key := range []string{"Chart", "STONfi", "DeDust", "Trade"} {
		if url := links[key]; url != "" {
			parts = append(parts, fmt.Sprintf(`<a href="%s">%s</a>`, url, key))
		}
	}
	return strings.Join(parts, " | ")
}

// ShortAddr shortens an address to its edges, "EQC...abc".
func ShortAddr(addr string, keep int) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "Unknown"
	}
	if len(addr) <= keep*2+3 {
		return addr
	}
	return addr[:keep] + "..." + addr[len(addr)-keep:]
}

// TonviewerTxLink returns the explorer URL for a transaction, empty when the
// hash is unknown.
func TonviewerTxLink(txHash string) string {
	txHash = strings.TrimSpace(txHash)
	if txHash == "" {
		return ""
	}
	return "https://tonviewer.com/transaction/" + txHash
}

var symbolRe = regexp.MustCompile(`[^A-Za-z0-9_$]`)

// SafeSymbol strips markup-hostile characters and caps length.
func SafeSymbol(sym string) string {
	sym = symbolRe.ReplaceAllString(strings.TrimSpace(sym), "")
	if sym == "" {
		return "TOKEN"
	}
	if len(sym) > 16 {
		sym = sym[:16]
	}
	return sym
}

// formatAmount renders 1234.5 as "1,234.50".
func formatAmount(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	dot := strings.IndexByte(s, '.')
	return groupDigits(s[:dot]) + s[dot:]
}

func formatAmount0(v float64) string {
	return groupDigits(fmt.Sprintf("%.0f", v))
}

// formatPrice keeps micro-cap precision without trailing zeros.
func formatPrice(v float64) string {
	s := fmt.Sprintf("%.8f", v)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return groupDigits(s)
	}
	return groupDigits(s[:dot]) + s[dot:]
}

func groupDigits(s string) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var out strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out.WriteByte(',')
		}
		out.WriteRune(c)
	}
	if neg {
		return "-" + out.String()
	}
	return out.String()
}
