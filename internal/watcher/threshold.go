package watcher

// Passes reports whether the buy clears the pool's minimum size.
// The threshold applies to the TON side of the trade. A zero threshold
// lets everything through.
func Passes(ev BuyEvent) bool {
	if ev.Pool.MinBuyTON <= 0 {
		return true
	}
	return ev.TONAmount >= ev.Pool.MinBuyTON
}
