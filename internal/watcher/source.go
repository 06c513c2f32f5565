package watcher

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"spyton-bot/internal/clients_api/tonapi"
)

// TxFetcher is the slice of the TonAPI client the source needs.
type TxFetcher interface {
	GetAccountTransactions(ctx context.Context, account string, limit int) ([]tonapi.Transaction, error)
	GetTrace(ctx context.Context, traceID string) (json.RawMessage, error)
}

// CursorStore persists the per-pool logical-time watermark so restarts do not
// replay old transactions.
type CursorStore interface {
	GetPoolCursor(poolAddress string) (uint64, error)
	SetPoolCursor(poolAddress string, lastLT uint64) error
}

// Source fetches the raw trades a pool has seen since the last successful
// call, oldest first.
type Source struct {
	fetcher    TxFetcher
	cursors    CursorStore
	fetchLimit int
}

func NewSource(fetcher TxFetcher, cursors CursorStore, fetchLimit int) *Source {
	if fetchLimit <= 0 {
		fetchLimit = 25
	}
	return &Source{fetcher: fetcher, cursors: cursors, fetchLimit: fetchLimit}
}

// Fetch returns new transactions above the pool's cursor, oldest first, and
// advances the cursor. The cursor moves even when every transaction is
// filtered out later; a processed batch is never re-fetched.
func (s *Source) Fetch(ctx context.Context, poolAddress string) ([]RawTrade, error) {
	lastLT, err := s.cursors.GetPoolCursor(poolAddress)
	if err != nil {
		return nil, fmt.Errorf("read cursor for %s: %w", poolAddress, err)
	}

	txs, err := s.fetcher.GetAccountTransactions(ctx, poolAddress, s.fetchLimit)
	if err != nil {
		return nil, err
	}

	firstSeen := lastLT == 0

	var trades []RawTrade
	maxLT := lastLT
	for _, tx := range txs {
		if tx.LT <= lastLT {
			continue
		}
		if tx.LT > maxLT {
			maxLT = tx.LT
		}
		if !tx.Success {
			continue
		}

		trade := RawTrade{
			LT:      tx.LT,
			Hash:    tx.Hash,
			TraceID: tx.TraceID,
			Utime:   tx.Utime,
			Raw:     tx.Raw,
		}
		if tx.InMsg != nil {
			trade.TONIn = float64(tx.InMsg.Value) / 1e9
			if tx.InMsg.Source != nil {
				trade.Buyer = tx.InMsg.Source.Address
			}
		}
		trades = append(trades, trade)
	}

	// TonAPI returns newest first; dedup needs first-sighting order.
	sort.Slice(trades, func(i, j int) bool { return trades[i].LT < trades[j].LT })

	if maxLT > lastLT {
		if err := s.cursors.SetPoolCursor(poolAddress, maxLT); err != nil {
			return nil, fmt.Errorf("advance cursor for %s: %w", poolAddress, err)
		}
	}

	// On the very first poll only set the watermark, do not flood the chat
	// with the pool's backlog.
	if firstSeen {
		return nil, nil
	}
	return trades, nil
}
