package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"spyton-bot/internal/clients_api/tonapi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTxFetcher struct {
	txs []tonapi.Transaction
	err error
}

func (f *fakeTxFetcher) GetAccountTransactions(context.Context, string, int) ([]tonapi.Transaction, error) {
	return f.txs, f.err
}

func (f *fakeTxFetcher) GetTrace(context.Context, string) (json.RawMessage, error) {
	return nil, errors.New("not implemented")
}

type memCursors struct {
	cursors map[string]uint64
}

func newMemCursors() *memCursors { return &memCursors{cursors: make(map[string]uint64)} }

func (m *memCursors) GetPoolCursor(pool string) (uint64, error) { return m.cursors[pool], nil }

func (m *memCursors) SetPoolCursor(pool string, lt uint64) error {
	m.cursors[pool] = lt
	return nil
}

func tx(hash string, lt uint64, valueNano int64) tonapi.Transaction {
	return tonapi.Transaction{
		Hash:    hash,
		LT:      lt,
		Utime:   1700000000,
		Success: true,
		InMsg: &tonapi.Message{
			Value:  valueNano,
			Source: &tonapi.AccountAddress{Address: "EQbuyer"},
		},
	}
}

func TestFetchFirstPollOnlySetsCursor(t *testing.T) {
	fetcher := &fakeTxFetcher{txs: []tonapi.Transaction{tx("t2", 200, 5e9), tx("t1", 100, 3e9)}}
	cursors := newMemCursors()
	source := NewSource(fetcher, cursors, 25)

	trades, err := source.Fetch(context.Background(), "EQpool")
	require.NoError(t, err)
	assert.Empty(t, trades)
	assert.Equal(t, uint64(200), cursors.cursors["EQpool"])
}

func TestFetchReturnsNewTradesOldestFirst(t *testing.T) {
	fetcher := &fakeTxFetcher{txs: []tonapi.Transaction{tx("t1", 100, 3e9)}}
	cursors := newMemCursors()
	source := NewSource(fetcher, cursors, 25)

	_, err := source.Fetch(context.Background(), "EQpool")
	require.NoError(t, err)

	// Newest first, as the API delivers.
	fetcher.txs = []tonapi.Transaction{tx("t3", 300, 7e9), tx("t2", 200, 5e9), tx("t1", 100, 3e9)}

	trades, err := source.Fetch(context.Background(), "EQpool")
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "t2", trades[0].Hash)
	assert.Equal(t, "t3", trades[1].Hash)
	assert.Equal(t, 5.0, trades[0].TONIn)
	assert.Equal(t, "EQbuyer", trades[0].Buyer)
	assert.Equal(t, uint64(300), cursors.cursors["EQpool"])
}

func TestFetchSkipsFailedTransactions(t *testing.T) {
	fetcher := &fakeTxFetcher{txs: []tonapi.Transaction{tx("t1", 100, 3e9)}}
	cursors := newMemCursors()
	source := NewSource(fetcher, cursors, 25)

	_, err := source.Fetch(context.Background(), "EQpool")
	require.NoError(t, err)

	failed := tx("t2", 200, 5e9)
	failed.Success = false
	fetcher.txs = []tonapi.Transaction{failed}

	trades, err := source.Fetch(context.Background(), "EQpool")
	require.NoError(t, err)
	assert.Empty(t, trades)
	// Cursor still advances past the failed transaction.
	assert.Equal(t, uint64(200), cursors.cursors["EQpool"])
}

func TestFetchPropagatesUpstreamError(t *testing.T) {
	fetcher := &fakeTxFetcher{err: errors.New("rate limited")}
	source := NewSource(fetcher, newMemCursors(), 25)

	_, err := source.Fetch(context.Background(), "EQpool")
	require.Error(t, err)
}
