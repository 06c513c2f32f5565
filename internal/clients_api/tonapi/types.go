package tonapi

// This file contains data structures for TonAPI responses.
// Only the fields the watcher actually reads are mapped; the rest of each
// transaction is kept as raw JSON for heuristic mining.

import "encoding/json"

// TransactionsResponse - answer of /v2/blockchain/accounts/{id}/transactions
type TransactionsResponse struct {
	Transactions []Transaction `json:"transactions"`
}

// Transaction is a single account transaction. LT orders transactions on the
// account chain and drives the polling cursor.
type Transaction struct {
	Hash    string          `json:"hash"`
	LT      uint64          `json:"lt"`
	Utime   int64           `json:"utime"`
	TraceID string          `json:"trace_id"`
	Success bool            `json:"success"`
	InMsg   *Message        `json:"in_msg"`
	Raw     json.RawMessage `json:"-"`
}

// UnmarshalJSON keeps the raw document alongside the typed fields.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	type alias Transaction
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*t = Transaction(a)
	t.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// Message is an incoming or outgoing message of a transaction.
// Value is in nanoTON.
type Message struct {
	Value  int64           `json:"value"`
	Source *AccountAddress `json:"source"`
}

type AccountAddress struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	IsScam  bool   `json:"is_scam"`
}

// JettonInfo - answer of /v2/jettons/{id}
type JettonInfo struct {
	Mintable     bool           `json:"mintable"`
	TotalSupply  string         `json:"total_supply"`
	HoldersCount int64          `json:"holders_count"`
	Metadata     JettonMetadata `json:"metadata"`
}

type JettonMetadata struct {
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals string `json:"decimals"`
	Image    string `json:"image"`
}

// RatesResponse - answer of /v2/rates
type RatesResponse struct {
	Rates map[string]TokenRates `json:"rates"`
}

type TokenRates struct {
	Prices map[string]float64 `json:"prices"`
}
