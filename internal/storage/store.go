package storage

// SQLite persistence for group settings, polling cursors and buy history.

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS groups (
    group_id INTEGER PRIMARY KEY,
    enabled BOOLEAN DEFAULT FALSE,
    approved BOOLEAN DEFAULT FALSE,
    min_buy_ton REAL DEFAULT 0,
    token_symbol TEXT DEFAULT '',
    jetton_address TEXT DEFAULT '',
    stonfi_pool TEXT DEFAULT '',
    dedust_pool TEXT DEFAULT '',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS pool_cursors (
    pool_address TEXT PRIMARY KEY,
    last_lt INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS buys (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    ts INTEGER NOT NULL,
    group_id INTEGER NOT NULL,
    dex TEXT NOT NULL,
    token_symbol TEXT NOT NULL,
    jetton_address TEXT NOT NULL,
    pool_address TEXT NOT NULL,
    buyer_address TEXT DEFAULT '',
    ton_amount REAL DEFAULT 0,
    usd_amount REAL DEFAULT 0,
    jetton_amount REAL DEFAULT 0,
    tx_hash TEXT DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_buys_ts ON buys(ts);
CREATE INDEX IF NOT EXISTS idx_buys_token ON buys(jetton_address);
CREATE INDEX IF NOT EXISTS idx_buys_group ON buys(group_id);
`

// Group is one chat's watch configuration.
type Group struct {
	GroupID       int64
	Enabled       bool
	Approved      bool
	MinBuyTON     float64
	TokenSymbol   string
	JettonAddress string
	StonfiPool    string
	DedustPool    string
}

// Buy is one persisted buy event.
type Buy struct {
	Timestamp     time.Time
	GroupID       int64
	DEX           string
	TokenSymbol   string
	JettonAddress string
	PoolAddress   string
	BuyerAddress  string
	TONAmount     float64
	USDAmount     float64
	JettonAmount  float64
	TxHash        string
}

// TokenVolume is one aggregated leaderboard row.
type TokenVolume struct {
	TokenSymbol   string
	JettonAddress string
	TONVolume     float64
	USDVolume     float64
	BuyCount      int
	LastBuy       time.Time
}

type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ---- Groups ----

// EnsureGroup creates the group row if missing and returns it.
func (s *Store) EnsureGroup(groupID int64, defaultMinBuy float64) (*Group, error) {
	_, err := s.db.Exec(`
		INSERT INTO groups (group_id, min_buy_ton) VALUES (?, ?)
		ON CONFLICT(group_id) DO NOTHING`,
		groupID, defaultMinBuy)
	if err != nil {
		return nil, err
	}
	return s.GetGroup(groupID)
}

func (s *Store) GetGroup(groupID int64) (*Group, error) {
	var g Group
	err := s.db.QueryRow(`
		SELECT group_id, enabled, approved, min_buy_ton, token_symbol, jetton_address, stonfi_pool, dedust_pool
		FROM groups WHERE group_id = ?`, groupID).
		Scan(&g.GroupID, &g.Enabled, &g.Approved, &g.MinBuyTON, &g.TokenSymbol, &g.JettonAddress, &g.StonfiPool, &g.DedustPool)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *Store) SetEnabled(groupID int64, enabled bool) error {
	_, err := s.db.Exec("UPDATE groups SET enabled = ? WHERE group_id = ?", enabled, groupID)
	return err
}

func (s *Store) SetApproved(groupID int64, approved bool) error {
	_, err := s.db.Exec("UPDATE groups SET approved = ? WHERE group_id = ?", approved, groupID)
	return err
}

func (s *Store) SetMinBuy(groupID int64, minBuyTON float64) error {
	_, err := s.db.Exec("UPDATE groups SET min_buy_ton = ? WHERE group_id = ?", minBuyTON, groupID)
	return err
}

func (s *Store) SetToken(groupID int64, symbol, jettonAddress string) error {
	_, err := s.db.Exec("UPDATE groups SET token_symbol = ?, jetton_address = ? WHERE group_id = ?",
		symbol, jettonAddress, groupID)
	return err
}

func (s *Store) SetPools(groupID int64, stonfiPool, dedustPool string) error {
	_, err := s.db.Exec("UPDATE groups SET stonfi_pool = ?, dedust_pool = ? WHERE group_id = ?",
		stonfiPool, dedustPool, groupID)
	return err
}

// EnabledGroups returns every enabled group that has at least one pool set.
func (s *Store) EnabledGroups() ([]Group, error) {
	rows, err := s.db.Query(`
		SELECT group_id, enabled, approved, min_buy_ton, token_symbol, jetton_address, stonfi_pool, dedust_pool
		FROM groups
		WHERE enabled = TRUE AND (stonfi_pool != '' OR dedust_pool != '')`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.GroupID, &g.Enabled, &g.Approved, &g.MinBuyTON, &g.TokenSymbol, &g.JettonAddress, &g.StonfiPool, &g.DedustPool); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// ---- Pool cursors ----

func (s *Store) GetPoolCursor(poolAddress string) (uint64, error) {
	var lt uint64
	err := s.db.QueryRow("SELECT last_lt FROM pool_cursors WHERE pool_address = ?", poolAddress).Scan(&lt)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return lt, nil
}

func (s *Store) SetPoolCursor(poolAddress string, lastLT uint64) error {
	_, err := s.db.Exec(`
		INSERT INTO pool_cursors (pool_address, last_lt) VALUES (?, ?)
		ON CONFLICT(pool_address) DO UPDATE SET last_lt = excluded.last_lt`,
		poolAddress, lastLT)
	return err
}

// ---- Buys ----

func (s *Store) AddBuy(b Buy) error {
	_, err := s.db.Exec(`
		INSERT INTO buys (ts, group_id, dex, token_symbol, jetton_address, pool_address, buyer_address, ton_amount, usd_amount, jetton_amount, tx_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Timestamp.Unix(), b.GroupID, b.DEX, b.TokenSymbol, b.JettonAddress, b.PoolAddress,
		b.BuyerAddress, b.TONAmount, b.USDAmount, b.JettonAmount, b.TxHash)
	return err
}

// RecentVolumes aggregates buys newer than since, grouped per token.
func (s *Store) RecentVolumes(since time.Time) ([]TokenVolume, error) {
	rows, err := s.db.Query(`
		SELECT token_symbol, jetton_address,
		       SUM(ton_amount), SUM(usd_amount), COUNT(*), MAX(ts)
		FROM buys
		WHERE ts >= ?
		GROUP BY jetton_address
		ORDER BY SUM(ton_amount) DESC`, since.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var volumes []TokenVolume
	for rows.Next() {
		var v TokenVolume
		var lastTS int64
		if err := rows.Scan(&v.TokenSymbol, &v.JettonAddress, &v.TONVolume, &v.USDVolume, &v.BuyCount, &lastTS); err != nil {
			return nil, err
		}
		v.LastBuy = time.Unix(lastTS, 0)
		volumes = append(volumes, v)
	}
	return volumes, rows.Err()
}

// UpdateBuyAmounts replaces the stored amounts of a buy in place, keeping
// persisted history in step with fidelity upgrades. Jetton amount is left
// untouched when the upgrade does not carry one.
func (s *Store) UpdateBuyAmounts(txHash string, tonAmount, usdAmount, jettonAmount float64) error {
	_, err := s.db.Exec(`
		UPDATE buys
		SET ton_amount = ?, usd_amount = ?,
		    jetton_amount = CASE WHEN ? > 0 THEN ? ELSE jetton_amount END
		WHERE tx_hash = ?`,
		tonAmount, usdAmount, jettonAmount, jettonAmount, txHash)
	return err
}

// RecentBuys returns individual buys newer than since, oldest first.
// Used to warm the in-memory leaderboard after a restart.
func (s *Store) RecentBuys(since time.Time) ([]Buy, error) {
	rows, err := s.db.Query(`
		SELECT ts, group_id, dex, token_symbol, jetton_address, pool_address, buyer_address, ton_amount, usd_amount, jetton_amount, tx_hash
		FROM buys
		WHERE ts >= ?
		ORDER BY ts ASC`, since.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var buys []Buy
	for rows.Next() {
		var b Buy
		var ts int64
		if err := rows.Scan(&ts, &b.GroupID, &b.DEX, &b.TokenSymbol, &b.JettonAddress, &b.PoolAddress,
			&b.BuyerAddress, &b.TONAmount, &b.USDAmount, &b.JettonAmount, &b.TxHash); err != nil {
			return nil, err
		}
		b.Timestamp = time.Unix(ts, 0)
		buys = append(buys, b)
	}
	return buys, rows.Err()
}

// PruneBuys deletes history older than the cutoff.
func (s *Store) PruneBuys(before time.Time) (int64, error) {
	res, err := s.db.Exec("DELETE FROM buys WHERE ts < ?", before.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
