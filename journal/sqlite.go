package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteJournal persists trades and equity samples to a SQLite database.
type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite journal: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordTrade(t Trade) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, symbol, side, entry_time, exit_time, entry_price, exit_price, size, pnl, fee, exit_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Symbol, t.Side, t.EntryTime, t.ExitTime,
		t.EntryPrice, t.ExitPrice, t.Size, t.PnL, t.Fee, t.ExitReason,
	)
	return err
}

func (j *SQLiteJournal) RecordEquity(p EquityPoint) error {
	_, err := j.db.Exec(`
		INSERT INTO equity (time, equity, drawdown)
		VALUES (?, ?, ?)`,
		p.Time, p.Equity, p.Drawdown,
	)
	return err
}

// GetTrade returns a single trade record by ID.
func (j *SQLiteJournal) GetTrade(tradeID string) (Trade, error) {
	row := j.db.QueryRow(`
		SELECT trade_id, symbol, side, entry_time, exit_time, entry_price, exit_price, size, pnl, fee, exit_reason
		FROM trades
		WHERE trade_id = ?`, tradeID)

	var t Trade
	err := scanTrade(row.Scan, &t)
	if err == sql.ErrNoRows {
		return Trade{}, fmt.Errorf("trade %q not found", tradeID)
	}
	if err != nil {
		return Trade{}, err
	}
	return t, nil
}

// ListTrades returns all trades in exit-time order.
func (j *SQLiteJournal) ListTrades() ([]Trade, error) {
	rows, err := j.db.Query(`
		SELECT trade_id, symbol, side, entry_time, exit_time, entry_price, exit_price, size, pnl, fee, exit_reason
		FROM trades
		ORDER BY exit_time ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Trade
	for rows.Next() {
		var t Trade
		if err := scanTrade(rows.Scan, &t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListEquityBetween returns equity samples with time in [start, end).
func (j *SQLiteJournal) ListEquityBetween(start, end time.Time) ([]EquityPoint, error) {
	rows, err := j.db.Query(`
		SELECT time, equity, drawdown
		FROM equity
		WHERE time >= ? AND time < ?
		ORDER BY time ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquityPoint
	for rows.Next() {
		var p EquityPoint
		if err := rows.Scan(&p.Time, &p.Equity, &p.Drawdown); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

func scanTrade(scan func(...any) error, t *Trade) error {
	return scan(
		&t.ID,
		&t.Symbol,
		&t.Side,
		&t.EntryTime,
		&t.ExitTime,
		&t.EntryPrice,
		&t.ExitPrice,
		&t.Size,
		&t.PnL,
		&t.Fee,
		&t.ExitReason,
	)
}
