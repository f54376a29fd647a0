package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists the purchase journal to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS purchases (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			loan_id   INTEGER NOT NULL,
			loan_name TEXT,
			grade     TEXT,
			amount    REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_purchases_ts ON purchases(timestamp)`,

		`CREATE TABLE IF NOT EXISTS cycles (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			outcome   TEXT,
			balance   REAL,
			listed    INTEGER,
			eligible  INTEGER,
			purchased INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cycles_ts ON cycles(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordPurchase(p *Purchase) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := p.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := r.db.Exec(`INSERT INTO purchases
		(timestamp, loan_id, loan_name, grade, amount)
		VALUES (?,?,?,?,?)`,
		ts.Unix(), p.LoanID, p.LoanName, p.Grade, p.Amount,
	)
	return err
}

func (r *SQLiteRecorder) RecordCycle(c *Cycle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO cycles
		(timestamp, outcome, balance, listed, eligible, purchased)
		VALUES (?,?,?,?,?,?)`,
		time.Now().Unix(), c.Outcome, c.Balance, c.Listed, c.Eligible, c.Purchased,
	)
	return err
}

func (r *SQLiteRecorder) PurchasesSince(t time.Time) ([]Purchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT timestamp, loan_id, loan_name, grade, amount
		FROM purchases WHERE timestamp >= ? ORDER BY timestamp`, t.Unix())
	if err != nil {
		return nil, fmt.Errorf("query purchases: %w", err)
	}
	defer rows.Close()

	var purchases []Purchase
	for rows.Next() {
		var p Purchase
		var ts int64
		if err := rows.Scan(&ts, &p.LoanID, &p.LoanName, &p.Grade, &p.Amount); err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		p.Timestamp = time.Unix(ts, 0)
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
