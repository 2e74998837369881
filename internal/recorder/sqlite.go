package recorder

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"SP500Tracker/internal/model"
)

// SQLiteRecorder persists refresh cycles to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the dashboard read history while a cycle is being written.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log.With().Str("component", "recorder").Logger()}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS refresh_cycles (
			id             TEXT PRIMARY KEY,
			started_at     INTEGER NOT NULL,
			finished_at    INTEGER NOT NULL,
			regime         TEXT,
			requested      INTEGER,
			processed      INTEGER,
			failed         INTEGER,
			average_change REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cycles_finished ON refresh_cycles(finished_at)`,

		`CREATE TABLE IF NOT EXISTS instrument_rows (
			id                 INTEGER PRIMARY KEY AUTOINCREMENT,
			cycle_id           TEXT NOT NULL REFERENCES refresh_cycles(id),
			position           INTEGER NOT NULL,
			symbol             TEXT NOT NULL,
			company            TEXT,
			current_price      REAL,
			percent_change     REAL,
			window_high        REAL,
			window_roc         REAL,
			regime             TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rows_cycle ON instrument_rows(cycle_id)`,
		`CREATE INDEX IF NOT EXISTS idx_rows_symbol ON instrument_rows(symbol)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRefresh(snap *model.Snapshot) error {
	if snap == nil {
		return errors.New("record refresh: nil snapshot")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	sum := snap.Summary()
	if _, err := tx.Exec(`INSERT INTO refresh_cycles
		(id, started_at, finished_at, regime, requested, processed, failed, average_change)
		VALUES (?,?,?,?,?,?,?,?)`,
		snap.ID, snap.StartedAt.UnixMilli(), snap.FinishedAt.UnixMilli(), string(snap.Regime),
		snap.Requested, sum.Processed, snap.Failed, sum.AverageChange,
	); err != nil {
		return fmt.Errorf("insert cycle: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO instrument_rows
		(cycle_id, position, symbol, company, current_price, percent_change, window_high, window_roc, regime)
		VALUES (?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare rows: %w", err)
	}
	defer stmt.Close()

	for i, row := range snap.Rows {
		if _, err := stmt.Exec(snap.ID, i, row.Symbol, row.CompanyName, row.CurrentPrice,
			row.PercentChangeDaily, row.WindowHigh, row.WindowRateOfChange, string(row.Regime)); err != nil {
			return fmt.Errorf("insert row %s: %w", row.Symbol, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	r.log.Debug().Str("cycle", snap.ID).Int("rows", len(snap.Rows)).Msg("refresh recorded")
	return nil
}

func (r *SQLiteRecorder) History(limit int) ([]model.RefreshSummary, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := r.db.Query(`SELECT id, started_at, finished_at, regime, requested, processed, failed, average_change
		FROM refresh_cycles ORDER BY finished_at DESC, started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []model.RefreshSummary
	for rows.Next() {
		var (
			s                 model.RefreshSummary
			started, finished int64
			regime            string
		)
		if err := rows.Scan(&s.ID, &started, &finished, &regime, &s.Requested, &s.Processed, &s.Failed, &s.AverageChange); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		s.StartedAt = time.UnixMilli(started)
		s.FinishedAt = time.UnixMilli(finished)
		s.Regime = model.Regime(regime)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
