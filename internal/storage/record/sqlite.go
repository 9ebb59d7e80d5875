package record

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/newthinker/moverscan/internal/core"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLite persists run history to a SQLite database.
type SQLite struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// NewSQLite opens (or creates) the database at dbPath and runs migrations.
func NewSQLite(dbPath string, logger *zap.Logger) (*SQLite, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLite{db: db, logger: logger}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scan_runs (
			run_id      TEXT PRIMARY KEY,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			instruments INTEGER,
			signals     INTEGER,
			backtests   INTEGER,
			diagnostics INTEGER
		)`,

		`CREATE TABLE IF NOT EXISTS signals (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id         TEXT NOT NULL,
			symbol         TEXT NOT NULL,
			action         TEXT NOT NULL,
			percent_change REAL,
			last_close     REAL,
			target_price   REAL,
			duration_bars  REAL,
			generated_at   INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_symbol ON signals(symbol, generated_at)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_run ON signals(run_id)`,

		`CREATE TABLE IF NOT EXISTS backtests (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id          TEXT NOT NULL,
			symbol          TEXT NOT NULL,
			strategy        TEXT NOT NULL,
			initial_balance REAL,
			final_value     REAL,
			total_return    REAL,
			trades          INTEGER,
			max_drawdown    REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_backtests_run ON backtests(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLite) RecordRun(ctx context.Context, run Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO scan_runs
		(run_id, started_at, finished_at, instruments, signals, backtests, diagnostics)
		VALUES (?,?,?,?,?,?,?)`,
		run.RunID, run.StartedAt.Unix(), run.FinishedAt.Unix(),
		run.Instruments, run.Signals, run.Backtests, run.Diagnostics,
	)
	return err
}

func (r *SQLite) RecordSignals(ctx context.Context, runID string, signals []core.Signal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO signals
			(run_id, symbol, action, percent_change, last_close, target_price, duration_bars, generated_at)
			VALUES (?,?,?,?,?,?,?,?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, sig := range signals {
			if _, err := stmt.ExecContext(ctx,
				runID, sig.Symbol, string(sig.Action), sig.PercentChange, sig.LastClose,
				sig.TargetPrice, finite(sig.Duration), sig.GeneratedAt.Unix(),
			); err != nil {
				return fmt.Errorf("insert signal %s: %w", sig.Symbol, err)
			}
		}
		return nil
	})
}

func (r *SQLite) RecordBacktests(ctx context.Context, results []BacktestRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO backtests
			(run_id, symbol, strategy, initial_balance, final_value, total_return, trades, max_drawdown)
			VALUES (?,?,?,?,?,?,?,?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, b := range results {
			if _, err := stmt.ExecContext(ctx,
				b.RunID, b.Symbol, b.Strategy, b.InitialBalance, b.FinalValue,
				b.TotalReturn, b.Trades, b.MaxDrawdown,
			); err != nil {
				return fmt.Errorf("insert backtest %s/%s: %w", b.Symbol, b.Strategy, err)
			}
		}
		return nil
	})
}

// ListSignals returns signals matching the filter, oldest first.
func (r *SQLite) ListSignals(ctx context.Context, filter ListFilter) ([]SignalRecord, error) {
	var where []string
	var args []any
	if filter.RunID != "" {
		where = append(where, "run_id = ?")
		args = append(args, filter.RunID)
	}
	if filter.Symbol != "" {
		where = append(where, "symbol = ?")
		args = append(args, filter.Symbol)
	}
	if filter.Action != "" {
		where = append(where, "action = ?")
		args = append(args, string(filter.Action))
	}
	if !filter.From.IsZero() {
		where = append(where, "generated_at >= ?")
		args = append(args, filter.From.Unix())
	}
	if !filter.To.IsZero() {
		where = append(where, "generated_at <= ?")
		args = append(args, filter.To.Unix())
	}

	query := `SELECT run_id, symbol, action, percent_change, last_close, target_price, duration_bars, generated_at
		FROM signals`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY generated_at, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	} else if filter.Offset > 0 {
		query += " LIMIT -1 OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	var out []SignalRecord
	for rows.Next() {
		var (
			rec      SignalRecord
			action   string
			duration sql.NullFloat64
			ts       int64
		)
		if err := rows.Scan(&rec.RunID, &rec.Symbol, &action, &rec.PercentChange, &rec.LastClose,
			&rec.TargetPrice, &duration, &ts); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		rec.Action = core.Action(action)
		rec.Duration = math.Inf(1)
		if duration.Valid {
			rec.Duration = duration.Float64
		}
		rec.GeneratedAt = time.Unix(ts, 0).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLite) Close() error {
	r.logger.Info("closing sqlite recorder")
	return r.db.Close()
}

func (r *SQLite) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// finite stores the unreachable duration sentinel as NULL.
func finite(v float64) sql.NullFloat64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
