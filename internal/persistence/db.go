// Package persistence provides SQLite-based storage for run metadata
// and the per-step time series, for offline analysis and charting.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"freightsim/internal/engine"
)

// DB wraps a SQLite connection for experiment storage.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scenario TEXT NOT NULL,
		seed INTEGER NOT NULL,
		steps INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		summary_json TEXT
	);

	CREATE TABLE IF NOT EXISTS steps (
		run_id INTEGER NOT NULL,
		step INTEGER NOT NULL,
		active_loads INTEGER NOT NULL,
		completed_loads INTEGER NOT NULL,
		expired_loads INTEGER NOT NULL,
		coverage_rate REAL NOT NULL,
		total_revenue REAL NOT NULL,
		total_cost REAL NOT NULL,
		total_penalties REAL NOT NULL,
		profit REAL NOT NULL,
		available_carriers INTEGER NOT NULL,
		consecutive_failures INTEGER NOT NULL,
		avg_carrier_revenue REAL NOT NULL,
		PRIMARY KEY (run_id, step)
	);

	CREATE INDEX IF NOT EXISTS idx_steps_run ON steps(run_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// CreateRun inserts a new run row and returns its id.
func (db *DB) CreateRun(scenario string, seed int64, steps int) (int64, error) {
	if scenario == "" {
		scenario = "baseline"
	}
	res, err := db.conn.Exec(
		"INSERT INTO runs (scenario, seed, steps, started_at) VALUES (?, ?, ?, ?)",
		scenario, seed, steps, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	return res.LastInsertId()
}

// FinishRun stamps the run completed and stores its final summary.
func (db *DB) FinishRun(runID int64, summary any) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	_, err = db.conn.Exec(
		"UPDATE runs SET finished_at = ?, summary_json = ? WHERE id = ?",
		time.Now().UTC().Format(time.RFC3339), string(data), runID,
	)
	return err
}

// SaveSeries writes the per-step time series for a run in one
// transaction.
func (db *DB) SaveSeries(runID int64, series []engine.StepRecord) error {
	if len(series) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT INTO steps
		(run_id, step, active_loads, completed_loads, expired_loads,
		 coverage_rate, total_revenue, total_cost, total_penalties, profit,
		 available_carriers, consecutive_failures, avg_carrier_revenue)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range series {
		_, err := stmt.Exec(
			runID, rec.Step, rec.ActiveLoads, rec.CompletedLoads, rec.ExpiredLoads,
			rec.CoverageRate, rec.TotalRevenue, rec.TotalCost, rec.TotalPenalties,
			rec.Profit, rec.AvailableCarriers, rec.ConsecutiveFailures,
			rec.AvgCarrierRevenue,
		)
		if err != nil {
			return fmt.Errorf("insert step %d: %w", rec.Step, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	slog.Info("time series saved", "run", runID, "rows", len(series))
	return nil
}

// Steps returns the stored time series for a run, in step order.
func (db *DB) Steps(runID int64) ([]engine.StepRecord, error) {
	var out []engine.StepRecord
	err := db.conn.Select(&out, `SELECT
		step, active_loads, completed_loads, expired_loads, coverage_rate,
		total_revenue, total_cost, total_penalties, profit,
		available_carriers, consecutive_failures, avg_carrier_revenue
		FROM steps WHERE run_id = ? ORDER BY step`, runID)
	return out, err
}
