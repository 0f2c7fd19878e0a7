package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/yourorg/stock-forecast/internal/model"
)

// OpenSQLite opens (or creates) the monitoring database
func OpenSQLite(path string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", path+"?_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection keeps in-memory databases and WAL writes consistent
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	return db, nil
}

// PredictionLogRepository handles database operations for monitored predictions
type PredictionLogRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewPredictionLogRepository creates a new prediction log repository and runs migrations
func NewPredictionLogRepository(db *sqlx.DB, logger *zap.Logger) (*PredictionLogRepository, error) {
	r := &PredictionLogRepository{
		db:     db,
		logger: logger,
	}
	if err := r.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return r, nil
}

func (r *PredictionLogRepository) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS prediction_logs (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    DATETIME NOT NULL,
			ticker       TEXT NOT NULL,
			prediction   REAL NOT NULL,
			actual_value REAL,
			latency      REAL NOT NULL,
			memory_usage INTEGER NOT NULL,
			cpu_usage    REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_prediction_logs_ts ON prediction_logs(timestamp)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Insert stores one prediction log and returns its id
func (r *PredictionLogRepository) Insert(ctx context.Context, log *model.PredictionLog) (int64, error) {
	query := `
		INSERT INTO prediction_logs (
			timestamp, ticker, prediction, actual_value, latency, memory_usage, cpu_usage
		)
		VALUES (:timestamp, :ticker, :prediction, :actual_value, :latency, :memory_usage, :cpu_usage)
	`

	log.Timestamp = log.Timestamp.UTC()
	res, err := r.db.NamedExecContext(ctx, query, log)
	if err != nil {
		r.logger.Error("Failed to insert prediction log", zap.Error(err))
		return 0, err
	}
	return res.LastInsertId()
}

// UpdateActualValue records the realised price of a logged prediction
func (r *PredictionLogRepository) UpdateActualValue(ctx context.Context, id int64, actual float64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE prediction_logs SET actual_value = ? WHERE id = ?`, actual, id)
	if err != nil {
		r.logger.Error("Failed to update actual value", zap.Int64("id", id), zap.Error(err))
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("prediction log %d not found", id)
	}
	return nil
}

// LatestPending returns the id of the newest log of ticker without an actual value
func (r *PredictionLogRepository) LatestPending(ctx context.Context, ticker string) (int64, error) {
	query := `
		SELECT id
		FROM prediction_logs
		WHERE ticker = ? AND actual_value IS NULL
		ORDER BY timestamp DESC, id DESC
		LIMIT 1
	`

	var id int64
	if err := r.db.GetContext(ctx, &id, query, ticker); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, model.ErrNoPendingPrediction
		}
		r.logger.Error("Failed to find pending prediction log", zap.String("ticker", ticker), zap.Error(err))
		return 0, err
	}
	return id, nil
}

// List returns logs newer than since, oldest first
func (r *PredictionLogRepository) List(ctx context.Context, since time.Time) ([]model.PredictionLog, error) {
	query := `
		SELECT id, timestamp, ticker, prediction, actual_value, latency, memory_usage, cpu_usage
		FROM prediction_logs
		WHERE timestamp >= ?
		ORDER BY timestamp, id
	`

	var logs []model.PredictionLog
	if err := r.db.SelectContext(ctx, &logs, query, since.UTC()); err != nil {
		r.logger.Error("Failed to list prediction logs", zap.Error(err))
		return nil, err
	}
	return logs, nil
}

// Summary aggregates the log. MSE and RMSE are only set when actual values were recorded.
func (r *PredictionLogRepository) Summary(ctx context.Context) (*model.PerformanceMetrics, error) {
	query := `
		SELECT
			COALESCE(AVG(latency), 0.0)      AS avg_latency,
			COALESCE(MAX(latency), 0.0)      AS max_latency,
			COALESCE(AVG(memory_usage), 0.0) AS avg_memory_usage,
			COALESCE(AVG(cpu_usage), 0.0)    AS avg_cpu_usage,
			COUNT(*)                       AS total_predictions
		FROM prediction_logs
	`

	var m model.PerformanceMetrics
	if err := r.db.GetContext(ctx, &m, query); err != nil {
		r.logger.Error("Failed to summarise prediction logs", zap.Error(err))
		return nil, err
	}

	var errStats struct {
		Count int     `db:"n"`
		MSE   float64 `db:"mse"`
	}
	errQuery := `
		SELECT
			COUNT(*) AS n,
			COALESCE(AVG((prediction - actual_value) * (prediction - actual_value)), 0.0) AS mse
		FROM prediction_logs
		WHERE actual_value IS NOT NULL
	`
	if err := r.db.GetContext(ctx, &errStats, errQuery); err != nil {
		r.logger.Error("Failed to compute prediction error", zap.Error(err))
		return nil, err
	}
	if errStats.Count > 0 {
		mse := errStats.MSE
		rmse := math.Sqrt(mse)
		m.MSE = &mse
		m.RMSE = &rmse
	}

	m.Timestamp = time.Now()
	return &m, nil
}
