// Package database persists closed trades in PostgreSQL.
package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/Alias1177/Fusion/models"
)

// DB represents a database connection
type DB struct {
	*sql.DB
}

// ConnectionParams holds PostgreSQL connection parameters
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// New creates a new database connection and ensures the schema exists.
func New(params ConnectionParams) (*DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		params.Host, params.Port, params.User, params.Password, params.DBName, params.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Check connection
	if err := db.Ping(); err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// createTables creates the necessary tables if they don't exist
func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS trade_closes (
			trade_id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			timeframe TEXT NOT NULL,
			strategy TEXT NOT NULL,
			return_pct DOUBLE PRECISION NOT NULL,
			pnl DOUBLE PRECISION NOT NULL,
			closed_at TIMESTAMP NOT NULL
		)
	`)
	return err
}

// RecordTradeClose stores one closed trade. Re-delivery of the same
// trade id is a no-op.
func (db *DB) RecordTradeClose(ctx context.Context, tc models.TradeClose) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO trade_closes (
			trade_id, symbol, timeframe, strategy, return_pct, pnl, closed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (trade_id) DO NOTHING
	`,
		tc.TradeID, tc.Symbol, tc.Timeframe.String(), tc.Strategy, tc.Return, tc.PnL, tc.ClosedAt)

	return err
}

// ListTradeCloses returns the stored trades for symbol, oldest first.
func (db *DB) ListTradeCloses(ctx context.Context, symbol string) ([]models.TradeClose, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT trade_id, symbol, timeframe, strategy, return_pct, pnl, closed_at
		FROM trade_closes
		WHERE symbol = $1
		ORDER BY closed_at
	`, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TradeClose
	for rows.Next() {
		var tc models.TradeClose
		var tfName string
		if err := rows.Scan(&tc.TradeID, &tc.Symbol, &tfName, &tc.Strategy, &tc.Return, &tc.PnL, &tc.ClosedAt); err != nil {
			return nil, err
		}
		tf, err := models.ParseTimeframe(tfName)
		if err != nil {
			return nil, fmt.Errorf("row %s: %w", tc.TradeID, err)
		}
		tc.Timeframe = tf
		out = append(out, tc)
	}
	return out, rows.Err()
}
