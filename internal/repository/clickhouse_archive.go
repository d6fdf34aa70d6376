package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"StockPulse/internal/domain/models"
)

// Execer is satisfied by *sql.DB.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// ClickHouseArchive implements ObservationArchive. It writes one row per tick and
// never reads.
type ClickHouseArchive struct {
	db      Execer
	table   string
	timeout time.Duration
}

// NewClickHouseArchive creates an archive writing to database.observations.
func NewClickHouseArchive(db Execer, database string, timeout time.Duration) *ClickHouseArchive {
	return &ClickHouseArchive{db: db, table: database + ".observations", timeout: timeout}
}

// SchemaStatements returns the DDL for the archive in database.
func SchemaStatements(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.observations (
    session_id String,
    symbol LowCardinality(String),
    idx UInt32,
    price Float64,
    forecast Float64,
    trend LowCardinality(String),
    ts DateTime64(3)
) ENGINE = MergeTree ORDER BY (symbol, ts, idx)`, database),
	}
}

func (a *ClickHouseArchive) Record(ctx context.Context, rec models.ArchiveRecord) error {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	q := fmt.Sprintf("INSERT INTO %s (session_id, symbol, idx, price, forecast, trend, ts) VALUES (?, ?, ?, ?, ?, ?, ?)", a.table)
	if _, err := a.db.ExecContext(ctx, q,
		rec.SessionID,
		rec.Symbol,
		uint32(rec.Index),
		rec.Price,
		rec.Forecast,
		string(rec.Trend),
		rec.At.UTC(),
	); err != nil {
		return fmt.Errorf("archive insert: %w", err)
	}
	return nil
}

// Close is a no-op; the connection pool belongs to the ClickHouse client.
func (a *ClickHouseArchive) Close() error {
	return nil
}
