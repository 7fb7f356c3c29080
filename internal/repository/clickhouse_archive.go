package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"SignalPull/internal/domain/models"
	"SignalPull/internal/domain/repository"
)

// ClickHouseArchive appends every snapshot to a MergeTree table for offline
// analysis.
type ClickHouseArchive struct {
	db    *sql.DB
	table string
}

func NewClickHouseArchive(db *sql.DB, table string) *ClickHouseArchive {
	return &ClickHouseArchive{db: db, table: table}
}

var _ repository.SnapshotArchive = (*ClickHouseArchive)(nil)

// Schema returns the DDL for the archive table.
func (a *ClickHouseArchive) Schema() []string {
	return []string{fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	ts DateTime,
	symbol LowCardinality(String),
	open_interest Float64,
	last_price Float64,
	price_change_pct Float64,
	ticker String,
	open_interest_raw String
) ENGINE = MergeTree
ORDER BY (symbol, ts)`, a.table)}
}

func (a *ClickHouseArchive) Archive(ctx context.Context, symbol string, s *models.Snapshot) error {
	ticker, err := json.Marshal(s.Ticker)
	if err != nil {
		return fmt.Errorf("encode ticker: %w", err)
	}
	oi, err := json.Marshal(s.OpenInterest)
	if err != nil {
		return fmt.Errorf("encode open interest: %w", err)
	}

	q := fmt.Sprintf("INSERT INTO %s (ts, symbol, open_interest, last_price, price_change_pct, ticker, open_interest_raw) VALUES (?, ?, ?, ?, ?, ?, ?)", a.table)
	_, err = a.db.ExecContext(ctx, q,
		time.Unix(s.Ts, 0).UTC(),
		symbol,
		s.OIMetric(),
		s.LastPrice(),
		s.PriceChangePct(),
		string(ticker),
		string(oi),
	)
	if err != nil {
		return fmt.Errorf("archive %s: %w", symbol, err)
	}
	return nil
}

// Close is a no-op; the pool belongs to the clickhouse client.
func (a *ClickHouseArchive) Close() error {
	return nil
}
