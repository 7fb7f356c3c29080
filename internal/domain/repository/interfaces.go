package repository

import (
	"context"
	"errors"

	"SignalPull/internal/domain/models"
)

// ErrNoHistory is returned when an instrument has no stored snapshot yet.
var ErrNoHistory = errors.New("history: no snapshot stored")

// MarketData fetches the current snapshot of every instrument in one batch.
// A failure for one instrument is reported in its FetchResult; the returned
// error is reserved for failures of the whole batch.
type MarketData interface {
	FetchAll(ctx context.Context, symbols []string) ([]models.FetchResult, error)
}

// HistorySink persists snapshots and decision records.
type HistorySink interface {
	PushSnapshot(ctx context.Context, symbol string, s *models.Snapshot) error
	LatestSnapshot(ctx context.Context, symbol string) (*models.Snapshot, error)
	PushSignal(ctx context.Context, r *models.Record) error
	// RecentSignals returns up to limit raw stored entries, newest first.
	RecentSignals(ctx context.Context, limit int) ([]string, error)
	LatestSignal(ctx context.Context, symbol string) (*models.Record, error)
}

// SnapshotArchive is an append-only long-term store for snapshots.
type SnapshotArchive interface {
	Archive(ctx context.Context, symbol string, s *models.Snapshot) error
	Close() error
}

// SignalPublisher fans decision records out to downstream consumers.
type SignalPublisher interface {
	Publish(ctx context.Context, r *models.Record) error
	Close() error
}

type Metrics interface {
	RecordCycle(seconds float64, failed bool)
	RecordFetchError(symbol string)
	RecordOpenInterest(symbol string, oi float64)
	RecordSignal(symbol, side string)
	RecordConfirmation(degraded bool, reason string)
	RecordAlert(sent bool, attempts int)
	RecordLatency(op string, seconds float64)
	RecordError(kind string)
}
