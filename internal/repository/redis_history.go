package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"SignalPull/internal/domain/models"
	"SignalPull/internal/domain/repository"
	"SignalPull/pkg/cache"
)

const (
	// SignalsKey is the newest-first list of decision records.
	SignalsKey = "signals:all"

	snapshotsKeyPrefix  = "snapshots:"
	lastSignalKeyPrefix = "signal:last:"
)

// HistoryStore implements repository.HistorySink on top of cache lists.
type HistoryStore struct {
	cache        cache.Service
	historyLimit int64
	signalsLimit int64
}

// NewHistoryStore keeps at most historyLimit snapshots per instrument and
// signalsLimit decision records. Zero disables trimming.
func NewHistoryStore(c cache.Service, historyLimit, signalsLimit int64) *HistoryStore {
	return &HistoryStore{cache: c, historyLimit: historyLimit, signalsLimit: signalsLimit}
}

var _ repository.HistorySink = (*HistoryStore)(nil)

func snapshotsKey(symbol string) string { return snapshotsKeyPrefix + symbol }

func (h *HistoryStore) PushSnapshot(ctx context.Context, symbol string, s *models.Snapshot) error {
	if s == nil {
		return fmt.Errorf("push snapshot %s: nil snapshot", symbol)
	}
	key := snapshotsKey(symbol)
	if err := h.cache.LPush(ctx, key, s); err != nil {
		return fmt.Errorf("push snapshot %s: %w", symbol, err)
	}
	return h.trim(ctx, key, h.historyLimit)
}

func (h *HistoryStore) LatestSnapshot(ctx context.Context, symbol string) (*models.Snapshot, error) {
	raw, err := h.cache.LIndex(ctx, snapshotsKey(symbol), 0)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, repository.ErrNoHistory
		}
		return nil, fmt.Errorf("latest snapshot %s: %w", symbol, err)
	}
	var s models.Snapshot
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", symbol, err)
	}
	return &s, nil
}

func (h *HistoryStore) PushSignal(ctx context.Context, r *models.Record) error {
	if err := h.cache.LPush(ctx, SignalsKey, r); err != nil {
		return fmt.Errorf("push signal %s: %w", r.Symbol, err)
	}
	if err := h.cache.Set(ctx, lastSignalKeyPrefix+r.Symbol, r, 0); err != nil {
		return fmt.Errorf("set last signal %s: %w", r.Symbol, err)
	}
	return h.trim(ctx, SignalsKey, h.signalsLimit)
}

func (h *HistoryStore) RecentSignals(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		return []string{}, nil
	}
	items, err := h.cache.LRange(ctx, SignalsKey, 0, int64(limit-1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", SignalsKey, err)
	}
	return items, nil
}

func (h *HistoryStore) LatestSignal(ctx context.Context, symbol string) (*models.Record, error) {
	r, err := cache.GetTyped[models.Record](ctx, h.cache, lastSignalKeyPrefix+symbol)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, repository.ErrNoHistory
		}
		return nil, fmt.Errorf("last signal %s: %w", symbol, err)
	}
	return &r, nil
}

func (h *HistoryStore) trim(ctx context.Context, key string, limit int64) error {
	if limit <= 0 {
		return nil
	}
	if err := h.cache.LTrim(ctx, key, 0, limit-1); err != nil {
		return fmt.Errorf("trim %s: %w", key, err)
	}
	return nil
}
