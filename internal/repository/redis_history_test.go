package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalPull/internal/domain/models"
	domainrepo "SignalPull/internal/domain/repository"
	"SignalPull/pkg/cache"
)

func newStore(t *testing.T, historyLimit, signalsLimit int64) (*HistoryStore, *cache.MemoryCache) {
	t.Helper()
	mc := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mc.Close() })
	return NewHistoryStore(mc, historyLimit, signalsLimit), mc
}

func snapshot(oi string, ts int64) *models.Snapshot {
	return &models.Snapshot{
		Ticker:       map[string]interface{}{"symbol": "BTCUSDT"},
		OpenInterest: map[string]interface{}{"openInterest": oi},
		Ts:           ts,
	}
}

func TestHistoryStore_LatestSnapshot(t *testing.T) {
	ctx := context.Background()
	h, _ := newStore(t, 2, 10)

	_, err := h.LatestSnapshot(ctx, "BTCUSDT")
	assert.ErrorIs(t, err, domainrepo.ErrNoHistory)

	require.NoError(t, h.PushSnapshot(ctx, "BTCUSDT", snapshot("1000.0", 1)))
	require.NoError(t, h.PushSnapshot(ctx, "BTCUSDT", snapshot("1100.0", 2)))
	require.NoError(t, h.PushSnapshot(ctx, "BTCUSDT", snapshot("1200.0", 3)))

	got, err := h.LatestSnapshot(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Ts)
	assert.InDelta(t, 1200.0, got.OIMetric(), 1e-9)
}

func TestHistoryStore_Signals(t *testing.T) {
	ctx := context.Background()
	h, mc := newStore(t, 10, 3)

	for i, sym := range []string{"BTCUSDT", "ETHUSDT", "SOLUSDT", "BTCUSDT"} {
		r := &models.Record{
			Candidate: models.Candidate{Symbol: sym, Side: models.SideHold},
			Ts:        int64(i + 1),
		}
		require.NoError(t, h.PushSignal(ctx, r))
	}

	all, err := mc.LRange(ctx, SignalsKey, 0, -1)
	require.NoError(t, err)
	assert.Len(t, all, 3, "trimmed to signals limit")

	recent, err := h.RecentSignals(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Contains(t, recent[0], `"ts":4`)
	assert.Contains(t, recent[1], `"ts":3`)

	last, err := h.LatestSignal(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, int64(4), last.Ts)

	_, err = h.LatestSignal(ctx, "XRPUSDT")
	assert.ErrorIs(t, err, domainrepo.ErrNoHistory)
}
