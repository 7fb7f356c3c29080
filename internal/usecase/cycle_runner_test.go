package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalPull/internal/domain/models"
	dsvc "SignalPull/internal/domain/service"
	"SignalPull/internal/repository"
	"SignalPull/pkg/cache"
	"SignalPull/pkg/logger"
	"SignalPull/pkg/metrics"
)

type fakeMarket struct {
	mu     sync.Mutex
	oi     map[string]string
	failOn map[string]bool
	err    error
	calls  int
}

func (f *fakeMarket) FetchAll(_ context.Context, symbols []string) ([]models.FetchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.FetchResult, 0, len(symbols))
	for _, s := range symbols {
		if f.failOn[s] {
			out = append(out, models.FetchResult{Symbol: s, Err: errors.New("timeout")})
			continue
		}
		out = append(out, models.FetchResult{Symbol: s, Snapshot: &models.Snapshot{
			Ticker:       map[string]interface{}{"priceChangePercent": "1.0"},
			OpenInterest: map[string]interface{}{"openInterest": f.oi[s]},
			Ts:           1700000000,
		}})
	}
	return out, nil
}

type evalCall struct {
	symbol   string
	baseline float64
	defined  bool
}

// recordingEvaluator captures the baseline it is called with and whether the
// tracker already held it at call time.
type recordingEvaluator struct {
	tracker *BaselineTracker
	calls   []evalCall
	side    models.Side
}

func (e *recordingEvaluator) Evaluate(symbol string, snap *models.Snapshot, baseline float64) (models.Candidate, models.Aggregates) {
	_, ok := e.tracker.Get(symbol)
	e.calls = append(e.calls, evalCall{symbol: symbol, baseline: baseline, defined: ok})
	side := e.side
	if side == "" {
		side = models.SideBuy
	}
	return models.Candidate{Symbol: symbol, Side: side, Confidence: 80, Reasoning: "test"},
		models.Aggregates{RecentBaselineOI: baseline, CurrentOI: snap.OIMetric()}
}

type passConfirmer struct {
	panicOn string
}

func (p passConfirmer) Confirm(_ context.Context, c models.Candidate, _ models.Aggregates) dsvc.Confirmation {
	if c.Symbol == p.panicOn {
		panic("boom")
	}
	return dsvc.Confirmation{Result: c}
}

type countingDispatcher struct {
	sent []string
}

func (d *countingDispatcher) Dispatch(_ context.Context, c models.Candidate, _ int64) dsvc.Delivery {
	d.sent = append(d.sent, c.Symbol)
	return dsvc.Delivery{Sent: true, Attempts: 1}
}

type fixture struct {
	runner     *CycleRunner
	market     *fakeMarket
	evaluator  *recordingEvaluator
	dispatcher *countingDispatcher
	history    *repository.HistoryStore
	baselines  *BaselineTracker
}

func newFixture(t *testing.T, instruments []string, confirmer dsvc.Confirmer) *fixture {
	t.Helper()
	mc := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mc.Close() })

	history := repository.NewHistoryStore(mc, 100, 100)
	baselines := NewBaselineTracker()
	market := &fakeMarket{oi: map[string]string{}, failOn: map[string]bool{}}
	evaluator := &recordingEvaluator{tracker: baselines}
	dispatcher := &countingDispatcher{}
	if confirmer == nil {
		confirmer = passConfirmer{}
	}
	handler := NewSignalHandler(confirmer, dispatcher, history, nil, metrics.Noop{}, logger.Nop(), 0)

	runner := NewCycleRunner(
		CycleConfig{Instruments: instruments, Interval: time.Hour, RetryDelay: 5 * time.Second},
		market, history, nil, evaluator, handler, baselines, metrics.Noop{}, logger.Nop(),
	)
	return &fixture{
		runner:     runner,
		market:     market,
		evaluator:  evaluator,
		dispatcher: dispatcher,
		history:    history,
		baselines:  baselines,
	}
}

func TestRunCycle_ColdStartSeedsFromCurrentMetric(t *testing.T) {
	f := newFixture(t, []string{"BTCUSDT"}, nil)
	f.market.oi["BTCUSDT"] = "1000.0"

	require.NoError(t, f.runner.RunCycle(context.Background()))

	require.Len(t, f.evaluator.calls, 1)
	assert.True(t, f.evaluator.calls[0].defined, "baseline must exist before evaluate")
	assert.Equal(t, 1000.0, f.evaluator.calls[0].baseline)

	v, ok := f.baselines.Get("BTCUSDT")
	require.True(t, ok)
	assert.Equal(t, 1000.0, v)

	snap, err := f.history.LatestSnapshot(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, snap.OIMetric())
}

func TestRunCycle_WarmStartSeedsFromLatestPersistedSnapshot(t *testing.T) {
	f := newFixture(t, []string{"BTCUSDT"}, nil)
	require.NoError(t, f.history.PushSnapshot(context.Background(), "BTCUSDT", &models.Snapshot{
		OpenInterest: map[string]interface{}{"openInterest": "500"},
	}))
	f.market.oi["BTCUSDT"] = "1000"

	require.NoError(t, f.runner.RunCycle(context.Background()))
	require.Len(t, f.evaluator.calls, 1)
	assert.Equal(t, 1000.0, f.evaluator.calls[0].baseline, "seed is read after this cycle's snapshot is stored")

	v, _ := f.baselines.Get("BTCUSDT")
	assert.Equal(t, 1000.0, v)
}

// dropSnapshots fails every snapshot write and serves reads from the store.
type dropSnapshots struct {
	*repository.HistoryStore
}

func (dropSnapshots) PushSnapshot(context.Context, string, *models.Snapshot) error {
	return errors.New("redis unavailable")
}

func TestRunCycle_SeedFallsBackToStoredSnapshotWhenPushFails(t *testing.T) {
	f := newFixture(t, []string{"BTCUSDT"}, nil)
	require.NoError(t, f.history.PushSnapshot(context.Background(), "BTCUSDT", &models.Snapshot{
		OpenInterest: map[string]interface{}{"openInterest": "500"},
	}))
	f.market.oi["BTCUSDT"] = "1000"

	handler := NewSignalHandler(passConfirmer{}, f.dispatcher, f.history, nil, metrics.Noop{}, logger.Nop(), 0)
	runner := NewCycleRunner(
		CycleConfig{Instruments: []string{"BTCUSDT"}, Interval: time.Hour, RetryDelay: 5 * time.Second},
		f.market, dropSnapshots{f.history}, nil, f.evaluator, handler, f.baselines, metrics.Noop{}, logger.Nop(),
	)

	require.NoError(t, runner.RunCycle(context.Background()))
	require.Len(t, f.evaluator.calls, 1)
	assert.Equal(t, 500.0, f.evaluator.calls[0].baseline)
	assert.Equal(t, []string{"BTCUSDT"}, f.dispatcher.sent)
}

func TestRunCycle_BaselineReplacedEachCycle(t *testing.T) {
	f := newFixture(t, []string{"BTCUSDT"}, nil)

	for _, oi := range []string{"1000", "1200", "1100", "garbage"} {
		f.market.oi["BTCUSDT"] = oi
		require.NoError(t, f.runner.RunCycle(context.Background()))
	}

	baselines := make([]float64, 0, len(f.evaluator.calls))
	for _, c := range f.evaluator.calls {
		assert.True(t, c.defined)
		baselines = append(baselines, c.baseline)
	}
	assert.Equal(t, []float64{1000, 1000, 1200, 1100}, baselines)

	v, _ := f.baselines.Get("BTCUSDT")
	assert.Equal(t, 0.0, v, "unparseable metric coerces to zero and still replaces")
}

func TestRunCycle_FetchErrorIsolated(t *testing.T) {
	f := newFixture(t, []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}, nil)
	f.market.oi = map[string]string{"BTCUSDT": "1000", "SOLUSDT": "50"}
	f.market.failOn["ETHUSDT"] = true

	require.NoError(t, f.runner.RunCycle(context.Background()))

	assert.Equal(t, []string{"BTCUSDT", "SOLUSDT"}, f.dispatcher.sent)
	_, ok := f.baselines.Get("ETHUSDT")
	assert.False(t, ok)

	stored, err := f.history.RecentSignals(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestRunCycle_PanicInOneInstrumentIsContained(t *testing.T) {
	f := newFixture(t, []string{"BTCUSDT", "ETHUSDT"}, passConfirmer{panicOn: "BTCUSDT"})
	f.market.oi = map[string]string{"BTCUSDT": "1000", "ETHUSDT": "2000"}

	require.NoError(t, f.runner.RunCycle(context.Background()))

	assert.Equal(t, []string{"ETHUSDT"}, f.dispatcher.sent)
	v, ok := f.baselines.Get("BTCUSDT")
	assert.True(t, ok)
	assert.Equal(t, 1000.0, v, "baseline update happens before confirmation")
}

func TestProcessInstrument_PanicKeepsEvaluatedCandidate(t *testing.T) {
	f := newFixture(t, []string{"BTCUSDT"}, passConfirmer{panicOn: "BTCUSDT"})
	f.market.oi["BTCUSDT"] = "1000"
	snap := &models.Snapshot{OpenInterest: map[string]interface{}{"openInterest": "1000"}, Ts: 1700000000}

	rec, err := f.runner.processInstrument(context.Background(), "BTCUSDT", snap)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, "BTCUSDT", rec.Symbol)
	assert.Equal(t, models.SideBuy, rec.Side)
	assert.Equal(t, int64(1700000000), rec.Ts)
	assert.Equal(t, 1000.0, rec.CurrentOI)
	assert.False(t, rec.Sent)
}

func TestRunCycle_HoldIsNotDispatched(t *testing.T) {
	f := newFixture(t, []string{"BTCUSDT"}, nil)
	f.evaluator.side = models.SideHold
	f.market.oi["BTCUSDT"] = "1000"

	require.NoError(t, f.runner.RunCycle(context.Background()))
	assert.Empty(t, f.dispatcher.sent)

	stored, err := f.history.RecentSignals(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Contains(t, stored[0], `"sent":false`)
}

func TestRun_RetriesAfterFailureAndStopsOnCancel(t *testing.T) {
	f := newFixture(t, []string{"BTCUSDT"}, nil)
	f.market.err = errors.New("exchange down")

	ctx, cancel := context.WithCancel(context.Background())
	var waits []time.Duration
	f.runner.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		if len(waits) == 1 {
			f.market.mu.Lock()
			f.market.err = nil
			f.market.oi["BTCUSDT"] = "1000"
			f.market.mu.Unlock()
			return nil
		}
		cancel()
		return context.Canceled
	}

	err := f.runner.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []time.Duration{5 * time.Second, time.Hour}, waits)
	assert.Equal(t, 2, f.market.calls)
	assert.Equal(t, []string{"BTCUSDT"}, f.dispatcher.sent)
}
