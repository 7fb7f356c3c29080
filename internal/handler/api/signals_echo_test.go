package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalPull/internal/domain/models"
	"SignalPull/internal/repository"
	"SignalPull/internal/usecase"
	"SignalPull/pkg/cache"
	"SignalPull/pkg/logger"
)

type brokenHistory struct{}

func (brokenHistory) PushSnapshot(context.Context, string, *models.Snapshot) error { return nil }
func (brokenHistory) LatestSnapshot(context.Context, string) (*models.Snapshot, error) {
	return nil, errors.New("connection refused")
}
func (brokenHistory) PushSignal(context.Context, *models.Record) error { return nil }
func (brokenHistory) RecentSignals(context.Context, int) ([]string, error) {
	return nil, errors.New("connection refused")
}
func (brokenHistory) LatestSignal(context.Context, string) (*models.Record, error) {
	return nil, errors.New("connection refused")
}

type apiFixture struct {
	echo      *echo.Echo
	mem       *cache.MemoryCache
	history   *repository.HistoryStore
	baselines *usecase.BaselineTracker
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	mem := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mem.Close() })

	history := repository.NewHistoryStore(mem, 100, 100)
	baselines := usecase.NewBaselineTracker()
	h := NewSignalsEchoHandler(logger.Nop(), usecase.NewSignalsQuery(history), baselines)

	e := echo.New()
	h.RegisterRoutes(e)
	return &apiFixture{echo: e, mem: mem, history: history, baselines: baselines}
}

func (f *apiFixture) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) pushRecords(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, f.history.PushSignal(context.Background(), &models.Record{
			Candidate: models.Candidate{Symbol: "BTCUSDT", Side: models.SideBuy, Confidence: 10 * (i + 1), Reasoning: "oi up"},
			Ts:        int64(1700000000 + i),
		}))
	}
}

type signalsBody struct {
	Count   int               `json:"count"`
	Signals []json.RawMessage `json:"signals"`
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.get(t, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestSignals_LimitWithCorruptedEntry(t *testing.T) {
	f := newAPIFixture(t)
	f.pushRecords(t, 5)
	require.NoError(t, f.mem.LPush(context.Background(), repository.SignalsKey, "{not json"))

	rec := f.get(t, "/signals?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var body signalsBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	require.Len(t, body.Signals, 2)
	assert.JSONEq(t, `{"raw":"{not json"}`, string(body.Signals[0]))

	var newest models.Record
	require.NoError(t, json.Unmarshal(body.Signals[1], &newest))
	assert.Equal(t, 50, newest.Confidence)
	assert.Equal(t, int64(1700000004), newest.Ts)
}

func TestSignals_DefaultLimit(t *testing.T) {
	f := newAPIFixture(t)
	f.pushRecords(t, 60)

	rec := f.get(t, "/signals")
	require.Equal(t, http.StatusOK, rec.Code)

	var body signalsBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 50, body.Count)
	assert.Len(t, body.Signals, 50)
}

func TestSignals_EmptyStore(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.get(t, "/signals?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":0,"signals":[]}`, rec.Body.String())
}

func TestSignals_InvalidLimit(t *testing.T) {
	f := newAPIFixture(t)

	for _, target := range []string{"/signals?limit=abc", "/signals?limit=5000", "/signals?limit=-1"} {
		rec := f.get(t, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}

	rec := f.get(t, "/signals?limit=5000")
	assert.Contains(t, rec.Body.String(), `"field":"limit"`)
	assert.Contains(t, rec.Body.String(), `"code":"ERR_LTE"`)
}

func TestSignals_StoreError(t *testing.T) {
	h := NewSignalsEchoHandler(logger.Nop(), usecase.NewSignalsQuery(brokenHistory{}), usecase.NewBaselineTracker())
	e := echo.New()
	h.RegisterRoutes(e)

	req := httptest.NewRequest(http.MethodGet, "/signals", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestLatestSignal(t *testing.T) {
	f := newAPIFixture(t)
	f.pushRecords(t, 2)

	rec := f.get(t, "/signals/btcusdt/latest")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status int           `json:"status"`
		Data   models.Record `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusOK, body.Status)
	assert.Equal(t, "BTCUSDT", body.Data.Symbol)
	assert.Equal(t, 20, body.Data.Confidence)

	rec = f.get(t, "/signals/ETHUSDT/latest")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_NOT_FOUND")
}

func TestBaselines(t *testing.T) {
	f := newAPIFixture(t)
	f.baselines.Set("ETHUSDT", 2000)
	f.baselines.Set("BTCUSDT", 1000)

	rec := f.get(t, "/baselines")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			Rows  []usecase.BaselineEntry `json:"rows"`
			Total int64                   `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(2), body.Data.Total)
	assert.Equal(t, []usecase.BaselineEntry{
		{Symbol: "BTCUSDT", OI: 1000},
		{Symbol: "ETHUSDT", OI: 2000},
	}, body.Data.Rows)
}
