package alert

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"SignalPull/internal/domain/models"
	"SignalPull/pkg/logger"
)

var result = models.Candidate{Symbol: "BTCUSDT", Side: models.SideBuy, Confidence: 80, Reasoning: "OI up"}

type sleepRecorder struct {
	calls []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) {
	s.calls = append(s.calls, d)
}

// statusSequence answers with codes in order, repeating the last one.
func statusSequence(t *testing.T, codes ...int) (*httptest.Server, *int32) {
	t.Helper()
	var n int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		i := int(atomic.AddInt32(&n, 1)) - 1
		if i >= len(codes) {
			i = len(codes) - 1
		}

		assert.Equal(t, "/bot123:abc/sendMessage", r.URL.Path)
		var body map[string]interface{}
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
			assert.Equal(t, "42", body["chat_id"])
			assert.Equal(t, "HTML", body["parse_mode"])
			assert.Equal(t, true, body["disable_web_page_preview"])
			assert.Contains(t, body["text"], "Signal: BTCUSDT")
		}
		w.WriteHeader(codes[i])
	}))
	return srv, &n
}

func newDispatcher(url string, rec *sleepRecorder) *TelegramDispatcher {
	return NewTelegramDispatcher(Config{
		BotToken:   "123:abc",
		ChatID:     "42",
		BaseURL:    url,
		MaxRetries: 3,
		Backoff:    2 * time.Second,
	}, logger.Nop(), WithSleep(rec.sleep))
}

func TestDispatch_MissingConfigReturnsFalseWithoutIO(t *testing.T) {
	srv, calls := statusSequence(t, http.StatusOK)
	defer srv.Close()

	for _, cfg := range []Config{
		{ChatID: "42", BaseURL: srv.URL},
		{BotToken: "123:abc", BaseURL: srv.URL},
	} {
		d := NewTelegramDispatcher(cfg, logger.Nop())
		got := d.Dispatch(t.Context(), result, 0)
		assert.False(t, got.Sent)
		assert.Zero(t, got.Attempts)
	}
	assert.Zero(t, atomic.LoadInt32(calls))
}

func TestDispatch_SucceedsFirstTry(t *testing.T) {
	srv, calls := statusSequence(t, http.StatusOK)
	defer srv.Close()
	rec := &sleepRecorder{}

	got := newDispatcher(srv.URL, rec).Dispatch(t.Context(), result, 1700000000)
	assert.True(t, got.Sent)
	assert.Equal(t, 1, got.Attempts)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
	assert.Empty(t, rec.calls)
}

func TestDispatch_RetriesThenSucceeds(t *testing.T) {
	srv, calls := statusSequence(t, http.StatusInternalServerError, http.StatusOK)
	defer srv.Close()
	rec := &sleepRecorder{}

	got := newDispatcher(srv.URL, rec).Dispatch(t.Context(), result, 0)
	assert.True(t, got.Sent)
	assert.Equal(t, 2, got.Attempts)
	assert.EqualValues(t, 2, atomic.LoadInt32(calls))
	assert.Equal(t, []time.Duration{2 * time.Second}, rec.calls)
}

func TestDispatch_ExhaustsWithLinearBackoff(t *testing.T) {
	srv, calls := statusSequence(t, http.StatusInternalServerError)
	defer srv.Close()
	rec := &sleepRecorder{}

	got := newDispatcher(srv.URL, rec).Dispatch(t.Context(), result, 0)
	assert.False(t, got.Sent)
	assert.Equal(t, 3, got.Attempts)
	assert.EqualValues(t, 3, atomic.LoadInt32(calls))
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 6 * time.Second}, rec.calls)
}

func TestDispatch_StopsRetryingOnceContextIsCancelled(t *testing.T) {
	srv, calls := statusSequence(t, http.StatusInternalServerError)
	defer srv.Close()

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	var waits []time.Duration
	d := NewTelegramDispatcher(Config{
		BotToken:   "123:abc",
		ChatID:     "42",
		BaseURL:    srv.URL,
		MaxRetries: 3,
		Backoff:    2 * time.Second,
	}, logger.Nop(), WithSleep(func(_ context.Context, w time.Duration) {
		waits = append(waits, w)
		cancel()
	}))

	got := d.Dispatch(ctx, result, 0)
	assert.False(t, got.Sent)
	assert.Equal(t, 1, got.Attempts)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
	assert.Equal(t, []time.Duration{2 * time.Second}, waits)
}

func TestDispatch_Non200SuccessCodeIsFailure(t *testing.T) {
	srv, _ := statusSequence(t, http.StatusAccepted)
	defer srv.Close()
	rec := &sleepRecorder{}

	got := newDispatcher(srv.URL, rec).Dispatch(t.Context(), result, 0)
	assert.False(t, got.Sent)
}

func TestFormatMessage(t *testing.T) {
	ts := time.Date(2024, 5, 6, 7, 8, 9, 0, time.Local).Unix()
	got := FormatMessage(models.Candidate{Symbol: "ETHUSDT", Side: models.SideSell, Confidence: 65}, ts, time.Time{})
	assert.Equal(t, "🚨 Signal: ETHUSDT\nAction: SELL  |  Confidence: 65%\nReason: -\nTime: 2024-05-06 07:08:09", got)
}
