package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalPull/internal/domain/models"
	"SignalPull/internal/repository"
	"SignalPull/internal/usecase"
	"SignalPull/pkg/cache"
	xhttp "SignalPull/pkg/http"
	"SignalPull/pkg/logger"
	"SignalPull/pkg/metrics"
)

type downMarket struct{}

func (downMarket) FetchAll(context.Context, []string) ([]models.FetchResult, error) {
	return nil, errors.New("exchange down")
}

type closeRecorder struct {
	name  string
	order *[]string
}

func (c closeRecorder) Close() error {
	*c.order = append(*c.order, c.name)
	return nil
}

func TestApp_RunContextStopsAndClosesInReverseOrder(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()

	runner := usecase.NewCycleRunner(
		usecase.CycleConfig{Instruments: []string{"BTCUSDT"}, Interval: time.Hour, RetryDelay: time.Hour},
		downMarket{}, repository.NewHistoryStore(mc, 10, 10), nil, nil, nil,
		usecase.NewBaselineTracker(), metrics.Noop{}, logger.Nop(),
	)
	srv := xhttp.NewServer(nil, logger.Nop(), xhttp.WithHost("127.0.0.1"), xhttp.WithPort(0))

	var order []string
	app := New(logger.Nop(), runner, srv)
	app.OnShutdown("cache", closeRecorder{name: "cache", order: &order})
	app.OnShutdown("kafka", nil)
	app.OnShutdown("clickhouse", closeRecorder{name: "clickhouse", order: &order})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- app.RunContext(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.Equal(t, []string{"clickhouse", "cache"}, order)
}
