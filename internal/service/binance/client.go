package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	gobinance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"
	"golang.org/x/time/rate"

	"SignalPull/internal/domain/models"
	"SignalPull/pkg/logger"
)

// Config configures the futures market data client.
type Config struct {
	APIKey            string
	APISecret         string
	Timeout           time.Duration
	RequestsPerMinute int
	Burst             int
	Parallel          bool
}

// futuresAPI is the slice of the exchange API the ingestor needs.
type futuresAPI interface {
	Ticker24h(ctx context.Context, symbol string) (*futures.PriceChangeStats, error)
	OpenInterest(ctx context.Context, symbol string) (*futures.OpenInterest, error)
}

type futuresClient struct {
	c *futures.Client
}

func (f futuresClient) Ticker24h(ctx context.Context, symbol string) (*futures.PriceChangeStats, error) {
	stats, err := f.c.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(stats) == 0 {
		return nil, fmt.Errorf("empty 24h ticker for %s", symbol)
	}
	return stats[0], nil
}

func (f futuresClient) OpenInterest(ctx context.Context, symbol string) (*futures.OpenInterest, error) {
	return f.c.NewGetOpenInterestService().Symbol(symbol).Do(ctx)
}

// Client fetches the 24h ticker and open interest for each instrument from
// the USDⓈ-M futures REST API.
type Client struct {
	api     futuresAPI
	cfg     Config
	limiter *rate.Limiter
	logger  *logger.Logger
	now     func() time.Time
}

func NewClient(cfg Config, log *logger.Logger) *Client {
	return newClient(futuresClient{c: gobinance.NewFuturesClient(cfg.APIKey, cfg.APISecret)}, cfg, log)
}

func newClient(api futuresAPI, cfg Config, log *logger.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 600
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &Client{
		api:     api,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60), cfg.Burst),
		logger:  log,
		now:     time.Now,
	}
}

// FetchAll returns one result per symbol, in input order. A failing symbol
// carries its error and does not affect the others.
func (c *Client) FetchAll(ctx context.Context, symbols []string) ([]models.FetchResult, error) {
	results := make([]models.FetchResult, len(symbols))

	if !c.cfg.Parallel {
		for i, sym := range symbols {
			results[i] = c.fetchOne(ctx, sym)
		}
		return results, ctx.Err()
	}

	var wg sync.WaitGroup
	for i, sym := range symbols {
		wg.Add(1)
		go func(i int, sym string) {
			defer wg.Done()
			results[i] = c.fetchOne(ctx, sym)
		}(i, sym)
	}
	wg.Wait()
	return results, ctx.Err()
}

func (c *Client) fetchOne(ctx context.Context, symbol string) models.FetchResult {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	res := models.FetchResult{Symbol: symbol}

	if err := c.limiter.Wait(ctx); err != nil {
		res.Err = fmt.Errorf("rate limit wait: %w", err)
		return res
	}
	ticker, err := c.api.Ticker24h(ctx, symbol)
	if err != nil {
		res.Err = fmt.Errorf("fetch ticker %s: %w", symbol, err)
		return res
	}

	if err := c.limiter.Wait(ctx); err != nil {
		res.Err = fmt.Errorf("rate limit wait: %w", err)
		return res
	}
	oi, err := c.api.OpenInterest(ctx, symbol)
	if err != nil {
		res.Err = fmt.Errorf("fetch open interest %s: %w", symbol, err)
		return res
	}

	tickerMap, err := toMap(ticker)
	if err != nil {
		res.Err = fmt.Errorf("encode ticker %s: %w", symbol, err)
		return res
	}
	oiMap, err := toMap(oi)
	if err != nil {
		res.Err = fmt.Errorf("encode open interest %s: %w", symbol, err)
		return res
	}

	res.Snapshot = &models.Snapshot{
		Ticker:       tickerMap,
		OpenInterest: oiMap,
		Ts:           c.now().Unix(),
	}
	return res
}

// toMap keeps the exchange's wire field names (openInterest, lastPrice, ...).
func toMap(v interface{}) (map[string]interface{}, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
