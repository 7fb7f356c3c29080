package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"SignalPull/internal/domain/repository"
	"SignalPull/internal/domain/service"
	"SignalPull/internal/handler/api"
	internalrepo "SignalPull/internal/repository"
	"SignalPull/internal/service/binance"
	"SignalPull/internal/services/alert"
	"SignalPull/internal/services/confirm"
	"SignalPull/internal/services/evaluator"
	"SignalPull/internal/usecase"
	"SignalPull/pkg/cache"
	pkgch "SignalPull/pkg/clickhouse"
	"SignalPull/pkg/config"
	xhttp "SignalPull/pkg/http"
	pkgkafka "SignalPull/pkg/kafka"
	"SignalPull/pkg/logger"
	"SignalPull/pkg/metrics"
	"SignalPull/pkg/server"
)

// ProvideLogger creates the root logger from the log section.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideRegistry creates the Prometheus registry served on /metrics.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(cfg *config.Config, reg *prometheus.Registry) repository.Metrics {
	if cfg.Metrics.Disabled {
		return metrics.Noop{}
	}
	return metrics.New(reg)
}

// ProvideCache connects to Redis, or returns an in-process store when Redis
// is disabled.
func ProvideCache(cfg *config.Config, log *logger.Logger) (cache.Service, error) {
	if cfg.Redis.Disabled {
		log.Warn("redis disabled, history is kept in memory")
		return cache.NewMemoryCache(cache.WithMemoryMaxListLen(int(cfg.Redis.SignalsLimit))), nil
	}
	c, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
		cache.WithRedisDialTimeout(cfg.Redis.DialTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return c, nil
}

// ProvideHistoryStore creates the Redis-list history sink.
func ProvideHistoryStore(c cache.Service, cfg *config.Config) *internalrepo.HistoryStore {
	return internalrepo.NewHistoryStore(c, cfg.Redis.HistoryLimit, cfg.Redis.SignalsLimit)
}

// ProvideClickHouseClient connects when the archive is enabled; nil otherwise.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideSnapshotArchive creates the archive table and returns the archive,
// or nil when ClickHouse is disabled.
func ProvideSnapshotArchive(client *pkgch.Client, cfg *config.Config) (repository.SnapshotArchive, error) {
	if client == nil {
		return nil, nil
	}
	archive := internalrepo.NewClickHouseArchive(client.DB(), cfg.ClickHouse.Table)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, archive.Schema()); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return archive, nil
}

// ProvideSignalPublisher creates the Kafka fan-out, or nil when disabled.
func ProvideSignalPublisher(cfg *config.Config) (repository.SignalPublisher, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithTopic(cfg.Kafka.Topic),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithWriteTimeout(cfg.Kafka.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaPublisher(producer), nil
}

// ProvideMarketData creates the futures REST client.
func ProvideMarketData(cfg *config.Config, log *logger.Logger) repository.MarketData {
	return binance.NewClient(binance.Config{
		APIKey:            cfg.Exchange.APIKey,
		APISecret:         cfg.Exchange.APISecret,
		Timeout:           cfg.Exchange.Timeout,
		RequestsPerMinute: cfg.Exchange.RequestsPerMinute,
		Burst:             cfg.Exchange.Burst,
		Parallel:          cfg.Pipeline.ParallelFetch,
	}, log.With("binance"))
}

func ProvideEvaluator(cfg *config.Config) service.Evaluator {
	return evaluator.NewOIRule(evaluator.Config{
		ThresholdPct:    cfg.Evaluator.OIThresholdPct,
		ConfidenceScale: cfg.Evaluator.ConfidenceScale,
	})
}

// ProvideConfirmer creates the LLM confirmation step. Outcomes are counted on
// the metrics recorder.
func ProvideConfirmer(cfg *config.Config, log *logger.Logger, m repository.Metrics) service.Confirmer {
	c := confirm.NewOpenAIConfirmer(confirm.Config{
		APIKey:    cfg.LLM.APIKey,
		Model:     cfg.LLM.Model,
		BaseURL:   cfg.LLM.BaseURL,
		MaxTokens: cfg.LLM.MaxTokens,
		Timeout:   cfg.LLM.Timeout,
	}, log.With("confirm"), confirm.WithObserver(m.RecordConfirmation))
	if !c.Enabled() {
		log.Warn("OPENAI_API_KEY not set, candidates pass through unconfirmed")
	}
	return c
}

func ProvideDispatcher(cfg *config.Config, log *logger.Logger) service.Dispatcher {
	d := alert.NewTelegramDispatcher(alert.Config{
		BotToken:   cfg.Telegram.BotToken,
		ChatID:     cfg.Telegram.ChatID,
		BaseURL:    cfg.Telegram.BaseURL,
		MaxRetries: cfg.Telegram.MaxRetries,
		Backoff:    time.Duration(cfg.Telegram.BackoffSeconds) * time.Second,
		Timeout:    cfg.Telegram.Timeout,
	}, log.With("alert"))
	if !d.Configured() {
		log.Warn("telegram bot token or chat id missing, alerts are not sent")
	}
	return d
}

func ProvideSignalHandler(
	cfg *config.Config,
	confirmer service.Confirmer,
	dispatcher service.Dispatcher,
	history repository.HistorySink,
	publisher repository.SignalPublisher,
	m repository.Metrics,
	log *logger.Logger,
) *usecase.SignalHandler {
	return usecase.NewSignalHandler(confirmer, dispatcher, history, publisher, m, log.With("handler"), cfg.Alert.MinConfidence)
}

func ProvideCycleRunner(
	cfg *config.Config,
	market repository.MarketData,
	history repository.HistorySink,
	archive repository.SnapshotArchive,
	eval service.Evaluator,
	handler *usecase.SignalHandler,
	baselines *usecase.BaselineTracker,
	m repository.Metrics,
	log *logger.Logger,
) *usecase.CycleRunner {
	return usecase.NewCycleRunner(
		usecase.CycleConfig{
			Instruments: cfg.Pipeline.Instruments,
			Interval:    cfg.Interval(),
			RetryDelay:  cfg.Pipeline.RetryDelay,
		},
		market, history, archive, eval, handler, baselines, m, log.With("runner"),
	)
}

func ProvideSignalsHandler(log *logger.Logger, query *usecase.SignalsQuery, baselines *usecase.BaselineTracker) *api.SignalsEchoHandler {
	return api.NewSignalsEchoHandler(log.With("api"), query, baselines)
}

// ProvideHTTPServer builds the echo server for the inspection API.
func ProvideHTTPServer(cfg *config.Config, log *logger.Logger, reg *prometheus.Registry, h *api.SignalsEchoHandler) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
	}
	if !cfg.Metrics.Disabled {
		opts = append(opts, xhttp.WithMetrics(reg, cfg.Metrics.Path))
	}
	return xhttp.NewServer(h, log.With("http"), opts...)
}

// ProvideApp creates the application server and registers every resource
// that must be released on shutdown.
func ProvideApp(
	log *logger.Logger,
	runner *usecase.CycleRunner,
	srv *xhttp.Server,
	c cache.Service,
	chClient *pkgch.Client,
	publisher repository.SignalPublisher,
) *server.App {
	app := server.New(log, runner, srv)
	app.OnShutdown("cache", c)
	if chClient != nil {
		app.OnShutdown("clickhouse", chClient)
	}
	app.OnShutdown("kafka", publisher)
	return app
}
