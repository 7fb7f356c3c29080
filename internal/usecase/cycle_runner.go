package usecase

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"SignalPull/internal/domain/models"
	drepo "SignalPull/internal/domain/repository"
	dsvc "SignalPull/internal/domain/service"
	"SignalPull/pkg/logger"
	"SignalPull/pkg/trace"
)

// CycleConfig controls the loop cadence.
type CycleConfig struct {
	Instruments []string
	Interval    time.Duration
	RetryDelay  time.Duration
}

// CycleRunner runs the fetch, evaluate, confirm, dispatch loop.
type CycleRunner struct {
	cfg       CycleConfig
	market    drepo.MarketData
	history   drepo.HistorySink
	archive   drepo.SnapshotArchive
	evaluator dsvc.Evaluator
	handler   *SignalHandler
	baselines *BaselineTracker
	metrics   drepo.Metrics
	logger    *logger.Logger

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewCycleRunner wires the orchestrator. archive may be nil.
func NewCycleRunner(
	cfg CycleConfig,
	market drepo.MarketData,
	history drepo.HistorySink,
	archive drepo.SnapshotArchive,
	evaluator dsvc.Evaluator,
	handler *SignalHandler,
	baselines *BaselineTracker,
	metrics drepo.Metrics,
	log *logger.Logger,
) *CycleRunner {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	return &CycleRunner{
		cfg:       cfg,
		market:    market,
		history:   history,
		archive:   archive,
		evaluator: evaluator,
		handler:   handler,
		baselines: baselines,
		metrics:   metrics,
		logger:    log,
		sleep:     sleepCtx,
		now:       time.Now,
	}
}

// Baselines exposes the tracker for read-only inspection.
func (r *CycleRunner) Baselines() *BaselineTracker {
	return r.baselines
}

// Run loops until ctx is cancelled. A failing cycle is logged and retried
// after RetryDelay; a completed cycle waits Interval.
func (r *CycleRunner) Run(ctx context.Context) error {
	r.logger.Info("cycle runner started",
		logger.Strings("instruments", r.cfg.Instruments),
		logger.Duration("interval_ms", r.cfg.Interval),
	)
	for {
		wait := r.cfg.Interval
		if err := r.safeCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Error("cycle failed, retrying", logger.Error(err), logger.Duration("retry_in_ms", r.cfg.RetryDelay))
			wait = r.cfg.RetryDelay
		}
		if err := r.sleep(ctx, wait); err != nil {
			r.logger.Info("cycle runner stopped")
			return err
		}
	}
}

func (r *CycleRunner) safeCycle(ctx context.Context) (err error) {
	start := r.now()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("cycle panic: %v\n%s", p, debug.Stack())
		}
		r.metrics.RecordCycle(r.now().Sub(start).Seconds(), err != nil)
	}()
	return r.RunCycle(ctx)
}

// RunCycle processes every instrument once.
func (r *CycleRunner) RunCycle(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "cycle", attribute.Int("instruments", len(r.cfg.Instruments)))
	defer span.End()

	results, err := r.market.FetchAll(ctx, r.cfg.Instruments)
	if err != nil {
		return fmt.Errorf("fetch all: %w", err)
	}

	for _, res := range results {
		if res.Err != nil {
			r.metrics.RecordFetchError(res.Symbol)
			r.logger.Warn("fetch error, skipping instrument",
				logger.String("symbol", res.Symbol),
				logger.Error(res.Err),
			)
			continue
		}
		if res.Snapshot == nil {
			r.metrics.RecordFetchError(res.Symbol)
			r.logger.Warn("empty snapshot, skipping instrument", logger.String("symbol", res.Symbol))
			continue
		}

		rec, err := r.processInstrument(ctx, res.Symbol, res.Snapshot)
		if err != nil {
			r.metrics.RecordError("instrument")
			r.logger.Error("instrument processing failed",
				logger.String("symbol", res.Symbol),
				logger.Error(err),
			)
		}
		r.logger.Info("cycle decision",
			logger.String("symbol", res.Symbol),
			logger.String("side", string(rec.Side)),
			logger.Int("confidence", rec.Confidence),
			logger.Bool("sent", rec.Sent),
			logger.Bool("degraded", rec.Degraded),
		)
	}
	return ctx.Err()
}

// processInstrument runs one instrument through the pipeline. A panic after
// evaluation is reported as an error with the candidate kept and sent=false.
func (r *CycleRunner) processInstrument(ctx context.Context, symbol string, snap *models.Snapshot) (rec models.Record, err error) {
	ctx, span := trace.StartSpan(ctx, "instrument", attribute.String("symbol", symbol))
	defer span.End()

	var evaluated *models.Record
	defer func() {
		if p := recover(); p != nil {
			rec = models.Record{}
			if evaluated != nil {
				rec = *evaluated
			}
			rec.Sent = false
			err = fmt.Errorf("panic: %v", p)
		}
	}()

	current := snap.OIMetric()
	r.metrics.RecordOpenInterest(symbol, current)

	if err := r.history.PushSnapshot(ctx, symbol, snap); err != nil {
		r.metrics.RecordError("history_snapshot")
		r.logger.Warn("store snapshot failed", logger.String("symbol", symbol), logger.Error(err))
	}
	if r.archive != nil {
		if err := r.archive.Archive(ctx, symbol, snap); err != nil {
			r.metrics.RecordError("archive_snapshot")
			r.logger.Warn("archive snapshot failed", logger.String("symbol", symbol), logger.Error(err))
		}
	}

	// Seed from the latest persisted snapshot, which is normally the one
	// just pushed.
	if _, seeded := r.baselines.Get(symbol); !seeded {
		seed := r.priorMetric(ctx, symbol)
		if seed == 0 {
			seed = current
		}
		r.baselines.SetIfMissing(symbol, seed)
	}
	baseline, _ := r.baselines.Get(symbol)

	candidate, agg := r.evaluator.Evaluate(symbol, snap, baseline)
	r.baselines.Set(symbol, current)

	evaluated = &models.Record{Candidate: candidate, Ts: snap.Ts, BaselineOI: baseline, CurrentOI: current}
	return r.handler.Handle(ctx, candidate, agg, snap.Ts), nil
}

func (r *CycleRunner) priorMetric(ctx context.Context, symbol string) float64 {
	prev, err := r.history.LatestSnapshot(ctx, symbol)
	if err != nil {
		if !errors.Is(err, drepo.ErrNoHistory) {
			r.logger.Warn("read history failed", logger.String("symbol", symbol), logger.Error(err))
		}
		return 0
	}
	return prev.OIMetric()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
