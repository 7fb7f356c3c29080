package usecase

import (
	"context"
	"time"

	"SignalPull/internal/domain/models"
	drepo "SignalPull/internal/domain/repository"
	dsvc "SignalPull/internal/domain/service"
	"SignalPull/pkg/logger"
)

// SignalHandler confirms a candidate, decides whether it deserves an alert,
// dispatches it and records the decision.
type SignalHandler struct {
	confirmer     dsvc.Confirmer
	dispatcher    dsvc.Dispatcher
	history       drepo.HistorySink
	publisher     drepo.SignalPublisher
	metrics       drepo.Metrics
	logger        *logger.Logger
	minConfidence int
}

// NewSignalHandler wires the handler. publisher may be nil.
func NewSignalHandler(
	confirmer dsvc.Confirmer,
	dispatcher dsvc.Dispatcher,
	history drepo.HistorySink,
	publisher drepo.SignalPublisher,
	metrics drepo.Metrics,
	log *logger.Logger,
	minConfidence int,
) *SignalHandler {
	return &SignalHandler{
		confirmer:     confirmer,
		dispatcher:    dispatcher,
		history:       history,
		publisher:     publisher,
		metrics:       metrics,
		logger:        log,
		minConfidence: minConfidence,
	}
}

// Handle never fails the caller: store and publish errors are logged.
func (h *SignalHandler) Handle(ctx context.Context, c models.Candidate, agg models.Aggregates, ts int64) models.Record {
	start := time.Now()
	conf := h.confirmer.Confirm(ctx, c, agg)
	h.metrics.RecordLatency("confirm", time.Since(start).Seconds())
	result := conf.Result

	rec := models.Record{
		Candidate:  result,
		Ts:         ts,
		BaselineOI: agg.RecentBaselineOI,
		CurrentOI:  agg.CurrentOI,
		Degraded:   conf.Degraded,
	}

	if h.shouldAlert(result) {
		start = time.Now()
		d := h.dispatcher.Dispatch(ctx, result, ts)
		h.metrics.RecordLatency("dispatch", time.Since(start).Seconds())
		rec.Sent = d.Sent
		h.metrics.RecordAlert(d.Sent, d.Attempts)
	}
	h.metrics.RecordSignal(result.Symbol, string(result.Side))

	if err := h.history.PushSignal(ctx, &rec); err != nil {
		h.metrics.RecordError("history_signal")
		h.logger.Error("store signal failed", logger.String("symbol", result.Symbol), logger.Error(err))
	}
	if h.publisher != nil {
		if err := h.publisher.Publish(ctx, &rec); err != nil {
			h.metrics.RecordError("publish_signal")
			h.logger.Warn("publish signal failed", logger.String("symbol", result.Symbol), logger.Error(err))
		}
	}
	return rec
}

func (h *SignalHandler) shouldAlert(c models.Candidate) bool {
	return c.Actionable() && c.Confidence >= h.minConfidence
}
