package service

import (
	"context"

	"SignalPull/internal/domain/models"
)

// Evaluator derives a candidate from the current snapshot and the baseline.
type Evaluator interface {
	Evaluate(symbol string, snap *models.Snapshot, baseline float64) (models.Candidate, models.Aggregates)
}

// Confirmation is the confirmed candidate plus whether the model step was
// skipped or failed.
type Confirmation struct {
	Result   models.Candidate
	Degraded bool
}

// Confirmer refines a candidate. It never fails; on any problem it returns
// the candidate itself.
type Confirmer interface {
	Confirm(ctx context.Context, c models.Candidate, agg models.Aggregates) Confirmation
}

// Delivery is the outcome of a notification attempt.
type Delivery struct {
	Sent     bool
	Attempts int
}

// Dispatcher delivers a confirmed result to the operator.
type Dispatcher interface {
	Dispatch(ctx context.Context, c models.Candidate, ts int64) Delivery
}
