package usecase

import (
	"context"
	"encoding/json"

	"SignalPull/internal/domain/models"
	drepo "SignalPull/internal/domain/repository"
)

// SignalsQuery reads stored decision records for the inspection API.
type SignalsQuery struct {
	history drepo.HistorySink
}

func NewSignalsQuery(history drepo.HistorySink) *SignalsQuery {
	return &SignalsQuery{history: history}
}

// RawEntry wraps a stored entry that is not valid JSON.
type RawEntry struct {
	Raw string `json:"raw"`
}

// Recent returns up to limit entries, newest first. Entries that fail to
// decode are passed through as RawEntry instead of failing the call.
func (q *SignalsQuery) Recent(ctx context.Context, limit int) ([]interface{}, error) {
	items, err := q.history.RecentSignals(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]interface{}, 0, len(items))
	for _, item := range items {
		var v interface{}
		if err := json.Unmarshal([]byte(item), &v); err != nil {
			out = append(out, RawEntry{Raw: item})
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// Latest returns the last record stored for symbol.
func (q *SignalsQuery) Latest(ctx context.Context, symbol string) (*models.Record, error) {
	return q.history.LatestSignal(ctx, symbol)
}
