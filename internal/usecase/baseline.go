package usecase

import (
	"sort"
	"sync"
)

// BaselineTracker holds the one-step-lagged open-interest reference per
// instrument. It lives only in process memory.
type BaselineTracker struct {
	mu     sync.RWMutex
	values map[string]float64
}

func NewBaselineTracker() *BaselineTracker {
	return &BaselineTracker{values: make(map[string]float64)}
}

func (b *BaselineTracker) Get(symbol string) (float64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.values[symbol]
	return v, ok
}

// SetIfMissing stores v only when symbol has no baseline. It reports whether
// it wrote.
func (b *BaselineTracker) SetIfMissing(symbol string, v float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.values[symbol]; ok {
		return false
	}
	b.values[symbol] = v
	return true
}

// Set replaces the baseline.
func (b *BaselineTracker) Set(symbol string, v float64) {
	b.mu.Lock()
	b.values[symbol] = v
	b.mu.Unlock()
}

// BaselineEntry is one row of Snapshot.
type BaselineEntry struct {
	Symbol string  `json:"symbol"`
	OI     float64 `json:"baseline_oi"`
}

// Snapshot copies the current baselines sorted by symbol.
func (b *BaselineTracker) Snapshot() []BaselineEntry {
	b.mu.RLock()
	out := make([]BaselineEntry, 0, len(b.values))
	for s, v := range b.values {
		out = append(out, BaselineEntry{Symbol: s, OI: v})
	}
	b.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
