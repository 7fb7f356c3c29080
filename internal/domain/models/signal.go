package models

import "strings"

// Side is the directional call of a signal.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
	SideHold Side = "HOLD"
)

// Valid reports whether s is one of BUY, SELL, HOLD.
func (s Side) Valid() bool {
	switch s {
	case SideBuy, SideSell, SideHold:
		return true
	default:
		return false
	}
}

// ParseSide normalises free-form text (e.g. "buy") to a Side.
func ParseSide(v string) (Side, bool) {
	s := Side(strings.ToUpper(strings.TrimSpace(v)))
	return s, s.Valid()
}

// Candidate is the evaluator's proposal for one instrument. A confirmed
// result has the same shape.
type Candidate struct {
	Symbol     string `json:"symbol"`
	Side       Side   `json:"side"`
	Confidence int    `json:"confidence"`
	Reasoning  string `json:"reasoning"`
}

// Actionable is true for BUY and SELL.
func (c Candidate) Actionable() bool {
	return c.Side == SideBuy || c.Side == SideSell
}

// ClampConfidence bounds v to 0..100.
func ClampConfidence(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Aggregates is the context handed to the confirmation step next to a
// candidate.
type Aggregates struct {
	RecentBaselineOI float64 `json:"recent_baseline_oi"`
	CurrentOI        float64 `json:"current_oi"`
	OIChangePct      float64 `json:"oi_change_pct"`
	PriceChangePct   float64 `json:"price_change_pct"`
}

// Record is what the pipeline stores for every decision it makes.
type Record struct {
	Candidate
	Ts         int64   `json:"ts"`
	BaselineOI float64 `json:"baseline_oi"`
	CurrentOI  float64 `json:"current_oi"`
	Sent       bool    `json:"sent"`
	Degraded   bool    `json:"degraded"`
}
