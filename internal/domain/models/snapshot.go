package models

import "SignalPull/pkg/util"

// OpenInterestKey is the field of the open-interest payload carrying the metric.
const OpenInterestKey = "openInterest"

// PriceChangePercentKey is the 24h change field of the ticker payload.
const PriceChangePercentKey = "priceChangePercent"

// Snapshot is one observation of an instrument. Ticker and OpenInterest keep
// the exchange payloads as decoded JSON objects.
type Snapshot struct {
	Ticker       map[string]interface{} `json:"ticker"`
	OpenInterest map[string]interface{} `json:"open_interest"`
	Ts           int64                  `json:"ts"`
}

// OIMetric extracts the open-interest metric. Missing or non-numeric values
// give 0.
func (s *Snapshot) OIMetric() float64 {
	if s == nil || s.OpenInterest == nil {
		return 0
	}
	return util.FloatFrom(s.OpenInterest[OpenInterestKey], 0)
}

// PriceChangePct extracts the 24h price change percent, 0 when absent.
func (s *Snapshot) PriceChangePct() float64 {
	if s == nil || s.Ticker == nil {
		return 0
	}
	return util.FloatFrom(s.Ticker[PriceChangePercentKey], 0)
}

// LastPrice extracts the last traded price, 0 when absent.
func (s *Snapshot) LastPrice() float64 {
	if s == nil || s.Ticker == nil {
		return 0
	}
	return util.FloatFrom(s.Ticker["lastPrice"], 0)
}

// FetchResult is the per-instrument outcome of a batch fetch. Exactly one of
// Snapshot and Err is set.
type FetchResult struct {
	Symbol   string
	Snapshot *Snapshot
	Err      error
}
