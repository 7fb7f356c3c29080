package evaluator

import (
	"fmt"
	"math"

	"SignalPull/internal/domain/models"
)

// Config tunes the open-interest rule.
type Config struct {
	// ThresholdPct is the minimum absolute OI change, in percent, for a
	// directional call.
	ThresholdPct float64
	// ConfidenceScale converts |OI change %| into confidence points.
	ConfidenceScale float64
}

// OIRule compares the current open interest with the baseline and reads the
// 24h price change for direction:
//
//	OI up, price up   -> BUY  (new longs)
//	OI up, price down -> SELL (new shorts)
//	OI down           -> HOLD (positions unwinding)
type OIRule struct {
	cfg Config
}

func NewOIRule(cfg Config) *OIRule {
	if cfg.ConfidenceScale <= 0 {
		cfg.ConfidenceScale = 10
	}
	return &OIRule{cfg: cfg}
}

const holdConfidenceCap = 50

func (r *OIRule) Evaluate(symbol string, snap *models.Snapshot, baseline float64) (models.Candidate, models.Aggregates) {
	current := snap.OIMetric()
	price := snap.PriceChangePct()

	var oiPct float64
	if baseline > 0 {
		oiPct = (current - baseline) / baseline * 100
	}

	agg := models.Aggregates{
		RecentBaselineOI: baseline,
		CurrentOI:        current,
		OIChangePct:      round2(oiPct),
		PriceChangePct:   price,
	}

	c := models.Candidate{
		Symbol:     symbol,
		Side:       models.SideHold,
		Confidence: models.ClampConfidence(int(math.Round(math.Abs(oiPct) * r.cfg.ConfidenceScale))),
		Reasoning:  fmt.Sprintf("OI %+.2f%% vs baseline, price %+.2f%% 24h", oiPct, price),
	}

	switch {
	case math.Abs(oiPct) < r.cfg.ThresholdPct:
		c.Reasoning += "; OI change below threshold"
	case oiPct > 0 && price > 0:
		c.Side = models.SideBuy
	case oiPct > 0 && price < 0:
		c.Side = models.SideSell
	case oiPct > 0:
		c.Reasoning += "; flat price"
	default:
		c.Reasoning += "; positions unwinding"
	}

	if c.Side == models.SideHold && c.Confidence > holdConfidenceCap {
		c.Confidence = holdConfidenceCap
	}
	return c, agg
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
