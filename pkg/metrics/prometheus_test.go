package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.RecordFetchError("ETHUSDT")
	r.RecordFetchError("ETHUSDT")
	r.RecordSignal("BTCUSDT", "BUY")
	r.RecordAlert(false, 3)
	r.RecordOpenInterest("BTCUSDT", 1000)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.fetchErrors.WithLabelValues("ETHUSDT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.signals.WithLabelValues("BTCUSDT", "BUY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.alerts.WithLabelValues("false", "3")))
	assert.Equal(t, 1000.0, testutil.ToFloat64(r.openInterest.WithLabelValues("BTCUSDT")))
}
