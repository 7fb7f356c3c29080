package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshot_OIMetric(t *testing.T) {
	cases := []struct {
		name string
		snap *Snapshot
		want float64
	}{
		{"string value", &Snapshot{OpenInterest: map[string]interface{}{"openInterest": "1000.0"}}, 1000},
		{"number value", &Snapshot{OpenInterest: map[string]interface{}{"openInterest": 1234.5}}, 1234.5},
		{"missing key", &Snapshot{OpenInterest: map[string]interface{}{"symbol": "BTCUSDT"}}, 0},
		{"garbage", &Snapshot{OpenInterest: map[string]interface{}{"openInterest": "abc"}}, 0},
		{"nil payload", &Snapshot{}, 0},
		{"nil snapshot", nil, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.InDelta(t, c.want, c.snap.OIMetric(), 1e-9)
		})
	}
}

func TestParseSide(t *testing.T) {
	s, ok := ParseSide(" buy ")
	assert.True(t, ok)
	assert.Equal(t, SideBuy, s)

	_, ok = ParseSide("LONG")
	assert.False(t, ok)
}

func TestClampConfidence(t *testing.T) {
	assert.Equal(t, 0, ClampConfidence(-5))
	assert.Equal(t, 100, ClampConfidence(250))
	assert.Equal(t, 42, ClampConfidence(42))
}
