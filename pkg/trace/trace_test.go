package trace

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestStartSpan_DisabledIsNoop(t *testing.T) {
	require.NoError(t, Init(Config{Enabled: false}))

	ctx, span := StartSpan(context.Background(), "cycle")
	defer span.End()
	assert.False(t, span.SpanContext().IsValid())
	assert.NotNil(t, ctx)
}

func TestStartSpan_ExportsToWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Config{Enabled: true, ServiceName: "signalpull-test", Writer: &buf}))
	t.Cleanup(func() {
		enabled = false
		tracer = nil
		tracerProvider = nil
	})

	_, span := StartSpan(context.Background(), "instrument", attribute.String("symbol", "BTCUSDT"))
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, Shutdown(context.Background()))
	assert.Contains(t, buf.String(), `"Name":"instrument"`)
	assert.Contains(t, buf.String(), "BTCUSDT")
}
