package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrelationIDRoundTrip(t *testing.T) {
	id := NewCorrelationID()
	require.Len(t, id, 36)

	ctx := WithCorrelationID(context.Background(), id)
	assert.Equal(t, id, ExtractCorrelationID(ctx))
	assert.Empty(t, ExtractCorrelationID(context.Background()))
}

func TestRepoLoggerWritesTableAndRows(t *testing.T) {
	var buf bytes.Buffer
	saved := GlobalLogger
	SetLogger(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { GlobalLogger = saved })

	ctx := WithCorrelationID(context.Background(), "cid-1")
	NewRepoLogger("votes").LogDelete(ctx, 3, slog.Uint64("user_id", 4))

	out := buf.String()
	assert.Contains(t, out, `"table":"votes"`)
	assert.Contains(t, out, `"rows":3`)
	assert.Contains(t, out, `"correlation_id":"cid-1"`)
}

func TestTrackCascadeRecordsOutcome(t *testing.T) {
	before := testutil.CollectAndCount(CascadeDuration)

	TrackCascade("user")(nil)
	TrackCascade("user")(errors.New("boom"))

	assert.GreaterOrEqual(t, testutil.CollectAndCount(CascadeDuration), before+1)
}

func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{ServiceName: "agora-test"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	_, span := StartSpan(context.Background(), "noop")
	EndSpan(span, errors.New("recorded"))
}

func TestInitTracingRejectsUnknownExporter(t *testing.T) {
	_, err := InitTracing(TracingConfig{ServiceName: "agora-test", Enabled: true, Exporter: "zipkin"})
	assert.ErrorContains(t, err, "zipkin")
}

func TestSamplerFor(t *testing.T) {
	assert.Equal(t, "AlwaysOnSampler", samplerFor(1).Description())
	assert.Equal(t, "AlwaysOffSampler", samplerFor(0).Description())
	assert.Contains(t, samplerFor(0.25).Description(), "TraceIDRatioBased{0.25}")
}
