package observability

import (
	"context"
	"errors"
	"testing"

	"resumelens/internal/config"
	"resumelens/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newEnabledManager(t *testing.T, cfg *config.Config) (*ObservabilityManager, *sdkmetric.ManualReader) {
	t.Helper()

	om, err := NewObservabilityManager(ObservabilityConfig{
		ServiceName:    "resumelens-test",
		ServiceVersion: "test",
		Enabled:        true,
		SampleRate:     1.0,
	}, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = om.Shutdown(context.Background()) })

	require.Len(t, om.metricReaders, 1)
	reader, ok := om.metricReaders[0].(*sdkmetric.ManualReader)
	require.True(t, ok, "expected the manual reader fallback")
	return om, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func counterValue(t *testing.T, data metricdata.Aggregation) int64 {
	t.Helper()

	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok, "expected int64 sum, got %T", data)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestDisabledManagerIsNoop(t *testing.T) {
	om, err := NewObservabilityManager(ObservabilityConfig{ServiceName: "resumelens"}, nil)
	require.NoError(t, err)

	assert.False(t, om.Enabled())
	assert.NotNil(t, om.Tracer("test"))
	assert.NotNil(t, om.GetMetrics())

	want := &types.AnalysisResult{Email: "a@b.co"}
	got, err := om.TrackAnalysis(context.Background(), "upload", func(context.Context) (*types.AnalysisResult, error) {
		return want, nil
	})
	require.NoError(t, err)
	assert.Same(t, want, got)

	om.RecordRateLimitHit(context.Background())
	om.RecordResourceReload(context.Background(), true)
	om.RecordCertificateReload(context.Background(), "file", true)
	assert.NoError(t, om.Shutdown(context.Background()))
}

func TestNoopManager(t *testing.T) {
	om := NewNoopManager("resumelens", config.Default())
	require.NotNil(t, om)
	assert.False(t, om.Enabled())

	ctx := context.Background()
	got, err := om.TrackAnalysis(ctx, "upload", func(context.Context) (*types.AnalysisResult, error) {
		return &types.AnalysisResult{}, nil
	})
	require.NoError(t, err)
	assert.NotNil(t, got)

	om.RecordRateLimitHit(ctx)
	om.RecordResourceReload(ctx, false)
	om.RecordCertificateReload(ctx, "vault", false)
	assert.NoError(t, om.Shutdown(ctx))
}

func TestTrackAnalysisRecordsMetrics(t *testing.T) {
	om, reader := newEnabledManager(t, nil)
	ctx := context.Background()

	_, err := om.TrackAnalysis(ctx, "upload", func(context.Context) (*types.AnalysisResult, error) {
		return &types.AnalysisResult{
			ExtractionFailed: true,
			JobMatch:         &types.JobMatch{Percentage: 66.7, Rating: types.RatingModerate},
		}, nil
	})
	require.NoError(t, err)

	_, err = om.TrackAnalysis(ctx, "url", func(context.Context) (*types.AnalysisResult, error) {
		return nil, errors.New("fetch failed")
	})
	require.Error(t, err)

	metrics := collect(t, reader)
	require.Contains(t, metrics, MetricAnalysesTotal)
	assert.Equal(t, int64(2), counterValue(t, metrics[MetricAnalysesTotal]))
	assert.Equal(t, int64(1), counterValue(t, metrics[MetricExtractionFailures]))

	hist, ok := metrics[MetricJobMatchPercentage].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)

	assert.Contains(t, metrics, MetricAnalysisDuration)
}

func TestInfrastructureMetricsRespectConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Observability.CustomMetrics.Infrastructure.TrackRateLimits = false

	om, reader := newEnabledManager(t, cfg)
	ctx := context.Background()

	om.RecordRateLimitHit(ctx)
	om.RecordResourceReload(ctx, true)
	om.RecordResourceReload(ctx, false)
	om.RecordCertificateReload(ctx, "file", true)
	om.RecordCertificateReload(ctx, "vault", false)
	om.RecordCertificateReload(ctx, "vault", true)

	metrics := collect(t, reader)
	assert.NotContains(t, metrics, MetricRateLimitHits)
	assert.Equal(t, int64(2), counterValue(t, metrics[MetricResourceReloads]))
	assert.Equal(t, int64(3), counterValue(t, metrics[MetricCertReloads]))
}

func TestGetObservabilityConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Observability.Enabled = true
	cfg.Observability.Prometheus.Enabled = true

	obs := GetObservabilityConfig(cfg, "1.2.3")
	assert.True(t, obs.Enabled)
	assert.Equal(t, "resumelens", obs.ServiceName)
	assert.Equal(t, "1.2.3", obs.ServiceVersion)
	assert.True(t, obs.Prometheus.Enabled)
	assert.Equal(t, "/metrics", obs.Prometheus.Endpoint)

	cfg.Observability.Metrics.Enabled = false
	assert.False(t, GetObservabilityConfig(cfg, "1.2.3").Prometheus.Enabled)

	fallback := GetObservabilityConfig(nil, "dev")
	assert.False(t, fallback.Enabled)
	assert.Equal(t, "dev", fallback.ServiceVersion)
}
