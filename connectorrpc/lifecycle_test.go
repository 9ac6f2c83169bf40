package connectorrpc

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	connector "github.com/example/platform-connector-go"
	"github.com/example/platform-connector-go/demo"
	"github.com/example/platform-connector-go/internal/memtransport"
)

func fastRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
}

func TestHealthSink_Routing(t *testing.T) {
	sink := NewHealthSink(zaptest.NewLogger(t))
	ctx := context.Background()

	assert.True(t, sink.ShouldRoute("demo"), "unreported connectors are routed")

	require.NoError(t, sink.ReportHealth(ctx, "demo", connector.HealthResult{Overall: connector.Warning("slow")}))
	assert.True(t, sink.ShouldRoute("demo"))

	require.NoError(t, sink.ReportHealth(ctx, "demo", connector.ShutdownHealth()))
	assert.False(t, sink.ShouldRoute("demo"))

	got, ok := sink.Latest("demo")
	require.True(t, ok)
	assert.Equal(t, "Plugin shutting down", got.Overall.Comment)

	sink.Forget("demo")
	_, ok = sink.Latest("demo")
	assert.False(t, ok)

	assert.ErrorIs(t, sink.ReportHealth(ctx, "", connector.ShutdownHealth()), connector.ErrInvalidHealthResult)
	assert.ErrorIs(t, sink.ReportHealth(ctx, "demo", connector.HealthResult{}), connector.ErrInvalidHealthResult)
}

func TestHostClient_PushesOverTransport(t *testing.T) {
	sink := NewHealthSink(zaptest.NewLogger(t))
	hostLn, stop := memtransport.Serve(mux(sink))
	defer stop()

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	reporter := NewHostClient(hostLn.HTTPClient(), memtransport.BaseURL,
		WithPushRetry(fastRetry()), WithPushMetrics(metrics))

	inst, err := connector.New("demo", "Demo", connector.NewProperties(nil), demo.New(),
		connector.WithLogger(zaptest.NewLogger(t)), connector.WithHealthReporter(reporter))
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, inst.Initialize(ctx))

	_, err = inst.Handle(ctx, connector.ReadRequest{RequestID: "r", ObjectID: demo.SetHealthObjectID})
	require.NoError(t, err)

	pushed, ok := sink.Latest("demo")
	require.True(t, ok)
	assert.Equal(t, connector.HealthWarning, pushed.Overall.State)
	assert.Len(t, pushed.Components, 3)
	assert.True(t, sink.ShouldRoute("demo"))

	require.NoError(t, inst.Shutdown(ctx))
	assert.False(t, sink.ShouldRoute("demo"))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.pushes.WithLabelValues("ok")), "startup, sethealth and shutdown")
}

func TestHostClient_RetriesUnavailableHost(t *testing.T) {
	sink := NewHealthSink(zaptest.NewLogger(t))
	var calls atomic.Int32
	flaky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		mux(sink).ServeHTTP(w, r)
	})
	hostLn, stop := memtransport.Serve(flaky)
	defer stop()

	reporter := NewHostClient(hostLn.HTTPClient(), memtransport.BaseURL, WithPushRetry(fastRetry()))
	err := reporter.ReportHealth(context.Background(), "demo", connector.HealthResult{Overall: connector.Healthy()})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())

	_, ok := sink.Latest("demo")
	assert.True(t, ok)
}

func TestHostClient_DoesNotRetryInvalidReports(t *testing.T) {
	var calls atomic.Int32
	sink := NewHealthSink(zaptest.NewLogger(t))
	counting := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		mux(sink).ServeHTTP(w, r)
	})
	hostLn, stop := memtransport.Serve(counting)
	defer stop()

	reporter := NewHostClient(hostLn.HTTPClient(), memtransport.BaseURL, WithPushRetry(fastRetry()))
	err := reporter.ReportHealth(context.Background(), "", connector.HealthResult{Overall: connector.Healthy()})

	assert.ErrorIs(t, err, connector.ErrInvalidHealthResult)
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	assert.Equal(t, int32(1), calls.Load())
}

func mux(sink *HealthSink) *http.ServeMux {
	m := http.NewServeMux()
	m.Handle(sink.Handler())
	return m
}
