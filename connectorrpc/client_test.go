package connectorrpc

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/protobuf/types/known/structpb"

	connector "github.com/example/platform-connector-go"
	"github.com/example/platform-connector-go/demo"
	"github.com/example/platform-connector-go/internal/memtransport"
)

// countingWorker counts worker calls and fails them with err when set.
type countingWorker struct {
	*demo.Worker
	err     error
	creates atomic.Int32
	reads   atomic.Int32
}

func (w *countingWorker) Create(ctx context.Context, req connector.CreateRequest) (connector.CreateResponse, error) {
	w.creates.Add(1)
	if w.err != nil {
		return connector.CreateResponse{}, w.err
	}
	return w.Worker.Create(ctx, req)
}

func (w *countingWorker) Read(ctx context.Context, req connector.ReadRequest) (connector.ReadResponse, error) {
	w.reads.Add(1)
	if w.err != nil {
		return connector.ReadResponse{}, w.err
	}
	return w.Worker.Read(ctx, req)
}

// serveCounting serves w behind wrap and returns a client with retries on.
func serveCounting(t *testing.T, w *countingWorker, wrap func(http.Handler) http.Handler) (*Client, *Metrics) {
	t.Helper()

	inst, err := connector.New("demo", "Demo", connector.NewProperties(nil), w,
		connector.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	require.NoError(t, inst.Initialize(context.Background()))

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	var handler http.Handler = NewMux(inst, reg, metrics, zaptest.NewLogger(t))
	if wrap != nil {
		handler = wrap(handler)
	}
	ln, stop := memtransport.Serve(handler)
	t.Cleanup(stop)

	retry := fastRetry()
	client, err := NewClient(ClientConfig{
		Endpoint:   memtransport.BaseURL,
		HTTPClient: ln.HTTPClient(),
		Retry:      &retry,
	})
	require.NoError(t, err)
	return client, metrics
}

func TestClient_WorkerFailureRunsCreateOnce(t *testing.T) {
	w := &countingWorker{Worker: demo.New(), err: errors.New("database down")}
	client, metrics := serveCounting(t, w, nil)
	ctx := context.Background()

	_, err := client.Handle(ctx, connector.CreateRequest{
		RequestID:     "r1",
		ObjectDetails: connector.Fields{"Field1": connector.String("mine")},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHandlerFailed)
	assert.Equal(t, connect.CodeInternal, connect.CodeOf(err))
	assert.Equal(t, int32(1), w.creates.Load())

	_, err = client.Handle(ctx, connector.ReadRequest{RequestID: "r2", ObjectID: "o"})
	assert.ErrorIs(t, err, ErrHandlerFailed)
	assert.Equal(t, int32(1), w.reads.Load())

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.rejected.WithLabelValues("handler-failed")))
}

func TestClient_RetriesCreateOnlyWhenUnreached(t *testing.T) {
	w := &countingWorker{Worker: demo.New()}
	var calls atomic.Int32
	client, _ := serveCounting(t, w, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				http.Error(rw, "warming up", http.StatusServiceUnavailable)
				return
			}
			next.ServeHTTP(rw, r)
		})
	})

	resp, err := client.Handle(context.Background(), connector.CreateRequest{RequestID: "r1"})
	require.NoError(t, err)
	assert.Equal(t, connector.StatusSuccess, resp.Status())
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, int32(1), w.creates.Load())
}

func TestServer_MalformedRequestIsInvalidArgument(t *testing.T) {
	h := startConnector(t, demo.New(), true)
	msg, err := structpb.NewStruct(map[string]any{
		"operation":     "CREATE",
		"requestId":     "r1",
		"objectDetails": map[string]any{"Field1": nil},
	})
	require.NoError(t, err)

	_, err = NewServer(h.inst).Handle(context.Background(), connect.NewRequest(msg))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	assert.ErrorIs(t, err, ErrMalformedRequest)
	assert.False(t, defaultIsRetryable(err))
	assert.False(t, isServerFailure(err))
}
