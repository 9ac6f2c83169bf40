package connectorrpc

import (
	"context"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	cmap "github.com/orcaman/concurrent-map/v2"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	connector "github.com/example/platform-connector-go"
)

const (
	// HostServiceName is the fully-qualified name of the service a host
	// serves to its connectors.
	HostServiceName = "connector.v1.HostService"

	// ReportHealthProcedure receives a pushed health result.
	ReportHealthProcedure = "/" + HostServiceName + "/ReportHealth"
)

// HealthSink implements the host side of health push (connector → host).
// It keeps the latest result reported by each connector.
//
// A HealthSink is also a connector.HealthReporter, so hosts that run
// connectors in-process can register it directly.
type HealthSink struct {
	results cmap.ConcurrentMap[string, connector.HealthResult] // plugin id → latest result
	logger  *zap.Logger
}

// NewHealthSink creates an empty sink.
func NewHealthSink(logger *zap.Logger) *HealthSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthSink{
		results: cmap.New[connector.HealthResult](),
		logger:  logger,
	}
}

// ReportHealth records result as the latest health of pluginID.
func (h *HealthSink) ReportHealth(_ context.Context, pluginID string, result connector.HealthResult) error {
	if pluginID == "" {
		return fmt.Errorf("%w: plugin id is required", connector.ErrInvalidHealthResult)
	}
	if err := result.Validate(); err != nil {
		return err
	}

	h.results.Set(pluginID, result.Clone())

	h.logger.Debug("Health reported",
		zap.String("plugin_id", pluginID),
		zap.Stringer("overall", result.Overall.State),
		zap.Int("components", len(result.Components)),
	)
	return nil
}

// HandleReport implements the ReportHealth RPC.
func (h *HealthSink) HandleReport(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[emptypb.Empty], error) {
	pluginID, result, err := decodeReport(req.Msg)
	if err != nil {
		return nil, toConnectError(err)
	}
	if err := h.ReportHealth(ctx, pluginID, result); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&emptypb.Empty{}), nil
}

// Handler returns the path and handler for the host service.
func (h *HealthSink) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	return ReportHealthProcedure, connect.NewUnaryHandler(ReportHealthProcedure, h.HandleReport, opts...)
}

// Latest returns the last result reported by pluginID.
func (h *HealthSink) Latest(pluginID string) (connector.HealthResult, bool) {
	r, ok := h.results.Get(pluginID)
	if !ok {
		return connector.HealthResult{}, false
	}
	return r.Clone(), true
}

// ShouldRoute reports whether the host should send requests to pluginID.
//
// Routing behavior:
//   - HEALTHY: route
//   - WARNING: route (the connector decides what to return)
//   - FAILED: do not route
//   - nothing reported yet: route
func (h *HealthSink) ShouldRoute(pluginID string) bool {
	r, ok := h.Latest(pluginID)
	if !ok {
		return true
	}
	return r.Overall.State != connector.HealthFailed
}

// Forget drops the recorded health of pluginID.
func (h *HealthSink) Forget(pluginID string) {
	h.results.Remove(pluginID)
}

// HostClient pushes health results to a remote HealthSink. It implements
// connector.HealthReporter for connectors served out of process.
type HostClient struct {
	client  *connect.Client[structpb.Struct, emptypb.Empty]
	metrics *Metrics
}

// HostClientOption configures a HostClient.
type HostClientOption func(*hostClientConfig)

type hostClientConfig struct {
	retry   RetryPolicy
	metrics *Metrics
	opts    []connect.ClientOption
}

// WithPushRetry overrides the retry policy used for each push.
func WithPushRetry(p RetryPolicy) HostClientOption {
	return func(c *hostClientConfig) { c.retry = p }
}

// WithPushMetrics counts push outcomes in m.
func WithPushMetrics(m *Metrics) HostClientOption {
	return func(c *hostClientConfig) { c.metrics = m }
}

// WithHostClientOptions passes extra options to the Connect client.
func WithHostClientOptions(opts ...connect.ClientOption) HostClientOption {
	return func(c *hostClientConfig) { c.opts = append(c.opts, opts...) }
}

// NewHostClient creates a reporter that pushes to the host at hostURL.
func NewHostClient(httpClient connect.HTTPClient, hostURL string, opts ...HostClientOption) *HostClient {
	cfg := hostClientConfig{retry: DefaultRetryPolicy()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	clientOpts := append([]connect.ClientOption{
		connect.WithInterceptors(RetryInterceptor(cfg.retry)),
	}, cfg.opts...)

	return &HostClient{
		client:  connect.NewClient[structpb.Struct, emptypb.Empty](httpClient, hostURL+ReportHealthProcedure, clientOpts...),
		metrics: cfg.metrics,
	}
}

// ReportHealth pushes result for pluginID.
func (c *HostClient) ReportHealth(ctx context.Context, pluginID string, result connector.HealthResult) error {
	msg, err := encodeReport(pluginID, result)
	if err != nil {
		c.metrics.observePush(err)
		return err
	}

	_, err = c.client.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		err = fromConnectError(err)
	}
	c.metrics.observePush(err)
	return err
}
