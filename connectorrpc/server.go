package connectorrpc

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	connector "github.com/example/platform-connector-go"
)

const (
	// ConnectorServiceName is the fully-qualified name of the service a
	// connector serves to its host.
	ConnectorServiceName = "connector.v1.ConnectorService"

	// HandleProcedure dispatches a request.
	HandleProcedure = "/" + ConnectorServiceName + "/Handle"

	// GetHealthProcedure pulls the current health result.
	GetHealthProcedure = "/" + ConnectorServiceName + "/GetHealth"

	// DescribeProcedure returns identity and supported operations.
	DescribeProcedure = "/" + ConnectorServiceName + "/Describe"

	// GetSourceArchiveProcedure returns the connector's source bundle.
	GetSourceArchiveProcedure = "/" + ConnectorServiceName + "/GetSourceArchive"
)

// Server serves a connector.Plugin to a remote host.
type Server struct {
	plugin  connector.Plugin
	logger  *zap.Logger
	metrics *Metrics
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the server logger.
func WithServerLogger(logger *zap.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records dispatch outcomes and pulled health in m.
func WithMetrics(m *Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// NewServer creates a server for p.
func NewServer(p connector.Plugin, opts ...ServerOption) *Server {
	s := &Server{plugin: p, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the path and handler for the connector service.
func (s *Server) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(HandleProcedure, connect.NewUnaryHandler(HandleProcedure, s.Handle, opts...))
	mux.Handle(GetHealthProcedure, connect.NewUnaryHandler(GetHealthProcedure, s.GetHealth, opts...))
	mux.Handle(DescribeProcedure, connect.NewUnaryHandler(DescribeProcedure, s.Describe, opts...))
	mux.Handle(GetSourceArchiveProcedure, connect.NewUnaryHandler(GetSourceArchiveProcedure, s.GetSourceArchive, opts...))
	return "/" + ConnectorServiceName + "/", mux
}

// Handle implements the Handle RPC.
func (s *Server) Handle(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	request, err := DecodeRequest(req.Msg)
	if err != nil {
		s.logger.Warn("Rejecting undecodable request", zap.Error(err))
		s.metrics.observeRejected(err)
		return nil, toConnectError(err)
	}

	resp, err := s.plugin.Handle(ctx, request)
	if err != nil {
		err = handlerFailure(err)
		s.metrics.observeRejected(err)
		return nil, toConnectError(err)
	}
	s.metrics.observeResponse(resp)

	msg, err := EncodeResponse(resp)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

// GetHealth implements the GetHealth RPC.
func (s *Server) GetHealth(
	ctx context.Context,
	_ *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	result := s.plugin.Health(ctx)
	s.metrics.observeHealth(result)

	msg, err := EncodeHealth(result)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(msg), nil
}

// Describe implements the Describe RPC.
func (s *Server) Describe(
	ctx context.Context,
	_ *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	return connect.NewResponse(EncodeInfo(s.plugin.Info())), nil
}

// GetSourceArchive implements the GetSourceArchive RPC. Retrieval failures
// surface as an archive with no data, never as an error.
func (s *Server) GetSourceArchive(
	ctx context.Context,
	_ *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	return connect.NewResponse(EncodeSourceArchive(s.plugin.SourceArchive(ctx))), nil
}
