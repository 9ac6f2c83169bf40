package connectorrpc

import (
	"context"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	connector "github.com/example/platform-connector-go"
)

// ClientConfig configures a host-side client for a remote connector.
type ClientConfig struct {
	// Endpoint is the connector service URL.
	// Required. Example: "http://localhost:8080"
	Endpoint string

	// HTTPClient is used for Connect RPCs. Default: &http.Client{}
	HTTPClient connect.HTTPClient

	// Retry, if set, retries failed calls with this policy. Requests that
	// change records are retried only on transport failures.
	Retry *RetryPolicy

	// Breaker, if set, guards every call. It runs outside the retries, so a
	// refused call is not retried.
	Breaker *Breaker

	// Options are extra Connect client options.
	Options []connect.ClientOption
}

// Validate checks ClientConfig for errors.
func (cfg *ClientConfig) Validate() error {
	if cfg.Endpoint == "" {
		return fmt.Errorf("%w: Endpoint is required", connector.ErrInvalidConfig)
	}
	return nil
}

// Client calls a connector served by Server. It is the host's view of a
// remote connector.
type Client struct {
	read     *connect.Client[structpb.Struct, structpb.Struct]
	write    *connect.Client[structpb.Struct, structpb.Struct]
	health   *connect.Client[emptypb.Empty, structpb.Struct]
	describe *connect.Client[emptypb.Empty, structpb.Struct]
	source   *connect.Client[emptypb.Empty, structpb.Struct]
}

// NewClient creates a client for the connector at cfg.Endpoint.
//
// Reads and the metadata calls use cfg.Retry as given. Create, Update and
// Delete are only retried when the connector could not be reached, so a
// worker never runs one of them twice.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	options := func(retry *RetryPolicy) []connect.ClientOption {
		var interceptors []connect.Interceptor
		if cfg.Breaker != nil {
			interceptors = append(interceptors, cfg.Breaker.Interceptor())
		}
		if retry != nil {
			interceptors = append(interceptors, RetryInterceptor(*retry))
		}
		opts := append([]connect.ClientOption(nil), cfg.Options...)
		if len(interceptors) > 0 {
			opts = append(opts, connect.WithInterceptors(interceptors...))
		}
		return opts
	}

	opts := options(cfg.Retry)
	writeOpts := opts
	if cfg.Retry != nil {
		writes := cfg.Retry.forWrites()
		writeOpts = options(&writes)
	}

	return &Client{
		read:     connect.NewClient[structpb.Struct, structpb.Struct](httpClient, cfg.Endpoint+HandleProcedure, opts...),
		write:    connect.NewClient[structpb.Struct, structpb.Struct](httpClient, cfg.Endpoint+HandleProcedure, writeOpts...),
		health:   connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, cfg.Endpoint+GetHealthProcedure, opts...),
		describe: connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, cfg.Endpoint+DescribeProcedure, opts...),
		source:   connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, cfg.Endpoint+GetSourceArchiveProcedure, opts...),
	}, nil
}

// Handle sends req to the connector. Rejections come back as the connector
// errors the remote dispatcher returned, so errors.Is and errors.As work the
// same as in-process.
func (c *Client) Handle(ctx context.Context, req connector.Request) (connector.Response, error) {
	msg, err := EncodeRequest(req)
	if err != nil {
		return nil, err
	}

	call := c.write
	if req.Operation() == connector.OperationRead {
		call = c.read
	}
	resp, err := call.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return nil, fromConnectError(err)
	}

	out, err := DecodeResponse(resp.Msg)
	if err != nil {
		return nil, err
	}
	if out.ID() != req.ID() {
		return nil, fmt.Errorf("%w: request id %q answered with %q", connector.ErrInvalidResponse, req.ID(), out.ID())
	}
	return out, nil
}

// Health pulls the connector's current health.
func (c *Client) Health(ctx context.Context) (connector.HealthResult, error) {
	resp, err := c.health.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return connector.HealthResult{}, fromConnectError(err)
	}
	return DecodeHealth(resp.Msg)
}

// Describe returns the connector's identity and capabilities.
func (c *Client) Describe(ctx context.Context) (connector.Info, error) {
	resp, err := c.describe.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return connector.Info{}, fromConnectError(err)
	}
	return DecodeInfo(resp.Msg)
}

// SupportedOperations returns the connector's operation catalog.
func (c *Client) SupportedOperations(ctx context.Context) (connector.OperationSet, error) {
	info, err := c.Describe(ctx)
	if err != nil {
		return connector.OperationSet{}, err
	}
	return info.Operations, nil
}

// SourceArchive retrieves the connector's source bundle.
func (c *Client) SourceArchive(ctx context.Context) (connector.SourceArchive, error) {
	resp, err := c.source.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return connector.SourceArchive{}, fromConnectError(err)
	}
	return DecodeSourceArchive(resp.Msg)
}
