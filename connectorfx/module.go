// Package connectorfx wires a connector into an fx application.
//
//	fx.New(
//		connectorfx.WithZapLogger(),
//		fx.Provide(zap.NewProduction),
//		fx.Provide(func() connector.Worker { return demo.New() }),
//		connectorfx.Module(connectorfx.Config{PluginID: "demo"}),
//		connectorfx.ServerModule(connectorfx.ServerConfig{Addr: ":8080"}),
//	).Run()
package connectorfx

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	connector "github.com/example/platform-connector-go"
	"github.com/example/platform-connector-go/connectorrpc"
)

// Config identifies the connector and where its inputs live.
type Config struct {
	// PluginID is the host-assigned id. Required.
	PluginID string

	// Description is shown in logs and returned by Describe.
	Description string

	// ConfigDir holds <PluginID>.properties. Default: the executable's
	// directory.
	ConfigDir string

	// SourceDir holds the source archive. Empty disables source retrieval.
	SourceDir string

	// UsesAGPL marks the source as AGPL licensed.
	UsesAGPL bool

	// HostURL is where pushed health is sent. Empty disables push until a
	// reporter is set on the instance.
	HostURL string
}

// Module provides a *connector.Instance built from the connector.Worker in
// the graph. The instance is initialized on start and shut down on stop.
// The graph must also provide a *zap.Logger.
func Module(cfg Config) fx.Option {
	return fx.Module("connector",
		fx.Supply(cfg),
		fx.Provide(
			prometheus.NewRegistry,
			NewMetrics,
			NewProperties,
			NewInstance,
		),
	)
}

// NewMetrics registers the connector metrics on reg.
func NewMetrics(reg *prometheus.Registry) *connectorrpc.Metrics {
	return connectorrpc.NewMetrics(reg)
}

// NewProperties loads the connector's properties file.
func NewProperties(cfg Config, logger *zap.Logger) (connector.Properties, error) {
	dir := cfg.ConfigDir
	if dir == "" {
		var err error
		if dir, err = connector.ExecutableDir(); err != nil {
			return connector.Properties{}, err
		}
	}
	return connector.LoadProperties(dir, cfg.PluginID, logger)
}

// InstanceParams are the dependencies of NewInstance.
type InstanceParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Config     Config
	Properties connector.Properties
	Worker     connector.Worker
	Logger     *zap.Logger
	Metrics    *connectorrpc.Metrics
	HTTPClient *http.Client `optional:"true"`
}

// NewInstance creates the connector and binds it to the application
// lifecycle.
func NewInstance(p InstanceParams) (*connector.Instance, error) {
	opts := []connector.Option{connector.WithLogger(p.Logger)}
	if p.Config.SourceDir != "" {
		opts = append(opts, connector.WithSourceFS(os.DirFS(p.Config.SourceDir), p.Config.UsesAGPL))
	}
	if p.Config.HostURL != "" {
		httpClient := p.HTTPClient
		if httpClient == nil {
			httpClient = &http.Client{Timeout: 10 * time.Second}
		}
		opts = append(opts, connector.WithHealthReporter(connectorrpc.NewHostClient(
			httpClient, p.Config.HostURL, connectorrpc.WithPushMetrics(p.Metrics),
		)))
	}

	inst, err := connector.New(p.Config.PluginID, p.Config.Description, p.Properties, p.Worker, opts...)
	if err != nil {
		return nil, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: inst.Initialize,
		OnStop:  inst.Shutdown,
	})
	return inst, nil
}

// ServerConfig configures the HTTP server for a connector.
type ServerConfig struct {
	// Addr is the address to listen on. Default: ":8080"
	Addr string

	// Listener, if set, is used instead of listening on Addr.
	Listener net.Listener
}

// ServerModule serves the instance provided by Module over HTTP. The server
// starts after the instance is initialized and stops before it shuts down.
func ServerModule(cfg ServerConfig) fx.Option {
	return fx.Module("connector-server",
		fx.Supply(cfg),
		fx.Provide(NewHTTPServer),
		fx.Invoke(func(*http.Server) {}),
	)
}

// ServerParams are the dependencies of NewHTTPServer.
type ServerParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    ServerConfig
	Instance  *connector.Instance
	Registry  *prometheus.Registry
	Metrics   *connectorrpc.Metrics
	Logger    *zap.Logger
}

// NewHTTPServer mounts the connector mux and binds the listener to the
// application lifecycle.
func NewHTTPServer(p ServerParams) *http.Server {
	addr := p.Config.Addr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           connectorrpc.NewMux(p.Instance, p.Registry, p.Metrics, p.Logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln := p.Config.Listener
			if ln == nil {
				var err error
				if ln, err = net.Listen("tcp", addr); err != nil {
					return fmt.Errorf("listen %s: %w", addr, err)
				}
			}
			p.Logger.Info("Serving connector", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Logger.Error("Connector server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: srv.Shutdown,
	})
	return srv
}

// WithZapLogger routes fx's own events to the application's zap logger.
func WithZapLogger() fx.Option {
	return fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: logger.Named("fx")}
	})
}
