package connectorrpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	connector "github.com/example/platform-connector-go"
)

// Probe and metrics paths mounted next to the connector service.
const (
	LivePath    = "/live"
	ReadyPath   = "/ready"
	MetricsPath = "/metrics"
)

// ServeConfig configures a connector server.
type ServeConfig struct {
	// Instance is the connector to serve. Required.
	// Serve initializes it before listening and shuts it down on stop.
	Instance *connector.Instance

	// Addr is the address to listen on.
	// Examples: ":8080", "0.0.0.0:8080", "localhost:8080"
	// Default: ":8080"
	Addr string

	// Listener, if set, is used instead of listening on Addr.
	Listener net.Listener

	// Logger for server events. Default: no-op.
	Logger *zap.Logger

	// Registry collects connector and probe metrics, served on /metrics.
	// Default: a fresh registry.
	Registry *prometheus.Registry

	// HandlerOptions are passed to every Connect handler.
	HandlerOptions []connect.HandlerOption

	// GracefulShutdownTimeout is max time for graceful shutdown.
	// After timeout, forces shutdown.
	// Default: 30 seconds
	GracefulShutdownTimeout time.Duration

	// StopCh signals server shutdown.
	// If nil, server runs until SIGTERM/SIGINT.
	StopCh <-chan struct{}
}

// Validate checks ServeConfig for errors.
func (cfg *ServeConfig) Validate() error {
	if cfg.Instance == nil {
		return fmt.Errorf("%w: Instance must be set", connector.ErrInvalidConfig)
	}
	if cfg.GracefulShutdownTimeout < 0 {
		return fmt.Errorf("%w: GracefulShutdownTimeout must be >= 0", connector.ErrInvalidConfig)
	}
	return nil
}

// NewMux mounts the connector service, the probes and the metrics endpoint
// for p on one handler. m must be registered with reg, or be nil.
func NewMux(p connector.Plugin, reg *prometheus.Registry, m *Metrics, logger *zap.Logger, opts ...connect.HandlerOption) *http.ServeMux {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	mux := http.NewServeMux()

	server := NewServer(p, WithServerLogger(logger), WithMetrics(m))
	path, handler := server.Handler(opts...)
	mux.Handle(path, handler)

	probes := NewProbeHandler(p, reg)
	mux.HandleFunc(LivePath, probes.LiveEndpoint)
	mux.HandleFunc(ReadyPath, probes.ReadyEndpoint)

	mux.Handle(MetricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux
}

// Serve initializes the connector and serves it until StopCh closes or a
// termination signal arrives.
func Serve(cfg *ServeConfig) error {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.GracefulShutdownTimeout == 0 {
		cfg.GracefulShutdownTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := cfg.Instance.Initialize(context.Background()); err != nil {
		return err
	}

	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	metrics := NewMetrics(cfg.Registry)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewMux(cfg.Instance, cfg.Registry, metrics, cfg.Logger, cfg.HandlerOptions...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopCh := cfg.StopCh
	if stopCh == nil {
		sigStop, release := notifyStop(os.Interrupt, syscall.SIGTERM)
		defer release()
		stopCh = sigStop
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if cfg.Listener != nil {
			err = srv.Serve(cfg.Listener)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	cfg.Logger.Info("Serving connector",
		zap.String("plugin_id", cfg.Instance.ID()),
		zap.String("addr", cfg.Addr))

	select {
	case err := <-errCh:
		return multierr.Append(err, cfg.Instance.Shutdown(context.Background()))
	case <-stopCh:
		return gracefulShutdown(srv, cfg)
	}
}

// notifyStop returns a channel closed on the first of sigs. release stops
// signal delivery and waits for the watching goroutine to exit.
func notifyStop(sigs ...os.Signal) (<-chan struct{}, func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, sigs...)

	stop := make(chan struct{})
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		select {
		case <-sigCh:
			close(stop)
		case <-done:
		}
	}()

	var once sync.Once
	return stop, func() {
		once.Do(func() {
			signal.Stop(sigCh)
			close(done)
			<-exited
		})
	}
}

// gracefulShutdown tears the connector down, which pushes its terminal
// health, then drains the HTTP server.
func gracefulShutdown(srv *http.Server, cfg *ServeConfig) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GracefulShutdownTimeout)
	defer cancel()

	cfg.Logger.Info("Shutting down connector", zap.String("plugin_id", cfg.Instance.ID()))

	var err error
	if serr := cfg.Instance.Shutdown(shutdownCtx); serr != nil {
		err = multierr.Append(err, serr)
	}
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		err = multierr.Append(err, fmt.Errorf("server shutdown: %w", serr))
	}
	return err
}
