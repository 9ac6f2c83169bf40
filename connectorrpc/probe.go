package connectorrpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus"

	connector "github.com/example/platform-connector-go"
)

// DefaultGoroutineThreshold bounds the goroutine count before the liveness
// probe fails.
const DefaultGoroutineThreshold = 1000

const probeTimeout = 5 * time.Second

// NewProbeHandler returns liveness (/live) and readiness (/ready) endpoints
// for p. With a non-nil reg the check results are also exported as metrics.
func NewProbeHandler(p connector.Plugin, reg prometheus.Registerer) healthcheck.Handler {
	var h healthcheck.Handler
	if reg != nil {
		h = healthcheck.NewMetricsHandler(reg, "connector")
	} else {
		h = healthcheck.NewHandler()
	}

	h.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(DefaultGoroutineThreshold))
	h.AddReadinessCheck("lifecycle", healthcheck.Timeout(LifecycleCheck(p), probeTimeout))
	h.AddReadinessCheck("health", healthcheck.Timeout(HealthCheck(p), probeTimeout))
	return h
}

// LifecycleCheck fails until p is ready to take requests.
func LifecycleCheck(p connector.Plugin) healthcheck.Check {
	return func() error {
		if s, ok := p.(interface{ State() connector.State }); ok {
			if st := s.State(); st != connector.StateReady {
				return fmt.Errorf("connector is %s", st)
			}
			return nil
		}
		if p.SupportedOperations().Len() == 0 {
			return errors.New("connector supports no operations")
		}
		return nil
	}
}

// HealthCheck fails while p reports an overall FAILED state.
func HealthCheck(p connector.Plugin) healthcheck.Check {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
		defer cancel()

		r := p.Health(ctx)
		if r.Overall.State == connector.HealthFailed {
			if r.Overall.Comment != "" {
				return fmt.Errorf("connector health failed: %s", r.Overall.Comment)
			}
			return errors.New("connector health failed")
		}
		return nil
	}
}
