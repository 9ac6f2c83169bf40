package connector

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// HealthState is the coarse state of a connector or one of its components.
type HealthState int

const (
	HealthHealthy HealthState = iota + 1
	HealthWarning
	HealthFailed
)

func (s HealthState) String() string {
	switch s {
	case HealthHealthy:
		return "HEALTHY"
	case HealthWarning:
		return "WARNING"
	case HealthFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("HealthState(%d)", int(s))
	}
}

// Valid reports whether s is a known state.
func (s HealthState) Valid() bool {
	return s >= HealthHealthy && s <= HealthFailed
}

// ParseHealthState parses a state name, ignoring case.
func ParseHealthState(s string) (HealthState, error) {
	for _, st := range []HealthState{HealthHealthy, HealthWarning, HealthFailed} {
		if strings.EqualFold(s, st.String()) {
			return st, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown health state %q", ErrInvalidHealthResult, s)
}

// HealthStatus is a state with an optional comment.
type HealthStatus struct {
	State   HealthState
	Comment string
}

// Healthy returns a HEALTHY status with no comment.
func Healthy() HealthStatus { return HealthStatus{State: HealthHealthy} }

// Warning returns a WARNING status.
func Warning(comment string) HealthStatus { return HealthStatus{State: HealthWarning, Comment: comment} }

// Failed returns a FAILED status.
func Failed(comment string) HealthStatus { return HealthStatus{State: HealthFailed, Comment: comment} }

// HealthMetric is a named measurement. Its value may be any Value variant.
type HealthMetric struct {
	Name  string
	Value Value
}

// HealthResult is the complete health picture of a connector. Every result
// delivered to the host, pulled or pushed, carries the overall status plus
// all known component statuses and metrics; the host never merges partial
// results.
type HealthResult struct {
	Overall    HealthStatus
	Components map[string]HealthStatus
	Metrics    []HealthMetric
}

// Validate checks that the result has an overall state and well-formed
// components and metrics.
func (r HealthResult) Validate() error {
	if !r.Overall.State.Valid() {
		return fmt.Errorf("%w: overall state is required", ErrInvalidHealthResult)
	}
	for name, st := range r.Components {
		if name == "" {
			return fmt.Errorf("%w: component name cannot be empty", ErrInvalidHealthResult)
		}
		if !st.State.Valid() {
			return fmt.Errorf("%w: component %q has no state", ErrInvalidHealthResult, name)
		}
	}
	for i, m := range r.Metrics {
		if m.Name == "" {
			return fmt.Errorf("%w: metric %d has no name", ErrInvalidHealthResult, i)
		}
		if !m.Value.IsValid() {
			return fmt.Errorf("%w: metric %q has no value", ErrInvalidHealthResult, m.Name)
		}
	}
	return nil
}

// Clone returns a deep copy of r.
func (r HealthResult) Clone() HealthResult {
	out := HealthResult{Overall: r.Overall}
	if r.Components != nil {
		out.Components = make(map[string]HealthStatus, len(r.Components))
		for k, v := range r.Components {
			out.Components[k] = v
		}
	}
	if r.Metrics != nil {
		out.Metrics = append([]HealthMetric(nil), r.Metrics...)
	}
	return out
}

// ComponentNames returns the component names in sorted order.
func (r HealthResult) ComponentNames() []string {
	names := make([]string, 0, len(r.Components))
	for name := range r.Components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Worst returns the most severe state across the overall status and every
// component.
func (r HealthResult) Worst() HealthState {
	worst := r.Overall.State
	for _, st := range r.Components {
		if st.State > worst {
			worst = st.State
		}
	}
	return worst
}

// ShutdownHealth is the terminal result pushed when a connector is torn down.
func ShutdownHealth() HealthResult {
	return HealthResult{Overall: Failed("Plugin shutting down")}
}

// HealthReporter is the host callback used to push health. The host supplies
// it after construction; pluginID lets the host route the result.
type HealthReporter interface {
	ReportHealth(ctx context.Context, pluginID string, result HealthResult) error
}

// HealthReporterFunc adapts a function to HealthReporter.
type HealthReporterFunc func(ctx context.Context, pluginID string, result HealthResult) error

// ReportHealth calls f.
func (f HealthReporterFunc) ReportHealth(ctx context.Context, pluginID string, result HealthResult) error {
	return f(ctx, pluginID, result)
}

// HealthPusher pushes a complete health result to the host, if the host has
// supplied a reporter. Push never fails.
type HealthPusher interface {
	PushHealth(ctx context.Context, result HealthResult)
}
