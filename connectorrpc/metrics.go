package connectorrpc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	connector "github.com/example/platform-connector-go"
)

// Metrics exports dispatch outcomes and health state to Prometheus.
// A nil *Metrics records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	rejected *prometheus.CounterVec
	health   *prometheus.GaugeVec
	pushes   *prometheus.CounterVec
}

// NewMetrics registers the connector collectors with reg. A nil reg leaves
// them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "connector",
			Name:      "requests_total",
			Help:      "Requests answered by the connector, by operation and response status.",
		}, []string{"operation", "status"}),
		rejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "connector",
			Name:      "rejected_requests_total",
			Help:      "Requests rejected before or during dispatch, by reason.",
		}, []string{"reason"}),
		health: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "connector",
			Name:      "health_state",
			Help:      "Last pulled health state (1 healthy, 2 warning, 3 failed) by component; overall uses component=\"\".",
		}, []string{"component"}),
		pushes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "connector",
			Name:      "health_pushes_total",
			Help:      "Health results pushed to the host, by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) observeResponse(resp connector.Response) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(resp.Operation().String(), resp.Status().String()).Inc()
}

func (m *Metrics) observeRejected(err error) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(rejectionReason(err)).Inc()
}

func (m *Metrics) observeHealth(r connector.HealthResult) {
	if m == nil {
		return
	}
	m.health.Reset()
	m.health.WithLabelValues("").Set(float64(r.Overall.State))
	for name, st := range r.Components {
		m.health.WithLabelValues(name).Set(float64(st.State))
	}
}

func (m *Metrics) observePush(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.pushes.WithLabelValues(outcome).Inc()
}

func rejectionReason(err error) string {
	if reason, ok := reasonOf(err); ok {
		return reason
	}
	return "internal"
}
