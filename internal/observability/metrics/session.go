// Package metrics records session, guard and API metrics to Prometheus and,
// when configured, mirrors counters to a StatsD sink.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	domainauth "github.com/target/exam-portal/internal/domain/auth"
	"github.com/target/exam-portal/internal/observability/statsd"
)

// Metrics holds the portal's collectors. It implements session.Recorder.
type Metrics struct {
	Logins       *prometheus.CounterVec
	Logouts      *prometheus.CounterVec
	Rehydrations *prometheus.CounterVec
	GuardDecided *prometheus.CounterVec
	APIErrors    *prometheus.CounterVec

	sink statsd.Sink
}

// New creates the collectors and registers them with reg. A nil sink disables StatsD mirroring.
func New(reg prometheus.Registerer, sink statsd.Sink) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "examportal_logins_total",
			Help: "Login attempts by role and outcome",
		}, []string{"role", "outcome"}),
		Logouts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "examportal_logouts_total",
			Help: "Session teardowns by reason",
		}, []string{"reason"}),
		Rehydrations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "examportal_rehydrations_total",
			Help: "Session rehydrations by outcome",
		}, []string{"outcome"}),
		GuardDecided: f.NewCounterVec(prometheus.CounterOpts{
			Name: "examportal_guard_decisions_total",
			Help: "Route guard decisions by view and kind",
		}, []string{"view", "kind"}),
		APIErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "examportal_api_errors_total",
			Help: "JSON API error responses by status and error class",
		}, []string{"status", "class"}),
		sink: sink,
	}
}

// RegisterSessionGauge exposes fn as the number of live device sessions.
func (m *Metrics) RegisterSessionGauge(reg prometheus.Registerer, fn func() float64) {
	promauto.With(reg).NewGaugeFunc(prometheus.GaugeOpts{
		Name: "examportal_device_sessions",
		Help: "Device session stores held in memory",
	}, fn)
}

func (m *Metrics) RecordLogin(role domainauth.Role, outcome string) {
	r := role.String()
	if !role.Valid() {
		r = "none"
	}
	m.Logins.WithLabelValues(r, outcome).Inc()
	m.mirror("session.login", map[string]string{"role": r, "outcome": outcome})
}

func (m *Metrics) RecordLogout(reason string) {
	m.Logouts.WithLabelValues(reason).Inc()
	m.mirror("session.logout", map[string]string{"reason": reason})
}

func (m *Metrics) RecordRehydrate(outcome string) {
	m.Rehydrations.WithLabelValues(outcome).Inc()
	m.mirror("session.rehydrate", map[string]string{"outcome": outcome})
}

// RecordGuard counts a guard decision for view.
func (m *Metrics) RecordGuard(view, kind string) {
	m.GuardDecided.WithLabelValues(view, kind).Inc()
	m.mirror("guard.decision", map[string]string{"view": view, "kind": kind})
}

// RecordAPIError counts an error response.
func (m *Metrics) RecordAPIError(status, class string) {
	m.APIErrors.WithLabelValues(status, class).Inc()
	m.mirror("api.error", map[string]string{"status": status, "class": class})
}

func (m *Metrics) mirror(name string, tags map[string]string) {
	if m.sink == nil {
		return
	}
	m.sink.Count(name, 1, tags)
}
