package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/exam-portal/internal/domain/auth"
)

type countingSink struct {
	names []string
	tags  []map[string]string
}

func (s *countingSink) Count(name string, _ int64, tags map[string]string) {
	s.names = append(s.names, name)
	s.tags = append(s.tags, tags)
}
func (s *countingSink) Gauge(string, float64, map[string]string)        {}
func (s *countingSink) Timing(string, time.Duration, map[string]string) {}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestMetrics_RecordsAndMirrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := &countingSink{}
	m := New(reg, sink)

	m.RecordLogin(domainauth.RoleStudent, "success")
	m.RecordLogin(domainauth.RoleStudent, "success")
	m.RecordLogin("", "invalid_credentials")
	m.RecordLogout("unauthorized")
	m.RecordRehydrate("restored")
	m.RecordGuard("admin_dashboard", "redirect_unauthorized")
	m.RecordAPIError("401", "unauthorized")

	assert.InDelta(t, 2, counterValue(t, m.Logins.WithLabelValues("student", "success")), 0)
	assert.InDelta(t, 1, counterValue(t, m.Logins.WithLabelValues("none", "invalid_credentials")), 0)
	assert.InDelta(t, 1, counterValue(t, m.Logouts.WithLabelValues("unauthorized")), 0)
	assert.InDelta(t, 1, counterValue(t, m.GuardDecided.WithLabelValues("admin_dashboard", "redirect_unauthorized")), 0)

	require.Len(t, sink.names, 7)
	assert.Equal(t, "session.login", sink.names[0])
	assert.Equal(t, "student", sink.tags[0]["role"])
}

func TestMetrics_SessionGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, nil)
	m.RegisterSessionGauge(reg, func() float64 { return 4 })
	m.RecordLogout("logout")

	families, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() == "examportal_device_sessions" {
			found = true
			assert.InDelta(t, 4, f.GetMetric()[0].GetGauge().GetValue(), 0)
		}
	}
	assert.True(t, found)
}
