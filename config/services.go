package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeUI serves the HTML dashboards.
	ServiceModeUI ServiceMode = "ui"
	// ServiceModeAPI serves the JSON API under /api.
	ServiceModeAPI ServiceMode = "api"
	// ServiceModeReaper prunes idle device sessions and expired storage rows.
	ServiceModeReaper ServiceMode = "reaper"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{ServiceModeUI, ServiceModeAPI, ServiceModeReaper}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	for _, part := range strings.Split(servicesStr, ",") {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeUI, ServiceModeAPI, ServiceModeReaper:
			services[mode] = true
		default:
			return nil, fmt.Errorf("invalid service name: %q (valid options: ui, api, reaper)", serviceName)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// SessionsConfig bounds server-side device sessions.
type SessionsConfig struct {
	// IdleTTL is how long an anonymous device store is kept without requests.
	IdleTTL time.Duration `env:"SESSION_IDLE_TTL" envDefault:"30m"`

	// ReapInterval is how often the reaper runs.
	ReapInterval time.Duration `env:"SESSION_REAP_INTERVAL" envDefault:"5m"`
}

// Sanitize applies guardrails to session configuration values.
func (s *SessionsConfig) Sanitize() {
	if s.IdleTTL <= 0 {
		s.IdleTTL = 30 * time.Minute
	}
	if s.ReapInterval <= 0 {
		s.ReapInterval = 5 * time.Minute
	}
	if s.ReapInterval < time.Second {
		s.ReapInterval = time.Second
	}
}

// ObservabilityConfig groups configuration that controls metrics emission.
type ObservabilityConfig struct {
	Metrics ObservabilityMetricsConfig
}

// Sanitize applies guardrails to observability sub-configs.
func (c *ObservabilityConfig) Sanitize() {
	c.Metrics.Sanitize()
}

// ObservabilityMetricsConfig controls emission of metrics to StatsD and Prometheus.
type ObservabilityMetricsConfig struct {
	Enabled           bool   `env:"OBSERVABILITY_METRICS_ENABLED"            envDefault:"false"`
	StatsdAddress     string `env:"OBSERVABILITY_METRICS_STATSD_ADDRESS"     envDefault:"127.0.0.1:8125"`
	Prefix            string `env:"OBSERVABILITY_METRICS_PREFIX"             envDefault:"examportal"`
	PrometheusEnabled bool   `env:"OBSERVABILITY_METRICS_PROMETHEUS_ENABLED" envDefault:"true"`
}

// Sanitize normalises derived fields and enforces safe defaults.
func (c *ObservabilityMetricsConfig) Sanitize() {
	c.StatsdAddress = strings.TrimSpace(c.StatsdAddress)
	if c.StatsdAddress == "" {
		c.Enabled = false
	}
	if c.Prefix = strings.TrimSpace(c.Prefix); c.Prefix == "" {
		c.Prefix = "examportal"
	}
}

// IsEnabled returns true when statsd emission is active after sanitisation.
func (c *ObservabilityMetricsConfig) IsEnabled() bool {
	return c.Enabled && c.StatsdAddress != ""
}
