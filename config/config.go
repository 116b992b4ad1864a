package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: authentication gateway and bearer token configuration
//   - database.go: Postgres and Redis connection configuration
//   - http.go: HTTP server and API client configuration
//   - storage.go: session storage backend configuration
//   - services.go: service mode and session reaper configuration
type AppConfig struct {
	// IsDev controls development mode behavior (template reloading, verbose logs).
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	Auth AuthConfig

	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	HTTP HTTPConfig
	API  APIConfig

	Storage StorageConfig

	// Services is a comma-delimited list of the services this process runs.
	Services string `env:"SERVICES" envDefault:"ui,api"`

	Sessions SessionsConfig

	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.Auth.Sanitize()
	c.HTTP.Sanitize()
	c.API.Sanitize()
	c.Storage.Sanitize()
	c.Sessions.Sanitize()
	c.Observability.Sanitize()

	c.detectDevMode()
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

func (c *AppConfig) serviceEnabled(mode ServiceMode) bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[mode]
}

// IsUIEnabled returns true if the HTML dashboard surface is enabled.
func (c *AppConfig) IsUIEnabled() bool { return c.serviceEnabled(ServiceModeUI) }

// IsAPIEnabled returns true if the JSON API surface is enabled.
func (c *AppConfig) IsAPIEnabled() bool { return c.serviceEnabled(ServiceModeAPI) }

// IsHTTPServerEnabled returns true if either HTTP surface is enabled.
func (c *AppConfig) IsHTTPServerEnabled() bool { return c.IsUIEnabled() || c.IsAPIEnabled() }

// IsReaperEnabled returns true if the session reaper is enabled.
func (c *AppConfig) IsReaperEnabled() bool { return c.serviceEnabled(ServiceModeReaper) }
