package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthMode represents the authentication mode for the application.
type AuthMode string

const (
	// AuthModeOAuth verifies credentials against an OIDC provider.
	AuthModeOAuth AuthMode = "oauth"
	// AuthModeMock uses the built-in demo directory (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "oauth", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oauth, mock)", v)
	}
}

// GatewayMode selects where the UI sends sign-in requests.
type GatewayMode string

const (
	// GatewayLocal authenticates in-process through the configured AuthMode.
	GatewayLocal GatewayMode = "local"
	// GatewayRemote posts credentials to the API at API_BASE_URL.
	GatewayRemote GatewayMode = "remote"
)

// UnmarshalText implements encoding.TextUnmarshaler for GatewayMode.
func (g *GatewayMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "local", "remote":
		*g = GatewayMode(v)
		return nil
	default:
		return fmt.Errorf("invalid GatewayMode: %q (valid options: local, remote)", v)
	}
}

// OAuthConfig contains OAuth/OIDC configuration.
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"     envDefault:"exam-portal"`
	ClientSecret string `env:"CLIENT_SECRET" envDefault:"exam-portal"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email groups"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
}

// Scopes splits Scope on whitespace.
func (o OAuthConfig) Scopes() []string { return strings.Fields(o.Scope) }

// RoleGroupsConfig maps identity provider groups to portal roles.
type RoleGroupsConfig struct {
	Student string `env:"AUTH_STUDENT_GROUP"`
	Teacher string `env:"AUTH_TEACHER_GROUP"`
	Admin   string `env:"AUTH_ADMIN_GROUP"`
	Proctor string `env:"AUTH_PROCTOR_GROUP"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which credential verifier backs the local gateway.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"mock"`

	// Gateway selects in-process or remote authentication for the UI.
	Gateway GatewayMode `env:"AUTH_GATEWAY" envDefault:"local"`

	// MockDelay is the simulated latency of the mock gateway.
	MockDelay time.Duration `env:"AUTH_MOCK_DELAY" envDefault:"1s"`

	// MockPassword is the password every demo account accepts.
	MockPassword string `env:"AUTH_MOCK_PASSWORD" envDefault:"password"`

	// TokenSigningKey signs bearer tokens. Hex or passphrase; derived when short.
	TokenSigningKey string `env:"AUTH_TOKEN_SIGNING_KEY"`

	// TokenTTL is the lifetime of issued bearer tokens.
	TokenTTL time.Duration `env:"AUTH_TOKEN_TTL" envDefault:"8h"`

	OAuth OAuthConfig `envPrefix:"OAUTH_"`

	RoleGroups RoleGroupsConfig
}

// Sanitize applies guardrails to auth configuration values.
func (a *AuthConfig) Sanitize() {
	if a.Mode == "" {
		a.Mode = AuthModeMock
	}
	if a.Gateway == "" {
		a.Gateway = GatewayLocal
	}
	if a.MockDelay < 0 {
		a.MockDelay = 0
	}
	if a.TokenTTL <= 0 {
		a.TokenTTL = 8 * time.Hour
	}
	a.OAuth.DiscoveryURL = strings.TrimSpace(a.OAuth.DiscoveryURL)
}
