package config

import (
	"reflect"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    map[ServiceMode]bool
		expectError bool
	}{
		{
			name:     "single service - ui",
			input:    "ui",
			expected: map[ServiceMode]bool{ServiceModeUI: true},
		},
		{
			name:     "single service - reaper",
			input:    "reaper",
			expected: map[ServiceMode]bool{ServiceModeReaper: true},
		},
		{
			name:  "all services with spaces",
			input: " ui , api , reaper ",
			expected: map[ServiceMode]bool{
				ServiceModeUI:     true,
				ServiceModeAPI:    true,
				ServiceModeReaper: true,
			},
		},
		{
			name:  "duplicate services",
			input: "api,api,ui",
			expected: map[ServiceMode]bool{
				ServiceModeUI:  true,
				ServiceModeAPI: true,
			},
		},
		{
			name:        "empty string",
			input:       "",
			expectError: true,
		},
		{
			name:        "only spaces and commas",
			input:       " , , ",
			expectError: true,
		},
		{
			name:        "invalid service name",
			input:       "ui,scheduler",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseServices(tt.input)

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestConfig_ServiceEnabledMethods(t *testing.T) {
	tests := []struct {
		name       string
		services   string
		wantUI     bool
		wantAPI    bool
		wantHTTP   bool
		wantReaper bool
	}{
		{name: "default", services: "ui,api", wantUI: true, wantAPI: true, wantHTTP: true},
		{name: "api only", services: "api", wantAPI: true, wantHTTP: true},
		{name: "reaper only", services: "reaper", wantReaper: true},
		{name: "invalid disables everything", services: "bogus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := AppConfig{Services: tt.services}

			if got := cfg.IsUIEnabled(); got != tt.wantUI {
				t.Errorf("IsUIEnabled(): expected %v, got %v", tt.wantUI, got)
			}
			if got := cfg.IsAPIEnabled(); got != tt.wantAPI {
				t.Errorf("IsAPIEnabled(): expected %v, got %v", tt.wantAPI, got)
			}
			if got := cfg.IsHTTPServerEnabled(); got != tt.wantHTTP {
				t.Errorf("IsHTTPServerEnabled(): expected %v, got %v", tt.wantHTTP, got)
			}
			if got := cfg.IsReaperEnabled(); got != tt.wantReaper {
				t.Errorf("IsReaperEnabled(): expected %v, got %v", tt.wantReaper, got)
			}
		})
	}
}

func TestAppConfig_Defaults(t *testing.T) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	if cfg.Auth.Mode != AuthModeMock {
		t.Errorf("expected mock auth mode, got %q", cfg.Auth.Mode)
	}
	if cfg.Auth.Gateway != GatewayLocal {
		t.Errorf("expected local gateway, got %q", cfg.Auth.Gateway)
	}
	if cfg.Auth.MockDelay != time.Second {
		t.Errorf("expected 1s mock delay, got %v", cfg.Auth.MockDelay)
	}
	if cfg.API.BaseURL != "http://localhost:8080/api" || cfg.API.Timeout != 10*time.Second {
		t.Errorf("unexpected API config: %+v", cfg.API)
	}
	if cfg.Storage.Backend != StorageMemory {
		t.Errorf("expected memory storage, got %q", cfg.Storage.Backend)
	}
	if cfg.Services != "ui,api" {
		t.Errorf("expected ui,api services, got %q", cfg.Services)
	}
}

func TestAppConfig_ParseAuthEnv(t *testing.T) {
	t.Setenv("AUTH_MODE", "OAuth")
	t.Setenv("AUTH_GATEWAY", "remote")
	t.Setenv("AUTH_MOCK_DELAY", "250ms")
	t.Setenv("AUTH_TOKEN_SIGNING_KEY", "signing-key")
	t.Setenv("AUTH_TOKEN_TTL", "1h")
	t.Setenv("OAUTH_CLIENT_ID", "app-client")
	t.Setenv("OAUTH_CLIENT_SECRET", "super-secret")
	t.Setenv("OAUTH_DISCOVERY_URL", "https://login.example.com")
	t.Setenv("OAUTH_SCOPE", "openid profile email")
	t.Setenv("AUTH_STUDENT_GROUP", "cn=students")
	t.Setenv("AUTH_TEACHER_GROUP", "cn=teachers")
	t.Setenv("AUTH_ADMIN_GROUP", "cn=admins")
	t.Setenv("AUTH_PROCTOR_GROUP", "cn=proctors")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}

	expected := AuthConfig{
		Mode:            AuthModeOAuth,
		Gateway:         GatewayRemote,
		MockDelay:       250 * time.Millisecond,
		MockPassword:    "password",
		TokenSigningKey: "signing-key",
		TokenTTL:        time.Hour,
		OAuth: OAuthConfig{
			ClientID:     "app-client",
			ClientSecret: "super-secret",
			Scope:        "openid profile email",
			DiscoveryURL: "https://login.example.com",
		},
		RoleGroups: RoleGroupsConfig{
			Student: "cn=students",
			Teacher: "cn=teachers",
			Admin:   "cn=admins",
			Proctor: "cn=proctors",
		},
	}

	if !reflect.DeepEqual(cfg.Auth, expected) {
		t.Fatalf("unexpected auth configuration:\nexpected: %#v\ngot:      %#v", expected, cfg.Auth)
	}
	if got := cfg.Auth.OAuth.Scopes(); len(got) != 3 {
		t.Fatalf("expected 3 scopes, got %v", got)
	}
}

func TestAppConfig_InvalidEnums(t *testing.T) {
	cases := map[string]string{
		"AUTH_MODE":       "saml",
		"AUTH_GATEWAY":    "grpc",
		"STORAGE_BACKEND": "s3",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			var cfg AppConfig
			if err := env.Parse(&cfg); err == nil {
				t.Fatalf("expected error for %s=%s", key, val)
			}
		})
	}
}

func TestHTTPConfig_Sanitize(t *testing.T) {
	h := HTTPConfig{CompressionLevel: 0, BaseURL: " https://exams.example.com/ "}
	h.Sanitize()
	if h.CompressionLevel != 1 {
		t.Errorf("expected level clamped to 1, got %d", h.CompressionLevel)
	}
	if h.BaseURL != "https://exams.example.com" {
		t.Errorf("unexpected base url %q", h.BaseURL)
	}

	h = HTTPConfig{CompressionLevel: 12}
	h.Sanitize()
	if h.CompressionLevel != 9 {
		t.Errorf("expected level clamped to 9, got %d", h.CompressionLevel)
	}

	a := APIConfig{BaseURL: "http://api/ ", Timeout: -1}
	a.Sanitize()
	if a.BaseURL != "http://api" || a.Timeout != 10*time.Second {
		t.Errorf("unexpected api config %+v", a)
	}
}

func TestStorageAndSessionsConfig_Sanitize(t *testing.T) {
	s := StorageConfig{KeyPrefix: " :portal: ", TTL: -time.Minute}
	s.Sanitize()
	if s.Backend != StorageMemory {
		t.Errorf("expected memory fallback, got %q", s.Backend)
	}
	if s.KeyPrefix != "portal" {
		t.Errorf("expected trimmed prefix, got %q", s.KeyPrefix)
	}
	if s.TTL != 0 {
		t.Errorf("expected ttl clamped to 0, got %v", s.TTL)
	}
	if s.Encrypted() {
		t.Error("expected storage without key to be unencrypted")
	}

	sc := SessionsConfig{ReapInterval: time.Millisecond}
	sc.Sanitize()
	if sc.IdleTTL != 30*time.Minute {
		t.Errorf("expected default idle ttl, got %v", sc.IdleTTL)
	}
	if sc.ReapInterval != time.Second {
		t.Errorf("expected reap interval floor of 1s, got %v", sc.ReapInterval)
	}
}

func TestObservabilityMetricsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityMetricsConfig{
		Enabled:       true,
		StatsdAddress: " ",
	}

	cfg.Sanitize()

	if cfg.Enabled {
		t.Fatalf("expected enabled to be false when address is empty")
	}
	if cfg.Prefix != "examportal" {
		t.Fatalf("expected default prefix, got %q", cfg.Prefix)
	}

	cfg = ObservabilityMetricsConfig{
		Enabled:       true,
		StatsdAddress: " statsd:1234 ",
	}

	cfg.Sanitize()

	if !cfg.IsEnabled() {
		t.Fatalf("expected metrics to remain enabled")
	}
	if cfg.StatsdAddress != "statsd:1234" {
		t.Fatalf("expected address to be trimmed, got %q", cfg.StatsdAddress)
	}
}
