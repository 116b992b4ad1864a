package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/target/exam-portal/config"
)

// InitLogger initializes the structured logger. Debug records are kept in development.
func InitLogger(dev bool) *slog.Logger {
	level := slog.LevelInfo
	if dev {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (config.AppConfig, error) {
	// Load .env file if it exists (development)
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return config.AppConfig{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg config.AppConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()
	return cfg, nil
}

// ValidateServiceConfig checks that at least one service is enabled and that the
// enabled services have what they need to start.
func ValidateServiceConfig(cfg *config.AppConfig) error {
	if cfg == nil {
		return errors.New("service config is required")
	}
	services, err := cfg.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("invalid service configuration: %w", err)
	}

	if len(services) == 0 {
		return errors.New("no services enabled")
	}

	var problems []error
	if cfg.Storage.Backend == config.StorageFile && cfg.Storage.FilePath == "" {
		problems = append(problems, errors.New("STORAGE_FILE_PATH is required for the file storage backend"))
	}
	localGateway := services[config.ServiceModeAPI] ||
		(services[config.ServiceModeUI] && cfg.Auth.Gateway != config.GatewayRemote)
	if localGateway && cfg.Auth.Mode == config.AuthModeOAuth {
		if cfg.Auth.OAuth.DiscoveryURL == "" || cfg.Auth.OAuth.ClientID == "" {
			problems = append(problems, errors.New("oauth mode requires OAUTH_DISCOVERY_URL and OAUTH_CLIENT_ID"))
		}
	}
	if services[config.ServiceModeReaper] && cfg.Sessions.ReapInterval <= 0 {
		problems = append(problems, errors.New("SESSION_REAP_INTERVAL must be positive when the reaper runs"))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid service configuration: %w", errors.Join(problems...))
	}
	return nil
}

// GetEnabledServices returns the enabled service names in start order.
func GetEnabledServices(cfg *config.AppConfig) []string {
	if cfg == nil {
		return []string{}
	}
	services, err := cfg.GetEnabledServices()
	if err != nil {
		// Return empty list on error - validation will catch this
		return []string{}
	}

	enabledServices := make([]string, 0, len(services))
	for _, mode := range config.ValidServiceModes() {
		if services[mode] {
			enabledServices = append(enabledServices, string(mode))
		}
	}

	return enabledServices
}
