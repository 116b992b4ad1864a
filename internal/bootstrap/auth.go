package bootstrap

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/target/exam-portal/config"
	"github.com/target/exam-portal/internal/adapters/authroles"
	"github.com/target/exam-portal/internal/adapters/mockgateway"
	"github.com/target/exam-portal/internal/adapters/oidc"
	redisadapter "github.com/target/exam-portal/internal/adapters/redis"
	"github.com/target/exam-portal/internal/apiclient"
	"github.com/target/exam-portal/internal/data/cryptoutil"
	"github.com/target/exam-portal/internal/ports"
	"github.com/target/exam-portal/internal/service"
	"github.com/target/exam-portal/internal/token"
)

// AuthConfig contains configuration for the token manager and gateways.
type AuthConfig struct {
	Auth        config.AuthConfig
	IsDev       bool
	RedisClient redis.UniversalClient // Optional: shares token revocations across processes
	Logger      *slog.Logger
}

// BuildTokenManager creates the bearer token issuer and verifier. Without a signing
// key a random one is generated in development; elsewhere it is an error.
func BuildTokenManager(cfg AuthConfig) (*token.Manager, error) {
	key, err := signingKey(cfg)
	if err != nil {
		return nil, err
	}

	opts := token.Options{SigningKey: key, TTL: cfg.Auth.TokenTTL}
	if cfg.RedisClient != nil {
		opts.Revocations = redisadapter.NewRevocationList(cfg.RedisClient)
	}
	return token.NewManager(opts)
}

func signingKey(cfg AuthConfig) ([]byte, error) {
	if cfg.Auth.TokenSigningKey != "" {
		return cryptoutil.ParseKey(cfg.Auth.TokenSigningKey, []byte("examportal-token")), nil
	}
	if !cfg.IsDev {
		return nil, errors.New("AUTH_TOKEN_SIGNING_KEY is required outside development")
	}
	if cfg.Logger != nil {
		cfg.Logger.Warn("AUTH_TOKEN_SIGNING_KEY not set, using an ephemeral key")
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	return key, nil
}

// BuildGateway creates the credential verifier selected by AUTH_MODE.
//
//nolint:ireturn // the mode picks the implementation at runtime.
func BuildGateway(ctx context.Context, cfg AuthConfig, tokens ports.TokenIssuer) (ports.AuthGateway, error) {
	switch cfg.Auth.Mode {
	case config.AuthModeMock:
		delay := cfg.Auth.MockDelay
		if delay == 0 {
			delay = -1
		}
		if cfg.Logger != nil {
			cfg.Logger.Warn("mock auth gateway enabled; every demo account accepts the configured password")
		}
		return mockgateway.New(mockgateway.Config{
			Delay:    delay,
			Password: cfg.Auth.MockPassword,
			Issuer:   tokens,
		}), nil

	case config.AuthModeOAuth:
		groups := cfg.Auth.RoleGroups
		gw, err := oidc.NewPasswordGateway(ctx, oidc.GatewayConfig{
			ClientID:     cfg.Auth.OAuth.ClientID,
			ClientSecret: cfg.Auth.OAuth.ClientSecret,
			Scope:        cfg.Auth.OAuth.Scope,
			DiscoveryURL: cfg.Auth.OAuth.DiscoveryURL,
			Roles: authroles.StaticMapper{
				StudentGroup: groups.Student,
				TeacherGroup: groups.Teacher,
				AdminGroup:   groups.Admin,
				ProctorGroup: groups.Proctor,
			},
			Issuer: tokens,
		})
		if err != nil {
			return nil, fmt.Errorf("create oidc gateway: %w", err)
		}
		return gw, nil

	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.Auth.Mode)
	}
}

// SessionGateway picks the gateway device sessions sign in through: the local one,
// or the remote API when AUTH_GATEWAY=remote.
//
//nolint:ireturn // see BuildGateway.
func SessionGateway(cfg config.AuthConfig, local ports.AuthGateway, api *apiclient.Client) (ports.AuthGateway, error) {
	if cfg.Gateway == config.GatewayRemote {
		if api == nil {
			return nil, errors.New("remote gateway requires an API client")
		}
		return apiclient.NewGateway(api), nil
	}
	if local == nil {
		return nil, errors.New("local gateway is not configured")
	}
	return local, nil
}

// BuildAuthService wires the JSON auth endpoints.
func BuildAuthService(gw ports.AuthGateway, tokens *token.Manager, logger *slog.Logger) (*service.AuthService, error) {
	svc, err := service.NewAuthService(service.AuthServiceOptions{
		Gateway: gw,
		Tokens:  tokens,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create auth service: %w", err)
	}
	return svc, nil
}
