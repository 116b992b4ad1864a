package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	domainauth "github.com/target/exam-portal/internal/domain/auth"
	"github.com/target/exam-portal/internal/ports"
)

// TokenManager verifies, revokes and refreshes bearer tokens.
type TokenManager interface {
	ports.TokenVerifier
	Revoke(ctx context.Context, raw string) error
	Refresh(ctx context.Context, raw string) (string, error)
}

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Gateway ports.AuthGateway // Required: verifies credentials and mints tokens
	Tokens  TokenManager      // Required
	Logger  *slog.Logger      // Optional
}

// AuthService backs the JSON auth endpoints: login through the gateway, and logout
// and refresh over issued tokens.
type AuthService struct {
	gateway ports.AuthGateway
	tokens  TokenManager
	logger  *slog.Logger
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) (*AuthService, error) {
	if opts.Gateway == nil {
		return nil, errors.New("auth service: gateway is required")
	}
	if opts.Tokens == nil {
		return nil, errors.New("auth service: token manager is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{gateway: opts.Gateway, tokens: opts.Tokens, logger: logger.With("component", "auth_service")}, nil
}

// Login authenticates req. Incomplete requests and unknown roles are rejected
// without calling the gateway.
func (s *AuthService) Login(ctx context.Context, req domainauth.LoginRequest) (domainauth.Grant, error) {
	role, err := domainauth.ParseRole(string(req.Role))
	if err != nil {
		return domainauth.Grant{}, domainauth.Reject("Please select a role to continue")
	}
	creds := domainauth.Credentials{Email: strings.TrimSpace(req.Email), Password: req.Password, Role: role}
	if !creds.Complete() {
		return domainauth.Grant{}, domainauth.Reject("Please fill in all fields")
	}
	if !ValidEmail(creds.Email) {
		return domainauth.Grant{}, domainauth.Reject("Please enter a valid email address")
	}

	grant, err := s.gateway.Authenticate(ctx, creds)
	if err != nil {
		s.logger.InfoContext(ctx, "api login failed", "role", role, "error", err)
		return domainauth.Grant{}, fmt.Errorf("authenticate: %w", err)
	}
	s.logger.InfoContext(ctx, "api login succeeded", "role", role, "user_id", grant.User.ID)
	return grant, nil
}

// Verify validates a bearer token.
func (s *AuthService) Verify(ctx context.Context, raw string) (ports.Claims, error) {
	return s.tokens.Verify(ctx, raw)
}

// Logout revokes raw so it is no longer accepted.
func (s *AuthService) Logout(ctx context.Context, raw string) error {
	if err := s.tokens.Revoke(ctx, raw); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// Refresh exchanges raw for a token with a fresh expiry.
func (s *AuthService) Refresh(ctx context.Context, raw string) (string, error) {
	next, err := s.tokens.Refresh(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}
	return next, nil
}
